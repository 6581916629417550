package layout

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

const (
	bodyFamily = "storybook"
	coreFamily = "Helvetica"

	titleSize     = 36.0
	titleLeading  = 42.0
	authorSize    = 18.0
	authorLeading = 22.0
	noteSize      = 20.0
	noteLeading   = 26.0
	footerSize    = 10.0
	footerOffset  = 0.3 * 72 // 0.3in above the bottom edge
	captionPad    = 6.0
	qrSize        = 72.0
	qrPixels      = 256
)

// Pastel page tint, also used behind captions.
var tint = [3]int{245, 250, 255}

// Options configures an Engine.
type Options struct {
	// FontPath is a TrueType font with UTF-8 coverage. Required for
	// non-Latin text; core Helvetica is used when empty.
	FontPath string
	// Compress recompresses every image as JPEG.
	Compress bool
	Logger   *slog.Logger
	Title    string
	Author   string
}

// Engine draws storybook pages into one PDF document.
type Engine struct {
	pdf      *gofpdf.Fpdf
	family   string
	utf8     bool
	tr       func(string) string
	compress bool
	log      *slog.Logger
	images   int
}

// NewEngine creates an empty landscape letter document. Every page it adds
// gets the pastel background and a "Page N" footer.
func NewEngine(opts Options) (*Engine, error) {
	pdf := gofpdf.New("L", "pt", "Letter", "")
	pdf.SetMargins(Margin, Margin, Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCellMargin(0)

	e := &Engine{pdf: pdf, family: coreFamily, compress: opts.Compress, log: opts.Logger}
	if e.log == nil {
		e.log = slog.Default()
	}

	if opts.FontPath != "" {
		if _, err := os.Stat(opts.FontPath); err != nil {
			return nil, fmt.Errorf("font %s: %w", opts.FontPath, err)
		}
		pdf.AddUTF8Font(bodyFamily, "", opts.FontPath)
		pdf.AddUTF8Font(bodyFamily, "B", opts.FontPath)
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("load font %s: %w", opts.FontPath, err)
		}
		e.family, e.utf8 = bodyFamily, true
		e.tr = basicPlane
	} else {
		e.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.SetTitle(opts.Title, true)
	pdf.SetAuthor(opts.Author, true)
	pdf.SetCreator("storybook", true)
	pdf.SetHeaderFunc(e.DecoratePage)
	return e, nil
}

// DecoratePage paints the page tint and the page number. It runs as the
// document's header hook, before anything else is drawn on the page.
func (e *Engine) DecoratePage() {
	e.pdf.SetFillColor(tint[0], tint[1], tint[2])
	e.pdf.Rect(0, 0, PageWidth, PageHeight, "F")

	e.pdf.SetFont(e.family, "", footerSize)
	e.pdf.SetTextColor(0, 0, 0)
	label := fmt.Sprintf("Page %d", e.pdf.PageNo())
	e.pdf.Text((PageWidth-e.pdf.GetStringWidth(label))/2, PageHeight-footerOffset, label)
}

// DrawCover adds the cover page: title and "By author" at the top, the
// cover image scaled into the remaining space, and a QR code linking to
// the narration when audioURL is set. An undecodable image is logged and
// left out.
func (e *Engine) DrawCover(title, author string, img []byte, audioURL string) {
	e.pdf.AddPage()
	top := Margin + 40

	e.pdf.SetFont(e.family, "B", titleSize)
	titleLines := e.split(title, ContentWidth*0.9)
	th := e.drawCentered(titleLines, top, titleLeading)

	e.pdf.SetFont(e.family, "", authorSize)
	authorLines := e.split("By "+author, ContentWidth*0.9)
	ah := float64(len(authorLines)) * authorLeading
	e.drawCentered(authorLines, Margin+th+55, authorLeading)

	if audioURL != "" {
		e.drawQR(audioURL)
	}

	areaH := ContentHeight - (th + ah + 90) - 40
	if len(img) == 0 || areaH <= 0 {
		return
	}
	pic, err := Normalize(img, e.compress)
	if err != nil {
		e.log.Error("cover image skipped", "error", err)
		return
	}
	scale := FitScale(pic.Width, pic.Height, ContentWidth, areaH)
	w, h := pic.Width*scale, pic.Height*scale
	e.placeImage(pic, Margin+(ContentWidth-w)/2, Margin+ContentHeight-30-h, w, h)
}

// DrawSpread adds one scene page: the illustration centered in the top box
// and the caption auto-fitted below it on a tinted panel. A missing image or
// empty text leaves its region blank.
func (e *Engine) DrawSpread(img []byte, text string) {
	e.pdf.AddPage()
	imageH := ContentHeight * ImageShare
	textH := ContentHeight - imageH

	if len(img) > 0 {
		if pic, err := Normalize(img, e.compress); err != nil {
			e.log.Warn("scene image skipped", "page", e.pdf.PageNo(), "error", err)
		} else if scale := FitScale(pic.Width, pic.Height, ContentWidth, imageH); scale > 0 {
			w, h := pic.Width*scale, pic.Height*scale
			e.placeImage(pic, Margin+(ContentWidth-w)/2, Margin+(imageH-h)/2, w, h)
		}
	}

	if strings.TrimSpace(text) == "" {
		return
	}
	e.pdf.SetFont(e.family, "", CaptionMaxSize)
	c := FitCaption(e.measurer(), text, ContentWidth*0.9, textH*0.95, CaptionMaxSize, CaptionMinSize)
	if c.Overflow {
		e.log.Warn("caption overflows its box", "page", e.pdf.PageNo(), "size", c.Size)
	}

	var tw float64
	for _, l := range c.Lines {
		tw = max(tw, e.pdf.GetStringWidth(l))
	}
	th := c.Height()
	x := Margin + (ContentWidth-tw)/2
	y := Margin + ContentHeight - ContentHeight*0.05 - th

	e.pdf.SetFillColor(tint[0], tint[1], tint[2])
	e.pdf.Rect(x-captionPad, y-captionPad, tw+2*captionPad, th+2*captionPad, "F")
	e.drawCentered(c.Lines, y, c.Leading)
}

// DrawNote adds a page with text centered both ways, used for an author's
// note.
func (e *Engine) DrawNote(text string) {
	e.pdf.AddPage()
	e.pdf.SetFont(e.family, "", noteSize)
	lines := e.split(text, ContentWidth*0.9)
	th := float64(len(lines)) * noteLeading
	e.drawCentered(lines, Margin+(ContentHeight-th)/2, noteLeading)
}

// PageCount is the number of pages added so far.
func (e *Engine) PageCount() int { return e.pdf.PageCount() }

// Bytes serializes the document. Call it once, after the last page.
func (e *Engine) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := e.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Engine) drawCentered(lines []string, top, leading float64) float64 {
	y := top
	for _, l := range lines {
		e.pdf.SetXY(Margin, y)
		e.pdf.CellFormat(ContentWidth, leading, l, "", 0, "C", false, 0, "")
		y += leading
	}
	return y - top
}

func (e *Engine) placeImage(pic Picture, x, y, w, h float64) {
	e.images++
	name := fmt.Sprintf("img%d", e.images)
	opts := gofpdf.ImageOptions{ImageType: pic.Type}
	e.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(pic.Data))
	e.pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
}

func (e *Engine) drawQR(url string) {
	pic, err := QRCode(url)
	if err != nil {
		e.log.Warn("audio QR code skipped", "error", err)
		return
	}
	x := Margin + ContentWidth - qrSize
	y := Margin + ContentHeight - qrSize - 12
	e.placeImage(pic, x, y, qrSize, qrSize)
	e.pdf.LinkString(x, y, qrSize, qrSize, url)

	e.pdf.SetFont(e.family, "", 8)
	e.pdf.SetXY(x, y+qrSize+2)
	e.pdf.CellFormat(qrSize, 10, e.tr("Listen"), "", 0, "C", false, 0, url)
}

func (e *Engine) split(text string, width float64) []string {
	return e.measurer().SplitLines(text, width)
}

func (e *Engine) measurer() Measurer { return pdfMeasurer{e} }

// pdfMeasurer measures with the engine's current font.
type pdfMeasurer struct{ e *Engine }

func (m pdfMeasurer) SetFontSize(size float64) { m.e.pdf.SetFontSize(size) }

func (m pdfMeasurer) Width(line string) float64 { return m.e.pdf.GetStringWidth(line) }

func (m pdfMeasurer) SplitLines(text string, width float64) []string {
	var out []string
	for _, para := range strings.Split(strings.TrimSpace(text), "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			out = append(out, "")
			continue
		}
		if m.e.utf8 {
			out = append(out, m.e.pdf.SplitText(m.e.tr(para), width)...)
			continue
		}
		for _, l := range m.e.pdf.SplitLines([]byte(m.e.tr(para)), width) {
			out = append(out, string(l))
		}
	}
	return out
}

// QRCode renders url as an embeddable PNG.
func QRCode(url string) (Picture, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, qrPixels)
	if err != nil {
		return Picture{}, fmt.Errorf("encode QR code: %w", err)
	}
	return Normalize(png, false)
}

// basicPlane drops runes the UTF-8 font tables cannot index, such as emoji.
func basicPlane(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xFFFF {
			return -1
		}
		return r
	}, s)
}
