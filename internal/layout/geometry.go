package layout

import "math"

// Page geometry in points: landscape US letter with half-inch margins.
const (
	PageWidth  = 792.0
	PageHeight = 612.0
	Margin     = 36.0

	ContentWidth  = PageWidth - 2*Margin
	ContentHeight = PageHeight - 2*Margin

	// ImageShare is the fraction of the content height given to the
	// illustration on a spread; the caption gets the rest.
	ImageShare = 0.78
)

// Caption font bounds and line spacing.
const (
	CaptionMaxSize = 18.0
	CaptionMinSize = 8.0
	LeadingRatio   = 1.2
)

// FitScale returns the factor that fits an imgW x imgH image inside a
// boxW x boxH box without ever enlarging it. A non-positive image
// dimension yields 0.
func FitScale(imgW, imgH, boxW, boxH float64) float64 {
	if imgW <= 0 || imgH <= 0 || boxW <= 0 || boxH <= 0 {
		return 0
	}
	return math.Min(math.Min(boxW/imgW, boxH/imgH), 1.0)
}

// Measurer wraps text at a font size.
type Measurer interface {
	SetFontSize(size float64)
	// SplitLines wraps text to width, honoring explicit newlines. The
	// returned lines are ready to draw.
	SplitLines(text string, width float64) []string
	// Width is the rendered width of one line at the current size.
	Width(line string) float64
}

// Caption is the result of fitting text into a box.
type Caption struct {
	Size     float64
	Leading  float64
	Lines    []string
	Overflow bool
}

// Height is the total height of the wrapped lines.
func (c Caption) Height() float64 {
	return float64(len(c.Lines)) * c.Leading
}

// FitCaption picks the largest whole font size between maxSize and minSize
// whose wrapped text fits boxH. When nothing fits, minSize is used and the
// caption is flagged as overflowing.
func FitCaption(m Measurer, text string, boxW, boxH, maxSize, minSize float64) Caption {
	for size := maxSize; size >= minSize; size-- {
		m.SetFontSize(size)
		c := Caption{Size: size, Leading: size * LeadingRatio, Lines: m.SplitLines(text, boxW)}
		if c.Height() <= boxH {
			return c
		}
	}
	m.SetFontSize(minSize)
	return Caption{
		Size:     minSize,
		Leading:  minSize * LeadingRatio,
		Lines:    m.SplitLines(text, boxW),
		Overflow: true,
	}
}
