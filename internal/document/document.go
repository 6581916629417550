package document

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/apresai/storybook/internal/layout"
)

// ErrFontRequired is returned when a book has text that core Helvetica
// cannot draw and no UTF-8 font is configured.
var ErrFontRequired = errors.New("text needs a UTF-8 font")

// cp1252Extras are the characters Windows-1252 places in 0x80-0x9F, the
// only ones above Latin-1 that the core fonts can render.
const cp1252Extras = "\u20ac\u201a\u0192\u201e\u2026\u2020\u2021\u02c6\u2030\u0160\u2039\u0152\u017d" +
	"\u2018\u2019\u201c\u201d\u2022\u2013\u2014\u02dc\u2122\u0161\u203a\u0153\u017e\u0178"

// NeedsUnicodeFont reports whether any of texts has a character outside
// Windows-1252.
func NeedsUnicodeFont(texts ...string) bool {
	for _, text := range texts {
		for _, r := range text {
			if r < 0x100 || strings.ContainsRune(cp1252Extras, r) {
				continue
			}
			return true
		}
	}
	return false
}

// Book is everything that goes into one storybook PDF. Images and Scenes
// are matched by index and may differ in length.
type Book struct {
	Title    string
	Author   string
	Cover    []byte
	Scenes   []string
	Images   [][]byte
	AudioURL string
	Note     string
}

// Options controls rendering.
type Options struct {
	FontPath string
	Compress bool
	Logger   *slog.Logger
}

// Spreads is the number of scene pages: one per index of the longer list.
func (b Book) Spreads() int {
	return max(len(b.Images), len(b.Scenes))
}

// Pages is the page count Assemble produces for b.
func (b Book) Pages() int {
	n := 1 + b.Spreads()
	if strings.TrimSpace(b.Note) != "" {
		n++
	}
	return n
}

// Assemble renders the cover, one spread per scene index and an optional
// note page, serializes the document once and checks the page count of the
// result. Without Options.FontPath it refuses text NeedsUnicodeFont flags.
func Assemble(b Book, opts Options) ([]byte, error) {
	if opts.FontPath == "" && NeedsUnicodeFont(append([]string{b.Title, b.Author, b.Note}, b.Scenes...)...) {
		return nil, fmt.Errorf("%q: %w", b.Title, ErrFontRequired)
	}
	e, err := layout.NewEngine(layout.Options{
		FontPath: opts.FontPath,
		Compress: opts.Compress,
		Logger:   opts.Logger,
		Title:    b.Title,
		Author:   b.Author,
	})
	if err != nil {
		return nil, err
	}

	e.DrawCover(b.Title, b.Author, b.Cover, b.AudioURL)
	for i := 0; i < b.Spreads(); i++ {
		var img []byte
		if i < len(b.Images) {
			img = b.Images[i]
		}
		var text string
		if i < len(b.Scenes) {
			text = b.Scenes[i]
		}
		e.DrawSpread(img, text)
	}
	if strings.TrimSpace(b.Note) != "" {
		e.DrawNote(b.Note)
	}

	data, err := e.Bytes()
	if err != nil {
		return nil, err
	}
	got, err := PageCount(data)
	if err != nil {
		return nil, fmt.Errorf("verify pdf: %w", err)
	}
	if want := b.Pages(); got != want {
		return nil, fmt.Errorf("pdf has %d pages, want %d", got, want)
	}
	return data, nil
}

// PageCount reads the page count of a PDF.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}
