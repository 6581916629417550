package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Summary describes a rendered storybook.
type Summary struct {
	Pages int      `json:"pages"`
	Text  []string `json:"text"`
}

// Inspect extracts the plain text of every page. Pages whose text cannot
// be read come back empty.
func Inspect(data []byte) (*Summary, error) {
	pages, err := PageCount(data)
	if err != nil {
		return nil, err
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("could not read PDF: %w", err)
	}

	s := &Summary{Pages: pages, Text: make([]string, 0, r.NumPage())}
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			s.Text = append(s.Text, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			s.Text = append(s.Text, "")
			continue
		}
		s.Text = append(s.Text, strings.TrimSpace(text))
	}
	return s, nil
}
