package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// isPDF sniffs the PDF magic header
func isPDF(raw []byte) bool {
	return bytes.HasPrefix(raw, []byte("%PDF-"))
}

// pdfToPages extracts per-page text from a PDF report. Glyph runs are
// regrouped into lines on baseline changes so headings keep their own
// line for section matching. The underlying parser panics on some
// damaged files; that is converted to an error here.
func pdfToPages(raw []byte) (pages []page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf parse: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, err
	}

	for num := 1; num <= reader.NumPage(); num++ {
		pg := reader.Page(num)
		if pg.V.IsNull() {
			continue
		}
		var b strings.Builder
		lastY := 0.0
		for i, t := range pg.Content().Text {
			if i > 0 && t.Y != lastY {
				b.WriteByte('\n')
			}
			b.WriteString(t.S)
			lastY = t.Y
		}
		pages = append(pages, page{number: num, text: b.String()})
	}
	return pages, nil
}
