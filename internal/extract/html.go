package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// isHTML sniffs whether the document is an HTML report export
func isHTML(text string) bool {
	head := strings.ToLower(strings.TrimSpace(text))
	if len(head) > 256 {
		head = head[:256]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html") ||
		strings.Contains(head, "<html")
}

// htmlToText renders an HTML report to plain text: block elements become
// lines so headings still match, script/style content is dropped. HTML
// reports carry no page structure and extract as page 1.
func htmlToText(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, iframe").Remove()

	var b strings.Builder
	doc.Find("h1, h2, h3, h4, p, li, td, div").Each(func(_ int, s *goquery.Selection) {
		// only leaf-ish nodes; nested containers would duplicate text
		if s.Children().Filter("h1, h2, h3, h4, p, li, td, div").Length() > 0 {
			return
		}
		line := strings.TrimSpace(s.Text())
		if line != "" {
			b.WriteString(line)
			b.WriteString("\n")
		}
	})

	if b.Len() == 0 {
		// no block structure at all: fall back to the document text
		return strings.TrimSpace(doc.Text()), nil
	}
	return b.String(), nil
}
