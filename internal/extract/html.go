// Package extract reduces raw markup to plain text.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLExtractor strips markup via goquery and normalizes whitespace.
type HTMLExtractor struct{}

// NewHTMLExtractor returns a markup-stripping extractor.
func NewHTMLExtractor() HTMLExtractor {
	return HTMLExtractor{}
}

// Text returns the visible text of the document. Script, style, and
// noscript subtrees are removed before extraction.
func (HTMLExtractor) Text(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse markup: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	return normalize(root.Text()), nil
}

// normalize collapses runs of whitespace into single spaces while
// keeping line breaks between blocks.
func normalize(raw string) string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
