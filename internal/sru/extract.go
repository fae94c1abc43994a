package sru

import (
	"strings"

	"github.com/antchfx/xmlquery"
)

// IdentifierExtractor pulls the identifier out of one record entry.
// Different catalogs expose the identifier under different field
// paths, so the strategy is pluggable.
type IdentifierExtractor interface {
	// Extract returns the identifier value and whether one was found.
	Extract(record *xmlquery.Node) (string, bool)
}

// XPathExtractor looks the identifier up by an XPath expression
// evaluated relative to the record element.
type XPathExtractor struct {
	path string
}

// NewXPathExtractor builds an extractor for the given expression.
func NewXPathExtractor(path string) XPathExtractor {
	return XPathExtractor{path: path}
}

// Extract returns the trimmed inner text of the first matching node.
func (e XPathExtractor) Extract(record *xmlquery.Node) (string, bool) {
	node, err := xmlquery.Query(record, e.path)
	if err != nil || node == nil {
		return "", false
	}
	value := strings.TrimSpace(node.InnerText())
	if value == "" {
		return "", false
	}
	return value, true
}
