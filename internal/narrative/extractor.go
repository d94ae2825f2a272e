// Package narrative cleans up student-submitted narrative text before it
// is sent to the reviewer model.
package narrative

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// ExtractText converts pasted HTML (for example from a word processor or
// an uploaded page) into plain text. Input without markup is returned
// unchanged apart from whitespace normalization.
func ExtractText(input string) (string, error) {
	input = strings.TrimSpace(input)
	if !strings.Contains(input, "<") {
		return collapse(input), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		return "", fmt.Errorf("failed to parse narrative HTML: %w", err)
	}

	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, footer, iframe").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	return collapse(doc.Find("body").Text()), nil
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
