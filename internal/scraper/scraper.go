// Package scraper turns feed HTML fragments into plain text.
package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// junkPhrases are feed boilerplate that carries no content.
var junkPhrases = []string{
	"continue reading",
	"read more",
	"read the full story",
	"click here to",
	"subscribe to our newsletter",
	"follow us on",
}

var appearedFirst = regexp.MustCompile(`(?i)the post .{0,300}? appeared first on .*$`)

// PlainText strips tags, scripts and boilerplate and collapses whitespace.
// Input that is not HTML passes through with whitespace normalized.
func PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	text := html
	if strings.ContainsAny(html, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err == nil {
			doc.Find("script, style, noscript, iframe, figure figcaption").Remove()
			// Keep paragraph breaks as word boundaries.
			doc.Find("p, br, li, div, h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
				s.AppendHtml(" ")
			})
			text = doc.Text()
		}
	}

	text = appearedFirst.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")
	lower := strings.ToLower(text)
	for _, phrase := range junkPhrases {
		if len(lower) != len(text) {
			break
		}
		if idx := strings.LastIndex(lower, phrase); idx >= 0 && idx > len(lower)/2 {
			text = strings.TrimSpace(text[:idx])
			lower = lower[:idx]
		}
	}
	return strings.TrimRight(text, " .…[]")
}

// Truncate cuts s to at most n runes on a word boundary.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	cut := string(r[:n])
	if idx := strings.LastIndex(cut, " "); idx > n/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "…"
}
