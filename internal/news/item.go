// Package news holds the candidate item model shared by every pipeline stage.
package news

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// Priority is the source priority declared in the feed configuration.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Section is the newsletter section an item is bucketed into.
type Section string

const (
	SectionLead          Section = "headline"
	SectionPositive      Section = "bright_spot"
	SectionTool          Section = "tool"
	SectionAnalysis      Section = "deep_dive"
	SectionVertical      Section = "grain_quality"
	SectionUncategorized Section = "uncategorized"
)

// Sections lists every section in newsletter order.
var Sections = []Section{
	SectionLead,
	SectionPositive,
	SectionTool,
	SectionAnalysis,
	SectionVertical,
	SectionUncategorized,
}

// Valid reports whether s is one of the known section labels.
func (s Section) Valid() bool {
	for _, known := range Sections {
		if s == known {
			return true
		}
	}
	return false
}

// Sentiment is the tone label attached during classification.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// ParseSentiment maps a free-form label to a known sentiment.
func ParseSentiment(label string) (Sentiment, bool) {
	switch s := Sentiment(strings.ToLower(strings.TrimSpace(label))); s {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return s, true
	}
	return SentimentNeutral, false
}

const (
	UntitledTitle = "(untitled)"
	UnknownSource = "(unknown source)"
	urnPrefix     = "urn:curator:item:"
)

// Item is a single candidate article. URL is its identity.
type Item struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	Summary   string    `json:"summary"`
	Published time.Time `json:"published,omitempty"`
	Category  string    `json:"category,omitempty"`
	Priority  Priority  `json:"priority,omitempty"`

	Section        Section   `json:"section,omitempty"`
	Sentiment      Sentiment `json:"sentiment,omitempty"`
	Score          float64   `json:"score"`
	BaseScore      float64   `json:"base_score"`
	Likelihood     int       `json:"likelihood,omitempty"`
	RegionRelevant bool      `json:"region_relevant,omitempty"`
}

// NewItem builds an Item and repairs missing identity fields with sentinels.
func NewItem(url, title, source, summary string, published time.Time, priority Priority, category string) Item {
	it := Item{
		URL:       strings.TrimSpace(url),
		Title:     strings.TrimSpace(title),
		Source:    strings.TrimSpace(source),
		Summary:   strings.TrimSpace(summary),
		Published: published,
		Priority:  priority,
		Category:  strings.TrimSpace(category),
	}
	it.Repair()
	return it
}

// Repair fills empty title, source and URL. Items decoded from cache or
// records go through here too.
func (it *Item) Repair() {
	if it.Title == "" {
		it.Title = UntitledTitle
	}
	if it.Source == "" {
		it.Source = UnknownSource
	}
	if it.URL == "" {
		it.URL = urnPrefix + itemKey(it.Title, it.Source, it.Summary)
	}
}

// Text is the lower-cased title and summary used by keyword rules.
func (it Item) Text() string {
	return strings.ToLower(it.Title + " " + it.Summary)
}

// itemKey generates a hash key from title, source and summary
func itemKey(title, source, summary string) string {
	h := sha1.New()
	h.Write([]byte(strings.ToLower(title + "|" + source + "|" + summary)))
	return hex.EncodeToString(h.Sum(nil))
}

// Dedup keeps the first item seen for every URL; order is preserved.
func Dedup(items []Item) ([]Item, int) {
	seen := make(map[string]struct{}, len(items))
	kept := make([]Item, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.URL]; ok {
			continue
		}
		seen[it.URL] = struct{}{}
		kept = append(kept, it)
	}
	return kept, len(items) - len(kept)
}
