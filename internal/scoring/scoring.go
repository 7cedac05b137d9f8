// Package scoring ranks candidate items by topic relevance, region boost,
// recency and source priority.
package scoring

import (
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/deusflow/curator/internal/news"
)

const (
	// ScoreFloor keeps items with no topic match rankable.
	ScoreFloor = 1.0
	// MaxRegionHits caps how many region keyword hits count toward the boost.
	MaxRegionHits = 3
	// UnknownRecency applies when an item has no publication time.
	UnknownRecency = 0.5
)

// TopicRule is a topic as written in the rules file. Weight stays the raw
// scalar so that malformed values can be coerced with a warning.
type TopicRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Category string   `yaml:"category"`
	Weight   string   `yaml:"weight"`
}

// Topic is a normalized TopicRule.
type Topic struct {
	Name     string
	Keywords []string
	Category string
	Weight   float64
}

// Rules configure an Engine.
type Rules struct {
	Topics          []TopicRule
	RegionKeywords  []string
	RegionBoost     float64
	ExcludePatterns []string
}

// Breakdown records every factor that went into an item's score.
type Breakdown struct {
	Topic      float64
	Category   string
	RegionHits int
	Region     float64
	Recency    float64
	Priority   float64
	Final      float64
}

// Engine scores batches of items. It is safe for concurrent reads once built.
type Engine struct {
	topics      []Topic
	region      []string
	regionBoost float64
	exclude     []string
	now         func() time.Time
	log         *slog.Logger
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine normalizes rules once for the batch. The caller's rules are
// not modified.
func NewEngine(rules Rules, opts ...Option) *Engine {
	e := &Engine{now: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.topics = NormalizeTopics(rules.Topics, e.log)
	e.region = news.LowerAll(rules.RegionKeywords)
	e.exclude = news.LowerAll(rules.ExcludePatterns)
	e.regionBoost = rules.RegionBoost
	if e.regionBoost <= 0 || math.IsNaN(e.regionBoost) || math.IsInf(e.regionBoost, 0) {
		e.regionBoost = 1.0
	}
	return e
}

// Topics returns the normalized topics in rule order.
func (e *Engine) Topics() []Topic {
	return append([]Topic(nil), e.topics...)
}

// NormalizeTopics lower-cases keywords and parses weights into a fresh
// slice. A weight that is not a finite non-negative number becomes 1.0.
func NormalizeTopics(rules []TopicRule, log *slog.Logger) []Topic {
	if log == nil {
		log = slog.Default()
	}
	out := make([]Topic, 0, len(rules))
	for _, r := range rules {
		out = append(out, Topic{
			Name:     strings.TrimSpace(r.Name),
			Keywords: news.LowerAll(r.Keywords),
			Category: strings.TrimSpace(r.Category),
			Weight:   parseWeight(r.Name, r.Weight, log),
		})
	}
	return out
}

func parseWeight(topic, raw string, log *slog.Logger) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1.0
	}
	w, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		log.Warn("invalid topic weight, using 1.0", "topic", topic, "weight", raw)
		return 1.0
	}
	return w
}

// TopicScore returns the best topic's hits times weight. Ties keep the
// first rule in configuration order.
func (e *Engine) TopicScore(text string) (float64, string) {
	best, category := 0.0, ""
	for _, t := range e.topics {
		hits := news.CountMatches(text, t.Keywords)
		if hits == 0 {
			continue
		}
		if s := float64(hits) * t.Weight; s > best {
			best, category = s, t.Category
		}
	}
	return best, category
}

// RegionMultiplier is boost times the number of distinct region hits,
// capped at MaxRegionHits, and never below 1.0.
func (e *Engine) RegionMultiplier(text string) (float64, int) {
	hits := news.CountMatches(text, e.region)
	if hits == 0 {
		return 1.0, 0
	}
	mult := e.regionBoost * float64(min(hits, MaxRegionHits))
	return math.Max(mult, 1.0), hits
}

// RecencyMultiplier maps item age in whole days to a decay step.
func RecencyMultiplier(published, now time.Time) float64 {
	if published.IsZero() {
		return UnknownRecency
	}
	days := int(math.Floor(now.Sub(published).Hours() / 24))
	switch {
	case days <= 1:
		return 1.0
	case days <= 3:
		return 0.8
	case days <= 5:
		return 0.6
	case days <= 7:
		return 0.4
	default:
		return 0.2
	}
}

// PriorityMultiplier never fails; unknown priorities score as medium.
func (e *Engine) PriorityMultiplier(p news.Priority) float64 {
	switch news.Priority(strings.ToLower(string(p))) {
	case news.PriorityHigh:
		return 1.5
	case news.PriorityLow:
		return 0.5
	case news.PriorityMedium:
		return 1.0
	}
	e.log.Warn("unknown priority, treating as medium", "priority", string(p))
	return 1.0
}

// Excluded reports whether any exclude pattern occurs in title or summary.
func (e *Engine) Excluded(it news.Item) bool {
	text := it.Text()
	for _, p := range e.exclude {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Score computes the full breakdown for one item.
func (e *Engine) Score(it news.Item) Breakdown {
	text := it.Text()
	b := Breakdown{}
	b.Topic, b.Category = e.TopicScore(text)
	b.Region, b.RegionHits = e.RegionMultiplier(text)
	b.Recency = RecencyMultiplier(it.Published, e.now())
	b.Priority = e.PriorityMultiplier(it.Priority)
	b.Final = round2(math.Max(b.Topic, ScoreFloor) * b.Region * b.Recency * b.Priority)
	return b
}

// ScoreAll drops excluded items, scores the rest and returns them sorted by
// score, highest first. Equal scores keep their input order.
func (e *Engine) ScoreAll(items []news.Item) []news.Item {
	out := make([]news.Item, 0, len(items))
	excluded := 0
	for _, it := range items {
		if e.Excluded(it) {
			excluded++
			e.log.Debug("item excluded", "title", it.Title)
			continue
		}
		b := e.Score(it)
		it.Score = b.Final
		it.BaseScore = b.Final
		it.RegionRelevant = b.RegionHits > 0
		if b.Category != "" {
			it.Category = b.Category
		}
		out = append(out, it)
	}
	SortByScore(out)
	e.log.Info("items scored", "scored", len(out), "excluded", excluded)
	return out
}

// SortByScore is a stable descending sort on Score.
func SortByScore(items []news.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
