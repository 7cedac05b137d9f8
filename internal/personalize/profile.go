// Package personalize learns a preference profile from past selection
// records and applies it to new candidates.
package personalize

import (
	"math"
	"sort"
	"strings"

	"github.com/deusflow/curator/internal/news"
	"github.com/deusflow/curator/internal/storage"
)

const (
	TopKeywords          = 20
	TopPreferred         = 5
	AutoSuggestThreshold = 75
	MinKeywordLength     = 5

	keywordIncrement    = 0.1
	keywordBoostCap     = 1.0
	noHistoryLikelihood = 50
	unknownSource       = "Unknown"
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "with": {}, "from": {}, "this": {}, "that": {},
	"will": {}, "have": {}, "been": {}, "are": {}, "your": {}, "more": {},
	"about": {}, "into": {}, "than": {}, "just": {}, "which": {}, "some": {},
	"would": {}, "could": {}, "should": {}, "their": {}, "after": {},
	"where": {}, "what": {}, "when": {}, "these": {}, "other": {}, "very": {},
	"between": {},
}

// Aggregate holds the raw counts learned from records. It merges without
// loss, so incremental and full rebuilds agree.
type Aggregate struct {
	SourceCounts   map[string]int `json:"source_counts"`
	CategoryCounts map[string]int `json:"category_counts"`
	KeywordCounts  map[string]int `json:"keyword_counts"`
	MinScore       float64        `json:"min_score"`
	MaxScore       float64        `json:"max_score"`
	HasScores      bool           `json:"has_scores"`
	TotalSelected  int            `json:"total_selected"`
	TotalAvailable int            `json:"total_available"`
}

func NewAggregate() Aggregate {
	return Aggregate{
		SourceCounts:   map[string]int{},
		CategoryCounts: map[string]int{},
		KeywordCounts:  map[string]int{},
	}
}

func (a *Aggregate) ensure() {
	if a.SourceCounts == nil {
		a.SourceCounts = map[string]int{}
	}
	if a.CategoryCounts == nil {
		a.CategoryCounts = map[string]int{}
	}
	if a.KeywordCounts == nil {
		a.KeywordCounts = map[string]int{}
	}
}

// AddReview folds one record into the aggregate.
func (a *Aggregate) AddReview(r storage.Review) {
	a.ensure()
	available := r.TotalArticles
	if available == 0 {
		for _, items := range r.Categories {
			available += len(items)
		}
	}
	a.TotalAvailable += available

	for _, it := range r.Selected {
		a.TotalSelected++
		src := strings.TrimSpace(it.Source)
		if src == "" {
			src = unknownSource
		}
		a.SourceCounts[src]++
		cat := strings.TrimSpace(it.Category)
		if cat == "" {
			cat = storage.DefaultCategory
		}
		a.CategoryCounts[cat]++
		for _, kw := range ExtractKeywords(it.Title) {
			a.KeywordCounts[kw]++
		}
		a.addScore(it.Score)
	}
}

func (a *Aggregate) addScore(s float64) {
	if !a.HasScores {
		a.MinScore, a.MaxScore, a.HasScores = s, s, true
		return
	}
	a.MinScore = math.Min(a.MinScore, s)
	a.MaxScore = math.Max(a.MaxScore, s)
}

// Merge adds b into a.
func (a *Aggregate) Merge(b Aggregate) {
	a.ensure()
	for k, v := range b.SourceCounts {
		a.SourceCounts[k] += v
	}
	for k, v := range b.CategoryCounts {
		a.CategoryCounts[k] += v
	}
	for k, v := range b.KeywordCounts {
		a.KeywordCounts[k] += v
	}
	if b.HasScores {
		a.addScore(b.MinScore)
		a.addScore(b.MaxScore)
	}
	a.TotalSelected += b.TotalSelected
	a.TotalAvailable += b.TotalAvailable
}

// Profile is derived from an Aggregate and never stored by itself.
type Profile struct {
	SourcePreferences   map[string]float64 `json:"source_preferences"`
	CategoryPreferences map[string]float64 `json:"category_preferences"`
	KeywordPreferences  map[string]int     `json:"keyword_preferences"`
	PreferredSources    []string           `json:"preferred_sources"`
	PreferredCategories []string           `json:"preferred_categories"`
	TopKeywords         []string           `json:"top_keywords"`
	ScoreThreshold      float64            `json:"score_threshold"`
	ScoreMin            float64            `json:"score_min"`
	ScoreMax            float64            `json:"score_max"`
	TotalSelections     int                `json:"total_selections"`
	TotalAvailable      int                `json:"total_available"`
	SelectionRate       float64            `json:"selection_rate"`
}

// BuildProfile turns counts into multiplicative boosts of 1 + count/max.
func BuildProfile(a Aggregate) Profile {
	a.ensure()
	p := Profile{
		SourcePreferences:   boosts(a.SourceCounts),
		CategoryPreferences: boosts(a.CategoryCounts),
		KeywordPreferences:  map[string]int{},
		PreferredSources:    topN(a.SourceCounts, TopPreferred),
		PreferredCategories: topN(a.CategoryCounts, TopPreferred),
		TopKeywords:         topN(a.KeywordCounts, TopKeywords),
		TotalSelections:     a.TotalSelected,
		TotalAvailable:      a.TotalAvailable,
	}
	for _, kw := range p.TopKeywords {
		p.KeywordPreferences[kw] = a.KeywordCounts[kw]
	}
	if a.HasScores {
		p.ScoreMin, p.ScoreMax, p.ScoreThreshold = a.MinScore, a.MaxScore, a.MinScore
	}
	if a.TotalAvailable > 0 {
		p.SelectionRate = float64(a.TotalSelected) / float64(a.TotalAvailable)
	}
	return p
}

func boosts(counts map[string]int) map[string]float64 {
	out := make(map[string]float64, len(counts))
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	if max == 0 {
		return out
	}
	for k, c := range counts {
		out[k] = 1 + float64(c)/float64(max)
	}
	return out
}

// topN orders by count desc then key asc.
func topN(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// ExtractKeywords keeps lower-cased title words longer than four characters
// that are not stop words. Duplicates within a title count once.
func ExtractKeywords(title string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(title)) {
		w = strings.Trim(w, ".,!?;:\"'()[]")
		if len(w) < MinKeywordLength {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// Boost adds source, category and keyword adjustments on top of the
// item's score. With an empty profile the score is unchanged.
func Boost(it news.Item, p Profile) float64 {
	base := it.Score
	boosted := base
	if m, ok := p.SourcePreferences[it.Source]; ok {
		boosted += (m - 1) * base
	}
	if m, ok := p.CategoryPreferences[it.Category]; ok {
		boosted += (m - 1) * base
	}
	kw := 0.0
	for _, w := range ExtractKeywords(it.Title) {
		if _, ok := p.KeywordPreferences[w]; ok {
			kw += keywordIncrement
		}
	}
	boosted += math.Min(kw, keywordBoostCap)
	return math.Round(boosted*100) / 100
}

// PredictLikelihood estimates 0-100 how likely the curator is to pick it.
func PredictLikelihood(it news.Item, p Profile) int {
	if p.TotalSelections == 0 {
		return noHistoryLikelihood
	}

	var norm float64
	switch {
	case p.ScoreMax > p.ScoreMin:
		norm = (it.Score - p.ScoreMin) / (p.ScoreMax - p.ScoreMin)
	case it.Score >= p.ScoreMin:
		norm = 1
	case p.ScoreMin > 0:
		norm = it.Score / p.ScoreMin
	}
	norm = math.Min(math.Max(norm, 0), 1)
	likelihood := norm * 80

	if contains(p.PreferredSources, it.Source) {
		likelihood += 10
	}
	if contains(p.PreferredCategories, it.Category) {
		likelihood += 10
	}
	kw := 0.0
	for _, w := range ExtractKeywords(it.Title) {
		if _, ok := p.KeywordPreferences[w]; ok {
			kw += 2
		}
	}
	likelihood += math.Min(kw, 10)

	return int(math.Round(math.Min(math.Max(likelihood, 0), 100)))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
