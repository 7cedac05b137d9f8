package personalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/deusflow/curator/internal/news"
)

// Recommend ranks copies of items by predicted likelihood. n <= 0 keeps all.
func Recommend(items []news.Item, p Profile, n int) []news.Item {
	out := make([]news.Item, len(items))
	for i, it := range items {
		it.Likelihood = PredictLikelihood(it, p)
		out[i] = it
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Likelihood > out[j].Likelihood })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// AutoSuggest returns items at or above threshold. Without history there
// is nothing to suggest.
func AutoSuggest(items []news.Item, p Profile, threshold int) []news.Item {
	if p.TotalSelections == 0 {
		return nil
	}
	var out []news.Item
	for _, it := range Recommend(items, p, 0) {
		if it.Likelihood >= threshold {
			out = append(out, it)
		}
	}
	return out
}

// Summary renders the profile for the terminal.
func Summary(p Profile) string {
	if p.TotalSelections == 0 {
		return "No selection history yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Learned from %d selections out of %d candidates (%.1f%%)\n",
		p.TotalSelections, p.TotalAvailable, p.SelectionRate*100)
	fmt.Fprintf(&b, "Score range of picks: %.2f - %.2f\n", p.ScoreMin, p.ScoreMax)

	b.WriteString("Preferred sources:")
	for _, s := range p.PreferredSources {
		fmt.Fprintf(&b, " %s (%.2f)", s, p.SourcePreferences[s])
	}
	b.WriteString("\nPreferred categories:")
	for _, c := range p.PreferredCategories {
		fmt.Fprintf(&b, " %s (%.2f)", c, p.CategoryPreferences[c])
	}
	b.WriteString("\nTop keywords:")
	for i, k := range p.TopKeywords {
		if i == 10 {
			break
		}
		fmt.Fprintf(&b, " %s (%d)", k, p.KeywordPreferences[k])
	}
	b.WriteString("\n")
	return b.String()
}
