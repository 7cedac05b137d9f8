package selection

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/deusflow/curator/internal/news"
)

// Deviation is a sentiment share outside its target band.
type Deviation struct {
	Sentiment news.Sentiment
	Observed  float64
	Target    float64
}

// SentimentReport summarizes the tone of a selection.
type SentimentReport struct {
	Total      int
	Counts     map[news.Sentiment]int
	Fractions  map[news.Sentiment]float64
	Deviations []Deviation
}

// Balanced is true when every targeted share is within tolerance.
func (r SentimentReport) Balanced() bool {
	return len(r.Deviations) == 0
}

// Audit compares the observed sentiment mix with targets. It only reports;
// nothing is removed from the selection.
func Audit(sel Selection, targets SentimentTargets, log *slog.Logger) SentimentReport {
	if log == nil {
		log = slog.Default()
	}
	r := SentimentReport{
		Counts:    make(map[news.Sentiment]int, 4),
		Fractions: make(map[news.Sentiment]float64, 4),
	}
	for _, it := range sel.All() {
		s, ok := news.ParseSentiment(string(it.Sentiment))
		if !ok {
			s = news.SentimentNeutral
		}
		r.Counts[s]++
		r.Total++
	}
	if r.Total == 0 {
		return r
	}
	for s, n := range r.Counts {
		r.Fractions[s] = float64(n) / float64(r.Total)
	}

	for _, t := range []struct {
		s      news.Sentiment
		target float64
	}{
		{news.SentimentPositive, targets.Positive},
		{news.SentimentNegative, targets.Negative},
		{news.SentimentNeutral, targets.Neutral},
	} {
		observed := r.Fractions[t.s]
		if math.Abs(observed-t.target) > targets.Tolerance+1e-9 {
			r.Deviations = append(r.Deviations, Deviation{Sentiment: t.s, Observed: observed, Target: t.target})
			log.Warn("sentiment share outside target",
				"sentiment", t.s,
				"observed", fmt.Sprintf("%.0f%%", observed*100),
				"target", fmt.Sprintf("%.0f%%", t.target*100),
			)
		}
	}
	return r
}
