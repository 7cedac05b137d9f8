package selection

import (
	"fmt"
	"log/slog"

	"github.com/deusflow/curator/internal/news"
)

// ValidationReport lists problems found in a selection. Valid is false only
// when the lead section is below its minimum size.
type ValidationReport struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems"`
}

// Validate checks a selection against the policy. The result is advisory.
func Validate(sel Selection, p Policy, log *slog.Logger) ValidationReport {
	if log == nil {
		log = slog.Default()
	}
	r := ValidationReport{Valid: true}
	lead := sel[news.SectionLead]

	if len(lead) < p.MinLead {
		r.Valid = false
		r.Problems = append(r.Problems, fmt.Sprintf("only %d lead stories, want at least %d", len(lead), p.MinLead))
	}

	regionGov, gov := 0, 0
	for _, it := range lead {
		if p.IsRegionGovernment(it) {
			regionGov++
		}
		if p.IsGovernance(it) {
			gov++
		}
	}
	if regionGov < p.RequiredRegionGovernment {
		r.Problems = append(r.Problems, "missing region government story")
	}
	if gov < p.RequiredGovernance {
		r.Problems = append(r.Problems, "missing governance story")
	}

	for _, problem := range r.Problems {
		log.Warn("selection issue", "problem", problem)
	}
	return r
}
