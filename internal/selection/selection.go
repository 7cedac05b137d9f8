// Package selection picks the final items per newsletter section under hard
// quotas and soft composition rules.
package selection

import (
	"log/slog"
	"math"
	"sort"

	"github.com/deusflow/curator/internal/news"
)

// Selection maps a section to its chosen items in rank order.
type Selection map[news.Section][]news.Item

// Total counts selected items across sections.
func (s Selection) Total() int {
	n := 0
	for _, items := range s {
		n += len(items)
	}
	return n
}

// All returns selected items in newsletter section order.
func (s Selection) All() []news.Item {
	var out []news.Item
	for _, sec := range news.Sections {
		out = append(out, s[sec]...)
	}
	return out
}

// leadCandidate keeps an item's rank inside the lead pool.
type leadCandidate struct {
	rank int
	item news.Item
}

// Select is deterministic for a given input. Items must already be ranked
// within each section; the lead pool also takes unlabeled items.
func Select(classified map[news.Section][]news.Item, p Policy, log *slog.Logger) Selection {
	if log == nil {
		log = slog.Default()
	}
	out := make(Selection, len(news.Sections))
	for _, s := range news.Sections {
		out[s] = []news.Item{}
	}

	var lead []news.Item
	lead = append(lead, classified[news.SectionLead]...)
	lead = append(lead, classified[news.SectionUncategorized]...)
	var unknown []news.Section
	for sec := range classified {
		if !sec.Valid() {
			unknown = append(unknown, sec)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	for _, sec := range unknown {
		lead = append(lead, classified[sec]...)
	}
	out[news.SectionLead] = selectLead(lead, p, log)

	for _, sec := range []news.Section{news.SectionPositive, news.SectionTool, news.SectionAnalysis, news.SectionVertical} {
		if sec == news.SectionVertical && !p.VerticalEnabled {
			continue
		}
		items := classified[sec]
		if q := p.quota(sec); len(items) > q {
			items = items[:q]
		}
		out[sec] = append([]news.Item{}, items...)
	}

	log.Info("selection complete",
		"headline", len(out[news.SectionLead]),
		"bright_spot", len(out[news.SectionPositive]),
		"tool", len(out[news.SectionTool]),
		"deep_dive", len(out[news.SectionAnalysis]),
		"grain_quality", len(out[news.SectionVertical]),
		"total", out.Total(),
	)
	return out
}

func selectLead(pool []news.Item, p Policy, log *slog.Logger) []news.Item {
	quota := p.quota(news.SectionLead)
	if quota == 0 || len(pool) == 0 {
		return []news.Item{}
	}

	picked := make([]leadCandidate, 0, quota)
	used := make(map[int]bool, quota)
	take := func(i int) {
		picked = append(picked, leadCandidate{rank: i, item: pool[i]})
		used[i] = true
	}

	if p.RequiredRegionGovernment > 0 {
		found := false
		for i, it := range pool {
			if len(picked) >= quota || len(picked) >= p.RequiredRegionGovernment {
				break
			}
			if p.IsRegionGovernment(it) {
				take(i)
				found = true
			}
		}
		if !found {
			log.Warn("no region government story among lead candidates")
		}
	}

	if p.RequiredGovernance > 0 && len(picked) < quota {
		need := p.RequiredGovernance
		for i, it := range pool {
			if need == 0 || len(picked) >= quota {
				break
			}
			if !used[i] && p.IsGovernance(it) {
				take(i)
				need--
			}
		}
		if need == p.RequiredGovernance {
			log.Warn("no governance story among lead candidates beyond mandatory picks")
		}
	}

	var gov, other []int
	for i, it := range pool {
		if used[i] {
			continue
		}
		if p.IsGovernance(it) {
			gov = append(gov, i)
		} else {
			other = append(other, i)
		}
	}

	remaining := quota - len(picked)
	ratio := math.Min(math.Max(p.GovernanceRatio, 0), 1)
	targetGov := int(math.Floor(float64(remaining) * ratio))

	g := min(targetGov, len(gov))
	for _, i := range gov[:g] {
		take(i)
	}
	gov = gov[g:]

	o := min(remaining-g, len(other))
	for _, i := range other[:o] {
		take(i)
	}
	// Backfill when the non-governance pool ran short.
	for _, i := range gov {
		if len(picked) >= quota {
			break
		}
		take(i)
	}

	sort.SliceStable(picked, func(a, b int) bool { return picked[a].rank < picked[b].rank })
	out := make([]news.Item, len(picked))
	for i, c := range picked {
		out[i] = c.item
	}
	return out
}
