package selection

import "github.com/deusflow/curator/internal/news"

// Policy controls section quotas and the lead-story composition rules.
type Policy struct {
	Quotas                   map[news.Section]int
	GovernanceRatio          float64
	RequiredRegionGovernment int
	RequiredGovernance       int
	MinLead                  int
	VerticalEnabled          bool

	GovernanceKeywords       []string
	RegionGovernmentKeywords []string
	GovernmentKeywords       []string
}

// DefaultPolicy mirrors the newsletter layout: eight lead stories, two
// positive highlights, one tool, four analysis pieces.
func DefaultPolicy() Policy {
	return Policy{
		Quotas: map[news.Section]int{
			news.SectionLead:     8,
			news.SectionPositive: 2,
			news.SectionTool:     1,
			news.SectionAnalysis: 4,
			news.SectionVertical: 2,
		},
		GovernanceRatio:          0.6,
		RequiredRegionGovernment: 1,
		RequiredGovernance:       1,
		MinLead:                  6,
		VerticalEnabled:          true,
		GovernanceKeywords: []string{
			"regulation", "regulatory", "legislation", "law", "compliance",
			"governance", "policy", "ethics", "safety", "alignment",
			"responsible ai", "oversight", "audit", "transparency",
			"accountability", "bill", "act", "framework",
		},
		RegionGovernmentKeywords: []string{
			"government of canada", "canadian government", "innovation canada",
			"canadian digital", "canadian ai", "ised canada", "treasury board",
			"algorithmic impact assessment", "algorithm impact assessment",
			"statscan", "statistics canada", "province of", "provincial government",
		},
		GovernmentKeywords: []string{
			"government", "federal", "parliament", "minister", "ministry",
			"department of", "senate", "provincial",
		},
	}
}

// SentimentTargets are the desired shares of each sentiment in a selection.
type SentimentTargets struct {
	Positive  float64
	Negative  float64
	Neutral   float64
	Tolerance float64
}

func DefaultSentimentTargets() SentimentTargets {
	return SentimentTargets{Positive: 0.35, Negative: 0.40, Neutral: 0.25, Tolerance: 0.10}
}

// IsGovernance reports whether an item is about regulation or oversight.
func (p Policy) IsGovernance(it news.Item) bool {
	return news.ContainsAny(it.Text(), p.GovernanceKeywords)
}

// IsRegionGovernment reports whether an item is a government story from
// the boosted region.
func (p Policy) IsRegionGovernment(it news.Item) bool {
	text := it.Text() + " " + it.Source
	if news.ContainsAny(text, p.RegionGovernmentKeywords) {
		return true
	}
	return it.RegionRelevant && news.ContainsAny(text, p.GovernmentKeywords)
}

func (p Policy) quota(s news.Section) int {
	if q, ok := p.Quotas[s]; ok && q > 0 {
		return q
	}
	return 0
}
