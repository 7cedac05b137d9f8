package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deusflow/curator/internal/news"
	"github.com/deusflow/curator/internal/scoring"
	"github.com/deusflow/curator/internal/selection"
)

// Rules is the curation rules file. Fields left out of the file keep
// their DefaultRules values.
type Rules struct {
	Topics          Topics         `yaml:"topics"`
	Region          RegionRules    `yaml:"region"`
	ExcludePatterns []string       `yaml:"exclude_patterns"`
	Sections        SectionRules   `yaml:"sections"`
	Sentiment       SentimentRules `yaml:"sentiment"`
}

type RegionRules struct {
	Keywords []string `yaml:"keywords"`
	Boost    float64  `yaml:"boost" validate:"gte=0"`
}

type HeadlineRules struct {
	Quota                    int     `yaml:"quota" validate:"gte=0"`
	GovernanceRatio          float64 `yaml:"governance_ratio" validate:"gte=0,lte=1"`
	RequiredRegionGovernment int     `yaml:"required_region_government" validate:"gte=0"`
	RequiredGovernance       int     `yaml:"required_governance" validate:"gte=0"`
	MinCount                 int     `yaml:"min_count" validate:"gte=0"`
}

type QuotaRules struct {
	Quota int `yaml:"quota" validate:"gte=0"`
}

type VerticalRules struct {
	Quota   int  `yaml:"quota" validate:"gte=0"`
	Enabled bool `yaml:"enabled"`
}

type SectionRules struct {
	Headline     HeadlineRules `yaml:"headline"`
	BrightSpot   QuotaRules    `yaml:"bright_spot"`
	Tool         QuotaRules    `yaml:"tool"`
	DeepDive     QuotaRules    `yaml:"deep_dive"`
	GrainQuality VerticalRules `yaml:"grain_quality"`
}

type SentimentRules struct {
	Positive  float64 `yaml:"positive" validate:"gte=0,lte=1"`
	Negative  float64 `yaml:"negative" validate:"gte=0,lte=1"`
	Neutral   float64 `yaml:"neutral" validate:"gte=0,lte=1"`
	Tolerance float64 `yaml:"tolerance" validate:"gte=0,lte=1"`
}

// Topics accepts either a list of topic rules or the older mapping of
// topic name to rule. Mapping entries keep their file order.
type Topics []scoring.TopicRule

func (t *Topics) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []scoring.TopicRule
		if err := node.Decode(&list); err != nil {
			return err
		}
		*t = list
		return nil
	case yaml.MappingNode:
		list := make([]scoring.TopicRule, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			var r scoring.TopicRule
			if err := val.Decode(&r); err != nil {
				return fmt.Errorf("topic %q: %w", key.Value, err)
			}
			if r.Name == "" {
				r.Name = key.Value
			}
			list = append(list, r)
		}
		*t = list
		return nil
	}
	return fmt.Errorf("line %d: topics must be a list or a mapping", node.Line)
}

func DefaultRules() Rules {
	p := selection.DefaultPolicy()
	st := selection.DefaultSentimentTargets()
	return Rules{
		Topics: Topics{
			{Name: "agi", Keywords: []string{"agi", "artificial general intelligence", "superintelligence"}, Category: "frontier", Weight: "2.0"},
			{Name: "models", Keywords: []string{"gpt", "llm", "large language model", "gemini", "claude", "foundation model"}, Category: "ai", Weight: "1.5"},
			{Name: "policy", Keywords: []string{"regulation", "legislation", "governance", "ai act", "policy"}, Category: "policy", Weight: "1.5"},
			{Name: "research", Keywords: []string{"research", "paper", "benchmark", "dataset", "study"}, Category: "research", Weight: "1.0"},
			{Name: "industry", Keywords: []string{"startup", "funding", "acquisition", "investment", "launch"}, Category: "business", Weight: "1.0"},
		},
		Region: RegionRules{
			Keywords: []string{"canada", "canadian", "toronto", "montreal", "vancouver", "ottawa", "alberta", "quebec"},
			Boost:    1.2,
		},
		ExcludePatterns: []string{"sponsored", "advertisement", "webinar registration"},
		Sections: SectionRules{
			Headline: HeadlineRules{
				Quota:                    p.Quotas[news.SectionLead],
				GovernanceRatio:          p.GovernanceRatio,
				RequiredRegionGovernment: p.RequiredRegionGovernment,
				RequiredGovernance:       p.RequiredGovernance,
				MinCount:                 p.MinLead,
			},
			BrightSpot:   QuotaRules{Quota: p.Quotas[news.SectionPositive]},
			Tool:         QuotaRules{Quota: p.Quotas[news.SectionTool]},
			DeepDive:     QuotaRules{Quota: p.Quotas[news.SectionAnalysis]},
			GrainQuality: VerticalRules{Quota: p.Quotas[news.SectionVertical], Enabled: p.VerticalEnabled},
		},
		Sentiment: SentimentRules{
			Positive:  st.Positive,
			Negative:  st.Negative,
			Neutral:   st.Neutral,
			Tolerance: st.Tolerance,
		},
	}
}

// LoadRules reads the rules file at path over DefaultRules. An empty path
// returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules file: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

func (r Rules) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}
	for i, t := range r.Topics {
		if t.Name == "" && len(t.Keywords) == 0 {
			return fmt.Errorf("invalid rules: topic %d has neither name nor keywords", i)
		}
	}
	return nil
}

func (r Rules) ScoringRules() scoring.Rules {
	return scoring.Rules{
		Topics:          append([]scoring.TopicRule(nil), r.Topics...),
		RegionKeywords:  append([]string(nil), r.Region.Keywords...),
		RegionBoost:     r.Region.Boost,
		ExcludePatterns: append([]string(nil), r.ExcludePatterns...),
	}
}

// SelectionPolicy applies the section settings to the built-in keyword lists.
func (r Rules) SelectionPolicy() selection.Policy {
	p := selection.DefaultPolicy()
	s := r.Sections
	p.Quotas = map[news.Section]int{
		news.SectionLead:     s.Headline.Quota,
		news.SectionPositive: s.BrightSpot.Quota,
		news.SectionTool:     s.Tool.Quota,
		news.SectionAnalysis: s.DeepDive.Quota,
		news.SectionVertical: s.GrainQuality.Quota,
	}
	p.GovernanceRatio = s.Headline.GovernanceRatio
	p.RequiredRegionGovernment = s.Headline.RequiredRegionGovernment
	p.RequiredGovernance = s.Headline.RequiredGovernance
	p.MinLead = s.Headline.MinCount
	p.VerticalEnabled = s.GrainQuality.Enabled
	return p
}

func (r Rules) SentimentTargets() selection.SentimentTargets {
	return selection.SentimentTargets{
		Positive:  r.Sentiment.Positive,
		Negative:  r.Sentiment.Negative,
		Neutral:   r.Sentiment.Neutral,
		Tolerance: r.Sentiment.Tolerance,
	}
}
