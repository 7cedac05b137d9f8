// Package classify assigns every scored item to exactly one newsletter section.
package classify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/curator/internal/news"
)

// Classifier applies the section rules in a fixed order: vertical, tool,
// research, positive, then lead as the default.
type Classifier struct {
	rules    Rules
	oracle   SentimentOracle
	fallback KeywordSentiment
	timeout  time.Duration
	log      *slog.Logger
}

type Option func(*Classifier)

func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) { c.log = l }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) { c.timeout = d }
}

// New builds a Classifier. oracle may be nil, in which case only keyword
// sentiment is used.
func New(rules Rules, oracle SentimentOracle, opts ...Option) *Classifier {
	c := &Classifier{
		rules:    rules,
		fallback: KeywordSentiment{Positive: rules.Positive, Negative: rules.Negative},
		timeout:  DefaultOracleTimeout,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if oracle != nil {
		c.oracle = Guarded(oracle, c.timeout)
	}
	return c
}

// Classified is the result of ClassifyAll.
type Classified struct {
	Sections    map[news.Section][]news.Item
	OracleCalls int
	Fallbacks   int
}

// Items returns every classified item in section order.
func (c Classified) Items() []news.Item {
	var out []news.Item
	for _, s := range news.Sections {
		out = append(out, c.Sections[s]...)
	}
	return out
}

// decision carries the outcome for one item.
type decision struct {
	section   news.Section
	sentiment news.Sentiment
	asked     bool
	fellBack  bool
}

// Classify returns the section and sentiment label for one item.
func (c *Classifier) Classify(ctx context.Context, it news.Item, useSentiment bool) (news.Section, news.Sentiment) {
	d := c.decide(ctx, it, useSentiment)
	return d.section, d.sentiment
}

func (c *Classifier) decide(ctx context.Context, it news.Item, useSentiment bool) decision {
	text := it.Text()
	log := c.log.With("title", it.Title)

	if news.ContainsAny(text, c.rules.Vertical) {
		log.Debug("classified", "section", news.SectionVertical, "rule", "vertical keyword")
		return c.finish(ctx, it, news.SectionVertical, useSentiment)
	}
	if strings.EqualFold(it.Category, "tools") || news.ContainsAny(text, c.rules.Tool) {
		log.Debug("classified", "section", news.SectionTool, "rule", "tool keyword")
		return c.finish(ctx, it, news.SectionTool, useSentiment)
	}
	if c.isResearch(it) || c.isLongForm(it) {
		log.Debug("classified", "section", news.SectionAnalysis, "rule", "research or long form")
		return c.finish(ctx, it, news.SectionAnalysis, useSentiment)
	}

	d := c.sentiment(ctx, it, useSentiment)
	positive := d.sentiment == news.SentimentPositive
	if !d.asked || d.fellBack {
		positive = news.ContainsAny(text, c.rules.Positive)
	}
	if positive {
		log.Debug("classified", "section", news.SectionPositive, "rule", "positive", "oracle", d.asked && !d.fellBack)
		d.section = news.SectionPositive
		return d
	}

	log.Debug("classified", "section", news.SectionLead, "rule", "default")
	d.section = news.SectionLead
	return d
}

// finish labels sentiment for items that are placed before the positive rule.
func (c *Classifier) finish(ctx context.Context, it news.Item, s news.Section, useSentiment bool) decision {
	d := c.sentiment(ctx, it, useSentiment)
	d.section = s
	return d
}

func (c *Classifier) sentiment(ctx context.Context, it news.Item, useSentiment bool) decision {
	if c.oracle == nil || !useSentiment {
		s, _ := c.fallback.Sentiment(ctx, it)
		return decision{sentiment: s}
	}
	s, err := c.oracle.Sentiment(ctx, it)
	if err != nil {
		c.log.Warn("sentiment unavailable, using keyword fallback", "title", it.Title, "error", err)
		return decision{sentiment: news.SentimentNeutral, asked: true, fellBack: true}
	}
	return decision{sentiment: s, asked: true}
}

func (c *Classifier) isResearch(it news.Item) bool {
	text := strings.ToLower(it.Title + " " + it.Source + " " + it.Summary)
	if news.ContainsAny(text, c.rules.ResearchSources) {
		return true
	}
	need := c.rules.MinAcademicHits
	if need <= 0 {
		need = 2
	}
	return news.CountMatches(it.Title, c.rules.AcademicIndicators) >= need
}

func (c *Classifier) isLongForm(it news.Item) bool {
	if c.rules.LongFormWords > 0 && len(strings.Fields(it.Summary)) > c.rules.LongFormWords {
		return true
	}
	return news.ContainsAny(it.Title+" "+it.Source, c.rules.LongFormPhrases)
}

// ClassifyAll labels copies of items and groups them by section. Input order
// is kept inside each section.
func (c *Classifier) ClassifyAll(ctx context.Context, items []news.Item, useSentiment bool) Classified {
	out := Classified{Sections: make(map[news.Section][]news.Item, len(news.Sections))}
	for _, s := range news.Sections {
		out.Sections[s] = []news.Item{}
	}
	for _, it := range items {
		d := c.decide(ctx, it, useSentiment)
		if d.asked {
			out.OracleCalls++
		}
		if d.fellBack {
			out.Fallbacks++
		}
		it.Section = d.section
		it.Sentiment = d.sentiment
		out.Sections[d.section] = append(out.Sections[d.section], it)
	}

	attrs := make([]any, 0, 2*len(news.Sections))
	for _, s := range news.Sections {
		attrs = append(attrs, string(s), len(out.Sections[s]))
	}
	c.log.Info("items classified", attrs...)
	return out
}
