package scoring

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/curator/internal/news"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEngine(rules Rules) *Engine {
	return NewEngine(rules, WithClock(func() time.Time { return fixedNow }), WithLogger(quietLogger()))
}

func baseRules() Rules {
	return Rules{
		Topics: []TopicRule{
			{Name: "policy", Keywords: []string{"regulation", "policy"}, Category: "governance", Weight: "2.0"},
			{Name: "models", Keywords: []string{"model", "llm"}, Category: "research", Weight: "1.0"},
		},
		RegionKeywords:  []string{"canada", "ottawa", "toronto", "montreal"},
		RegionBoost:     1.5,
		ExcludePatterns: []string{"sponsored"},
	}
}

func TestScoreFloorNoTopicMatch(t *testing.T) {
	e := testEngine(baseRules())
	it := news.NewItem("u", "x", "s", "nothing relevant", fixedNow, news.PriorityMedium, "")
	b := e.Score(it)
	assert.Equal(t, 0.0, b.Topic)
	assert.InDelta(t, 1.0, b.Final, 1e-9)
}

func TestScoreMultipliesFactors(t *testing.T) {
	e := testEngine(baseRules())
	it := news.NewItem("u", "Canada regulation and policy", "s", "", fixedNow.Add(-50*time.Hour), news.PriorityHigh, "")
	b := e.Score(it)
	assert.InDelta(t, 4.0, b.Topic, 1e-9)
	assert.Equal(t, "governance", b.Category)
	assert.InDelta(t, 1.5, b.Region, 1e-9)
	assert.InDelta(t, 0.8, b.Recency, 1e-9)
	assert.InDelta(t, 1.5, b.Priority, 1e-9)
	assert.InDelta(t, 7.2, b.Final, 1e-9)
}

func TestTopicTieKeepsFirstRule(t *testing.T) {
	e := testEngine(Rules{Topics: []TopicRule{
		{Name: "a", Keywords: []string{"alpha"}, Category: "first", Weight: "1"},
		{Name: "b", Keywords: []string{"beta"}, Category: "second", Weight: "1"},
	}})
	_, cat := e.TopicScore("alpha beta")
	assert.Equal(t, "first", cat)
}

func TestNormalizeTopicsCoercesAndDoesNotMutate(t *testing.T) {
	rules := []TopicRule{{Name: "Bad", Keywords: []string{" LLM "}, Weight: "lots"}}
	got := NormalizeTopics(rules, quietLogger())
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Weight)
	assert.Equal(t, []string{"llm"}, got[0].Keywords)
	assert.Equal(t, " LLM ", rules[0].Keywords[0])

	again := NormalizeTopics([]TopicRule{{Name: got[0].Name, Keywords: got[0].Keywords, Weight: "1"}}, quietLogger())
	assert.Equal(t, got[0].Keywords, again[0].Keywords)
	assert.Equal(t, got[0].Weight, again[0].Weight)
}

func TestRegionMultiplierCapped(t *testing.T) {
	e := testEngine(baseRules())
	m3, hits3 := e.RegionMultiplier("canada ottawa toronto")
	m4, hits4 := e.RegionMultiplier("canada ottawa toronto montreal")
	assert.Equal(t, 3, hits3)
	assert.Equal(t, 4, hits4)
	assert.InDelta(t, 4.5, m3, 1e-9)
	assert.Equal(t, m3, m4)

	none, _ := e.RegionMultiplier("nowhere")
	assert.Equal(t, 1.0, none)
}

func TestRecencyMultiplier(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want float64
	}{
		{0, 1.0},
		{36 * time.Hour, 1.0},
		{3 * 24 * time.Hour, 0.8},
		{5 * 24 * time.Hour, 0.6},
		{7 * 24 * time.Hour, 0.4},
		{30 * 24 * time.Hour, 0.2},
		{-48 * time.Hour, 1.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RecencyMultiplier(fixedNow.Add(-tt.age), fixedNow), "age %s", tt.age)
	}
	assert.Equal(t, UnknownRecency, RecencyMultiplier(time.Time{}, fixedNow))
}

func TestRecencyMonotonic(t *testing.T) {
	e := testEngine(baseRules())
	prev := 1e9
	for days := 0; days < 12; days++ {
		it := news.NewItem("u", "policy", "s", "", fixedNow.Add(-time.Duration(days)*24*time.Hour), news.PriorityMedium, "")
		s := e.Score(it).Final
		assert.LessOrEqual(t, s, prev)
		prev = s
	}
}

func TestUnknownPriorityIsMedium(t *testing.T) {
	e := testEngine(baseRules())
	assert.Equal(t, 1.0, e.PriorityMultiplier("urgent"))
	assert.Equal(t, 0.5, e.PriorityMultiplier("LOW"))
}

func TestScoreAllExcludesAndSortsStably(t *testing.T) {
	e := testEngine(baseRules())
	items := []news.Item{
		news.NewItem("a", "plain one", "s", "", fixedNow, news.PriorityMedium, ""),
		news.NewItem("b", "Sponsored policy", "s", "", fixedNow, news.PriorityHigh, ""),
		news.NewItem("c", "policy update", "s", "", fixedNow, news.PriorityMedium, ""),
		news.NewItem("d", "plain two", "s", "", fixedNow, news.PriorityMedium, ""),
	}
	out := e.ScoreAll(items)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"c", "a", "d"}, []string{out[0].URL, out[1].URL, out[2].URL})
	assert.Equal(t, "governance", out[0].Category)
	for _, it := range out {
		assert.Equal(t, it.Score, it.BaseScore)
	}
}

func TestScoreScenarios(t *testing.T) {
	rules := Rules{
		Topics:          []TopicRule{{Name: "agi", Keywords: []string{"agi breakthrough"}, Category: "research", Weight: "2.0"}},
		ExcludePatterns: []string{"sponsored"},
	}
	old := 10 * 24 * time.Hour
	tests := []struct {
		name  string
		title string
		age   time.Duration
		prio  news.Priority
		want  float64
	}{
		{"floor low priority stale", "quarterly earnings recap", old, news.PriorityLow, 0.1},
		{"fresh high priority topic", "AGI breakthrough announced", 0, news.PriorityHigh, 3.0},
		{"stale high priority topic", "AGI breakthrough announced", old, news.PriorityHigh, 0.6},
	}
	e := testEngine(rules)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := news.NewItem("u", tt.title, "s", "", fixedNow.Add(-tt.age), tt.prio, "")
			b := e.Score(it)
			assert.InDelta(t, tt.want, b.Final, 1e-9)
			assert.GreaterOrEqual(t, b.Final, ScoreFloor*b.Region*b.Recency*b.Priority-1e-9)
		})
	}

	items := []news.Item{
		news.NewItem("old", "AGI breakthrough announced", "s", "", fixedNow.Add(-old), news.PriorityHigh, ""),
		news.NewItem("ad", "Sponsored: AGI breakthrough course", "s", "", fixedNow, news.PriorityHigh, ""),
		news.NewItem("new", "AGI breakthrough announced", "s", "", fixedNow, news.PriorityHigh, ""),
	}
	out := e.ScoreAll(items)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"new", "old"}, []string{out[0].URL, out[1].URL})
	assert.Greater(t, out[0].Score, out[1].Score)
}
