package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/curator/internal/cache"
	"github.com/deusflow/curator/internal/news"
	"github.com/deusflow/curator/internal/ratelimit"
	"github.com/deusflow/curator/internal/retry"
)

type fakeGen struct {
	replies []string
	errs    []error
	calls   int
	prompt  string
}

func (f *fakeGen) Generate(_ context.Context, prompt string) (string, error) {
	i := f.calls
	f.calls++
	f.prompt = prompt
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	reply := ""
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return reply, err
}

func testClient(gen generator, opts ...Option) *Client {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRetry(retry.Policy{MaxAttempts: 2, Delay: time.Millisecond}),
	}
	return newClient(gen, append(base, opts...)...)
}

func TestParseSentiment(t *testing.T) {
	tests := []struct {
		in   string
		want news.Sentiment
		ok   bool
	}{
		{`{"sentiment": "positive"}`, news.SentimentPositive, true},
		{"```json\n{\"sentiment\": \"NEGATIVE\"}\n```", news.SentimentNegative, true},
		{`Sure! {"sentiment": "mixed"} hope it helps`, news.SentimentMixed, true},
		{"neutral.", news.SentimentNeutral, true},
		{`{"sentiment": "thrilled"}`, news.SentimentNeutral, false},
	}
	for _, tt := range tests {
		got, err := parseSentiment(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
		} else {
			require.Error(t, err, tt.in)
		}
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestSentimentRetriesTransientErrors(t *testing.T) {
	gen := &fakeGen{errs: []error{errors.New("503"), nil}, replies: []string{"", `{"sentiment":"positive"}`}}
	c := testClient(gen)

	s, err := c.Sentiment(context.Background(), news.Item{Title: "Cure found", URL: "u"})
	require.NoError(t, err)
	assert.Equal(t, news.SentimentPositive, s)
	assert.Equal(t, 2, gen.calls)
	assert.Contains(t, gen.prompt, "Title: Cure found")
}

func TestSentimentBadLabelIsNotRetried(t *testing.T) {
	gen := &fakeGen{replies: []string{"no idea", "no idea"}}
	c := testClient(gen)
	_, err := c.Sentiment(context.Background(), news.Item{Title: "x", URL: "u"})
	assert.Error(t, err)
	assert.Equal(t, 1, gen.calls)
}

func TestSentimentBudgetAndCache(t *testing.T) {
	gen := &fakeGen{replies: []string{`{"sentiment":"negative"}`, `{"sentiment":"negative"}`}}
	budget := ratelimit.NewBudget("gemini", 1)
	store := cache.NewMemory(time.Hour, nil)
	c := testClient(gen, WithBudget(budget), WithCache(store))
	ctx := context.Background()

	first := news.Item{Title: "Layoffs", URL: "https://a"}
	s, err := c.Sentiment(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, news.SentimentNegative, s)

	s, err = c.Sentiment(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, news.SentimentNegative, s)
	assert.Equal(t, 1, gen.calls, "second lookup served from cache")
	assert.Equal(t, 1, budget.GetStats()["cache_hits"])

	_, err = c.Sentiment(ctx, news.Item{Title: "Other", URL: "https://b"})
	assert.ErrorIs(t, err, ratelimit.ErrBudgetExhausted)
}

func TestBuildPromptTruncatesSummary(t *testing.T) {
	p := buildPrompt(news.Item{Title: "t", Summary: strings.Repeat("a", 3000)})
	assert.Less(t, len(p), 1600)
	assert.Contains(t, p, "…")

	p = buildPrompt(news.Item{Title: "t", Summary: strings.Repeat("words ", 400)})
	assert.Contains(t, p, "words…")
	assert.NotContains(t, p, " word…")
}
