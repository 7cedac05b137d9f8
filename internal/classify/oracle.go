package classify

import (
	"context"
	"fmt"
	"time"

	"github.com/deusflow/curator/internal/news"
)

// DefaultOracleTimeout bounds a single sentiment call.
const DefaultOracleTimeout = 10 * time.Second

// SentimentOracle labels the tone of an item.
type SentimentOracle interface {
	Sentiment(ctx context.Context, it news.Item) (news.Sentiment, error)
}

// KeywordSentiment is a local oracle driven by the positive and negative
// keyword lists. It never fails.
type KeywordSentiment struct {
	Positive []string
	Negative []string
}

func (k KeywordSentiment) Sentiment(_ context.Context, it news.Item) (news.Sentiment, error) {
	text := it.Text()
	switch {
	case news.ContainsAny(text, k.Positive):
		return news.SentimentPositive, nil
	case news.ContainsAny(text, k.Negative):
		return news.SentimentNegative, nil
	}
	return news.SentimentNeutral, nil
}

type guarded struct {
	next    SentimentOracle
	timeout time.Duration
}

// Guarded bounds every call to next with timeout. Errors come back wrapped
// with a neutral label so callers can fall back.
func Guarded(next SentimentOracle, timeout time.Duration) SentimentOracle {
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	return guarded{next: next, timeout: timeout}
}

func (g guarded) Sentiment(ctx context.Context, it news.Item) (news.Sentiment, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	s, err := g.next.Sentiment(ctx, it)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return news.SentimentNeutral, fmt.Errorf("sentiment oracle: %w", err)
	}
	if _, ok := news.ParseSentiment(string(s)); !ok {
		return news.SentimentNeutral, fmt.Errorf("sentiment oracle: unknown label %q", s)
	}
	return s, nil
}
