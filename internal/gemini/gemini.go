// Package gemini implements the sentiment oracle on top of Google's
// generative AI API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deusflow/curator/internal/cache"
	"github.com/deusflow/curator/internal/classify"
	"github.com/deusflow/curator/internal/news"
	"github.com/deusflow/curator/internal/ratelimit"
	"github.com/deusflow/curator/internal/retry"
	"github.com/deusflow/curator/internal/scraper"
)

const (
	DefaultModel    = "gemini-1.5-flash"
	maxSummaryRunes = 1000
)

var ErrEmptyResponse = errors.New("no response from Gemini")

// generator is the one model call the client needs.
type generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type genaiGenerator struct {
	model *genai.GenerativeModel
}

func (g genaiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}

// Client labels item sentiment. Labels are cached per item so reruns within
// the cache ttl do not spend budget.
type Client struct {
	client *genai.Client
	gen    generator
	budget *ratelimit.Budget
	store  cache.Store
	retry  retry.Policy
	log    *slog.Logger
}

var _ classify.SentimentOracle = (*Client)(nil)

type Option func(*Client)

func WithBudget(b *ratelimit.Budget) Option {
	return func(c *Client) {
		c.budget = b
	}
}

func WithCache(s cache.Store) Option {
	return func(c *Client) {
		c.store = s
	}
}

func WithRetry(p retry.Policy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

func NewClient(ctx context.Context, apiKey, modelName string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"

	c := newClient(genaiGenerator{model: model}, opts...)
	c.client = client
	return c, nil
}

func newClient(gen generator, opts ...Option) *Client {
	c := &Client{gen: gen, retry: retry.DefaultPolicy(), log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Sentiment asks the model for a single label.
func (c *Client) Sentiment(ctx context.Context, it news.Item) (news.Sentiment, error) {
	key := "sentiment:" + cache.HashKey(it.URL, it.Title)
	if c.store != nil {
		var cached string
		if ok, err := cache.GetJSON(ctx, c.store, key, &cached); err == nil && ok {
			if s, valid := news.ParseSentiment(cached); valid {
				if c.budget != nil {
					c.budget.RecordCacheHit()
				}
				return s, nil
			}
		}
		if c.budget != nil {
			c.budget.RecordCacheMiss()
		}
	}

	if c.budget != nil {
		if err := c.budget.Use(); err != nil {
			return news.SentimentNeutral, err
		}
	}

	prompt := buildPrompt(it)
	var label news.Sentiment
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		text, err := c.gen.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		s, err := parseSentiment(text)
		if err != nil {
			return retry.Permanent(err)
		}
		label = s
		return nil
	})
	if err != nil {
		return news.SentimentNeutral, err
	}

	if c.store != nil {
		if err := cache.SetJSON(ctx, c.store, key, string(label)); err != nil {
			c.log.Warn("failed to cache sentiment", "error", err)
		}
	}
	return label, nil
}

func buildPrompt(it news.Item) string {
	summary := scraper.Truncate(strings.Join(strings.Fields(it.Summary), " "), maxSummaryRunes)
	return fmt.Sprintf(`Classify the overall sentiment of this news article for a newsletter reader.

Title: %s
Source: %s
Summary: %s

Answer with JSON only, exactly one of:
{"sentiment": "positive"}
{"sentiment": "negative"}
{"sentiment": "neutral"}
{"sentiment": "mixed"}`, it.Title, it.Source, summary)
}

var (
	fencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	labelPattern = regexp.MustCompile(`(?i)"sentiment"\s*:\s*"([a-z]+)"`)
)

// parseSentiment accepts a JSON object, fenced JSON, or a bare label.
func parseSentiment(text string) (news.Sentiment, error) {
	text = strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	var payload struct {
		Sentiment string `json:"sentiment"`
	}
	label := ""
	if err := json.Unmarshal([]byte(text), &payload); err == nil {
		label = payload.Sentiment
	} else if m := labelPattern.FindStringSubmatch(text); m != nil {
		label = m[1]
	} else {
		label = strings.Trim(text, `"'. `)
	}

	s, ok := news.ParseSentiment(label)
	if !ok {
		return news.SentimentNeutral, fmt.Errorf("unexpected sentiment label %q", label)
	}
	return s, nil
}
