package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/curator/internal/cache"
	"github.com/deusflow/curator/internal/classify"
	"github.com/deusflow/curator/internal/config"
	"github.com/deusflow/curator/internal/gemini"
	"github.com/deusflow/curator/internal/metrics"
	"github.com/deusflow/curator/internal/personalize"
	"github.com/deusflow/curator/internal/ratelimit"
	"github.com/deusflow/curator/internal/retry"
	"github.com/deusflow/curator/internal/rss"
	"github.com/deusflow/curator/internal/scoring"
	"github.com/deusflow/curator/internal/storage"
)

// Build assembles a Pipeline from configuration. The returned func closes
// the cache backend and the Gemini client.
func Build(ctx context.Context, cfg *config.Config, rules config.Rules, m *metrics.Metrics, log *slog.Logger) (*Pipeline, func(), error) {
	sources, err := rss.LoadSources(cfg.SourcesPath)
	if err != nil {
		return nil, nil, err
	}
	if len(sources) == 0 {
		return nil, nil, fmt.Errorf("no feeds configured in %s", cfg.SourcesPath)
	}

	store, closeStore, err := NewCacheStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open item cache: %w", err)
	}
	cleanup := closeStore

	var oracle classify.SentimentOracle
	if cfg.SentimentEnabled() {
		budget := ratelimit.NewBudget("gemini", cfg.MaxGeminiRequests, ratelimit.WithLogger(log))
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel,
			gemini.WithBudget(budget),
			gemini.WithCache(store),
			gemini.WithRetry(retry.DefaultPolicy()),
			gemini.WithLogger(log),
		)
		if err != nil {
			log.Warn("sentiment oracle unavailable, using keywords", "error", err)
		} else {
			oracle = client
			cleanup = func() {
				client.Close()
				log.Debug("gemini budget", "stats", budget.GetStats())
				closeStore()
			}
		}
	}

	fetcher := rss.NewFetcher(sources,
		rss.WithConcurrency(cfg.FetchConcurrency),
		rss.WithTimeout(cfg.FetchTimeout),
		rss.WithMaxAge(cfg.MaxAge),
		rss.WithLogger(log),
	)

	p := &Pipeline{
		Fetcher:      fetcher,
		Store:        store,
		CacheKey:     ItemsCacheKey(sources),
		Engine:       scoring.NewEngine(rules.ScoringRules(), scoring.WithLogger(log)),
		Classifier:   classify.New(classify.DefaultRules(), oracle, classify.WithLogger(log), classify.WithTimeout(cfg.SentimentTimeout)),
		Policy:       rules.SelectionPolicy(),
		Targets:      rules.SentimentTargets(),
		Reviews:      storage.NewReviewStore(cfg.OutputDir),
		UseSentiment: oracle != nil,
		Metrics:      m,
		Log:          log,
	}
	if cfg.Personalize {
		p.Learner = personalize.NewLearner(cfg.OutputDir, personalize.WithLogger(log))
	}
	return p, cleanup, nil
}

// ItemsCacheKey identifies the fetched item list for a set of feeds.
func ItemsCacheKey(sources []rss.Source) string {
	return cache.KeyFor("articles:" + cache.HashKey(rss.URLs(sources)...))
}

// LearnProfile refreshes the preference profile from the records in the
// output directory.
func LearnProfile(cfg *config.Config, log *slog.Logger) (personalize.Profile, error) {
	return personalize.NewLearner(cfg.OutputDir, personalize.WithLogger(log)).Learn()
}

// MarkSelected records the curator's picks ("category:id") in the review
// record for day.
func MarkSelected(cfg *config.Config, day time.Time, refs []string, log *slog.Logger) (int, error) {
	reviews := storage.NewReviewStore(cfg.OutputDir)
	r, err := reviews.Load(day)
	if err != nil {
		return 0, err
	}
	n, err := storage.MarkSelected(&r, refs)
	if err != nil {
		return n, err
	}
	if err := reviews.Save(r); err != nil {
		return n, err
	}
	log.Info("selections recorded", "date", r.Date, "marked", n, "total_selected", len(r.Selected))
	return n, nil
}
