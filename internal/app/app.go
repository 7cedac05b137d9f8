// Package app wires the curation pipeline: fetch, score, classify, select.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/curator/internal/cache"
	"github.com/deusflow/curator/internal/classify"
	"github.com/deusflow/curator/internal/metrics"
	"github.com/deusflow/curator/internal/news"
	"github.com/deusflow/curator/internal/personalize"
	"github.com/deusflow/curator/internal/scoring"
	"github.com/deusflow/curator/internal/selection"
	"github.com/deusflow/curator/internal/storage"
)

const (
	SelectionPrefix = "selection_"
	// RecommendCount is how many recommendations a personalized run reports.
	RecommendCount = 5
)

// Fetcher returns the raw candidate items for a run.
type Fetcher interface {
	Fetch(ctx context.Context) ([]news.Item, error)
}

// Pipeline holds everything one run needs. Learner is optional; without it
// items are ranked on their base score only.
type Pipeline struct {
	Fetcher      Fetcher
	Store        cache.Store
	CacheKey     string
	Engine       *scoring.Engine
	Classifier   *classify.Classifier
	Policy       selection.Policy
	Targets      selection.SentimentTargets
	Reviews      *storage.ReviewStore
	Learner      *personalize.Learner
	UseSentiment bool
	Metrics      *metrics.Metrics
	Log          *slog.Logger
	Now          func() time.Time
}

// Result summarizes one run.
type Result struct {
	RunID           string
	Fetched         int
	Duplicates      int
	Excluded        int
	Candidates      []news.Item
	Selection       selection.Selection
	Sentiment       selection.SentimentReport
	Validation      selection.ValidationReport
	Recommendations []news.Item
	AutoSelected    []news.Item
	ReviewPath      string
	SelectionPath   string
	FromCache       bool
}

// selectionFile is what lands in selection_<date>.json.
type selectionFile struct {
	RunID      string                       `json:"run_id"`
	Date       string                       `json:"date"`
	Sections   map[news.Section][]news.Item `json:"sections"`
	Sentiment  sentimentSummary             `json:"sentiment"`
	Validation selection.ValidationReport   `json:"validation"`
}

type sentimentSummary struct {
	Counts    map[news.Sentiment]int     `json:"counts"`
	Fractions map[news.Sentiment]float64 `json:"fractions"`
	Balanced  bool                       `json:"balanced"`
}

// SelectionFileName returns the output name for a day.
func SelectionFileName(day time.Time) string {
	return SelectionPrefix + day.Format("2006-01-02") + ".json"
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Log == nil {
		return slog.Default()
	}
	return p.Log
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// Run executes one pipeline pass and writes the review record and the
// selection file for today.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{RunID: uuid.New().String()}
	log := p.logger().With("run_id", res.RunID)
	log.Info("pipeline run started")

	err := p.run(ctx, log, &res)
	if p.Metrics != nil {
		p.Metrics.RecordProcessingTime(time.Since(start))
		if err != nil {
			p.Metrics.SetError(err.Error())
		} else {
			p.Metrics.SetLastRun(res.RunID)
		}
	}
	if err != nil {
		log.Error("pipeline run failed", "error", err)
		return res, err
	}
	log.Info("pipeline run finished",
		"fetched", res.Fetched,
		"candidates", len(res.Candidates),
		"selected", res.Selection.Total(),
		"duration", time.Since(start),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, res *Result) error {
	items, fromCache, err := p.items(ctx, log)
	if err != nil {
		return err
	}
	res.FromCache = fromCache
	res.Fetched = len(items)

	items, res.Duplicates = news.Dedup(items)
	scored := p.Engine.ScoreAll(items)
	res.Excluded = len(items) - len(scored)

	var profile personalize.Profile
	personalized := false
	if p.Learner != nil {
		profile, err = p.Learner.Learn()
		if err != nil {
			log.Warn("profile learning failed, ranking on base score", "error", err)
		}
		if profile.TotalSelections > 0 {
			applyProfile(scored, profile)
			personalized = true
			log.Info("personalization applied", "selections", profile.TotalSelections)
		}
	}
	res.Candidates = scored

	classified := p.Classifier.ClassifyAll(ctx, scored, p.UseSentiment)
	res.Selection = selection.Select(classified.Sections, p.Policy, log)
	res.Sentiment = selection.Audit(res.Selection, p.Targets, log)
	res.Validation = selection.Validate(res.Selection, p.Policy, log)

	if personalized {
		res.Recommendations = personalize.Recommend(scored, profile, RecommendCount)
		res.AutoSelected = personalize.AutoSuggest(scored, profile, personalize.AutoSuggestThreshold)
		log.Info("recommendations ready",
			"recommended", len(res.Recommendations),
			"auto_selected", len(res.AutoSelected),
		)
	}

	if m := p.Metrics; m != nil {
		m.AddFetched(res.Fetched)
		m.AddDuplicates(res.Duplicates)
		m.AddScored(len(scored), res.Excluded)
		for sec, its := range classified.Sections {
			m.AddClassified(string(sec), len(its))
		}
		m.AddOracle(classified.OracleCalls, classified.Fallbacks)
		m.AddSelected(res.Selection.Total())
	}

	return p.write(log, res)
}

// items loads the candidate list from the item cache or the fetcher. Cache
// failures only cost a refetch.
func (p *Pipeline) items(ctx context.Context, log *slog.Logger) ([]news.Item, bool, error) {
	if p.Store != nil && p.CacheKey != "" {
		var cached []news.Item
		ok, err := cache.GetJSON(ctx, p.Store, p.CacheKey, &cached)
		if err != nil {
			log.Warn("item cache read failed", "key", p.CacheKey, "error", err)
		}
		if p.Metrics != nil {
			p.Metrics.RecordCache(ok)
		}
		if ok {
			log.Info("using cached items", "count", len(cached))
			for i := range cached {
				cached[i].Repair()
			}
			return cached, true, nil
		}
	}

	items, err := p.Fetcher.Fetch(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch items: %w", err)
	}
	if p.Store != nil && p.CacheKey != "" {
		if err := cache.SetJSON(ctx, p.Store, p.CacheKey, items); err != nil {
			log.Warn("item cache write failed", "key", p.CacheKey, "error", err)
		}
	}
	return items, false, nil
}

// applyProfile replaces Score with the personalized score, keeps BaseScore
// and re-ranks stably.
func applyProfile(items []news.Item, profile personalize.Profile) {
	for i := range items {
		items[i].Score = personalize.Boost(items[i], profile)
		items[i].Likelihood = personalize.PredictLikelihood(items[i], profile)
	}
	scoring.SortByScore(items)
}

func (p *Pipeline) write(log *slog.Logger, res *Result) error {
	if p.Reviews == nil {
		return nil
	}
	day := p.now()

	review := storage.BuildReview(day, res.Candidates)
	prev, err := p.Reviews.Load(day)
	switch {
	case err == nil:
		if n := storage.CarrySelections(&review, prev); n > 0 {
			log.Info("kept earlier picks for the day", "selected", n)
		}
	case !errors.Is(err, storage.ErrReviewNotFound):
		log.Warn("existing review record unreadable, replacing it", "error", err)
	}
	if err := p.Reviews.Save(review); err != nil {
		return fmt.Errorf("failed to save review record: %w", err)
	}
	res.ReviewPath = p.Reviews.Path(day)

	out := selectionFile{
		RunID:    res.RunID,
		Date:     day.Format("2006-01-02"),
		Sections: res.Selection,
		Sentiment: sentimentSummary{
			Counts:    res.Sentiment.Counts,
			Fractions: res.Sentiment.Fractions,
			Balanced:  res.Sentiment.Balanced(),
		},
		Validation: res.Validation,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal selection: %w", err)
	}
	res.SelectionPath = filepath.Join(p.Reviews.Dir(), SelectionFileName(day))
	if err := storage.WriteFileAtomic(res.SelectionPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}
	log.Info("outputs written", "review", res.ReviewPath, "selection", res.SelectionPath)
	return nil
}
