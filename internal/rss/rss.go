// Package rss loads feed sources and fetches them into candidate items.
package rss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/curator/internal/news"
	"github.com/deusflow/curator/internal/scraper"
)

// Source is one configured feed.
type Source struct {
	Name     string        `yaml:"name"`
	URL      string        `yaml:"url"`
	Priority news.Priority `yaml:"priority"`
	Category string        `yaml:"category"`
}

// SourcesConfig is YAML config structure
//
//	feeds:
//	  - name: Example
//	    url: https://example.com/feed
//	    priority: high
//	    category: governance
type SourcesConfig struct {
	Feeds []Source `yaml:"feeds"`
}

// LoadSources reads the feed list from a YAML file. Entries without a URL
// are dropped.
func LoadSources(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg SourcesConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse sources %s: %w", path, err)
	}
	out := make([]Source, 0, len(cfg.Feeds))
	for _, s := range cfg.Feeds {
		s.URL = strings.TrimSpace(s.URL)
		if s.URL == "" {
			continue
		}
		if s.Priority == "" {
			s.Priority = news.PriorityMedium
		}
		out = append(out, s)
	}
	return out, nil
}

// URLs returns the feed URLs in configuration order.
func URLs(sources []Source) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = s.URL
	}
	return out
}

// Fetcher pulls every source with bounded parallelism.
type Fetcher struct {
	sources     []Source
	concurrency int
	timeout     time.Duration
	maxAge      time.Duration
	now         func() time.Time
	log         *slog.Logger
}

type Option func(*Fetcher)

func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		f.concurrency = n
	}
}

func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

func WithMaxAge(d time.Duration) Option {
	return func(f *Fetcher) {
		f.maxAge = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		f.now = now
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		f.log = l
	}
}

func NewFetcher(sources []Source, opts ...Option) *Fetcher {
	f := &Fetcher{
		sources:     sources,
		concurrency: 4,
		timeout:     20 * time.Second,
		maxAge:      7 * 24 * time.Hour,
		now:         time.Now,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.concurrency <= 0 {
		f.concurrency = 1
	}
	return f
}

// Fetch downloads and parses all feeds. A failing feed is logged and
// skipped; the call fails only when the context ends or every feed failed.
func (f *Fetcher) Fetch(ctx context.Context) ([]news.Item, error) {
	results := make([][]news.Item, len(f.sources))
	failures := make([]error, len(f.sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, src := range f.sources {
		g.Go(func() error {
			items, err := f.fetchOne(gctx, src)
			if err != nil {
				f.log.Warn("error parsing feed", "source", src.Name, "url", src.URL, "error", err)
				failures[i] = err
				return nil
			}
			f.log.Debug("feed loaded", "source", src.Name, "items", len(items))
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []news.Item
	ok := 0
	for i := range f.sources {
		if failures[i] == nil {
			ok++
		}
		all = append(all, results[i]...)
	}
	f.log.Info("processed feeds", "ok", ok, "total", len(f.sources), "items", len(all))
	if len(f.sources) > 0 && ok == 0 {
		return nil, fmt.Errorf("all %d feeds failed: %w", len(f.sources), errors.Join(failures...))
	}
	return all, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, src Source) ([]news.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.UserAgent = "curator/1.0"
	feed, err := parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, err
	}
	return ItemsFromFeed(feed, src, f.now(), f.maxAge), nil
}

// ItemsFromFeed converts parsed entries, dropping those older than maxAge.
// Entries without a date are kept; scoring handles unknown recency.
func ItemsFromFeed(feed *gofeed.Feed, src Source, now time.Time, maxAge time.Duration) []news.Item {
	if feed == nil {
		return nil
	}
	name := src.Name
	if name == "" {
		name = feed.Title
	}

	out := make([]news.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		var published time.Time
		switch {
		case entry.PublishedParsed != nil:
			published = *entry.PublishedParsed
		case entry.UpdatedParsed != nil:
			published = *entry.UpdatedParsed
		}
		if maxAge > 0 && !published.IsZero() && now.Sub(published) > maxAge {
			continue
		}

		summary := entry.Description
		if strings.TrimSpace(summary) == "" {
			summary = entry.Content
		}
		out = append(out, news.NewItem(
			entry.Link,
			scraper.PlainText(entry.Title),
			name,
			scraper.PlainText(summary),
			published,
			src.Priority,
			src.Category,
		))
	}
	return out
}
