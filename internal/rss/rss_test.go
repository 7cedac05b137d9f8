package rss

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/curator/internal/news"
)

var now = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func feedXML(items ...string) string {
	body := ""
	for _, it := range items {
		body += it
	}
	return `<?xml version="1.0"?><rss version="2.0"><channel><title>Example Feed</title>` + body + `</channel></rss>`
}

func entry(title, link string, published time.Time) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><description>&lt;p&gt;About %s&lt;/p&gt;</description><pubDate>%s</pubDate></item>`,
		title, link, title, published.Format(time.RFC1123Z))
}

func TestLoadSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
feeds:
  - name: Gov
    url: https://gov.example/rss
    priority: high
    category: governance
  - name: Blank
    url: ""
  - name: Lab
    url: https://lab.example/rss
`), 0o644))

	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, news.PriorityHigh, sources[0].Priority)
	assert.Equal(t, news.PriorityMedium, sources[1].Priority)
	assert.Equal(t, []string{"https://gov.example/rss", "https://lab.example/rss"}, URLs(sources))
}

func TestItemsFromFeedFiltersOldAndCleansHTML(t *testing.T) {
	feed, err := gofeed.NewParser().ParseString(feedXML(
		entry("Fresh", "https://x/fresh", now.Add(-time.Hour)),
		entry("Stale", "https://x/stale", now.Add(-10*24*time.Hour)),
	))
	require.NoError(t, err)

	items := ItemsFromFeed(feed, Source{Priority: news.PriorityLow, Category: "tools"}, now, 7*24*time.Hour)
	require.Len(t, items, 1)
	assert.Equal(t, "Fresh", items[0].Title)
	assert.Equal(t, "About Fresh", items[0].Summary)
	assert.Equal(t, "Example Feed", items[0].Source)
	assert.Equal(t, news.PriorityLow, items[0].Priority)
	assert.Equal(t, "tools", items[0].Category)
}

func TestFetchSkipsFailingFeedsAndKeepsOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, feedXML(entry("A1", "https://x/a1", now), entry("A2", "https://x/a2", now)))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, feedXML(entry("B1", "https://x/b1", now)))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewFetcher([]Source{
		{Name: "A", URL: srv.URL + "/a"},
		{Name: "Broken", URL: srv.URL + "/broken"},
		{Name: "B", URL: srv.URL + "/b"},
	}, WithConcurrency(2), WithClock(func() time.Time { return now }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	items, err := f.Fetch(context.Background())
	require.NoError(t, err)
	titles := make([]string, len(items))
	for i, it := range items {
		titles[i] = it.Title
	}
	assert.Equal(t, []string{"A1", "A2", "B1"}, titles)
}

func TestFetchAllFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher([]Source{{Name: "X", URL: srv.URL}}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	_, err := f.Fetch(context.Background())
	assert.Error(t, err)
}
