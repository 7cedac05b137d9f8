package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/curator/internal/cache"
	"github.com/deusflow/curator/internal/metrics"
)

func TestParseDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	day, err := parseDay("", now)
	require.NoError(t, err)
	assert.Equal(t, now, day)

	day, err = parseDay("2026-02-01", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01", day.Format("2006-01-02"))

	_, err = parseDay("01/02/2026", now)
	assert.Error(t, err)
}

func TestHealthHandler(t *testing.T) {
	m := metrics.New()

	rec := httptest.NewRecorder()
	healthHandler(m)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	m.SetError("fetch failed")
	rec = httptest.NewRecorder()
	healthHandler(m)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "fetch failed", body["last_error"])
}

func TestMetricsHandler(t *testing.T) {
	m := metrics.New()
	m.AddFetched(3)

	rec := httptest.NewRecorder()
	metricsHandler(m)(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body["items_fetched"])
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "learn", "select", "cache"} {
		assert.True(t, names[want], want)
	}
}

func TestCheckStore(t *testing.T) {
	store := cache.NewMemory(time.Minute, time.Now)
	var out bytes.Buffer

	require.NoError(t, checkStore(context.Background(), store, &out))
	assert.Contains(t, out.String(), "ready")
	assert.Equal(t, 0, store.Len())
}
