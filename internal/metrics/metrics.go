// Package metrics keeps pipeline counters for the monitoring endpoint.
package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ItemsFetched      int64
	DuplicatesDropped int64
	ItemsExcluded     int64
	ItemsScored       int64
	ItemsSelected     int64
	Classified        map[string]int64
	OracleCalls       int64
	OracleFallbacks   int64
	CacheHits         int64
	CacheMisses       int64
	Runs              int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration

	// Status
	LastRunID     string
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

func New() *Metrics {
	return &Metrics{IsHealthy: true, Classified: map[string]int64{}}
}

func (m *Metrics) AddFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsFetched += int64(n)
}

func (m *Metrics) AddDuplicates(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesDropped += int64(n)
}

func (m *Metrics) AddScored(scored, excluded int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsScored += int64(scored)
	m.ItemsExcluded += int64(excluded)
}

func (m *Metrics) AddClassified(section string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Classified[section] += int64(n)
}

func (m *Metrics) AddOracle(calls, fallbacks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OracleCalls += int64(calls)
	m.OracleFallbacks += int64(fallbacks)
}

func (m *Metrics) AddSelected(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsSelected += int64(n)
}

func (m *Metrics) RecordCache(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.CacheHits++
	} else {
		m.CacheMisses++
	}
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.Runs++
	m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.Runs)
}

func (m *Metrics) SetLastRun(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunID = runID
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	classified := make(map[string]int64, len(m.Classified))
	for k, v := range m.Classified {
		classified[k] = v
	}
	return map[string]interface{}{
		"items_fetched":              m.ItemsFetched,
		"duplicates_dropped":         m.DuplicatesDropped,
		"items_excluded":             m.ItemsExcluded,
		"items_scored":               m.ItemsScored,
		"items_selected":             m.ItemsSelected,
		"classified":                 classified,
		"oracle_calls":               m.OracleCalls,
		"oracle_fallbacks":           m.OracleFallbacks,
		"cache_hits":                 m.CacheHits,
		"cache_misses":               m.CacheMisses,
		"runs":                       m.Runs,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_id":                m.LastRunID,
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
