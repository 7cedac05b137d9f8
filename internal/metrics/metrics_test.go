package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountersAndStats(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AddFetched(2)
			m.AddClassified("headline", 1)
			m.RecordCache(i%2 == 0)
		}()
	}
	wg.Wait()

	m.AddScored(15, 5)
	m.RecordProcessingTime(2 * time.Second)
	m.RecordProcessingTime(4 * time.Second)

	stats := m.GetStats()
	assert.Equal(t, int64(20), stats["items_fetched"])
	assert.Equal(t, int64(5), stats["items_excluded"])
	assert.Equal(t, map[string]int64{"headline": 10}, stats["classified"])
	assert.Equal(t, int64(5), stats["cache_hits"])
	assert.Equal(t, int64(3000), stats["average_processing_time_ms"])
}

func TestHealth(t *testing.T) {
	m := New()
	assert.True(t, m.Healthy())
	m.SetError("boom")
	assert.False(t, m.Healthy())
	m.SetLastRun("run-1")
	assert.True(t, m.Healthy())
	assert.Equal(t, "run-1", m.GetStats()["last_run_id"])
}
