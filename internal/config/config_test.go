package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/curator/internal/news"
	"github.com/deusflow/curator/internal/scoring"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OUTPUT_DIR", "RULES_PATH", "SOURCES_PATH", "CACHE_BACKEND", "CACHE_DIR",
		"CACHE_TTL_SECONDS", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "DATABASE_URL",
		"GEMINI_API_KEY", "GEMINI_MODEL", "USE_SENTIMENT_API", "MAX_GEMINI_REQUESTS",
		"SENTIMENT_TIMEOUT_SECONDS", "FETCH_CONCURRENCY", "FETCH_TIMEOUT_SECONDS",
		"MAX_AGE_DAYS", "PERSONALIZE", "LOG_LEVEL", "DEBUG", "ENABLE_HTTP_MONITORING",
		"MONITORING_PORT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, "output/cache", cfg.CacheDir)
	assert.Equal(t, "file", cfg.CacheBackend)
	assert.Equal(t, 1800*time.Second, cfg.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.SentimentTimeout)
	assert.Equal(t, 7*24*time.Hour, cfg.MaxAge)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.SentimentEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SENTIMENT_TIMEOUT_SECONDS", "2.5")
	t.Setenv("PERSONALIZE", "true")
	t.Setenv("DEBUG", "true")
	t.Setenv("FETCH_CONCURRENCY", "not-a-number")
	t.Setenv("USE_SENTIMENT_API", "1")
	t.Setenv("GEMINI_API_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.Equal(t, 2500*time.Millisecond, cfg.SentimentTimeout)
	assert.True(t, cfg.Personalize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.FetchConcurrency)
	assert.True(t, cfg.SentimentEnabled())
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"CACHE_BACKEND": "s3"}},
		{"redis without addr", map[string]string{"CACHE_BACKEND": "redis"}},
		{"postgres without url", map[string]string{"CACHE_BACKEND": "postgres"}},
		{"zero concurrency", map[string]string{"FETCH_CONCURRENCY": "0"}},
		{"oracle without key", map[string]string{"USE_SENTIMENT_API": "true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRulesEmptyPathReturnsDefaults(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}

func TestLoadRulesOverridesOnlyGivenFields(t *testing.T) {
	path := writeRules(t, `
topics:
  - name: chips
    keywords: [GPU, semiconductor]
    category: hardware
    weight: 1.75
region:
  boost: 1.5
sections:
  headline:
    quota: 5
  grain_quality:
    enabled: false
sentiment:
  tolerance: 0.2
`)
	rules, err := LoadRules(path)
	require.NoError(t, err)

	require.Len(t, rules.Topics, 1)
	assert.Equal(t, "1.75", rules.Topics[0].Weight)
	assert.Equal(t, DefaultRules().Region.Keywords, rules.Region.Keywords)
	assert.Equal(t, 1.5, rules.Region.Boost)

	p := rules.SelectionPolicy()
	assert.Equal(t, 5, p.Quotas[news.SectionLead])
	assert.Equal(t, 2, p.Quotas[news.SectionPositive])
	assert.False(t, p.VerticalEnabled)
	assert.Equal(t, 0.6, p.GovernanceRatio)
	assert.NotEmpty(t, p.GovernanceKeywords)

	st := rules.SentimentTargets()
	assert.Equal(t, 0.2, st.Tolerance)
	assert.Equal(t, 0.35, st.Positive)
}

func TestLoadRulesMappingTopics(t *testing.T) {
	path := writeRules(t, `
topics:
  robotics:
    keywords: [robot]
    weight: "1.2"
  agents:
    keywords: [agent]
    weight: abc
`)
	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules.Topics, 2)
	assert.Equal(t, "robotics", rules.Topics[0].Name)
	assert.Equal(t, "agents", rules.Topics[1].Name)

	sr := rules.ScoringRules()
	assert.Equal(t, "abc", sr.Topics[1].Weight)
	sr.Topics[0].Name = "changed"
	assert.Equal(t, "robotics", rules.Topics[0].Name)
}

func TestMappingTopicsTieGoesToFirstInFile(t *testing.T) {
	path := writeRules(t, `
topics:
  zeta:
    keywords: [humanoid]
    category: robotics
    weight: "1.0"
  alpha:
    keywords: [launch]
    category: general
    weight: "1.0"
`)
	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules.Topics, 2)
	assert.Equal(t, "zeta", rules.Topics[0].Name)

	e := scoring.NewEngine(rules.ScoringRules())
	_, cat := e.TopicScore("humanoid launch")
	assert.Equal(t, "robotics", cat)
}

func TestLoadRulesErrors(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadRules(writeRules(t, "topics: 3\n"))
	assert.Error(t, err)

	_, err = LoadRules(writeRules(t, "sections:\n  headline:\n    governance_ratio: 1.5\n"))
	assert.Error(t, err)
}

func TestSampleRulesMatchDefaults(t *testing.T) {
	rules, err := LoadRules(filepath.Join("..", "..", "configs", "rules.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}
