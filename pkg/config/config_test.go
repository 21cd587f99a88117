package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "file:wikiflow.db?cache=shared&mode=rwc&_txlock=immediate", cfg.Database.DSN)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, "https://{lang}.wikipedia.org", cfg.Wikipedia.BaseURL)
	assert.Equal(t, 300*time.Millisecond, cfg.Wikipedia.Throttle)
	assert.Equal(t, 3, cfg.Wikipedia.Attempts)
	assert.Equal(t, 50, cfg.Buffer.Capacity)
	assert.Equal(t, 10, cfg.Buffer.LowWater)
	assert.Equal(t, 30*time.Minute, cfg.Cache.ArticleTTL)
	assert.Equal(t, 60*time.Minute, cfg.Cache.CategoryTTL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.ImageTTL)
	assert.Equal(t, 15*time.Minute, cfg.Cache.RecommendationTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SweepInterval)
	assert.Equal(t, 10, cfg.Recommend.MaxResults)
	assert.Equal(t, 2, cfg.Recommend.PerCategory)
	assert.Equal(t, 3, cfg.Feed.RecommendationInterval)
	assert.Equal(t, 30, cfg.Feed.AdOffset)
	assert.Equal(t, 50, cfg.Feed.AdInterval)
	assert.Equal(t, time.Second, cfg.Interactions.Debounce)
	assert.Equal(t, 2*time.Second, cfg.Interactions.ViewSpacing)
	assert.Equal(t, 30*24*time.Hour, cfg.Interactions.RetentionAge)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  listen: ":9090"
  timeout: 10s
language: fr
wikipedia:
  throttle: 500ms
buffer:
  capacity: 100
  low_water: 20
cache:
  article_ttl: 1h
recommend:
  max_results: 5
feed:
  recommendation_interval: 4
`))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, 10*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "fr", cfg.Language)
	assert.Equal(t, 500*time.Millisecond, cfg.Wikipedia.Throttle)
	assert.Equal(t, 100, cfg.Buffer.Capacity)
	assert.Equal(t, 20, cfg.Buffer.LowWater)
	assert.Equal(t, time.Hour, cfg.Cache.ArticleTTL)
	assert.Equal(t, 5, cfg.Recommend.MaxResults)
	assert.Equal(t, 4, cfg.Feed.RecommendationInterval)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("WIKIFLOW_LISTEN", ":3000")
	t.Setenv("WIKIFLOW_DSN", "file:test.db")

	cfg, err := Load(writeConfig(t, `
server:
  listen: "${WIKIFLOW_LISTEN}"
database:
  dsn: "${WIKIFLOW_DSN}"
`))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.Listen)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unsupported language",
			yaml:    "language: tlh",
			wantErr: "not supported",
		},
		{
			name:    "missing lang placeholder",
			yaml:    "wikipedia:\n  base_url: https://en.wikipedia.org",
			wantErr: "{lang} placeholder",
		},
		{
			name:    "low water above capacity",
			yaml:    "buffer:\n  capacity: 5\n  low_water: 10",
			wantErr: "low_water",
		},
		{
			name:    "short server timeout",
			yaml:    "server:\n  timeout: 100ms",
			wantErr: "at least 1 second",
		},
		{
			name:    "min above max results",
			yaml:    "recommend:\n  min_results: 20",
			wantErr: "min_results",
		},
		{
			name:    "view spacing below debounce",
			yaml:    "interactions:\n  debounce: 3s\n  view_spacing: 1s",
			wantErr: "view_spacing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [not a map"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})
}
