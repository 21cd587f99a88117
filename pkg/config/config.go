// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wikiflow/wikiflow/pkg/domain"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:wikiflow.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Language string `yaml:"language" json:"language" jsonschema:"default=en,description=Initial content language"`

	Wikipedia WikipediaConfig `yaml:"wikipedia" json:"wikipedia" jsonschema:"description=Upstream article source configuration"`

	Buffer struct {
		Capacity  int `yaml:"capacity" json:"capacity" jsonschema:"default=50,description=Hard cap on buffered articles"`
		LowWater  int `yaml:"low_water" json:"low_water" jsonschema:"default=10,description=Refill threshold"`
		FillBatch int `yaml:"fill_batch" json:"fill_batch" jsonschema:"default=10,description=Articles fetched per refill"`
	} `yaml:"buffer" json:"buffer" jsonschema:"description=Article buffer configuration"`

	Cache CacheConfig `yaml:"cache" json:"cache" jsonschema:"description=Tiered cache TTLs"`

	Recommend struct {
		MaxResults         int           `yaml:"max_results" json:"max_results" jsonschema:"default=10,description=Cap on recommendations per batch"`
		PerCategory        int           `yaml:"per_category" json:"per_category" jsonschema:"default=2,description=Candidates kept per category"`
		MinResults         int           `yaml:"min_results" json:"min_results" jsonschema:"default=3,description=Below this the fallback pool tops up"`
		MaxErrors          int           `yaml:"max_errors" json:"max_errors" jsonschema:"default=2,description=Lookup failures tolerated before falling back"`
		RecentInteractions int           `yaml:"recent_interactions" json:"recent_interactions" jsonschema:"default=5,description=Distinct articles considered per run"`
		RefreshInterval    time.Duration `yaml:"refresh_interval" json:"refresh_interval" jsonschema:"default=15m,description=Batch regeneration cadence"`
	} `yaml:"recommend" json:"recommend" jsonschema:"description=Recommendation engine configuration"`

	Feed struct {
		RecommendationInterval int `yaml:"recommendation_interval" json:"recommendation_interval" jsonschema:"default=3,description=Insert a recommendation every N feed positions"`
		AdOffset               int `yaml:"ad_offset" json:"ad_offset" jsonschema:"default=30,description=First feed position eligible for an ad slot"`
		AdInterval             int `yaml:"ad_interval" json:"ad_interval" jsonschema:"default=50,description=Spacing between ad slots after the offset"`
	} `yaml:"feed" json:"feed" jsonschema:"description=Feed interleave cadence"`

	Interactions struct {
		Debounce        time.Duration `yaml:"debounce" json:"debounce" jsonschema:"default=1s,description=Drop window for repeated interactions"`
		ViewSpacing     time.Duration `yaml:"view_spacing" json:"view_spacing" jsonschema:"default=2s,description=Minimum spacing between views of the same article"`
		RetentionAge    time.Duration `yaml:"retention_age" json:"retention_age" jsonschema:"default=720h,description=Interactions older than this are removed"`
		CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval" jsonschema:"default=1h,description=Interaction cleanup cadence"`
	} `yaml:"interactions" json:"interactions" jsonschema:"description=Interaction recorder configuration"`
}

// WikipediaConfig holds upstream client settings
type WikipediaConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url" jsonschema:"default=https://{lang}.wikipedia.org,description=Upstream base URL with {lang} placeholder"`
	UserAgent string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=Wikiflow/1.0,description=User agent for upstream requests"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=15s,description=Request timeout"`
	Throttle  time.Duration `yaml:"throttle" json:"throttle" jsonschema:"default=300ms,description=Minimum spacing between upstream requests"`
	Attempts  int           `yaml:"attempts" json:"attempts" jsonschema:"default=3,description=Retry attempts per request"`
	BaseDelay time.Duration `yaml:"base_delay" json:"base_delay" jsonschema:"default=500ms,description=Initial retry backoff delay"`
}

// CacheConfig holds per-type TTLs and the sweep cadence
type CacheConfig struct {
	ArticleTTL        time.Duration `yaml:"article_ttl" json:"article_ttl" jsonschema:"default=30m,description=TTL for cached articles"`
	CategoryTTL       time.Duration `yaml:"category_ttl" json:"category_ttl" jsonschema:"default=60m,description=TTL for cached category lists"`
	SummaryTTL        time.Duration `yaml:"summary_ttl" json:"summary_ttl" jsonschema:"default=15m,description=TTL for cached summaries"`
	ImageTTL          time.Duration `yaml:"image_ttl" json:"image_ttl" jsonschema:"default=24h,description=TTL for cached image URLs"`
	RecommendationTTL time.Duration `yaml:"recommendation_ttl" json:"recommendation_ttl" jsonschema:"default=15m,description=TTL for cached recommendation batches"`
	SweepInterval     time.Duration `yaml:"sweep_interval" json:"sweep_interval" jsonschema:"default=5m,description=Background eviction cadence"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

func (cfg *Config) setDefaults() {
	// server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// database
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:wikiflow.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	if cfg.Language == "" {
		cfg.Language = "en"
	}

	// upstream source
	if cfg.Wikipedia.BaseURL == "" {
		cfg.Wikipedia.BaseURL = "https://{lang}.wikipedia.org"
	}
	if cfg.Wikipedia.UserAgent == "" {
		cfg.Wikipedia.UserAgent = "Wikiflow/1.0"
	}
	if cfg.Wikipedia.Timeout == 0 {
		cfg.Wikipedia.Timeout = 15 * time.Second
	}
	if cfg.Wikipedia.Throttle == 0 {
		cfg.Wikipedia.Throttle = 300 * time.Millisecond
	}
	if cfg.Wikipedia.Attempts == 0 {
		cfg.Wikipedia.Attempts = 3
	}
	if cfg.Wikipedia.BaseDelay == 0 {
		cfg.Wikipedia.BaseDelay = 500 * time.Millisecond
	}

	// buffer
	if cfg.Buffer.Capacity == 0 {
		cfg.Buffer.Capacity = 50
	}
	if cfg.Buffer.LowWater == 0 {
		cfg.Buffer.LowWater = 10
	}
	if cfg.Buffer.FillBatch == 0 {
		cfg.Buffer.FillBatch = 10
	}

	// cache TTLs
	if cfg.Cache.ArticleTTL == 0 {
		cfg.Cache.ArticleTTL = 30 * time.Minute
	}
	if cfg.Cache.CategoryTTL == 0 {
		cfg.Cache.CategoryTTL = 60 * time.Minute
	}
	if cfg.Cache.SummaryTTL == 0 {
		cfg.Cache.SummaryTTL = 15 * time.Minute
	}
	if cfg.Cache.ImageTTL == 0 {
		cfg.Cache.ImageTTL = 24 * time.Hour
	}
	if cfg.Cache.RecommendationTTL == 0 {
		cfg.Cache.RecommendationTTL = 15 * time.Minute
	}
	if cfg.Cache.SweepInterval == 0 {
		cfg.Cache.SweepInterval = 5 * time.Minute
	}

	// recommendations
	if cfg.Recommend.MaxResults == 0 {
		cfg.Recommend.MaxResults = 10
	}
	if cfg.Recommend.PerCategory == 0 {
		cfg.Recommend.PerCategory = 2
	}
	if cfg.Recommend.MinResults == 0 {
		cfg.Recommend.MinResults = 3
	}
	if cfg.Recommend.MaxErrors == 0 {
		cfg.Recommend.MaxErrors = 2
	}
	if cfg.Recommend.RecentInteractions == 0 {
		cfg.Recommend.RecentInteractions = 5
	}
	if cfg.Recommend.RefreshInterval == 0 {
		cfg.Recommend.RefreshInterval = 15 * time.Minute
	}

	// feed cadence
	if cfg.Feed.RecommendationInterval == 0 {
		cfg.Feed.RecommendationInterval = 3
	}
	if cfg.Feed.AdOffset == 0 {
		cfg.Feed.AdOffset = 30
	}
	if cfg.Feed.AdInterval == 0 {
		cfg.Feed.AdInterval = 50
	}

	// interactions
	if cfg.Interactions.Debounce == 0 {
		cfg.Interactions.Debounce = time.Second
	}
	if cfg.Interactions.ViewSpacing == 0 {
		cfg.Interactions.ViewSpacing = 2 * time.Second
	}
	if cfg.Interactions.RetentionAge == 0 {
		cfg.Interactions.RetentionAge = 30 * 24 * time.Hour
	}
	if cfg.Interactions.CleanupInterval == 0 {
		cfg.Interactions.CleanupInterval = time.Hour
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	if !domain.IsSupportedLanguage(cfg.Language) {
		return fmt.Errorf("language %q is not supported", cfg.Language)
	}

	if !strings.Contains(cfg.Wikipedia.BaseURL, "{lang}") {
		return fmt.Errorf("wikipedia.base_url must contain the {lang} placeholder")
	}
	if cfg.Wikipedia.Attempts < 1 {
		return fmt.Errorf("wikipedia.attempts must be at least 1")
	}

	if cfg.Buffer.LowWater >= cfg.Buffer.Capacity {
		return fmt.Errorf("buffer.low_water must be below buffer.capacity")
	}
	if cfg.Buffer.FillBatch < 1 {
		return fmt.Errorf("buffer.fill_batch must be at least 1")
	}

	if cfg.Recommend.MinResults > cfg.Recommend.MaxResults {
		return fmt.Errorf("recommend.min_results must not exceed recommend.max_results")
	}

	if cfg.Feed.RecommendationInterval < 1 {
		return fmt.Errorf("feed.recommendation_interval must be at least 1")
	}
	if cfg.Feed.AdInterval < 1 {
		return fmt.Errorf("feed.ad_interval must be at least 1")
	}

	if cfg.Interactions.ViewSpacing < cfg.Interactions.Debounce {
		return fmt.Errorf("interactions.view_spacing must not be below interactions.debounce")
	}

	return nil
}
