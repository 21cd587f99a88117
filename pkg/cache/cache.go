// Package cache implements the tiered article cache: a language-tagged
// in-memory tier with per-type TTLs backed by an optional persistent store.
// Caching is always best-effort; persistent tier failures are logged and
// surface to callers as misses.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/wikiflow/wikiflow/pkg/domain"
)

// Namespace identifies one cache type with its own TTL
type Namespace string

// cache namespaces, one per cached value type
const (
	NamespaceArticles        Namespace = "articles"
	NamespaceCategories      Namespace = "categories"
	NamespaceSummaries       Namespace = "summaries"
	NamespaceImages          Namespace = "images"
	NamespaceRecommendations Namespace = "recommendations"
)

// Backend is the persistent tier. Implementations must be best-effort:
// a miss is (nil, nil), errors are recoverable and treated as misses.
type Backend interface {
	GetCache(ctx context.Context, namespace, key string) ([]byte, error)
	PutCache(ctx context.Context, namespace, key string, value []byte) error
}

// NopBackend is a persistent tier that stores nothing, for running without
// durable storage
type NopBackend struct{}

// GetCache always misses
func (NopBackend) GetCache(context.Context, string, string) ([]byte, error) { return nil, nil }

// PutCache discards the value
func (NopBackend) PutCache(context.Context, string, string, []byte) error { return nil }

// Config holds cache TTLs and the sweep interval
type Config struct {
	ArticleTTL        time.Duration
	CategoryTTL       time.Duration
	SummaryTTL        time.Duration
	ImageTTL          time.Duration
	RecommendationTTL time.Duration
	SweepInterval     time.Duration
}

type entry struct {
	data      any
	timestamp time.Time
	language  string
}

// Cache is the tiered cache. All access goes through its methods; the zero
// value is not usable, construct with New.
type Cache struct {
	backend       Backend
	ttls          map[Namespace]time.Duration
	sweepInterval time.Duration

	mu       sync.Mutex
	language string
	tiers    map[Namespace]map[string]entry

	now func() time.Time // replaceable in tests
}

// New creates a cache for the given active language. A nil backend disables
// the persistent tier.
func New(cfg Config, language string, backend Backend) *Cache {
	if cfg.ArticleTTL == 0 {
		cfg.ArticleTTL = 30 * time.Minute
	}
	if cfg.CategoryTTL == 0 {
		cfg.CategoryTTL = 60 * time.Minute
	}
	if cfg.SummaryTTL == 0 {
		cfg.SummaryTTL = 15 * time.Minute
	}
	if cfg.ImageTTL == 0 {
		cfg.ImageTTL = 24 * time.Hour
	}
	if cfg.RecommendationTTL == 0 {
		cfg.RecommendationTTL = 15 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	if backend == nil {
		backend = NopBackend{}
	}

	c := &Cache{
		backend: backend,
		ttls: map[Namespace]time.Duration{
			NamespaceArticles:        cfg.ArticleTTL,
			NamespaceCategories:      cfg.CategoryTTL,
			NamespaceSummaries:       cfg.SummaryTTL,
			NamespaceImages:          cfg.ImageTTL,
			NamespaceRecommendations: cfg.RecommendationTTL,
		},
		sweepInterval: cfg.SweepInterval,
		language:      language,
		now:           time.Now,
	}
	c.resetTiers()
	return c
}

// Run starts the background sweep loop and blocks until the context is done
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := c.Sweep()
			if evicted > 0 {
				lgr.Printf("[DEBUG] cache sweep evicted %d entries", evicted)
			}
		}
	}
}

// Sweep evicts expired entries from all in-memory tiers and returns the
// number of evictions
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for ns, tier := range c.tiers {
		ttl := c.ttls[ns]
		for key, e := range tier {
			if now.Sub(e.timestamp) >= ttl {
				delete(tier, key)
				evicted++
			}
		}
	}
	return evicted
}

// Language returns the currently active language
func (c *Cache) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language
}

// ChangeLanguage switches the active language, wiping every in-memory tier.
// This is the only sanctioned way to change the cache language. No-op when
// the language is unchanged.
func (c *Cache) ChangeLanguage(language string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if language == c.language {
		return
	}
	lgr.Printf("[INFO] cache language change %s -> %s, clearing in-memory tiers", c.language, language)
	c.language = language
	c.resetTiers()
}

// GetArticle returns a cached article, consulting the persistent tier on a
// memory miss and promoting hits
func (c *Cache) GetArticle(ctx context.Context, key string) (*domain.Article, bool) {
	if v, ok := c.lookup(NamespaceArticles, key); ok {
		a := v.(domain.Article)
		return &a, true
	}

	raw := c.fromBackend(ctx, NamespaceArticles, key)
	if raw == nil {
		return nil, false
	}
	var a domain.Article
	if err := json.Unmarshal(raw, &a); err != nil {
		lgr.Printf("[WARN] discarding unreadable cached article %q: %v", key, err)
		return nil, false
	}
	c.store(NamespaceArticles, key, a, a.Language) // promote, already persisted
	return &a, true
}

// SetArticle caches an article under the given key, writing through to the
// persistent tier. Silently ignored when the article language does not match
// the active one.
func (c *Cache) SetArticle(ctx context.Context, key string, a domain.Article) {
	if !c.store(NamespaceArticles, key, a, a.Language) {
		return
	}
	c.toBackend(ctx, NamespaceArticles, key, a)
}

// GetCategories returns cached categories for an article
func (c *Cache) GetCategories(key string) ([]string, bool) {
	v, ok := c.lookup(NamespaceCategories, key)
	if !ok {
		return nil, false
	}
	return v.([]string), true
}

// SetCategories caches categories for an article in the given language
func (c *Cache) SetCategories(key string, categories []string, language string) {
	c.store(NamespaceCategories, key, categories, language)
}

// GetSummary returns a cached article summary
func (c *Cache) GetSummary(key string) (string, bool) {
	v, ok := c.lookup(NamespaceSummaries, key)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// SetSummary caches an article summary in the given language
func (c *Cache) SetSummary(key, summary, language string) {
	c.store(NamespaceSummaries, key, summary, language)
}

// GetImageURL returns a cached image URL, consulting the persistent tier on
// a memory miss
func (c *Cache) GetImageURL(ctx context.Context, key string) (string, bool) {
	if v, ok := c.lookup(NamespaceImages, key); ok {
		return v.(string), true
	}

	raw := c.fromBackend(ctx, NamespaceImages, key)
	if raw == nil {
		return "", false
	}
	var url string
	if err := json.Unmarshal(raw, &url); err != nil {
		return "", false
	}
	c.mu.Lock()
	lang := c.language
	c.mu.Unlock()
	c.store(NamespaceImages, key, url, lang)
	return url, true
}

// SetImageURL caches an image URL, writing through to the persistent tier
func (c *Cache) SetImageURL(ctx context.Context, key, url, language string) {
	if !c.store(NamespaceImages, key, url, language) {
		return
	}
	c.toBackend(ctx, NamespaceImages, key, url)
}

// GetRecommendations returns a cached recommendation batch
func (c *Cache) GetRecommendations(key string) ([]domain.Recommendation, bool) {
	v, ok := c.lookup(NamespaceRecommendations, key)
	if !ok {
		return nil, false
	}
	return v.([]domain.Recommendation), true
}

// SetRecommendations caches a recommendation batch in the given language.
// Returns false when the batch was dropped by the language gate, so callers
// can avoid acting on a stale batch.
func (c *Cache) SetRecommendations(key string, recs []domain.Recommendation, language string) bool {
	return c.store(NamespaceRecommendations, key, recs, language)
}

// lookup checks the in-memory tier, evicting the entry when expired or
// tagged with a stale language
func (c *Cache) lookup(ns Namespace, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.tiers[ns][key]
	if !ok {
		return nil, false
	}
	if e.language != c.language || c.now().Sub(e.timestamp) >= c.ttls[ns] {
		delete(c.tiers[ns], key)
		return nil, false
	}
	return e.data, true
}

// store writes to the in-memory tier. Returns false without storing when the
// value language does not match the active language, which discards results
// of requests issued before a language switch completed.
func (c *Cache) store(ns Namespace, key string, data any, language string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if language != c.language {
		lgr.Printf("[DEBUG] cache set %s/%s dropped, language %q != active %q", ns, key, language, c.language)
		return false
	}
	c.tiers[ns][key] = entry{data: data, timestamp: c.now(), language: language}
	return true
}

// fromBackend reads the persistent tier for the active language, returning
// nil on miss or failure
func (c *Cache) fromBackend(ctx context.Context, ns Namespace, key string) []byte {
	raw, err := c.backend.GetCache(ctx, string(ns), c.backendKey(key))
	if err != nil {
		lgr.Printf("[WARN] persistent cache read %s/%s failed: %v", ns, key, err)
		return nil
	}
	return raw
}

// toBackend writes the persistent tier, best-effort
func (c *Cache) toBackend(ctx context.Context, ns Namespace, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		lgr.Printf("[WARN] persistent cache marshal %s/%s failed: %v", ns, key, err)
		return
	}
	if err := c.backend.PutCache(ctx, string(ns), c.backendKey(key), raw); err != nil {
		lgr.Printf("[WARN] persistent cache write %s/%s failed: %v", ns, key, err)
	}
}

// backendKey namespaces persistent keys by language so entries survive
// language switches without colliding
func (c *Cache) backendKey(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language + ":" + key
}

func (c *Cache) resetTiers() {
	c.tiers = map[Namespace]map[string]entry{
		NamespaceArticles:        {},
		NamespaceCategories:      {},
		NamespaceSummaries:       {},
		NamespaceImages:          {},
		NamespaceRecommendations: {},
	}
}
