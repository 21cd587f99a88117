package recommend

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wikiflow/wikiflow/pkg/domain"
	"github.com/wikiflow/wikiflow/pkg/filter"
)

// Source provides candidate articles and category lookups
type Source interface {
	FetchCategories(ctx context.Context, id, language string) ([]string, error)
	SearchByCategory(ctx context.Context, category, language string, limit int) ([]domain.Article, error)
	FetchFeatured(ctx context.Context, language string, limit int) ([]domain.Article, error)
	FetchRandom(ctx context.Context, language string) (*domain.Article, error)
}

// Cache stores category lookups and generated batches
type Cache interface {
	GetCategories(key string) ([]string, bool)
	SetCategories(key string, categories []string, language string)
	GetRecommendations(key string) ([]domain.Recommendation, bool)
	SetRecommendations(key string, recs []domain.Recommendation, language string) bool
}

// candidate scores: like-sourced candidates rank above the rest, fallback
// picks below both
const (
	scoreLikeSourced = 0.9
	scoreDefault     = 0.7
	scoreFallback    = 0.5
)

// Config holds engine tuning
type Config struct {
	MaxResults         int // cap on returned recommendations
	PerCategory        int // candidates fetched per category
	MinResults         int // below this the fallback pool tops up
	MaxErrors          int // above this the fallback pool tops up
	RecentInteractions int // distinct articles considered per run
}

// Engine turns recent interactions into a ranked recommendation batch.
// Generate never fails: individual lookup errors degrade the batch and the
// fallback pool covers low-signal runs.
type Engine struct {
	source Source
	cache  Cache
	model  *Model // nil disables live preference adjustment

	maxResults         int
	perCategory        int
	minResults         int
	maxErrors          int
	recentInteractions int

	sessionKey string
}

// NewEngine creates a recommendation engine with a fresh session identity.
// The model, when given, tracks each generated batch and biases cached reads
// with live feedback adjustments.
func NewEngine(source Source, cache Cache, model *Model, cfg Config) *Engine {
	if cfg.MaxResults == 0 {
		cfg.MaxResults = 10
	}
	if cfg.PerCategory == 0 {
		cfg.PerCategory = 2
	}
	if cfg.MinResults == 0 {
		cfg.MinResults = 3
	}
	if cfg.MaxErrors == 0 {
		cfg.MaxErrors = 2
	}
	if cfg.RecentInteractions == 0 {
		cfg.RecentInteractions = 5
	}
	return &Engine{
		source:             source,
		cache:              cache,
		model:              model,
		maxResults:         cfg.MaxResults,
		perCategory:        cfg.PerCategory,
		minResults:         cfg.MinResults,
		maxErrors:          cfg.MaxErrors,
		recentInteractions: cfg.RecentInteractions,
		sessionKey:         "session:" + uuid.New().String(),
	}
}

// Generate produces up to MaxResults recommendations from recent
// interactions, sorted descending by score, and caches the batch under the
// session key and the language-scoped fallback key
func (e *Engine) Generate(ctx context.Context, language string, interactions []domain.Interaction) []domain.Recommendation {
	recent := dedupeByArticle(interactions, e.recentInteractions)

	categoriesBySource, errorCount := e.resolveCategories(ctx, language, recent)

	seen := make(map[string]struct{})
	for _, in := range recent {
		seen[in.ArticleID] = struct{}{} // never recommend the source articles
	}

	recs := make([]domain.Recommendation, 0, e.maxResults)
	for i, in := range recent {
		if len(recs) >= e.maxResults {
			break
		}
		for _, category := range categoriesBySource[i] {
			if len(recs) >= e.maxResults {
				break
			}
			recs = append(recs, e.candidatesFor(ctx, language, category, in, seen, e.maxResults-len(recs))...)
		}
	}

	if errorCount > e.maxErrors || len(recs) < e.minResults {
		lgr.Printf("[INFO] low recommendation signal (%d results, %d errors), topping up from fallback pool", len(recs), errorCount)
		recs = e.topUp(ctx, language, recs, seen)
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	if len(recs) > e.maxResults {
		recs = recs[:e.maxResults]
	}

	stored := e.cache.SetRecommendations(e.sessionKey, recs, language)
	e.cache.SetRecommendations(FallbackKey(language), recs, language)
	if !stored {
		// the language switched mid-generation, the batch belongs to the
		// old language and must not bias the preference model
		lgr.Printf("[INFO] discarding stale %s recommendation batch after language switch", language)
		return recs
	}
	if e.model != nil {
		e.model.SetRecommendations(recs)
	}
	return recs
}

// Cached returns the current session batch if one is cached, re-ranked with
// any live preference adjustments accumulated since generation
func (e *Engine) Cached() ([]domain.Recommendation, bool) {
	recs, ok := e.cache.GetRecommendations(e.sessionKey)
	if !ok {
		return nil, false
	}
	if e.model != nil {
		recs = e.model.Adjusted(recs)
	}
	return recs, true
}

// FallbackKey is the language-scoped cache key low-signal runs draw from
func FallbackKey(language string) string {
	return "fallback:" + language
}

// resolveCategories finds usable categories for each interaction, cache
// first, then the source adapter. Failures are counted and skipped.
func (e *Engine) resolveCategories(ctx context.Context, language string, recent []domain.Interaction) (map[int][]string, int) {
	result := make(map[int][]string, len(recent))
	var mu sync.Mutex
	var errorCount int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)

	for i, in := range recent {
		g.Go(func() error {
			categories, err := e.categoriesOf(gctx, language, in)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lgr.Printf("[WARN] skipping interaction with %s: %v", in.ArticleID, err)
				errorCount++
				return nil // one failed lookup never aborts the batch
			}
			result[i] = categories
			return nil
		})
	}
	_ = g.Wait() // workers only report via the shared state

	return result, errorCount
}

func (e *Engine) categoriesOf(ctx context.Context, language string, in domain.Interaction) ([]string, error) {
	if len(in.Categories) > 0 {
		return filter.UsableCategories(in.Categories), nil
	}
	if cached, ok := e.cache.GetCategories(in.ArticleID); ok {
		return filter.UsableCategories(cached), nil
	}

	categories, err := e.source.FetchCategories(ctx, in.ArticleID, language)
	if err != nil {
		return nil, fmt.Errorf("resolve categories: %w", err)
	}
	e.cache.SetCategories(in.ArticleID, categories, language)
	return filter.UsableCategories(categories), nil
}

// candidatesFor queries one category for members and keeps those passing the
// recommendation validity check
func (e *Engine) candidatesFor(ctx context.Context, language, category string, source domain.Interaction, seen map[string]struct{}, limit int) []domain.Recommendation {
	if limit > e.perCategory {
		limit = e.perCategory
	}

	members, err := e.source.SearchByCategory(ctx, category, language, e.perCategory)
	if err != nil {
		lgr.Printf("[WARN] category %q lookup failed: %v", category, err)
		return nil
	}

	score := scoreDefault
	reason := fmt.Sprintf("More from %s", category)
	if source.Type == domain.InteractionLike {
		score = scoreLikeSourced
		reason = fmt.Sprintf("Because you liked an article in %s", category)
	}

	recs := make([]domain.Recommendation, 0, limit)
	for _, member := range members {
		if len(recs) >= limit {
			break
		}
		if _, dup := seen[member.ID]; dup {
			continue
		}
		if !filter.IsRecommendable(member) {
			continue
		}
		seen[member.ID] = struct{}{}
		recs = append(recs, makeRecommendation(member, score, reason))
	}
	return recs
}

// topUp extends a thin batch from the cached fallback pool, then from
// featured/random picks, never exceeding the cap
func (e *Engine) topUp(ctx context.Context, language string, recs []domain.Recommendation, seen map[string]struct{}) []domain.Recommendation {
	if cached, ok := e.cache.GetRecommendations(FallbackKey(language)); ok {
		for _, rec := range cached {
			if len(recs) >= e.maxResults {
				return recs
			}
			if _, dup := seen[rec.ArticleID]; dup {
				continue
			}
			seen[rec.ArticleID] = struct{}{}
			recs = append(recs, rec)
		}
	}

	featured, err := e.source.FetchFeatured(ctx, language, e.maxResults)
	if err != nil {
		lgr.Printf("[WARN] featured fallback failed: %v", err)
		featured = nil
	}
	for _, a := range featured {
		if len(recs) >= e.maxResults {
			return recs
		}
		if _, dup := seen[a.ID]; dup {
			continue
		}
		if !filter.IsRecommendable(a) {
			continue
		}
		seen[a.ID] = struct{}{}
		recs = append(recs, makeRecommendation(a, scoreFallback, "Popular today"))
	}

	// last resort: random picks to reach the minimum
	for attempt := 0; len(recs) < e.minResults && attempt < e.minResults*3; attempt++ {
		a, err := e.source.FetchRandom(ctx, language)
		if err != nil {
			continue
		}
		if _, dup := seen[a.ID]; dup {
			continue
		}
		if !filter.IsRecommendable(*a) {
			continue
		}
		seen[a.ID] = struct{}{}
		recs = append(recs, makeRecommendation(*a, scoreFallback, "Discover something new"))
	}
	return recs
}

// dedupeByArticle keeps the most recent interaction per article. Input is
// expected newest first, as the store returns it.
func dedupeByArticle(interactions []domain.Interaction, limit int) []domain.Interaction {
	seen := make(map[string]struct{}, limit)
	result := make([]domain.Interaction, 0, limit)
	for _, in := range interactions {
		if len(result) >= limit {
			break
		}
		if _, ok := seen[in.ArticleID]; ok {
			continue
		}
		seen[in.ArticleID] = struct{}{}
		result = append(result, in)
	}
	return result
}

func makeRecommendation(a domain.Article, score float64, reason string) domain.Recommendation {
	a.Score = score
	a.IsRecommendation = true
	return domain.Recommendation{
		ArticleID: a.ID,
		Score:     score,
		Reason:    reason,
		Language:  a.Language,
		Article:   a,
		Metadata: domain.RecommendationMetadata{
			Title:       a.Title,
			Categories:  a.Categories,
			Excerpt:     a.Excerpt,
			Thumbnail:   a.Thumbnail,
			ReadingTime: readingTime(a),
		},
	}
}

// readingTime estimates minutes to read at ~200 words per minute
func readingTime(a domain.Article) int {
	words := len(a.Content) / 6 // rough chars-per-word estimate
	minutes := words / 200
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
