// Package buffer maintains the bounded look-ahead queue of validated
// articles that masks upstream latency.
package buffer

import (
	"context"
	"sync"

	"github.com/go-pkgz/lgr"

	"github.com/wikiflow/wikiflow/pkg/domain"
	"github.com/wikiflow/wikiflow/pkg/filter"
)

// Source fetches candidate articles for the buffer
type Source interface {
	FetchRandom(ctx context.Context, language string) (*domain.Article, error)
}

// Config holds buffer tuning
type Config struct {
	Capacity  int // hard cap on buffered articles
	LowWater  int // refill threshold
	FillBatch int // articles requested per refill
}

// Manager owns the look-ahead queue for the active language. Fills never run
// concurrently; a latch makes a second fill request a no-op while one is in
// flight.
type Manager struct {
	source    Source
	capacity  int
	lowWater  int
	fillBatch int

	mu       sync.Mutex
	language string
	queue    []domain.Article
	filling  bool
}

// NewManager creates a buffer manager for the given language
func NewManager(source Source, cfg Config, language string) *Manager {
	if cfg.Capacity == 0 {
		cfg.Capacity = 50
	}
	if cfg.LowWater == 0 {
		cfg.LowWater = 10
	}
	if cfg.FillBatch == 0 {
		cfg.FillBatch = 10
	}
	return &Manager{
		source:    source,
		capacity:  cfg.Capacity,
		lowWater:  cfg.LowWater,
		fillBatch: cfg.FillBatch,
		language:  language,
	}
}

// Len returns the current queue length
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Language returns the buffer's active language
func (m *Manager) Language() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.language
}

// Reset clears the queue and switches the active language. In-flight fill
// results for the previous language are discarded on arrival.
func (m *Manager) Reset(language string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if language == m.language {
		return
	}
	lgr.Printf("[INFO] buffer reset %s -> %s, dropping %d articles", m.language, language, len(m.queue))
	m.language = language
	m.queue = nil
}

// Drain pops up to n articles from the queue head. When the remaining queue
// falls below the low-water mark a refill is triggered asynchronously.
func (m *Manager) Drain(ctx context.Context, n int) []domain.Article {
	m.mu.Lock()
	if n > len(m.queue) {
		n = len(m.queue)
	}
	out := make([]domain.Article, n)
	copy(out, m.queue[:n])
	m.queue = append([]domain.Article(nil), m.queue[n:]...)
	needsFill := len(m.queue) < m.lowWater
	batch := m.fillBatch
	m.mu.Unlock()

	if needsFill {
		// refill must not die with the caller's request
		fillCtx := context.WithoutCancel(ctx)
		go m.RequestFill(fillCtx, batch)
	}
	return out
}

// RequestFill fetches up to n candidates and appends those passing the
// quality and diversity checks. A no-op when a fill is already running.
func (m *Manager) RequestFill(ctx context.Context, n int) {
	m.mu.Lock()
	if m.filling {
		m.mu.Unlock()
		return
	}
	m.filling = true
	language := m.language
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.filling = false
		m.mu.Unlock()
	}()

	accepted := 0
	// allow a few extra fetches to compensate for rejected candidates
	for attempt := 0; accepted < n && attempt < n*3; attempt++ {
		if ctx.Err() != nil {
			return
		}

		article, err := m.source.FetchRandom(ctx, language)
		if err != nil {
			lgr.Printf("[DEBUG] buffer fill fetch failed: %v", err)
			continue
		}
		if !filter.IsAcceptable(*article) {
			continue
		}
		added, stale := m.append(*article, language)
		if stale {
			return // language changed mid-fill, stop
		}
		if added {
			accepted++
		}
	}

	if accepted > 0 {
		lgr.Printf("[DEBUG] buffer filled with %d articles, length %d", accepted, m.Len())
	}
}

// append adds one validated article to the tail, trimming the head when over
// capacity. stale reports that the buffer language no longer matches.
func (m *Manager) append(article domain.Article, language string) (added, stale bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.language != language {
		lgr.Printf("[DEBUG] dropping stale %s article %q after language change", language, article.Title)
		return false, true
	}
	if !filter.IsDiverse(article, m.queue) {
		return false, false // rejected but the fill goes on
	}

	m.queue = append(m.queue, article)
	if over := len(m.queue) - m.capacity; over > 0 {
		m.queue = append([]domain.Article(nil), m.queue[over:]...)
	}
	return true, false
}
