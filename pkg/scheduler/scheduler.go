// Package scheduler runs the background contexts: a loader worker feeding the
// article buffer, a recommendation worker regenerating ranked batches, and a
// periodic interaction log cleanup. Callers talk to the workers through tagged
// messages over channels, never through shared state.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/wikiflow/wikiflow/pkg/domain"
)

// RequestType tags inbound worker messages
type RequestType string

// inbound message tags
const (
	RequestLoad           RequestType = "load"
	RequestPrefetch       RequestType = "prefetch"
	RequestChangeLanguage RequestType = "changeLanguage"
)

// Request is one inbound message to the loader worker. Reply, when set,
// receives exactly one Response and should be buffered by the sender.
type Request struct {
	Type     RequestType
	Language string
	Count    int
	Reply    chan<- Response
}

// ResponseType tags outbound worker messages
type ResponseType string

// outbound message tags
const (
	ResponseArticles ResponseType = "articles"
	ResponseError    ResponseType = "error"
)

// Response is one outbound message from the loader worker
type Response struct {
	Type     ResponseType
	Articles []domain.Article
	Error    string
}

// Buffer interface for loader operations
type Buffer interface {
	Drain(ctx context.Context, n int) []domain.Article
	RequestFill(ctx context.Context, n int)
	Reset(language string)
	Len() int
}

// Cache interface for language switches
type Cache interface {
	ChangeLanguage(language string)
}

// Recommender interface for batch regeneration
type Recommender interface {
	Generate(ctx context.Context, language string, interactions []domain.Interaction) []domain.Recommendation
}

// InteractionStore interface for the recommendation worker and the cleanup job
type InteractionStore interface {
	RecentInteractions(ctx context.Context, language string, limit int, maxAge time.Duration) ([]domain.Interaction, error)
	CleanupInteractions(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Config holds scheduler configuration
type Config struct {
	RefreshInterval time.Duration // recommendation batch regeneration cadence
	CleanupInterval time.Duration // interaction log cleanup cadence
	RetentionAge    time.Duration // interactions older than this are removed
	PrefetchBatch   int           // articles fetched per prefetch request
	RecentLimit     int           // interactions fed into one recommendation run
	RecentWindow    time.Duration // age cap on those interactions
	QueueSize       int           // loader request queue depth
}

// Scheduler owns the background workers and the current language token
type Scheduler struct {
	buffer      Buffer
	cache       Cache
	recommender Recommender
	store       InteractionStore

	refreshInterval time.Duration
	cleanupInterval time.Duration
	retentionAge    time.Duration
	prefetchBatch   int
	recentLimit     int
	recentWindow    time.Duration

	requests chan Request
	refresh  chan struct{}

	mu       sync.RWMutex
	language string

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler for the given language
func NewScheduler(buffer Buffer, cache Cache, recommender Recommender, store InteractionStore, language string, cfg Config) *Scheduler {
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = 15 * time.Minute
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Hour
	}
	if cfg.RetentionAge == 0 {
		cfg.RetentionAge = 30 * 24 * time.Hour
	}
	if cfg.PrefetchBatch == 0 {
		cfg.PrefetchBatch = 10
	}
	if cfg.RecentLimit == 0 {
		cfg.RecentLimit = 50
	}
	if cfg.RecentWindow == 0 {
		cfg.RecentWindow = 15 * 24 * time.Hour
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 16
	}

	return &Scheduler{
		buffer:          buffer,
		cache:           cache,
		recommender:     recommender,
		store:           store,
		refreshInterval: cfg.RefreshInterval,
		cleanupInterval: cfg.CleanupInterval,
		retentionAge:    cfg.RetentionAge,
		prefetchBatch:   cfg.PrefetchBatch,
		recentLimit:     cfg.RecentLimit,
		recentWindow:    cfg.RecentWindow,
		requests:        make(chan Request, cfg.QueueSize),
		refresh:         make(chan struct{}, 1),
		language:        language,
	}
}

// Start begins the background workers
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loaderWorker(ctx)

	s.wg.Add(1)
	go s.recommendationWorker(ctx)

	s.wg.Add(1)
	go s.cleanupWorker(ctx)

	lgr.Printf("[INFO] scheduler started, refresh interval %v, cleanup interval %v, retention %v",
		s.refreshInterval, s.cleanupInterval, s.retentionAge)
}

// Stop gracefully stops the workers
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	lgr.Printf("[INFO] scheduler stopped")
}

// Language returns the current language token
func (s *Scheduler) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

// Submit queues one request for the loader worker
func (s *Scheduler) Submit(ctx context.Context, req Request) error {
	select {
	case s.requests <- req:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("submit %s request: %w", req.Type, ctx.Err())
	}
}

// Load drains up to count articles through the loader worker and waits for
// the reply
func (s *Scheduler) Load(ctx context.Context, count int) ([]domain.Article, error) {
	reply := make(chan Response, 1)
	req := Request{Type: RequestLoad, Language: s.Language(), Count: count, Reply: reply}
	if err := s.Submit(ctx, req); err != nil {
		return nil, err
	}

	select {
	case resp := <-reply:
		if resp.Type == ResponseError {
			return nil, fmt.Errorf("load articles: %s", resp.Error)
		}
		return resp.Articles, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for articles: %w", ctx.Err())
	}
}

// Prefetch asks the loader worker to top up the buffer, fire and forget
func (s *Scheduler) Prefetch(ctx context.Context) error {
	return s.Submit(ctx, Request{Type: RequestPrefetch, Language: s.Language()})
}

// ChangeLanguage switches the active language and waits for the workers to
// acknowledge. The buffer is cleared and cache tiers re-keyed before the
// reply arrives.
func (s *Scheduler) ChangeLanguage(ctx context.Context, language string) error {
	if !domain.IsSupportedLanguage(language) {
		return fmt.Errorf("unsupported language %q", language)
	}

	reply := make(chan Response, 1)
	req := Request{Type: RequestChangeLanguage, Language: language, Reply: reply}
	if err := s.Submit(ctx, req); err != nil {
		return err
	}

	select {
	case resp := <-reply:
		if resp.Type == ResponseError {
			return fmt.Errorf("change language: %s", resp.Error)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for language change: %w", ctx.Err())
	}
}

// RefreshRecommendations nudges the recommendation worker to regenerate now
func (s *Scheduler) RefreshRecommendations() {
	select {
	case s.refresh <- struct{}{}:
	default: // a refresh is already pending
	}
}

// loaderWorker consumes the request queue one message at a time
func (s *Scheduler) loaderWorker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.requests:
			switch req.Type {
			case RequestLoad:
				s.handleLoad(ctx, req)
			case RequestPrefetch:
				s.handlePrefetch(ctx, req)
			case RequestChangeLanguage:
				s.handleChangeLanguage(req)
			default:
				s.respond(req, Response{Type: ResponseError, Error: fmt.Sprintf("unknown request type %q", req.Type)})
			}
		}
	}
}

// handleLoad drains the buffer, filling synchronously first when it is empty
func (s *Scheduler) handleLoad(ctx context.Context, req Request) {
	if req.Language != s.Language() {
		lgr.Printf("[DEBUG] discarding stale load request for %q, current language %q", req.Language, s.Language())
		s.respond(req, Response{Type: ResponseError, Error: "language changed while request was queued"})
		return
	}

	count := req.Count
	if count <= 0 {
		count = s.prefetchBatch
	}

	if s.buffer.Len() == 0 {
		s.buffer.RequestFill(ctx, count)
	}

	articles := s.buffer.Drain(ctx, count)
	lgr.Printf("[DEBUG] loaded %d of %d requested articles", len(articles), count)
	s.respond(req, Response{Type: ResponseArticles, Articles: articles})
}

func (s *Scheduler) handlePrefetch(ctx context.Context, req Request) {
	if req.Language != s.Language() {
		lgr.Printf("[DEBUG] discarding stale prefetch request for %q", req.Language)
		return
	}
	s.buffer.RequestFill(ctx, s.prefetchBatch)
	s.respond(req, Response{Type: ResponseArticles})
}

// handleChangeLanguage swaps the language token, clears the buffer and cache
// tiers, and schedules a recommendation refresh for the new language
func (s *Scheduler) handleChangeLanguage(req Request) {
	s.mu.Lock()
	same := s.language == req.Language
	s.language = req.Language
	s.mu.Unlock()

	if same {
		s.respond(req, Response{Type: ResponseArticles})
		return
	}

	lgr.Printf("[INFO] language changed to %q, clearing buffer and cache", req.Language)
	s.cache.ChangeLanguage(req.Language)
	s.buffer.Reset(req.Language)
	s.RefreshRecommendations()
	s.respond(req, Response{Type: ResponseArticles})
}

func (s *Scheduler) respond(req Request, resp Response) {
	if req.Reply == nil {
		return
	}
	select {
	case req.Reply <- resp:
	default:
		lgr.Printf("[WARN] dropping %s response, reply channel not ready", resp.Type)
	}
}

// recommendationWorker regenerates the ranked batch periodically and on demand
func (s *Scheduler) recommendationWorker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.regenerate(ctx)
		case <-s.refresh:
			s.regenerate(ctx)
		}
	}
}

// regenerate pulls recent interactions and rebuilds the recommendation batch.
// Store failures degrade to a low-signal run instead of skipping the refresh.
func (s *Scheduler) regenerate(ctx context.Context) {
	language := s.Language()

	interactions, err := s.store.RecentInteractions(ctx, language, s.recentLimit, s.recentWindow)
	if err != nil {
		lgr.Printf("[WARN] failed to load recent interactions: %v", err)
		interactions = nil
	}

	recs := s.recommender.Generate(ctx, language, interactions)
	lgr.Printf("[INFO] regenerated %d recommendations for %q from %d interactions", len(recs), language, len(interactions))
}

// cleanupWorker removes aged-out interactions on a fixed cadence
func (s *Scheduler) cleanupWorker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.CleanupInteractions(ctx, s.retentionAge)
			if err != nil {
				lgr.Printf("[ERROR] interaction cleanup failed: %v", err)
				continue
			}
			if removed > 0 {
				lgr.Printf("[INFO] removed %d interactions older than %v", removed, s.retentionAge)
			}
		}
	}
}
