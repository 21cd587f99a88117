// Package server exposes the reader pipeline over a JSON REST API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/wikiflow/wikiflow/pkg/domain"
)

// Server represents HTTP server instance
type Server struct {
	config      Config
	feed        Feed
	recommender Recommender
	merger      Merger
	recorder    Recorder
	store       Store
	version     string
	debug       bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Config holds server settings
type Config struct {
	Listen  string
	Timeout time.Duration
}

// Feed interface for article loading and language control, backed by the
// scheduler's loader worker
type Feed interface {
	Load(ctx context.Context, count int) ([]domain.Article, error)
	Prefetch(ctx context.Context) error
	ChangeLanguage(ctx context.Context, language string) error
	Language() string
	RefreshRecommendations()
}

// Recommender interface for the cached recommendation batch
type Recommender interface {
	Cached() ([]domain.Recommendation, bool)
}

// Merger interface for interleaving recommendations into the article list
type Merger interface {
	Merge(articles []domain.Article, recs []domain.Recommendation) []domain.Article
}

// Recorder interface for interaction intake
type Recorder interface {
	Record(ctx context.Context, article domain.Article, interactionType domain.InteractionType, meta *domain.InteractionMetadata) (bool, error)
}

// Store interface for liked articles and status reporting
type Store interface {
	AddLiked(ctx context.Context, article domain.Article) error
	RemoveLiked(ctx context.Context, articleID string) error
	GetLiked(ctx context.Context) ([]domain.LikedArticle, error)
	InteractionCount(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// New initializes a new server instance
func New(cfg Config, feed Feed, recommender Recommender, merger Merger, recorder Recorder, store Store, version string, debug bool) *Server {
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	s := &Server{
		config:      cfg,
		feed:        feed,
		recommender: recommender,
		merger:      merger,
		recorder:    recorder,
		store:       store,
		version:     version,
		debug:       debug,
		router:      routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	lgr.Printf("[INFO] starting server on %s", s.config.Listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.router,
		ReadTimeout:  s.config.Timeout,
		WriteTimeout: s.config.Timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("wikiflow", "wikiflow", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /feed", s.feedHandler)
		r.HandleFunc("POST /feed/language", s.languageHandler)
		r.HandleFunc("GET /recommendations", s.recommendationsHandler)
		r.HandleFunc("POST /interactions", s.interactionHandler)
		r.HandleFunc("GET /likes", s.likedHandler)
		r.HandleFunc("POST /likes/{id}", s.likeHandler)
		r.HandleFunc("DELETE /likes/{id}", s.unlikeHandler)
	})

	s.router.HandleFunc("GET /status", s.statusHandler)
}
