package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/wikiflow/wikiflow/pkg/domain"
)

const (
	defaultFeedCount = 10
	maxFeedCount     = 50
)

// feedResponse is the payload for GET /api/v1/feed
type feedResponse struct {
	Articles []domain.Article `json:"articles"`
	Language string           `json:"language"`
}

// feedHandler drains buffered articles and interleaves cached
// recommendations into them
func (s *Server) feedHandler(w http.ResponseWriter, r *http.Request) {
	count := defaultFeedCount
	if v := r.URL.Query().Get("count"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			renderError(w, r, fmt.Errorf("invalid count %q", v), http.StatusBadRequest)
			return
		}
		count = parsed
	}
	if count > maxFeedCount {
		count = maxFeedCount
	}

	articles, err := s.feed.Load(r.Context(), count)
	if err != nil {
		renderError(w, r, err, http.StatusServiceUnavailable)
		return
	}

	if recs, ok := s.recommender.Cached(); ok {
		articles = s.merger.Merge(articles, recs)
	}

	// top the buffer back up for the next page
	if err := s.feed.Prefetch(context.WithoutCancel(r.Context())); err != nil {
		lgr.Printf("[WARN] prefetch request failed: %v", err)
	}

	renderJSON(w, r, http.StatusOK, feedResponse{Articles: articles, Language: s.feed.Language()})
}

// languageRequest is the payload for POST /api/v1/feed/language
type languageRequest struct {
	Language string `json:"language"`
}

func (s *Server) languageHandler(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}

	if err := s.feed.ChangeLanguage(r.Context(), req.Language); err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}

	renderJSON(w, r, http.StatusOK, map[string]string{"language": req.Language})
}

// recommendationsResponse is the payload for GET /api/v1/recommendations
type recommendationsResponse struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
	Language        string                  `json:"language"`
}

// recommendationsHandler returns the cached batch. A miss schedules a
// regeneration and returns an empty list rather than blocking the request.
func (s *Server) recommendationsHandler(w http.ResponseWriter, r *http.Request) {
	recs, ok := s.recommender.Cached()
	if !ok {
		s.feed.RefreshRecommendations()
		recs = []domain.Recommendation{}
	}
	renderJSON(w, r, http.StatusOK, recommendationsResponse{Recommendations: recs, Language: s.feed.Language()})
}

// interactionRequest is the payload for POST /api/v1/interactions
type interactionRequest struct {
	Article  domain.Article              `json:"article"`
	Type     domain.InteractionType      `json:"type"`
	Metadata *domain.InteractionMetadata `json:"metadata,omitempty"`
}

func (s *Server) interactionHandler(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	if req.Article.ID == "" {
		renderError(w, r, fmt.Errorf("article id is required"), http.StatusBadRequest)
		return
	}

	accepted, err := s.recorder.Record(r.Context(), req.Article, req.Type, req.Metadata)
	if err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}

	renderJSON(w, r, http.StatusOK, map[string]bool{"accepted": accepted})
}

func (s *Server) likedHandler(w http.ResponseWriter, r *http.Request) {
	liked, err := s.store.GetLiked(r.Context())
	if err != nil {
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]any{"liked": liked})
}

// likeHandler persists the article and records a like interaction so the
// preference model picks it up immediately
func (s *Server) likeHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var article domain.Article
	if err := json.NewDecoder(r.Body).Decode(&article); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	if article.ID == "" {
		article.ID = id
	}
	if article.ID != id {
		renderError(w, r, fmt.Errorf("article id %q does not match path id %q", article.ID, id), http.StatusBadRequest)
		return
	}

	if err := s.store.AddLiked(r.Context(), article); err != nil {
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	if _, err := s.recorder.Record(r.Context(), article, domain.InteractionLike, nil); err != nil {
		lgr.Printf("[WARN] failed to record like interaction for %s: %v", article.ID, err)
	}
	s.feed.RefreshRecommendations()

	renderJSON(w, r, http.StatusCreated, map[string]string{"id": article.ID})
}

func (s *Server) unlikeHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.RemoveLiked(r.Context(), id); err != nil {
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]string{"id": id})
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":   "ok",
		"version":  s.version,
		"language": s.feed.Language(),
		"time":     time.Now().UTC(),
	}

	if err := s.store.Ping(r.Context()); err != nil {
		status["status"] = "degraded"
		status["store"] = err.Error()
	}
	if count, err := s.store.InteractionCount(r.Context()); err == nil {
		status["interactions"] = count
	}

	renderJSON(w, r, http.StatusOK, status)
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]string{"error": errMsg})
}
