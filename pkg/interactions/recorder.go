// Package interactions records user actions with debouncing and feeds the
// preference model.
package interactions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/wikiflow/wikiflow/pkg/domain"
	"github.com/wikiflow/wikiflow/pkg/filter"
)

// Store persists accepted interactions
type Store interface {
	AddInteraction(ctx context.Context, in domain.Interaction) error
}

// PreferenceUpdater receives feedback interactions as they happen
type PreferenceUpdater interface {
	ApplyInteraction(article domain.Article, interactionType domain.InteractionType)
}

// Config holds debounce tuning
type Config struct {
	Debounce    time.Duration // same article+type spacing
	ViewSpacing time.Duration // extra minimum spacing between views of one article
}

// Recorder accepts user actions, drops redundant ones and persists the rest.
// Like and dislike bypass debouncing entirely so every toggle registers.
type Recorder struct {
	store       Store
	prefs       PreferenceUpdater
	debounce    time.Duration
	viewSpacing time.Duration

	mu           sync.Mutex
	lastAccepted map[string]time.Time

	now func() time.Time // replaceable in tests
}

// NewRecorder creates a recorder. prefs may be nil when no preference model
// is attached.
func NewRecorder(store Store, prefs PreferenceUpdater, cfg Config) *Recorder {
	if cfg.Debounce == 0 {
		cfg.Debounce = time.Second
	}
	if cfg.ViewSpacing == 0 {
		cfg.ViewSpacing = 2 * time.Second
	}
	return &Recorder{
		store:        store,
		prefs:        prefs,
		debounce:     cfg.Debounce,
		viewSpacing:  cfg.ViewSpacing,
		lastAccepted: make(map[string]time.Time),
		now:          time.Now,
	}
}

// Record registers one user action against an article. Returns false without
// error when the action was debounced away.
func (r *Recorder) Record(ctx context.Context, article domain.Article, interactionType domain.InteractionType, meta *domain.InteractionMetadata) (bool, error) {
	if !interactionType.Valid() {
		return false, fmt.Errorf("unknown interaction type %q", interactionType)
	}

	if !r.accept(article.ID, interactionType) {
		lgr.Printf("[DEBUG] debounced %s on article %s", interactionType, article.ID)
		return false, nil
	}

	in := domain.Interaction{
		ArticleID:  article.ID,
		Type:       interactionType,
		Language:   article.Language,
		Timestamp:  r.now(),
		Categories: filter.UsableCategories(article.Categories),
		Metadata:   meta,
	}
	if err := r.store.AddInteraction(ctx, in); err != nil {
		return false, fmt.Errorf("persist interaction: %w", err)
	}

	// feedback adjusts currently surfaced recommendations before returning
	switch interactionType {
	case domain.InteractionLike, domain.InteractionDislike, domain.InteractionRead:
		if r.prefs != nil {
			r.prefs.ApplyInteraction(article, interactionType)
		}
	}

	return true, nil
}

// accept applies the debounce rules and marks the action as accepted
func (r *Recorder) accept(articleID string, interactionType domain.InteractionType) bool {
	// every like/dislike toggle must register
	if interactionType == domain.InteractionLike || interactionType == domain.InteractionDislike {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	key := articleID + "|" + string(interactionType)

	spacing := r.debounce
	if interactionType == domain.InteractionView {
		// distinguishes scrolled-past from actually read
		spacing = r.viewSpacing
	}
	if last, ok := r.lastAccepted[key]; ok && now.Sub(last) < spacing {
		return false
	}

	r.lastAccepted[key] = now
	r.prune(now)
	return true
}

// prune bounds the debounce map; entries old enough can never suppress again
func (r *Recorder) prune(now time.Time) {
	if len(r.lastAccepted) < 1000 {
		return
	}
	cutoff := now.Add(-r.viewSpacing)
	for key, ts := range r.lastAccepted {
		if ts.Before(cutoff) {
			delete(r.lastAccepted, key)
		}
	}
}
