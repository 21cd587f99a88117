package recommend

import (
	"sort"
	"strings"
	"sync"

	"github.com/go-pkgz/lgr"

	"github.com/wikiflow/wikiflow/pkg/domain"
	"github.com/wikiflow/wikiflow/pkg/filter"
)

// feedback multipliers applied to live recommendation scores
const (
	likeMultiplier    = 1.5
	dislikeMultiplier = 0.5
	readMultiplier    = 1.2
)

// Model holds the scores of the currently surfaced recommendation batch and
// biases them immediately on user feedback. This is a live adjustment, not a
// retraining; the next engine run supersedes it wholesale.
type Model struct {
	mu         sync.Mutex
	scores     map[string]float64 // article id -> live score
	categories map[string][]string
}

// NewModel creates an empty preference model
func NewModel() *Model {
	return &Model{
		scores:     make(map[string]float64),
		categories: make(map[string][]string),
	}
}

// SetRecommendations replaces the tracked batch with a new one
func (m *Model) SetRecommendations(recs []domain.Recommendation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scores = make(map[string]float64, len(recs))
	m.categories = make(map[string][]string, len(recs))
	for _, rec := range recs {
		m.scores[rec.ArticleID] = rec.Score
		m.categories[rec.ArticleID] = filter.UsableCategories(rec.Metadata.Categories)
	}
}

// ApplyInteraction adjusts scores of tracked recommendations that share a
// category with the interacted article
func (m *Model) ApplyInteraction(article domain.Article, interactionType domain.InteractionType) {
	multiplier := 1.0
	switch interactionType {
	case domain.InteractionLike:
		multiplier = likeMultiplier
	case domain.InteractionDislike:
		multiplier = dislikeMultiplier
	case domain.InteractionRead:
		multiplier = readMultiplier
	default:
		return // no-op for other interaction kinds
	}

	touched := filter.UsableCategories(article.Categories)
	if len(touched) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	adjusted := 0
	for id, cats := range m.categories {
		if id == article.ID {
			continue
		}
		if !sharesCategory(cats, touched) {
			continue
		}
		m.scores[id] *= multiplier
		adjusted++
	}
	if adjusted > 0 {
		lgr.Printf("[DEBUG] %s on %q adjusted %d recommendation scores by %.2f", interactionType, article.Title, adjusted, multiplier)
	}
}

// Adjusted returns the batch re-scored with the live adjustments, sorted
// descending by score
func (m *Model) Adjusted(recs []domain.Recommendation) []domain.Recommendation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Recommendation, len(recs))
	copy(out, recs)
	for i := range out {
		if score, ok := m.scores[out[i].ArticleID]; ok {
			out[i].Score = score
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Score returns the live score of a tracked recommendation
func (m *Model) Score(articleID string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	score, ok := m.scores[articleID]
	return score, ok
}

func sharesCategory(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if strings.EqualFold(x, y) {
				return true
			}
		}
	}
	return false
}
