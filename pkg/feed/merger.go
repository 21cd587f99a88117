// Package feed interleaves ranked recommendations and ad slots into the
// chronological article stream.
package feed

import (
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/wikiflow/wikiflow/pkg/domain"
	"github.com/wikiflow/wikiflow/pkg/filter"
)

// Config holds the interleave cadence
type Config struct {
	RecommendationInterval int `yaml:"recommendation_interval" json:"recommendation_interval" jsonschema:"default=3,description=insert a recommendation every N feed positions"`
	AdOffset               int `yaml:"ad_offset" json:"ad_offset" jsonschema:"default=30,description=first feed position eligible for an ad slot"`
	AdInterval             int `yaml:"ad_interval" json:"ad_interval" jsonschema:"default=50,description=spacing between ad slots after the offset"`
}

// Merger weaves recommendations into the primary article list at a fixed
// cadence. Candidates failing the recommendation validity check are skipped
// silently, a slot is never force-filled.
type Merger struct {
	interval   int
	adOffset   int
	adInterval int
}

// NewMerger creates a merger, zero config fields fall back to defaults
func NewMerger(cfg Config) *Merger {
	if cfg.RecommendationInterval == 0 {
		cfg.RecommendationInterval = 3
	}
	if cfg.AdOffset == 0 {
		cfg.AdOffset = 30
	}
	if cfg.AdInterval == 0 {
		cfg.AdInterval = 50
	}
	return &Merger{interval: cfg.RecommendationInterval, adOffset: cfg.AdOffset, adInterval: cfg.AdInterval}
}

// ShouldInsertRecommendation reports whether the feed position gets a
// recommendation slot. Position zero never does.
func (m *Merger) ShouldInsertRecommendation(index int) bool {
	return index > 0 && index%m.interval == 0
}

// ShouldShowAd reports whether the feed position gets an ad slot
func (m *Merger) ShouldShowAd(index int) bool {
	return index >= m.adOffset && (index-m.adOffset)%m.adInterval == 0
}

// Merge interleaves recommendations into articles. Each recommendation slot
// consumes ranked candidates in order until one passes the validity and
// diversity checks, exhausted candidates leave the slot empty.
func (m *Merger) Merge(articles []domain.Article, recs []domain.Recommendation) []domain.Article {
	if len(recs) == 0 {
		return articles
	}

	merged := make([]domain.Article, 0, len(articles)+len(recs))
	next := 0

	for _, article := range articles {
		if m.ShouldInsertRecommendation(len(merged)) {
			if rec, ok := m.pick(recs, &next, merged, article); ok {
				merged = append(merged, rec)
			}
		}
		merged = append(merged, article)
	}
	return merged
}

// pick advances through the ranked candidates until one passes the gates.
// Candidates are checked against the already-merged window and against the
// upcoming article, so a slot never places a duplicate next to its twin in
// the chronological stream.
func (m *Merger) pick(recs []domain.Recommendation, next *int, merged []domain.Article, upcoming domain.Article) (domain.Article, bool) {
	for *next < len(recs) {
		candidate := recs[*next].Article
		*next++
		if !filter.IsRecommendable(candidate) {
			lgr.Printf("[DEBUG] recommendation %q skipped, failed validity check", candidate.ID)
			continue
		}
		if !filter.IsDiverse(candidate, merged) {
			lgr.Printf("[DEBUG] recommendation %q skipped, duplicates recent feed window", candidate.ID)
			continue
		}
		if candidate.ID == upcoming.ID || strings.EqualFold(candidate.Title, upcoming.Title) {
			lgr.Printf("[DEBUG] recommendation %q skipped, duplicates the next feed article", candidate.ID)
			continue
		}
		return candidate, true
	}
	return domain.Article{}, false
}
