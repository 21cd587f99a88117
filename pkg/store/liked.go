package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"

	"github.com/wikiflow/wikiflow/pkg/domain"
)

// legacyLikedKey is where pre-v2 clients stored the liked list as one JSON blob
const legacyLikedKey = "liked_articles"

type likedSQL struct {
	ArticleID string    `db:"article_id"`
	LikedAt   time.Time `db:"liked_at"`
	Article   string    `db:"article"`
}

// AddLiked records a liked article, replacing any previous like of the same
// article
func (s *Store) AddLiked(ctx context.Context, article domain.Article) error {
	raw, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("marshal liked article: %w", err)
	}

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := `
			INSERT INTO liked_articles (article_id, liked_at, article)
			VALUES (?, datetime('now'), ?)
			ON CONFLICT(article_id) DO UPDATE SET liked_at = excluded.liked_at, article = excluded.article
		`
		_, err := s.db.ExecContext(ctx, query, article.ID, string(raw))
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("add liked: %w", err)}
		}
		return nil
	})
}

// RemoveLiked deletes a like by article id
func (s *Store) RemoveLiked(ctx context.Context, articleID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM liked_articles WHERE article_id = ?", articleID); err != nil {
		return fmt.Errorf("remove liked: %w", err)
	}
	return nil
}

// GetLiked returns all liked articles, newest first
func (s *Store) GetLiked(ctx context.Context) ([]domain.LikedArticle, error) {
	var rows []likedSQL
	query := "SELECT article_id, liked_at, article FROM liked_articles ORDER BY liked_at DESC"
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("get liked: %w", err)
	}

	result := make([]domain.LikedArticle, 0, len(rows))
	for _, r := range rows {
		liked := domain.LikedArticle{ID: r.ArticleID, Timestamp: r.LikedAt}
		if err := json.Unmarshal([]byte(r.Article), &liked.Article); err != nil {
			lgr.Printf("[WARN] skipping unreadable liked record %q: %v", r.ArticleID, err)
			continue
		}
		result = append(result, liked)
	}
	return result, nil
}

// LikedIDs returns the id set of liked articles, reconciled from the full
// records so membership is always a subset of what GetLiked returns
func (s *Store) LikedIDs(ctx context.Context) (map[string]struct{}, error) {
	records, err := s.GetLiked(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(records))
	for _, r := range records {
		ids[r.ID] = struct{}{}
	}
	return ids, nil
}

// migrateLegacyLiked moves the pre-v2 single-blob liked list into the
// liked_articles table. Two legacy shapes are recognized: a wrapper object
// {"_metadata": ..., "data": [...]} and a plain array. Anything else resolves
// to an empty list with a warning.
func (s *Store) migrateLegacyLiked(ctx context.Context) error {
	raw, err := s.GetSetting(ctx, legacyLikedKey)
	if err != nil || raw == "" {
		return err
	}

	records := parseLegacyLiked([]byte(raw))
	migrated := 0
	for _, rec := range records {
		if rec.Article.ID == "" {
			rec.Article.ID = rec.ID
		}
		if rec.ID == "" || rec.Article.ID == "" {
			continue
		}
		if err := s.AddLiked(ctx, rec.Article); err != nil {
			return fmt.Errorf("migrate liked record %q: %w", rec.ID, err)
		}
		migrated++
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", legacyLikedKey); err != nil {
		return fmt.Errorf("drop legacy liked blob: %w", err)
	}

	lgr.Printf("[INFO] migrated %d legacy liked articles", migrated)
	return nil
}

// parseLegacyLiked decodes both known legacy shapes
func parseLegacyLiked(raw []byte) []domain.LikedArticle {
	var wrapper struct {
		Metadata json.RawMessage       `json:"_metadata"`
		Data     []domain.LikedArticle `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && wrapper.Data != nil {
		return wrapper.Data
	}

	var plain []domain.LikedArticle
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	lgr.Printf("[WARN] unrecognized legacy liked-articles shape, resolving to empty list")
	return nil
}
