package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"

	"github.com/wikiflow/wikiflow/pkg/domain"
)

// interactionSQL represents an interaction row for SQL operations
type interactionSQL struct {
	ID             int64     `db:"id"`
	ArticleID      string    `db:"article_id"`
	Type           string    `db:"type"`
	Language       string    `db:"language"`
	Timestamp      time.Time `db:"timestamp"`
	Categories     string    `db:"categories"`
	TimeSpent      int       `db:"time_spent"`
	ScrollDepth    float64   `db:"scroll_depth"`
	ViewportTime   int       `db:"viewport_time"`
	ReadPercentage float64   `db:"read_percentage"`
}

// AddInteraction appends one interaction to the log, retrying on SQLite
// lock errors
func (s *Store) AddInteraction(ctx context.Context, in domain.Interaction) error {
	categories, err := json.Marshal(in.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	meta := in.Metadata
	if meta == nil {
		meta = &domain.InteractionMetadata{}
	}

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := `
			INSERT INTO interactions
				(article_id, type, language, timestamp, categories, time_spent, scroll_depth, viewport_time, read_percentage)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := s.db.ExecContext(ctx, query, in.ArticleID, string(in.Type), in.Language, in.Timestamp,
			string(categories), meta.TimeSpent, meta.ScrollDepth, meta.ViewportTime, meta.ReadPercentage)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("add interaction: %w", err)}
		}
		return nil
	})
}

// RecentInteractions returns the newest interactions for a language, capped
// by limit and bounded by maxAge, newest first
func (s *Store) RecentInteractions(ctx context.Context, language string, limit int, maxAge time.Duration) ([]domain.Interaction, error) {
	query := `
		SELECT id, article_id, type, language, timestamp, categories,
		       time_spent, scroll_depth, viewport_time, read_percentage
		FROM interactions
		WHERE language = ? AND timestamp >= ?
		ORDER BY timestamp DESC
		LIMIT ?
	`
	cutoff := time.Now().Add(-maxAge)

	var rows []interactionSQL
	if err := s.db.SelectContext(ctx, &rows, query, language, cutoff, limit); err != nil {
		return nil, fmt.Errorf("recent interactions: %w", err)
	}

	result := make([]domain.Interaction, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

// CleanupInteractions deletes interactions older than maxAge and returns the
// number removed
func (s *Store) CleanupInteractions(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res, err := s.db.ExecContext(ctx, "DELETE FROM interactions WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup interactions: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup interactions rows affected: %w", err)
	}
	return removed, nil
}

// InteractionCount returns the total number of logged interactions
func (s *Store) InteractionCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM interactions"); err != nil {
		return 0, fmt.Errorf("interaction count: %w", err)
	}
	return count, nil
}

func (r interactionSQL) toDomain() domain.Interaction {
	in := domain.Interaction{
		ArticleID: r.ArticleID,
		Type:      domain.InteractionType(r.Type),
		Language:  r.Language,
		Timestamp: r.Timestamp,
	}
	if r.Categories != "" && r.Categories != "[]" {
		_ = json.Unmarshal([]byte(r.Categories), &in.Categories) // best-effort, empty on bad data
	}
	if r.TimeSpent != 0 || r.ScrollDepth != 0 || r.ViewportTime != 0 || r.ReadPercentage != 0 {
		in.Metadata = &domain.InteractionMetadata{
			TimeSpent:      r.TimeSpent,
			ScrollDepth:    r.ScrollDepth,
			ViewportTime:   r.ViewportTime,
			ReadPercentage: r.ReadPercentage,
		}
	}
	return in
}
