package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
)

// GetCache reads one entry from the persistent cache tier. A miss is
// (nil, nil).
func (s *Store) GetCache(ctx context.Context, namespace, key string) ([]byte, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value, "SELECT value FROM kv_cache WHERE namespace = ? AND key = ?", namespace, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache %s/%s: %w", namespace, key, err)
	}
	return value, nil
}

// PutCache upserts one entry into the persistent cache tier, retrying on
// SQLite lock errors
func (s *Store) PutCache(ctx context.Context, namespace, key string, value []byte) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := `
			INSERT INTO kv_cache (namespace, key, value, updated_at)
			VALUES (?, ?, ?, datetime('now'))
			ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`
		_, err := s.db.ExecContext(ctx, query, namespace, key, value)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("put cache %s/%s: %w", namespace, key, err)}
		}
		return nil
	})
}

// DeleteCacheNamespace drops every entry in one namespace
func (s *Store) DeleteCacheNamespace(ctx context.Context, namespace string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_cache WHERE namespace = ?", namespace); err != nil {
		return fmt.Errorf("delete cache namespace %s: %w", namespace, err)
	}
	return nil
}
