package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CacheGet returns the payload cached for provider and key when it is younger
// than maxAge. A non-positive maxAge accepts any age.
func (s *Store) CacheGet(ctx context.Context, provider, key string, maxAge time.Duration) ([]byte, bool, error) {
	var (
		payload  string
		storedAt sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, stored_at FROM provider_cache WHERE provider = ? AND cache_key = ?",
		provider, normalizeCacheKey(key),
	).Scan(&payload, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache %s/%s: %w", provider, key, err)
	}
	if maxAge > 0 {
		stored := parseTime(storedAt)
		if stored.IsZero() || s.now().Sub(stored) > maxAge {
			return nil, false, nil
		}
	}
	return []byte(payload), true, nil
}

// CachePut stores payload for provider and key, replacing any previous entry.
func (s *Store) CachePut(ctx context.Context, provider, key string, payload []byte) error {
	if _, err := s.exec(ctx,
		`INSERT INTO provider_cache (provider, cache_key, payload, stored_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(provider, cache_key) DO UPDATE SET payload = excluded.payload, stored_at = excluded.stored_at`,
		provider, normalizeCacheKey(key), string(payload), s.timestamp(),
	); err != nil {
		return fmt.Errorf("write cache %s/%s: %w", provider, key, err)
	}
	return nil
}

// PurgeCache removes entries stored before cutoff and reports how many were
// removed.
func (s *Store) PurgeCache(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx,
		"DELETE FROM provider_cache WHERE stored_at < ?", cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return n, nil
}

func normalizeCacheKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
