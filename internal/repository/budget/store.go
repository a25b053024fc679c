// Package budget persists embedding token counters in Redis so a token
// budget survives restarts and is shared by every replica.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/evidex/internal/db"
)

// Counter TTLs outlive their period so a late reader still sees the total.
const (
	DailyTTL   = 48 * time.Hour
	MonthlyTTL = 62 * 24 * time.Hour
)

// store is the consumer interface for counter operations.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	ExpireNX(ctx context.Context, key string, ttl time.Duration) error
}

// Store keeps one daily and one monthly counter per provider.
type Store struct {
	store    store
	prefix   string
	provider string
}

// New creates a counter store. Keys look like
// {prefix}budget:{provider}:daily:2026-10-15 and ...:monthly:2026-10.
func New(s store, prefix, provider string) *Store {
	return &Store{store: s, prefix: prefix, provider: provider}
}

// Add records tokens against the periods containing now.
func (s *Store) Add(ctx context.Context, now time.Time, tokens int64) error {
	for _, c := range s.counters(now) {
		if _, err := s.store.IncrBy(ctx, c.key, tokens); err != nil {
			return fmt.Errorf("budget INCRBY %s: %w", c.key, err)
		}
		if err := s.store.ExpireNX(ctx, c.key, c.ttl); err != nil {
			return fmt.Errorf("budget EXPIRE %s: %w", c.key, err)
		}
	}
	return nil
}

// Load returns the stored usage of the periods containing now. Missing
// counters read as zero.
func (s *Store) Load(ctx context.Context, now time.Time) (daily, monthly int64, err error) {
	cs := s.counters(now)
	if daily, err = s.get(ctx, cs[0].key); err != nil {
		return 0, 0, err
	}
	if monthly, err = s.get(ctx, cs[1].key); err != nil {
		return 0, 0, err
	}
	return daily, monthly, nil
}

func (s *Store) get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget GET %s: %w", key, err)
	}
	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget GET %s parse: %w", key, err)
	}
	return val, nil
}

type counter struct {
	key string
	ttl time.Duration
}

func (s *Store) counters(now time.Time) [2]counter {
	now = now.UTC()
	base := s.prefix + "budget:" + s.provider
	return [2]counter{
		{key: base + ":daily:" + now.Format("2006-01-02"), ttl: DailyTTL},
		{key: base + ":monthly:" + now.Format("2006-01"), ttl: MonthlyTTL},
	}
}
