// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the key-value counter store behind the
// provider rate limiter.
//
// The store mimics the INCR/EXPIRE/GET contract of a Redis counter on top
// of the rate_counters table: a key whose window has elapsed behaves as if
// it were absent and the next increment starts a new count at 1. Like the
// Redis original, enforcement is best-effort, not a hard guarantee.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/hopcraft/go-trip-backend/internal/domain"
)

// CounterStore is a GORM-backed counting key-value store. It satisfies the
// ratelimit.CounterStore contract.
type CounterStore struct {
	DB *gorm.DB

	// Now allows tests to control time; defaults to time.Now.
	Now func() time.Time
}

// NewCounterStore constructs a CounterStore over db.
func NewCounterStore(db *gorm.DB) *CounterStore {
	return &CounterStore{DB: db, Now: time.Now}
}

func (s *CounterStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Increment adds one to the counter for key and returns the new count.
// An expired counter is reset in place, so the returned count is 1 and the
// caller is expected to arm a fresh window via ExpireAfter.
func (s *CounterStore) Increment(ctx context.Context, key string) (int64, error) {
	now := s.now()
	var count int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row domain.RateCounter
		err := tx.Where("key = ?", key).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = domain.RateCounter{Key: key, Count: 1, ExpiresAt: now.Add(time.Hour)}
			count = 1
			return tx.Create(&row).Error
		case err != nil:
			return err
		}

		if !row.ExpiresAt.After(now) {
			// Window elapsed: behave like a fresh key.
			row.Count = 1
			row.ExpiresAt = now.Add(time.Hour)
		} else {
			row.Count++
		}
		count = row.Count
		return tx.Save(&row).Error
	})
	return count, err
}

// ExpireAfter sets the window end for key. Called by the limiter right
// after the first increment of a new window.
func (s *CounterStore) ExpireAfter(ctx context.Context, key string, window time.Duration) error {
	return s.DB.WithContext(ctx).
		Model(&domain.RateCounter{}).
		Where("key = ?", key).
		Update("expires_at", s.now().Add(window)).Error
}

// Get returns the current count for key, treating a missing or expired
// counter as zero.
func (s *CounterStore) Get(ctx context.Context, key string) (int64, error) {
	var row domain.RateCounter
	err := s.DB.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !row.ExpiresAt.After(s.now()) {
		return 0, nil
	}
	return row.Count, nil
}
