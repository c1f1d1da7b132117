// Package cache holds state shared between API instances through the primary database.
package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/endorhq/endor/internal/models"
)

const defaultWindow = time.Minute

// DatabaseStore keeps fixed-window rate counters in the primary SQL database. It
// satisfies middleware.RateStore.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// Option customises the DatabaseStore.
type Option func(*DatabaseStore)

// WithClock overrides the clock used to open and expire windows.
func WithClock(now func() time.Time) Option {
	return func(s *DatabaseStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewDatabaseStore constructs a database-backed counter store.
func NewDatabaseStore(db *gorm.DB, opts ...Option) (*DatabaseStore, error) {
	if db == nil {
		return nil, errors.New("cache: db is required")
	}
	store := &DatabaseStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Increment counts one hit for key and returns the total for the current window and the
// time left in it. A lapsed window restarts at one.
func (s *DatabaseStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if window <= 0 {
		window = defaultWindow
	}

	now := s.now()
	var counter models.RateCounter

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&models.RateCounter{Bucket: key}).
			Take(&counter).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			counter = models.RateCounter{Bucket: key, Hits: 1, ExpiresAt: now.Add(window)}
			return tx.Create(&counter).Error
		}
		if err != nil {
			return err
		}

		if !now.Before(counter.ExpiresAt) {
			counter.Hits = 1
			counter.ExpiresAt = now.Add(window)
		} else {
			counter.Hits++
		}
		return tx.Save(&counter).Error
	})
	if err != nil {
		return 0, 0, err
	}

	return int(counter.Hits), counter.ExpiresAt.Sub(now), nil
}

// PurgeExpired deletes counters whose window closed before now.
func (s *DatabaseStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	result := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.RateCounter{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
