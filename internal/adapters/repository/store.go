// Package repository defines the weekly goal store interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/planly/planly/internal/domain/model"
)

// Store provides read/write access to weekly goal records. Implementations
// must key records by (user id, week start date) and treat Upsert as an
// at-most-one-record-per-key replacement.
type Store interface {
	// Get returns the record for a user and week.
	// Returns ErrNotFound if no record exists yet.
	Get(ctx context.Context, userID string, weekStart time.Time) (*model.WeeklyGoal, error)

	// Upsert creates or replaces the record for (goal.UserID, goal.WeekStart).
	Upsert(ctx context.Context, goal *model.WeeklyGoal) error

	// ListForWeek returns the records that exist for the given users in one
	// week. Users without a record are simply absent from the result.
	ListForWeek(ctx context.Context, weekStart time.Time, userIDs []string) ([]*model.WeeklyGoal, error)

	// Count returns the number of records tracked by the store.
	Count(ctx context.Context) int

	// Close releases store resources.
	Close() error
}

// weekKey normalizes a week start to its canonical storage form. Stores key
// by date only; the time component of weekStart is ignored.
func weekKey(weekStart time.Time) string {
	return weekStart.Format("2006-01-02")
}
