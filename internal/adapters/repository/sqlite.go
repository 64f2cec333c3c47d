package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/planly/planly/internal/domain/model"
	"github.com/planly/planly/pkg/metrics"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists weekly goals in a local SQLite database. Suitable for
// single-node deployments; the schema is created on open.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the goal database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve goal db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure goal db dir: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open goal db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS weekly_goals (
	user_id          TEXT NOT NULL,
	week_start       TEXT NOT NULL,
	leave_minutes    INTEGER NOT NULL DEFAULT 0,
	overtime_minutes INTEGER NOT NULL DEFAULT 0,
	updated_at       TEXT NOT NULL,
	PRIMARY KEY (user_id, week_start)
);
CREATE TABLE IF NOT EXISTS goal_items (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	week_start     TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	target_minutes INTEGER NOT NULL DEFAULT 0,
	weight_percent REAL NOT NULL DEFAULT 0,
	actual_minutes INTEGER NOT NULL DEFAULT 0,
	is_completed   INTEGER NOT NULL DEFAULT 0,
	is_unplanned   INTEGER NOT NULL DEFAULT 0,
	action_plan    TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	position       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_goal_items_record ON goal_items (user_id, week_start);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("ensure goal schema: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, userID string, weekStart time.Time) (*model.WeeklyGoal, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("get", float64(time.Since(start).Milliseconds()))
	}()

	week := weekKey(weekStart)
	goal := &model.WeeklyGoal{UserID: userID, WeekStart: weekStart}

	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT leave_minutes, overtime_minutes, updated_at FROM weekly_goals WHERE user_id=? AND week_start=?`,
		userID, week,
	).Scan(&goal.LeaveMinutes, &goal.OvertimeMinutes, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError("get")
		return nil, fmt.Errorf("query weekly goal: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		goal.UpdatedAt = ts
	}

	items, err := s.queryItems(ctx, userID, week)
	if err != nil {
		metrics.RecordStoreError("get")
		return nil, err
	}
	goal.Items = items
	return goal, nil
}

func (s *SQLiteStore) queryItems(ctx context.Context, userID, week string) ([]model.GoalItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, target_minutes, weight_percent, actual_minutes, is_completed, is_unplanned, action_plan, description
		 FROM goal_items WHERE user_id=? AND week_start=? ORDER BY position`,
		userID, week,
	)
	if err != nil {
		return nil, fmt.Errorf("query goal items: %w", err)
	}
	defer rows.Close()

	var items []model.GoalItem
	for rows.Next() {
		var it model.GoalItem
		var completed, unplanned int
		if err := rows.Scan(&it.ID, &it.Title, &it.TargetMinutes, &it.WeightPercent,
			&it.ActualMinutes, &completed, &unplanned, &it.ActionPlan, &it.Description); err != nil {
			return nil, fmt.Errorf("scan goal item: %w", err)
		}
		it.IsCompleted = completed != 0
		it.IsUnplanned = unplanned != 0
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goal items: %w", err)
	}
	return items, nil
}

// Upsert implements Store. The record and its items are replaced in one
// transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, goal *model.WeeklyGoal) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("upsert", float64(time.Since(start).Milliseconds()))
	}()

	week := weekKey(goal.WeekStart)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordStoreError("upsert")
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO weekly_goals (user_id, week_start, leave_minutes, overtime_minutes, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, week_start) DO UPDATE SET
			leave_minutes=excluded.leave_minutes,
			overtime_minutes=excluded.overtime_minutes,
			updated_at=excluded.updated_at`,
		goal.UserID, week, goal.LeaveMinutes, goal.OvertimeMinutes, goal.UpdatedAt.Format(time.RFC3339),
	); err != nil {
		metrics.RecordStoreError("upsert")
		return fmt.Errorf("upsert weekly goal: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM goal_items WHERE user_id=? AND week_start=?`, goal.UserID, week,
	); err != nil {
		metrics.RecordStoreError("upsert")
		return fmt.Errorf("clear goal items: %w", err)
	}

	for i, it := range goal.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO goal_items (id, user_id, week_start, title, target_minutes, weight_percent,
				actual_minutes, is_completed, is_unplanned, action_plan, description, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, goal.UserID, week, it.Title, it.TargetMinutes, it.WeightPercent,
			it.ActualMinutes, boolToInt(it.IsCompleted), boolToInt(it.IsUnplanned),
			it.ActionPlan, it.Description, i,
		); err != nil {
			metrics.RecordStoreError("upsert")
			return fmt.Errorf("insert goal item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordStoreError("upsert")
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// ListForWeek implements Store.
func (s *SQLiteStore) ListForWeek(ctx context.Context, weekStart time.Time, userIDs []string) ([]*model.WeeklyGoal, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("list", float64(time.Since(start).Milliseconds()))
	}()

	if len(userIDs) == 0 {
		return nil, nil
	}

	week := weekKey(weekStart)
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]any, 0, len(userIDs)+1)
	args = append(args, week)
	for _, id := range userIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM weekly_goals WHERE week_start=? AND user_id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		metrics.RecordStoreError("list")
		return nil, fmt.Errorf("query week goals: %w", err)
	}
	var found []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			metrics.RecordStoreError("list")
			return nil, fmt.Errorf("scan week goal: %w", err)
		}
		found = append(found, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		metrics.RecordStoreError("list")
		return nil, fmt.Errorf("iterate week goals: %w", err)
	}

	out := make([]*model.WeeklyGoal, 0, len(found))
	for _, id := range found {
		goal, err := s.Get(ctx, id, weekStart)
		if err != nil {
			return nil, err
		}
		out = append(out, goal)
	}
	return out, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM weekly_goals`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
