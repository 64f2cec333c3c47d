package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planly/planly/internal/domain/model"
	"github.com/planly/planly/pkg/metrics"
)

// PostgresStore persists weekly goals in Postgres for multi-node
// deployments. The schema is created on open.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database at dsn and ensures the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect goal db: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS weekly_goals (
	user_id          TEXT NOT NULL,
	week_start       DATE NOT NULL,
	leave_minutes    INTEGER NOT NULL DEFAULT 0,
	overtime_minutes INTEGER NOT NULL DEFAULT 0,
	updated_at       TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, week_start)
);
CREATE TABLE IF NOT EXISTS goal_items (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	week_start     DATE NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	target_minutes INTEGER NOT NULL DEFAULT 0,
	weight_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
	actual_minutes INTEGER NOT NULL DEFAULT 0,
	is_completed   BOOLEAN NOT NULL DEFAULT FALSE,
	is_unplanned   BOOLEAN NOT NULL DEFAULT FALSE,
	action_plan    TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	position       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_goal_items_record ON goal_items (user_id, week_start);
`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure goal schema: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, userID string, weekStart time.Time) (*model.WeeklyGoal, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("get", float64(time.Since(start).Milliseconds()))
	}()

	week := weekKey(weekStart)
	goal := &model.WeeklyGoal{UserID: userID, WeekStart: weekStart}

	err := s.pool.QueryRow(ctx,
		`SELECT leave_minutes, overtime_minutes, updated_at FROM weekly_goals WHERE user_id=$1 AND week_start=$2`,
		userID, week,
	).Scan(&goal.LeaveMinutes, &goal.OvertimeMinutes, &goal.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError("get")
		return nil, fmt.Errorf("query weekly goal: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, target_minutes, weight_percent, actual_minutes, is_completed, is_unplanned, action_plan, description
		 FROM goal_items WHERE user_id=$1 AND week_start=$2 ORDER BY position`,
		userID, week,
	)
	if err != nil {
		metrics.RecordStoreError("get")
		return nil, fmt.Errorf("query goal items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.GoalItem
		if err := rows.Scan(&it.ID, &it.Title, &it.TargetMinutes, &it.WeightPercent,
			&it.ActualMinutes, &it.IsCompleted, &it.IsUnplanned, &it.ActionPlan, &it.Description); err != nil {
			metrics.RecordStoreError("get")
			return nil, fmt.Errorf("scan goal item: %w", err)
		}
		goal.Items = append(goal.Items, it)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordStoreError("get")
		return nil, fmt.Errorf("iterate goal items: %w", err)
	}
	return goal, nil
}

// Upsert implements Store. The record and its items are replaced in one
// transaction.
func (s *PostgresStore) Upsert(ctx context.Context, goal *model.WeeklyGoal) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("upsert", float64(time.Since(start).Milliseconds()))
	}()

	week := weekKey(goal.WeekStart)
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		metrics.RecordStoreError("upsert")
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx,
		`INSERT INTO weekly_goals (user_id, week_start, leave_minutes, overtime_minutes, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, week_start) DO UPDATE SET
			leave_minutes=EXCLUDED.leave_minutes,
			overtime_minutes=EXCLUDED.overtime_minutes,
			updated_at=EXCLUDED.updated_at`,
		goal.UserID, week, goal.LeaveMinutes, goal.OvertimeMinutes, goal.UpdatedAt,
	); err != nil {
		metrics.RecordStoreError("upsert")
		return fmt.Errorf("upsert weekly goal: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM goal_items WHERE user_id=$1 AND week_start=$2`, goal.UserID, week,
	); err != nil {
		metrics.RecordStoreError("upsert")
		return fmt.Errorf("clear goal items: %w", err)
	}

	for i, it := range goal.Items {
		if _, err := tx.Exec(ctx,
			`INSERT INTO goal_items (id, user_id, week_start, title, target_minutes, weight_percent,
				actual_minutes, is_completed, is_unplanned, action_plan, description, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			it.ID, goal.UserID, week, it.Title, it.TargetMinutes, it.WeightPercent,
			it.ActualMinutes, it.IsCompleted, it.IsUnplanned, it.ActionPlan, it.Description, i,
		); err != nil {
			metrics.RecordStoreError("upsert")
			return fmt.Errorf("insert goal item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.RecordStoreError("upsert")
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// ListForWeek implements Store.
func (s *PostgresStore) ListForWeek(ctx context.Context, weekStart time.Time, userIDs []string) ([]*model.WeeklyGoal, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("list", float64(time.Since(start).Milliseconds()))
	}()

	if len(userIDs) == 0 {
		return nil, nil
	}

	week := weekKey(weekStart)
	rows, err := s.pool.Query(ctx,
		`SELECT user_id FROM weekly_goals WHERE week_start=$1 AND user_id = ANY($2)`,
		week, userIDs,
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
func (s *PostgresStore) Count(ctx context.Context) int {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM weekly_goals`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
