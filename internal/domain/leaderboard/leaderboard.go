// Package leaderboard aggregates per-user weekly scores into a multi-user
// summary. Rows are independent; scoring one user never looks at another.
package leaderboard

import (
	"context"
	"sync"

	"github.com/planly/planly/internal/domain/model"
	"github.com/planly/planly/internal/domain/scoring"
	"github.com/planly/planly/pkg/metrics"
)

// Default fan-out for concurrent row computation.
const defaultFanout = 8

// Row is one user's leaderboard entry for a week.
type Row struct {
	UserID           string            `json:"user_id"`
	TargetMinutes    int               `json:"target_minutes"`
	ActualMinutes    int               `json:"actual_minutes"`
	UnplannedMinutes int               `json:"unplanned_minutes"`
	Score            float64           `json:"score"`
	Breakdown        scoring.Breakdown `json:"breakdown"`
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithFanout bounds the number of concurrent score computations.
func WithFanout(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.fanout = n
		}
	}
}

// Aggregator builds leaderboard rows by running the scoring engine per user.
type Aggregator struct {
	engine      *scoring.Engine
	baseMinutes int
	fanout      int
}

// New creates an Aggregator around an engine and weekly baseline.
func New(engine *scoring.Engine, baseMinutes int, opts ...Option) *Aggregator {
	a := &Aggregator{
		engine:      engine,
		baseMinutes: baseMinutes,
		fanout:      defaultFanout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// InputFromGoal converts a stored record into engine input.
func InputFromGoal(goal *model.WeeklyGoal, baseMinutes int) scoring.Input {
	in := scoring.Input{
		BaseMinutes:     baseMinutes,
		LeaveMinutes:    goal.LeaveMinutes,
		OvertimeMinutes: goal.OvertimeMinutes,
	}
	for i := range goal.Items {
		it := &goal.Items[i]
		if it.IsUnplanned {
			in.Unplanned = append(in.Unplanned, scoring.UnplannedItem{ActualMinutes: it.ActualMinutes})
		} else {
			in.Planned = append(in.Planned, scoring.PlannedItem{
				TargetMinutes: it.TargetMinutes,
				ActualMinutes: it.ActualMinutes,
				Completed:     it.IsCompleted,
			})
		}
	}
	return in
}

// Build computes one row per goal, concurrently up to the configured
// fan-out. Rows come back in input order; ordering for display is a
// presentation concern left to callers.
func (a *Aggregator) Build(ctx context.Context, goals []*model.WeeklyGoal) []Row {
	rows := make([]Row, len(goals))
	sem := make(chan struct{}, a.fanout)
	var wg sync.WaitGroup

	for i, goal := range goals {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, goal *model.WeeklyGoal) {
			defer wg.Done()
			defer func() { <-sem }()

			breakdown := a.engine.Compute(InputFromGoal(goal, a.baseMinutes))
			metrics.RecordScoreComputation()
			rows[i] = Row{
				UserID:           goal.UserID,
				TargetMinutes:    goal.TotalTargetMinutes(),
				ActualMinutes:    goal.TotalActualMinutes(),
				UnplannedMinutes: goal.UnplannedMinutes(),
				Score:            breakdown.Score,
				Breakdown:        breakdown,
			}
		}(i, goal)
	}
	wg.Wait()

	metrics.RecordLeaderboardBuild()
	return rows
}
