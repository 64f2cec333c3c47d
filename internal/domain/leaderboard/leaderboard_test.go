package leaderboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/planly/planly/internal/domain/leaderboard"
	"github.com/planly/planly/internal/domain/model"
	"github.com/planly/planly/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func goalFor(userID string, items ...model.GoalItem) *model.WeeklyGoal {
	return &model.WeeklyGoal{
		UserID:    userID,
		WeekStart: time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC),
		Items:     items,
	}
}

func TestInputFromGoal(t *testing.T) {
	Convey("Given a stored record with mixed items", t, func() {
		goal := goalFor("u1",
			model.GoalItem{ID: "a", TargetMinutes: 1200, ActualMinutes: 1000, IsCompleted: true},
			model.GoalItem{ID: "b", IsUnplanned: true, ActualMinutes: 300},
		)
		goal.LeaveMinutes = 240
		goal.OvertimeMinutes = 60

		in := leaderboard.InputFromGoal(goal, 2700)

		Convey("Then items split into planned and unplanned engine inputs", func() {
			So(in.BaseMinutes, ShouldEqual, 2700)
			So(in.LeaveMinutes, ShouldEqual, 240)
			So(in.OvertimeMinutes, ShouldEqual, 60)
			So(in.Planned, ShouldHaveLength, 1)
			So(in.Planned[0].TargetMinutes, ShouldEqual, 1200)
			So(in.Planned[0].Completed, ShouldBeTrue)
			So(in.Unplanned, ShouldHaveLength, 1)
			So(in.Unplanned[0].ActualMinutes, ShouldEqual, 300)
		})
	})
}

func TestAggregator_Build(t *testing.T) {
	Convey("Given an aggregator over the default engine", t, func() {
		agg := leaderboard.New(scoring.New(), 2700)
		ctx := context.Background()

		Convey("When building rows for several users", func() {
			goals := []*model.WeeklyGoal{
				goalFor("perfect", model.GoalItem{TargetMinutes: 2700, ActualMinutes: 2700, IsCompleted: true}),
				goalFor("half", model.GoalItem{TargetMinutes: 2700, ActualMinutes: 1350}),
				goalFor("empty"),
			}

			rows := agg.Build(ctx, goals)

			Convey("Then rows come back in input order with engine scores", func() {
				So(rows, ShouldHaveLength, 3)
				So(rows[0].UserID, ShouldEqual, "perfect")
				So(rows[0].Score, ShouldAlmostEqual, 100.0, 1e-9)
				So(rows[1].UserID, ShouldEqual, "half")
				So(rows[1].Score, ShouldAlmostEqual, 40.0, 1e-9)
				So(rows[2].UserID, ShouldEqual, "empty")
				So(rows[2].Score, ShouldAlmostEqual, 0, 1e-9)
			})

			Convey("Then row summaries mirror the record totals", func() {
				So(rows[0].TargetMinutes, ShouldEqual, 2700)
				So(rows[0].ActualMinutes, ShouldEqual, 2700)
				So(rows[1].Breakdown.Uncovered, ShouldEqual, 1350)
			})
		})

		Convey("When fan-out is smaller than the input", func() {
			small := leaderboard.New(scoring.New(), 2700, leaderboard.WithFanout(2))
			goals := make([]*model.WeeklyGoal, 20)
			for i := range goals {
				goals[i] = goalFor("u", model.GoalItem{TargetMinutes: 100, ActualMinutes: 100, IsCompleted: true})
			}

			rows := small.Build(ctx, goals)
			So(rows, ShouldHaveLength, 20)
			for _, row := range rows {
				So(row.Score, ShouldBeGreaterThan, 0)
			}
		})

		Convey("When the context is already canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()
			rows := agg.Build(canceled, []*model.WeeklyGoal{goalFor("u1")})
			So(rows, ShouldHaveLength, 1) // slots exist; unprocessed rows stay zero
		})
	})
}
