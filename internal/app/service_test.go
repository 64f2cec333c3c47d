package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/planly/planly/internal/adapters/repository"
	service "github.com/planly/planly/internal/app"
	"github.com/planly/planly/internal/domain/model"
	"github.com/planly/planly/internal/domain/week"
	. "github.com/smartystreets/goconvey/convey"
)

// mondayAt returns a clock frozen at the given offset into the test week.
func mondayAt(d time.Duration) func() time.Time {
	monday := time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC)
	return func() time.Time { return monday.Add(d) }
}

func newService(clock func() time.Time, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithStore(repository.NewMemoryStore()),
		service.WithResolver(week.New(week.WithLocation(time.UTC), week.WithClock(clock))),
	}
	svc := service.New(append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return svc
}

func intPtr(v int) *int { return &v }

type testPolicy struct {
	blocked  map[string]bool
	eligible []string
}

func (p testPolicy) AllowGoal(userID string) bool { return !p.blocked[userID] }
func (p testPolicy) EligibleUsers() []string      { return p.eligible }

func TestService_SaveAndReadGoal(t *testing.T) {
	Convey("Given a running service before the target deadline", t, func() {
		svc := newService(mondayAt(8 * time.Hour))
		defer svc.Stop()
		ctx := context.Background()

		Convey("When a user saves a fresh plan", func() {
			view, err := svc.SaveGoal(ctx, service.SaveRequest{
				UserID: "u1",
				Items: []model.ItemEdit{
					{Title: "feature work", TargetMinutes: 1800},
					{Title: "code review", TargetMinutes: 900},
				},
			})

			Convey("Then the goal persists with derived weights", func() {
				So(err, ShouldBeNil)
				So(view.Goal.Items, ShouldHaveLength, 2)
				So(view.Goal.Items[0].ID, ShouldNotBeEmpty)
				So(view.Goal.Items[0].WeightPercent, ShouldAlmostEqual, 66.67, 0.001)
				So(view.Goal.Items[1].WeightPercent, ShouldAlmostEqual, 33.33, 0.001)
				So(view.SkippedEdits, ShouldEqual, 0)
				So(view.Locks.TargetsLocked, ShouldBeFalse)
			})

			Convey("And a later read returns the same record", func() {
				So(err, ShouldBeNil)
				got, err := svc.ReadGoal(ctx, "u1", time.Time{})
				So(err, ShouldBeNil)
				So(got.Goal.Items, ShouldHaveLength, 2)
				So(got.Goal.WeekStart.Weekday(), ShouldEqual, time.Monday)
			})
		})

		Convey("When a user is read before ever saving", func() {
			view, err := svc.ReadGoal(ctx, "fresh", time.Time{})

			Convey("Then an empty record is created with score zero", func() {
				So(err, ShouldBeNil)
				So(view.Goal.Items, ShouldBeEmpty)
				So(view.Breakdown.Score, ShouldAlmostEqual, 0, 1e-9)
			})
		})

		Convey("When leave and overtime adjustments are sent", func() {
			view, err := svc.SaveGoal(ctx, service.SaveRequest{
				UserID:          "u2",
				LeaveMinutes:    intPtr(480),
				OvertimeMinutes: intPtr(120),
			})

			Convey("Then they land on the record and shift the allowance", func() {
				So(err, ShouldBeNil)
				So(view.Goal.LeaveMinutes, ShouldEqual, 480)
				So(view.Goal.OvertimeMinutes, ShouldEqual, 120)
				So(view.Breakdown.Allowance, ShouldEqual, 2700-480+120)
			})
		})
	})
}

func TestService_BudgetRejection(t *testing.T) {
	Convey("Given a running service", t, func() {
		svc := newService(mondayAt(8 * time.Hour))
		defer svc.Stop()
		ctx := context.Background()

		Convey("When a batch exceeds the weekly budget", func() {
			_, err := svc.SaveGoal(ctx, service.SaveRequest{
				UserID: "u1",
				Items: []model.ItemEdit{
					{Title: "too big", TargetMinutes: 2000},
					{Title: "way too big", TargetMinutes: 1500},
				},
			})

			Convey("Then the whole batch is rejected", func() {
				var budgetErr *service.BudgetError
				So(errors.As(err, &budgetErr), ShouldBeTrue)
				So(budgetErr.TargetMinutes, ShouldEqual, 3500)
			})

			Convey("And nothing was written", func() {
				got, readErr := svc.ReadGoal(ctx, "u1", time.Time{})
				So(readErr, ShouldBeNil)
				So(got.Goal.Items, ShouldBeEmpty)
			})
		})

		Convey("When a batch lands exactly on the budget", func() {
			view, err := svc.SaveGoal(ctx, service.SaveRequest{
				UserID: "u3",
				Items:  []model.ItemEdit{{Title: "full week", TargetMinutes: 2700}},
			})
			So(err, ShouldBeNil)
			So(view.Goal.TotalTargetMinutes(), ShouldEqual, 2700)
		})
	})
}

func TestService_LockEnforcement(t *testing.T) {
	Convey("Given a plan saved before the target deadline", t, func() {
		store := repository.NewMemoryStore()
		ctx := context.Background()

		early := newService(mondayAt(8*time.Hour), service.WithStore(store))
		view, err := early.SaveGoal(ctx, service.SaveRequest{
			UserID: "u1",
			Items:  []model.ItemEdit{{Title: "planned work", TargetMinutes: 1200}},
		})
		So(err, ShouldBeNil)
		itemID := view.Goal.Items[0].ID
		early.Stop()

		Convey("When editing mid-week after targets locked", func() {
			svc := newService(mondayAt(48*time.Hour), service.WithStore(store))
			defer svc.Stop()

			Convey("Then target changes are skipped but actuals apply", func() {
				got, err := svc.SaveGoal(ctx, service.SaveRequest{
					UserID: "u1",
					Items: []model.ItemEdit{
						{ID: itemID, Title: "planned work", TargetMinutes: 2400, ActualMinutes: 600, IsCompleted: true},
					},
				})
				So(err, ShouldBeNil)
				So(got.SkippedEdits, ShouldEqual, 1)
				So(got.Goal.Items[0].TargetMinutes, ShouldEqual, 1200)
				So(got.Goal.Items[0].ActualMinutes, ShouldEqual, 600)
				So(got.Goal.Items[0].IsCompleted, ShouldBeTrue)
			})

			Convey("Then new planned items are skipped", func() {
				got, err := svc.SaveGoal(ctx, service.SaveRequest{
					UserID: "u1",
					Items:  []model.ItemEdit{{Title: "late addition", TargetMinutes: 300}},
				})
				So(err, ShouldBeNil)
				So(got.SkippedEdits, ShouldEqual, 1)
				So(got.Goal.Items, ShouldHaveLength, 1)
			})

			Convey("Then unplanned items can still be logged", func() {
				got, err := svc.SaveGoal(ctx, service.SaveRequest{
					UserID: "u1",
					Items:  []model.ItemEdit{{Title: "firefighting", ActualMinutes: 240, IsUnplanned: true}},
				})
				So(err, ShouldBeNil)
				So(got.SkippedEdits, ShouldEqual, 0)
				So(got.Goal.Items, ShouldHaveLength, 2)
				So(got.Goal.UnplannedMinutes(), ShouldEqual, 240)
			})

			Convey("Then deleting a planned item is skipped", func() {
				got, err := svc.SaveGoal(ctx, service.SaveRequest{
					UserID: "u1",
					Items:  []model.ItemEdit{{ID: itemID, Delete: true}},
				})
				So(err, ShouldBeNil)
				So(got.SkippedEdits, ShouldEqual, 1)
				So(got.Goal.Items, ShouldHaveLength, 1)
			})
		})

		Convey("When editing after the actual deadline", func() {
			svc := newService(mondayAt(7*24*time.Hour+11*time.Hour), service.WithStore(store))
			defer svc.Stop()

			Convey("Then actual edits and adjustments are skipped", func() {
				got, err := svc.SaveGoal(ctx, service.SaveRequest{
					UserID:       "u1",
					LeaveMinutes: intPtr(300),
					Items: []model.ItemEdit{
						{ID: itemID, Title: "planned work", TargetMinutes: 1200, ActualMinutes: 999, IsCompleted: true},
					},
				})
				So(err, ShouldBeNil)
				So(got.SkippedEdits, ShouldEqual, 3) // leave, actual minutes, completion flag
				So(got.Goal.LeaveMinutes, ShouldEqual, 0)
				So(got.Goal.Items[0].ActualMinutes, ShouldEqual, 0)
				So(got.Goal.Items[0].IsCompleted, ShouldBeFalse)
			})

			Convey("Then descriptive fields still apply", func() {
				got, err := svc.SaveGoal(ctx, service.SaveRequest{
					UserID: "u1",
					Items: []model.ItemEdit{
						{ID: itemID, Title: "renamed", TargetMinutes: 1200, ActionPlan: "wrap up notes"},
					},
				})
				So(err, ShouldBeNil)
				So(got.Goal.Items[0].Title, ShouldEqual, "renamed")
				So(got.Goal.Items[0].ActionPlan, ShouldEqual, "wrap up notes")
			})
		})
	})
}

func TestService_Policy(t *testing.T) {
	Convey("Given a service with an exclusion policy", t, func() {
		svc := newService(mondayAt(8*time.Hour), service.WithPolicy(testPolicy{
			blocked:  map[string]bool{"boss": true},
			eligible: []string{"u1", "u2"},
		}))
		defer svc.Stop()
		ctx := context.Background()

		Convey("Then excluded users cannot read or save", func() {
			_, err := svc.ReadGoal(ctx, "boss", time.Time{})
			So(errors.Is(err, service.ErrExcluded), ShouldBeTrue)

			_, err = svc.SaveGoal(ctx, service.SaveRequest{UserID: "boss"})
			So(errors.Is(err, service.ErrExcluded), ShouldBeTrue)
		})

		Convey("Then the leaderboard defaults to the eligible set", func() {
			_, err := svc.SaveGoal(ctx, service.SaveRequest{
				UserID: "u1",
				Items:  []model.ItemEdit{{Title: "work", TargetMinutes: 2700, ActualMinutes: 2700, IsCompleted: true}},
			})
			So(err, ShouldBeNil)

			rows, err := svc.Leaderboard(ctx, time.Time{}, nil)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0].UserID, ShouldEqual, "u1")
			So(rows[0].Score, ShouldAlmostEqual, 100.0, 1e-9)
			So(rows[1].UserID, ShouldEqual, "u2")
			So(rows[1].Score, ShouldAlmostEqual, 0, 1e-9) // no record yet
		})
	})
}

func TestService_ParseWeek(t *testing.T) {
	Convey("Given a running service", t, func() {
		svc := newService(mondayAt(8 * time.Hour))
		defer svc.Stop()

		Convey("Then an empty value means the current week", func() {
			ws, err := svc.ParseWeek("")
			So(err, ShouldBeNil)
			So(ws.Weekday(), ShouldEqual, time.Monday)
			So(ws.Day(), ShouldEqual, 24)
		})

		Convey("Then any day maps to its week's Monday", func() {
			ws, err := svc.ParseWeek("2026-08-27")
			So(err, ShouldBeNil)
			So(ws.Day(), ShouldEqual, 24)
		})

		Convey("Then garbage is rejected", func() {
			_, err := svc.ParseWeek("next tuesday")
			So(errors.Is(err, service.ErrBadWeek), ShouldBeTrue)
		})
	})
}

func TestService_MaxLeaderboardUsers(t *testing.T) {
	Convey("Given a service with a small leaderboard cap", t, func() {
		svc := newService(mondayAt(8*time.Hour), service.WithMaxLeaderboardUsers(2))
		defer svc.Stop()

		Convey("Then an oversized user list is truncated", func() {
			rows, err := svc.Leaderboard(context.Background(), time.Time{}, []string{"a", "b", "c", "d"})
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
		})
	})
}
