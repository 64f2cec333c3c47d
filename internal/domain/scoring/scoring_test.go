package scoring_test

import (
	"testing"

	scoring "github.com/planly/planly/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEngine_Compute(t *testing.T) {
	Convey("Given an engine with default parameters", t, func() {
		engine := scoring.New()

		Convey("When one planned item is done exactly on target", func() {
			in := scoring.Input{
				BaseMinutes: 2700,
				Planned: []scoring.PlannedItem{
					{TargetMinutes: 2700, ActualMinutes: 2700, Completed: true},
				},
			}

			Convey("Then the score is exactly 100", func() {
				out := engine.Compute(in)
				So(out.Score, ShouldAlmostEqual, 100.0, 1e-9)
				So(out.PlannedScore, ShouldAlmostEqual, 1.0, 1e-9)
				So(out.Bonus, ShouldAlmostEqual, 0, 1e-9)
				So(out.DeficitPenalty, ShouldAlmostEqual, 0, 1e-9)
				So(out.IdlePenalty, ShouldAlmostEqual, 0, 1e-9)
				So(out.Credited, ShouldEqual, 2700)
				So(out.Deficit, ShouldEqual, 0)
			})
		})

		Convey("When the item is half done with no unplanned cover", func() {
			in := scoring.Input{
				BaseMinutes: 2700,
				Planned: []scoring.PlannedItem{
					{TargetMinutes: 2700, ActualMinutes: 1350, Completed: false},
				},
			}

			Convey("Then only the flat incompletion charge applies", func() {
				out := engine.Compute(in)
				So(out.PlannedScore, ShouldAlmostEqual, 0.40, 1e-9)
				So(out.Score, ShouldAlmostEqual, 40.0, 1e-9)
				So(out.DeficitPenalty, ShouldAlmostEqual, 0, 1e-9)
				So(out.IdlePenalty, ShouldAlmostEqual, 0, 1e-9)
				So(out.Uncovered, ShouldEqual, 1350)
			})
		})

		Convey("When the same shortfall is fully covered by unplanned work", func() {
			in := scoring.Input{
				BaseMinutes: 2700,
				Planned: []scoring.PlannedItem{
					{TargetMinutes: 2700, ActualMinutes: 1350, Completed: false},
				},
				Unplanned: []scoring.UnplannedItem{{ActualMinutes: 1350}},
			}

			Convey("Then forgiveness restores the full score", func() {
				out := engine.Compute(in)
				So(out.Forgiven, ShouldEqual, 1350)
				So(out.Uncovered, ShouldEqual, 0)
				So(out.UnplannedScore, ShouldAlmostEqual, 0.5, 1e-9)
				So(out.PlannedScore, ShouldAlmostEqual, 0.5, 1e-9)
				So(out.DeficitPenalty, ShouldAlmostEqual, 0, 1e-9)
				So(out.Score, ShouldAlmostEqual, 100.0, 1e-9)
			})
		})

		Convey("When there is no available time at all", func() {
			in := scoring.Input{
				BaseMinutes: 0,
				Planned: []scoring.PlannedItem{
					{TargetMinutes: 600, ActualMinutes: 600, Completed: true},
				},
			}

			Convey("Then every breakdown field is zero", func() {
				out := engine.Compute(in)
				So(out, ShouldResemble, scoring.Breakdown{})
			})
		})

		Convey("When leave consumes the whole baseline", func() {
			out := engine.Compute(scoring.Input{BaseMinutes: 2700, LeaveMinutes: 5000})
			So(out, ShouldResemble, scoring.Breakdown{})
		})

		Convey("When a done item finishes under target", func() {
			in := scoring.Input{
				BaseMinutes: 2700,
				Planned: []scoring.PlannedItem{
					{TargetMinutes: 600, ActualMinutes: 300, Completed: true},
				},
			}

			Convey("Then the speed bonus doubles the item's weight", func() {
				out := engine.Compute(in)
				w := 600.0 / 2700.0
				So(out.PlannedScore, ShouldAlmostEqual, w, 1e-9)
				So(out.Bonus, ShouldAlmostEqual, w, 1e-9) // w * (600/300 - 1)
				So(out.Score, ShouldAlmostEqual, 100*2*w, 1e-9)
			})
		})

		Convey("When an item met its target but was not marked done", func() {
			in := scoring.Input{
				BaseMinutes: 2700,
				Planned: []scoring.PlannedItem{
					{TargetMinutes: 600, ActualMinutes: 700, Completed: false},
				},
			}

			Convey("Then it earns its weight minus the incompletion charge", func() {
				out := engine.Compute(in)
				So(out.PlannedScore, ShouldAlmostEqual, (600.0/2700.0)*0.9, 1e-9)
			})

			Convey("And with unplanned cover it earns its full weight", func() {
				in.Unplanned = []scoring.UnplannedItem{{ActualMinutes: 60}}
				out := engine.Compute(in)
				So(out.PlannedScore, ShouldAlmostEqual, 600.0/2700.0, 1e-9)
			})
		})

		Convey("When overtime is granted and actually worked", func() {
			in := scoring.Input{
				BaseMinutes:     2700,
				OvertimeMinutes: 300,
				Planned: []scoring.PlannedItem{
					{TargetMinutes: 2700, ActualMinutes: 3000, Completed: true},
				},
			}

			Convey("Then the overtime bonus pays at the boosted rate", func() {
				out := engine.Compute(in)
				So(out.Allowance, ShouldEqual, 3000)
				So(out.OvertimeBonus, ShouldAlmostEqual, 300.0/2700.0*1.5, 1e-9)
			})
		})

		Convey("When overtime is granted but not worked", func() {
			in := scoring.Input{
				BaseMinutes:     2700,
				OvertimeMinutes: 300,
				Planned: []scoring.PlannedItem{
					{TargetMinutes: 2700, ActualMinutes: 2700, Completed: true},
				},
			}

			out := engine.Compute(in)
			So(out.OvertimeBonus, ShouldAlmostEqual, 0, 1e-9)
		})

		Convey("When every planned item finishes with surplus unplanned time", func() {
			in := scoring.Input{
				BaseMinutes: 2700,
				Planned: []scoring.PlannedItem{
					{TargetMinutes: 2700, ActualMinutes: 2600, Completed: true},
				},
				Unplanned: []scoring.UnplannedItem{{ActualMinutes: 200}},
			}

			Convey("Then a completion bonus is granted", func() {
				out := engine.Compute(in)
				So(out.Uncovered, ShouldEqual, 0)
				So(out.Bonus, ShouldBeGreaterThan, 0)
				So(out.Bonus, ShouldBeLessThanOrEqualTo, scoring.DefaultBonusMax+1e-9)
			})
		})

		Convey("When the raw score exceeds the cap", func() {
			in := scoring.Input{
				BaseMinutes: 2700,
				Planned: []scoring.PlannedItem{
					{TargetMinutes: 2700, ActualMinutes: 100, Completed: true},
				},
			}

			Convey("Then the final score caps at 130", func() {
				out := engine.Compute(in)
				So(out.Score, ShouldAlmostEqual, 130.0, 1e-9)
			})
		})

		Convey("When called twice with identical input", func() {
			in := scoring.Input{
				BaseMinutes:     2700,
				LeaveMinutes:    240,
				OvertimeMinutes: 60,
				Planned: []scoring.PlannedItem{
					{TargetMinutes: 900, ActualMinutes: 700, Completed: false},
					{TargetMinutes: 600, ActualMinutes: 600, Completed: true},
				},
				Unplanned: []scoring.UnplannedItem{{ActualMinutes: 400}},
			}

			Convey("Then the outputs are identical", func() {
				So(engine.Compute(in), ShouldResemble, engine.Compute(in))
			})
		})

		Convey("When fed malformed negative minutes", func() {
			in := scoring.Input{
				BaseMinutes:     2700,
				LeaveMinutes:    -50,
				OvertimeMinutes: -10,
				Planned: []scoring.PlannedItem{
					{TargetMinutes: -100, ActualMinutes: -200, Completed: false},
				},
				Unplanned: []scoring.UnplannedItem{{ActualMinutes: -30}},
			}

			Convey("Then minutes are coerced to zero and the result stays bounded", func() {
				out := engine.Compute(in)
				So(out.Allowance, ShouldEqual, 2700)
				So(out.Score, ShouldBeGreaterThanOrEqualTo, 0)
			})
		})

		Convey("Then scores stay within [0, 130] across a spread of inputs", func() {
			inputs := []scoring.Input{
				{BaseMinutes: 2700},
				{BaseMinutes: 2700, Planned: []scoring.PlannedItem{{TargetMinutes: 2700}}},
				{BaseMinutes: 2700, Unplanned: []scoring.UnplannedItem{{ActualMinutes: 5000}}},
				{BaseMinutes: 60, OvertimeMinutes: 2700, Planned: []scoring.PlannedItem{
					{TargetMinutes: 60, ActualMinutes: 10, Completed: true},
				}},
				{BaseMinutes: 2700, LeaveMinutes: 2000, Planned: []scoring.PlannedItem{
					{TargetMinutes: 700, ActualMinutes: 100, Completed: false},
				}, Unplanned: []scoring.UnplannedItem{{ActualMinutes: 10}}},
			}
			for _, in := range inputs {
				out := engine.Compute(in)
				So(out.Score, ShouldBeGreaterThanOrEqualTo, 0)
				So(out.Score, ShouldBeLessThanOrEqualTo, 100*scoring.DefaultScoreCap+1e-9)
			}
		})
	})
}

func TestEngine_Options(t *testing.T) {
	Convey("Given an engine with custom parameters", t, func() {
		engine := scoring.New(
			scoring.WithIncompletePenalty(0.5),
			scoring.WithScoreCap(1.0),
		)

		Convey("Then the incompletion charge reflects the override", func() {
			out := engine.Compute(scoring.Input{
				BaseMinutes: 2700,
				Planned: []scoring.PlannedItem{
					{TargetMinutes: 2700, ActualMinutes: 2000, Completed: false},
				},
			})
			ratio := 2000.0 / 2700.0
			So(out.PlannedScore, ShouldAlmostEqual, ratio-0.5, 1e-9)
		})

		Convey("Then the cap reflects the override", func() {
			out := engine.Compute(scoring.Input{
				BaseMinutes: 2700,
				Planned: []scoring.PlannedItem{
					{TargetMinutes: 2700, ActualMinutes: 100, Completed: true},
				},
			})
			So(out.Score, ShouldAlmostEqual, 100.0, 1e-9)
		})
	})
}
