// Package scoring computes the weekly performance score from a plan's
// planned and unplanned work records plus time-budget adjustments.
//
// The engine is a pure function over its input: no clock, no I/O, no shared
// state. Callers may invoke it from any number of goroutines.
package scoring

import "math"

// Default tunables for the score formula.
const (
	DefaultBaseMinutes       = 2700 // 45h weekly baseline
	DefaultAlpha             = 0.10 // saved-time weighting in the completion bonus
	DefaultBeta              = 0.25 // surplus-unplanned weighting in the completion bonus
	DefaultBonusMax          = 0.20 // ceiling on the completion bonus
	DefaultKappa             = 0.50 // uncovered-deficit weight when worked >= allowance
	DefaultLambda            = 0.75 // uncovered-deficit weight when worked < allowance
	DefaultMu                = 2.5  // idle-slack weight for unfinished items
	DefaultScoreCap          = 1.30 // raw-score ceiling; final score caps at 130
	DefaultIncompletePenalty = 0.10 // flat charge for incompletion without unplanned cover
	overtimeBonusRate        = 1.5
)

// PlannedItem is one declared work item with a target allocation.
type PlannedItem struct {
	TargetMinutes int
	ActualMinutes int
	Completed     bool
}

// UnplannedItem is work that was logged without a declared target.
type UnplannedItem struct {
	ActualMinutes int
}

// Input carries one week's records and budget adjustments. Minutes are
// clamped to non-negative integers before use; nil slices are treated as
// empty.
type Input struct {
	BaseMinutes     int
	LeaveMinutes    int
	OvertimeMinutes int
	Planned         []PlannedItem
	Unplanned       []UnplannedItem
}

// Params holds the tunable constants of the formula.
type Params struct {
	Alpha             float64
	Beta              float64
	BonusMax          float64
	Kappa             float64
	Lambda            float64
	Mu                float64
	ScoreCap          float64
	IncompletePenalty float64
}

// DefaultParams returns the production constants.
func DefaultParams() Params {
	return Params{
		Alpha:             DefaultAlpha,
		Beta:              DefaultBeta,
		BonusMax:          DefaultBonusMax,
		Kappa:             DefaultKappa,
		Lambda:            DefaultLambda,
		Mu:                DefaultMu,
		ScoreCap:          DefaultScoreCap,
		IncompletePenalty: DefaultIncompletePenalty,
	}
}

// Breakdown itemizes every term of the score so callers and tests can assert
// on each independently. Minutes fields are integers; score terms are
// fractions of the allowance except Score, which is a percentage.
type Breakdown struct {
	Allowance       int `json:"allowance"`        // effective budget after leave/overtime
	Credited        int `json:"credited"`         // minutes counted toward plan fulfillment
	Deficit         int `json:"deficit"`          // allowance not covered by credited work
	Forgiven        int `json:"forgiven"`         // deficit offset by unplanned work
	Uncovered       int `json:"uncovered"`        // deficit left after forgiveness
	Worked          int `json:"worked"`           // all logged minutes, planned + unplanned
	Idle            int `json:"idle"`             // allowance left unused after all work
	UnfinishedCount int `json:"unfinished_count"` // planned items not marked done

	PlannedScore   float64 `json:"planned_score"`
	UnplannedScore float64 `json:"unplanned_score"`
	Bonus          float64 `json:"bonus"`
	OvertimeBonus  float64 `json:"overtime_bonus"`
	DeficitPenalty float64 `json:"deficit_penalty"`
	IdlePenalty    float64 `json:"idle_penalty"`

	Score float64 `json:"score"` // 0 .. 100*ScoreCap
}

// itemOutcome classifies a planned item for the per-item contribution rules.
type itemOutcome int

const (
	outcomeDone itemOutcome = iota
	outcomeShortOfTarget
	outcomeMetNotDone
)

func classify(it PlannedItem) itemOutcome {
	switch {
	case it.Completed:
		return outcomeDone
	case it.ActualMinutes < it.TargetMinutes:
		return outcomeShortOfTarget
	default:
		return outcomeMetNotDone
	}
}

// Engine computes score breakdowns with a fixed parameter set.
type Engine struct {
	params Params
}

// New creates an Engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{params: DefaultParams()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the engine's effective parameter set.
func (e *Engine) Params() Params {
	return e.params
}

// Compute maps one week's records to a score breakdown. The function is
// total: malformed minutes are coerced to zero and a week with no available
// time yields an all-zero breakdown instead of dividing by zero.
func (e *Engine) Compute(in Input) Breakdown {
	base := clampMinutes(in.BaseMinutes)
	leave := clampMinutes(in.LeaveMinutes)
	overtime := clampMinutes(in.OvertimeMinutes)
	planned := sanitizePlanned(in.Planned)
	unplanned := sanitizeUnplanned(in.Unplanned)

	// Allowance: baseline minus excused leave plus overtime.
	capMinutes := base
	if leave > capMinutes {
		leave = capMinutes
	}
	allow := capMinutes - leave + overtime
	if allow <= 0 {
		return Breakdown{}
	}

	// Credited minutes: full target when done, else actual capped at target.
	credited := 0
	for _, it := range planned {
		if it.Completed {
			credited += it.TargetMinutes
		} else {
			credited += min(it.ActualMinutes, it.TargetMinutes)
		}
	}

	// Deficit against the allowance, then forgiveness via unplanned work.
	deficit := max(0, allow-credited)
	unplannedTotal := 0
	for _, it := range unplanned {
		unplannedTotal += it.ActualMinutes
	}
	forgiven := min(unplannedTotal, deficit)
	uncovered := deficit - forgiven

	worked := unplannedTotal
	unfinished := 0
	for _, it := range planned {
		worked += it.ActualMinutes
		if !it.Completed {
			unfinished++
		}
	}
	idle := max(0, allow-worked)

	hasUnplanned := unplannedTotal > 0

	// Global deficit and idle penalties belong to the unplanned-accounting
	// regime: without unplanned work the flat per-item incompletion charge
	// is the only penalty a shortfall attracts.
	var deficitPenalty, idlePenalty float64
	if hasUnplanned {
		if uncovered > 0 {
			weight := e.params.Lambda
			if worked >= allow {
				weight = e.params.Kappa
			}
			deficitPenalty = weight * float64(uncovered) / float64(allow)
		}
		if unfinished > 0 && idle > 0 {
			idlePenalty = e.params.Mu * float64(idle) / float64(allow)
		}
	}

	// Unplanned contribution: forgiveness credit, or a pure bonus when the
	// whole plan finished with surplus unplanned time. The branches are
	// mutually exclusive since forgiveness implies a deficit existed.
	var unplannedScore float64
	switch {
	case forgiven > 0:
		unplannedScore = float64(forgiven) / float64(allow)
	case unfinished == 0 && unplannedTotal-forgiven > 0:
		unplannedScore = float64(unplannedTotal-forgiven) / float64(allow)
	}

	plannedScore, speedBonus := e.plannedContribution(planned, allow, hasUnplanned)

	// Completion bonus: only when every planned item finished and no deficit
	// remained uncovered.
	bonus := speedBonus
	if unfinished == 0 && uncovered == 0 {
		saved := 0
		for _, it := range planned {
			if it.Completed {
				saved += max(0, it.TargetMinutes-it.ActualMinutes)
			}
		}
		s := float64(saved) / float64(allow)
		surplus := float64(max(0, unplannedTotal-forgiven)) / float64(allow)
		bonus += math.Min(e.params.BonusMax, e.params.Alpha*s+e.params.Beta*surplus)
	}

	// Overtime bonus: only overtime actually worked beyond the baseline pays.
	var overtimeBonus float64
	if capMinutes > 0 {
		used := max(0, min(overtime, worked-capMinutes))
		if used > 0 {
			overtimeBonus = float64(used) / float64(capMinutes) * overtimeBonusRate
		}
	}

	raw := plannedScore + unplannedScore + bonus + overtimeBonus - (deficitPenalty + idlePenalty)
	score := 100 * math.Max(0, math.Min(e.params.ScoreCap, raw))

	return Breakdown{
		Allowance:       allow,
		Credited:        credited,
		Deficit:         deficit,
		Forgiven:        forgiven,
		Uncovered:       uncovered,
		Worked:          worked,
		Idle:            idle,
		UnfinishedCount: unfinished,
		PlannedScore:    plannedScore,
		UnplannedScore:  unplannedScore,
		Bonus:           bonus,
		OvertimeBonus:   overtimeBonus,
		DeficitPenalty:  deficitPenalty,
		IdlePenalty:     idlePenalty,
		Score:           score,
	}
}

// plannedContribution sums per-item contributions and the speed-bonus
// accumulator. Unplanned work is treated as a plausible excuse for
// incompletion and suppresses the flat penalty.
func (e *Engine) plannedContribution(planned []PlannedItem, allow int, hasUnplanned bool) (score, speedBonus float64) {
	for _, it := range planned {
		if it.TargetMinutes <= 0 {
			continue
		}
		w := float64(it.TargetMinutes) / float64(allow)
		switch classify(it) {
		case outcomeDone:
			score += w
			if it.ActualMinutes < it.TargetMinutes {
				eff := float64(it.TargetMinutes) / float64(max(it.ActualMinutes, 1))
				speedBonus += w * (eff - 1)
			}
		case outcomeShortOfTarget:
			ratio := float64(it.ActualMinutes) / float64(it.TargetMinutes)
			if hasUnplanned {
				score += w * ratio
			} else {
				score += w * math.Max(0, ratio-e.params.IncompletePenalty)
			}
		case outcomeMetNotDone:
			if hasUnplanned {
				score += w
			} else {
				score += w * (1 - e.params.IncompletePenalty)
			}
		}
	}
	return score, speedBonus
}

func clampMinutes(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func sanitizePlanned(items []PlannedItem) []PlannedItem {
	out := make([]PlannedItem, 0, len(items))
	for _, it := range items {
		out = append(out, PlannedItem{
			TargetMinutes: clampMinutes(it.TargetMinutes),
			ActualMinutes: clampMinutes(it.ActualMinutes),
			Completed:     it.Completed,
		})
	}
	return out
}

func sanitizeUnplanned(items []UnplannedItem) []UnplannedItem {
	out := make([]UnplannedItem, 0, len(items))
	for _, it := range items {
		out = append(out, UnplannedItem{ActualMinutes: clampMinutes(it.ActualMinutes)})
	}
	return out
}
