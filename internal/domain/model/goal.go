// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// BaseMinutes is the nominal weekly time budget (45 hours).
const BaseMinutes = 2700

// WeeklyGoal is the per-user, per-week plan record. WeekStart is always a
// Monday date at midnight in the business timezone.
type WeeklyGoal struct {
	UserID          string
	WeekStart       time.Time
	LeaveMinutes    int // minutes excused from the weekly budget
	OvertimeMinutes int // extra budget available beyond the baseline
	Items           []GoalItem
	UpdatedAt       time.Time
}

// GoalItem is a single planned or unplanned work item inside a WeeklyGoal.
// WeightPercent is derived from TargetMinutes and never authoritative.
type GoalItem struct {
	ID            string
	Title         string
	TargetMinutes int
	WeightPercent float64
	ActualMinutes int
	IsCompleted   bool
	IsUnplanned   bool
	ActionPlan    string
	Description   string
}

// ItemEdit describes one incoming change to a goal item. An empty ID means a
// new item. Locked fields are silently dropped by the save path rather than
// failing the whole batch.
type ItemEdit struct {
	ID            string
	Title         string
	TargetMinutes int
	ActualMinutes int
	IsCompleted   bool
	IsUnplanned   bool
	ActionPlan    string
	Description   string
	Delete        bool
}

// DeriveWeight computes an item's weight percentage against the weekly
// baseline, rounded to two decimals.
func DeriveWeight(targetMinutes, baseMinutes int) float64 {
	if baseMinutes <= 0 {
		return 0
	}
	return math.Round(float64(targetMinutes)/float64(baseMinutes)*100*100) / 100
}

// TotalTargetMinutes sums targets over planned items.
func (g *WeeklyGoal) TotalTargetMinutes() int {
	total := 0
	for i := range g.Items {
		if !g.Items[i].IsUnplanned {
			total += g.Items[i].TargetMinutes
		}
	}
	return total
}

// TotalWeightPercent sums derived weights over planned items.
func (g *WeeklyGoal) TotalWeightPercent() float64 {
	total := 0.0
	for i := range g.Items {
		if !g.Items[i].IsUnplanned {
			total += g.Items[i].WeightPercent
		}
	}
	return total
}

// TotalActualMinutes sums logged minutes over all items.
func (g *WeeklyGoal) TotalActualMinutes() int {
	total := 0
	for i := range g.Items {
		total += g.Items[i].ActualMinutes
	}
	return total
}

// UnplannedMinutes sums logged minutes over unplanned items only.
func (g *WeeklyGoal) UnplannedMinutes() int {
	total := 0
	for i := range g.Items {
		if g.Items[i].IsUnplanned {
			total += g.Items[i].ActualMinutes
		}
	}
	return total
}

// Clone returns a deep copy so stores can hand out records without aliasing.
func (g *WeeklyGoal) Clone() *WeeklyGoal {
	if g == nil {
		return nil
	}
	out := *g
	out.Items = make([]GoalItem, len(g.Items))
	copy(out.Items, g.Items)
	return &out
}
