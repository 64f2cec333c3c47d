package service

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrExcluded = errors.New("user excluded from weekly goals")
	ErrBadWeek  = errors.New("invalid week")
)

// BudgetError reports a rejected save batch: the merged result would exceed
// the weekly time budget or the aggregate weight ceiling.
type BudgetError struct {
	TargetMinutes int
	LimitMinutes  int
	WeightPercent float64
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("goal over budget: %d target minutes (limit %d), %.2f%% total weight",
		e.TargetMinutes, e.LimitMinutes, e.WeightPercent)
}
