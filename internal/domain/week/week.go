// Package week resolves calendar weeks and the edit-lock deadlines attached
// to them. It is the single source of truth for edit permission anywhere in
// the system.
package week

import "time"

// Lock deadline offset within the week: Monday 10:00 business time.
const lockHour = 10

// Locks reports which field groups of a weekly goal are still editable at
// the instant it was computed. Locks are derived from wall-clock time and
// never persisted.
type Locks struct {
	TargetsLocked  bool      `json:"targets_locked"`
	ActualsLocked  bool      `json:"actuals_locked"`
	TargetDeadline time.Time `json:"target_deadline"`
	ActualDeadline time.Time `json:"actual_deadline"`
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithLocation sets the business timezone used for week boundaries.
func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithClock injects the time source. Production uses time.Now; tests freeze it.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// Resolver computes week starts and lock windows in a fixed business
// timezone with an injected clock.
type Resolver struct {
	loc *time.Location
	now func() time.Time
}

// New creates a Resolver with configuration options.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		loc: time.Local,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Location returns the resolver's business timezone.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Now returns the current instant from the injected clock.
func (r *Resolver) Now() time.Time {
	return r.now()
}

// MondayOf returns Monday 00:00 of the ISO week containing t, in the
// business timezone.
func (r *Resolver) MondayOf(t time.Time) time.Time {
	t = t.In(r.loc)
	// time.Weekday numbers Sunday as 0; shift so Monday is 0.
	back := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -back)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, r.loc)
}

// LocksFor returns the lock state for the week containing weekStart,
// evaluated against the injected clock. Safe to call repeatedly; for a fixed
// week the booleans only ever flip from false to true as time advances.
func (r *Resolver) LocksFor(weekStart time.Time) Locks {
	ws := r.MondayOf(weekStart)
	target := time.Date(ws.Year(), ws.Month(), ws.Day(), lockHour, 0, 0, 0, r.loc)
	next := ws.AddDate(0, 0, 7)
	actual := time.Date(next.Year(), next.Month(), next.Day(), lockHour, 0, 0, 0, r.loc)

	now := r.now()
	return Locks{
		TargetsLocked:  !now.Before(target),
		ActualsLocked:  !now.Before(actual),
		TargetDeadline: target,
		ActualDeadline: actual,
	}
}
