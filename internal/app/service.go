// Package service provides the core business service that implements
// the dependencies required by the HTTP API: the weekly goal lifecycle,
// edit-lock enforcement, scoring and the leaderboard.
package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/planly/planly/internal/adapters/events"
	"github.com/planly/planly/internal/adapters/mq/queue"
	"github.com/planly/planly/internal/adapters/mq/worker"
	"github.com/planly/planly/internal/adapters/repository"
	"github.com/planly/planly/internal/domain/leaderboard"
	"github.com/planly/planly/internal/domain/model"
	"github.com/planly/planly/internal/domain/scoring"
	"github.com/planly/planly/internal/domain/week"
	"github.com/planly/planly/pkg/logger"
	"github.com/planly/planly/pkg/metrics"
)

// Aggregate weight ceiling and its float tolerance.
const (
	maxWeightPercent = 100.0
	weightTolerance  = 0.001
	keyLockStripes   = 64
)

// Policy decides who may hold a weekly goal and who appears on the default
// leaderboard. Access control itself is an external concern.
type Policy interface {
	AllowGoal(userID string) bool
	EligibleUsers() []string
}

// GoalView is what read and save operations return: the persisted record,
// the current lock state and the computed score breakdown.
type GoalView struct {
	Goal         *model.WeeklyGoal
	Locks        week.Locks
	Breakdown    scoring.Breakdown
	SkippedEdits int // edits silently dropped because their field group was locked
}

// SaveRequest is one batch of edits for a user's week.
type SaveRequest struct {
	UserID          string
	Week            time.Time // zero value means the current week
	LeaveMinutes    *int
	OvertimeMinutes *int
	Items           []model.ItemEdit
}

// Service implements the API dependencies for the weekly scoring system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	resolver   *week.Resolver
	engine     *scoring.Engine
	aggregator *leaderboard.Aggregator
	policy     Policy
	publisher  events.Publisher
	eventQueue queue.Queue
	workerPool *worker.Pool

	// Configuration
	baseMinutes         int
	maxLeaderboardUsers int
	publishQueueSize    int
	publishWorkers      int

	// Per-(user, week) write serialization
	keyLocks [keyLockStripes]sync.Mutex

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		baseMinutes:         model.BaseMinutes,
		maxLeaderboardUsers: 200,
		publishQueueSize:    10_000,
		publishWorkers:      2,
		policy:              permissivePolicy{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type permissivePolicy struct{}

func (permissivePolicy) AllowGoal(string) bool   { return true }
func (permissivePolicy) EligibleUsers() []string { return nil }

// Start initializes missing components and starts the publish pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.resolver == nil {
		s.resolver = week.New()
	}
	if s.engine == nil {
		s.engine = scoring.New()
	}
	if s.publisher == nil {
		s.publisher = events.NoopPublisher{}
	}
	s.aggregator = leaderboard.New(s.engine, s.baseMinutes)

	s.eventQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.publishQueueSize))
	s.workerPool = worker.NewPool(s.publishWorkers, s.eventQueue, s.publisher)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("baseMinutes", s.baseMinutes),
		logger.Int("publishWorkers", s.publishWorkers),
		logger.Int("publishQueueSize", s.publishQueueSize),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping scoring service...")

	if s.eventQueue != nil {
		_ = s.eventQueue.Close()
	}
	if s.workerPool != nil {
		s.workerPool.Stop()
	}
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
}

// ReadGoal returns a user's record for a week, creating an empty one on
// first access. A zero weekStart means the current week.
func (s *Service) ReadGoal(ctx context.Context, userID string, weekStart time.Time) (*GoalView, error) {
	if !s.policy.AllowGoal(userID) {
		return nil, ErrExcluded
	}
	ws := s.normalizeWeek(weekStart)

	lock := s.lockFor(userID, ws)
	lock.Lock()
	defer lock.Unlock()

	goal, err := s.loadOrCreate(ctx, userID, ws)
	if err != nil {
		return nil, err
	}
	return s.view(goal, 0), nil
}

// SaveGoal applies a batch of item edits to a user's week. Locked fields are
// silently skipped per field; an over-budget batch is rejected whole before
// anything is written.
func (s *Service) SaveGoal(ctx context.Context, req SaveRequest) (*GoalView, error) {
	if !s.policy.AllowGoal(req.UserID) {
		return nil, ErrExcluded
	}
	ws := s.normalizeWeek(req.Week)

	lock := s.lockFor(req.UserID, ws)
	lock.Lock()
	defer lock.Unlock()

	goal, err := s.loadOrCreate(ctx, req.UserID, ws)
	if err != nil {
		return nil, err
	}

	locks := s.resolver.LocksFor(ws)
	merged, skipped := s.mergeItems(goal.Items, req.Items, locks)

	leave, overtime := goal.LeaveMinutes, goal.OvertimeMinutes
	if req.LeaveMinutes != nil {
		if locks.ActualsLocked {
			skipped++
		} else {
			leave = clampMinutes(*req.LeaveMinutes)
		}
	}
	if req.OvertimeMinutes != nil {
		if locks.ActualsLocked {
			skipped++
		} else {
			overtime = clampMinutes(*req.OvertimeMinutes)
		}
	}

	candidate := &model.WeeklyGoal{
		UserID:          req.UserID,
		WeekStart:       ws,
		LeaveMinutes:    leave,
		OvertimeMinutes: overtime,
		Items:           merged,
		UpdatedAt:       s.resolver.Now(),
	}
	s.deriveWeights(candidate)

	if err := s.validateBudget(candidate); err != nil {
		metrics.RecordBudgetRejection()
		s.logger.Warn(ctx, "goal batch rejected over budget",
			logger.String("userID", req.UserID),
			logger.Error(err),
		)
		return nil, err
	}

	if err := s.store.Upsert(ctx, candidate); err != nil {
		return nil, err
	}
	metrics.RecordGoalSave()
	metrics.RecordLockedFieldSkips(skipped)

	v := s.view(candidate, skipped)
	s.publishScore(ctx, v)
	return v, nil
}

// Leaderboard builds one row per user for the given week. An empty user set
// falls back to the policy's eligible users.
func (s *Service) Leaderboard(ctx context.Context, weekStart time.Time, userIDs []string) ([]leaderboard.Row, error) {
	ws := s.normalizeWeek(weekStart)

	if len(userIDs) == 0 {
		userIDs = s.policy.EligibleUsers()
	}
	if len(userIDs) > s.maxLeaderboardUsers {
		userIDs = userIDs[:s.maxLeaderboardUsers]
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	stored, err := s.store.ListForWeek(ctx, ws, userIDs)
	if err != nil {
		metrics.RecordLeaderboardError()
		return nil, err
	}
	byUser := make(map[string]*model.WeeklyGoal, len(stored))
	for _, g := range stored {
		byUser[g.UserID] = g
	}

	// Users without a record still get a row; an empty week scores zero.
	goals := make([]*model.WeeklyGoal, 0, len(userIDs))
	for _, id := range userIDs {
		if g, ok := byUser[id]; ok {
			goals = append(goals, g)
		} else {
			goals = append(goals, &model.WeeklyGoal{UserID: id, WeekStart: ws})
		}
	}

	return s.aggregator.Build(ctx, goals), nil
}

// ParseWeek interprets a YYYY-MM-DD string in the business timezone and
// returns the Monday of its week. An empty value means the current week.
func (s *Service) ParseWeek(value string) (time.Time, error) {
	if value == "" {
		return s.normalizeWeek(time.Time{}), nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, s.resolver.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: week must be YYYY-MM-DD", ErrBadWeek)
	}
	return s.resolver.MondayOf(t), nil
}

// Locks exposes the lock state for a week without touching any record.
func (s *Service) Locks(weekStart time.Time) week.Locks {
	return s.resolver.LocksFor(s.normalizeWeek(weekStart))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"baseMinutes":    s.baseMinutes,
		"publishWorkers": s.publishWorkers,
	}
	if s.started {
		stats["goalCount"] = s.store.Count(ctx)
		stats["publishQueueLength"] = s.eventQueue.Len(ctx)
	}
	return stats
}

func (s *Service) normalizeWeek(t time.Time) time.Time {
	if t.IsZero() {
		t = s.resolver.Now()
	}
	return s.resolver.MondayOf(t)
}

func (s *Service) lockFor(userID string, weekStart time.Time) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	_, _ = h.Write([]byte(weekStart.Format("2006-01-02")))
	return &s.keyLocks[int(h.Sum32())%keyLockStripes]
}

func (s *Service) loadOrCreate(ctx context.Context, userID string, ws time.Time) (*model.WeeklyGoal, error) {
	goal, err := s.store.Get(ctx, userID, ws)
	if err == nil {
		return goal, nil
	}
	if err != repository.ErrNotFound {
		return nil, err
	}

	goal = &model.WeeklyGoal{
		UserID:    userID,
		WeekStart: ws,
		UpdatedAt: s.resolver.Now(),
	}
	if err := s.store.Upsert(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// mergeItems applies one batch of edits against the stored items under the
// current lock state. Descriptive fields always apply; target fields apply
// while targets are unlocked; actual fields while actuals are unlocked.
// Everything else is counted as a skip, never an error.
func (s *Service) mergeItems(existing []model.GoalItem, edits []model.ItemEdit, locks week.Locks) ([]model.GoalItem, int) {
	items := make([]model.GoalItem, len(existing))
	copy(items, existing)
	index := make(map[string]int, len(items))
	for i := range items {
		index[items[i].ID] = i
	}
	deleted := make(map[string]struct{})
	skipped := 0

	for _, e := range edits {
		if i, ok := index[e.ID]; ok && e.ID != "" {
			skipped += s.applyEdit(&items[i], e, locks, deleted)
			continue
		}
		if e.Delete {
			continue // deleting an unknown item is a no-op
		}
		item, skips, ok := s.newItem(e, locks)
		if !ok {
			skipped += skips
			continue
		}
		skipped += skips
		index[item.ID] = len(items)
		items = append(items, item)
	}

	out := items[:0:0]
	for _, it := range items {
		if _, gone := deleted[it.ID]; !gone {
			out = append(out, it)
		}
	}
	return out, skipped
}

func (s *Service) applyEdit(it *model.GoalItem, e model.ItemEdit, locks week.Locks, deleted map[string]struct{}) int {
	skipped := 0

	if e.Delete {
		// Removing a planned item reshapes the plan; removing an unplanned
		// one rewrites actuals.
		locked := locks.TargetsLocked
		if it.IsUnplanned {
			locked = locks.ActualsLocked
		}
		if locked {
			return 1
		}
		deleted[it.ID] = struct{}{}
		return 0
	}

	// The planned/unplanned partition is fixed at creation.
	if e.IsUnplanned != it.IsUnplanned {
		skipped++
	}

	it.Title = e.Title
	it.ActionPlan = e.ActionPlan
	it.Description = e.Description

	if !it.IsUnplanned {
		if locks.TargetsLocked {
			if clampMinutes(e.TargetMinutes) != it.TargetMinutes {
				skipped++
			}
		} else {
			it.TargetMinutes = clampMinutes(e.TargetMinutes)
		}
	}

	if locks.ActualsLocked {
		if clampMinutes(e.ActualMinutes) != it.ActualMinutes {
			skipped++
		}
		if !it.IsUnplanned && e.IsCompleted != it.IsCompleted {
			skipped++
		}
	} else {
		it.ActualMinutes = clampMinutes(e.ActualMinutes)
		if !it.IsUnplanned {
			it.IsCompleted = e.IsCompleted
		}
	}
	return skipped
}

// newItem builds a fresh item from an edit. Creating a planned item is a
// target change; creating an unplanned item is an actuals change.
func (s *Service) newItem(e model.ItemEdit, locks week.Locks) (model.GoalItem, int, bool) {
	if e.IsUnplanned {
		if locks.ActualsLocked {
			return model.GoalItem{}, 1, false
		}
		return model.GoalItem{
			ID:            uuid.NewString(),
			Title:         e.Title,
			IsUnplanned:   true,
			ActualMinutes: clampMinutes(e.ActualMinutes),
			ActionPlan:    e.ActionPlan,
			Description:   e.Description,
		}, 0, true
	}

	if locks.TargetsLocked {
		return model.GoalItem{}, 1, false
	}
	// Targets unlocked implies actuals unlocked: the actual deadline is a
	// week after the target deadline.
	return model.GoalItem{
		ID:            uuid.NewString(),
		Title:         e.Title,
		TargetMinutes: clampMinutes(e.TargetMinutes),
		ActualMinutes: clampMinutes(e.ActualMinutes),
		IsCompleted:   e.IsCompleted,
		ActionPlan:    e.ActionPlan,
		Description:   e.Description,
	}, 0, true
}

func (s *Service) deriveWeights(goal *model.WeeklyGoal) {
	for i := range goal.Items {
		if goal.Items[i].IsUnplanned {
			goal.Items[i].TargetMinutes = 0
			goal.Items[i].WeightPercent = 0
			goal.Items[i].IsCompleted = false
			continue
		}
		goal.Items[i].WeightPercent = model.DeriveWeight(goal.Items[i].TargetMinutes, s.baseMinutes)
	}
}

func (s *Service) validateBudget(goal *model.WeeklyGoal) error {
	target := goal.TotalTargetMinutes()
	weight := goal.TotalWeightPercent()
	if target > s.baseMinutes || weight > maxWeightPercent+weightTolerance {
		return &BudgetError{
			TargetMinutes: target,
			LimitMinutes:  s.baseMinutes,
			WeightPercent: weight,
		}
	}
	return nil
}

func (s *Service) view(goal *model.WeeklyGoal, skipped int) *GoalView {
	start := time.Now()
	breakdown := s.engine.Compute(leaderboard.InputFromGoal(goal, s.baseMinutes))
	metrics.RecordScoreComputation()
	metrics.RecordComputeDuration(float64(time.Since(start).Milliseconds()))

	return &GoalView{
		Goal:         goal,
		Locks:        s.resolver.LocksFor(goal.WeekStart),
		Breakdown:    breakdown,
		SkippedEdits: skipped,
	}
}

func (s *Service) publishScore(ctx context.Context, v *GoalView) {
	if s.eventQueue == nil {
		return
	}
	e := events.ScoreEvent{
		UserID:           v.Goal.UserID,
		WeekStart:        v.Goal.WeekStart.Format("2006-01-02"),
		Score:            v.Breakdown.Score,
		TargetMinutes:    v.Goal.TotalTargetMinutes(),
		ActualMinutes:    v.Goal.TotalActualMinutes(),
		UnplannedMinutes: v.Goal.UnplannedMinutes(),
		SavedAt:          v.Goal.UpdatedAt,
	}
	if !s.eventQueue.Enqueue(ctx, e) {
		metrics.RecordEventDropped()
		s.logger.Warn(ctx, "score event dropped",
			logger.String("userID", e.UserID),
			logger.String("weekStart", e.WeekStart),
		)
	}
}

func clampMinutes(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
