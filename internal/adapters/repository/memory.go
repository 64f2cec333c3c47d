package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/planly/planly/internal/domain/model"
	"github.com/planly/planly/pkg/metrics"
)

// Default sharding for the in-memory store.
const defaultShardCount = 8

// MemoryStore is a sharded in-memory Store. Records are deep-copied on the
// way in and out so callers never alias store state.
type MemoryStore struct {
	shards []*memoryShard
}

type memoryShard struct {
	mu    sync.RWMutex
	goals map[string]*model.WeeklyGoal
}

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithShardCount sets the number of shards.
func WithShardCount(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.shards = make([]*memoryShard, n)
		}
	}
}

// NewMemoryStore creates an in-memory store with configuration options.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{shards: make([]*memoryShard, defaultShardCount)}
	for _, opt := range opts {
		opt(s)
	}
	for i := range s.shards {
		s.shards[i] = &memoryShard{goals: make(map[string]*model.WeeklyGoal)}
	}
	return s
}

func (s *MemoryStore) shardFor(key string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[int(h.Sum32())%len(s.shards)]
}

func recordKey(userID string, weekStart time.Time) string {
	return userID + "|" + weekKey(weekStart)
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, userID string, weekStart time.Time) (*model.WeeklyGoal, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("get", float64(time.Since(start).Milliseconds()))
	}()

	key := recordKey(userID, weekStart)
	shard := s.shardFor(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	goal, ok := shard.goals[key]
	if !ok {
		return nil, ErrNotFound
	}
	return goal.Clone(), nil
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(ctx context.Context, goal *model.WeeklyGoal) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("upsert", float64(time.Since(start).Milliseconds()))
	}()

	key := recordKey(goal.UserID, goal.WeekStart)
	shard := s.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	shard.goals[key] = goal.Clone()
	return nil
}

// ListForWeek implements Store.
func (s *MemoryStore) ListForWeek(ctx context.Context, weekStart time.Time, userIDs []string) ([]*model.WeeklyGoal, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("list", float64(time.Since(start).Milliseconds()))
	}()

	out := make([]*model.WeeklyGoal, 0, len(userIDs))
	for _, userID := range userIDs {
		key := recordKey(userID, weekStart)
		shard := s.shardFor(key)
		shard.mu.RLock()
		if goal, ok := shard.goals[key]; ok {
			out = append(out, goal.Clone())
		}
		shard.mu.RUnlock()
	}
	return out, nil
}

// Count implements Store.
func (s *MemoryStore) Count(ctx context.Context) int {
	total := 0
	for _, shard := range s.shards {
		shard.mu.RLock()
		total += len(shard.goals)
		shard.mu.RUnlock()
	}
	return total
}

// Close implements Store. The in-memory store holds no external resources.
func (s *MemoryStore) Close() error {
	return nil
}
