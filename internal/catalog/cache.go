package catalog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
)

const redisKey = "catalog:snapshot"

// snapshot is one consistent view of the three reference tables.
type snapshot struct {
	States     []domain.State          `json:"states"`
	Priorities []domain.Priority       `json:"priorities"`
	Rules      []domain.TransitionRule `json:"rules"`

	stateByCode    map[string]*domain.State
	priorityByCode map[string]*domain.Priority
	ruleByEdge     map[[2]string]*domain.TransitionRule
	initial        *domain.State
}

func (s *snapshot) index() {
	s.stateByCode = make(map[string]*domain.State, len(s.States))
	for i := range s.States {
		st := &s.States[i]
		s.stateByCode[st.Code] = st
		if st.IsInitial && s.initial == nil {
			s.initial = st
		}
	}
	s.priorityByCode = make(map[string]*domain.Priority, len(s.Priorities))
	for i := range s.Priorities {
		s.priorityByCode[s.Priorities[i].Code] = &s.Priorities[i]
	}
	s.ruleByEdge = make(map[[2]string]*domain.TransitionRule, len(s.Rules))
	for i := range s.Rules {
		r := &s.Rules[i]
		s.ruleByEdge[[2]string{r.FromState, r.ToState}] = r
	}
}

// Cache serves catalog lookups from an in-process snapshot, refreshed from
// Redis (shared between instances) or the database when the TTL elapses.
// Redis is optional; with a nil client the cache falls back to the database
// on every refresh.
type Cache struct {
	repo   repository.CatalogRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu        sync.RWMutex
	snap      *snapshot
	refreshed time.Time
	now       func() time.Time
}

// NewCache builds a catalog cache. client may be nil.
func NewCache(repo repository.CatalogRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		repo:   repo,
		client: client,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func (c *Cache) current(ctx context.Context) (*snapshot, error) {
	c.mu.RLock()
	snap := c.snap
	fresh := snap != nil && c.now().Sub(c.refreshed) < c.ttl
	c.mu.RUnlock()
	if fresh {
		return snap, nil
	}
	return c.refresh(ctx)
}

func (c *Cache) refresh(ctx context.Context) (*snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap != nil && c.now().Sub(c.refreshed) < c.ttl {
		return c.snap, nil
	}

	if snap := c.fromRedis(ctx); snap != nil {
		c.snap = snap
		c.refreshed = c.now()
		return snap, nil
	}

	snap, err := c.load(ctx)
	if err != nil {
		if c.snap != nil {
			c.logger.Warn("catalog refresh failed, serving stale snapshot", zap.Error(err))
			return c.snap, nil
		}
		return nil, err
	}
	c.snap = snap
	c.refreshed = c.now()
	c.toRedis(ctx, snap)
	return snap, nil
}

func (c *Cache) load(ctx context.Context) (*snapshot, error) {
	states, err := c.repo.ListStates(ctx)
	if err != nil {
		return nil, err
	}
	priorities, err := c.repo.ListPriorities(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := c.repo.ListActiveTransitionRules(ctx)
	if err != nil {
		return nil, err
	}
	snap := &snapshot{States: states, Priorities: priorities, Rules: rules}
	snap.index()
	return snap, nil
}

func (c *Cache) fromRedis(ctx context.Context) *snapshot {
	if c.client == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, redisKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("catalog redis read failed", zap.Error(err))
		}
		return nil
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.logger.Warn("catalog redis payload corrupt", zap.Error(err))
		return nil
	}
	snap.index()
	return &snap
}

func (c *Cache) toRedis(ctx context.Context, snap *snapshot) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog redis write failed", zap.Error(err))
	}
}

// Invalidate drops the local snapshot and the shared Redis copy so the next
// lookup reloads from the database.
func (c *Cache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
	if c.client != nil {
		if err := c.client.Del(ctx, redisKey).Err(); err != nil {
			c.logger.Warn("catalog redis invalidate failed", zap.Error(err))
		}
	}
}

// InitialState returns the state flagged is_initial, or nil if the catalog
// has none.
func (c *Cache) InitialState(ctx context.Context) (*domain.State, error) {
	snap, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.initial, nil
}

// State returns the state with the given code, or nil when unknown.
func (c *Cache) State(ctx context.Context, code string) (*domain.State, error) {
	snap, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.stateByCode[code], nil
}

// Priority returns the priority with the given code, or nil when unknown.
func (c *Cache) Priority(ctx context.Context, code string) (*domain.Priority, error) {
	snap, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.priorityByCode[code], nil
}

// Rule returns the active transition rule for the (from, to) edge, or nil
// when no such rule is configured.
func (c *Cache) Rule(ctx context.Context, from, to string) (*domain.TransitionRule, error) {
	snap, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.ruleByEdge[[2]string{from, to}], nil
}

// States returns all configured states in sort order.
func (c *Cache) States(ctx context.Context) ([]domain.State, error) {
	snap, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.States, nil
}

// Priorities returns all configured priorities in sort order.
func (c *Cache) Priorities(ctx context.Context) ([]domain.Priority, error) {
	snap, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Priorities, nil
}
