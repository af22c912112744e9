package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
)

type stubCatalogRepo struct {
	loads      int
	states     []domain.State
	priorities []domain.Priority
	rules      []domain.TransitionRule
}

func (s *stubCatalogRepo) ListStates(ctx context.Context) ([]domain.State, error) {
	s.loads++
	return s.states, nil
}

func (s *stubCatalogRepo) ListPriorities(ctx context.Context) ([]domain.Priority, error) {
	return s.priorities, nil
}

func (s *stubCatalogRepo) ListActiveTransitionRules(ctx context.Context) ([]domain.TransitionRule, error) {
	return s.rules, nil
}

func newStubRepo() *stubCatalogRepo {
	return &stubCatalogRepo{
		states: []domain.State{
			{Code: domain.StateRegistered, IsInitial: true},
			{Code: domain.StateResolved, IsFinal: true},
		},
		priorities: []domain.Priority{
			{Code: "HIGH", SlaHours: 24},
		},
		rules: []domain.TransitionRule{
			{FromState: domain.StateRegistered, ToState: domain.StateResolved, RequiresReason: true, Active: true},
		},
	}
}

func TestCacheLookups(t *testing.T) {
	repo := newStubRepo()
	cache := NewCache(repo, nil, time.Minute, zap.NewNop())
	ctx := context.Background()

	initial, err := cache.InitialState(ctx)
	require.NoError(t, err)
	require.NotNil(t, initial)
	assert.Equal(t, domain.StateRegistered, initial.Code)

	priority, err := cache.Priority(ctx, "HIGH")
	require.NoError(t, err)
	require.NotNil(t, priority)
	assert.Equal(t, 24, priority.SlaHours)

	rule, err := cache.Rule(ctx, domain.StateRegistered, domain.StateResolved)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.True(t, rule.RequiresReason)

	missing, err := cache.Rule(ctx, domain.StateResolved, domain.StateRegistered)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCacheServesSnapshotWithinTTL(t *testing.T) {
	repo := newStubRepo()
	cache := NewCache(repo, nil, time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := cache.State(ctx, domain.StateRegistered)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.loads)
}

func TestCacheRefreshAfterTTL(t *testing.T) {
	repo := newStubRepo()
	cache := NewCache(repo, nil, time.Minute, zap.NewNop())
	ctx := context.Background()

	current := time.Now()
	cache.now = func() time.Time { return current }

	_, err := cache.State(ctx, domain.StateRegistered)
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	_, err = cache.State(ctx, domain.StateRegistered)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.loads)
}

func TestCacheInvalidate(t *testing.T) {
	repo := newStubRepo()
	cache := NewCache(repo, nil, time.Minute, zap.NewNop())
	ctx := context.Background()

	_, err := cache.State(ctx, domain.StateRegistered)
	require.NoError(t, err)

	cache.Invalidate(ctx)

	_, err = cache.State(ctx, domain.StateRegistered)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.loads)
}
