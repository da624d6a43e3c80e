package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/meeting-assignments-api/internal/models"
	appErrors "github.com/noah-isme/meeting-assignments-api/pkg/errors"
)

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) Delete(_ context.Context, key string) error {
	delete(s.store, key)
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	return nil
}

func sampleProposal(id string, requestedAt time.Time) assignmentProposal {
	week := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	return assignmentProposal{
		ProposalID:  id,
		WeekOf:      week,
		Fingerprint: "abc",
		Parts:       []models.ProgramPart{{Number: 3, Type: models.PartScriptureReading}},
		RequestedAt: requestedAt,
	}
}

func TestMemoryProposalStoreExpiry(t *testing.T) {
	store := newMemoryProposalStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleProposal("fresh", time.Now().UTC())))
	require.NoError(t, store.Save(ctx, sampleProposal("stale", time.Now().UTC().Add(-2*time.Minute))))

	_, ok, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = store.Get(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, "fresh"))
	_, ok, _ = store.Get(ctx, "fresh")
	assert.False(t, ok)
}

func TestMemoryProposalStoreEvictsOnSave(t *testing.T) {
	store := newMemoryProposalStore(time.Minute)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleProposal("stale", time.Now().UTC().Add(-time.Hour))))
	require.NoError(t, store.Save(ctx, sampleProposal("fresh", time.Now().UTC())))

	store.mu.RLock()
	defer store.mu.RUnlock()
	assert.Len(t, store.items, 1)
}

func TestCacheProposalStoreRoundTrip(t *testing.T) {
	repo := &stubCacheRepo{}
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	store := newCacheProposalStore(cache, time.Minute)
	ctx := context.Background()

	proposal := sampleProposal("p1", time.Now().UTC())
	require.NoError(t, store.Save(ctx, proposal))
	assert.Contains(t, repo.store, proposalKeyPrefix+"p1")

	loaded, ok, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, proposal.Fingerprint, loaded.Fingerprint)
	assert.True(t, proposal.WeekOf.Equal(loaded.WeekOf))
	require.Len(t, loaded.Parts, 1)

	require.NoError(t, store.Delete(ctx, "p1"))
	_, ok, err = store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAssignmentServiceSelectsCacheStore(t *testing.T) {
	cache := NewCacheService(&stubCacheRepo{}, nil, time.Minute, nil, true)
	svc := NewAssignmentService(nil, nil, nil, nil, nil, nil, nil, cache, nil, nil, nil, AssignmentServiceConfig{CacheProposals: true})
	_, isCache := svc.store.(*cacheProposalStore)
	assert.True(t, isCache)

	disabled := NewCacheService(&stubCacheRepo{}, nil, time.Minute, nil, false)
	svc = NewAssignmentService(nil, nil, nil, nil, nil, nil, nil, disabled, nil, nil, nil, AssignmentServiceConfig{CacheProposals: true})
	_, isMemory := svc.store.(*memoryProposalStore)
	assert.True(t, isMemory)
}
