package service

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/meeting-assignments-api/internal/engine"
	"github.com/noah-isme/meeting-assignments-api/internal/models"
	"github.com/noah-isme/meeting-assignments-api/internal/policy"
)

const proposalKeyPrefix = "assignments:proposal:"

// assignmentProposal is a generated week held until it is saved or expires.
type assignmentProposal struct {
	ProposalID         string               `json:"proposalId"`
	WeekOf             time.Time            `json:"weekOf"`
	Fingerprint        string               `json:"fingerprint"`
	Parts              []models.ProgramPart `json:"parts"`
	ExcludedStudentIDs []string             `json:"excludedStudentIds"`
	IgnoreFamilyBonus  bool                 `json:"ignoreFamilyBonus"`
	Result             engine.Result        `json:"result"`
	Validation         *policy.Result       `json:"validation,omitempty"`
	RequestedAt        time.Time            `json:"requestedAt"`
}

func (p assignmentProposal) options() engine.Options {
	return engine.Options{
		WeekOf:             p.WeekOf,
		ExcludedStudentIDs: p.ExcludedStudentIDs,
		IgnoreFamilyBonus:  p.IgnoreFamilyBonus,
	}
}

type proposalStore interface {
	Save(ctx context.Context, proposal assignmentProposal) error
	Get(ctx context.Context, id string) (assignmentProposal, bool, error)
	Delete(ctx context.Context, id string) error
	TTL() time.Duration
}

type memoryProposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]assignmentProposal
}

func newMemoryProposalStore(ttl time.Duration) *memoryProposalStore {
	return &memoryProposalStore{
		ttl:   ttl,
		items: make(map[string]assignmentProposal),
	}
}

func (s *memoryProposalStore) TTL() time.Duration {
	return s.ttl
}

func (s *memoryProposalStore) Save(_ context.Context, proposal assignmentProposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	s.items[proposal.ProposalID] = proposal
	return nil
}

func (s *memoryProposalStore) Get(ctx context.Context, id string) (assignmentProposal, bool, error) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return assignmentProposal{}, false, nil
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		_ = s.Delete(ctx, id)
		return assignmentProposal{}, false, nil
	}
	return proposal, true, nil
}

func (s *memoryProposalStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// evictExpired must be called with the write lock held.
func (s *memoryProposalStore) evictExpired() {
	for id, proposal := range s.items {
		if time.Since(proposal.RequestedAt) > s.ttl {
			delete(s.items, id)
		}
	}
}

// cacheProposalStore keeps proposals in Redis so any instance can save them.
type cacheProposalStore struct {
	cache *CacheService
	ttl   time.Duration
}

func newCacheProposalStore(cache *CacheService, ttl time.Duration) *cacheProposalStore {
	return &cacheProposalStore{cache: cache, ttl: ttl}
}

func (s *cacheProposalStore) TTL() time.Duration {
	return s.ttl
}

func (s *cacheProposalStore) Save(ctx context.Context, proposal assignmentProposal) error {
	return s.cache.Set(ctx, proposalKeyPrefix+proposal.ProposalID, proposal, s.ttl)
}

func (s *cacheProposalStore) Get(ctx context.Context, id string) (assignmentProposal, bool, error) {
	var proposal assignmentProposal
	hit, err := s.cache.Get(ctx, proposalKeyPrefix+id, &proposal)
	if err != nil || !hit {
		return assignmentProposal{}, false, err
	}
	return proposal, true, nil
}

func (s *cacheProposalStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, proposalKeyPrefix+id)
}
