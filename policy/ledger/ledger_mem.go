package ledger

import (
	"context"
	"sync"
	"time"
)

// In-memory count store for tests and single-process deployments.
type MemCountStore struct {
	mu      sync.Mutex
	counts  map[string]int
	expires map[string]time.Time

	// TTL and Now are overridable so tests can simulate expiry without
	// waiting 30 days.
	TTL time.Duration
	Now func() time.Time
}

var _ CountStore = (*MemCountStore)(nil)

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{
		counts:  make(map[string]int),
		expires: make(map[string]time.Time),
		TTL:     DefaultTTL,
		Now:     time.Now,
	}
}

func (s *MemCountStore) GetCount(ctx context.Context, install, actor string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := actorBucket(install, actor)
	if s.expired(k) {
		delete(s.counts, k)
		delete(s.expires, k)
		return 0, nil
	}
	return s.counts[k], nil
}

func (s *MemCountStore) Increment(ctx context.Context, install, actor string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := actorBucket(install, actor)
	if s.expired(k) {
		delete(s.counts, k)
	}
	v := s.counts[k] + 1
	s.counts[k] = v
	s.expires[k] = s.Now().Add(s.TTL)
	return v, nil
}

func (s *MemCountStore) Reset(ctx context.Context, install, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := actorBucket(install, actor)
	delete(s.counts, k)
	delete(s.expires, k)
	return nil
}

func (s *MemCountStore) expired(k string) bool {
	exp, ok := s.expires[k]
	return ok && s.Now().After(exp)
}
