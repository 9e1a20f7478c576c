package store

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/driftlock/ghostgate/internal/model"
)

// The in-memory backends shard their maps so that traffic for different
// fingerprints does not serialize on one lock. Keys land on a shard by
// xxhash; Update holds the shard lock across the whole read-modify-write.

const memShards = 32

type accountShard struct {
	mu   sync.RWMutex
	recs map[string]model.Account
}

// MemoryAccounts is the volatile Accounts backend. State is lost on
// restart, matching the reference behavior.
type MemoryAccounts struct {
	shards [memShards]*accountShard
}

func NewMemoryAccounts() *MemoryAccounts {
	m := &MemoryAccounts{}
	for i := range m.shards {
		m.shards[i] = &accountShard{recs: make(map[string]model.Account)}
	}
	return m
}

func (m *MemoryAccounts) shard(hash string) *accountShard {
	return m.shards[xxhash.Sum64String(hash)%memShards]
}

func (m *MemoryAccounts) Exists(_ context.Context, hash string) (bool, error) {
	s := m.shard(hash)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.recs[hash]
	return ok, nil
}

func (m *MemoryAccounts) Get(_ context.Context, hash string) (model.Account, error) {
	s := m.shard(hash)
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.recs[hash]
	if !ok {
		return model.Account{}, ErrNotFound
	}
	if acct.Nonce != nil {
		n := *acct.Nonce
		acct.Nonce = &n
	}
	return acct, nil
}

func (m *MemoryAccounts) Put(_ context.Context, hash string, acct model.Account) error {
	s := m.shard(hash)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[hash] = acct
	return nil
}

func (m *MemoryAccounts) Update(_ context.Context, hash string, mutate func(*model.Account)) error {
	s := m.shard(hash)
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.recs[hash]
	if !ok {
		return ErrNotFound
	}
	mutate(&acct)
	s.recs[hash] = acct
	return nil
}

type linkShard struct {
	mu   sync.RWMutex
	recs map[string]model.LinkNonce
}

// MemoryLinks is the volatile Links backend.
type MemoryLinks struct {
	shards [memShards]*linkShard
}

func NewMemoryLinks() *MemoryLinks {
	m := &MemoryLinks{}
	for i := range m.shards {
		m.shards[i] = &linkShard{recs: make(map[string]model.LinkNonce)}
	}
	return m
}

func (m *MemoryLinks) shard(id string) *linkShard {
	return m.shards[xxhash.Sum64String(id)%memShards]
}

func (m *MemoryLinks) Exists(_ context.Context, id string) (bool, error) {
	s := m.shard(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.recs[id]
	return ok, nil
}

func (m *MemoryLinks) Get(_ context.Context, id string) (model.LinkNonce, error) {
	s := m.shard(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	ln, ok := s.recs[id]
	if !ok {
		return model.LinkNonce{}, ErrNotFound
	}
	return ln, nil
}

func (m *MemoryLinks) Put(_ context.Context, id string, ln model.LinkNonce) error {
	s := m.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[id] = ln
	return nil
}

func (m *MemoryLinks) Remove(_ context.Context, id string) error {
	s := m.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, id)
	return nil
}
