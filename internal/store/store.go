package store

import (
	"sync"

	"github.com/ZehenForever/dpsboard/internal/model"
)

// Store holds the latest snapshot. Snapshots handed to Replace are treated as
// immutable; readers receive the same pointer until the next swap.
type Store struct {
	mu   sync.RWMutex
	snap *model.Snapshot
}

func New() *Store {
	return &Store{snap: model.NewEmptySnapshot()}
}

// Replace swaps in next wholesale. A nil Users map means the producer omitted
// it, so the previous users are carried over.
func (s *Store) Replace(next *model.Snapshot) {
	if next == nil {
		return
	}
	cp := *next
	if cp.Damage == nil {
		cp.Damage = model.DamageTable{}
	}
	if cp.DamageSingle == nil {
		cp.DamageSingle = model.DamageTable{}
	}
	if cp.Buffs == nil {
		cp.Buffs = model.BuffTable{}
	}
	if cp.HitTime == nil {
		cp.HitTime = map[int64]model.HitWindow{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cp.Users == nil {
		cp.Users = s.snap.Users
	}
	s.snap = &cp
}

func (s *Store) Reset() {
	s.mu.Lock()
	s.snap = model.NewEmptySnapshot()
	s.mu.Unlock()
}

func (s *Store) Current() *model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) CurrentTargetID(mode model.BossMode) int64 {
	return s.Current().TargetFor(mode)
}
