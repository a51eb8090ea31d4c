package store

import (
	"github.com/mobihelp/sync-service/internal/entities"
)

type Kind string

const (
	KindOrder   Kind = "order"
	KindProfile Kind = "profile"
)

// SyncState tracks how a mirrored record relates to the remote store.
// Optimistic writes park a record in PendingWrite; a failed remote write
// moves it to Diverged. There is no rollback: only the next authoritative
// read (realtime event or refetch) returns a record to Clean.
type SyncState int

const (
	Clean SyncState = iota
	PendingWrite
	Diverged
)

func (s SyncState) String() string {
	switch s {
	case PendingWrite:
		return "pending_write"
	case Diverged:
		return "diverged"
	default:
		return "clean"
	}
}

// RecordStore is the in-memory mirror of remote orders and profiles.
// It is exclusively owned by the sync service goroutine and therefore
// carries no locking; callers enforce all domain invariants.
type RecordStore struct {
	orders     map[string]entities.Order
	orderIDs   []string
	profiles   map[string]entities.UserProfile
	profileIDs []string

	states map[stateKey]SyncState
}

type stateKey struct {
	kind Kind
	id   string
}

func New() *RecordStore {
	return &RecordStore{
		orders:   make(map[string]entities.Order),
		profiles: make(map[string]entities.UserProfile),
		states:   make(map[stateKey]SyncState),
	}
}

func (s *RecordStore) Order(id string) (entities.Order, bool) {
	o, ok := s.orders[id]
	return o, ok
}

func (s *RecordStore) Profile(id string) (entities.UserProfile, bool) {
	p, ok := s.profiles[id]
	return p, ok
}

// UpsertOrder stores an authoritative copy of the order and resets its
// sync state to Clean.
func (s *RecordStore) UpsertOrder(o entities.Order) {
	s.upsertOrder(o)
	s.states[stateKey{KindOrder, o.ID}] = Clean
}

// UpsertOrderLocal stores an optimistic local copy and marks the record
// PendingWrite until the remote write settles.
func (s *RecordStore) UpsertOrderLocal(o entities.Order) {
	s.upsertOrder(o)
	s.states[stateKey{KindOrder, o.ID}] = PendingWrite
}

func (s *RecordStore) upsertOrder(o entities.Order) {
	if _, ok := s.orders[o.ID]; !ok {
		s.orderIDs = append(s.orderIDs, o.ID)
	}
	s.orders[o.ID] = o
}

func (s *RecordStore) UpsertProfile(p entities.UserProfile) {
	s.upsertProfile(p)
	s.states[stateKey{KindProfile, p.ID}] = Clean
}

func (s *RecordStore) UpsertProfileLocal(p entities.UserProfile) {
	s.upsertProfile(p)
	s.states[stateKey{KindProfile, p.ID}] = PendingWrite
}

func (s *RecordStore) upsertProfile(p entities.UserProfile) {
	if _, ok := s.profiles[p.ID]; !ok {
		s.profileIDs = append(s.profileIDs, p.ID)
	}
	s.profiles[p.ID] = p
}

func (s *RecordStore) RemoveOrder(id string) {
	if _, ok := s.orders[id]; !ok {
		return
	}
	delete(s.orders, id)
	delete(s.states, stateKey{KindOrder, id})
	s.orderIDs = removeID(s.orderIDs, id)
}

func (s *RecordStore) RemoveProfile(id string) {
	if _, ok := s.profiles[id]; !ok {
		return
	}
	delete(s.profiles, id)
	delete(s.states, stateKey{KindProfile, id})
	s.profileIDs = removeID(s.profileIDs, id)
}

// Orders lists mirrored orders in insertion order.
func (s *RecordStore) Orders() []entities.Order {
	out := make([]entities.Order, 0, len(s.orderIDs))
	for _, id := range s.orderIDs {
		out = append(out, s.orders[id])
	}
	return out
}

// Profiles lists mirrored profiles in insertion order.
func (s *RecordStore) Profiles() []entities.UserProfile {
	out := make([]entities.UserProfile, 0, len(s.profileIDs))
	for _, id := range s.profileIDs {
		out = append(out, s.profiles[id])
	}
	return out
}

func (s *RecordStore) State(kind Kind, id string) SyncState {
	return s.states[stateKey{kind, id}]
}

// MarkWriteSettled records a successful remote write. A record overwritten
// by a later authoritative read stays Clean.
func (s *RecordStore) MarkWriteSettled(kind Kind, id string) {
	key := stateKey{kind, id}
	if s.states[key] == PendingWrite {
		s.states[key] = Clean
	}
}

// MarkDiverged records a failed remote write; the local copy is kept as is.
func (s *RecordStore) MarkDiverged(kind Kind, id string) {
	key := stateKey{kind, id}
	if _, tracked := s.states[key]; tracked {
		s.states[key] = Diverged
	}
}

// DivergedCount feeds the divergence gauge.
func (s *RecordStore) DivergedCount() int {
	var n int
	for _, st := range s.states {
		if st == Diverged {
			n++
		}
	}
	return n
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
