package store_test

import (
	"testing"

	"github.com/mobihelp/sync-service/internal/entities"
	"github.com/mobihelp/sync-service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertOrderStates(t *testing.T) {
	s := store.New()

	s.UpsertOrderLocal(entities.Order{ID: "o1"})
	assert.Equal(t, store.PendingWrite, s.State(store.KindOrder, "o1"))

	// Authoritative copy always wins and resets the state.
	s.UpsertOrder(entities.Order{ID: "o1", Status: entities.OrderConfirmed})
	assert.Equal(t, store.Clean, s.State(store.KindOrder, "o1"))

	o, ok := s.Order("o1")
	require.True(t, ok)
	assert.Equal(t, entities.OrderConfirmed, o.Status)
}

func TestMarkWriteSettled(t *testing.T) {
	s := store.New()

	s.UpsertOrderLocal(entities.Order{ID: "o1"})
	s.MarkWriteSettled(store.KindOrder, "o1")
	assert.Equal(t, store.Clean, s.State(store.KindOrder, "o1"))

	// A record already refreshed by an authoritative read stays Clean even
	// if its old write settles afterwards.
	s.UpsertOrderLocal(entities.Order{ID: "o2"})
	s.UpsertOrder(entities.Order{ID: "o2"})
	s.MarkWriteSettled(store.KindOrder, "o2")
	assert.Equal(t, store.Clean, s.State(store.KindOrder, "o2"))
}

func TestMarkDiverged(t *testing.T) {
	s := store.New()

	s.UpsertOrderLocal(entities.Order{ID: "o1", Details: "local edit"})
	s.MarkDiverged(store.KindOrder, "o1")
	assert.Equal(t, store.Diverged, s.State(store.KindOrder, "o1"))

	// The local copy is kept as is, never rolled back.
	o, ok := s.Order("o1")
	require.True(t, ok)
	assert.Equal(t, "local edit", o.Details)

	// Untracked records are not resurrected by a late failure callback.
	s.MarkDiverged(store.KindOrder, "ghost")
	_, ok = s.Order("ghost")
	assert.False(t, ok)

	assert.Equal(t, 1, s.DivergedCount())
}

func TestRemoveOrderClearsState(t *testing.T) {
	s := store.New()

	s.UpsertOrderLocal(entities.Order{ID: "o1"})
	s.MarkDiverged(store.KindOrder, "o1")
	s.RemoveOrder("o1")

	_, ok := s.Order("o1")
	assert.False(t, ok)
	assert.Equal(t, 0, s.DivergedCount())
	assert.Equal(t, store.Clean, s.State(store.KindOrder, "o1"))
}

func TestOrdersInsertionOrder(t *testing.T) {
	s := store.New()

	s.UpsertOrder(entities.Order{ID: "a"})
	s.UpsertOrder(entities.Order{ID: "b"})
	s.UpsertOrder(entities.Order{ID: "c"})
	// Updating an existing record must not move it.
	s.UpsertOrder(entities.Order{ID: "a", Details: "updated"})
	s.RemoveOrder("b")
	s.UpsertOrder(entities.Order{ID: "d"})

	var ids []string
	for _, o := range s.Orders() {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"a", "c", "d"}, ids)
}

func TestProfilesIndependentOfOrders(t *testing.T) {
	s := store.New()

	s.UpsertProfileLocal(entities.UserProfile{ID: "u1"})
	s.UpsertOrder(entities.Order{ID: "u1"})

	assert.Equal(t, store.PendingWrite, s.State(store.KindProfile, "u1"))
	assert.Equal(t, store.Clean, s.State(store.KindOrder, "u1"))

	s.RemoveProfile("u1")
	_, ok := s.Order("u1")
	assert.True(t, ok)
}
