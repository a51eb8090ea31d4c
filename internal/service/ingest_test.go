package service

import (
	"testing"

	"github.com/mobihelp/sync-service/internal/entities"
	"github.com/mobihelp/sync-service/internal/remote"
	"github.com/mobihelp/sync-service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestInsertRelevance(t *testing.T) {
	tests := []struct {
		name  string
		actor entities.Actor
		order entities.Order
		kept  bool
	}{
		{
			name:  "customer keeps own order",
			actor: customer,
			order: entities.Order{ID: "o1", CustomerID: "cust1", Status: entities.OrderPending},
			kept:  true,
		},
		{
			name:  "customer drops foreign order",
			actor: customer,
			order: entities.Order{ID: "o1", CustomerID: "cust2", Status: entities.OrderOpen},
			kept:  false,
		},
		{
			name:  "executor keeps assigned order",
			actor: executor,
			order: entities.Order{ID: "o1", CustomerID: "cust2", ExecutorID: "ex1", Status: entities.OrderConfirmed},
			kept:  true,
		},
		{
			name:  "executor keeps open order",
			actor: executor,
			order: entities.Order{ID: "o1", CustomerID: "cust2", Status: entities.OrderOpen},
			kept:  true,
		},
		{
			name:  "executor drops foreign assigned order",
			actor: executor,
			order: entities.Order{ID: "o1", CustomerID: "cust2", ExecutorID: "ex2", Status: entities.OrderConfirmed},
			kept:  false,
		},
		{
			name:  "admin keeps everything",
			actor: entities.Actor{ID: "adm", Role: entities.RoleAdmin},
			order: entities.Order{ID: "o1", CustomerID: "cust2", ExecutorID: "ex2", Status: entities.OrderCompleted},
			kept:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.actor, newFakeDataStore())
			svc.ingestChange(remote.OrderChange{Type: remote.ChangeInsert, Order: tt.order})

			_, ok := svc.store.Order(tt.order.ID)
			assert.Equal(t, tt.kept, ok)
		})
	}
}

func TestIngestUpdateKnownOrderAlwaysApplies(t *testing.T) {
	svc := newTestService(t, executor, newFakeDataStore())
	svc.store.UpsertOrder(entities.Order{ID: "o1", CustomerID: "cust1", ExecutorID: "ex1", Status: entities.OrderConfirmed})

	// Reassignment away from the actor still lands because the order is
	// already mirrored.
	svc.ingestChange(remote.OrderChange{Type: remote.ChangeUpdate, Order: entities.Order{
		ID: "o1", CustomerID: "cust1", ExecutorID: "ex2", Status: entities.OrderConfirmed,
	}})

	o, ok := svc.store.Order("o1")
	require.True(t, ok)
	assert.Equal(t, "ex2", o.ExecutorID)
}

func TestIngestUpdateUnknownOrder(t *testing.T) {
	svc := newTestService(t, customer, newFakeDataStore())

	svc.ingestChange(remote.OrderChange{Type: remote.ChangeUpdate, Order: entities.Order{
		ID: "foreign", CustomerID: "cust2", Status: entities.OrderOpen,
	}})
	_, ok := svc.store.Order("foreign")
	assert.False(t, ok)

	// Unknown but relevant updates are treated as inserts.
	svc.ingestChange(remote.OrderChange{Type: remote.ChangeUpdate, Order: entities.Order{
		ID: "mine", CustomerID: "cust1", Status: entities.OrderPending,
	}})
	_, ok = svc.store.Order("mine")
	assert.True(t, ok)
}

func TestIngestDelete(t *testing.T) {
	svc := newTestService(t, customer, newFakeDataStore())
	svc.store.UpsertOrder(entities.Order{ID: "o1", CustomerID: "cust1"})

	svc.ingestChange(remote.OrderChange{Type: remote.ChangeDelete, Order: entities.Order{ID: "o1"}})
	_, ok := svc.store.Order("o1")
	assert.False(t, ok)

	// Deleting an unmirrored order is a no-op, not an error.
	svc.ingestChange(remote.OrderChange{Type: remote.ChangeDelete, Order: entities.Order{ID: "ghost"}})
}

func TestIngestSettlesOptimisticWrite(t *testing.T) {
	svc := newTestService(t, customer, newFakeDataStore())
	svc.store.UpsertOrderLocal(entities.Order{ID: "o1", CustomerID: "cust1", Status: entities.OrderCancelled})

	svc.ingestChange(remote.OrderChange{Type: remote.ChangeUpdate, Order: entities.Order{
		ID: "o1", CustomerID: "cust1", Status: entities.OrderCancelled,
	}})

	assert.Equal(t, store.Clean, svc.store.State(store.KindOrder, "o1"))
}

func TestIngestRejectionNotification(t *testing.T) {
	svc := newTestService(t, customer, newFakeDataStore())
	svc.store.UpsertProfile(entities.UserProfile{ID: "cust1", Role: entities.RoleCustomer})
	svc.store.UpsertOrder(entities.Order{ID: "o1", CustomerID: "cust1", ExecutorID: "ex1", Status: entities.OrderPending})

	rejected := entities.Order{
		ID: "o1", CustomerID: "cust1",
		Status: entities.OrderOpen, RejectionReason: "busy",
	}
	svc.ingestChange(remote.OrderChange{Type: remote.ChangeUpdate, Order: rejected})

	own, _ := svc.store.Profile("cust1")
	require.Len(t, own.Notifications, 1)
	assert.Equal(t, entities.NotificationWarning, own.Notifications[0].Type)
	assert.Equal(t, "Order o1 rejected: busy", own.Notifications[0].Message)

	// Replays of the same rejection do not stack.
	svc.ingestChange(remote.OrderChange{Type: remote.ChangeUpdate, Order: rejected})
	own, _ = svc.store.Profile("cust1")
	assert.Len(t, own.Notifications, 1)
}

func TestIngestRejectionOnlyForOwnOrders(t *testing.T) {
	svc := newTestService(t, entities.Actor{ID: "adm", Role: entities.RoleAdmin}, newFakeDataStore())
	svc.store.UpsertProfile(entities.UserProfile{ID: "adm", Role: entities.RoleAdmin})
	svc.store.UpsertOrder(entities.Order{ID: "o1", CustomerID: "cust1", ExecutorID: "ex1", Status: entities.OrderPending})

	svc.ingestChange(remote.OrderChange{Type: remote.ChangeUpdate, Order: entities.Order{
		ID: "o1", CustomerID: "cust1", Status: entities.OrderOpen, RejectionReason: "busy",
	}})

	own, _ := svc.store.Profile("adm")
	assert.Empty(t, own.Notifications)
}
