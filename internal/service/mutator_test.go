package service

import (
	"context"
	"testing"
	"time"

	"github.com/mobihelp/sync-service/internal/entities"
	"github.com/mobihelp/sync-service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	customer = entities.Actor{ID: "cust1", Role: entities.RoleCustomer}
	executor = entities.Actor{ID: "ex1", Role: entities.RoleExecutor}
)

func TestCreateOrder(t *testing.T) {
	tests := []struct {
		name       string
		actor      entities.Actor
		m          CreateOrder
		wantErr    error
		wantStatus entities.OrderStatus
	}{
		{
			name:  "transfer without executor opens",
			actor: customer,
			m: CreateOrder{
				ServiceType:  entities.ServiceTransfer,
				Date:         "2026-03-02",
				Time:         "10:00",
				LocationFrom: &entities.GeoPoint{Address: "a"},
				LocationTo:   &entities.GeoPoint{Address: "b"},
			},
			wantStatus: entities.OrderOpen,
		},
		{
			name:  "preselected executor pends",
			actor: customer,
			m: CreateOrder{
				ExecutorID:   "ex1",
				ServiceType:  entities.ServiceTransfer,
				Date:         "2026-03-02",
				Time:         "10:00",
				LocationFrom: &entities.GeoPoint{Address: "a"},
				LocationTo:   &entities.GeoPoint{Address: "b"},
			},
			wantStatus: entities.OrderPending,
		},
		{
			name:  "accompany needs general location",
			actor: customer,
			m: CreateOrder{
				ServiceType:  entities.ServiceAccompany,
				Date:         "2026-03-02",
				Time:         "10:00",
				LocationFrom: &entities.GeoPoint{Address: "a"},
			},
			wantErr: entities.ErrInvalidMutation,
		},
		{
			name:  "transfer needs both route ends",
			actor: customer,
			m: CreateOrder{
				ServiceType:  entities.ServiceTransfer,
				Date:         "2026-03-02",
				Time:         "10:00",
				LocationFrom: &entities.GeoPoint{Address: "a"},
			},
			wantErr: entities.ErrInvalidMutation,
		},
		{
			name:  "executor cannot create",
			actor: executor,
			m: CreateOrder{
				ServiceType:     entities.ServiceAccompany,
				Date:            "2026-03-02",
				Time:            "10:00",
				GeneralLocation: &entities.GeoPoint{Address: "a"},
			},
			wantErr: entities.ErrNotAllowed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.actor, newFakeDataStore())

			err := svc.apply(tt.m)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, svc.store.Orders())
				return
			}
			require.NoError(t, err)

			orders := svc.store.Orders()
			require.Len(t, orders, 1)
			o := orders[0]
			assert.Equal(t, tt.wantStatus, o.Status)
			assert.Equal(t, tt.actor.ID, o.CustomerID)
			assert.Equal(t, testNow, o.CreatedAt)
			assert.Equal(t, store.PendingWrite, svc.store.State(store.KindOrder, o.ID))
		})
	}
}

func TestAcceptOrder(t *testing.T) {
	svc := newTestService(t, executor, newFakeDataStore())
	svc.store.UpsertOrder(entities.Order{ID: "o1", CustomerID: "cust1", ExecutorID: "ex1", Status: entities.OrderPending})

	require.NoError(t, svc.apply(AcceptOrder{OrderID: "o1"}))

	o, _ := svc.store.Order("o1")
	assert.Equal(t, entities.OrderConfirmed, o.Status)
	assert.Equal(t, testNow, o.UpdatedAt)

	// Second accept finds the order no longer pending.
	assert.ErrorIs(t, svc.apply(AcceptOrder{OrderID: "o1"}), entities.ErrInvalidMutation)
}

func TestAcceptOrderNotAssigned(t *testing.T) {
	svc := newTestService(t, executor, newFakeDataStore())
	svc.store.UpsertOrder(entities.Order{ID: "o1", CustomerID: "cust1", ExecutorID: "ex2", Status: entities.OrderPending})

	assert.ErrorIs(t, svc.apply(AcceptOrder{OrderID: "o1"}), entities.ErrNotAllowed)
	assert.ErrorIs(t, svc.apply(AcceptOrder{OrderID: "missing"}), entities.ErrOrderNotFound)
}

func TestRejectOrderAlwaysReopens(t *testing.T) {
	// The transform is identical whether or not the customer allowed open
	// selection; the flag does not gate reopening.
	for _, allowOpen := range []bool{true, false} {
		svc := newTestService(t, executor, newFakeDataStore())
		svc.store.UpsertOrder(entities.Order{
			ID: "o1", CustomerID: "cust1", ExecutorID: "ex1",
			Status:             entities.OrderPending,
			AllowOpenSelection: allowOpen,
			Responses:          []string{"ex9"},
		})

		require.NoError(t, svc.apply(RejectOrder{OrderID: "o1", Reason: "busy"}))

		o, _ := svc.store.Order("o1")
		assert.Equal(t, entities.OrderOpen, o.Status)
		assert.Empty(t, o.ExecutorID)
		assert.Nil(t, o.Responses)
		assert.Equal(t, "busy", o.RejectionReason)
	}
}

func TestClaimOpenOrder(t *testing.T) {
	svc := newTestService(t, executor, newFakeDataStore())
	svc.store.UpsertOrder(entities.Order{ID: "o1", CustomerID: "cust1", Status: entities.OrderOpen, Responses: []string{"ex2"}})

	require.NoError(t, svc.apply(ClaimOpenOrder{OrderID: "o1"}))

	o, _ := svc.store.Order("o1")
	assert.Equal(t, entities.OrderConfirmed, o.Status)
	assert.Equal(t, "ex1", o.ExecutorID)
	assert.Nil(t, o.Responses)
}

func TestClaimNonOpenOrder(t *testing.T) {
	svc := newTestService(t, executor, newFakeDataStore())
	svc.store.UpsertOrder(entities.Order{ID: "o1", CustomerID: "cust1", ExecutorID: "ex2", Status: entities.OrderConfirmed})

	assert.ErrorIs(t, svc.apply(ClaimOpenOrder{OrderID: "o1"}), entities.ErrInvalidMutation)
}

func TestRespondToOpenOrderIdempotent(t *testing.T) {
	svc := newTestService(t, executor, newFakeDataStore())
	svc.store.UpsertOrder(entities.Order{ID: "o1", CustomerID: "cust1", Status: entities.OrderOpen})

	require.NoError(t, svc.apply(RespondToOpenOrder{OrderID: "o1"}))
	require.NoError(t, svc.apply(RespondToOpenOrder{OrderID: "o1"}))

	o, _ := svc.store.Order("o1")
	assert.Equal(t, []string{"ex1"}, o.Responses)
}

func TestSelectExecutor(t *testing.T) {
	svc := newTestService(t, customer, newFakeDataStore())
	svc.store.UpsertOrder(entities.Order{ID: "o1", CustomerID: "cust1", Status: entities.OrderOpen, Responses: []string{"ex1", "ex2"}})

	require.NoError(t, svc.apply(SelectExecutor{OrderID: "o1", ExecutorID: "ex2"}))

	o, _ := svc.store.Order("o1")
	// Selection waits for the executor's accept.
	assert.Equal(t, entities.OrderPending, o.Status)
	assert.Equal(t, "ex2", o.ExecutorID)
	assert.Nil(t, o.Responses)
}

func TestSelectExecutorMustHaveResponded(t *testing.T) {
	svc := newTestService(t, customer, newFakeDataStore())
	svc.store.UpsertOrder(entities.Order{ID: "o1", CustomerID: "cust1", Status: entities.OrderOpen, Responses: []string{"ex1"}})

	assert.ErrorIs(t, svc.apply(SelectExecutor{OrderID: "o1", ExecutorID: "ex9"}), entities.ErrInvalidMutation)
}

func TestCompleteOrderPropagatesReview(t *testing.T) {
	ds := newFakeDataStore()
	svc := newTestService(t, customer, ds)
	svc.store.UpsertProfile(entities.UserProfile{ID: "cust1", Role: entities.RoleCustomer, Name: "Anna"})
	svc.store.UpsertProfile(entities.UserProfile{
		ID: "ex1", Role: entities.RoleExecutor,
		Rating: 5, ReviewsCount: 1,
		Reviews: []entities.Review{{ID: "r1", Rating: 5}},
	})
	svc.store.UpsertOrder(entities.Order{ID: "o1", CustomerID: "cust1", ExecutorID: "ex1", Status: entities.OrderConfirmed})

	require.NoError(t, svc.apply(CompleteOrder{OrderID: "o1", Rating: 3, Review: "ok"}))

	o, _ := svc.store.Order("o1")
	assert.Equal(t, entities.OrderCompleted, o.Status)
	assert.Equal(t, 3, o.Rating)

	ex, _ := svc.store.Profile("ex1")
	require.Len(t, ex.Reviews, 2)
	assert.Equal(t, "Anna", ex.Reviews[1].AuthorName)
	assert.Equal(t, 2, ex.ReviewsCount)
	assert.InDelta(t, 4.0, ex.Rating, 1e-9)

	// Both the order and the foreign executor row get pushed.
	waitForWrites(t, ds, 1, 1)
}

func TestCompleteOrderExecutorMissing(t *testing.T) {
	svc := newTestService(t, customer, newFakeDataStore())
	svc.store.UpsertOrder(entities.Order{ID: "o1", CustomerID: "cust1", ExecutorID: "ex1", Status: entities.OrderConfirmed})

	// Review propagation is best effort; the completion itself sticks.
	require.NoError(t, svc.apply(CompleteOrder{OrderID: "o1", Rating: 5}))
	o, _ := svc.store.Order("o1")
	assert.Equal(t, entities.OrderCompleted, o.Status)
}

func TestCancelAndDeleteOrder(t *testing.T) {
	svc := newTestService(t, customer, newFakeDataStore())
	svc.store.UpsertOrder(entities.Order{ID: "o1", CustomerID: "cust1", Status: entities.OrderOpen})

	assert.ErrorIs(t, svc.apply(DeleteOrder{OrderID: "o1"}), entities.ErrInvalidMutation)

	require.NoError(t, svc.apply(CancelOrder{OrderID: "o1"}))
	o, _ := svc.store.Order("o1")
	assert.Equal(t, entities.OrderCancelled, o.Status)

	assert.ErrorIs(t, svc.apply(CancelOrder{OrderID: "o1"}), entities.ErrInvalidMutation)

	require.NoError(t, svc.apply(DeleteOrder{OrderID: "o1"}))
	_, ok := svc.store.Order("o1")
	assert.False(t, ok)
}

func TestRequestSubscription(t *testing.T) {
	svc := newTestService(t, executor, newFakeDataStore())
	svc.store.UpsertProfile(entities.UserProfile{ID: "ex1", Role: entities.RoleExecutor, SubscribedToCustomerID: "old"})
	svc.store.UpsertProfile(entities.UserProfile{ID: "cust1", Role: entities.RoleCustomer})

	require.NoError(t, svc.apply(RequestSubscription{CustomerID: "cust1"}))

	own, _ := svc.store.Profile("ex1")
	assert.Equal(t, entities.SubscriptionPending, own.SubscriptionStatus)
	assert.Equal(t, "cust1", own.SubscriptionRequestToCustomerID)
	assert.Empty(t, own.SubscribedToCustomerID)
	assert.Nil(t, own.SubscriptionStartDate)

	assert.ErrorIs(t, svc.apply(RequestSubscription{CustomerID: "ghost"}), entities.ErrProfileNotFound)
}

func TestConfirmSubscription(t *testing.T) {
	svc := newTestService(t, customer, newFakeDataStore())
	svc.store.UpsertProfile(entities.UserProfile{
		ID: "cust1", Role: entities.RoleCustomer,
		SubscriptionRequestToCustomerID: entities.EncodeRejectionSignal("ex2"),
	})

	require.NoError(t, svc.apply(ConfirmSubscription{ExecutorID: "ex1"}))

	own, _ := svc.store.Profile("cust1")
	assert.Equal(t, "ex1", own.SubscribedExecutorID)
	// A stale rejection sentinel is consumed by the confirmation.
	assert.Empty(t, own.SubscriptionRequestToCustomerID)
}

func TestRejectSubscription(t *testing.T) {
	svc := newTestService(t, customer, newFakeDataStore())
	svc.store.UpsertProfile(entities.UserProfile{ID: "cust1", Role: entities.RoleCustomer, SubscribedExecutorID: "ex1"})

	require.NoError(t, svc.apply(RejectSubscription{ExecutorID: "ex1"}))

	own, _ := svc.store.Profile("cust1")
	assert.Equal(t, entities.EncodeRejectionSignal("ex1"), own.SubscriptionRequestToCustomerID)
	assert.Empty(t, own.SubscribedExecutorID)
}

func TestCancelSubscriptionByExecutor(t *testing.T) {
	svc := newTestService(t, executor, newFakeDataStore())
	start := testNow.Add(-time.Hour)
	svc.store.UpsertProfile(entities.UserProfile{
		ID: "ex1", Role: entities.RoleExecutor,
		SubscriptionStatus:     entities.SubscriptionActive,
		SubscriptionStartDate:  &start,
		SubscribedToCustomerID: "cust1",
	})

	require.NoError(t, svc.apply(CancelSubscription{Reason: "moving away"}))

	own, _ := svc.store.Profile("ex1")
	assert.Equal(t, entities.SubscriptionNone, own.SubscriptionStatus)
	assert.Nil(t, own.SubscriptionStartDate)
	assert.Empty(t, own.SubscribedToCustomerID)
	require.Len(t, own.Notifications, 1)
	assert.Equal(t, "Subscription cancelled: moving away", own.Notifications[0].Message)

	// Same cancellation again must not stack a second notification.
	require.NoError(t, svc.apply(CancelSubscription{Reason: "moving away"}))
	own, _ = svc.store.Profile("ex1")
	assert.Len(t, own.Notifications, 1)
}

func TestCancelSubscriptionByCustomer(t *testing.T) {
	svc := newTestService(t, customer, newFakeDataStore())
	svc.store.UpsertProfile(entities.UserProfile{ID: "cust1", Role: entities.RoleCustomer, SubscribedExecutorID: "ex1"})

	require.NoError(t, svc.apply(CancelSubscription{}))

	own, _ := svc.store.Profile("cust1")
	assert.Empty(t, own.SubscribedExecutorID)
}

func TestUpdateProfilePartial(t *testing.T) {
	svc := newTestService(t, customer, newFakeDataStore())
	svc.store.UpsertProfile(entities.UserProfile{ID: "cust1", Role: entities.RoleCustomer, Name: "Anna", Phone: "123"})

	name := "Anna K."
	require.NoError(t, svc.apply(UpdateProfile{Patch: ProfilePatch{Name: &name}}))

	own, _ := svc.store.Profile("cust1")
	assert.Equal(t, "Anna K.", own.Name)
	assert.Equal(t, "123", own.Phone)
	assert.Equal(t, store.PendingWrite, svc.store.State(store.KindProfile, "cust1"))
}

func TestDismissNotification(t *testing.T) {
	svc := newTestService(t, customer, newFakeDataStore())
	n := entities.NewNotification(entities.NotificationInfo, "t", "m", testNow)
	svc.store.UpsertProfile(entities.UserProfile{ID: "cust1", Role: entities.RoleCustomer, Notifications: []entities.Notification{n}})

	require.NoError(t, svc.apply(DismissNotification{NotificationID: n.ID}))

	own, _ := svc.store.Profile("cust1")
	assert.Empty(t, own.Notifications)
}

func TestRemoteWriteFailureDiverges(t *testing.T) {
	ds := newFakeDataStore()
	ds.failOrderWrites = true
	svc := newTestService(t, customer, ds)
	svc.store.UpsertOrder(entities.Order{ID: "o1", CustomerID: "cust1", Status: entities.OrderOpen})

	require.NoError(t, svc.apply(CancelOrder{OrderID: "o1"}))
	waitForWrites(t, ds, 1, 0)
	drainOps(svc)

	// Local state keeps the optimistic value, only the marker changes.
	o, _ := svc.store.Order("o1")
	assert.Equal(t, entities.OrderCancelled, o.Status)
	assert.Equal(t, store.Diverged, svc.store.State(store.KindOrder, "o1"))
	assert.Equal(t, 1, svc.store.DivergedCount())
}

func TestRemoteWriteSuccessSettles(t *testing.T) {
	ds := newFakeDataStore()
	svc := newTestService(t, customer, ds)
	svc.store.UpsertOrder(entities.Order{ID: "o1", CustomerID: "cust1", Status: entities.OrderOpen})

	require.NoError(t, svc.apply(CancelOrder{OrderID: "o1"}))
	waitForWrites(t, ds, 1, 0)

	require.Eventually(t, func() bool {
		drainOps(svc)
		return svc.store.State(store.KindOrder, "o1") == store.Clean
	}, time.Second, 5*time.Millisecond)
}

func TestApplyValidatesMutation(t *testing.T) {
	svc := newTestService(t, customer, newFakeDataStore())

	err := svc.Apply(context.Background(), RejectOrder{OrderID: "o1"})
	assert.ErrorIs(t, err, entities.ErrInvalidMutation)

	err = svc.Apply(context.Background(), CompleteOrder{OrderID: "o1", Rating: 9})
	assert.ErrorIs(t, err, entities.ErrInvalidMutation)
}
