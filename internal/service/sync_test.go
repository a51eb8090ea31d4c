package service

import (
	"context"
	"testing"
	"time"

	"github.com/mobihelp/sync-service/internal/entities"
	"github.com/stretchr/testify/require"
)

// Start runs a reconciliation pass over the freshly loaded snapshot, so
// a roster that already needs a correction issues its remote write before
// the fold loop is up. The write goroutine and the fold loop must observe
// the run context Start was given.
func TestStartAppliesSnapshotCorrections(t *testing.T) {
	ds := newFakeDataStore()
	ds.profiles["ex1"] = entities.UserProfile{
		ID:                              "ex1",
		Role:                            entities.RoleExecutor,
		SubscriptionStatus:              entities.SubscriptionPending,
		SubscriptionRequestToCustomerID: "cust1",
	}
	ds.profiles["cust1"] = entities.UserProfile{
		ID:                   "cust1",
		Role:                 entities.RoleCustomer,
		SubscribedExecutorID: "ex1",
	}

	svc := newTestService(t, executor, ds)
	require.NoError(t, svc.Start(context.Background()))

	waitForWrites(t, ds, 0, 1)

	require.Eventually(t, func() bool {
		own, err := svc.Profile(context.Background())
		return err == nil &&
			own.SubscriptionStatus == entities.SubscriptionActive &&
			own.SubscribedToCustomerID == "cust1"
	}, time.Second, 5*time.Millisecond)

	ds.mu.Lock()
	saved := ds.profiles["ex1"]
	ds.mu.Unlock()
	require.Equal(t, entities.SubscriptionActive, saved.SubscriptionStatus)
}
