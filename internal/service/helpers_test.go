package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mobihelp/sync-service/internal/entities"
	"github.com/mobihelp/sync-service/internal/store"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeDataStore is an in-memory remote.DataStore. Write methods are hit
// from the async push goroutines, so it carries a lock the real store's
// connection pool would otherwise provide.
type fakeDataStore struct {
	mu       sync.Mutex
	orders   map[string]entities.Order
	profiles map[string]entities.UserProfile

	failOrderWrites   bool
	failProfileWrites bool
	orderWrites       int
	profileWrites     int
}

func newFakeDataStore() *fakeDataStore {
	return &fakeDataStore{
		orders:   make(map[string]entities.Order),
		profiles: make(map[string]entities.UserProfile),
	}
}

func (f *fakeDataStore) OrdersForCustomer(ctx context.Context, customerID string) ([]entities.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Order
	for _, o := range f.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeDataStore) OrdersForExecutor(ctx context.Context, executorID string) ([]entities.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Order
	for _, o := range f.orders {
		if o.ExecutorID == executorID || o.Status == entities.OrderOpen {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeDataStore) AllOrders(ctx context.Context) ([]entities.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Order
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeDataStore) InsertOrder(ctx context.Context, o entities.Order) error {
	return f.writeOrder(o)
}

func (f *fakeDataStore) UpdateOrder(ctx context.Context, o entities.Order) error {
	return f.writeOrder(o)
}

func (f *fakeDataStore) writeOrder(o entities.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderWrites++
	if f.failOrderWrites {
		return errRemoteWrite
	}
	f.orders[o.ID] = o
	return nil
}

func (f *fakeDataStore) DeleteOrder(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderWrites++
	if f.failOrderWrites {
		return errRemoteWrite
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeDataStore) AllProfiles(ctx context.Context) ([]entities.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.UserProfile
	for _, p := range f.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeDataStore) ProfileByID(ctx context.Context, id string) (entities.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return entities.UserProfile{}, entities.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeDataStore) UpdateProfile(ctx context.Context, p entities.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileWrites++
	if f.failProfileWrites {
		return errRemoteWrite
	}
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeDataStore) writes() (orders, profiles int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orderWrites, f.profileWrites
}

var errRemoteWrite = &remoteWriteError{}

type remoteWriteError struct{}

func (*remoteWriteError) Error() string { return "remote write refused" }

// newTestService builds a service whose fold loop is not running; tests
// call apply, ingestChange and reconcile directly and drain queued
// completions with drainOps when they need them folded.
func newTestService(t *testing.T, actor entities.Actor, ds *fakeDataStore) *SyncService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewSyncService(logger, actor, store.New(), ds, Config{
		ReconcileInterval:      time.Minute,
		ProfileRefreshInterval: time.Minute,
	})
	svc.now = func() time.Time { return testNow }
	return svc
}

// drainOps executes everything queued on the op channel.
func drainOps(s *SyncService) {
	for {
		select {
		case op := <-s.ops:
			op()
		default:
			return
		}
	}
}

// waitForWrites blocks until the fake saw at least n order and m profile
// write attempts from the async push goroutines.
func waitForWrites(t *testing.T, ds *fakeDataStore, n, m int) {
	t.Helper()
	require.Eventually(t, func() bool {
		orders, profiles := ds.writes()
		return orders >= n && profiles >= m
	}, time.Second, 5*time.Millisecond)
}
