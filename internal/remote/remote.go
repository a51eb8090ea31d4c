// Package remote is the adapter boundary to the hosted data store. The sync
// core never sees raw rows: snake_case columns are mapped to entities here.
package remote

import (
	"context"

	"github.com/mobihelp/sync-service/internal/entities"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// OrderChange is one push event from the orders change feed. For deletes
// only Order.ID is guaranteed to be set.
type OrderChange struct {
	Type  ChangeType
	Order entities.Order
}

// DataStore is the remote persistence collaborator. Writes are
// last-writer-wins full-row updates; no call offers cross-row atomicity,
// which is exactly the gap the reconciliation loop papers over.
type DataStore interface {
	OrdersForCustomer(ctx context.Context, customerID string) ([]entities.Order, error)
	OrdersForExecutor(ctx context.Context, executorID string) ([]entities.Order, error)
	AllOrders(ctx context.Context) ([]entities.Order, error)
	InsertOrder(ctx context.Context, o entities.Order) error
	UpdateOrder(ctx context.Context, o entities.Order) error
	DeleteOrder(ctx context.Context, id string) error

	AllProfiles(ctx context.Context) ([]entities.UserProfile, error)
	ProfileByID(ctx context.Context, id string) (entities.UserProfile, error)
	UpdateProfile(ctx context.Context, p entities.UserProfile) error
}
