package entities

import (
	"errors"
	"time"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderOpen      OrderStatus = "open"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
	OrderRejected  OrderStatus = "rejected"
)

// Terminal reports whether an order in this status can be deleted by its customer.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled || s == OrderRejected
}

type ServiceType string

const (
	// ServiceTransfer is a point-to-point trip: LocationFrom and LocationTo are set.
	ServiceTransfer ServiceType = "transfer"
	// ServiceAccompany is on-site assistance: only GeneralLocation is set.
	ServiceAccompany ServiceType = "accompany"
)

func (s ServiceType) RequiresRoute() bool {
	return s == ServiceTransfer
}

type GeoPoint struct {
	Address   string
	Latitude  float64
	Longitude float64
}

type Order struct {
	ID         string
	CustomerID string
	// ExecutorID is empty while the order is open for selection.
	ExecutorID  string
	ServiceType ServiceType
	Date        string
	Time        string
	Status      OrderStatus
	TotalPrice  float64
	Details     string

	RejectionReason    string
	AllowOpenSelection bool
	// Responses holds executor ids in response order.
	Responses []string

	VoiceMessageURL string
	Rating          int
	Review          string

	// Exactly one location shape is populated, matching ServiceType:
	// LocationFrom+LocationTo for transfers, GeneralLocation otherwise.
	LocationFrom    *GeoPoint
	LocationTo      *GeoPoint
	GeneralLocation *GeoPoint

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasResponse reports whether executorID already responded to the order.
func (o Order) HasResponse(executorID string) bool {
	for _, id := range o.Responses {
		if id == executorID {
			return true
		}
	}
	return false
}

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrProfileNotFound = errors.New("profile not found")

	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidMutation  = errors.New("invalid mutation")
	ErrNotAllowed       = errors.New("actor not allowed to perform mutation")
)
