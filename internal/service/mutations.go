package service

import (
	"time"

	"github.com/mobihelp/sync-service/internal/entities"
)

// Mutation is the closed set of local-first state changes. Every mutation
// is applied to the mirror synchronously and pushed to the remote store
// asynchronously; see Apply.
type Mutation interface {
	kind() string
}

// CreateOrder creates an order for the acting customer. Status is pending
// when an executor is pre-selected, open otherwise.
type CreateOrder struct {
	ExecutorID         string
	ServiceType        entities.ServiceType `validate:"required,oneof=transfer accompany"`
	Date               string               `validate:"required"`
	Time               string               `validate:"required"`
	TotalPrice         float64              `validate:"gte=0"`
	Details            string
	AllowOpenSelection bool
	VoiceMessageURL    string
	LocationFrom       *entities.GeoPoint
	LocationTo         *entities.GeoPoint
	GeneralLocation    *entities.GeoPoint
}

// AcceptOrder confirms a pending order assigned to the acting executor.
type AcceptOrder struct {
	OrderID string `validate:"required"`
}

// RejectOrder reopens the order for anyone to claim. The transform is
// fixed: status=open, executor cleared, responses cleared, regardless of
// AllowOpenSelection. The field's evident intent was to gate reopening,
// but the deployed behavior always reopens; that behavior is kept.
type RejectOrder struct {
	OrderID string `validate:"required"`
	Reason  string `validate:"required"`
}

// ClaimOpenOrder binds an open order directly to the acting executor.
type ClaimOpenOrder struct {
	OrderID string `validate:"required"`
}

// RespondToOpenOrder appends the acting executor to the order's response
// list without claiming it.
type RespondToOpenOrder struct {
	OrderID string `validate:"required"`
}

// SelectExecutor picks one responder; the order goes back to pending until
// that executor accepts.
type SelectExecutor struct {
	OrderID    string `validate:"required"`
	ExecutorID string `validate:"required"`
}

// CompleteOrder closes a confirmed order and attaches the customer's
// rating and review, which also propagate to the executor profile.
type CompleteOrder struct {
	OrderID string `validate:"required"`
	Rating  int    `validate:"required,gte=1,lte=5"`
	Review  string
}

type CancelOrder struct {
	OrderID string `validate:"required"`
}

// DeleteOrder removes a terminal order (completed, cancelled or rejected).
type DeleteOrder struct {
	OrderID string `validate:"required"`
}

// RequestSubscription marks the acting executor pending towards a customer.
type RequestSubscription struct {
	CustomerID string `validate:"required"`
}

// ConfirmSubscription records the acting customer's side of the link; the
// executor's side is healed by its own reconciliation pass, since the
// store grants no cross-row write.
type ConfirmSubscription struct {
	ExecutorID string `validate:"required"`
}

// RejectSubscription publishes the rejection sentinel on the acting
// customer's own row.
type RejectSubscription struct {
	ExecutorID string `validate:"required"`
}

// CancelSubscription drops the acting side of the subscription link. The
// counterpart notices through reconciliation.
type CancelSubscription struct {
	Reason string
}

// SubscriptionPatch replaces the whole subscription field group at once.
type SubscriptionPatch struct {
	Status                          entities.SubscriptionStatus
	StartDate                       *time.Time
	EndDate                         *time.Time
	SubscribedToCustomerID          string
	SubscriptionRequestToCustomerID string
	SubscribedExecutorID            string
}

// ProfilePatch carries partial profile edits; nil fields are untouched.
type ProfilePatch struct {
	Name             *string
	Phone            *string
	AvatarURL        *string
	Description      *string
	Location         *entities.GeoPoint
	CoverageRadiusKM *float64
	CustomServices   []entities.CustomService
	VehiclePhotoURL  *string
	Subscription     *SubscriptionPatch
	// Notifications replaces the whole list when non-nil; appends are
	// computed by the caller through the notify package.
	Notifications []entities.Notification
}

// UpdateProfile patches the acting user's own profile. Reconciliation
// corrections travel through this same mutation.
type UpdateProfile struct {
	Patch ProfilePatch
}

type DismissNotification struct {
	NotificationID string `validate:"required"`
}

func (CreateOrder) kind() string          { return "create_order" }
func (AcceptOrder) kind() string          { return "accept_order" }
func (RejectOrder) kind() string          { return "reject_order" }
func (ClaimOpenOrder) kind() string       { return "claim_open_order" }
func (RespondToOpenOrder) kind() string   { return "respond_to_open_order" }
func (SelectExecutor) kind() string       { return "select_executor" }
func (CompleteOrder) kind() string        { return "complete_order" }
func (CancelOrder) kind() string          { return "cancel_order" }
func (DeleteOrder) kind() string          { return "delete_order" }
func (RequestSubscription) kind() string  { return "request_subscription" }
func (ConfirmSubscription) kind() string  { return "confirm_subscription" }
func (RejectSubscription) kind() string   { return "reject_subscription" }
func (CancelSubscription) kind() string   { return "cancel_subscription" }
func (UpdateProfile) kind() string        { return "update_profile" }
func (DismissNotification) kind() string  { return "dismiss_notification" }

func (p ProfilePatch) applyTo(profile *entities.UserProfile) {
	if p.Name != nil {
		profile.Name = *p.Name
	}
	if p.Phone != nil {
		profile.Phone = *p.Phone
	}
	if p.AvatarURL != nil {
		profile.AvatarURL = *p.AvatarURL
	}
	if p.Description != nil {
		profile.Description = *p.Description
	}
	if p.Location != nil {
		loc := *p.Location
		profile.Location = &loc
	}
	if p.CoverageRadiusKM != nil {
		profile.CoverageRadiusKM = *p.CoverageRadiusKM
	}
	if p.CustomServices != nil {
		profile.CustomServices = p.CustomServices
	}
	if p.VehiclePhotoURL != nil {
		profile.VehiclePhotoURL = *p.VehiclePhotoURL
	}
	if p.Notifications != nil {
		profile.Notifications = p.Notifications
	}
	if p.Subscription != nil {
		sub := *p.Subscription
		profile.SubscriptionStatus = sub.Status
		profile.SubscriptionStartDate = sub.StartDate
		profile.SubscriptionEndDate = sub.EndDate
		profile.SubscribedToCustomerID = sub.SubscribedToCustomerID
		profile.SubscriptionRequestToCustomerID = sub.SubscriptionRequestToCustomerID
		profile.SubscribedExecutorID = sub.SubscribedExecutorID
	}
}
