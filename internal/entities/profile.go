package entities

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleExecutor Role = "executor"
	RoleAdmin    Role = "admin"
)

// Actor is the role-tagged user driving this client instance.
type Actor struct {
	ID   string
	Role Role
}

type SubscriptionStatus string

const (
	SubscriptionNone    SubscriptionStatus = "none"
	SubscriptionPending SubscriptionStatus = "pending"
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
)

// SubscriptionPeriod is how long a confirmed subscription stays active.
const SubscriptionPeriod = 30 * 24 * time.Hour

type CustomService struct {
	ServiceID string
	Price     float64
	Enabled   bool
}

// Review is immutable once created.
type Review struct {
	ID         string
	AuthorID   string
	AuthorName string
	Rating     int
	Text       string
	Date       time.Time
}

type UserProfile struct {
	ID   string
	Role Role

	Name        string
	Phone       string
	AvatarURL   string
	Description string
	Location    *GeoPoint
	// CoverageRadiusKM bounds how far an executor travels for orders.
	CoverageRadiusKM float64

	// Executor-only fields.
	CustomServices  []CustomService
	VehiclePhotoURL string
	Rating          float64
	ReviewsCount    int
	Reviews         []Review

	SubscriptionStatus    SubscriptionStatus
	SubscriptionStartDate *time.Time
	SubscriptionEndDate   *time.Time
	// SubscribedToCustomerID links an active executor to its customer.
	SubscribedToCustomerID string
	// SubscriptionRequestToCustomerID holds a pending request target on an
	// executor row. On a customer row the same column doubles as the
	// rejection signal channel, see signal.go.
	SubscriptionRequestToCustomerID string
	// SubscribedExecutorID links a customer back to its executor.
	SubscribedExecutorID string

	Notifications []Notification
}

// MeanEnabledServicePrice averages prices of enabled services.
// Returns 0 when the executor has no enabled priced service.
func (p UserProfile) MeanEnabledServicePrice() float64 {
	var sum float64
	var n int
	for _, s := range p.CustomServices {
		if s.Enabled && s.Price > 0 {
			sum += s.Price
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
