package entities

import "strings"

// The backing schema has no dedicated field for a customer rejecting a
// subscription request, so the customer row reuses its
// subscription_request_to_customer_id column as a one-bit signal channel:
// "REJECTED:<executorID>". The sentinel is decoded here, at the boundary;
// nothing past this file pattern-matches the raw string.
const rejectedSentinelPrefix = "REJECTED:"

type SignalKind int

const (
	SignalNone SignalKind = iota
	SignalConfirmed
	SignalRejected
)

type SubscriptionSignal struct {
	Kind       SignalKind
	ExecutorID string
}

// SubscriptionSignalFor decodes the customer's answer to executorID's
// subscription request from the customer row.
func (p UserProfile) SubscriptionSignalFor(executorID string) SubscriptionSignal {
	if p.SubscribedExecutorID == executorID {
		return SubscriptionSignal{Kind: SignalConfirmed, ExecutorID: executorID}
	}
	if raw, ok := strings.CutPrefix(p.SubscriptionRequestToCustomerID, rejectedSentinelPrefix); ok && raw == executorID {
		return SubscriptionSignal{Kind: SignalRejected, ExecutorID: raw}
	}
	return SubscriptionSignal{Kind: SignalNone}
}

// EncodeRejectionSignal produces the sentinel a customer row carries after
// rejecting executorID's request.
func EncodeRejectionSignal(executorID string) string {
	return rejectedSentinelPrefix + executorID
}

// IsRejectionSignal reports whether a raw column value carries the sentinel.
func IsRejectionSignal(raw string) bool {
	return strings.HasPrefix(raw, rejectedSentinelPrefix)
}
