package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionSignalFor(t *testing.T) {
	tests := []struct {
		name     string
		customer UserProfile
		want     SignalKind
	}{
		{
			name:     "confirmed",
			customer: UserProfile{SubscribedExecutorID: "ex1"},
			want:     SignalConfirmed,
		},
		{
			name:     "rejected",
			customer: UserProfile{SubscriptionRequestToCustomerID: EncodeRejectionSignal("ex1")},
			want:     SignalRejected,
		},
		{
			name:     "rejection for someone else",
			customer: UserProfile{SubscriptionRequestToCustomerID: EncodeRejectionSignal("ex2")},
			want:     SignalNone,
		},
		{
			name:     "confirmed someone else",
			customer: UserProfile{SubscribedExecutorID: "ex2"},
			want:     SignalNone,
		},
		{
			name:     "no answer",
			customer: UserProfile{},
			want:     SignalNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.customer.SubscriptionSignalFor("ex1").Kind)
		})
	}
}

func TestIsRejectionSignal(t *testing.T) {
	assert.True(t, IsRejectionSignal(EncodeRejectionSignal("ex1")))
	assert.False(t, IsRejectionSignal("customer1"))
	assert.False(t, IsRejectionSignal(""))
}
