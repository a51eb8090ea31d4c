package service

import (
	"fmt"

	"github.com/mobihelp/sync-service/internal/entities"
	"github.com/mobihelp/sync-service/internal/notify"
	"github.com/mobihelp/sync-service/internal/remote"
)

// ingestChange folds one orders change event into the mirror. Runs on the
// fold goroutine. Last event wins: out-of-order delivery gets no special
// handling.
func (s *SyncService) ingestChange(change remote.OrderChange) {
	switch change.Type {
	case remote.ChangeInsert:
		if !s.relevant(change.Order) {
			changeEvents.WithLabelValues("insert", "dropped").Inc()
			return
		}
		s.store.UpsertOrder(change.Order)
		changeEvents.WithLabelValues("insert", "applied").Inc()

	case remote.ChangeUpdate:
		prev, known := s.store.Order(change.Order.ID)
		if !known && !s.relevant(change.Order) {
			changeEvents.WithLabelValues("update", "dropped").Inc()
			return
		}
		s.noteRejection(prev, known, change.Order)
		s.store.UpsertOrder(change.Order)
		changeEvents.WithLabelValues("update", "applied").Inc()

	case remote.ChangeDelete:
		s.store.RemoveOrder(change.Order.ID)
		changeEvents.WithLabelValues("delete", "applied").Inc()
	}
}

// relevant implements the insert relevance filter per actor role.
func (s *SyncService) relevant(o entities.Order) bool {
	switch s.actor.Role {
	case entities.RoleCustomer:
		return o.CustomerID == s.actor.ID
	case entities.RoleExecutor:
		return o.ExecutorID == s.actor.ID || o.Status == entities.OrderOpen
	case entities.RoleAdmin:
		return true
	default:
		return false
	}
}

// noteRejection appends a warning to the acting customer when one of their
// orders transitions to open with a rejection reason attached. Dedupe is
// by exact message text.
func (s *SyncService) noteRejection(prev entities.Order, known bool, next entities.Order) {
	if next.CustomerID != s.actor.ID {
		return
	}
	if next.Status != entities.OrderOpen || next.RejectionReason == "" {
		return
	}
	if known && prev.Status == entities.OrderOpen && prev.RejectionReason == next.RejectionReason {
		return
	}

	own, ok := s.store.Profile(s.actor.ID)
	if !ok {
		return
	}

	message := fmt.Sprintf("Order %s rejected: %s", next.ID, next.RejectionReason)
	notifications := notify.Append(own.Notifications,
		entities.NewNotification(entities.NotificationWarning, "Order rejected", message, s.now()),
		notify.ExactMessage,
	)
	if len(notifications) == len(own.Notifications) {
		return
	}
	if err := s.applyUpdateProfile(ProfilePatch{Notifications: notifications}); err != nil {
		s.logger.Warn("failed to record rejection notification", "error", err)
	}
}
