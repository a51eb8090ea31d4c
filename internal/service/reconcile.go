package service

import (
	"log/slog"
	"time"

	"github.com/mobihelp/sync-service/internal/entities"
	"github.com/mobihelp/sync-service/internal/notify"
)

// cancelDedupeWindow suppresses duplicate subscription-cancel warnings
// produced by repeated ticks before the correction is durably saved.
const cancelDedupeWindow = 60 * time.Second

// reconcile is the self-repair pass over subscription state, the one area
// where two user rows must agree without any transactional guarantee from
// the store. It runs on the fold goroutine, on a fixed interval and
// whenever the own profile or the roster changes. Orders are never
// reconciled here. The pass is idempotent: against an already-consistent
// mirror it issues no corrections.
func (s *SyncService) reconcile() {
	reconcileTicks.Inc()

	switch s.actor.Role {
	case entities.RoleExecutor:
		s.reconcileExecutor()
	case entities.RoleCustomer:
		s.reconcileCustomer()
	}
}

func (s *SyncService) reconcileExecutor() {
	own, ok := s.store.Profile(s.actor.ID)
	if !ok {
		return
	}

	switch own.SubscriptionStatus {
	case entities.SubscriptionPending:
		s.resolvePendingRequest(own)
	case entities.SubscriptionActive:
		if s.healCancelledSubscription(own) {
			return
		}
		s.expireSubscription(own)
	}
}

// resolvePendingRequest checks whether the customer answered the pending
// request on their own row. A missing customer (deleted meanwhile) skips
// this tick's correction.
func (s *SyncService) resolvePendingRequest(own entities.UserProfile) {
	if own.SubscriptionRequestToCustomerID == "" {
		return
	}
	customer, ok := s.store.Profile(own.SubscriptionRequestToCustomerID)
	if !ok {
		return
	}

	switch customer.SubscriptionSignalFor(s.actor.ID).Kind {
	case entities.SignalConfirmed:
		start := s.now()
		end := start.Add(entities.SubscriptionPeriod)
		s.correct(ProfilePatch{Subscription: &SubscriptionPatch{
			Status:                 entities.SubscriptionActive,
			StartDate:              &start,
			EndDate:                &end,
			SubscribedToCustomerID: customer.ID,
		}}, "subscription_confirmed")

	case entities.SignalRejected:
		s.correct(ProfilePatch{Subscription: &SubscriptionPatch{
			Status: entities.SubscriptionNone,
		}}, "subscription_rejected")

		// Best-effort consumption of the sentinel so a later request is
		// not instantly re-rejected. Row-level security may silently drop
		// this write on the customer row; nothing depends on it landing.
		customer.SubscriptionRequestToCustomerID = ""
		s.store.UpsertProfileLocal(customer)
		s.pushProfile(customer)
	}
}

// healCancelledSubscription handles the asymmetric half of a two-row
// cancellation: the customer side no longer points back, so the executor
// side is torn down and the user warned.
func (s *SyncService) healCancelledSubscription(own entities.UserProfile) bool {
	if own.SubscribedToCustomerID == "" {
		return false
	}
	customer, ok := s.store.Profile(own.SubscribedToCustomerID)
	if !ok {
		return false
	}
	if customer.SubscribedExecutorID == s.actor.ID {
		return false
	}

	message := "Subscription to customer " + customer.Name + " was cancelled"
	notifications := notify.Append(own.Notifications,
		entities.NewNotification(entities.NotificationWarning, "Subscription cancelled", message, s.now()),
		notify.TitleAndPrefixWithin(message, cancelDedupeWindow),
	)
	s.correct(ProfilePatch{
		Notifications: notifications,
		Subscription: &SubscriptionPatch{
			Status: entities.SubscriptionNone,
		},
	}, "subscription_cancelled")
	return true
}

func (s *SyncService) expireSubscription(own entities.UserProfile) {
	if own.SubscriptionEndDate == nil || !s.now().After(*own.SubscriptionEndDate) {
		return
	}
	s.correct(ProfilePatch{Subscription: &SubscriptionPatch{
		Status:                 entities.SubscriptionExpired,
		StartDate:              own.SubscriptionStartDate,
		EndDate:                own.SubscriptionEndDate,
		SubscribedToCustomerID: own.SubscribedToCustomerID,
	}}, "subscription_expired")
}

// reconcileCustomer clears a stale executor link once the executor is
// neither subscribed to this customer nor pending towards them.
func (s *SyncService) reconcileCustomer() {
	own, ok := s.store.Profile(s.actor.ID)
	if !ok || own.SubscribedExecutorID == "" {
		return
	}
	executor, ok := s.store.Profile(own.SubscribedExecutorID)
	if !ok {
		return
	}
	if executor.SubscribedToCustomerID == s.actor.ID {
		return
	}
	if executor.SubscriptionRequestToCustomerID == s.actor.ID {
		// Confirmation not picked up by the executor yet; leave the link
		// so their next pass can activate against it.
		return
	}

	s.correct(ProfilePatch{Subscription: &SubscriptionPatch{
		Status:    own.SubscriptionStatus,
		StartDate: own.SubscriptionStartDate,
		EndDate:   own.SubscriptionEndDate,
		// The request column may still carry an unconsumed rejection
		// sentinel for some other executor; keep it.
		SubscriptionRequestToCustomerID: own.SubscriptionRequestToCustomerID,
	}}, "executor_link_cleared")
}

// correct issues a reconciliation correction through the same optimistic
// mutation path as user actions, so it can itself race a fresh remote
// state; idempotence per tick bounds the fallout.
func (s *SyncService) correct(patch ProfilePatch, reason string) {
	if err := s.applyUpdateProfile(patch); err != nil {
		s.logger.Error("reconciliation correction failed",
			slog.String("reason", reason), slog.Any("error", err))
		return
	}
	reconcileCorrections.WithLabelValues(reason).Inc()
	s.logger.Info("reconciliation correction applied", slog.String("reason", reason))
}
