package service

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mobihelp/sync-service/internal/entities"
	"github.com/mobihelp/sync-service/internal/notify"
)

// apply runs on the fold goroutine. Each mutation kind has a fixed
// field-level transform; validation and ownership checks reject before the
// local mirror is touched, but once applied locally the mutation is final
// regardless of the remote write's fate.
func (s *SyncService) apply(m Mutation) error {
	switch m := m.(type) {
	case CreateOrder:
		return s.applyCreateOrder(m)
	case AcceptOrder:
		return s.applyAcceptOrder(m)
	case RejectOrder:
		return s.applyRejectOrder(m)
	case ClaimOpenOrder:
		return s.applyClaimOpenOrder(m)
	case RespondToOpenOrder:
		return s.applyRespondToOpenOrder(m)
	case SelectExecutor:
		return s.applySelectExecutor(m)
	case CompleteOrder:
		return s.applyCompleteOrder(m)
	case CancelOrder:
		return s.applyCancelOrder(m)
	case DeleteOrder:
		return s.applyDeleteOrder(m)
	case RequestSubscription:
		return s.applyRequestSubscription(m)
	case ConfirmSubscription:
		return s.applyConfirmSubscription(m)
	case RejectSubscription:
		return s.applyRejectSubscription(m)
	case CancelSubscription:
		return s.applyCancelSubscription(m)
	case UpdateProfile:
		return s.applyUpdateProfile(m.Patch)
	case DismissNotification:
		return s.applyDismissNotification(m)
	default:
		return fmt.Errorf("%w: unknown mutation %T", entities.ErrInvalidMutation, m)
	}
}

func (s *SyncService) applyCreateOrder(m CreateOrder) error {
	if s.actor.Role != entities.RoleCustomer {
		return entities.ErrNotAllowed
	}
	if m.ServiceType.RequiresRoute() {
		if m.LocationFrom == nil || m.LocationTo == nil || m.GeneralLocation != nil {
			return fmt.Errorf("%w: transfer orders need from and to locations", entities.ErrInvalidMutation)
		}
	} else {
		if m.GeneralLocation == nil || m.LocationFrom != nil || m.LocationTo != nil {
			return fmt.Errorf("%w: on-site orders need a general location", entities.ErrInvalidMutation)
		}
	}

	now := s.now()
	status := entities.OrderOpen
	if m.ExecutorID != "" {
		status = entities.OrderPending
	}
	o := entities.Order{
		ID:                 uuid.NewString(),
		CustomerID:         s.actor.ID,
		ExecutorID:         m.ExecutorID,
		ServiceType:        m.ServiceType,
		Date:               m.Date,
		Time:               m.Time,
		Status:             status,
		TotalPrice:         m.TotalPrice,
		Details:            m.Details,
		AllowOpenSelection: m.AllowOpenSelection,
		VoiceMessageURL:    m.VoiceMessageURL,
		LocationFrom:       m.LocationFrom,
		LocationTo:         m.LocationTo,
		GeneralLocation:    m.GeneralLocation,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	s.store.UpsertOrderLocal(o)
	s.pushOrder(o, true)
	return nil
}

func (s *SyncService) applyAcceptOrder(m AcceptOrder) error {
	o, err := s.assignedOrder(m.OrderID)
	if err != nil {
		return err
	}
	if o.Status != entities.OrderPending {
		return fmt.Errorf("%w: order %s is not pending", entities.ErrInvalidMutation, o.ID)
	}

	o.Status = entities.OrderConfirmed
	o.UpdatedAt = s.now()
	s.saveOrder(o)
	return nil
}

// applyRejectOrder always reopens the order: status=open, executor and
// responses cleared, reason recorded. AllowOpenSelection does not gate
// this, matching the deployed behavior (see the mutation doc).
func (s *SyncService) applyRejectOrder(m RejectOrder) error {
	o, err := s.assignedOrder(m.OrderID)
	if err != nil {
		return err
	}

	o.Status = entities.OrderOpen
	o.ExecutorID = ""
	o.Responses = nil
	o.RejectionReason = m.Reason
	o.UpdatedAt = s.now()
	s.saveOrder(o)
	return nil
}

func (s *SyncService) applyClaimOpenOrder(m ClaimOpenOrder) error {
	o, err := s.openOrder(m.OrderID)
	if err != nil {
		return err
	}

	o.ExecutorID = s.actor.ID
	o.Status = entities.OrderConfirmed
	o.Responses = nil
	o.UpdatedAt = s.now()
	s.saveOrder(o)
	return nil
}

func (s *SyncService) applyRespondToOpenOrder(m RespondToOpenOrder) error {
	o, err := s.openOrder(m.OrderID)
	if err != nil {
		return err
	}
	if o.HasResponse(s.actor.ID) {
		return nil
	}

	o.Responses = append(o.Responses, s.actor.ID)
	o.UpdatedAt = s.now()
	s.saveOrder(o)
	return nil
}

func (s *SyncService) applySelectExecutor(m SelectExecutor) error {
	o, err := s.ownOrder(m.OrderID)
	if err != nil {
		return err
	}
	if o.Status != entities.OrderOpen {
		return fmt.Errorf("%w: order %s is not open", entities.ErrInvalidMutation, o.ID)
	}
	if !o.HasResponse(m.ExecutorID) {
		return fmt.Errorf("%w: executor %s has not responded to order %s", entities.ErrInvalidMutation, m.ExecutorID, o.ID)
	}

	// Selected executor still has to accept, so the order goes back to
	// pending rather than straight to confirmed.
	o.ExecutorID = m.ExecutorID
	o.Status = entities.OrderPending
	o.Responses = nil
	o.UpdatedAt = s.now()
	s.saveOrder(o)
	return nil
}

func (s *SyncService) applyCompleteOrder(m CompleteOrder) error {
	o, err := s.ownOrder(m.OrderID)
	if err != nil {
		return err
	}
	if o.Status != entities.OrderConfirmed {
		return fmt.Errorf("%w: order %s is not confirmed", entities.ErrInvalidMutation, o.ID)
	}

	now := s.now()
	o.Status = entities.OrderCompleted
	o.Rating = m.Rating
	o.Review = m.Review
	o.UpdatedAt = now
	s.saveOrder(o)

	// Propagate the review to the executor profile and recompute the
	// average. The executor row belongs to another user, so this write is
	// best effort; a silent drop leaves the rating stale until the
	// executor's own client repairs it.
	executor, ok := s.store.Profile(o.ExecutorID)
	if !ok {
		s.logger.Warn("executor profile missing, review not propagated",
			slog.String("order_id", o.ID), slog.String("executor_id", o.ExecutorID))
		return nil
	}

	authorName := ""
	if author, ok := s.store.Profile(s.actor.ID); ok {
		authorName = author.Name
	}
	executor.Reviews = append(executor.Reviews, entities.Review{
		ID:         uuid.NewString(),
		AuthorID:   s.actor.ID,
		AuthorName: authorName,
		Rating:     m.Rating,
		Text:       m.Review,
		Date:       now,
	})
	executor.ReviewsCount = len(executor.Reviews)
	var sum int
	for _, r := range executor.Reviews {
		sum += r.Rating
	}
	executor.Rating = float64(sum) / float64(len(executor.Reviews))

	s.saveProfile(executor)
	return nil
}

func (s *SyncService) applyCancelOrder(m CancelOrder) error {
	o, err := s.ownOrder(m.OrderID)
	if err != nil {
		return err
	}
	if o.Status.Terminal() {
		return fmt.Errorf("%w: order %s is already closed", entities.ErrInvalidMutation, o.ID)
	}

	o.Status = entities.OrderCancelled
	o.UpdatedAt = s.now()
	s.saveOrder(o)
	return nil
}

func (s *SyncService) applyDeleteOrder(m DeleteOrder) error {
	o, err := s.ownOrder(m.OrderID)
	if err != nil {
		return err
	}
	if !o.Status.Terminal() {
		return fmt.Errorf("%w: order %s is not closed yet", entities.ErrInvalidMutation, o.ID)
	}

	s.store.RemoveOrder(o.ID)
	s.pushOrderDelete(o.ID)
	return nil
}

func (s *SyncService) applyRequestSubscription(m RequestSubscription) error {
	if s.actor.Role != entities.RoleExecutor {
		return entities.ErrNotAllowed
	}
	own, ok := s.store.Profile(s.actor.ID)
	if !ok {
		return entities.ErrProfileNotFound
	}
	if _, ok := s.store.Profile(m.CustomerID); !ok {
		return entities.ErrProfileNotFound
	}

	own.SubscriptionStatus = entities.SubscriptionPending
	own.SubscriptionRequestToCustomerID = m.CustomerID
	own.SubscribedToCustomerID = ""
	own.SubscriptionStartDate = nil
	own.SubscriptionEndDate = nil
	s.saveProfile(own)
	return nil
}

func (s *SyncService) applyConfirmSubscription(m ConfirmSubscription) error {
	if s.actor.Role != entities.RoleCustomer {
		return entities.ErrNotAllowed
	}
	own, ok := s.store.Profile(s.actor.ID)
	if !ok {
		return entities.ErrProfileNotFound
	}

	// Only the own row is written; the executor row is activated by the
	// executor's reconciliation pass picking this confirmation up.
	own.SubscribedExecutorID = m.ExecutorID
	if entities.IsRejectionSignal(own.SubscriptionRequestToCustomerID) {
		own.SubscriptionRequestToCustomerID = ""
	}
	s.saveProfile(own)
	s.TriggerReconcile()
	return nil
}

func (s *SyncService) applyRejectSubscription(m RejectSubscription) error {
	if s.actor.Role != entities.RoleCustomer {
		return entities.ErrNotAllowed
	}
	own, ok := s.store.Profile(s.actor.ID)
	if !ok {
		return entities.ErrProfileNotFound
	}

	own.SubscriptionRequestToCustomerID = entities.EncodeRejectionSignal(m.ExecutorID)
	if own.SubscribedExecutorID == m.ExecutorID {
		own.SubscribedExecutorID = ""
	}
	s.saveProfile(own)
	return nil
}

func (s *SyncService) applyCancelSubscription(m CancelSubscription) error {
	own, ok := s.store.Profile(s.actor.ID)
	if !ok {
		return entities.ErrProfileNotFound
	}

	switch s.actor.Role {
	case entities.RoleExecutor:
		own.SubscriptionStatus = entities.SubscriptionNone
		own.SubscriptionStartDate = nil
		own.SubscriptionEndDate = nil
		own.SubscribedToCustomerID = ""
		own.SubscriptionRequestToCustomerID = ""
	case entities.RoleCustomer:
		own.SubscribedExecutorID = ""
	default:
		return entities.ErrNotAllowed
	}

	message := "Subscription cancelled"
	if m.Reason != "" {
		message = "Subscription cancelled: " + m.Reason
	}
	own.Notifications = notify.Append(own.Notifications,
		entities.NewNotification(entities.NotificationInfo, "Subscription", message, s.now()),
		notify.ExactMessage,
	)
	s.saveProfile(own)
	return nil
}

func (s *SyncService) applyUpdateProfile(patch ProfilePatch) error {
	own, ok := s.store.Profile(s.actor.ID)
	if !ok {
		return entities.ErrProfileNotFound
	}

	patch.applyTo(&own)
	s.saveProfile(own)
	return nil
}

func (s *SyncService) applyDismissNotification(m DismissNotification) error {
	own, ok := s.store.Profile(s.actor.ID)
	if !ok {
		return entities.ErrProfileNotFound
	}

	own.Notifications = notify.Dismiss(own.Notifications, m.NotificationID)
	s.saveProfile(own)
	return nil
}

// saveOrder applies the optimistic local copy and issues the remote write.
func (s *SyncService) saveOrder(o entities.Order) {
	s.store.UpsertOrderLocal(o)
	s.pushOrder(o, false)
}

func (s *SyncService) saveProfile(p entities.UserProfile) {
	s.store.UpsertProfileLocal(p)
	s.pushProfile(p)
	if p.ID == s.actor.ID {
		s.TriggerReconcile()
	}
}

// ownOrder fetches an order owned by the acting customer.
func (s *SyncService) ownOrder(id string) (entities.Order, error) {
	o, ok := s.store.Order(id)
	if !ok {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	if s.actor.Role != entities.RoleCustomer || o.CustomerID != s.actor.ID {
		return entities.Order{}, entities.ErrNotAllowed
	}
	return o, nil
}

// assignedOrder fetches an order assigned to the acting executor.
func (s *SyncService) assignedOrder(id string) (entities.Order, error) {
	o, ok := s.store.Order(id)
	if !ok {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	if s.actor.Role != entities.RoleExecutor || o.ExecutorID != s.actor.ID {
		return entities.Order{}, entities.ErrNotAllowed
	}
	return o, nil
}

// openOrder fetches an open order the acting executor may engage with.
func (s *SyncService) openOrder(id string) (entities.Order, error) {
	o, ok := s.store.Order(id)
	if !ok {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	if s.actor.Role != entities.RoleExecutor {
		return entities.Order{}, entities.ErrNotAllowed
	}
	if o.Status != entities.OrderOpen {
		return entities.Order{}, fmt.Errorf("%w: order %s is not open", entities.ErrInvalidMutation, o.ID)
	}
	if o.CustomerID == s.actor.ID {
		return entities.Order{}, entities.ErrNotAllowed
	}
	return o, nil
}
