package service

import (
	"context"
	"sort"

	"github.com/mobihelp/sync-service/internal/entities"
)

// ExecutorSort selects the marketplace ordering of the executor list.
type ExecutorSort string

const (
	// SortByRating orders by rating descending, ties broken by review
	// count descending. Full ties keep the original roster order.
	SortByRating ExecutorSort = "rating"
	// SortByPrice orders by mean enabled-service price ascending, with
	// unpriced executors last.
	SortByPrice ExecutorSort = "price"
)

// MyOrders projects the actor's own orders: a customer sees what they
// created, an executor what they are assigned to, an admin everything.
func (s *SyncService) MyOrders(ctx context.Context) ([]entities.Order, error) {
	var out []entities.Order
	err := s.do(ctx, func() {
		for _, o := range s.store.Orders() {
			switch s.actor.Role {
			case entities.RoleCustomer:
				if o.CustomerID == s.actor.ID {
					out = append(out, o)
				}
			case entities.RoleExecutor:
				if o.ExecutorID == s.actor.ID {
					out = append(out, o)
				}
			case entities.RoleAdmin:
				out = append(out, o)
			}
		}
	})
	return out, err
}

// OpenOrders projects the claimable marketplace; executor-only.
func (s *SyncService) OpenOrders(ctx context.Context) ([]entities.Order, error) {
	if s.actor.Role != entities.RoleExecutor {
		return nil, entities.ErrNotAllowed
	}
	var out []entities.Order
	err := s.do(ctx, func() {
		for _, o := range s.store.Orders() {
			if o.Status == entities.OrderOpen {
				out = append(out, o)
			}
		}
	})
	return out, err
}

// Executors projects the executor roster. For a customer actor the
// visibility rule applies: an executor with an active subscription is
// visible only to their own subscribed customer.
func (s *SyncService) Executors(ctx context.Context, by ExecutorSort) ([]entities.UserProfile, error) {
	var out []entities.UserProfile
	err := s.do(ctx, func() {
		out = visibleExecutors(s.store.Profiles(), s.actor)
	})
	if err != nil {
		return nil, err
	}
	sortExecutors(out, by)
	return out, nil
}

// Profile returns the actor's own mirrored profile.
func (s *SyncService) Profile(ctx context.Context) (entities.UserProfile, error) {
	var (
		out   entities.UserProfile
		found bool
	)
	err := s.do(ctx, func() {
		out, found = s.store.Profile(s.actor.ID)
	})
	if err != nil {
		return entities.UserProfile{}, err
	}
	if !found {
		return entities.UserProfile{}, entities.ErrProfileNotFound
	}
	return out, nil
}

func (s *SyncService) Notifications(ctx context.Context) ([]entities.Notification, error) {
	p, err := s.Profile(ctx)
	if err != nil {
		return nil, err
	}
	return p.Notifications, nil
}

func visibleExecutors(profiles []entities.UserProfile, viewer entities.Actor) []entities.UserProfile {
	var out []entities.UserProfile
	for _, p := range profiles {
		if p.Role != entities.RoleExecutor {
			continue
		}
		if viewer.Role == entities.RoleCustomer &&
			p.SubscriptionStatus == entities.SubscriptionActive &&
			p.SubscribedToCustomerID != viewer.ID {
			continue
		}
		out = append(out, p)
	}
	return out
}

func sortExecutors(executors []entities.UserProfile, by ExecutorSort) {
	switch by {
	case SortByPrice:
		sort.SliceStable(executors, func(i, j int) bool {
			pi := executors[i].MeanEnabledServicePrice()
			pj := executors[j].MeanEnabledServicePrice()
			// Zero means no priced service; those sort last.
			if (pi == 0) != (pj == 0) {
				return pj == 0
			}
			return pi < pj
		})
	default:
		sort.SliceStable(executors, func(i, j int) bool {
			if executors[i].Rating != executors[j].Rating {
				return executors[i].Rating > executors[j].Rating
			}
			return executors[i].ReviewsCount > executors[j].ReviewsCount
		})
	}
}
