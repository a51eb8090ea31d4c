package auth

import (
	"context"
	"time"

	"github.com/mobihelp/sync-service/internal/config"
	"github.com/mobihelp/sync-service/internal/entities"
)

// Service resolves the acting user of the current session.
type Service interface {
	Current(ctx context.Context) (entities.Actor, error)
}

type staticSession struct {
	actor     entities.Actor
	expiresAt time.Time
}

// NewStaticSession builds a session fixed at startup from configuration.
// A zero expiry never expires.
func NewStaticSession(cfg config.Actor, expiresAt time.Time) Service {
	return &staticSession{
		actor: entities.Actor{
			ID:   cfg.ID,
			Role: entities.Role(cfg.Role),
		},
		expiresAt: expiresAt,
	}
}

func (s *staticSession) Current(ctx context.Context) (entities.Actor, error) {
	if !s.expiresAt.IsZero() && time.Now().After(s.expiresAt) {
		return entities.Actor{}, entities.ErrNotAuthenticated
	}
	return s.actor, nil
}
