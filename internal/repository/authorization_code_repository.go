package repository

import (
	"context"

	"github.com/EmotiveImpact/appfounders-oauth/internal/domain"
	"github.com/google/uuid"
)

type AuthorizationCodeRepository interface {
	// Create creates a new authorization code
	Create(ctx context.Context, code *domain.AuthorizationCode) error

	// Consume atomically marks the code identified by codeHash as used and
	// returns it, provided it belongs to clientID, was issued for
	// redirectURI, and has not been used before. Returns ErrNotFound when no
	// row satisfies all conditions. Implementations must perform the check
	// and the used flip as one conditional write: if two requests race to
	// redeem the same code, exactly one may succeed.
	Consume(ctx context.Context, codeHash string, clientID uuid.UUID, redirectURI string) (*domain.AuthorizationCode, error)

	// DeleteExpired deletes all expired authorization codes
	DeleteExpired(ctx context.Context) error

	// DeleteByUserID deletes all authorization codes for a user
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}
