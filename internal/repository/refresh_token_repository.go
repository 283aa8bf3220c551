package repository

import (
	"context"

	"github.com/EmotiveImpact/appfounders-oauth/internal/domain"
	"github.com/google/uuid"
)

type RefreshTokenRepository interface {
	// Create creates a new refresh token
	Create(ctx context.Context, token *domain.RefreshToken) error

	// GetByTokenHash retrieves a refresh token by its hash, scoped to the
	// client it was issued to. Returns ErrNotFound when absent.
	GetByTokenHash(ctx context.Context, tokenHash string, clientID uuid.UUID) (*domain.RefreshToken, error)

	// Revoke marks the token identified by its hash as revoked. Revocation
	// is terminal. Revoking an unknown token is not an error.
	Revoke(ctx context.Context, tokenHash string, clientID uuid.UUID) error

	// RevokeByUserID revokes all refresh tokens for a user (e.g., account
	// deactivation)
	RevokeByUserID(ctx context.Context, userID uuid.UUID) error

	// DeleteExpired deletes all expired refresh tokens
	DeleteExpired(ctx context.Context) error
}
