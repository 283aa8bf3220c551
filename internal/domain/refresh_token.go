package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken models a stored refresh token. The opaque token value is never
// persisted; only its SHA-256 hash is.
type RefreshToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ClientID  uuid.UUID `json:"client_id" db:"client_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Scope     string    `json:"scope" db:"scope"` // Carried forward from the originating code, never expanded
	Revoked   bool      `json:"revoked" db:"revoked"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"` // 30 days from issuance
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsExpired checks if the refresh token has expired
func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// IsValid checks if the token can still mint access tokens (not revoked and not expired)
func (rt *RefreshToken) IsValid() bool {
	return !rt.Revoked && !rt.IsExpired()
}
