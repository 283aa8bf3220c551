package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuthorizationCode represents an OAuth2 authorization code
// Implements Authorization Code Flow from RFC 6749
type AuthorizationCode struct {
	ID          uuid.UUID `json:"id" db:"id"`
	CodeHash    string    `json:"-" db:"code_hash"`               // SHA-256 hash of the code
	ClientID    uuid.UUID `json:"client_id" db:"client_id"`       // Client that requested the code
	UserID      uuid.UUID `json:"user_id" db:"user_id"`           // Resource owner who authorized
	RedirectURI string    `json:"redirect_uri" db:"redirect_uri"` // Must match the URI presented at /oauth/token
	Scope       string    `json:"scope" db:"scope"`               // Granted scopes (space-separated)
	Used        bool      `json:"used" db:"used"`                 // Whether the code has been exchanged for tokens
	ExpiresAt   time.Time `json:"expires_at" db:"expires_at"`     // 10 minutes from creation
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// IsExpired checks if the authorization code has expired
func (ac *AuthorizationCode) IsExpired() bool {
	return time.Now().After(ac.ExpiresAt)
}

// IsValid checks if the code is still valid (not used and not expired)
func (ac *AuthorizationCode) IsValid() bool {
	return !ac.Used && !ac.IsExpired()
}
