package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Client represents a registered OAuth2 client application.
type Client struct {
	ID               uuid.UUID      `json:"id" db:"id"`
	Name             string         `json:"name" db:"name"`
	ClientID         string         `json:"client_id" db:"client_id"`
	ClientSecretHash string         `json:"-" db:"client_secret_hash"`
	RedirectURIs     pq.StringArray `json:"redirect_uris" db:"redirect_uris"`   // Exact-match whitelist
	AllowedScopes    pq.StringArray `json:"allowed_scopes" db:"allowed_scopes"` // Scopes the client may request
	Active           bool           `json:"active" db:"active"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

// HasRedirectURI reports whether uri is an exact member of the client's
// registered redirect URI set. Exact string comparison, not prefix matching.
func (c *Client) HasRedirectURI(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}
