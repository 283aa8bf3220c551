package domain

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the claims embedded in a signed access token. An access token is
// self-contained: validity is determined by signature and expiry alone, never
// by a store lookup.
type Claims struct {
	jwt.RegisteredClaims
	ClientID  uuid.UUID `json:"client_id"`
	Scope     string    `json:"scope,omitempty"` // Space-joined granted scopes
	TokenType string    `json:"type"`
}

// TokenResponse is the token endpoint success body (RFC 6749 Section 5.1).
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}
