package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/EmotiveImpact/appfounders-oauth/internal/domain"
	"github.com/EmotiveImpact/appfounders-oauth/internal/repository"
	"github.com/google/uuid"
)

const (
	// AuthorizationCodeExpiry is the duration for which an authorization code is valid
	AuthorizationCodeExpiry = 10 * time.Minute

	// RefreshTokenExpiry is the duration for which a refresh token is valid
	RefreshTokenExpiry = 30 * 24 * time.Hour

	// OpaqueTokenLength is the length of generated codes and refresh tokens
	// in bytes (32 bytes = 256 bits)
	OpaqueTokenLength = 32
)

// AuthorizeRequest carries the validated-against inputs of the authorization
// endpoint. UserID is the resource owner from the authenticated platform
// session; establishing that session is the login UI's job, not ours.
type AuthorizeRequest struct {
	ResponseType string
	ClientID     string
	RedirectURI  string
	Scope        string
	State        string
	UserID       uuid.UUID
}

type OAuthService struct {
	clientRepo repository.ClientRepository
	codeRepo   repository.AuthorizationCodeRepository
}

func NewOAuthService(
	clientRepo repository.ClientRepository,
	codeRepo repository.AuthorizationCodeRepository,
) *OAuthService {
	return &OAuthService{
		clientRepo: clientRepo,
		codeRepo:   codeRepo,
	}
}

// Authorize validates an authorization request, issues a single-use code,
// and returns the redirect URL the user agent should be sent to. No tokens
// are issued here.
//
// Validation order matters: the redirect URI must be proven trustworthy
// before anything is ever sent to it.
func (s *OAuthService) Authorize(ctx context.Context, req AuthorizeRequest) (string, error) {
	if req.ResponseType != "code" {
		return "", domain.NewOAuthError(domain.ErrCodeUnsupportedResponseType,
			"only the authorization code flow is supported")
	}

	client, err := s.clientRepo.GetByClientID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", domain.ErrInvalidClient
		}
		return "", fmt.Errorf("failed to look up client: %w", err)
	}
	if !client.Active {
		return "", domain.ErrInvalidClient
	}

	// Exact-match only. Prefix or host matching would let an attacker park a
	// code on a nearby URI.
	if !client.HasRedirectURI(req.RedirectURI) {
		return "", domain.NewOAuthError(domain.ErrCodeInvalidRequest,
			"redirect_uri is not registered for this client")
	}

	requested := domain.ParseScope(req.Scope)
	if len(requested) == 0 {
		requested = []string{domain.DefaultScope}
	}
	if disallowed := domain.DisallowedScope(requested, client.AllowedScopes); len(disallowed) > 0 {
		return "", domain.NewOAuthError(domain.ErrCodeInvalidScope,
			"requested scopes not allowed: "+domain.JoinScope(disallowed))
	}
	grantedScope := domain.JoinScope(requested)

	code, err := generateOpaqueToken(OpaqueTokenLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate authorization code: %w", err)
	}

	authCode := &domain.AuthorizationCode{
		ID:          uuid.New(),
		CodeHash:    hashToken(code),
		ClientID:    client.ID,
		UserID:      req.UserID,
		RedirectURI: req.RedirectURI,
		Scope:       grantedScope,
		Used:        false,
		ExpiresAt:   time.Now().Add(AuthorizationCodeExpiry),
	}

	if err := s.codeRepo.Create(ctx, authCode); err != nil {
		return "", fmt.Errorf("failed to store authorization code: %w", err)
	}

	return buildRedirectURL(req.RedirectURI, code, req.State)
}

func buildRedirectURL(redirectURI, code, state string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect URI: %w", err)
	}

	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// generateOpaqueToken generates a cryptographically secure random credential
func generateOpaqueToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// hashToken generates the SHA-256 fingerprint stored in place of the
// plaintext credential
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(hash[:])
}
