package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/EmotiveImpact/appfounders-oauth/internal/domain"
	"github.com/EmotiveImpact/appfounders-oauth/internal/repository"
	"github.com/EmotiveImpact/appfounders-oauth/pkg/hash"
	"github.com/EmotiveImpact/appfounders-oauth/pkg/jwt"
	"github.com/EmotiveImpact/appfounders-oauth/pkg/revocation"
	"github.com/google/uuid"
)

// Grant type values accepted by the token endpoint. The dispatcher is a
// closed set: one handler per grant type, anything else is
// unsupported_grant_type.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypeRefreshToken      = "refresh_token"
)

// TokenExchangeRequest carries the token endpoint parameters. Only the
// fields relevant to the requested grant type are consulted.
type TokenExchangeRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	RefreshToken string
	Scope        string
}

// GrantService is the token endpoint controller: it authenticates the
// client once, then dispatches to the handler for the requested grant type.
type GrantService struct {
	clientRepo  repository.ClientRepository
	codeRepo    repository.AuthorizationCodeRepository
	refreshRepo repository.RefreshTokenRepository
	signer      *jwt.TokenService
	denylist    *revocation.Denylist
}

func NewGrantService(
	clientRepo repository.ClientRepository,
	codeRepo repository.AuthorizationCodeRepository,
	refreshRepo repository.RefreshTokenRepository,
	signer *jwt.TokenService,
	denylist *revocation.Denylist,
) *GrantService {
	return &GrantService{
		clientRepo:  clientRepo,
		codeRepo:    codeRepo,
		refreshRepo: refreshRepo,
		signer:      signer,
		denylist:    denylist,
	}
}

// Exchange implements POST /oauth/token. Client authentication is
// unconditional and happens before any grant-specific work.
func (s *GrantService) Exchange(ctx context.Context, req TokenExchangeRequest) (*domain.TokenResponse, error) {
	client, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}

	switch req.GrantType {
	case GrantTypeAuthorizationCode:
		return s.exchangeAuthorizationCode(ctx, client, req)
	case GrantTypeClientCredentials:
		return s.exchangeClientCredentials(client, req.Scope)
	case GrantTypeRefreshToken:
		return s.exchangeRefreshToken(ctx, client, req.RefreshToken)
	default:
		return nil, domain.NewOAuthError(domain.ErrCodeUnsupportedGrantType,
			"unsupported grant_type: "+req.GrantType)
	}
}

// authenticateClient compares the supplied secret against the stored
// argon2id hash. Unknown client, inactive client, and wrong secret all
// collapse into the same invalid_client error.
func (s *GrantService) authenticateClient(ctx context.Context, clientID, clientSecret string) (*domain.Client, error) {
	client, err := s.clientRepo.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidClient
		}
		return nil, fmt.Errorf("failed to look up client: %w", err)
	}

	if !client.Active {
		return nil, domain.ErrInvalidClient
	}

	ok, err := hash.VerifySecret(clientSecret, client.ClientSecretHash)
	if err != nil || !ok {
		return nil, domain.ErrInvalidClient
	}

	return client, nil
}

// exchangeAuthorizationCode redeems a single-use code for an access token
// and a refresh token (RFC 6749 Section 4.1.3).
func (s *GrantService) exchangeAuthorizationCode(ctx context.Context, client *domain.Client, req TokenExchangeRequest) (*domain.TokenResponse, error) {
	if req.Code == "" || req.RedirectURI == "" {
		return nil, domain.NewOAuthError(domain.ErrCodeInvalidRequest,
			"code and redirect_uri are required")
	}

	// One conditional update: lookup, client/redirect binding check, and the
	// used flip happen in a single store round trip. Replays and races lose
	// here, not after a separate read.
	authCode, err := s.codeRepo.Consume(ctx, hashToken(req.Code), client.ID, req.RedirectURI)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidGrant
		}
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	// Expiry is terminal even though the row still exists; pruning is
	// housekeeping, not enforcement.
	if authCode.IsExpired() {
		return nil, domain.ErrInvalidGrant
	}

	accessToken, err := s.signer.GenerateAccessToken(authCode.UserID.String(), client.ID, authCode.Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := generateOpaqueToken(OpaqueTokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	record := &domain.RefreshToken{
		ID:        uuid.New(),
		TokenHash: hashToken(refreshToken),
		ClientID:  client.ID,
		UserID:    authCode.UserID,
		Scope:     authCode.Scope,
		Revoked:   false,
		ExpiresAt: time.Now().Add(RefreshTokenExpiry),
	}
	if err := s.refreshRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.signer.AccessExpiry().Seconds()),
		RefreshToken: refreshToken,
		Scope:        authCode.Scope,
	}, nil
}

// exchangeClientCredentials mints a token for the client acting as its own
// principal (RFC 6749 Section 4.4). Scopes outside the client's allowed set
// are dropped rather than rejected; an omitted scope grants the full
// allowed set. No refresh token: the client can simply re-request.
func (s *GrantService) exchangeClientCredentials(client *domain.Client, scope string) (*domain.TokenResponse, error) {
	granted := domain.IntersectScope(domain.ParseScope(scope), client.AllowedScopes)
	if scope == "" {
		granted = client.AllowedScopes
	}
	if len(granted) == 0 {
		return nil, domain.NewOAuthError(domain.ErrCodeInvalidScope,
			"no requested scope is allowed for this client")
	}
	grantedScope := domain.JoinScope(granted)

	accessToken, err := s.signer.GenerateAccessToken(client.ClientID, client.ID, grantedScope)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.signer.AccessExpiry().Seconds()),
		Scope:       grantedScope,
	}, nil
}

// exchangeRefreshToken mints a fresh access token with the stored scope
// (RFC 6749 Section 6). The refresh token is read, not rotated: it keeps
// working until it expires or is revoked.
func (s *GrantService) exchangeRefreshToken(ctx context.Context, client *domain.Client, refreshToken string) (*domain.TokenResponse, error) {
	if refreshToken == "" {
		return nil, domain.NewOAuthError(domain.ErrCodeInvalidRequest,
			"refresh_token is required")
	}

	record, err := s.refreshRepo.GetByTokenHash(ctx, hashToken(refreshToken), client.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidGrant
		}
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	if !record.IsValid() {
		return nil, domain.ErrInvalidGrant
	}

	accessToken, err := s.signer.GenerateAccessToken(record.UserID.String(), client.ID, record.Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.signer.AccessExpiry().Seconds()),
		Scope:       record.Scope,
	}, nil
}

// RevokeUserGrants tears down every delegation a resource owner has made:
// outstanding authorization codes are deleted and refresh tokens revoked.
// The platform calls this when a user account is deactivated. Live access
// tokens run out their (short) lifetime.
func (s *GrantService) RevokeUserGrants(ctx context.Context, userID uuid.UUID) error {
	if err := s.codeRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete authorization codes: %w", err)
	}
	if err := s.refreshRepo.RevokeByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	log.Printf("[GRANT_SERVICE] All grants revoked for user %s", userID)
	return nil
}

// Revoke implements POST /oauth/revoke (RFC 7009). Refresh tokens are
// revoked in the store; access tokens, being self-contained, go on the jti
// denylist until they expire. Unknown or already-dead tokens still return
// success, so the endpoint is not an existence oracle.
func (s *GrantService) Revoke(ctx context.Context, clientID, clientSecret, token, tokenTypeHint string) error {
	client, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return err
	}

	if tokenTypeHint == "access_token" {
		claims, err := s.signer.ValidateToken(token)
		if err != nil || claims.ExpiresAt == nil {
			// Invalid tokens are already unusable; nothing to revoke.
			return nil
		}
		if err := s.denylist.Deny(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			return fmt.Errorf("failed to denylist access token: %w", err)
		}
		log.Printf("[GRANT_SERVICE] Access token denylisted for client %s", client.ClientID)
		return nil
	}

	if err := s.refreshRepo.Revoke(ctx, hashToken(token), client.ID); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	log.Printf("[GRANT_SERVICE] Refresh token revoked for client %s", client.ClientID)
	return nil
}
