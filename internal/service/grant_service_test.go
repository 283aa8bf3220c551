package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/EmotiveImpact/appfounders-oauth/internal/domain"
	"github.com/EmotiveImpact/appfounders-oauth/internal/repository/memory"
	"github.com/EmotiveImpact/appfounders-oauth/pkg/hash"
	"github.com/EmotiveImpact/appfounders-oauth/pkg/jwt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClientSecret = "topsecret-client-credential"

// Reduced parameters keep the many verifications in these tests fast; the
// encoded hash carries its own parameters, so verification is unaffected.
var testHashConfig = hash.Argon2Config{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

type grantFixture struct {
	oauth       *OAuthService
	grants      *GrantService
	signer      *jwt.TokenService
	clientRepo  *memory.ClientRepository
	codeRepo    *memory.AuthorizationCodeRepository
	refreshRepo *memory.RefreshTokenRepository
	client      *domain.Client
}

func newGrantFixture(t *testing.T) *grantFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	signer := jwt.NewTokenServiceWithKeys(key, time.Hour, "test-issuer")

	secretHash, err := hash.HashSecretWithConfig(testClientSecret, testHashConfig)
	require.NoError(t, err)

	client := &domain.Client{
		ID:               uuid.New(),
		Name:             "Example App",
		ClientID:         "example-app",
		ClientSecretHash: secretHash,
		RedirectURIs:     []string{testRedirectURI, "https://app.example.com/alt"},
		AllowedScopes:    []string{"read", "write", "admin"},
		Active:           true,
	}

	clientRepo := memory.NewClientRepository()
	codeRepo := memory.NewAuthorizationCodeRepository()
	refreshRepo := memory.NewRefreshTokenRepository()
	require.NoError(t, clientRepo.Create(context.Background(), client))

	return &grantFixture{
		oauth:       NewOAuthService(clientRepo, codeRepo),
		grants:      NewGrantService(clientRepo, codeRepo, refreshRepo, signer, nil),
		signer:      signer,
		clientRepo:  clientRepo,
		codeRepo:    codeRepo,
		refreshRepo: refreshRepo,
		client:      client,
	}
}

// issueCode runs the authorization step and returns the code and resource
// owner it was issued for.
func (f *grantFixture) issueCode(t *testing.T, scope string) (string, uuid.UUID) {
	t.Helper()

	userID := uuid.New()
	redirectURL, err := f.oauth.Authorize(context.Background(), AuthorizeRequest{
		ResponseType: "code",
		ClientID:     f.client.ClientID,
		RedirectURI:  testRedirectURI,
		Scope:        scope,
		UserID:       userID,
	})
	require.NoError(t, err)

	u, err := url.Parse(redirectURL)
	require.NoError(t, err)
	code := u.Query().Get("code")
	require.NotEmpty(t, code)
	return code, userID
}

func (f *grantFixture) codeExchangeRequest(code string) TokenExchangeRequest {
	return TokenExchangeRequest{
		GrantType:    GrantTypeAuthorizationCode,
		ClientID:     f.client.ClientID,
		ClientSecret: testClientSecret,
		Code:         code,
		RedirectURI:  testRedirectURI,
	}
}

func TestAuthorizationCodeExchange(t *testing.T) {
	f := newGrantFixture(t)
	code, userID := f.issueCode(t, "read write")

	resp, err := f.grants.Exchange(context.Background(), f.codeExchangeRequest(code))
	require.NoError(t, err)

	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, "read write", resp.Scope)
	assert.NotEmpty(t, resp.RefreshToken)

	claims, err := f.signer.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, f.client.ID, claims.ClientID)
	assert.Equal(t, "read write", claims.Scope)
}

func TestAuthorizationCodeSingleUse(t *testing.T) {
	f := newGrantFixture(t)
	code, _ := f.issueCode(t, "read")

	_, err := f.grants.Exchange(context.Background(), f.codeExchangeRequest(code))
	require.NoError(t, err)

	_, err = f.grants.Exchange(context.Background(), f.codeExchangeRequest(code))
	requireOAuthError(t, err, domain.ErrCodeInvalidGrant)
}

func TestAuthorizationCodeExpired(t *testing.T) {
	f := newGrantFixture(t)

	// Never used, but past its expiry; the timestamp check alone must
	// reject it.
	code := "expired-but-unused-code"
	require.NoError(t, f.codeRepo.Create(context.Background(), &domain.AuthorizationCode{
		ID:          uuid.New(),
		CodeHash:    hashToken(code),
		ClientID:    f.client.ID,
		UserID:      uuid.New(),
		RedirectURI: testRedirectURI,
		Scope:       "read",
		ExpiresAt:   time.Now().Add(-time.Minute),
	}))

	_, err := f.grants.Exchange(context.Background(), f.codeExchangeRequest(code))
	requireOAuthError(t, err, domain.ErrCodeInvalidGrant)
}

func TestAuthorizationCodeRedirectURIMismatch(t *testing.T) {
	f := newGrantFixture(t)
	code, _ := f.issueCode(t, "read")

	// The alternate URI is registered for the client, but the code was not
	// issued for it.
	req := f.codeExchangeRequest(code)
	req.RedirectURI = "https://app.example.com/alt"

	_, err := f.grants.Exchange(context.Background(), req)
	requireOAuthError(t, err, domain.ErrCodeInvalidGrant)
}

func TestAuthorizationCodeWrongClient(t *testing.T) {
	f := newGrantFixture(t)
	code, _ := f.issueCode(t, "read")

	otherHash, err := hash.HashSecretWithConfig("other-secret", testHashConfig)
	require.NoError(t, err)
	other := &domain.Client{
		ID:               uuid.New(),
		ClientID:         "other-app",
		ClientSecretHash: otherHash,
		RedirectURIs:     []string{testRedirectURI},
		AllowedScopes:    []string{"read"},
		Active:           true,
	}
	require.NoError(t, f.clientRepo.Create(context.Background(), other))

	req := f.codeExchangeRequest(code)
	req.ClientID = "other-app"
	req.ClientSecret = "other-secret"

	_, err = f.grants.Exchange(context.Background(), req)
	requireOAuthError(t, err, domain.ErrCodeInvalidGrant)
}

func TestExchangeMissingCodeParameters(t *testing.T) {
	f := newGrantFixture(t)

	req := f.codeExchangeRequest("")
	_, err := f.grants.Exchange(context.Background(), req)
	requireOAuthError(t, err, domain.ErrCodeInvalidRequest)
}

func TestExchangeBadClientSecret(t *testing.T) {
	f := newGrantFixture(t)
	code, _ := f.issueCode(t, "read")

	req := f.codeExchangeRequest(code)
	req.ClientSecret = "wrong-secret"

	_, err := f.grants.Exchange(context.Background(), req)
	oerr := requireOAuthError(t, err, domain.ErrCodeInvalidClient)
	assert.Equal(t, 401, oerr.Status())
}

func TestExchangeInactiveClient(t *testing.T) {
	f := newGrantFixture(t)
	code, _ := f.issueCode(t, "read")

	f.client.Active = false
	require.NoError(t, f.clientRepo.Update(context.Background(), f.client))

	_, err := f.grants.Exchange(context.Background(), f.codeExchangeRequest(code))
	requireOAuthError(t, err, domain.ErrCodeInvalidClient)
}

func TestExchangeUnsupportedGrantType(t *testing.T) {
	f := newGrantFixture(t)

	_, err := f.grants.Exchange(context.Background(), TokenExchangeRequest{
		GrantType:    "password",
		ClientID:     f.client.ClientID,
		ClientSecret: testClientSecret,
	})
	requireOAuthError(t, err, domain.ErrCodeUnsupportedGrantType)
}

func TestClientCredentialsGrant(t *testing.T) {
	f := newGrantFixture(t)

	resp, err := f.grants.Exchange(context.Background(), TokenExchangeRequest{
		GrantType:    GrantTypeClientCredentials,
		ClientID:     f.client.ClientID,
		ClientSecret: testClientSecret,
		Scope:        "read write",
	})
	require.NoError(t, err)

	// The client acts as its own principal, and no refresh token is issued.
	assert.Empty(t, resp.RefreshToken)
	assert.Equal(t, "read write", resp.Scope)

	claims, err := f.signer.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.client.ClientID, claims.Subject)
}

func TestClientCredentialsDropsDisallowedScopes(t *testing.T) {
	f := newGrantFixture(t)

	resp, err := f.grants.Exchange(context.Background(), TokenExchangeRequest{
		GrantType:    GrantTypeClientCredentials,
		ClientID:     f.client.ClientID,
		ClientSecret: testClientSecret,
		Scope:        "read delete",
	})
	require.NoError(t, err)
	assert.Equal(t, "read", resp.Scope)
}

func TestClientCredentialsRejectsFullyDisallowedScope(t *testing.T) {
	f := newGrantFixture(t)

	_, err := f.grants.Exchange(context.Background(), TokenExchangeRequest{
		GrantType:    GrantTypeClientCredentials,
		ClientID:     f.client.ClientID,
		ClientSecret: testClientSecret,
		Scope:        "delete impersonate",
	})
	requireOAuthError(t, err, domain.ErrCodeInvalidScope)
}

func TestClientCredentialsOmittedScopeGrantsAllowedSet(t *testing.T) {
	f := newGrantFixture(t)

	resp, err := f.grants.Exchange(context.Background(), TokenExchangeRequest{
		GrantType:    GrantTypeClientCredentials,
		ClientID:     f.client.ClientID,
		ClientSecret: testClientSecret,
	})
	require.NoError(t, err)
	assert.Equal(t, "read write admin", resp.Scope)
}

func TestRefreshTokenGrant(t *testing.T) {
	f := newGrantFixture(t)
	code, userID := f.issueCode(t, "read write")

	initial, err := f.grants.Exchange(context.Background(), f.codeExchangeRequest(code))
	require.NoError(t, err)

	resp, err := f.grants.Exchange(context.Background(), TokenExchangeRequest{
		GrantType:    GrantTypeRefreshToken,
		ClientID:     f.client.ClientID,
		ClientSecret: testClientSecret,
		RefreshToken: initial.RefreshToken,
	})
	require.NoError(t, err)

	// Scope is exactly the originally granted set, and the refresh token is
	// not rotated.
	assert.Equal(t, "read write", resp.Scope)
	assert.Empty(t, resp.RefreshToken)

	claims, err := f.signer.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "read write", claims.Scope)
}

func TestRefreshTokenReusable(t *testing.T) {
	f := newGrantFixture(t)
	code, _ := f.issueCode(t, "read")

	initial, err := f.grants.Exchange(context.Background(), f.codeExchangeRequest(code))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.grants.Exchange(context.Background(), TokenExchangeRequest{
			GrantType:    GrantTypeRefreshToken,
			ClientID:     f.client.ClientID,
			ClientSecret: testClientSecret,
			RefreshToken: initial.RefreshToken,
		})
		require.NoError(t, err)
	}
}

func TestRefreshTokenRevoked(t *testing.T) {
	f := newGrantFixture(t)
	code, _ := f.issueCode(t, "read")

	initial, err := f.grants.Exchange(context.Background(), f.codeExchangeRequest(code))
	require.NoError(t, err)

	require.NoError(t, f.grants.Revoke(context.Background(),
		f.client.ClientID, testClientSecret, initial.RefreshToken, ""))

	_, err = f.grants.Exchange(context.Background(), TokenExchangeRequest{
		GrantType:    GrantTypeRefreshToken,
		ClientID:     f.client.ClientID,
		ClientSecret: testClientSecret,
		RefreshToken: initial.RefreshToken,
	})
	requireOAuthError(t, err, domain.ErrCodeInvalidGrant)
}

func TestRefreshTokenExpired(t *testing.T) {
	f := newGrantFixture(t)

	token := "expired-refresh-token"
	require.NoError(t, f.refreshRepo.Create(context.Background(), &domain.RefreshToken{
		ID:        uuid.New(),
		TokenHash: hashToken(token),
		ClientID:  f.client.ID,
		UserID:    uuid.New(),
		Scope:     "read",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := f.grants.Exchange(context.Background(), TokenExchangeRequest{
		GrantType:    GrantTypeRefreshToken,
		ClientID:     f.client.ClientID,
		ClientSecret: testClientSecret,
		RefreshToken: token,
	})
	requireOAuthError(t, err, domain.ErrCodeInvalidGrant)
}

func TestRefreshTokenUnknown(t *testing.T) {
	f := newGrantFixture(t)

	_, err := f.grants.Exchange(context.Background(), TokenExchangeRequest{
		GrantType:    GrantTypeRefreshToken,
		ClientID:     f.client.ClientID,
		ClientSecret: testClientSecret,
		RefreshToken: "never-issued",
	})
	requireOAuthError(t, err, domain.ErrCodeInvalidGrant)
}

func TestRevokeUserGrants(t *testing.T) {
	f := newGrantFixture(t)

	// One redeemed grant (live refresh token) and one unredeemed code for
	// the same user.
	code, userID := f.issueCode(t, "read")
	initial, err := f.grants.Exchange(context.Background(), f.codeExchangeRequest(code))
	require.NoError(t, err)

	pending, err := f.oauth.Authorize(context.Background(), AuthorizeRequest{
		ResponseType: "code",
		ClientID:     f.client.ClientID,
		RedirectURI:  testRedirectURI,
		Scope:        "read",
		UserID:       userID,
	})
	require.NoError(t, err)
	u, err := url.Parse(pending)
	require.NoError(t, err)
	pendingCode := u.Query().Get("code")

	require.NoError(t, f.grants.RevokeUserGrants(context.Background(), userID))

	_, err = f.grants.Exchange(context.Background(), TokenExchangeRequest{
		GrantType:    GrantTypeRefreshToken,
		ClientID:     f.client.ClientID,
		ClientSecret: testClientSecret,
		RefreshToken: initial.RefreshToken,
	})
	requireOAuthError(t, err, domain.ErrCodeInvalidGrant)

	_, err = f.grants.Exchange(context.Background(), f.codeExchangeRequest(pendingCode))
	requireOAuthError(t, err, domain.ErrCodeInvalidGrant)
}

func TestRevokeUnknownRefreshTokenSucceeds(t *testing.T) {
	f := newGrantFixture(t)

	err := f.grants.Revoke(context.Background(),
		f.client.ClientID, testClientSecret, "never-issued", "")
	assert.NoError(t, err)
}

// Racing redemptions of one code must produce exactly one set of tokens.
func TestConcurrentCodeRedemption(t *testing.T) {
	const (
		trials  = 10
		workers = 16
	)

	for trial := 0; trial < trials; trial++ {
		f := newGrantFixture(t)
		code, _ := f.issueCode(t, "read")

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			denials   int
		)

		start := make(chan struct{})
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start

				_, err := f.grants.Exchange(context.Background(), f.codeExchangeRequest(code))

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				default:
					var oerr *domain.OAuthError
					if errors.As(err, &oerr) && oerr.Code == domain.ErrCodeInvalidGrant {
						denials++
					}
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, 1, successes, "trial %d", trial)
		assert.Equal(t, workers-1, denials, "trial %d", trial)
	}
}
