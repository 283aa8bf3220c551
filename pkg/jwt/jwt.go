package jwt

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/EmotiveImpact/appfounders-oauth/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is the single error returned for every verification
// failure: malformed token, wrong signing algorithm, bad signature, or
// expiry. Callers cannot distinguish the cases, so neither can anyone
// probing the endpoint.
var ErrInvalidToken = errors.New("invalid token")

type TokenService struct {
	privateKey   *rsa.PrivateKey
	publicKey    *rsa.PublicKey
	accessExpiry time.Duration
	issuer       string
}

func NewTokenService(privateKeyPEM, publicKeyPEM []byte, accessExpiry time.Duration, issuer string) (*TokenService, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, err
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, err
	}

	return &TokenService{
		privateKey:   privateKey,
		publicKey:    publicKey,
		accessExpiry: accessExpiry,
		issuer:       issuer,
	}, nil
}

// NewTokenServiceWithKeys builds a TokenService from an in-memory keypair.
func NewTokenServiceWithKeys(privateKey *rsa.PrivateKey, accessExpiry time.Duration, issuer string) *TokenService {
	return &TokenService{
		privateKey:   privateKey,
		publicKey:    &privateKey.PublicKey,
		accessExpiry: accessExpiry,
		issuer:       issuer,
	}
}

// AccessExpiry returns the configured access token lifetime.
func (s *TokenService) AccessExpiry() time.Duration {
	return s.accessExpiry
}

// GenerateAccessToken mints a signed access token. Subject is the resource
// owner for user-delegated grants and the client itself for
// client_credentials.
func (s *TokenService) GenerateAccessToken(subject string, clientID uuid.UUID, scope string) (string, error) {
	now := time.Now()

	claims := domain.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		ClientID:  clientID,
		Scope:     scope,
		TokenType: "access",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.privateKey)
}

// ValidateToken verifies signature, algorithm, and expiry. The signing
// method check defends against algorithm-confusion: a token declaring HS256
// with the public key as its HMAC secret must not verify.
func (s *TokenService) ValidateToken(tokenString string) (*domain.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &domain.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidToken
		}
		return s.publicKey, nil
	})

	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*domain.Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetPublicKey returns the RSA public key for the JWKS endpoint
func (s *TokenService) GetPublicKey() *rsa.PublicKey {
	return s.publicKey
}
