// Package memory implements the repository interfaces with transient
// in-memory storage. It backs tests and local development; production uses
// the postgres implementations.
package memory

import (
	"context"
	"sync"

	"github.com/EmotiveImpact/appfounders-oauth/internal/domain"
	"github.com/EmotiveImpact/appfounders-oauth/internal/repository"
	"github.com/google/uuid"
)

type ClientRepository struct {
	mu      sync.RWMutex
	clients map[string]*domain.Client // keyed by public client_id
}

func NewClientRepository() *ClientRepository {
	return &ClientRepository{clients: map[string]*domain.Client{}}
}

func (r *ClientRepository) Create(_ context.Context, client *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.ClientID] = client
	return nil
}

func (r *ClientRepository) GetByClientID(_ context.Context, clientID string) (*domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[clientID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *client
	return &copied, nil
}

func (r *ClientRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, client := range r.clients {
		if client.ID == id {
			copied := *client
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *ClientRepository) Update(_ context.Context, client *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[client.ClientID]; !ok {
		return repository.ErrNotFound
	}
	r.clients[client.ClientID] = client
	return nil
}

func (r *ClientRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, client := range r.clients {
		if client.ID == id {
			delete(r.clients, key)
			return nil
		}
	}
	return nil
}

type AuthorizationCodeRepository struct {
	mu    sync.Mutex
	codes map[string]*domain.AuthorizationCode // keyed by code hash
}

func NewAuthorizationCodeRepository() *AuthorizationCodeRepository {
	return &AuthorizationCodeRepository{codes: map[string]*domain.AuthorizationCode{}}
}

func (r *AuthorizationCodeRepository) Create(_ context.Context, code *domain.AuthorizationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *code
	r.codes[code.CodeHash] = &copied
	return nil
}

// Consume performs the check-and-flip under one lock, mirroring the single
// conditional UPDATE of the postgres implementation: of N racing callers,
// exactly one observes used == false and wins.
func (r *AuthorizationCodeRepository) Consume(_ context.Context, codeHash string, clientID uuid.UUID, redirectURI string) (*domain.AuthorizationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.codes[codeHash]
	if !ok || code.ClientID != clientID || code.RedirectURI != redirectURI || code.Used {
		return nil, repository.ErrNotFound
	}

	code.Used = true
	copied := *code
	return &copied, nil
}

func (r *AuthorizationCodeRepository) DeleteExpired(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, code := range r.codes {
		if code.IsExpired() {
			delete(r.codes, hash)
		}
	}
	return nil
}

func (r *AuthorizationCodeRepository) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, code := range r.codes {
		if code.UserID == userID {
			delete(r.codes, hash)
		}
	}
	return nil
}

type RefreshTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]*domain.RefreshToken // keyed by token hash
}

func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{tokens: map[string]*domain.RefreshToken{}}
}

func (r *RefreshTokenRepository) Create(_ context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *token
	r.tokens[token.TokenHash] = &copied
	return nil
}

func (r *RefreshTokenRepository) GetByTokenHash(_ context.Context, tokenHash string, clientID uuid.UUID) (*domain.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.tokens[tokenHash]
	if !ok || token.ClientID != clientID {
		return nil, repository.ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (r *RefreshTokenRepository) Revoke(_ context.Context, tokenHash string, clientID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token, ok := r.tokens[tokenHash]; ok && token.ClientID == clientID {
		token.Revoked = true
	}
	return nil
}

func (r *RefreshTokenRepository) RevokeByUserID(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func (r *RefreshTokenRepository) DeleteExpired(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, token := range r.tokens {
		if token.IsExpired() {
			delete(r.tokens, hash)
		}
	}
	return nil
}
