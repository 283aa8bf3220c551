package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/EmotiveImpact/appfounders-oauth/internal/domain"
	"github.com/EmotiveImpact/appfounders-oauth/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type clientRepository struct {
	db *sqlx.DB
}

func NewClientRepository(db *sqlx.DB) repository.ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	now := time.Now()
	client.CreatedAt = now
	client.UpdatedAt = now

	query := `
		INSERT INTO oauth_clients (
			id, name, client_id, client_secret_hash, redirect_uris,
			allowed_scopes, active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		client.ID, client.Name, client.ClientID, client.ClientSecretHash,
		client.RedirectURIs, client.AllowedScopes, client.Active,
		client.CreatedAt, client.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	return nil
}

func (r *clientRepository) GetByClientID(ctx context.Context, clientID string) (*domain.Client, error) {
	query := `
		SELECT id, name, client_id, client_secret_hash, redirect_uris,
		       allowed_scopes, active, created_at, updated_at
		FROM oauth_clients
		WHERE client_id = $1`

	var client domain.Client
	err := r.db.GetContext(ctx, &client, query, clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	return &client, nil
}

func (r *clientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	query := `
		SELECT id, name, client_id, client_secret_hash, redirect_uris,
		       allowed_scopes, active, created_at, updated_at
		FROM oauth_clients
		WHERE id = $1`

	var client domain.Client
	err := r.db.GetContext(ctx, &client, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	return &client, nil
}

func (r *clientRepository) Update(ctx context.Context, client *domain.Client) error {
	client.UpdatedAt = time.Now()

	query := `
		UPDATE oauth_clients
		SET name = $2, redirect_uris = $3, allowed_scopes = $4, active = $5,
		    updated_at = $6
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		client.ID, client.Name, client.RedirectURIs, client.AllowedScopes,
		client.Active, client.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *clientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM oauth_clients WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}

	return nil
}
