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

type authorizationCodeRepository struct {
	db *sqlx.DB
}

func NewAuthorizationCodeRepository(db *sqlx.DB) repository.AuthorizationCodeRepository {
	return &authorizationCodeRepository{db: db}
}

func (r *authorizationCodeRepository) Create(ctx context.Context, code *domain.AuthorizationCode) error {
	code.CreatedAt = time.Now()

	query := `
		INSERT INTO authorization_codes (
			id, code_hash, client_id, user_id, redirect_uri, scope,
			used, expires_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		code.ID, code.CodeHash, code.ClientID, code.UserID, code.RedirectURI,
		code.Scope, code.Used, code.ExpiresAt, code.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create authorization code: %w", err)
	}

	return nil
}

// Consume flips used in the same statement that matches the row. The
// `used = FALSE` predicate is what closes the replay window: two racing
// redemptions hit the same row but only one UPDATE matches.
func (r *authorizationCodeRepository) Consume(ctx context.Context, codeHash string, clientID uuid.UUID, redirectURI string) (*domain.AuthorizationCode, error) {
	query := `
		UPDATE authorization_codes
		SET used = TRUE
		WHERE code_hash = $1 AND client_id = $2 AND redirect_uri = $3 AND used = FALSE
		RETURNING id, code_hash, client_id, user_id, redirect_uri, scope,
		          used, expires_at, created_at`

	var code domain.AuthorizationCode
	err := r.db.GetContext(ctx, &code, query, codeHash, clientID, redirectURI)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	return &code, nil
}

func (r *authorizationCodeRepository) DeleteExpired(ctx context.Context) error {
	query := `
		DELETE FROM authorization_codes
		WHERE expires_at < NOW()`

	_, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to delete expired authorization codes: %w", err)
	}

	return nil
}

func (r *authorizationCodeRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	query := `
		DELETE FROM authorization_codes
		WHERE user_id = $1`

	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete authorization codes by user ID: %w", err)
	}

	return nil
}
