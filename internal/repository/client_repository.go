package repository

import (
	"context"

	"github.com/EmotiveImpact/appfounders-oauth/internal/domain"
	"github.com/google/uuid"
)

type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error

	// GetByClientID retrieves a client by its public client_id
	GetByClientID(ctx context.Context, clientID string) (*domain.Client, error)

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error)

	Update(ctx context.Context, client *domain.Client) error

	Delete(ctx context.Context, id uuid.UUID) error
}
