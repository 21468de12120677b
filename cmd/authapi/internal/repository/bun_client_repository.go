package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/bunx"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/uptrace/bun"
)

// BunClientRepository implements ClientRepository using Bun ORM
type BunClientRepository struct {
	db *bun.DB
}

// NewBunClientRepository creates a new Bun-based OAuth client repository
func NewBunClientRepository(db *bun.DB) ClientRepository {
	return &BunClientRepository{db: db}
}

// Create registers a new OAuth client
func (r *BunClientRepository) Create(ctx context.Context, client *models.Client) error {
	if client.ID == "" {
		client.ID = bunx.NewUUIDv7()
	}
	if client.GrantTypes == nil {
		client.GrantTypes = models.StringList{}
	}
	if client.Scopes == nil {
		client.Scopes = models.StringList{}
	}
	if _, err := r.db.NewInsert().Model(client).Exec(ctx); err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// GetByClientID retrieves a client by its public client_id
func (r *BunClientRepository) GetByClientID(ctx context.Context, clientID string) (*models.Client, error) {
	client := new(models.Client)
	err := r.db.NewSelect().
		Model(client).
		Where("client_id = ?", clientID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("client %q: %w", clientID, ErrNotFound)
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return client, nil
}

// List retrieves all registered clients
func (r *BunClientRepository) List(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := r.db.NewSelect().
		Model(&clients).
		Order("client_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}
