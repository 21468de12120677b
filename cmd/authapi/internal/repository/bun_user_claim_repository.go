package repository

import (
	"context"
	"fmt"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/uptrace/bun"
)

// BunUserClaimRepository implements UserClaimRepository using Bun ORM
type BunUserClaimRepository struct {
	db *bun.DB
}

// NewBunUserClaimRepository creates a new Bun-based user claim repository
func NewBunUserClaimRepository(db *bun.DB) UserClaimRepository {
	return &BunUserClaimRepository{db: db}
}

// Add stores a claim against a user
func (r *BunUserClaimRepository) Add(ctx context.Context, claim *models.UserClaim) error {
	_, err := r.db.NewInsert().
		Model(claim).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("add user claim: %w", err)
	}
	return nil
}

// ListByUser returns a user's claims in insertion order
func (r *BunUserClaimRepository) ListByUser(ctx context.Context, userID string) ([]models.UserClaim, error) {
	var claims []models.UserClaim
	err := r.db.NewSelect().
		Model(&claims).
		Where("user_id = ?", userID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list user claims: %w", err)
	}
	return claims, nil
}

// DeleteByType removes every claim of the given type from a user
func (r *BunUserClaimRepository) DeleteByType(ctx context.Context, userID, claimType string) error {
	_, err := r.db.NewDelete().
		Model((*models.UserClaim)(nil)).
		Where("user_id = ?", userID).
		Where("claim_type = ?", claimType).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete user claims: %w", err)
	}
	return nil
}
