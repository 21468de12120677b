package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/uptrace/bun"
)

// BunRevokedJTIRepository implements RevokedJTIRepository using Bun ORM
type BunRevokedJTIRepository struct {
	db *bun.DB
}

// NewBunRevokedJTIRepository creates a new Bun-based revoked JTI repository
func NewBunRevokedJTIRepository(db *bun.DB) RevokedJTIRepository {
	return &BunRevokedJTIRepository{db: db}
}

// Create adds a JTI to the revocation denylist. Revoking twice is a no-op.
func (r *BunRevokedJTIRepository) Create(ctx context.Context, revokedJTI *models.RevokedJTI) error {
	_, err := r.db.NewInsert().
		Model(revokedJTI).
		On("CONFLICT (jti) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create revoked jti: %w", err)
	}
	return nil
}

// IsRevoked checks if a JTI exists in the revocation table
func (r *BunRevokedJTIRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.RevokedJTI)(nil)).
		Where("jti = ?", jti).
		Exists(ctx)

	if err != nil {
		return false, fmt.Errorf("check revoked jti: %w", err)
	}

	return exists, nil
}

// DeleteExpired removes revoked JTIs where exp < now() - grace period.
// Expired tokens fail validation on their own, so their denylist rows are dead weight.
func (r *BunRevokedJTIRepository) DeleteExpired(ctx context.Context, gracePeriod time.Duration) error {
	cutoffTime := time.Now().Add(-gracePeriod)

	_, err := r.db.NewDelete().
		Model((*models.RevokedJTI)(nil)).
		Where("exp < ?", cutoffTime).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete expired revoked jtis: %w", err)
	}
	return nil
}
