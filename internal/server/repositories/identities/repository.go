// Package identities is the credential store for end-user identities.
package identities

import (
	"context"

	"github.com/dmitrijs2005/realmkeeper/internal/server/models"
)

type Repository interface {
	// Create fails with common.ErrDuplicateIdentity when the email is taken.
	Create(ctx context.Context, username, email, passwordHash string) (*models.Identity, error)
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
	FindByID(ctx context.Context, id string) (*models.Identity, error)
	// UpdateAssetReference swaps the profile image reference and returns the
	// updated identity together with the reference it replaced (nil if none).
	UpdateAssetReference(ctx context.Context, id string, ref *models.AssetReference) (*models.Identity, *models.AssetReference, error)
	// List returns up to limit identities in creation order, skipping offset.
	List(ctx context.Context, limit, offset int) ([]*models.Identity, error)
	// UpdateProfile overwrites the non-empty fields of u. It fails with
	// common.ErrDuplicateIdentity when the new email is taken.
	UpdateProfile(ctx context.Context, id string, u models.ProfileUpdate) (*models.Identity, error)
	// Delete reports whether a row was removed and returns the asset reference
	// it held, so the caller can clean the asset up.
	Delete(ctx context.Context, id string) (*models.AssetReference, bool, error)
}
