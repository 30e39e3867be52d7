// Package orphans keeps the ledger of remote assets whose deletion failed.
package orphans

import (
	"context"

	"github.com/dmitrijs2005/realmkeeper/internal/server/models"
)

type Repository interface {
	// Record adds assetID to the ledger; recording it twice keeps one row.
	Record(ctx context.Context, assetID, reason string) error
	// List returns up to limit entries, oldest first.
	List(ctx context.Context, limit int) ([]*models.OrphanedAsset, error)
	Delete(ctx context.Context, assetID string) error
}
