package orphans

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/realmkeeper/internal/dbx"
	"github.com/dmitrijs2005/realmkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Record(ctx context.Context, assetID, reason string) error {

	query :=
		`INSERT INTO orphaned_assets (asset_id, reason)
		VALUES ($1, $2)
		ON CONFLICT (asset_id)
		DO UPDATE SET reason = EXCLUDED.reason
		 `

	if _, err := r.db.ExecContext(ctx, query, assetID, reason); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*models.OrphanedAsset, error) {
	query := `SELECT asset_id, reason, created_at FROM orphaned_assets
		ORDER BY created_at
		LIMIT $1
		`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select orphaned assets: %w", err)
	}

	var result []*models.OrphanedAsset

	defer rows.Close()
	for rows.Next() {
		var item = models.OrphanedAsset{}
		if err := rows.Scan(&item.AssetID, &item.Reason, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, assetID string) error {

	if _, err := r.db.ExecContext(ctx, `DELETE FROM orphaned_assets WHERE asset_id = $1`, assetID); err != nil {
		return fmt.Errorf("failed to delete orphaned asset: %w", err)
	}

	return nil
}
