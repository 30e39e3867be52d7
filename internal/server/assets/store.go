// Package assets talks to the external store that holds profile images.
package assets

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/realmkeeper/internal/server/models"
	"github.com/google/uuid"
)

// Store uploads and deletes binary assets. AssetID is whatever the store needs
// to delete the object later.
type Store interface {
	Upload(ctx context.Context, data []byte, folder, contentType string) (*models.AssetReference, error)
	Delete(ctx context.Context, assetID string) error
}

// NewObjectKey returns a unique key under folder, partitioned by date.
func NewObjectKey(folder string, now time.Time) string {
	return fmt.Sprintf("%s/%d/%02d/%02d/%v", folder, now.Year(), now.Month(), now.Day(), uuid.New())
}
