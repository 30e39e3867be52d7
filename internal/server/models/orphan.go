package models

import "time"

// OrphanedAsset records a remote asset whose delete failed and must be retried.
type OrphanedAsset struct {
	AssetID   string
	Reason    string
	CreatedAt time.Time
}
