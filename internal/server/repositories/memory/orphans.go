package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/realmkeeper/internal/server/models"
)

type OrphanRepository struct {
	mu    sync.Mutex
	items map[string]*models.OrphanedAsset
}

func NewOrphanRepository() *OrphanRepository {
	return &OrphanRepository{items: make(map[string]*models.OrphanedAsset)}
}

func (r *OrphanRepository) Record(_ context.Context, assetID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o, ok := r.items[assetID]; ok {
		o.Reason = reason
		return nil
	}
	r.items[assetID] = &models.OrphanedAsset{AssetID: assetID, Reason: reason, CreatedAt: time.Now().UTC()}
	return nil
}

func (r *OrphanRepository) List(_ context.Context, limit int) ([]*models.OrphanedAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*models.OrphanedAsset, 0, len(r.items))
	for _, o := range r.items {
		c := *o
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].AssetID < result[j].AssetID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *OrphanRepository) Delete(_ context.Context, assetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, assetID)
	return nil
}
