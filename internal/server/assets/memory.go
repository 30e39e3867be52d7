package assets

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/realmkeeper/internal/common"
	"github.com/dmitrijs2005/realmkeeper/internal/server/models"
)

// MemoryStore keeps assets in process memory. It backs local runs without an
// object store and the HTTP tests.
type MemoryStore struct {
	mu            sync.Mutex
	objects       map[string][]byte
	publicBaseURL string
}

func NewMemoryStore(publicBaseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte), publicBaseURL: publicBaseURL}
}

func (m *MemoryStore) Upload(_ context.Context, data []byte, folder, _ string) (*models.AssetReference, error) {
	key := NewObjectKey(folder, time.Now())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)

	return &models.AssetReference{URL: m.publicBaseURL + "/" + key, AssetID: key}, nil
}

func (m *MemoryStore) Delete(_ context.Context, assetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, assetID)
	return nil
}

// Get returns a copy of the stored object.
func (m *MemoryStore) Get(assetID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.objects[assetID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
