package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/realmkeeper/internal/cryptox"
	"github.com/dmitrijs2005/realmkeeper/internal/dbx"
	"github.com/dmitrijs2005/realmkeeper/internal/logging"
	"github.com/dmitrijs2005/realmkeeper/internal/server/assets"
	"github.com/dmitrijs2005/realmkeeper/internal/server/auth"
	"github.com/dmitrijs2005/realmkeeper/internal/server/models"
	"github.com/dmitrijs2005/realmkeeper/internal/server/repositories/identities"
	"github.com/dmitrijs2005/realmkeeper/internal/server/repositories/memory"
	"github.com/dmitrijs2005/realmkeeper/internal/server/repositories/orphans"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

// events is a shared, ordered log of calls across fakes.
type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = append(e.log, s)
}

func (e *events) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

type recordingStore struct {
	*assets.MemoryStore
	ev        *events
	uploadErr error
	deleteErr error
}

func (s *recordingStore) Upload(ctx context.Context, data []byte, folder, contentType string) (*models.AssetReference, error) {
	if s.uploadErr != nil {
		s.ev.add("upload_failed")
		return nil, s.uploadErr
	}
	ref, err := s.MemoryStore.Upload(ctx, data, folder, contentType)
	if err == nil {
		s.ev.add("upload:" + ref.AssetID)
	}
	return ref, err
}

func (s *recordingStore) Delete(ctx context.Context, assetID string) error {
	s.ev.add("delete:" + assetID)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.MemoryStore.Delete(ctx, assetID)
}

type faultyIdentities struct {
	*memory.IdentityRepository
	ev        *events
	updateErr error
	findErr   error
}

func (r *faultyIdentities) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.IdentityRepository.FindByID(ctx, id)
}

func (r *faultyIdentities) UpdateAssetReference(ctx context.Context, id string, ref *models.AssetReference) (*models.Identity, *models.AssetReference, error) {
	if r.updateErr != nil {
		r.ev.add("persist_failed")
		return nil, nil, r.updateErr
	}
	r.ev.add("persist")
	return r.IdentityRepository.UpdateAssetReference(ctx, id, ref)
}

type fakeManager struct {
	identities *faultyIdentities
	orphans    *memory.OrphanRepository
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeManager) Identities(dbx.DBTX) identities.Repository    { return m.identities }
func (m *fakeManager) Orphans(dbx.DBTX) orphans.Repository          { return m.orphans }

type env struct {
	ev       *events
	manager  *fakeManager
	store    *recordingStore
	tokens   *auth.TokenService
	hasher   *cryptox.PasswordHasher
	ids      *IdentityService
	assets   *AssetService
	adminPwd string
}

func newEnv(t *testing.T) *env {
	t.Helper()

	ev := &events{}
	m := &fakeManager{
		identities: &faultyIdentities{IdentityRepository: memory.NewIdentityRepository(), ev: ev},
		orphans:    memory.NewOrphanRepository(),
	}
	store := &recordingStore{MemoryStore: assets.NewMemoryStore("https://cdn.example.com"), ev: ev}

	h, err := cryptox.NewPasswordHasher(cryptox.Argon2id, cryptox.WithArgon2Params(cryptox.Argon2Params{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	}))
	require.NoError(t, err)

	ts, err := auth.NewTokenService([]byte("user-key"), []byte("admin-key"))
	require.NoError(t, err)

	adminPwd := "admin-password"
	adminHash, err := h.Hash(adminPwd)
	require.NoError(t, err)

	ids, err := NewIdentityService(nil, m, h, ts, time.Hour,
		AdminCredential{Email: "Admin@Example.com", PasswordHash: adminHash}, logging.Nop{})
	require.NoError(t, err)

	as := NewAssetService(nil, m, store, AssetOptions{MaxUploadBytes: 1024, Timeout: time.Second}, logging.Nop{})

	return &env{ev: ev, manager: m, store: store, tokens: ts, hasher: h, ids: ids, assets: as, adminPwd: adminPwd}
}

func (e *env) register(t *testing.T, email string) *models.Identity {
	t.Helper()
	s, err := e.ids.Register(context.Background(), RegisterRequest{Username: "alice12", Email: email, Password: "secret1"})
	require.NoError(t, err)
	return s.Identity
}

var errBoom = errors.New("boom")
