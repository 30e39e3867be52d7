package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/realmkeeper/internal/common"
	"github.com/dmitrijs2005/realmkeeper/internal/server/models"
	"github.com/dmitrijs2005/realmkeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ repomanager.RepositoryManager = (*RepositoryManager)(nil)

func TestIdentities_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	r := NewIdentityRepository()

	created, err := r.Create(ctx, "alice12", "a@x.com", "HASH")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	byEmail, err := r.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := r.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice12", byID.Username)

	_, err = r.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestIdentities_DuplicateEmailUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	r := NewIdentityRepository()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Create(ctx, "alice12", "a@x.com", "HASH")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, common.ErrDuplicateIdentity):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, dup)
	assert.Equal(t, 1, r.Count())
}

func TestIdentities_SwapReturnsPrevious(t *testing.T) {
	ctx := context.Background()
	r := NewIdentityRepository()

	i, err := r.Create(ctx, "alice12", "a@x.com", "HASH")
	require.NoError(t, err)

	_, prev, err := r.UpdateAssetReference(ctx, i.ID, &models.AssetReference{URL: "u1", AssetID: "a1"})
	require.NoError(t, err)
	assert.Nil(t, prev)

	got, prev, err := r.UpdateAssetReference(ctx, i.ID, &models.AssetReference{URL: "u2", AssetID: "a2"})
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "a1", prev.AssetID)
	assert.Equal(t, "a2", got.ProfileImage.AssetID)

	_, _, err = r.UpdateAssetReference(ctx, "missing", nil)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestIdentities_Delete(t *testing.T) {
	ctx := context.Background()
	r := NewIdentityRepository()

	i, err := r.Create(ctx, "alice12", "a@x.com", "HASH")
	require.NoError(t, err)
	_, _, err = r.UpdateAssetReference(ctx, i.ID, &models.AssetReference{URL: "u1", AssetID: "a1"})
	require.NoError(t, err)

	ref, ok, err := r.Delete(ctx, i.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a1", ref.AssetID)

	_, ok, err = r.Delete(ctx, i.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// email is free again
	_, err = r.Create(ctx, "alice12", "a@x.com", "HASH")
	assert.NoError(t, err)
}

func TestIdentities_ListInCreationOrder(t *testing.T) {
	ctx := context.Background()
	r := NewIdentityRepository()

	var ids []string
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		i, err := r.Create(ctx, "user", email, "HASH")
		require.NoError(t, err)
		ids = append(ids, i.ID)
	}

	page, err := r.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[0], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	_, _, err = r.Delete(ctx, ids[1])
	require.NoError(t, err)

	page, err = r.List(ctx, 10, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[2], page[0].ID)

	page, err = r.List(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestIdentities_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	r := NewIdentityRepository()

	alice, err := r.Create(ctx, "alice12", "a@x.com", "HASH")
	require.NoError(t, err)
	_, err = r.Create(ctx, "bob", "b@x.com", "HASH")
	require.NoError(t, err)

	_, err = r.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{Email: "b@x.com"})
	require.ErrorIs(t, err, common.ErrDuplicateIdentity)

	updated, err := r.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{Email: "alice@x.com", PasswordHash: "NEW"})
	require.NoError(t, err)
	assert.Equal(t, "alice12", updated.Username)
	assert.Equal(t, "alice@x.com", updated.Email)
	assert.Equal(t, "NEW", updated.PasswordHash)

	_, err = r.FindByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	byEmail, err := r.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)

	_, err = r.Create(ctx, "carol", "a@x.com", "HASH")
	assert.NoError(t, err)

	_, err = r.UpdateProfile(ctx, "missing", models.ProfileUpdate{Username: "x"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestOrphans(t *testing.T) {
	ctx := context.Background()
	r := NewOrphanRepository()

	require.NoError(t, r.Record(ctx, "b", "r"))
	require.NoError(t, r.Record(ctx, "a", "r"))
	require.NoError(t, r.Record(ctx, "a", "r2"))

	all, err := r.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := r.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	require.NoError(t, r.Delete(ctx, "a"))
	all, err = r.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].AssetID)
}

func TestManager(t *testing.T) {
	m := NewRepositoryManager()
	assert.NoError(t, m.RunMigrations(context.Background(), nil))
	assert.Same(t, m.Identities(nil), m.Identities(nil))
	assert.NotNil(t, m.Orphans(nil))
}
