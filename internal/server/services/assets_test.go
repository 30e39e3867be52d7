package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/dmitrijs2005/realmkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countPrefix(log []string, prefix string) int {
	n := 0
	for _, s := range log {
		if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func indexOf(log []string, s string) int {
	for i, v := range log {
		if v == s {
			return i
		}
	}
	return -1
}

func TestReplaceProfileAsset_NoPrevious(t *testing.T) {
	e := newEnv(t)
	id := e.register(t, "a@x.com").ID

	got, err := e.assets.ReplaceProfileAsset(context.Background(), id, pngBytes)
	require.NoError(t, err)
	require.NotNil(t, got.ProfileImage)

	stored, err := e.ids.GetIdentity(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, got.ProfileImage, stored.ProfileImage)
	assert.Equal(t, "https://cdn.example.com/"+stored.ProfileImage.AssetID, stored.ProfileImage.URL)

	assert.Zero(t, countPrefix(e.ev.all(), "delete:"))
	assert.Equal(t, 1, e.store.Len())
}

func TestReplaceProfileAsset_DeletesPreviousAfterPersist(t *testing.T) {
	e := newEnv(t)
	id := e.register(t, "a@x.com").ID

	first, err := e.assets.ReplaceProfileAsset(context.Background(), id, pngBytes)
	require.NoError(t, err)
	old := first.ProfileImage.AssetID

	second, err := e.assets.ReplaceProfileAsset(context.Background(), id, pngBytes)
	require.NoError(t, err)
	assert.NotEqual(t, old, second.ProfileImage.AssetID)

	log := e.ev.all()
	assert.Equal(t, 1, countPrefix(log, "delete:"))

	del := indexOf(log, "delete:"+old)
	require.NotEqual(t, -1, del)
	lastPersist := -1
	for i, v := range log {
		if v == "persist" {
			lastPersist = i
		}
	}
	assert.Less(t, lastPersist, del, "delete must follow the persist that replaced it: %v", log)

	_, err = e.store.Get(old)
	assert.Error(t, err)
	assert.Equal(t, 1, e.store.Len())
}

func TestReplaceProfileAsset_UploadFailureLeavesIdentityUntouched(t *testing.T) {
	e := newEnv(t)
	id := e.register(t, "a@x.com").ID

	before, err := e.assets.ReplaceProfileAsset(context.Background(), id, pngBytes)
	require.NoError(t, err)

	e.store.uploadErr = errBoom
	_, err = e.assets.ReplaceProfileAsset(context.Background(), id, pngBytes)
	assert.ErrorIs(t, err, common.ErrAssetUploadFailed)

	after, err := e.ids.GetIdentity(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, before.ProfileImage, after.ProfileImage)
	assert.Equal(t, 1, countPrefix(e.ev.all(), "persist"))
	assert.Zero(t, countPrefix(e.ev.all(), "delete:"))
}

func TestReplaceProfileAsset_PersistFailureCompensates(t *testing.T) {
	e := newEnv(t)
	id := e.register(t, "a@x.com").ID

	e.manager.identities.updateErr = errBoom
	_, err := e.assets.ReplaceProfileAsset(context.Background(), id, pngBytes)
	assert.ErrorIs(t, err, common.ErrAssetPersistFailed)

	assert.Equal(t, 0, e.store.Len(), "uploaded asset must be deleted again")
	assert.Equal(t, 1, countPrefix(e.ev.all(), "delete:"))

	orphans, err := e.manager.orphans.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	stored, err := e.ids.GetIdentity(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, stored.ProfileImage)
}

func TestReplaceProfileAsset_PersistAndCompensationFail(t *testing.T) {
	e := newEnv(t)
	id := e.register(t, "a@x.com").ID

	e.manager.identities.updateErr = errBoom
	e.store.deleteErr = errBoom
	_, err := e.assets.ReplaceProfileAsset(context.Background(), id, pngBytes)
	assert.ErrorIs(t, err, common.ErrAssetPersistFailed)

	orphans, err := e.manager.orphans.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, OrphanPersistFailed, orphans[0].Reason)
}

func TestReplaceProfileAsset_CleanupFailureIsNotFatal(t *testing.T) {
	e := newEnv(t)
	id := e.register(t, "a@x.com").ID

	first, err := e.assets.ReplaceProfileAsset(context.Background(), id, pngBytes)
	require.NoError(t, err)

	e.store.deleteErr = errBoom
	second, err := e.assets.ReplaceProfileAsset(context.Background(), id, pngBytes)
	require.NoError(t, err)
	assert.NotEqual(t, first.ProfileImage.AssetID, second.ProfileImage.AssetID)

	orphans, err := e.manager.orphans.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, first.ProfileImage.AssetID, orphans[0].AssetID)
	assert.Equal(t, OrphanReplaced, orphans[0].Reason)
}

func TestReplaceProfileAsset_Rejections(t *testing.T) {
	e := newEnv(t)
	id := e.register(t, "a@x.com").ID
	ctx := context.Background()

	_, err := e.assets.ReplaceProfileAsset(ctx, "7d3f4a1e-0000-4000-8000-000000000000", pngBytes)
	assert.ErrorIs(t, err, common.ErrIdentityNotFound)

	_, err = e.assets.ReplaceProfileAsset(ctx, "nope", pngBytes)
	assert.ErrorIs(t, err, common.ErrIdentityNotFound)

	// identity is checked before the payload
	_, err = e.assets.ReplaceProfileAsset(ctx, "nope", nil)
	assert.ErrorIs(t, err, common.ErrIdentityNotFound)

	_, err = e.assets.ReplaceProfileAsset(ctx, id, nil)
	assert.ErrorIs(t, err, common.ErrNoAssetProvided)

	_, err = e.assets.ReplaceProfileAsset(ctx, id, []byte("plain text, not an image"))
	assert.ErrorIs(t, err, common.ErrValidation)

	big := append(append([]byte(nil), pngBytes...), bytes.Repeat([]byte{0}, 2048)...)
	_, err = e.assets.ReplaceProfileAsset(ctx, id, big)
	assert.ErrorIs(t, err, common.ErrValidation)

	assert.Zero(t, countPrefix(e.ev.all(), "upload"))
}

func TestReplaceProfileAsset_CanceledCallerStillCleansUp(t *testing.T) {
	e := newEnv(t)
	id := e.register(t, "a@x.com").ID

	first, err := e.assets.ReplaceProfileAsset(context.Background(), id, pngBytes)
	require.NoError(t, err)

	e.manager.identities.updateErr = errBoom
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.assets.ReplaceProfileAsset(ctx, id, pngBytes)
	require.Error(t, err)

	// only the first asset survives
	assert.Equal(t, 1, e.store.Len())
	_, err = e.store.Get(first.ProfileImage.AssetID)
	assert.NoError(t, err)
}

func TestDeleteIdentity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.register(t, "a@x.com").ID

	got, err := e.assets.ReplaceProfileAsset(ctx, id, pngBytes)
	require.NoError(t, err)

	require.NoError(t, e.assets.DeleteIdentity(ctx, id))
	assert.Equal(t, 0, e.store.Len())
	assert.NotEqual(t, -1, indexOf(e.ev.all(), "delete:"+got.ProfileImage.AssetID))

	assert.ErrorIs(t, e.assets.DeleteIdentity(ctx, id), common.ErrIdentityNotFound)
	assert.ErrorIs(t, e.assets.DeleteIdentity(ctx, "bad"), common.ErrIdentityNotFound)
}

func TestSweepOrphans(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		require.NoError(t, e.manager.orphans.Record(ctx, id, OrphanReplaced))
	}

	e.store.deleteErr = errBoom
	report, err := e.assets.SweepOrphans(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, &SweepReport{Deleted: 0, Failed: 2}, report)

	e.store.deleteErr = nil
	report, err = e.assets.SweepOrphans(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, &SweepReport{Deleted: 2, Failed: 0}, report)

	left, err := e.manager.orphans.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, left)
}
