package dbx_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/realmkeeper/internal/client/client"
	"github.com/dmitrijs2005/realmkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/realmkeeper/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saveSession writes a token and a profile through one transaction, the way
// the client session stores a realm.
func saveSession(ctx context.Context, tx dbx.DBTX, token, profile string, fail error) error {
	repo := metadata.NewSQLiteRepository(tx)
	if err := repo.Set(ctx, "user.token", token); err != nil {
		return err
	}
	if err := repo.Set(ctx, "user.profile", profile); err != nil {
		return err
	}
	return fail
}

func TestWithTx_MetadataRepositoryBoundToTx(t *testing.T) {
	ctx := context.Background()
	db, err := client.OpenDatabase(ctx, filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := metadata.NewSQLiteRepository(db)

	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return saveSession(ctx, tx, "tok-1", `{"id":"u1"}`, nil)
	})
	require.NoError(t, err)

	got, err := repo.List(ctx, "user.")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"user.token": "tok-1", "user.profile": `{"id":"u1"}`}, got)

	boom := errors.New("encode failed")
	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return saveSession(ctx, tx, "tok-2", `{"id":"u2"}`, boom)
	})
	require.ErrorIs(t, err, boom)

	got, err = repo.List(ctx, "user.")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got["user.token"], "both writes roll back together")
	assert.Equal(t, `{"id":"u1"}`, got["user.profile"])

	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Delete(ctx, "user.token", "user.profile")
	})
	require.NoError(t, err)

	_, ok, err := repo.Get(ctx, "user.token")
	require.NoError(t, err)
	assert.False(t, ok)
}
