package session

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/realmkeeper/internal/client/client"
	"github.com/dmitrijs2005/realmkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.OpenDatabase(context.Background(), filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveRestore(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	s := New(db)
	require.NoError(t, s.Restore(ctx))
	assert.False(t, s.IsAuthenticated(RealmUser))
	assert.False(t, s.IsAuthenticated(RealmAdmin))

	profile := models.Profile{ID: "u1", Username: "alice12", Email: "a@x.com"}
	require.NoError(t, s.Save(ctx, RealmUser, "user-token", profile))
	assert.True(t, s.IsAuthenticated(RealmUser))
	assert.False(t, s.IsAuthenticated(RealmAdmin))

	restored := New(db)
	require.NoError(t, restored.Restore(ctx))
	assert.Equal(t, "user-token", restored.Token(RealmUser))

	var got models.Profile
	ok, err := restored.Profile(RealmUser, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, profile, got)
}

func TestRealmsAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	s := New(db)

	require.NoError(t, s.Save(ctx, RealmUser, "user-token", models.Profile{ID: "u1"}))
	require.NoError(t, s.Save(ctx, RealmAdmin, "admin-token", models.Admin{Email: "admin@example.com"}))

	require.NoError(t, s.Invalidate(ctx, RealmAdmin))
	assert.False(t, s.IsAuthenticated(RealmAdmin))
	assert.Equal(t, "user-token", s.Token(RealmUser))

	var admin models.Admin
	ok, err := s.Profile(RealmAdmin, &admin)
	require.NoError(t, err)
	assert.False(t, ok)

	restored := New(db)
	require.NoError(t, restored.Restore(ctx))
	assert.True(t, restored.IsAuthenticated(RealmUser))
	assert.False(t, restored.IsAuthenticated(RealmAdmin))
}

func TestSave_Overwrites(t *testing.T) {
	ctx := context.Background()
	s := New(openDB(t))

	require.NoError(t, s.Save(ctx, RealmUser, "first", models.Profile{ID: "u1"}))
	require.NoError(t, s.Save(ctx, RealmUser, "second", models.Profile{ID: "u1", ProfileImage: "https://cdn/x"}))

	var p models.Profile
	_, err := s.Profile(RealmUser, &p)
	require.NoError(t, err)
	assert.Equal(t, "second", s.Token(RealmUser))
	assert.Equal(t, "https://cdn/x", p.ProfileImage)
}

func TestSave_RejectsEmptyToken(t *testing.T) {
	s := New(openDB(t))
	assert.Error(t, s.Save(context.Background(), RealmUser, "", nil))
	assert.False(t, s.IsAuthenticated(RealmUser))
}

func TestInvalidate_SignedOutRealmIsNoop(t *testing.T) {
	s := New(openDB(t))
	require.NoError(t, s.Invalidate(context.Background(), RealmUser))
}

func TestSave_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO metadata`)).
		WithArgs("user.token", "tok").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO metadata`)).
		WithArgs("user.profile", `{"id":"u1","username":"","email":"","profileImage":""}`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	s := New(db)
	err = s.Save(context.Background(), RealmUser, "tok", models.Profile{ID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, s.IsAuthenticated(RealmUser))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidate_ClearsMemoryEvenIfDiskFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO metadata`)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO metadata`)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectBegin().WillReturnError(errors.New("locked"))

	s := New(db)
	require.NoError(t, s.Save(context.Background(), RealmAdmin, "adm", models.Admin{Email: "admin@example.com"}))

	err = s.Invalidate(context.Background(), RealmAdmin)
	require.Error(t, err)
	assert.False(t, s.IsAuthenticated(RealmAdmin))
	require.NoError(t, mock.ExpectationsWereMet())
}
