package orphans

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestRecord(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+orphaned_assets\s*\(asset_id,\s*reason\)\s*VALUES\s*\(\$1,\s*\$2\)\s*ON\s+CONFLICT\s*\(asset_id\)`
	mock.ExpectExec(q).WithArgs("profile_images/a", "cleanup failed").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("profile_images/b", "x").WillReturnError(errors.New("db down"))

	if err := repo.Record(context.Background(), "profile_images/a", "cleanup failed"); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if err := repo.Record(context.Background(), "profile_images/b", "x"); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"asset_id", "reason", "created_at"}).
		AddRow("a", "r1", now).
		AddRow("b", "r2", now)
	mock.ExpectQuery(`(?s)^SELECT\s+asset_id,\s*reason,\s*created_at\s+FROM\s+orphaned_assets.*LIMIT\s+\$1`).
		WithArgs(10).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 2 || got[0].AssetID != "a" || got[1].Reason != "r2" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestList_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+orphaned_assets`).WillReturnError(errors.New("boom"))

	if _, err := repo.List(context.Background(), 10); err == nil {
		t.Fatal("expected error")
	}
}

func TestList_ScanError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"asset_id", "reason", "created_at"}).AddRow("a", "r", "not-a-time")
	mock.ExpectQuery(`FROM\s+orphaned_assets`).WillReturnRows(rows)

	if _, err := repo.List(context.Background(), 10); err == nil {
		t.Fatal("expected scan error")
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `^DELETE\s+FROM\s+orphaned_assets\s+WHERE\s+asset_id\s*=\s*\$1$`
	mock.ExpectExec(q).WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("b").WillReturnError(errors.New("db err"))

	if err := repo.Delete(context.Background(), "a"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Delete(context.Background(), "b"); err == nil {
		t.Fatal("expected error")
	}
}
