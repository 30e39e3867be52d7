package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/realmkeeper/internal/dbx"
	"github.com/dmitrijs2005/realmkeeper/internal/server/repositories/identities"
	"github.com/dmitrijs2005/realmkeeper/internal/server/repositories/orphans"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Identities(db dbx.DBTX) identities.Repository
	Orphans(db dbx.DBTX) orphans.Repository
}
