// Package memory provides process-local repositories for running the server
// without PostgreSQL and for tests.
package memory

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/realmkeeper/internal/dbx"
	"github.com/dmitrijs2005/realmkeeper/internal/server/repositories/identities"
	"github.com/dmitrijs2005/realmkeeper/internal/server/repositories/orphans"
)

// RepositoryManager ignores the DBTX handed to it; all state lives in the
// shared repositories.
type RepositoryManager struct {
	identities *IdentityRepository
	orphans    *OrphanRepository
}

func NewRepositoryManager() *RepositoryManager {
	return &RepositoryManager{
		identities: NewIdentityRepository(),
		orphans:    NewOrphanRepository(),
	}
}

func (m *RepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *RepositoryManager) Identities(dbx.DBTX) identities.Repository {
	return m.identities
}

func (m *RepositoryManager) Orphans(dbx.DBTX) orphans.Repository {
	return m.orphans
}
