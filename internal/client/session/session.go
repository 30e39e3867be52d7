// Package session keeps the client's per-realm authentication state: the
// last issued token and the profile it was issued for. State survives
// restarts through the local metadata table and realms never share it.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/realmkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/realmkeeper/internal/dbx"
)

type Realm string

const (
	RealmUser  Realm = "user"
	RealmAdmin Realm = "admin"
)

func (r Realm) tokenKey() string   { return string(r) + ".token" }
func (r Realm) profileKey() string { return string(r) + ".profile" }

// state is what is kept for one realm. An empty token means signed out.
type state struct {
	token   string
	profile json.RawMessage
}

type Session struct {
	db      *sql.DB
	newRepo func(dbx.DBTX) metadata.Repository

	mu     sync.RWMutex
	states map[Realm]state
}

func New(db *sql.DB) *Session {
	return &Session{
		db: db,
		newRepo: func(db dbx.DBTX) metadata.Repository {
			return metadata.NewSQLiteRepository(db)
		},
		states: make(map[Realm]state),
	}
}

// Restore reloads every realm from the database, dropping whatever was held
// in memory.
func (s *Session) Restore(ctx context.Context) error {
	repo := s.newRepo(s.db)

	states := make(map[Realm]state)
	for _, realm := range []Realm{RealmUser, RealmAdmin} {
		records, err := repo.List(ctx, string(realm)+".")
		if err != nil {
			return fmt.Errorf("restore %s session: %w", realm, err)
		}

		token := records[realm.tokenKey()]
		if token == "" {
			continue
		}
		states[realm] = state{token: token, profile: json.RawMessage(records[realm.profileKey()])}
	}

	s.mu.Lock()
	s.states = states
	s.mu.Unlock()
	return nil
}

// Save stores token and profile for realm. Both are written in one
// transaction.
func (s *Session) Save(ctx context.Context, realm Realm, token string, profile any) error {
	if token == "" {
		return fmt.Errorf("save %s session: empty token", realm)
	}

	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode %s profile: %w", realm, err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.newRepo(tx)
		if err := repo.Set(ctx, realm.tokenKey(), token); err != nil {
			return err
		}
		return repo.Set(ctx, realm.profileKey(), string(raw))
	})
	if err != nil {
		return fmt.Errorf("save %s session: %w", realm, err)
	}

	s.mu.Lock()
	s.states[realm] = state{token: token, profile: raw}
	s.mu.Unlock()
	return nil
}

// Invalidate forgets realm, both in memory and on disk.
func (s *Session) Invalidate(ctx context.Context, realm Realm) error {
	s.mu.Lock()
	delete(s.states, realm)
	s.mu.Unlock()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.newRepo(tx).Delete(ctx, realm.tokenKey(), realm.profileKey())
	})
	if err != nil {
		return fmt.Errorf("invalidate %s session: %w", realm, err)
	}
	return nil
}

// IsAuthenticated reports whether a token is held for realm. Expiry is left
// to the server.
func (s *Session) IsAuthenticated(realm Realm) bool {
	return s.Token(realm) != ""
}

func (s *Session) Token(realm Realm) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[realm].token
}

// Profile decodes the stored profile for realm into v. It returns false when
// the realm is signed out.
func (s *Session) Profile(realm Realm, v any) (bool, error) {
	s.mu.RLock()
	st, ok := s.states[realm]
	s.mu.RUnlock()

	if !ok || len(st.profile) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(st.profile, v); err != nil {
		return false, fmt.Errorf("decode %s profile: %w", realm, err)
	}
	return true, nil
}
