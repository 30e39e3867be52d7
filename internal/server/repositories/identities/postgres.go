package identities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/realmkeeper/internal/common"
	"github.com/dmitrijs2005/realmkeeper/internal/dbx"
	"github.com/dmitrijs2005/realmkeeper/internal/server/models"
)

const emailConstraint = "identities_email_key"

const identityColumns = `id, username, email, password_hash, profile_image_url, profile_image_asset_id, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner, extra ...any) (*models.Identity, error) {
	var (
		i       models.Identity
		url     sql.NullString
		assetID sql.NullString
	)

	dest := append([]any{&i.ID, &i.Username, &i.Email, &i.PasswordHash, &url, &assetID, &i.CreatedAt, &i.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	i.ProfileImage = assetRef(url, assetID)
	return &i, nil
}

func assetRef(url, assetID sql.NullString) *models.AssetReference {
	if !url.Valid || !assetID.Valid {
		return nil
	}
	return &models.AssetReference{URL: url.String, AssetID: assetID.String}
}

func (r *PostgresRepository) Create(ctx context.Context, username, email, passwordHash string) (*models.Identity, error) {

	query :=
		`INSERT INTO identities (username, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING ` + identityColumns

	identity, err := scanIdentity(r.db.QueryRowContext(ctx, query, username, email, passwordHash))
	if err != nil {
		if dbx.IsUniqueViolation(err, emailConstraint) {
			return nil, common.ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return identity, nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (*models.Identity, error) {
	identity, err := scanIdentity(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return identity, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return r.findOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = $1`, email)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	return r.findOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*models.Identity, error) {

	query := `SELECT ` + identityColumns + ` FROM identities ORDER BY created_at, id LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, u models.ProfileUpdate) (*models.Identity, error) {

	query :=
		`UPDATE identities
		 SET username = COALESCE(NULLIF($2, ''), username),
			email = COALESCE(NULLIF($3, ''), email),
			password_hash = COALESCE(NULLIF($4, ''), password_hash),
			updated_at = now()
		 WHERE id = $1
		 RETURNING ` + identityColumns

	identity, err := scanIdentity(r.db.QueryRowContext(ctx, query, id, u.Username, u.Email, u.PasswordHash))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrorNotFound
		case dbx.IsUniqueViolation(err, emailConstraint):
			return nil, common.ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return identity, nil
}

func (r *PostgresRepository) UpdateAssetReference(ctx context.Context, id string, ref *models.AssetReference) (*models.Identity, *models.AssetReference, error) {

	// prev is read under the same row lock the update takes, so concurrent
	// swaps each see exactly the value they overwrite.
	query :=
		`UPDATE identities AS i
		 SET profile_image_url = $2, profile_image_asset_id = $3, updated_at = now()
		 FROM (
			SELECT id, profile_image_url, profile_image_asset_id
			FROM identities WHERE id = $1 FOR UPDATE
		 ) AS prev
		 WHERE i.id = prev.id
		 RETURNING i.id, i.username, i.email, i.password_hash, i.profile_image_url, i.profile_image_asset_id,
			i.created_at, i.updated_at, prev.profile_image_url, prev.profile_image_asset_id`

	var url, assetID sql.NullString
	if ref != nil {
		url = sql.NullString{String: ref.URL, Valid: true}
		assetID = sql.NullString{String: ref.AssetID, Valid: true}
	}

	var prevURL, prevAssetID sql.NullString
	identity, err := scanIdentity(r.db.QueryRowContext(ctx, query, id, url, assetID), &prevURL, &prevAssetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, common.ErrorNotFound
		}
		return nil, nil, fmt.Errorf("db error: %w", err)
	}

	return identity, assetRef(prevURL, prevAssetID), nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (*models.AssetReference, bool, error) {

	query :=
		`DELETE FROM identities WHERE id = $1
		 RETURNING profile_image_url, profile_image_asset_id`

	var url, assetID sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(&url, &assetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("db error: %w", err)
	}

	return assetRef(url, assetID), true, nil
}
