package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/realmkeeper/internal/common"
	"github.com/dmitrijs2005/realmkeeper/internal/logging"
	"github.com/dmitrijs2005/realmkeeper/internal/server/assets"
	"github.com/dmitrijs2005/realmkeeper/internal/server/models"
	"github.com/dmitrijs2005/realmkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Ledger reasons for orphaned assets.
const (
	OrphanPersistFailed   = "persist_failed"
	OrphanReplaced        = "replaced"
	OrphanIdentityDeleted = "identity_deleted"
)

type AssetOptions struct {
	Folder         string
	MaxUploadBytes int64
	// Timeout bounds each call to the asset store.
	Timeout time.Duration
}

// SweepReport summarizes one pass over the orphan ledger.
type SweepReport struct {
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// AssetService keeps the identity's profile image reference and the external
// asset store consistent. The reference only ever points at an asset that
// finished uploading; assets that could not be deleted go to the orphan
// ledger for a later sweep.
type AssetService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       assets.Store
	opts        AssetOptions
	logger      logging.Logger
}

func NewAssetService(db *sql.DB, m repomanager.RepositoryManager, store assets.Store, opts AssetOptions, l logging.Logger) *AssetService {
	if opts.Folder == "" {
		opts.Folder = common.DefaultAssetFolder
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &AssetService{
		db:          db,
		repomanager: m,
		store:       store,
		opts:        opts,
		logger:      l.With("module", "asset_service"),
	}
}

// ReplaceProfileAsset uploads data and points the identity at it. The
// previous asset, if any, is deleted only after the new reference is stored.
func (s *AssetService) ReplaceProfileAsset(ctx context.Context, identityID string, data []byte) (*models.Identity, error) {
	repo := s.repomanager.Identities(s.db)

	if _, err := uuid.Parse(identityID); err != nil {
		return nil, common.ErrIdentityNotFound
	}
	if _, err := repo.FindByID(ctx, identityID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrIdentityNotFound
		}
		return nil, internalError("find identity", err)
	}

	if len(data) == 0 {
		return nil, common.ErrNoAssetProvided
	}
	contentType, err := s.checkPayload(data)
	if err != nil {
		return nil, err
	}

	uctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	ref, err := s.store.Upload(uctx, data, s.opts.Folder, contentType)
	cancel()
	if err != nil {
		s.logger.Error(ctx, "asset upload failed", "id", identityID, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrAssetUploadFailed, err)
	}

	updated, prev, err := repo.UpdateAssetReference(ctx, identityID, ref)
	if err != nil {
		s.discard(ctx, ref.AssetID, OrphanPersistFailed)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrIdentityNotFound
		}
		s.logger.Error(ctx, "asset reference persist failed", "id", identityID, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrAssetPersistFailed, err)
	}

	if prev != nil && prev.AssetID != ref.AssetID {
		s.discard(ctx, prev.AssetID, OrphanReplaced)
	}

	s.logger.Info(ctx, "profile asset replaced", "id", identityID, "asset_id", ref.AssetID)

	return updated, nil
}

func (s *AssetService) checkPayload(data []byte) (string, error) {
	if int64(len(data)) > s.opts.MaxUploadBytes && s.opts.MaxUploadBytes > 0 {
		return "", fmt.Errorf("%w: image exceeds %d bytes", common.ErrValidation, s.opts.MaxUploadBytes)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: unsupported content type %q", common.ErrValidation, contentType)
	}

	return contentType, nil
}

// discard deletes assetID from the store, recording it in the orphan ledger
// when that fails. It never returns an error: by the time it runs the
// caller's operation has already succeeded or already failed for another
// reason.
func (s *AssetService) discard(ctx context.Context, assetID, reason string) {
	// cleanup must outlive a caller that has gone away
	ctx = context.WithoutCancel(ctx)

	dctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	err := s.store.Delete(dctx, assetID)
	cancel()
	if err == nil {
		return
	}

	s.logger.Warn(ctx, common.ErrAssetCleanupFailed.Error(), "asset_id", assetID, "reason", reason, "error", err)

	if err := s.repomanager.Orphans(s.db).Record(ctx, assetID, reason); err != nil {
		s.logger.Error(ctx, "orphan ledger write failed", "asset_id", assetID, "error", err)
	}
}

// DeleteIdentity removes the identity and then, best effort, its asset.
func (s *AssetService) DeleteIdentity(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrIdentityNotFound
	}

	ref, ok, err := s.repomanager.Identities(s.db).Delete(ctx, id)
	if err != nil {
		return internalError("delete identity", err)
	}
	if !ok {
		return common.ErrIdentityNotFound
	}

	if ref != nil {
		s.discard(ctx, ref.AssetID, OrphanIdentityDeleted)
	}

	s.logger.Info(ctx, "identity deleted", "id", id)
	return nil
}

// SweepOrphans retries deletion of up to limit ledger entries and drops the
// ones that succeed.
func (s *AssetService) SweepOrphans(ctx context.Context, limit int) (*SweepReport, error) {
	ledger := s.repomanager.Orphans(s.db)

	items, err := ledger.List(ctx, limit)
	if err != nil {
		return nil, internalError("list orphans", err)
	}

	report := &SweepReport{}
	for _, item := range items {
		dctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
		err := s.store.Delete(dctx, item.AssetID)
		cancel()
		if err != nil {
			report.Failed++
			s.logger.Warn(ctx, "orphan delete failed", "asset_id", item.AssetID, "error", err)
			continue
		}

		if err := ledger.Delete(ctx, item.AssetID); err != nil {
			return report, fmt.Errorf("drop orphan %s: %w", item.AssetID, err)
		}
		report.Deleted++
	}

	s.logger.Info(ctx, "orphan sweep finished", "deleted", report.Deleted, "failed", report.Failed)
	return report, nil
}
