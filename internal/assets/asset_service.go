package assets

import (
	"fleetd/internal/auditlog"
	"fleetd/internal/repository"
	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"
)

type assetStore interface {
	InsertAsset(tx *goqu.TxDatabase, assetType models.AssetType, status models.LifecycleState, serial, assetTag string, attrs map[string]any) (int, error)
	GetAssetRow(assetID int) (*models.FlatAssetRecord, error)
	ListAssets(filter models.AssetFilter) ([]models.Asset, error)
	UpdateAttrs(tx *goqu.TxDatabase, assetID int, current map[string]any, changes map[string]any) error
	MarkDeleted(tx *goqu.TxDatabase, assetID int) error
	StampMaintenance(tx *goqu.TxDatabase, assetID int) error
}

type auditWriter interface {
	Append(tx *goqu.TxDatabase, entry auditlog.Entry) (int, error)
}

type assetLocker interface {
	LockAsset(tx *goqu.TxDatabase, assetID int) (*models.FlatAssetRecord, error)
}

type custodyReader interface {
	GetActiveByAsset(assetID int) ([]models.CustodyRecord, error)
}

type historyReader interface {
	GetByAsset(assetID int) ([]models.AuditEvent, error)
}

type AssetService struct {
	runner  repository.TxRunner
	locker  assetLocker
	store   assetStore
	audit   auditWriter
	custody custodyReader
	history historyReader
	logger  *zap.Logger
}

func NewService(runner repository.TxRunner, locker assetLocker, store assetStore, audit auditWriter, custody custodyReader, history historyReader, logger *zap.Logger) *AssetService {
	return &AssetService{
		runner:  runner,
		locker:  locker,
		store:   store,
		audit:   audit,
		custody: custody,
		history: history,
		logger:  logger,
	}
}

type CreateAssetRequest struct {
	Type     string         `json:"type" binding:"required"`
	Status   string         `json:"status"`
	Serial   string         `json:"serial" binding:"required"`
	AssetTag string         `json:"asset_tag"`
	Attrs    map[string]any `json:"attrs"`
}

// Create registers a new asset and its CREATE audit event in one
// transaction.
func (s *AssetService) Create(req CreateAssetRequest, actorID int) (*models.Asset, error) {
	assetType, err := models.NewAssetType(req.Type)
	if err != nil {
		return nil, apperrors.NewValidation("%v", err)
	}

	status := models.StateActive
	if req.Status != "" {
		status, err = models.NewLifecycleState(req.Status)
		if err != nil {
			return nil, apperrors.NewValidation("%v", err)
		}
	}
	if status == models.StateRetired {
		return nil, apperrors.NewValidation("asset cannot be created as retired")
	}

	if req.Serial == "" {
		return nil, apperrors.NewValidation("serial is required")
	}

	attrs := req.Attrs
	if attrs == nil {
		attrs = map[string]any{}
	}
	if err := ValidateAttrs(assetType, attrs); err != nil {
		return nil, err
	}

	var assetID int
	err = s.runner.WithTx(func(tx *goqu.TxDatabase) error {
		var txErr error
		assetID, txErr = s.store.InsertAsset(tx, assetType, status, req.Serial, req.AssetTag, attrs)
		if txErr != nil {
			return txErr
		}

		_, txErr = s.audit.Append(tx, auditlog.Entry{
			AssetID:   assetID,
			AssetType: assetType,
			Action:    models.ActionCreate,
			ActorID:   &actorID,
			After: map[string]any{
				"status":    string(status),
				"serial":    req.Serial,
				"asset_tag": req.AssetTag,
			},
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("asset created",
		zap.Int("asset_id", assetID),
		zap.String("type", string(assetType)),
		zap.String("serial", req.Serial),
	)

	row, err := s.store.GetAssetRow(assetID)
	if err != nil {
		return nil, err
	}
	asset, err := row.TransformToAsset()
	if err != nil {
		return nil, err
	}

	return &asset, nil
}

// Get returns the asset with its active custody and full history.
func (s *AssetService) Get(assetID int) (*models.Asset, error) {
	row, err := s.store.GetAssetRow(assetID)
	if err != nil {
		return nil, err
	}

	asset, err := row.TransformToAsset()
	if err != nil {
		return nil, err
	}

	asset.Custody, err = s.custody.GetActiveByAsset(assetID)
	if err != nil {
		return nil, err
	}

	asset.History, err = s.history.GetByAsset(assetID)
	if err != nil {
		return nil, err
	}

	return &asset, nil
}

func (s *AssetService) List(filter models.AssetFilter) ([]models.Asset, error) {
	if filter.Type != "" && !models.AssetType(filter.Type).IsValid() {
		return nil, apperrors.NewValidation("invalid asset type: %s", filter.Type)
	}
	if filter.Status != "" && !models.LifecycleState(filter.Status).IsValid() {
		return nil, apperrors.NewValidation("invalid lifecycle state: %s", filter.Status)
	}

	return s.store.ListAssets(filter)
}

// Update applies a partial attribute change through the type's allow-list.
// Attributes outside the allow-list are dropped without error.
func (s *AssetService) Update(assetID int, partial map[string]any) error {
	return s.runner.WithTx(func(tx *goqu.TxDatabase) error {
		row, err := s.locker.LockAsset(tx, assetID)
		if err != nil {
			return err
		}
		if row.DeletedAt != nil {
			return apperrors.NewNotFound("asset %d not found", assetID)
		}

		asset, err := row.TransformToAsset()
		if err != nil {
			return err
		}

		changes := FilterMutable(asset.Type, partial)
		if len(changes) == 0 {
			return nil
		}

		return s.store.UpdateAttrs(tx, assetID, asset.Attrs, changes)
	})
}

// SoftDelete hides the asset from default listings. Idempotent; the
// lifecycle state is left untouched.
func (s *AssetService) SoftDelete(assetID int) error {
	return s.runner.WithTx(func(tx *goqu.TxDatabase) error {
		if _, err := s.locker.LockAsset(tx, assetID); err != nil {
			return err
		}
		return s.store.MarkDeleted(tx, assetID)
	})
}

// RecordMaintenance stamps last_maintenance and appends a MAINTENANCE
// event.
func (s *AssetService) RecordMaintenance(assetID int, reason string, actorID int) error {
	return s.runner.WithTx(func(tx *goqu.TxDatabase) error {
		row, err := s.locker.LockAsset(tx, assetID)
		if err != nil {
			return err
		}
		if row.DeletedAt != nil {
			return apperrors.NewNotFound("asset %d not found", assetID)
		}
		if models.LifecycleState(row.Status) == models.StateRetired {
			return apperrors.NewInvalidState("asset %d is retired", assetID)
		}

		if err := s.store.StampMaintenance(tx, assetID); err != nil {
			return err
		}

		var reasonPtr *string
		if reason != "" {
			reasonPtr = &reason
		}

		_, err = s.audit.Append(tx, auditlog.Entry{
			AssetID:   assetID,
			AssetType: models.AssetType(row.Type),
			Action:    models.ActionMaintenance,
			ActorID:   &actorID,
			Reason:    reasonPtr,
		})
		return err
	})
}
