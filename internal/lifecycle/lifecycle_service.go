package lifecycle

import (
	"fleetd/internal/auditlog"
	"fleetd/internal/repository"
	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"
)

type assetLocker interface {
	LockAsset(tx *goqu.TxDatabase, assetID int) (*models.FlatAssetRecord, error)
}

type assetWriter interface {
	UpdateStatus(tx *goqu.TxDatabase, assetID int, status models.LifecycleState) error
}

type custodyCloser interface {
	CloseActiveRecords(tx *goqu.TxDatabase, assetID int) (int, error)
}

type auditWriter interface {
	Append(tx *goqu.TxDatabase, entry auditlog.Entry) (int, error)
}

type LifecycleService struct {
	runner  repository.TxRunner
	locker  assetLocker
	assets  assetWriter
	custody custodyCloser
	audit   auditWriter
	logger  *zap.Logger
}

func NewService(runner repository.TxRunner, locker assetLocker, assets assetWriter, custody custodyCloser, audit auditWriter, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{
		runner:  runner,
		locker:  locker,
		assets:  assets,
		custody: custody,
		audit:   audit,
		logger:  logger,
	}
}

// MoveToWarehouse sends the asset to storage: the state flips to
// warehouse, all active custody closes, and a WAREHOUSE_IN event is
// appended, all in one transaction.
func (s *LifecycleService) MoveToWarehouse(assetID int, reason string, actorID int) error {
	if reason == "" {
		reason = "moved to warehouse"
	}

	err := s.runner.WithTx(func(tx *goqu.TxDatabase) error {
		row, err := s.locker.LockAsset(tx, assetID)
		if err != nil {
			return err
		}
		if row.DeletedAt != nil {
			return apperrors.NewNotFound("asset %d not found", assetID)
		}

		status := models.LifecycleState(row.Status)
		if err := Transition(status, models.StateWarehouse); err != nil {
			return err
		}

		if _, err := s.custody.CloseActiveRecords(tx, assetID); err != nil {
			return err
		}

		if err := s.assets.UpdateStatus(tx, assetID, models.StateWarehouse); err != nil {
			return err
		}

		_, err = s.audit.Append(tx, auditlog.Entry{
			AssetID:   assetID,
			AssetType: models.AssetType(row.Type),
			Action:    models.ActionWarehouseIn,
			ActorID:   &actorID,
			Reason:    &reason,
			Before:    map[string]any{"status": string(status)},
			After:     map[string]any{"status": string(models.StateWarehouse)},
		})
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("asset moved to warehouse", zap.Int("asset_id", assetID))
	return nil
}

// Retire decommissions the asset permanently. All active custody closes
// and no transition out of retired exists.
func (s *LifecycleService) Retire(assetID int, reason string, actorID int) error {
	err := s.runner.WithTx(func(tx *goqu.TxDatabase) error {
		row, err := s.locker.LockAsset(tx, assetID)
		if err != nil {
			return err
		}
		if row.DeletedAt != nil {
			return apperrors.NewNotFound("asset %d not found", assetID)
		}

		status := models.LifecycleState(row.Status)
		if err := Transition(status, models.StateRetired); err != nil {
			return err
		}

		if _, err := s.custody.CloseActiveRecords(tx, assetID); err != nil {
			return err
		}

		if err := s.assets.UpdateStatus(tx, assetID, models.StateRetired); err != nil {
			return err
		}

		var reasonPtr *string
		if reason != "" {
			reasonPtr = &reason
		}

		_, err = s.audit.Append(tx, auditlog.Entry{
			AssetID:   assetID,
			AssetType: models.AssetType(row.Type),
			Action:    models.ActionRetire,
			ActorID:   &actorID,
			Reason:    reasonPtr,
			Before:    map[string]any{"status": string(status)},
			After:     map[string]any{"status": string(models.StateRetired)},
		})
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("asset retired", zap.Int("asset_id", assetID))
	return nil
}
