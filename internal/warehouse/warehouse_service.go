package warehouse

import (
	"fleetd/internal/auditlog"
	"fleetd/internal/custody"
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

type custodyStore interface {
	InsertRecord(tx *goqu.TxDatabase, assetID int, holder models.Holder) (int, error)
	PersonExists(tx *goqu.TxDatabase, personID int) (bool, error)
	LocationExists(tx *goqu.TxDatabase, locationID int) (bool, error)
}

type auditWriter interface {
	Append(tx *goqu.TxDatabase, entry auditlog.Entry) (int, error)
}

type warehouseMover interface {
	MoveToWarehouse(assetID int, reason string, actorID int) error
}

// WarehouseService composes the lifecycle transition, custody change and
// audit event of a storage transfer into one atomic operation.
type WarehouseService struct {
	runner    repository.TxRunner
	locker    assetLocker
	assets    assetWriter
	custody   custodyStore
	audit     auditWriter
	lifecycle warehouseMover
	logger    *zap.Logger
}

func NewService(runner repository.TxRunner, locker assetLocker, assets assetWriter, custodyStore custodyStore, audit auditWriter, lifecycle warehouseMover, logger *zap.Logger) *WarehouseService {
	return &WarehouseService{
		runner:    runner,
		locker:    locker,
		assets:    assets,
		custody:   custodyStore,
		audit:     audit,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// SendToWarehouse moves an asset into storage. The lifecycle service
// already closes custody and appends WAREHOUSE_IN in one transaction.
func (s *WarehouseService) SendToWarehouse(assetID int, reason string, actorID int) error {
	return s.lifecycle.MoveToWarehouse(assetID, reason, actorID)
}

// AssignFromWarehouse returns a stored asset to service with a new holder.
// Fails with ConflictError unless the asset is currently warehoused.
func (s *WarehouseService) AssignFromWarehouse(assetID int, holder models.Holder, reason string, actorID int) error {
	err := s.runner.WithTx(func(tx *goqu.TxDatabase) error {
		row, err := s.locker.LockAsset(tx, assetID)
		if err != nil {
			return err
		}
		if row.DeletedAt != nil {
			return apperrors.NewNotFound("asset %d not found", assetID)
		}

		assetType := models.AssetType(row.Type)
		status := models.LifecycleState(row.Status)

		if status != models.StateWarehouse {
			return apperrors.NewConflict("asset %d is not in the warehouse (current state: %s)", assetID, status)
		}

		if err := custody.ValidateHolderPolicy(assetType, holder); err != nil {
			return err
		}

		if holder.PersonID != nil {
			exists, err := s.custody.PersonExists(tx, *holder.PersonID)
			if err != nil {
				return err
			}
			if !exists {
				return apperrors.NewNotFound("person %d not found", *holder.PersonID)
			}
		}
		exists, err := s.custody.LocationExists(tx, holder.LocationID)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.NewNotFound("location %d not found", holder.LocationID)
		}

		if _, err := s.custody.InsertRecord(tx, assetID, holder); err != nil {
			return err
		}

		if err := s.assets.UpdateStatus(tx, assetID, models.StateActive); err != nil {
			return err
		}

		var reasonPtr *string
		if reason != "" {
			reasonPtr = &reason
		}

		_, err = s.audit.Append(tx, auditlog.Entry{
			AssetID:    assetID,
			AssetType:  assetType,
			Action:     models.ActionWarehouseOut,
			ActorID:    &actorID,
			PersonID:   holder.PersonID,
			LocationID: &holder.LocationID,
			Reason:     reasonPtr,
			Before:     map[string]any{"status": string(models.StateWarehouse)},
			After:      map[string]any{"status": string(models.StateActive)},
		})
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("asset assigned from warehouse",
		zap.Int("asset_id", assetID),
		zap.Int("location_id", holder.LocationID),
	)
	return nil
}
