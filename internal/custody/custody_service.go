package custody

import (
	"fleetd/internal/auditlog"
	"fleetd/internal/repository"
	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"
)

type custodyStore interface {
	GetActiveRecordsTx(tx *goqu.TxDatabase, assetID int) ([]models.CustodyRecord, error)
	CloseActiveRecords(tx *goqu.TxDatabase, assetID int) (int, error)
	CloseActiveRecordForPerson(tx *goqu.TxDatabase, assetID, personID int) (int, error)
	InsertRecord(tx *goqu.TxDatabase, assetID int, holder models.Holder) (int, error)
	PersonExists(tx *goqu.TxDatabase, personID int) (bool, error)
	LocationExists(tx *goqu.TxDatabase, locationID int) (bool, error)
}

type assetLocker interface {
	LockAsset(tx *goqu.TxDatabase, assetID int) (*models.FlatAssetRecord, error)
}

type assetWriter interface {
	UpdateStatus(tx *goqu.TxDatabase, assetID int, status models.LifecycleState) error
}

type auditWriter interface {
	Append(tx *goqu.TxDatabase, entry auditlog.Entry) (int, error)
}

// CustodyService owns the single-holder invariant: outside radios, at most
// one custody record is active per asset, enforced by closing before
// opening inside one locked transaction.
type CustodyService struct {
	runner repository.TxRunner
	locker assetLocker
	store  custodyStore
	assets assetWriter
	audit  auditWriter
	logger *zap.Logger
}

func NewService(runner repository.TxRunner, locker assetLocker, store custodyStore, assets assetWriter, audit auditWriter, logger *zap.Logger) *CustodyService {
	return &CustodyService{
		runner: runner,
		locker: locker,
		store:  store,
		assets: assets,
		audit:  audit,
		logger: logger,
	}
}

// Assign opens a custody record for the holder. For non-radio types any
// existing active record is closed first. Assigning a warehoused asset
// returns it to service as part of the same transaction.
func (s *CustodyService) Assign(assetID int, holder models.Holder, actorID int) error {
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

		if status == models.StateRetired {
			return apperrors.NewInvalidState("asset %d is retired", assetID)
		}

		if err := ValidateHolderPolicy(assetType, holder); err != nil {
			return err
		}

		if holder.PersonID != nil {
			exists, err := s.store.PersonExists(tx, *holder.PersonID)
			if err != nil {
				return err
			}
			if !exists {
				return apperrors.NewNotFound("person %d not found", *holder.PersonID)
			}
		}
		exists, err := s.store.LocationExists(tx, holder.LocationID)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.NewNotFound("location %d not found", holder.LocationID)
		}

		if !assetType.MultiHolder() {
			if _, err := s.store.CloseActiveRecords(tx, assetID); err != nil {
				return err
			}
		}

		if _, err := s.store.InsertRecord(tx, assetID, holder); err != nil {
			return err
		}

		after := map[string]any{"status": string(status)}
		if status == models.StateWarehouse {
			if err := s.assets.UpdateStatus(tx, assetID, models.StateActive); err != nil {
				return err
			}
			after["status"] = string(models.StateActive)
		}

		_, err = s.audit.Append(tx, auditlog.Entry{
			AssetID:    assetID,
			AssetType:  assetType,
			Action:     models.ActionAssign,
			ActorID:    &actorID,
			PersonID:   holder.PersonID,
			LocationID: &holder.LocationID,
			Before:     map[string]any{"status": string(status)},
			After:      after,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("asset assigned",
		zap.Int("asset_id", assetID),
		zap.Int("location_id", holder.LocationID),
	)
	return nil
}

// Unassign closes active custody. Radios with several active records need
// the holder named; for every other type the single active record closes
// unconditionally.
func (s *CustodyService) Unassign(assetID int, personID *int, actorID int) error {
	err := s.runner.WithTx(func(tx *goqu.TxDatabase) error {
		row, err := s.locker.LockAsset(tx, assetID)
		if err != nil {
			return err
		}
		if row.DeletedAt != nil {
			return apperrors.NewNotFound("asset %d not found", assetID)
		}

		assetType := models.AssetType(row.Type)

		active, err := s.store.GetActiveRecordsTx(tx, assetID)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			return apperrors.NewNotFound("asset %d has no active custody", assetID)
		}

		if assetType.MultiHolder() && len(active) > 1 && personID == nil {
			return apperrors.NewValidation("asset %d has %d active holders, person_id is required", assetID, len(active))
		}

		var closedPersonID *int
		var closedLocationID *int
		if personID != nil {
			closed, err := s.store.CloseActiveRecordForPerson(tx, assetID, *personID)
			if err != nil {
				return err
			}
			if closed == 0 {
				return apperrors.NewNotFound("person %d holds no active custody of asset %d", *personID, assetID)
			}
			closedPersonID = personID
			for _, record := range active {
				if record.PersonID != nil && *record.PersonID == *personID {
					locationID := record.LocationID
					closedLocationID = &locationID
					break
				}
			}
		} else {
			if _, err := s.store.CloseActiveRecords(tx, assetID); err != nil {
				return err
			}
			closedPersonID = active[0].PersonID
			locationID := active[0].LocationID
			closedLocationID = &locationID
		}

		_, err = s.audit.Append(tx, auditlog.Entry{
			AssetID:    assetID,
			AssetType:  assetType,
			Action:     models.ActionReturn,
			ActorID:    &actorID,
			PersonID:   closedPersonID,
			LocationID: closedLocationID,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("asset unassigned", zap.Int("asset_id", assetID))
	return nil
}
