package custody

import (
	"fleetd/internal/repository"
	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type CustodyRepository struct {
	Repository *repository.Repository
}

func NewRepository(r *repository.Repository) *CustodyRepository {
	return &CustodyRepository{Repository: r}
}

// GetActiveRecordsTx reads the active custody records inside the caller's
// transaction. The asset row lock already serializes concurrent writers.
func (r *CustodyRepository) GetActiveRecordsTx(tx *goqu.TxDatabase, assetID int) ([]models.CustodyRecord, error) {
	var records []models.CustodyRecord

	query := tx.Select(
		goqu.I("id").As("custody_id"),
		goqu.I("asset_id"),
		goqu.I("holder_kind"),
		goqu.I("person_id"),
		goqu.I("location_id"),
		goqu.I("assigned_at"),
		goqu.I("returned_at"),
		goqu.I("active"),
	).
		From("custody_records").
		Where(goqu.Ex{"asset_id": assetID, "active": true}).
		Order(goqu.I("assigned_at").Asc())

	if err := query.Executor().ScanStructs(&records); err != nil {
		return nil, apperrors.NewStorage(err, "failed to read custody records")
	}

	return records, nil
}

// CloseActiveRecords closes every active record for the asset and returns
// how many were closed.
func (r *CustodyRepository) CloseActiveRecords(tx *goqu.TxDatabase, assetID int) (int, error) {
	result, err := tx.Update("custody_records").
		Set(goqu.Record{
			"active":      false,
			"returned_at": goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"asset_id": assetID, "active": true}).
		Executor().
		Exec()
	if err != nil {
		return 0, apperrors.NewStorage(err, "failed to close custody records")
	}

	closed, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewStorage(err, "failed to read closed custody count")
	}

	return int(closed), nil
}

// CloseActiveRecordForPerson closes the active record held by one person.
// Needed for radios, where several records may be active at once.
func (r *CustodyRepository) CloseActiveRecordForPerson(tx *goqu.TxDatabase, assetID, personID int) (int, error) {
	result, err := tx.Update("custody_records").
		Set(goqu.Record{
			"active":      false,
			"returned_at": goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"asset_id": assetID, "person_id": personID, "active": true}).
		Executor().
		Exec()
	if err != nil {
		return 0, apperrors.NewStorage(err, "failed to close custody record")
	}

	closed, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewStorage(err, "failed to read closed custody count")
	}

	return int(closed), nil
}

func (r *CustodyRepository) InsertRecord(tx *goqu.TxDatabase, assetID int, holder models.Holder) (int, error) {
	query := tx.Insert("custody_records").
		Rows(goqu.Record{
			"asset_id":    assetID,
			"holder_kind": string(holder.Kind()),
			"person_id":   holder.PersonID,
			"location_id": holder.LocationID,
			"active":      true,
		}).
		Returning("id")

	var recordID int
	if _, err := query.Executor().ScanVal(&recordID); err != nil {
		return 0, apperrors.WrapDBError(err, "failed to insert custody record")
	}

	return recordID, nil
}

func (r *CustodyRepository) PersonExists(tx *goqu.TxDatabase, personID int) (bool, error) {
	var count int64
	query := tx.Select(goqu.COUNT("*")).
		From("people").
		Where(goqu.Ex{"id": personID}).
		Where(goqu.I("deleted_at").IsNull())

	if _, err := query.Executor().ScanVal(&count); err != nil {
		return false, apperrors.NewStorage(err, "failed to check person")
	}

	return count > 0, nil
}

func (r *CustodyRepository) LocationExists(tx *goqu.TxDatabase, locationID int) (bool, error) {
	var count int64
	query := tx.Select(goqu.COUNT("*")).
		From("locations").
		Where(goqu.Ex{"id": locationID})

	if _, err := query.Executor().ScanVal(&count); err != nil {
		return false, apperrors.NewStorage(err, "failed to check location")
	}

	return count > 0, nil
}

// GetActiveByAsset returns the active custody with holder names joined,
// for detail views.
func (r *CustodyRepository) GetActiveByAsset(assetID int) ([]models.CustodyRecord, error) {
	var records []models.CustodyRecord

	query := r.Repository.GoquDBWrapper.
		From(goqu.T("custody_records").As("c")).
		Select(
			goqu.I("c.id").As("custody_id"),
			goqu.I("c.asset_id").As("asset_id"),
			goqu.I("c.holder_kind").As("holder_kind"),
			goqu.I("c.person_id").As("person_id"),
			goqu.I("c.location_id").As("location_id"),
			goqu.I("c.assigned_at").As("assigned_at"),
			goqu.I("c.returned_at").As("returned_at"),
			goqu.I("c.active").As("active"),
			goqu.COALESCE(goqu.I("p.name"), "").As("person_name"),
			goqu.COALESCE(goqu.I("l.name"), "").As("location_name"),
		).
		LeftJoin(goqu.T("people").As("p"), goqu.On(goqu.Ex{"c.person_id": goqu.I("p.id")})).
		LeftJoin(goqu.T("locations").As("l"), goqu.On(goqu.Ex{"c.location_id": goqu.I("l.id")})).
		Where(goqu.Ex{"c.asset_id": assetID, "c.active": true}).
		Order(goqu.I("c.assigned_at").Asc())

	if err := query.Executor().ScanStructs(&records); err != nil {
		return nil, apperrors.NewStorage(err, "failed to read custody records")
	}

	return records, nil
}

// GetActiveByPerson lists every asset id currently held by a person.
func (r *CustodyRepository) GetActiveByPerson(personID int) ([]int, error) {
	var assetIDs []int

	query := r.Repository.GoquDBWrapper.
		Select("asset_id").
		From("custody_records").
		Where(goqu.Ex{"person_id": personID, "active": true}).
		Order(goqu.I("asset_id").Asc())

	if err := query.Executor().ScanVals(&assetIDs); err != nil {
		return nil, apperrors.NewStorage(err, "failed to read custody records")
	}

	return assetIDs, nil
}
