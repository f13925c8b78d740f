package repository

import (
	"database/sql"
	"fmt"

	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type Repository struct {
	DB            *sql.DB
	GoquDBWrapper *goqu.Database
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		DB:            db,
		GoquDBWrapper: goqu.New("postgres", db),
	}
}

// TxRunner runs a function inside one database transaction. Services
// depend on this rather than on the concrete Repository so tests can
// substitute a pass-through runner.
type TxRunner interface {
	WithTx(fn func(tx *goqu.TxDatabase) error) error
}

func (r *Repository) WithTx(fn func(tx *goqu.TxDatabase) error) error {
	return WithTransaction(r.GoquDBWrapper, fn)
}

func WithTransaction(db *goqu.Database, fn func(tx *goqu.TxDatabase) error) (err error) {
	rawTx, err := db.Begin()
	if err != nil {
		return apperrors.NewStorage(err, "failed to start transaction")
	}

	tx := goqu.NewTx("postgres", rawTx)
	defer func() {
		if p := recover(); p != nil {
			rawTx.Rollback()
			panic(p)
		} else if err != nil {
			rawTx.Rollback()
		} else {
			err = rawTx.Commit()
		}
	}()

	err = fn(tx)
	return
}

// LockAsset exposes LockAssetRow as a method so services can take the
// locking dependency as an interface.
func (r *Repository) LockAsset(tx *goqu.TxDatabase, assetID int) (*models.FlatAssetRecord, error) {
	return LockAssetRow(tx, assetID)
}

// LockAssetRow reads the asset row under FOR UPDATE so that concurrent
// mutations of the same asset serialize for the length of the transaction.
// Soft-deleted assets are still returned; callers decide visibility.
func LockAssetRow(tx *goqu.TxDatabase, assetID int) (*models.FlatAssetRecord, error) {
	var row models.FlatAssetRecord

	query := tx.Select(
		goqu.I("id").As("asset_id"),
		goqu.I("asset_type"),
		goqu.I("status"),
		goqu.I("serial"),
		goqu.I("asset_tag"),
		goqu.I("attrs"),
		goqu.I("last_maintenance"),
		goqu.I("created_at"),
		goqu.I("deleted_at"),
	).
		From("assets").
		Where(goqu.Ex{"id": assetID}).
		ForUpdate(goqu.Wait)

	found, err := query.Executor().ScanStruct(&row)
	if err != nil {
		return nil, fmt.Errorf("failed to lock asset %d: %w", assetID, err)
	}
	if !found {
		return nil, apperrors.NewNotFound("asset %d not found", assetID)
	}

	return &row, nil
}
