package assets

import (
	"encoding/json"
	"fmt"
	"strings"

	"fleetd/internal/repository"
	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type AssetRepository struct {
	Repository *repository.Repository
}

func NewRepository(r *repository.Repository) *AssetRepository {
	return &AssetRepository{Repository: r}
}

// InsertAsset creates the asset row inside the caller's transaction.
// Duplicate serial or asset tag surfaces as a ConflictError through the
// partial unique indexes on non-deleted rows.
func (r *AssetRepository) InsertAsset(tx *goqu.TxDatabase, assetType models.AssetType, status models.LifecycleState, serial, assetTag string, attrs map[string]any) (int, error) {
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal asset attrs: %w", err)
	}

	query := tx.Insert("assets").
		Rows(goqu.Record{
			"asset_type": string(assetType),
			"status":     string(status),
			"serial":     serial,
			"asset_tag":  assetTag,
			"attrs":      attrsJSON,
		}).
		Returning("id")

	var assetID int
	if _, err := query.Executor().ScanVal(&assetID); err != nil {
		return 0, apperrors.WrapDBError(err, "failed to insert asset")
	}

	return assetID, nil
}

func (r *AssetRepository) GetAssetRow(assetID int) (*models.FlatAssetRecord, error) {
	var row models.FlatAssetRecord

	query := r.Repository.GoquDBWrapper.Select(
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
		Where(goqu.Ex{"id": assetID})

	found, err := query.Executor().ScanStruct(&row)
	if err != nil {
		return nil, apperrors.NewStorage(err, "failed to fetch asset")
	}
	if !found {
		return nil, apperrors.NewNotFound("asset %d not found", assetID)
	}

	return &row, nil
}

func (r *AssetRepository) ListAssets(filter models.AssetFilter) ([]models.Asset, error) {
	query := r.Repository.GoquDBWrapper.Select(
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
		Order(goqu.I("id").Asc())

	if !filter.IncludeDeleted {
		query = query.Where(goqu.I("deleted_at").IsNull())
	}
	if filter.Type != "" {
		query = query.Where(goqu.Ex{"asset_type": filter.Type})
	}
	if filter.Status != "" {
		query = query.Where(goqu.Ex{"status": filter.Status})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(goqu.Or(
			goqu.I("serial").ILike(pattern),
			goqu.I("asset_tag").ILike(pattern),
			goqu.L("attrs->>'brand'").ILike(pattern),
			goqu.L("attrs->>'model'").ILike(pattern),
			goqu.L("attrs->>'name'").ILike(pattern),
		))
	}

	var rows []models.FlatAssetRecord
	if err := query.Executor().ScanStructs(&rows); err != nil {
		return nil, apperrors.NewStorage(err, "failed to list assets")
	}

	assets := make([]models.Asset, 0, len(rows))
	for i := range rows {
		asset, err := rows[i].TransformToAsset()
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}

	return assets, nil
}

// UpdateAttrs merges the filtered partial into the stored attrs column.
func (r *AssetRepository) UpdateAttrs(tx *goqu.TxDatabase, assetID int, current map[string]any, changes map[string]any) error {
	for key, value := range changes {
		current[key] = value
	}

	attrsJSON, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to marshal asset attrs: %w", err)
	}

	query := tx.Update("assets").
		Set(goqu.Record{"attrs": attrsJSON}).
		Where(goqu.Ex{"id": assetID})

	if _, err := query.Executor().Exec(); err != nil {
		return apperrors.NewStorage(err, "failed to update asset attrs")
	}

	return nil
}

func (r *AssetRepository) UpdateStatus(tx *goqu.TxDatabase, assetID int, status models.LifecycleState) error {
	query := tx.Update("assets").
		Set(goqu.Record{"status": string(status)}).
		Where(goqu.Ex{"id": assetID})

	if _, err := query.Executor().Exec(); err != nil {
		return apperrors.NewStorage(err, "failed to update asset status")
	}

	return nil
}

// MarkDeleted sets deleted_at once; repeated calls leave the original
// timestamp untouched, which makes soft delete idempotent.
func (r *AssetRepository) MarkDeleted(tx *goqu.TxDatabase, assetID int) error {
	query := tx.Update("assets").
		Set(goqu.Record{"deleted_at": goqu.L("NOW()")}).
		Where(goqu.Ex{"id": assetID}).
		Where(goqu.I("deleted_at").IsNull())

	if _, err := query.Executor().Exec(); err != nil {
		return apperrors.NewStorage(err, "failed to soft delete asset")
	}

	return nil
}

func (r *AssetRepository) StampMaintenance(tx *goqu.TxDatabase, assetID int) error {
	query := tx.Update("assets").
		Set(goqu.Record{"last_maintenance": goqu.L("NOW()")}).
		Where(goqu.Ex{"id": assetID})

	if _, err := query.Executor().Exec(); err != nil {
		return apperrors.NewStorage(err, "failed to stamp maintenance")
	}

	return nil
}

// WarehouseStock aggregates non-deleted warehouse assets per type with
// their distinct brands.
type WarehouseStock struct {
	Type   string   `json:"type"`
	Total  int      `json:"total"`
	Brands []string `json:"brands"`
}

func (r *AssetRepository) GetWarehouseStock() ([]WarehouseStock, error) {
	var rows []struct {
		Type   string `db:"asset_type"`
		Total  int    `db:"total"`
		Brands string `db:"brands"`
	}

	query := r.Repository.GoquDBWrapper.
		From("assets").
		Select(
			goqu.I("asset_type"),
			goqu.COUNT("*").As("total"),
			goqu.L("COALESCE(STRING_AGG(DISTINCT attrs->>'brand', ','), '')").As("brands"),
		).
		Where(goqu.Ex{"status": string(models.StateWarehouse)}).
		Where(goqu.I("deleted_at").IsNull()).
		GroupBy("asset_type").
		Order(goqu.I("asset_type").Asc())

	if err := query.Executor().ScanStructs(&rows); err != nil {
		return nil, apperrors.NewStorage(err, "failed to aggregate warehouse stock")
	}

	stock := make([]WarehouseStock, 0, len(rows))
	for _, row := range rows {
		entry := WarehouseStock{Type: row.Type, Total: row.Total}
		if row.Brands != "" {
			entry.Brands = strings.Split(row.Brands, ",")
		}
		stock = append(stock, entry)
	}

	return stock, nil
}
