package auditlog

import (
	"encoding/json"
	"fmt"

	"fleetd/internal/repository"
	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

// AuditRepository is the append-only event store. There is no update or
// delete; events outlive the assets they describe.
type AuditRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *AuditRepository {
	return &AuditRepository{repository: r}
}

// Entry carries everything needed to append one event. Snapshots are
// marshalled to JSON columns on insert.
type Entry struct {
	AssetID    int
	AssetType  models.AssetType
	Action     string
	ActorID    *int
	PersonID   *int
	LocationID *int
	Before     map[string]any
	After      map[string]any
	Reason     *string
}

func (e Entry) validate() error {
	if e.AssetID == 0 {
		return apperrors.NewValidation("audit entry requires an asset id")
	}
	if !e.AssetType.IsValid() {
		return apperrors.NewValidation("audit entry has invalid asset type: %s", e.AssetType)
	}
	switch e.Action {
	case models.ActionCreate, models.ActionAssign, models.ActionReturn,
		models.ActionMaintenance, models.ActionWarehouseIn,
		models.ActionWarehouseOut, models.ActionRetire:
		return nil
	default:
		return apperrors.NewValidation("audit entry has invalid action: %s", e.Action)
	}
}

// Append inserts one event inside the caller's transaction and returns its
// id. A failed append must abort the surrounding mutation, which is why no
// fallback or retry happens here.
func (r *AuditRepository) Append(tx *goqu.TxDatabase, entry Entry) (int, error) {
	if err := entry.validate(); err != nil {
		return 0, err
	}

	record := goqu.Record{
		"asset_id":    entry.AssetID,
		"asset_type":  string(entry.AssetType),
		"action":      entry.Action,
		"actor_id":    entry.ActorID,
		"person_id":   entry.PersonID,
		"location_id": entry.LocationID,
		"reason":      entry.Reason,
	}

	if entry.Before != nil {
		beforeJSON, err := json.Marshal(entry.Before)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal before snapshot: %w", err)
		}
		record["before_snapshot"] = beforeJSON
	}
	if entry.After != nil {
		afterJSON, err := json.Marshal(entry.After)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal after snapshot: %w", err)
		}
		record["after_snapshot"] = afterJSON
	}

	query := tx.Insert("audit_events").Rows(record).Returning("id")

	var eventID int
	if _, err := query.Executor().ScanVal(&eventID); err != nil {
		return 0, apperrors.NewStorage(err, "failed to insert audit event")
	}

	return eventID, nil
}

func (r *AuditRepository) selectEvents() *goqu.SelectDataset {
	return r.repository.GoquDBWrapper.
		From(goqu.T("audit_events").As("e")).
		Select(
			goqu.I("e.id").As("id"),
			goqu.I("e.asset_id").As("asset_id"),
			goqu.I("e.asset_type").As("asset_type"),
			goqu.I("e.action").As("action"),
			goqu.I("e.actor_id").As("actor_id"),
			goqu.I("e.person_id").As("person_id"),
			goqu.I("e.location_id").As("location_id"),
			goqu.I("e.before_snapshot").As("before_snapshot"),
			goqu.I("e.after_snapshot").As("after_snapshot"),
			goqu.I("e.reason").As("reason"),
			goqu.I("e.occurred_at").As("occurred_at"),
			goqu.COALESCE(goqu.I("p.name"), "").As("person_name"),
			goqu.COALESCE(goqu.I("l.name"), "").As("location_name"),
			goqu.COALESCE(goqu.I("u.username"), "").As("actor_name"),
		).
		LeftJoin(goqu.T("people").As("p"), goqu.On(goqu.Ex{"e.person_id": goqu.I("p.id")})).
		LeftJoin(goqu.T("locations").As("l"), goqu.On(goqu.Ex{"e.location_id": goqu.I("l.id")})).
		LeftJoin(goqu.T("users").As("u"), goqu.On(goqu.Ex{"e.actor_id": goqu.I("u.id")}))
}

// GetByAsset returns all events for one asset, most recent first.
func (r *AuditRepository) GetByAsset(assetID int) ([]models.AuditEvent, error) {
	var events []models.AuditEvent

	query := r.selectEvents().
		Where(goqu.Ex{"e.asset_id": assetID}).
		Order(goqu.I("e.occurred_at").Desc(), goqu.I("e.id").Desc())

	if err := query.Executor().ScanStructs(&events); err != nil {
		return nil, apperrors.NewStorage(err, "failed to query audit events")
	}

	for i := range events {
		events[i].LoadFromDB()
	}

	return events, nil
}

// Query returns a page of events matching the filter plus the total count.
func (r *AuditRepository) Query(filter models.AuditFilter, limit, offset int) ([]models.AuditEvent, int, error) {
	conditions := goqu.Ex{}
	if filter.AssetType != "" {
		conditions["e.asset_type"] = filter.AssetType
	}
	if filter.Action != "" {
		conditions["e.action"] = filter.Action
	}

	var total int64
	countQuery := r.repository.GoquDBWrapper.
		From(goqu.T("audit_events").As("e")).
		Select(goqu.COUNT("*")).
		Where(conditions)
	if _, err := countQuery.Executor().ScanVal(&total); err != nil {
		return nil, 0, apperrors.NewStorage(err, "failed to count audit events")
	}

	var events []models.AuditEvent
	query := r.selectEvents().
		Where(conditions).
		Order(goqu.I("e.occurred_at").Desc(), goqu.I("e.id").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset))

	if err := query.Executor().ScanStructs(&events); err != nil {
		return nil, 0, apperrors.NewStorage(err, "failed to query audit events")
	}

	for i := range events {
		events[i].LoadFromDB()
	}

	return events, int(total), nil
}
