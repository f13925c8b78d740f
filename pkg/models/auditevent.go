package models

import (
	"encoding/json"
	"time"
)

// Audit actions. One event is appended per accepted mutation.
const (
	ActionCreate       = "create"
	ActionAssign       = "assign"
	ActionReturn       = "return"
	ActionMaintenance  = "maintenance"
	ActionWarehouseIn  = "warehouse_in"
	ActionWarehouseOut = "warehouse_out"
	ActionRetire       = "retire"
)

type AuditEvent struct {
	ID         int            `json:"id" db:"id"`
	AssetID    int            `json:"asset_id" db:"asset_id"`
	AssetType  AssetType      `json:"asset_type" db:"asset_type"`
	Action     string         `json:"action" db:"action"`
	ActorID    *int           `json:"actor_id,omitempty" db:"actor_id"`
	PersonID   *int           `json:"person_id,omitempty" db:"person_id"`
	LocationID *int           `json:"location_id,omitempty" db:"location_id"`
	BeforeRaw  []byte         `json:"-" db:"before_snapshot"`
	AfterRaw   []byte         `json:"-" db:"after_snapshot"`
	Before     map[string]any `json:"before,omitempty" db:"-"`
	After      map[string]any `json:"after,omitempty" db:"-"`
	Reason     *string        `json:"reason,omitempty" db:"reason"`
	OccurredAt time.Time      `json:"occurred_at" db:"occurred_at"`

	// Joined fields, populated on history views.
	PersonName   string `json:"person_name,omitempty" db:"person_name"`
	LocationName string `json:"location_name,omitempty" db:"location_name"`
	ActorName    string `json:"actor_name,omitempty" db:"actor_name"`
}

func (e *AuditEvent) LoadFromDB() {
	if len(e.BeforeRaw) > 0 {
		_ = json.Unmarshal(e.BeforeRaw, &e.Before)
	}
	if len(e.AfterRaw) > 0 {
		_ = json.Unmarshal(e.AfterRaw, &e.After)
	}
}

// AuditFilter narrows global history queries.
type AuditFilter struct {
	AssetType string
	Action    string
}
