package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type AssetType string

const (
	TypeComputer  AssetType = "computer"
	TypePhone     AssetType = "phone"
	TypePrinter   AssetType = "printer"
	TypeRadio     AssetType = "radio"
	TypeIPPhone   AssetType = "ip_phone"
	TypeTablet    AssetType = "tablet"
	TypeAccessory AssetType = "accessory"
)

func NewAssetType(value string) (AssetType, error) {
	t := AssetType(value)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid asset type: %s", value)
	}
	return t, nil
}

func (t AssetType) IsValid() bool {
	switch t {
	case TypeComputer, TypePhone, TypePrinter, TypeRadio, TypeIPPhone, TypeTablet, TypeAccessory:
		return true
	default:
		return false
	}
}

// LocationOnly reports whether custody of this type may only be held by a
// location. Printers are mounted at a place, never handed to a person.
func (t AssetType) LocationOnly() bool {
	return t == TypePrinter
}

// MultiHolder reports whether several custody records may be active at once.
// One radio is tracked to every holder that carries it.
func (t AssetType) MultiHolder() bool {
	return t == TypeRadio
}

type LifecycleState string

const (
	StateActive    LifecycleState = "active"
	StateWarehouse LifecycleState = "warehouse"
	StateRetired   LifecycleState = "retired"
)

func NewLifecycleState(value string) (LifecycleState, error) {
	s := LifecycleState(value)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid lifecycle state: %s", value)
	}
	return s, nil
}

func (s LifecycleState) IsValid() bool {
	switch s {
	case StateActive, StateWarehouse, StateRetired:
		return true
	default:
		return false
	}
}

type Asset struct {
	ID              int             `json:"id"`
	Type            AssetType       `json:"type"`
	Status          LifecycleState  `json:"status"`
	Serial          string          `json:"serial"`
	AssetTag        string          `json:"asset_tag"`
	Attrs           map[string]any  `json:"attrs"`
	LastMaintenance *time.Time      `json:"last_maintenance,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
	Custody         []CustodyRecord `json:"custody,omitempty"`
	History         []AuditEvent    `json:"history,omitempty"`
}

func (a *Asset) Deleted() bool {
	return a.DeletedAt != nil
}

// FlatAssetRecord mirrors one assets row as stored.
type FlatAssetRecord struct {
	ID              int        `db:"asset_id"`
	Type            string     `db:"asset_type"`
	Status          string     `db:"status"`
	Serial          string     `db:"serial"`
	AssetTag        string     `db:"asset_tag"`
	Attrs           []byte     `db:"attrs"`
	LastMaintenance *time.Time `db:"last_maintenance"`
	CreatedAt       time.Time  `db:"created_at"`
	DeletedAt       *time.Time `db:"deleted_at"`
}

func (fa *FlatAssetRecord) TransformToAsset() (Asset, error) {
	attrs := map[string]any{}
	if len(fa.Attrs) > 0 {
		if err := json.Unmarshal(fa.Attrs, &attrs); err != nil {
			return Asset{}, fmt.Errorf("failed to unmarshal asset attrs: %w", err)
		}
	}

	return Asset{
		ID:              fa.ID,
		Type:            AssetType(fa.Type),
		Status:          LifecycleState(fa.Status),
		Serial:          fa.Serial,
		AssetTag:        fa.AssetTag,
		Attrs:           attrs,
		LastMaintenance: fa.LastMaintenance,
		CreatedAt:       fa.CreatedAt,
		DeletedAt:       fa.DeletedAt,
	}, nil
}

// AssetFilter narrows asset listings.
type AssetFilter struct {
	Type           string
	Status         string
	Search         string
	IncludeDeleted bool
}
