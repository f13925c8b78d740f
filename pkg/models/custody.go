package models

import "time"

type HolderKind string

const (
	HolderPerson   HolderKind = "person"
	HolderLocation HolderKind = "location"
)

type CustodyRecord struct {
	ID         int        `json:"id" db:"custody_id"`
	AssetID    int        `json:"asset_id" db:"asset_id"`
	HolderKind HolderKind `json:"holder_kind" db:"holder_kind"`
	PersonID   *int       `json:"person_id,omitempty" db:"person_id"`
	LocationID int        `json:"location_id" db:"location_id"`
	AssignedAt time.Time  `json:"assigned_at" db:"assigned_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty" db:"returned_at"`
	Active     bool       `json:"active" db:"active"`

	// Joined fields, populated on detail views only.
	PersonName   string `json:"person_name,omitempty" db:"person_name"`
	LocationName string `json:"location_name,omitempty" db:"location_name"`
}

// Holder names the receiving party of an assignment. LocationID is always
// required; PersonID is absent for location-only custody.
type Holder struct {
	PersonID   *int `json:"person_id,omitempty"`
	LocationID int  `json:"location_id"`
}

func (h Holder) Kind() HolderKind {
	if h.PersonID != nil {
		return HolderPerson
	}
	return HolderLocation
}
