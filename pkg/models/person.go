package models

import "time"

type Person struct {
	ID        int        `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Email     string     `json:"email" db:"email"`
	JobTitle  string     `json:"job_title" db:"job_title"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`

	// Assets currently in this person's custody, populated on detail views.
	Assets []Asset `json:"assets,omitempty"`
}
