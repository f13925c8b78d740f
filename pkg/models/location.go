package models

type Location struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Area string `json:"area" db:"area"`
}
