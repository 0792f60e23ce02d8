package model

import "time"

type Member struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"-"`
	Name        string    `json:"name"`
	Points      int       `json:"points"`
	SortOrder   int       `json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
}
