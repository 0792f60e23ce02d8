package model

import "time"

// Household is a family account. It owns a disjoint set of members and tasks.
type Household struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}
