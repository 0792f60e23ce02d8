package model

import "time"

// Difficulty bounds. A task is worth Difficulty*PointsPerDifficulty points.
const (
	MinDifficulty       = 1
	MaxDifficulty       = 3
	PointsPerDifficulty = 10
)

// DefaultRepeatInterval is the interval, in days, given to tasks created
// without a recurrence.
const DefaultRepeatInterval = 3

type Repeat struct {
	Enabled  bool      `json:"enabled"`
	Interval int       `json:"interval"`
	NextDate time.Time `json:"nextDate"`
}

type Task struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"-"`
	Title       string    `json:"title"`
	Difficulty  int       `json:"difficulty"`
	AssignedTo  *string   `json:"assignedTo"`
	Completed   bool      `json:"completed"`
	DueDate     time.Time `json:"dueDate"`
	Repeat      Repeat    `json:"repeat"`
	HasParent   *string   `json:"hasParent"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Points is the value earned by completing the task.
func (t Task) Points() int {
	return t.Difficulty * PointsPerDifficulty
}

// IsTemplate reports whether the task originates recurrence instances.
func (t Task) IsTemplate() bool {
	return t.Repeat.Enabled && t.HasParent == nil
}

// RootID returns the id of the template this task belongs to.
func (t Task) RootID() string {
	if t.HasParent != nil {
		return *t.HasParent
	}
	return t.ID
}

// ValidDifficulty reports whether d is an accepted difficulty.
func ValidDifficulty(d int) bool {
	return d >= MinDifficulty && d <= MaxDifficulty
}
