package chore

import (
	"time"

	"github.com/dukerupert/sweepy/internal/model"
	"github.com/dukerupert/sweepy/internal/recurrence"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
	StatusNotDue    Status = "not_due"
)

type TaskWithStatus struct {
	model.Task
	Status            Status `json:"status"`
	RepeatDescription string `json:"repeatDescription,omitempty"`
}

// ComputeStatus classifies a task against today's date, in today's location.
func ComputeStatus(task model.Task, today time.Time) Status {
	if task.Completed {
		return StatusCompleted
	}

	dayStart := recurrence.StartOfDay(today)
	due := recurrence.StartOfDay(task.DueDate.In(today.Location()))

	switch {
	case due.Before(dayStart):
		return StatusOverdue
	case due.Equal(dayStart):
		return StatusPending
	}
	return StatusNotDue
}

// WithStatus decorates tasks with their status and recurrence description.
func WithStatus(tasks []model.Task, today time.Time) []TaskWithStatus {
	out := make([]TaskWithStatus, 0, len(tasks))
	for _, t := range tasks {
		tw := TaskWithStatus{Task: t, Status: ComputeStatus(t, today)}
		if t.Repeat.Enabled {
			tw.RepeatDescription = recurrence.Describe(t.Repeat.Interval)
		}
		out = append(out, tw)
	}
	return out
}

// DueWithin reports whether the task is due in [from, to]. A nil bound is open.
func DueWithin(task model.Task, from, to *time.Time) bool {
	if from != nil && task.DueDate.Before(*from) {
		return false
	}
	if to != nil && task.DueDate.After(*to) {
		return false
	}
	return true
}
