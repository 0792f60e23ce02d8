package chore

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/sweepy/internal/model"
	"github.com/dukerupert/sweepy/internal/recurrence"
)

// Expander materializes the future instances of a recurring task.
type Expander struct {
	tasks     TaskStore
	allocator *Allocator
	clock     Clock
	newID     func() string
	logger    *slog.Logger
}

func NewExpander(tasks TaskStore, allocator *Allocator, clock Clock, newID func() string, logger *slog.Logger) *Expander {
	return &Expander{tasks: tasks, allocator: allocator, clock: clock, newID: newID, logger: logger}
}

// ExpandFutureInstances expands the task up to the horizon for the current
// date: the end of the month after this one.
func (e *Expander) ExpandFutureInstances(ctx context.Context, householdID string, task model.Task) ([]model.Task, error) {
	return e.Expand(ctx, householdID, task, recurrence.Horizon(e.clock.Now()))
}

// Expand creates one instance per interval step after the task's due date up
// to horizonEnd, skipping days that already have an instance of this task.
// Instances inherit the task's assignee, or are distributed as one batch when
// it has none. All instances are persisted together. A task that does not
// repeat yields no instances.
func (e *Expander) Expand(ctx context.Context, householdID string, task model.Task, horizonEnd time.Time) ([]model.Task, error) {
	return e.expand(ctx, householdID, task, horizonEnd, false)
}

// ExtendFutureInstances expands the task up to the current horizon starting
// after its latest existing instance, so occurrences removed earlier in the
// series are not recreated.
func (e *Expander) ExtendFutureInstances(ctx context.Context, householdID string, task model.Task) ([]model.Task, error) {
	return e.expand(ctx, householdID, task, recurrence.Horizon(e.clock.Now()), true)
}

func (e *Expander) expand(ctx context.Context, householdID string, task model.Task, horizonEnd time.Time, fromLatest bool) ([]model.Task, error) {
	if !task.Repeat.Enabled {
		return nil, nil
	}

	existing, err := e.tasks.ListTasks(ctx, householdID)
	if err != nil {
		return nil, storageErr("list tasks", err)
	}

	start := task.DueDate
	taken := make(map[string]bool)
	for _, t := range existing {
		if t.HasParent == nil || *t.HasParent != task.ID {
			continue
		}
		taken[recurrence.DayKey(t.DueDate)] = true
		if fromLatest && t.DueDate.After(start) {
			start = t.DueDate
		}
	}

	dates, truncated := recurrence.Expand(start, task.Repeat.Interval, horizonEnd)
	if truncated {
		e.logger.Warn("recurrence expansion truncated",
			"household_id", householdID,
			"task_id", task.ID,
			"interval", task.Repeat.Interval,
			"max_occurrences", recurrence.MaxOccurrences,
			"horizon", horizonEnd.Format(time.DateOnly),
		)
	}

	now := e.clock.Now()
	var created []model.Task
	for _, due := range dates {
		day := recurrence.DayKey(due)
		if taken[day] {
			continue
		}
		taken[day] = true
		created = append(created, newInstance(e.newID(), householdID, task, task.ID, due, now))
	}

	if len(created) == 0 {
		return nil, nil
	}

	if task.AssignedTo != nil {
		for i := range created {
			assignee := *task.AssignedTo
			created[i].AssignedTo = &assignee
		}
	} else if _, err := e.allocator.allocate(ctx, householdID, created); err != nil {
		return nil, err
	}

	if err := e.tasks.PutTasks(ctx, householdID, created); err != nil {
		return nil, storageErr("save instances", err)
	}

	e.logger.Info("expanded recurring task",
		"household_id", householdID,
		"task_id", task.ID,
		"created", len(created),
		"horizon", horizonEnd.Format(time.DateOnly),
	)
	return created, nil
}

func newInstance(id, householdID string, template model.Task, parentID string, due, now time.Time) model.Task {
	repeat := template.Repeat
	repeat.NextDate = due
	return model.Task{
		ID:          id,
		HouseholdID: householdID,
		Title:       template.Title,
		Difficulty:  template.Difficulty,
		Completed:   false,
		DueDate:     due,
		Repeat:      repeat,
		HasParent:   &parentID,
		CreatedAt:   now,
	}
}
