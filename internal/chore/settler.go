package chore

import (
	"context"
	"log/slog"

	"github.com/dukerupert/sweepy/internal/model"
	"github.com/dukerupert/sweepy/internal/recurrence"
)

// Settlement is the outcome of a completion toggle.
type Settlement struct {
	Task model.Task `json:"task"`
	// Changed is false when the task was already in the requested state.
	Changed     bool          `json:"changed"`
	PointsDelta int           `json:"pointsDelta"`
	Member      *model.Member `json:"member,omitempty"`
	Successor   *model.Task   `json:"successor,omitempty"`
}

// Settler applies point deltas when tasks are completed or reopened.
type Settler struct {
	tasks   TaskStore
	members MemberStore
	clock   Clock
	newID   func() string
	logger  *slog.Logger
}

func NewSettler(tasks TaskStore, members MemberStore, clock Clock, newID func() string, logger *slog.Logger) *Settler {
	return &Settler{tasks: tasks, members: members, clock: clock, newID: newID, logger: logger}
}

// SetCompletion marks the task completed or not. Only a change of state has
// effects: the assignee gains the task's points on completion and loses them
// on reopening (never dropping below zero), and completing a recurring task
// creates its next instance, due one interval from now.
func (s *Settler) SetCompletion(ctx context.Context, householdID, taskID string, completed bool) (*Settlement, error) {
	task, err := s.tasks.GetTask(ctx, householdID, taskID)
	if err != nil {
		return nil, storageErr("get task", err)
	}
	if task == nil {
		return nil, &NotFoundError{Kind: "task", ID: taskID}
	}

	res := &Settlement{Task: *task}
	if task.Completed == completed {
		return res, nil
	}

	delta := task.Points()
	if !completed {
		delta = -delta
	}

	if task.AssignedTo != nil {
		member, err := s.members.AdjustPoints(ctx, householdID, *task.AssignedTo, delta)
		if err != nil {
			return nil, storageErr("adjust points", err)
		}
		if member == nil {
			s.logger.Warn("assignee missing, points not applied",
				"household_id", householdID, "task_id", task.ID, "member_id", *task.AssignedTo)
		}
		res.Member = member
	}

	task.Completed = completed
	if err := s.tasks.PutTask(ctx, householdID, task); err != nil {
		return nil, storageErr("save task", err)
	}
	res.Task = *task
	res.Changed = true
	res.PointsDelta = delta

	if completed && task.Repeat.Enabled {
		successor, err := s.createSuccessor(ctx, householdID, *task)
		if err != nil {
			return nil, err
		}
		res.Successor = successor
	}

	return res, nil
}

// createSuccessor adds the single next instance of a completed recurring
// task. It belongs to the same template as the completed task and is not
// created when that template already has an instance on the due day.
func (s *Settler) createSuccessor(ctx context.Context, householdID string, completed model.Task) (*model.Task, error) {
	if completed.Repeat.Interval < 1 {
		return nil, nil
	}

	now := s.clock.Now()
	due := recurrence.Next(now, completed.Repeat.Interval)
	rootID := completed.RootID()

	existing, err := s.tasks.ListTasks(ctx, householdID)
	if err != nil {
		return nil, storageErr("list tasks", err)
	}
	for _, t := range existing {
		if t.HasParent != nil && *t.HasParent == rootID && recurrence.SameDay(t.DueDate, due) {
			s.logger.Debug("successor already scheduled",
				"household_id", householdID, "template_id", rootID, "task_id", t.ID)
			return nil, nil
		}
	}

	next := newInstance(s.newID(), householdID, completed, rootID, due, now)
	if completed.AssignedTo != nil {
		assignee := *completed.AssignedTo
		next.AssignedTo = &assignee
	}

	if err := s.tasks.PutTask(ctx, householdID, &next); err != nil {
		return nil, storageErr("save successor", err)
	}

	s.logger.Info("created next instance",
		"household_id", householdID, "template_id", rootID, "task_id", next.ID, "due", due.Format("2006-01-02"))
	return &next, nil
}
