package chore

import (
	"context"
	"log/slog"
	"sort"

	"github.com/dukerupert/sweepy/internal/model"
)

// Allocator assigns unassigned tasks so that members' point loads stay level.
type Allocator struct {
	tasks   TaskStore
	members MemberStore
	logger  *slog.Logger
}

func NewAllocator(tasks TaskStore, members MemberStore, logger *slog.Logger) *Allocator {
	return &Allocator{tasks: tasks, members: members, logger: logger}
}

// Assign sets AssignedTo on every task, in order, to the member with the
// lowest simulated point total, then charges that member the task's points.
// Standings are stably re-sorted before each pick, so ties go to whoever
// stood first in the previous ordering. Nothing is persisted and members are
// not modified. With no members the tasks are left untouched.
func Assign(tasks []model.Task, members []model.Member) {
	if len(members) == 0 {
		return
	}

	type standing struct {
		id     string
		points int
	}
	standings := make([]standing, len(members))
	for i, m := range members {
		standings[i] = standing{id: m.ID, points: m.Points}
	}

	for i := range tasks {
		sort.SliceStable(standings, func(a, b int) bool {
			return standings[a].points < standings[b].points
		})
		target := &standings[0]
		memberID := target.id
		tasks[i].AssignedTo = &memberID
		target.points += tasks[i].Points()
	}
}

// allocate assigns the batch against the household's current standings
// without persisting it.
func (a *Allocator) allocate(ctx context.Context, householdID string, tasks []model.Task) (bool, error) {
	members, err := a.members.ListMembers(ctx, householdID)
	if err != nil {
		return false, storageErr("list members", err)
	}
	if len(members) == 0 {
		a.logger.Debug("no members to distribute to", "household_id", householdID, "tasks", len(tasks))
		return false, nil
	}
	Assign(tasks, members)
	return true, nil
}

// Distribute assigns the batch in place and persists the assignments once the
// whole batch has been processed.
func (a *Allocator) Distribute(ctx context.Context, householdID string, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	assigned, err := a.allocate(ctx, householdID, tasks)
	if err != nil || !assigned {
		return err
	}

	if err := a.tasks.PutTasks(ctx, householdID, tasks); err != nil {
		return storageErr("save assignments", err)
	}

	a.logger.Info("distributed tasks", "household_id", householdID, "count", len(tasks))
	return nil
}
