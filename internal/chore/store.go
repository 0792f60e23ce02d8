package chore

import (
	"context"

	"github.com/dukerupert/sweepy/internal/model"
)

// TaskStore is the household-scoped task persistence the scheduler needs.
// GetTask returns nil, nil when the task does not exist.
type TaskStore interface {
	ListTasks(ctx context.Context, householdID string) ([]model.Task, error)
	GetTask(ctx context.Context, householdID, id string) (*model.Task, error)
	PutTask(ctx context.Context, householdID string, task *model.Task) error
	// PutTasks writes the batch atomically.
	PutTasks(ctx context.Context, householdID string, tasks []model.Task) error
	// DeleteTask removes the task, and with cascade every task whose parent
	// it is. It returns the number of rows removed.
	DeleteTask(ctx context.Context, householdID, id string, cascade bool) (int64, error)
}

// MemberStore is the household-scoped member persistence the scheduler needs.
// Members are listed in their stable sort order. GetMember returns nil, nil
// when the member does not exist.
type MemberStore interface {
	ListMembers(ctx context.Context, householdID string) ([]model.Member, error)
	GetMember(ctx context.Context, householdID, id string) (*model.Member, error)
	// AdjustPoints adds delta to the member's points, flooring the result at
	// zero. It returns nil, nil when the member does not exist.
	AdjustPoints(ctx context.Context, householdID, memberID string, delta int) (*model.Member, error)
}
