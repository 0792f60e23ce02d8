package chore

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dukerupert/sweepy/internal/model"
)

// MemberDirectory extends MemberStore with membership changes.
type MemberDirectory interface {
	MemberStore
	CreateMember(ctx context.Context, householdID, name string) (*model.Member, error)
	// DeleteMember removes the member and unassigns every task assigned to
	// it. It reports false when the member does not exist.
	DeleteMember(ctx context.Context, householdID, id string) (bool, error)
}

// NewTask is the input for creating a task. Nil fields take defaults.
type NewTask struct {
	Title      string
	Difficulty int
	AssignedTo *string
	Completed  bool
	DueDate    *time.Time
	Repeat     *model.Repeat
	HasParent  *string
}

// TaskPatch holds the fields to change on a task. Nil fields are left alone.
type TaskPatch struct {
	Title      *string
	Difficulty *int
	AssignedTo *string
	Unassign   bool
	Completed  *bool
	DueDate    *time.Time
	Repeat     *model.Repeat
	HasParent  *string
}

// Service runs scheduler operations. Mutating operations on one household are
// serialized; different households proceed independently.
type Service struct {
	tasks     TaskStore
	members   MemberDirectory
	clock     Clock
	newID     func() string
	allocator *Allocator
	expander  *Expander
	settler   *Settler
	locks     householdLocks
	logger    *slog.Logger
}

func NewService(tasks TaskStore, members MemberDirectory, clock Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = SystemClock
	}
	newID := uuid.NewString
	allocator := NewAllocator(tasks, members, logger)
	return &Service{
		tasks:     tasks,
		members:   members,
		clock:     clock,
		newID:     newID,
		allocator: allocator,
		expander:  NewExpander(tasks, allocator, clock, newID, logger),
		settler:   NewSettler(tasks, members, clock, newID, logger),
		locks:     householdLocks{byID: make(map[string]*householdLock)},
		logger:    logger,
	}
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// ListTasks returns the household's tasks due within [from, to], ordered by
// due date. Nil bounds are open.
func (s *Service) ListTasks(ctx context.Context, householdID string, from, to *time.Time) ([]model.Task, error) {
	all, err := s.tasks.ListTasks(ctx, householdID)
	if err != nil {
		return nil, storageErr("list tasks", err)
	}

	tasks := make([]model.Task, 0, len(all))
	for _, t := range all {
		if DueWithin(t, from, to) {
			tasks = append(tasks, t)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].DueDate.Before(tasks[j].DueDate)
	})
	return tasks, nil
}

// CreateTask validates the input, fills defaults and stores a new task. An
// unspecified due date is one day from now; an unspecified recurrence is
// disabled with the default interval.
func (s *Service) CreateTask(ctx context.Context, householdID string, in NewTask) (*model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "title is required"}
	}
	if !model.ValidDifficulty(in.Difficulty) {
		return nil, &ValidationError{Field: "difficulty", Message: "difficulty must be 1, 2, or 3"}
	}
	if in.Repeat != nil && in.Repeat.Enabled && in.Repeat.Interval < 1 {
		return nil, &ValidationError{Field: "repeat.interval", Message: "interval must be at least 1 day"}
	}

	defer s.locks.lock(householdID)()

	if err := s.checkRefs(ctx, householdID, in.AssignedTo, in.HasParent); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	due := now.AddDate(0, 0, 1)
	if in.DueDate != nil {
		due = *in.DueDate
	}

	repeat := model.Repeat{Enabled: false, Interval: model.DefaultRepeatInterval, NextDate: now}
	if in.Repeat != nil {
		repeat = repeatWithDefaults(*in.Repeat, due)
	}

	task := &model.Task{
		ID:          s.newID(),
		HouseholdID: householdID,
		Title:       title,
		Difficulty:  in.Difficulty,
		AssignedTo:  in.AssignedTo,
		Completed:   in.Completed,
		DueDate:     due,
		Repeat:      repeat,
		HasParent:   in.HasParent,
		CreatedAt:   now,
	}
	if err := s.tasks.PutTask(ctx, householdID, task); err != nil {
		return nil, storageErr("create task", err)
	}

	s.logger.Info("task created", "household_id", householdID, "task_id", task.ID, "recurring", repeat.Enabled)
	return task, nil
}

// UpdateTask applies the patch. A change of completion goes through the
// settler so points stay consistent.
func (s *Service) UpdateTask(ctx context.Context, householdID, id string, patch TaskPatch) (*model.Task, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, &ValidationError{Field: "title", Message: "title is required"}
	}
	if patch.Difficulty != nil && !model.ValidDifficulty(*patch.Difficulty) {
		return nil, &ValidationError{Field: "difficulty", Message: "difficulty must be 1, 2, or 3"}
	}
	if patch.Repeat != nil && patch.Repeat.Enabled && patch.Repeat.Interval < 1 {
		return nil, &ValidationError{Field: "repeat.interval", Message: "interval must be at least 1 day"}
	}

	defer s.locks.lock(householdID)()

	task, err := s.tasks.GetTask(ctx, householdID, id)
	if err != nil {
		return nil, storageErr("get task", err)
	}
	if task == nil {
		return nil, &NotFoundError{Kind: "task", ID: id}
	}
	if err := s.checkRefs(ctx, householdID, patch.AssignedTo, patch.HasParent); err != nil {
		return nil, err
	}

	if patch.Title != nil {
		task.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Difficulty != nil {
		task.Difficulty = *patch.Difficulty
	}
	if patch.Unassign {
		task.AssignedTo = nil
	} else if patch.AssignedTo != nil {
		task.AssignedTo = patch.AssignedTo
	}
	if patch.DueDate != nil {
		task.DueDate = *patch.DueDate
	}
	if patch.Repeat != nil {
		task.Repeat = repeatWithDefaults(*patch.Repeat, task.DueDate)
	}
	if patch.HasParent != nil {
		task.HasParent = patch.HasParent
	}

	if err := s.tasks.PutTask(ctx, householdID, task); err != nil {
		return nil, storageErr("update task", err)
	}

	if patch.Completed != nil && *patch.Completed != task.Completed {
		res, err := s.settler.SetCompletion(ctx, householdID, id, *patch.Completed)
		if err != nil {
			return nil, err
		}
		return &res.Task, nil
	}
	return task, nil
}

// DeleteTask removes the task, and with cascade every instance generated
// from it.
func (s *Service) DeleteTask(ctx context.Context, householdID, id string, cascade bool) (int64, error) {
	defer s.locks.lock(householdID)()

	n, err := s.tasks.DeleteTask(ctx, householdID, id, cascade)
	if err != nil {
		return 0, storageErr("delete task", err)
	}
	if n == 0 {
		return 0, &NotFoundError{Kind: "task", ID: id}
	}
	s.logger.Info("task deleted", "household_id", householdID, "task_id", id, "cascade", cascade, "removed", n)
	return n, nil
}

// SetCompletion completes or reopens a task. See Settler.SetCompletion.
func (s *Service) SetCompletion(ctx context.Context, householdID, taskID string, completed bool) (*Settlement, error) {
	defer s.locks.lock(householdID)()
	return s.settler.SetCompletion(ctx, householdID, taskID, completed)
}

// GenerateFuture expands a stored task up to the current horizon.
func (s *Service) GenerateFuture(ctx context.Context, householdID, taskID string) ([]model.Task, error) {
	defer s.locks.lock(householdID)()

	task, err := s.tasks.GetTask(ctx, householdID, taskID)
	if err != nil {
		return nil, storageErr("get task", err)
	}
	if task == nil {
		return nil, &NotFoundError{Kind: "task", ID: taskID}
	}
	return s.expander.ExpandFutureInstances(ctx, householdID, *task)
}

// DistributeUnassigned hands every open, unassigned task to the allocator in
// due date order.
func (s *Service) DistributeUnassigned(ctx context.Context, householdID string) ([]model.Task, error) {
	defer s.locks.lock(householdID)()

	all, err := s.tasks.ListTasks(ctx, householdID)
	if err != nil {
		return nil, storageErr("list tasks", err)
	}

	var open []model.Task
	for _, t := range all {
		if t.AssignedTo == nil && !t.Completed {
			open = append(open, t)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		return open[i].DueDate.Before(open[j].DueDate)
	})

	if err := s.allocator.Distribute(ctx, householdID, open); err != nil {
		return nil, err
	}
	return open, nil
}

// RefreshHousehold extends every template of the household up to the
// current horizon and returns how many instances were created. Expansion
// resumes after each template's latest instance, so deleted occurrences stay
// deleted. A failing template does not stop the others.
func (s *Service) RefreshHousehold(ctx context.Context, householdID string) (int, error) {
	defer s.locks.lock(householdID)()

	all, err := s.tasks.ListTasks(ctx, householdID)
	if err != nil {
		return 0, storageErr("list tasks", err)
	}

	var created int
	var errs error
	for _, t := range all {
		if !t.IsTemplate() {
			continue
		}
		instances, err := s.expander.ExtendFutureInstances(ctx, householdID, t)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		created += len(instances)
	}
	return created, errs
}

// CreateMember adds a member with zero points.
func (s *Service) CreateMember(ctx context.Context, householdID, name string) (*model.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "name is required"}
	}

	defer s.locks.lock(householdID)()

	m, err := s.members.CreateMember(ctx, householdID, name)
	if err != nil {
		return nil, storageErr("create member", err)
	}
	return m, nil
}

// DeleteMember removes a member. Its tasks are kept and become unassigned.
func (s *Service) DeleteMember(ctx context.Context, householdID, id string) error {
	defer s.locks.lock(householdID)()

	ok, err := s.members.DeleteMember(ctx, householdID, id)
	if err != nil {
		return storageErr("delete member", err)
	}
	if !ok {
		return &NotFoundError{Kind: "member", ID: id}
	}
	s.logger.Info("member deleted", "household_id", householdID, "member_id", id)
	return nil
}

// repeatWithDefaults fills an unset interval with the default and an unset
// next date with due.
func repeatWithDefaults(r model.Repeat, due time.Time) model.Repeat {
	if r.Interval == 0 {
		r.Interval = model.DefaultRepeatInterval
	}
	if r.NextDate.IsZero() {
		r.NextDate = due
	}
	return r
}

func (s *Service) checkRefs(ctx context.Context, householdID string, assignedTo, parentID *string) error {
	if assignedTo != nil {
		m, err := s.members.GetMember(ctx, householdID, *assignedTo)
		if err != nil {
			return storageErr("get member", err)
		}
		if m == nil {
			return &NotFoundError{Kind: "member", ID: *assignedTo}
		}
	}
	if parentID != nil {
		p, err := s.tasks.GetTask(ctx, householdID, *parentID)
		if err != nil {
			return storageErr("get task", err)
		}
		if p == nil {
			return &NotFoundError{Kind: "task", ID: *parentID}
		}
	}
	return nil
}

type householdLock struct {
	mu   sync.Mutex
	refs int
}

// householdLocks hands out one mutex per household. An entry lives only
// while some caller holds or waits on it.
type householdLocks struct {
	mu   sync.Mutex
	byID map[string]*householdLock
}

// lock acquires the household's mutex and returns its release.
func (l *householdLocks) lock(householdID string) func() {
	l.mu.Lock()
	hl, ok := l.byID[householdID]
	if !ok {
		hl = &householdLock{}
		l.byID[householdID] = hl
	}
	hl.refs++
	l.mu.Unlock()

	hl.mu.Lock()
	return func() {
		hl.mu.Unlock()

		l.mu.Lock()
		hl.refs--
		if hl.refs == 0 {
			delete(l.byID, householdID)
		}
		l.mu.Unlock()
	}
}
