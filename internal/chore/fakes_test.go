package chore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dukerupert/sweepy/internal/model"
)

var errBoom = errors.New("boom")

// memStore is an in-memory TaskStore and MemberDirectory keyed by household.
type memStore struct {
	mu      sync.Mutex
	tasks   map[string][]model.Task
	members map[string][]model.Member
	nextID  int

	failPutTasks bool
	failList     bool
	putTasksCall int
}

func newMemStore() *memStore {
	return &memStore{
		tasks:   make(map[string][]model.Task),
		members: make(map[string][]model.Member),
	}
}

func (s *memStore) ListTasks(_ context.Context, hid string) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList {
		return nil, errBoom
	}
	return append([]model.Task(nil), s.tasks[hid]...), nil
}

func (s *memStore) GetTask(_ context.Context, hid, id string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks[hid] {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, nil
}

func (s *memStore) PutTask(_ context.Context, hid string, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(hid, *task)
	return nil
}

func (s *memStore) PutTasks(_ context.Context, hid string, tasks []model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putTasksCall++
	if s.failPutTasks {
		return errBoom
	}
	for _, t := range tasks {
		s.put(hid, t)
	}
	return nil
}

func (s *memStore) put(hid string, task model.Task) {
	task.HouseholdID = hid
	for i, t := range s.tasks[hid] {
		if t.ID == task.ID {
			s.tasks[hid][i] = task
			return
		}
	}
	s.tasks[hid] = append(s.tasks[hid], task)
}

func (s *memStore) DeleteTask(_ context.Context, hid, id string, cascade bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []model.Task
	var n int64
	for _, t := range s.tasks[hid] {
		if t.ID == id || (cascade && t.HasParent != nil && *t.HasParent == id) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	s.tasks[hid] = kept
	return n, nil
}

func (s *memStore) ListMembers(_ context.Context, hid string) ([]model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := append([]model.Member(nil), s.members[hid]...)
	sort.SliceStable(members, func(i, j int) bool { return members[i].SortOrder < members[j].SortOrder })
	return members, nil
}

func (s *memStore) GetMember(_ context.Context, hid, id string) (*model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members[hid] {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, nil
}

func (s *memStore) AdjustPoints(_ context.Context, hid, id string, delta int) (*model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.members[hid] {
		if m.ID == id {
			s.members[hid][i].Points = max(0, m.Points+delta)
			out := s.members[hid][i]
			return &out, nil
		}
	}
	return nil, nil
}

func (s *memStore) CreateMember(_ context.Context, hid, name string) (*model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m := model.Member{
		ID:          fmt.Sprintf("m%d", s.nextID),
		HouseholdID: hid,
		Name:        name,
		SortOrder:   len(s.members[hid]),
	}
	s.members[hid] = append(s.members[hid], m)
	return &m, nil
}

func (s *memStore) DeleteMember(_ context.Context, hid, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []model.Member
	found := false
	for _, m := range s.members[hid] {
		if m.ID == id {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return false, nil
	}
	s.members[hid] = kept
	for i, t := range s.tasks[hid] {
		if t.AssignedTo != nil && *t.AssignedTo == id {
			s.tasks[hid][i].AssignedTo = nil
		}
	}
	return true, nil
}

// seedMember adds a member with the given points in insertion order.
func (s *memStore) seedMember(hid, id string, points int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[hid] = append(s.members[hid], model.Member{
		ID: id, HouseholdID: hid, Name: id, Points: points, SortOrder: len(s.members[hid]),
	})
}

func (s *memStore) seedTask(hid string, t model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(hid, t)
}

func (s *memStore) member(hid, id string) model.Member {
	m, _ := s.GetMember(context.Background(), hid, id)
	return *m
}

func (s *memStore) children(hid, parentID string) []model.Task {
	var out []model.Task
	for _, t := range s.tasks[hid] {
		if t.HasParent != nil && *t.HasParent == parentID {
			out = append(out, t)
		}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
}

func ptr[T any](v T) *T { return &v }

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
