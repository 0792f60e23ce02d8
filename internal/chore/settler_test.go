package chore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/sweepy/internal/model"
)

var settleNow = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func newTestSettler(st *memStore) *Settler {
	return NewSettler(st, st, FixedClock(settleNow), sequentialIDs(), discardLogger())
}

func TestSetCompletionAwardsPoints(t *testing.T) {
	for _, difficulty := range []int{1, 2, 3} {
		st := newMemStore()
		st.seedMember("h1", "ann", 5)
		st.seedTask("h1", model.Task{ID: "dishes", Title: "Dishes", Difficulty: difficulty, AssignedTo: ptr("ann"), DueDate: settleNow})
		s := newTestSettler(st)

		res, err := s.SetCompletion(context.Background(), "h1", "dishes", true)
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, 10*difficulty, res.PointsDelta)
		assert.True(t, res.Task.Completed)
		require.NotNil(t, res.Member)
		assert.Equal(t, 5+10*difficulty, res.Member.Points)
		assert.Equal(t, 5+10*difficulty, st.member("h1", "ann").Points)

		res, err = s.SetCompletion(context.Background(), "h1", "dishes", false)
		require.NoError(t, err)
		assert.Equal(t, -10*difficulty, res.PointsDelta)
		assert.False(t, res.Task.Completed)
		assert.Equal(t, 5, st.member("h1", "ann").Points)
	}
}

func TestSetCompletionClampsAtZero(t *testing.T) {
	st := newMemStore()
	st.seedMember("h1", "ann", 5)
	st.seedTask("h1", model.Task{ID: "mop", Difficulty: 1, AssignedTo: ptr("ann"), Completed: true, DueDate: settleNow})

	res, err := newTestSettler(st).SetCompletion(context.Background(), "h1", "mop", false)
	require.NoError(t, err)
	assert.Equal(t, -10, res.PointsDelta)
	assert.Equal(t, 0, res.Member.Points)
	assert.Equal(t, 0, st.member("h1", "ann").Points)
}

func TestSetCompletionRepeatIsNoop(t *testing.T) {
	st := newMemStore()
	st.seedMember("h1", "ann", 0)
	st.seedTask("h1", model.Task{
		ID: "trash", Difficulty: 2, AssignedTo: ptr("ann"), DueDate: settleNow,
		Repeat: model.Repeat{Enabled: true, Interval: 7},
	})
	s := newTestSettler(st)

	_, err := s.SetCompletion(context.Background(), "h1", "trash", true)
	require.NoError(t, err)
	res, err := s.SetCompletion(context.Background(), "h1", "trash", true)
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.Zero(t, res.PointsDelta)
	assert.Nil(t, res.Successor)
	assert.Equal(t, 20, st.member("h1", "ann").Points)
	assert.Len(t, st.children("h1", "trash"), 1)
}

func TestSetCompletionUnassigned(t *testing.T) {
	st := newMemStore()
	st.seedMember("h1", "ann", 3)
	st.seedTask("h1", model.Task{ID: "dust", Difficulty: 3, DueDate: settleNow})

	res, err := newTestSettler(st).SetCompletion(context.Background(), "h1", "dust", true)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Nil(t, res.Member)
	assert.Equal(t, 3, st.member("h1", "ann").Points)
}

func TestSetCompletionMissingAssignee(t *testing.T) {
	st := newMemStore()
	st.seedTask("h1", model.Task{ID: "dust", Difficulty: 1, AssignedTo: ptr("gone"), DueDate: settleNow})

	res, err := newTestSettler(st).SetCompletion(context.Background(), "h1", "dust", true)
	require.NoError(t, err)
	assert.True(t, res.Task.Completed)
	assert.Nil(t, res.Member)
}

func TestSetCompletionCreatesSuccessor(t *testing.T) {
	st := newMemStore()
	st.seedMember("h1", "ann", 0)
	st.seedTask("h1", model.Task{
		ID: "tpl", Title: "Laundry", Difficulty: 2, AssignedTo: ptr("ann"),
		DueDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Repeat:  model.Repeat{Enabled: true, Interval: 3},
	})

	res, err := newTestSettler(st).SetCompletion(context.Background(), "h1", "tpl", true)
	require.NoError(t, err)
	require.NotNil(t, res.Successor)

	next := res.Successor
	assert.True(t, next.DueDate.Equal(settleNow.AddDate(0, 0, 3)))
	assert.Equal(t, "Laundry", next.Title)
	assert.Equal(t, 2, next.Difficulty)
	assert.False(t, next.Completed)
	require.NotNil(t, next.AssignedTo)
	assert.Equal(t, "ann", *next.AssignedTo)
	require.NotNil(t, next.HasParent)
	assert.Equal(t, "tpl", *next.HasParent)
	assert.True(t, next.Repeat.Enabled)
	assert.Equal(t, 3, next.Repeat.Interval)

	stored, err := st.GetTask(context.Background(), "h1", next.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestSetCompletionSuccessorOfInstanceKeepsRoot(t *testing.T) {
	st := newMemStore()
	st.seedTask("h1", model.Task{
		ID: "tpl", Difficulty: 1, DueDate: date(2024, 3, 1),
		Repeat: model.Repeat{Enabled: true, Interval: 7},
	})
	st.seedTask("h1", model.Task{
		ID: "inst", Difficulty: 1, DueDate: date(2024, 3, 8), HasParent: ptr("tpl"),
		Repeat: model.Repeat{Enabled: true, Interval: 7},
	})

	res, err := newTestSettler(st).SetCompletion(context.Background(), "h1", "inst", true)
	require.NoError(t, err)
	require.NotNil(t, res.Successor)
	assert.Equal(t, "tpl", *res.Successor.HasParent)
	assert.Nil(t, res.Successor.AssignedTo)
}

func TestSetCompletionSkipsScheduledSuccessor(t *testing.T) {
	st := newMemStore()
	st.seedTask("h1", model.Task{
		ID: "tpl", Difficulty: 1, DueDate: date(2024, 3, 1),
		Repeat: model.Repeat{Enabled: true, Interval: 7},
	})
	// Already expanded onto the successor's day.
	st.seedTask("h1", model.Task{
		ID: "inst", Difficulty: 1, DueDate: date(2024, 3, 17), HasParent: ptr("tpl"),
		Repeat: model.Repeat{Enabled: true, Interval: 7},
	})

	res, err := newTestSettler(st).SetCompletion(context.Background(), "h1", "tpl", true)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Nil(t, res.Successor)
	assert.Len(t, st.children("h1", "tpl"), 1)
}

func TestSetCompletionReopenCreatesNoSuccessor(t *testing.T) {
	st := newMemStore()
	st.seedTask("h1", model.Task{
		ID: "tpl", Difficulty: 1, Completed: true, DueDate: date(2024, 3, 1),
		Repeat: model.Repeat{Enabled: true, Interval: 7},
	})

	res, err := newTestSettler(st).SetCompletion(context.Background(), "h1", "tpl", false)
	require.NoError(t, err)
	assert.Nil(t, res.Successor)
	assert.Empty(t, st.children("h1", "tpl"))
}

func TestSetCompletionNotFound(t *testing.T) {
	st := newMemStore()
	_, err := newTestSettler(st).SetCompletion(context.Background(), "h1", "nope", true)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "task", nf.Kind)
	assert.True(t, IsNotFound(err))
}

func TestSetCompletionStorageError(t *testing.T) {
	st := newMemStore()
	st.seedTask("h1", model.Task{
		ID: "tpl", Difficulty: 1, DueDate: date(2024, 3, 1),
		Repeat: model.Repeat{Enabled: true, Interval: 7},
	})
	st.failList = true

	_, err := newTestSettler(st).SetCompletion(context.Background(), "h1", "tpl", true)
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "list tasks", se.Op)
}
