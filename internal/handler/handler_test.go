package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/sweepy/internal/auth"
	"github.com/dukerupert/sweepy/internal/chore"
	"github.com/dukerupert/sweepy/internal/database"
	"github.com/dukerupert/sweepy/internal/store"
)

var testNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	households *store.HouseholdStore
	members    *store.MemberStore
	tasks      *store.TaskStore
	svc        *chore.Service
	taskH      *TaskHandler
	memberH    *MemberHandler
	hid        string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		households: store.NewHouseholdStore(db),
		members:    store.NewMemberStore(db),
		tasks:      store.NewTaskStore(db),
	}
	h, err := f.households.Create(context.Background(), "smiths", "secret")
	require.NoError(t, err)
	f.hid = h.ID

	f.svc = chore.NewService(f.tasks, f.members, chore.FixedClock(testNow), discardLogger())
	f.taskH = NewTaskHandler(f.svc, nil, discardLogger())
	f.memberH = NewMemberHandler(f.svc, f.members, nil, discardLogger())
	return f
}

// do serves one request as the fixture's household.
func (f *fixture) do(h http.HandlerFunc, method, target, body string, pathID string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{HouseholdID: f.hid}))
	if pathID != "" {
		req.SetPathValue("id", pathID)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func (f *fixture) addMember(t *testing.T, name string) string {
	t.Helper()
	m, err := f.members.CreateMember(context.Background(), f.hid, name)
	require.NoError(t, err)
	return m.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}
