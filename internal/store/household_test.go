package store

import (
	"context"
	"errors"
	"testing"
)

func TestHouseholdCreate(t *testing.T) {
	hs := NewHouseholdStore(setupTestDB(t))

	h, err := hs.Create(context.Background(), "smiths", "hunter2")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	if h.Username != "smiths" {
		t.Errorf("username = %q, want %q", h.Username, "smiths")
	}
	if h.ID == "" {
		t.Error("expected non-empty ID")
	}

	got, err := hs.GetByID(context.Background(), h.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got == nil || got.Username != "smiths" {
		t.Errorf("GetByID = %+v, want smiths", got)
	}
}

func TestHouseholdCreateDuplicate(t *testing.T) {
	hs := NewHouseholdStore(setupTestDB(t))

	if _, err := hs.Create(context.Background(), "smiths", "a"); err != nil {
		t.Fatalf("create household: %v", err)
	}
	_, err := hs.Create(context.Background(), "smiths", "b")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("err = %v, want ErrUsernameTaken", err)
	}
}

func TestHouseholdGetByIDNotFound(t *testing.T) {
	hs := NewHouseholdStore(setupTestDB(t))

	h, err := hs.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if h != nil {
		t.Errorf("expected nil, got %+v", h)
	}
}

func TestHouseholdAuthenticate(t *testing.T) {
	hs := NewHouseholdStore(setupTestDB(t))
	created, err := hs.Create(context.Background(), "smiths", "hunter2")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}

	h, err := hs.Authenticate(context.Background(), "smiths", "hunter2")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if h.ID != created.ID {
		t.Errorf("id = %q, want %q", h.ID, created.ID)
	}

	if _, err := hs.Authenticate(context.Background(), "smiths", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := hs.Authenticate(context.Background(), "nobody", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestHouseholdListIDs(t *testing.T) {
	db := setupTestDB(t)
	a := createHousehold(t, db, "a")
	b := createHousehold(t, db, "b")

	ids, err := NewHouseholdStore(db).ListIDs(context.Background())
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("len = %d, want 2", len(ids))
	}
	seen := map[string]bool{ids[0]: true, ids[1]: true}
	if !seen[a] || !seen[b] {
		t.Errorf("ids = %v, want %s and %s", ids, a, b)
	}
}
