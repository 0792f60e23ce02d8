package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dukerupert/sweepy/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createHousehold registers a household and returns its id.
func createHousehold(t *testing.T, db *sql.DB, username string) string {
	t.Helper()
	h, err := NewHouseholdStore(db).Create(context.Background(), username, "secret")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	return h.ID
}
