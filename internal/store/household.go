package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/sweepy/internal/model"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	err := scanner.Scan(&h.ID, &h.Username, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	h.CreatedAt = h.CreatedAt.UTC()
	return &h, nil
}

const householdCols = `id, username, created_at`

// Create registers a household with a bcrypt hash of its password.
func (s *HouseholdStore) Create(ctx context.Context, username, password string) (*model.Household, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM households WHERE username = ?`, username).Scan(&count); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	h := &model.Household{ID: uuid.NewString(), Username: username, CreatedAt: time.Now().UTC()}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO households (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		h.ID, h.Username, string(hash), h.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return h, nil
}

// Authenticate returns the household whose credentials match, or
// ErrInvalidCredentials.
func (s *HouseholdStore) Authenticate(ctx context.Context, username, password string) (*model.Household, error) {
	var h model.Household
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, created_at, password_hash FROM households WHERE username = ?`, username,
	).Scan(&h.ID, &h.Username, &h.CreatedAt, &hash)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	h.CreatedAt = h.CreatedAt.UTC()
	return &h, nil
}

func (s *HouseholdStore) GetByID(ctx context.Context, id string) (*model.Household, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

// ListIDs returns the id of every household.
func (s *HouseholdStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM households ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list households: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan household id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
