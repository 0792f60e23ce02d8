package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/sweepy/internal/model"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	err := scanner.Scan(&m.ID, &m.HouseholdID, &m.Name, &m.Points, &m.SortOrder, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

const memberCols = `id, household_id, name, points, sort_order, created_at`

func (s *MemberStore) CreateMember(ctx context.Context, householdID, name string) (*model.Member, error) {
	var maxOrder int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order), -1) FROM members WHERE household_id = ?`, householdID,
	).Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO members (id, household_id, name, points, sort_order, created_at) VALUES (?, ?, ?, 0, ?, ?)`,
		id, householdID, name, maxOrder+1, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	return s.GetMember(ctx, householdID, id)
}

// ListMembers returns the household's members in their stable sort order.
func (s *MemberStore) ListMembers(ctx context.Context, householdID string) ([]model.Member, error) {
	return s.list(ctx, `SELECT `+memberCols+` FROM members WHERE household_id = ? ORDER BY sort_order ASC, created_at ASC, id ASC`, householdID)
}

// Leaderboard returns the household's members by points, highest first.
func (s *MemberStore) Leaderboard(ctx context.Context, householdID string) ([]model.Member, error) {
	return s.list(ctx, `SELECT `+memberCols+` FROM members WHERE household_id = ? ORDER BY points DESC, sort_order ASC`, householdID)
}

func (s *MemberStore) list(ctx context.Context, query, householdID string) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *MemberStore) GetMember(ctx context.Context, householdID, id string) (*model.Member, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memberCols+` FROM members WHERE household_id = ? AND id = ?`, householdID, id,
	)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// AdjustPoints adds delta to the member's points, never going below zero.
func (s *MemberStore) AdjustPoints(ctx context.Context, householdID, id string, delta int) (*model.Member, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE members SET points = MAX(0, points + ?) WHERE household_id = ? AND id = ?`,
		delta, householdID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("adjust points: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetMember(ctx, householdID, id)
}

// DeleteMember removes the member and unassigns its tasks. It reports false
// when the member does not exist.
func (s *MemberStore) DeleteMember(ctx context.Context, householdID, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET assigned_to = NULL WHERE household_id = ? AND assigned_to = ?`, householdID, id,
	); err != nil {
		return false, fmt.Errorf("unassign tasks: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM members WHERE household_id = ? AND id = ?`, householdID, id)
	if err != nil {
		return false, fmt.Errorf("delete member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	return true, tx.Commit()
}

// UpdateSortOrder renumbers the household's members in the given order.
// Ids of other households are ignored.
func (s *MemberStore) UpdateSortOrder(ctx context.Context, householdID string, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE members SET sort_order = ? WHERE household_id = ? AND id = ?`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, i, householdID, id); err != nil {
			return fmt.Errorf("update sort order for id %s: %w", id, err)
		}
	}

	return tx.Commit()
}
