package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/sweepy/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var assignedTo, hasParent sql.NullString
	err := scanner.Scan(
		&t.ID, &t.HouseholdID, &t.Title, &t.Difficulty, &assignedTo, &t.Completed,
		&t.DueDate, &t.Repeat.Enabled, &t.Repeat.Interval, &t.Repeat.NextDate,
		&hasParent, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if assignedTo.Valid {
		t.AssignedTo = &assignedTo.String
	}
	if hasParent.Valid {
		t.HasParent = &hasParent.String
	}
	t.DueDate = t.DueDate.UTC()
	t.Repeat.NextDate = t.Repeat.NextDate.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

const taskCols = `id, household_id, title, difficulty, assigned_to, completed,
	due_date, repeat_enabled, repeat_interval, repeat_next, has_parent, created_at`

const upsertTask = `INSERT INTO tasks (` + taskCols + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		difficulty = excluded.difficulty,
		assigned_to = excluded.assigned_to,
		completed = excluded.completed,
		due_date = excluded.due_date,
		repeat_enabled = excluded.repeat_enabled,
		repeat_interval = excluded.repeat_interval,
		repeat_next = excluded.repeat_next,
		has_parent = excluded.has_parent
	WHERE tasks.household_id = excluded.household_id`

func (s *TaskStore) ListTasks(ctx context.Context, householdID string) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE household_id = ? ORDER BY due_date ASC, created_at ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) GetTask(ctx context.Context, householdID, id string) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE household_id = ? AND id = ?`,
		householdID, id,
	)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) PutTask(ctx context.Context, householdID string, task *model.Task) error {
	task.HouseholdID = householdID
	return putTask(ctx, s.db, task)
}

// PutTasks writes every task in one transaction.
func (s *TaskStore) PutTasks(ctx context.Context, householdID string, tasks []model.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i := range tasks {
		tasks[i].HouseholdID = householdID
		if err := putTask(ctx, tx, &tasks[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func putTask(ctx context.Context, db execer, t *model.Task) error {
	_, err := db.ExecContext(ctx, upsertTask,
		t.ID, t.HouseholdID, t.Title, t.Difficulty, nullString(t.AssignedTo), t.Completed,
		t.DueDate.UTC(), t.Repeat.Enabled, t.Repeat.Interval, t.Repeat.NextDate.UTC(),
		nullString(t.HasParent), t.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("put task %s: %w", t.ID, err)
	}
	return nil
}

// DeleteTask removes the task, and with cascade the tasks generated from it.
func (s *TaskStore) DeleteTask(ctx context.Context, householdID, id string, cascade bool) (int64, error) {
	query := `DELETE FROM tasks WHERE household_id = ? AND id = ?`
	args := []any{householdID, id}
	if cascade {
		query = `DELETE FROM tasks WHERE household_id = ? AND (id = ? OR has_parent = ?)`
		args = append(args, id)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
