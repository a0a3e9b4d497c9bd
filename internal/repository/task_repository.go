package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/task-manager-api/internal/model"
)

// TaskRepo encapsulates all queries on the tasks table.  Every read and
// write except Create is scoped by created_by.
type TaskRepo struct {
	db *sql.DB
}

func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

const taskColumns = "id, title, description, status, priority, due_date, created_by, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(s rowScanner) (model.Task, error) {
	var (
		t        model.Task
		desc     sql.NullString
		priority sql.NullString
		due      sql.NullTime
		status   string
	)
	if err := s.Scan(&t.ID, &t.Title, &desc, &status, &priority, &due, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return model.Task{}, err
	}
	t.Status = model.TaskStatus(status)
	if desc.Valid {
		d := desc.String
		t.Description = &d
	}
	if priority.Valid {
		p := model.TaskPriority(priority.String)
		t.Priority = &p
	}
	if due.Valid {
		d := due.Time.UTC()
		t.DueDate = &d
	}
	return t, nil
}

func nullable[T ~string](v *T) any {
	if v == nil {
		return nil
	}
	return string(*v)
}

func taskArgs(t *model.Task) (desc, priority, due any) {
	desc = nullable(t.Description)
	priority = nullable(t.Priority)
	if t.DueDate != nil {
		due = t.DueDate.UTC()
	}
	return desc, priority, due
}

// Create inserts a task.  The record is fully persisted before returning.
func (r *TaskRepo) Create(ctx context.Context, t *model.Task) error {
	desc, priority, due := taskArgs(t)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, status, priority, due_date, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, desc, string(t.Status), priority, due, t.CreatedBy, t.CreatedAt, t.UpdatedAt)
	return err
}

// GetByIDAndOwner fetches a task only if it belongs to ownerID.
func (r *TaskRepo) GetByIDAndOwner(ctx context.Context, id, ownerID string) (model.Task, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ? AND created_by = ?", id, ownerID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, ErrNotFound
	}
	return t, err
}

// Update overwrites the mutable columns of an owned task.  created_by is
// never written.  Returns ErrNotFound when no owned row matched.
func (r *TaskRepo) Update(ctx context.Context, t *model.Task) error {
	desc, priority, due := taskArgs(t)
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks
		 SET title = ?, description = ?, status = ?, priority = ?, due_date = ?, updated_at = ?
		 WHERE id = ? AND created_by = ?`,
		t.Title, desc, string(t.Status), priority, due, t.UpdatedAt, t.ID, t.CreatedBy)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByIDAndOwner removes an owned task.
func (r *TaskRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ? AND created_by = ?", id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByOwner counts the owner's tasks, optionally restricted to one status.
func (r *TaskRepo) CountByOwner(ctx context.Context, ownerID string, status *model.TaskStatus) (int64, error) {
	cond, args := buildTaskWhere(TaskSearchQuery{OwnerID: ownerID, Status: status})
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks WHERE "+cond, args...).Scan(&n)
	return n, err
}
