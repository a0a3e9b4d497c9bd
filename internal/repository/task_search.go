package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/task-manager-api/internal/model"
)

// TaskSearchQuery is one owner-scoped listing request.  OwnerID is
// mandatory; the other filters apply only when set.  Page and Limit are
// expected to be normalised by the caller (page >= 1, limit >= 1).
type TaskSearchQuery struct {
	OwnerID   string
	Status    *model.TaskStatus
	Priority  *model.TaskPriority
	DueFrom   *time.Time
	DueTo     *time.Time
	SortBy    string // createdAt | updatedAt | dueDate | priority
	SortOrder string // ASC | DESC
	Page      int
	Limit     int
}

// sortExpressions whitelists the sortable columns; user input only selects
// a key and is never interpolated.
var sortExpressions = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"dueDate":   "due_date",
	"priority":  "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 ELSE 0 END",
}

// buildTaskWhere composes the predicate shared by the count and data queries.
func buildTaskWhere(q TaskSearchQuery) (string, []any) {
	where := []string{"created_by = ?"}
	args := []any{q.OwnerID}

	if q.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*q.Status))
	}
	if q.Priority != nil {
		where = append(where, "priority = ?")
		args = append(args, string(*q.Priority))
	}
	if q.DueFrom != nil {
		where = append(where, "due_date >= ?")
		args = append(args, q.DueFrom.UTC())
	}
	if q.DueTo != nil {
		where = append(where, "due_date <= ?")
		args = append(args, q.DueTo.UTC())
	}
	return strings.Join(where, " AND "), args
}

// buildTaskOrder returns the ORDER BY clause.  Unknown keys fall back to
// created_at DESC.  id breaks ties so consecutive pages never overlap.
func buildTaskOrder(sortBy, sortOrder string) string {
	expr, ok := sortExpressions[sortBy]
	if !ok {
		expr = sortExpressions["createdAt"]
	}
	dir := "DESC"
	if strings.EqualFold(sortOrder, "ASC") {
		dir = "ASC"
	}
	return expr + " " + dir + ", id " + dir
}

func (q TaskSearchQuery) offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Search returns one page of the owner's tasks plus the total number of
// matching rows ignoring paging.
func (r *TaskRepo) Search(ctx context.Context, q TaskSearchQuery) ([]model.Task, int64, error) {
	cond, args := buildTaskWhere(q)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := "SELECT " + taskColumns + " FROM tasks WHERE " + cond +
		" ORDER BY " + buildTaskOrder(q.SortBy, q.SortOrder) +
		" LIMIT ? OFFSET ?"
	argsData := append(append([]any{}, args...), q.Limit, q.offset())

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Task, 0, q.Limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
