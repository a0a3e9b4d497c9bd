package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/task-manager-api/internal/model"
	"github.com/iliyamo/task-manager-api/internal/queue"
	"github.com/iliyamo/task-manager-api/internal/repository"
)

const (
	DefaultPage      = 1
	DefaultLimit     = 10
	MaxLimit         = 100
	DefaultSortBy    = "createdAt"
	DefaultSortOrder = "DESC"
)

// SortFields lists the accepted sortBy values.
var SortFields = []string{"createdAt", "updatedAt", "dueDate", "priority"}

// TaskStore is the owner-scoped persistence used by TaskService.
type TaskStore interface {
	Create(ctx context.Context, t *model.Task) error
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (model.Task, error)
	Update(ctx context.Context, t *model.Task) error
	DeleteByIDAndOwner(ctx context.Context, id, ownerID string) error
	Search(ctx context.Context, q repository.TaskSearchQuery) ([]model.Task, int64, error)
	CountByOwner(ctx context.Context, ownerID string, status *model.TaskStatus) (int64, error)
}

// EventPublisher receives task lifecycle events.  Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.TaskEvent) error
}

// TaskFilters are the optional listing predicates.
type TaskFilters struct {
	Status      *model.TaskStatus
	Priority    *model.TaskPriority
	DueDateFrom *time.Time
	DueDateTo   *time.Time
}

// TaskQueryOptions control paging and ordering.  Zero values select the
// defaults (page 1, limit 10, createdAt DESC).
type TaskQueryOptions struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// TaskPage is one page of a listing.
type TaskPage struct {
	Tasks []model.Task
	Meta  model.PageMeta
}

type CreateTaskInput struct {
	Title       string
	Description *string
	Status      *model.TaskStatus
	Priority    *model.TaskPriority
	DueDate     *time.Time
}

// UpdateTaskInput is a partial update: nil fields are left untouched.
// ClearDescription and ClearDueDate null the field when the client sent an
// explicit null.
type UpdateTaskInput struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Status           *model.TaskStatus
	Priority         *model.TaskPriority
	DueDate          *time.Time
	ClearDueDate     bool
}

// TaskService is the owner-scoped task query engine.  ownerID always comes
// from the verified access token.
type TaskService struct {
	tasks  TaskStore
	events EventPublisher
	now    func() time.Time
	newID  func() string
}

func NewTaskService(tasks TaskStore, events EventPublisher) *TaskService {
	return &TaskService{
		tasks:  tasks,
		events: events,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// NormalizeOptions applies defaults and bounds.
func NormalizeOptions(o TaskQueryOptions) TaskQueryOptions {
	if o.Page < 1 {
		o.Page = DefaultPage
	}
	if o.Limit < 1 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	valid := false
	for _, f := range SortFields {
		if o.SortBy == f {
			valid = true
			break
		}
	}
	if !valid {
		o.SortBy = DefaultSortBy
	}
	switch strings.ToUpper(o.SortOrder) {
	case "ASC":
		o.SortOrder = "ASC"
	default:
		o.SortOrder = DefaultSortOrder
	}
	return o
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if limit < 1 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// List returns one page of the owner's tasks matching filters.
func (s *TaskService) List(ctx context.Context, ownerID string, f TaskFilters, o TaskQueryOptions) (_ TaskPage, err error) {
	ctx, span := tracer.Start(ctx, "TaskService.List")
	defer func() { endSpan(span, err) }()

	o = NormalizeOptions(o)
	items, total, err := s.tasks.Search(ctx, repository.TaskSearchQuery{
		OwnerID:   ownerID,
		Status:    f.Status,
		Priority:  f.Priority,
		DueFrom:   f.DueDateFrom,
		DueTo:     f.DueDateTo,
		SortBy:    o.SortBy,
		SortOrder: o.SortOrder,
		Page:      o.Page,
		Limit:     o.Limit,
	})
	if err != nil {
		return TaskPage{}, fmt.Errorf("search tasks: %w", err)
	}
	span.SetAttributes(attribute.Int64("tasks.total", total), attribute.Int("tasks.page", o.Page))
	return TaskPage{
		Tasks: items,
		Meta: model.PageMeta{
			Page:       o.Page,
			Limit:      o.Limit,
			Total:      total,
			TotalPages: TotalPages(total, o.Limit),
		},
	}, nil
}

// Create persists a task owned by ownerID and returns the stored record.
func (s *TaskService) Create(ctx context.Context, ownerID string, in CreateTaskInput) (_ model.Task, err error) {
	ctx, span := tracer.Start(ctx, "TaskService.Create")
	defer func() { endSpan(span, err) }()

	now := s.now().UTC().Truncate(time.Millisecond)
	t := model.Task{
		ID:          s.newID(),
		Title:       strings.TrimSpace(in.Title),
		Description: trimmed(in.Description),
		Status:      model.StatusPending,
		Priority:    in.Priority,
		DueDate:     truncated(in.DueDate),
		CreatedBy:   ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if t.Priority == nil {
		p := model.PriorityMedium
		t.Priority = &p
	}
	if err := s.tasks.Create(ctx, &t); err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.publish(ctx, queue.TaskCreated, t)
	return t, nil
}

// Get returns the task if it exists and is owned by ownerID.
func (s *TaskService) Get(ctx context.Context, id, ownerID string) (_ model.Task, err error) {
	ctx, span := tracer.Start(ctx, "TaskService.Get")
	defer func() { endSpan(span, err) }()

	t, err := s.tasks.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// Update applies the provided fields to an owned task.  Concurrent updates
// are last-write-wins.
func (s *TaskService) Update(ctx context.Context, id, ownerID string, in UpdateTaskInput) (_ model.Task, err error) {
	ctx, span := tracer.Start(ctx, "TaskService.Update")
	defer func() { endSpan(span, err) }()

	t, err := s.tasks.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, fmt.Errorf("get task: %w", err)
	}

	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.ClearDescription {
		t.Description = nil
	} else if in.Description != nil {
		t.Description = trimmed(in.Description)
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		p := *in.Priority
		t.Priority = &p
	}
	if in.ClearDueDate {
		t.DueDate = nil
	} else if in.DueDate != nil {
		t.DueDate = truncated(in.DueDate)
	}
	t.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)

	if err := s.tasks.Update(ctx, &t); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, fmt.Errorf("update task: %w", err)
	}
	s.publish(ctx, queue.TaskUpdated, t)
	return t, nil
}

// Delete removes an owned task.
func (s *TaskService) Delete(ctx context.Context, id, ownerID string) (err error) {
	ctx, span := tracer.Start(ctx, "TaskService.Delete")
	defer func() { endSpan(span, err) }()

	if err := s.tasks.DeleteByIDAndOwner(ctx, id, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	s.publish(ctx, queue.TaskDeleted, model.Task{ID: id, CreatedBy: ownerID})
	return nil
}

// Stats counts the owner's tasks in total and per status.  The four counts
// run concurrently and independently.
func (s *TaskService) Stats(ctx context.Context, ownerID string) (_ model.TaskStats, err error) {
	ctx, span := tracer.Start(ctx, "TaskService.Stats")
	defer func() { endSpan(span, err) }()

	var stats model.TaskStats
	pending, inProgress, completed := model.StatusPending, model.StatusInProgress, model.StatusCompleted

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, status *model.TaskStatus) {
		g.Go(func() error {
			n, err := s.tasks.CountByOwner(gctx, ownerID, status)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	count(&stats.Total, nil)
	count(&stats.Pending, &pending)
	count(&stats.InProgress, &inProgress)
	count(&stats.Completed, &completed)

	if err := g.Wait(); err != nil {
		return model.TaskStats{}, fmt.Errorf("count tasks: %w", err)
	}
	return stats, nil
}

// publish hands a lifecycle event to the publisher on a context detached
// from the request.  Failures are logged only.
func (s *TaskService) publish(ctx context.Context, typ queue.TaskEventType, t model.Task) {
	if s.events == nil {
		return
	}
	ev := queue.TaskEvent{
		Type:       typ,
		TaskID:     t.ID,
		OwnerID:    t.CreatedBy,
		Title:      t.Title,
		Status:     string(t.Status),
		OccurredAt: s.now().UTC(),
	}
	if t.Priority != nil {
		ev.Priority = string(*t.Priority)
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		log.Printf("task-events: %s %s not published: %v", typ, t.ID, err)
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func truncated(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Millisecond)
	return &v
}
