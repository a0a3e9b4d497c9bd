package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/task-manager-api/internal/model"
	"github.com/iliyamo/task-manager-api/internal/queue"
	"github.com/iliyamo/task-manager-api/internal/repository"
)

type memUsers struct {
	mu   sync.Mutex
	byID map[string]model.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]model.User{}} }

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memUsers) delete(id string) {
	m.mu.Lock()
	delete(m.byID, id)
	m.mu.Unlock()
}

// memTasks mimics the SQL store: owner scoping, filters, whitelisted
// ordering with an id tiebreaker and LIMIT/OFFSET paging.
type memTasks struct {
	mu    sync.Mutex
	tasks map[string]model.Task
	err   error
}

func newMemTasks() *memTasks { return &memTasks{tasks: map[string]model.Task{}} }

func (m *memTasks) Create(_ context.Context, t *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.tasks[t.ID] = *t
	return nil
}

func (m *memTasks) GetByIDAndOwner(_ context.Context, id, ownerID string) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.CreatedBy != ownerID {
		return model.Task{}, repository.ErrNotFound
	}
	return t, nil
}

func (m *memTasks) Update(_ context.Context, t *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tasks[t.ID]
	if !ok || cur.CreatedBy != t.CreatedBy {
		return repository.ErrNotFound
	}
	m.tasks[t.ID] = *t
	return nil
}

func (m *memTasks) DeleteByIDAndOwner(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.CreatedBy != ownerID {
		return repository.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memTasks) matching(q repository.TaskSearchQuery) []model.Task {
	var out []model.Task
	for _, t := range m.tasks {
		if t.CreatedBy != q.OwnerID {
			continue
		}
		if q.Status != nil && t.Status != *q.Status {
			continue
		}
		if q.Priority != nil && (t.Priority == nil || *t.Priority != *q.Priority) {
			continue
		}
		if q.DueFrom != nil && (t.DueDate == nil || t.DueDate.Before(*q.DueFrom)) {
			continue
		}
		if q.DueTo != nil && (t.DueDate == nil || t.DueDate.After(*q.DueTo)) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (m *memTasks) Search(_ context.Context, q repository.TaskSearchQuery) ([]model.Task, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, 0, m.err
	}
	all := m.matching(q)
	key := func(t model.Task) int64 {
		switch q.SortBy {
		case "updatedAt":
			return t.UpdatedAt.UnixNano()
		case "dueDate":
			if t.DueDate == nil {
				return 0
			}
			return t.DueDate.UnixNano()
		case "priority":
			if t.Priority == nil {
				return 0
			}
			return int64(t.Priority.Rank())
		}
		return t.CreatedAt.UnixNano()
	}
	desc := strings.EqualFold(q.SortOrder, "DESC")
	sort.Slice(all, func(i, j int) bool {
		ki, kj := key(all[i]), key(all[j])
		if ki == kj {
			if desc {
				return all[i].ID > all[j].ID
			}
			return all[i].ID < all[j].ID
		}
		if desc {
			return ki > kj
		}
		return ki < kj
	})
	total := int64(len(all))
	start := (q.Page - 1) * q.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + q.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m *memTasks) CountByOwner(_ context.Context, ownerID string, status *model.TaskStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, t := range m.tasks {
		if t.CreatedBy == ownerID && (status == nil || t.Status == *status) {
			n++
		}
	}
	return n, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.TaskEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev queue.TaskEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.events = append(p.events, ev)
	return p.err
}

// stepClock returns a time source that advances by one second per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}
