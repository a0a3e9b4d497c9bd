package dto

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/iliyamo/task-manager-api/internal/model"
	"github.com/iliyamo/task-manager-api/internal/service"
	"github.com/iliyamo/task-manager-api/internal/validation"
)

type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"trimmed,max=100"`
	Description *string `json:"description" validate:"omitnil,max=500"`
	Status      *string `json:"status" validate:"omitnil,oneof=pending in_progress completed"`
	Priority    *string `json:"priority" validate:"omitnil,oneof=low medium high"`
	DueDate     *string `json:"dueDate" validate:"omitnil,iso8601,notpast"`
}

func (r *CreateTaskRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = trimPtr(r.Description)
}

// Input converts a validated request.
func (r CreateTaskRequest) Input() service.CreateTaskInput {
	in := service.CreateTaskInput{Title: r.Title, Description: r.Description}
	if r.Status != nil {
		s := model.TaskStatus(*r.Status)
		in.Status = &s
	}
	if r.Priority != nil {
		p := model.TaskPriority(*r.Priority)
		in.Priority = &p
	}
	if r.DueDate != nil {
		if t, err := validation.ParseTime(*r.DueDate); err == nil {
			in.DueDate = &t
		}
	}
	return in
}

// UpdateTaskRequest is a partial update.  A field sent as JSON null decodes
// to nil like an absent one; Nulls records which fields were explicitly null.
type UpdateTaskRequest struct {
	Title       *string `json:"title" validate:"omitnil,trimmed,max=100"`
	Description *string `json:"description" validate:"omitnil,max=500"`
	Status      *string `json:"status" validate:"omitnil,oneof=pending in_progress completed"`
	Priority    *string `json:"priority" validate:"omitnil,oneof=low medium high"`
	DueDate     *string `json:"dueDate" validate:"omitnil,iso8601,notpast"`

	Nulls map[string]bool `json:"-"`
}

// DecodeUpdateTask parses body into an UpdateTaskRequest and records the
// explicit nulls.
func DecodeUpdateTask(body []byte) (UpdateTaskRequest, error) {
	var req UpdateTaskRequest
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return UpdateTaskRequest{}, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return UpdateTaskRequest{}, err
	}
	req.Nulls = map[string]bool{}
	for k, v := range raw {
		if string(bytes.TrimSpace(v)) == "null" {
			req.Nulls[k] = true
		}
	}
	return req, nil
}

func (r *UpdateTaskRequest) Normalize() {
	if r.Title != nil {
		t := strings.TrimSpace(*r.Title)
		r.Title = &t
	}
	r.Description = trimPtr(r.Description)
}

func (r UpdateTaskRequest) Input() service.UpdateTaskInput {
	in := service.UpdateTaskInput{
		Title:            r.Title,
		Description:      r.Description,
		ClearDescription: r.Nulls["description"],
		ClearDueDate:     r.Nulls["dueDate"],
	}
	if r.Status != nil {
		s := model.TaskStatus(*r.Status)
		in.Status = &s
	}
	if r.Priority != nil {
		p := model.TaskPriority(*r.Priority)
		in.Priority = &p
	}
	if r.DueDate != nil {
		if t, err := validation.ParseTime(*r.DueDate); err == nil {
			in.DueDate = &t
		}
	}
	return in
}

// TaskListQuery is the query string of GET /tasks.
type TaskListQuery struct {
	Status      string `query:"status" validate:"omitempty,oneof=pending in_progress completed"`
	Priority    string `query:"priority" validate:"omitempty,oneof=low medium high"`
	DueDateFrom string `query:"dueDateFrom" validate:"omitempty,iso8601"`
	DueDateTo   string `query:"dueDateTo" validate:"omitempty,iso8601"`
	Page        *int   `query:"page" validate:"omitnil,min=1"`
	Limit       *int   `query:"limit" validate:"omitnil,min=1,max=100"`
	SortBy      string `query:"sortBy" validate:"omitempty,oneof=createdAt updatedAt dueDate priority"`
	SortOrder   string `query:"sortOrder" validate:"omitempty,oneof=ASC DESC"`
}

// Filters and Options convert a validated query.
func (q TaskListQuery) Filters() service.TaskFilters {
	var f service.TaskFilters
	if q.Status != "" {
		s := model.TaskStatus(q.Status)
		f.Status = &s
	}
	if q.Priority != "" {
		p := model.TaskPriority(q.Priority)
		f.Priority = &p
	}
	if t, err := validation.ParseTime(q.DueDateFrom); err == nil && q.DueDateFrom != "" {
		f.DueDateFrom = &t
	}
	if t, err := validation.ParseTime(q.DueDateTo); err == nil && q.DueDateTo != "" {
		f.DueDateTo = &t
	}
	return f
}

func (q TaskListQuery) Options() service.TaskQueryOptions {
	o := service.TaskQueryOptions{SortBy: q.SortBy, SortOrder: q.SortOrder}
	if q.Page != nil {
		o.Page = *q.Page
	}
	if q.Limit != nil {
		o.Limit = *q.Limit
	}
	return o
}

type TaskIDParam struct {
	ID string `param:"id" validate:"required,uuid"`
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
