package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager-api/internal/config"
	"github.com/iliyamo/task-manager-api/internal/dto"
	"github.com/iliyamo/task-manager-api/internal/model"
	"github.com/iliyamo/task-manager-api/internal/response"
	"github.com/iliyamo/task-manager-api/internal/service"
	"github.com/iliyamo/task-manager-api/internal/validation"
)

// TaskManager is the owner-scoped task engine.  *service.TaskService
// implements it.
type TaskManager interface {
	List(ctx context.Context, ownerID string, f service.TaskFilters, o service.TaskQueryOptions) (service.TaskPage, error)
	Create(ctx context.Context, ownerID string, in service.CreateTaskInput) (model.Task, error)
	Get(ctx context.Context, id, ownerID string) (model.Task, error)
	Update(ctx context.Context, id, ownerID string, in service.UpdateTaskInput) (model.Task, error)
	Delete(ctx context.Context, id, ownerID string) error
	Stats(ctx context.Context, ownerID string) (model.TaskStats, error)
}

// TaskHandler serves /api/tasks.  Every operation is scoped to the caller
// resolved by JWTAuth.
type TaskHandler struct {
	Cfg   config.Config
	Tasks TaskManager
}

func NewTaskHandler(cfg config.Config, tasks TaskManager) *TaskHandler {
	return &TaskHandler{Cfg: cfg, Tasks: tasks}
}

// taskID validates the :id path parameter.
func taskID(c echo.Context) (string, error) {
	p := dto.TaskIDParam{ID: c.Param("id")}
	if err := c.Validate(&p); err != nil {
		return "", err
	}
	return p.ID, nil
}

// List handles GET /api/tasks.
func (h *TaskHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var q dto.TaskListQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return writeError(c, validation.Errors{{Field: "query", Message: "Page and limit must be integers"}})
	}
	if err := c.Validate(&q); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := withTimeout(c, h.Cfg.QueryTimeout)
	defer cancel()

	page, err := h.Tasks.List(ctx, uid, q.Filters(), q.Options())
	if err != nil {
		return writeError(c, err)
	}
	tasks := page.Tasks
	if tasks == nil {
		tasks = []model.Task{}
	}
	return response.Page(c, http.StatusOK, "Tasks fetched successfully", tasks, page.Meta)
}

// Get handles GET /api/tasks/:id.
func (h *TaskHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := taskID(c)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := withTimeout(c, h.Cfg.QueryTimeout)
	defer cancel()

	t, err := h.Tasks.Get(ctx, id, uid)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, http.StatusOK, "Task fetched successfully", t)
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req dto.CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := withTimeout(c, h.Cfg.QueryTimeout)
	defer cancel()

	t, err := h.Tasks.Create(ctx, uid, req.Input())
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, http.StatusCreated, "Task created successfully", t)
}

// Update handles PUT /api/tasks/:id.  Fields absent from the body are left
// untouched; description and dueDate may be cleared with an explicit null.
func (h *TaskHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := taskID(c)
	if err != nil {
		return writeError(c, err)
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return writeError(c, validation.Errors{{Field: "body", Message: "Request body could not be read"}})
	}
	req, err := dto.DecodeUpdateTask(body)
	if err != nil {
		return writeError(c, validation.Errors{{Field: "body", Message: "Request body must be valid JSON"}})
	}
	req.Normalize()
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := withTimeout(c, h.Cfg.QueryTimeout)
	defer cancel()

	t, err := h.Tasks.Update(ctx, id, uid, req.Input())
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, http.StatusOK, "Task updated successfully", t)
}

// Delete handles DELETE /api/tasks/:id.
func (h *TaskHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := taskID(c)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := withTimeout(c, h.Cfg.QueryTimeout)
	defer cancel()

	if err := h.Tasks.Delete(ctx, id, uid); err != nil {
		return writeError(c, err)
	}
	return response.OK(c, http.StatusOK, "Task deleted successfully", nil)
}

// Stats handles GET /api/tasks/stats.
func (h *TaskHandler) Stats(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := withTimeout(c, h.Cfg.QueryTimeout)
	defer cancel()

	stats, err := h.Tasks.Stats(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, http.StatusOK, "Task statistics fetched successfully", stats)
}
