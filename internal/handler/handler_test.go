package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager-api/internal/config"
	"github.com/iliyamo/task-manager-api/internal/middleware"
	"github.com/iliyamo/task-manager-api/internal/model"
	"github.com/iliyamo/task-manager-api/internal/service"
	"github.com/iliyamo/task-manager-api/internal/utils"
	"github.com/iliyamo/task-manager-api/internal/validation"
)

const taskUUID = "5f0c3f1e-8a2b-4c1d-9e3f-0a1b2c3d4e5f"

type fakeAuth struct {
	registerErr error
	loginErr    error
	refreshErr  error
	meErr       error
	gotRegister service.RegisterInput
}

func (f *fakeAuth) Register(_ context.Context, in service.RegisterInput) (model.PublicUser, error) {
	f.gotRegister = in
	if f.registerErr != nil {
		return model.PublicUser{}, f.registerErr
	}
	return model.PublicUser{ID: "u-1", Email: in.Email, Name: in.Name}, nil
}

func (f *fakeAuth) Login(context.Context, string, string) (utils.TokenPair, error) {
	if f.loginErr != nil {
		return utils.TokenPair{}, f.loginErr
	}
	return utils.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, nil
}

func (f *fakeAuth) Refresh(_ context.Context, raw string) (string, error) {
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return "new-" + raw, nil
}

func (f *fakeAuth) Me(_ context.Context, id string) (model.PublicUser, error) {
	if f.meErr != nil {
		return model.PublicUser{}, f.meErr
	}
	return model.PublicUser{ID: id, Email: "a@x.io", Name: "Ann"}, nil
}

type fakeTasks struct {
	err       error
	owner     string
	filters   service.TaskFilters
	options   service.TaskQueryOptions
	createIn  service.CreateTaskInput
	updateIn  service.UpdateTaskInput
	deletedID string
}

func (f *fakeTasks) List(_ context.Context, owner string, fl service.TaskFilters, o service.TaskQueryOptions) (service.TaskPage, error) {
	f.owner, f.filters, f.options = owner, fl, o
	if f.err != nil {
		return service.TaskPage{}, f.err
	}
	return service.TaskPage{
		Tasks: []model.Task{{ID: taskUUID, Title: "x", Status: model.StatusCompleted, CreatedBy: owner}},
		Meta:  model.PageMeta{Page: 2, Limit: 5, Total: 12, TotalPages: 3},
	}, nil
}

func (f *fakeTasks) Create(_ context.Context, owner string, in service.CreateTaskInput) (model.Task, error) {
	f.owner, f.createIn = owner, in
	if f.err != nil {
		return model.Task{}, f.err
	}
	return model.Task{ID: taskUUID, Title: in.Title, Status: model.StatusPending, CreatedBy: owner}, nil
}

func (f *fakeTasks) Get(_ context.Context, id, owner string) (model.Task, error) {
	f.owner = owner
	if f.err != nil {
		return model.Task{}, f.err
	}
	return model.Task{ID: id, Title: "x", CreatedBy: owner}, nil
}

func (f *fakeTasks) Update(_ context.Context, id, owner string, in service.UpdateTaskInput) (model.Task, error) {
	f.owner, f.updateIn = owner, in
	if f.err != nil {
		return model.Task{}, f.err
	}
	return model.Task{ID: id, Title: "x", CreatedBy: owner}, nil
}

func (f *fakeTasks) Delete(_ context.Context, id, owner string) error {
	f.owner, f.deletedID = owner, id
	return f.err
}

func (f *fakeTasks) Stats(_ context.Context, owner string) (model.TaskStats, error) {
	f.owner = owner
	if f.err != nil {
		return model.TaskStats{}, f.err
	}
	return model.TaskStats{Total: 3, Pending: 1, InProgress: 1, Completed: 1}, nil
}

// asUser stands in for JWTAuth.
func asUser(id string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.UserIDKey, id)
			return next(c)
		}
	}
}

func newServer(auth *fakeAuth, tasks *fakeTasks, user string) *echo.Echo {
	e := echo.New()
	e.Validator = validation.New().WithClock(func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) })
	e.HTTPErrorHandler = ErrorHandler

	cfg := config.Config{QueryTimeout: time.Second}
	a := NewAuthHandler(cfg, auth)
	t := NewTaskHandler(cfg, tasks)

	e.POST("/api/auth/register", a.Register)
	e.POST("/api/auth/login", a.Login)
	e.POST("/api/auth/refresh", a.Refresh)

	var mws []echo.MiddlewareFunc
	if user != "" {
		mws = append(mws, asUser(user))
	}
	e.GET("/api/auth/me", a.Me, mws...)
	g := e.Group("/api/tasks", mws...)
	g.GET("", t.List)
	g.GET("/stats", t.Stats)
	g.GET("/:id", t.Get)
	g.POST("", t.Create)
	g.PUT("/:id", t.Update)
	g.DELETE("/:id", t.Delete)
	return e
}

type result struct {
	Code int
	Body struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
		Meta    *model.PageMeta `json:"meta"`
		Error   struct {
			Code    string                  `json:"code"`
			Message string                  `json:"message"`
			Details []validation.FieldError `json:"details"`
		} `json:"error"`
	}
	Raw string
}

func do(t *testing.T, e *echo.Echo, method, path, body string) result {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	r := result{Code: rec.Code, Raw: rec.Body.String()}
	if err := json.Unmarshal(rec.Body.Bytes(), &r.Body); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, r.Raw, err)
	}
	return r
}

func TestRegister(t *testing.T) {
	auth := &fakeAuth{}
	e := newServer(auth, &fakeTasks{}, "")

	r := do(t, e, http.MethodPost, "/api/auth/register", `{"email":" a@x.io ","name":" Ann ","password":"secret1"}`)
	if r.Code != http.StatusCreated || !r.Body.Success || r.Body.Message != "User created successfully" {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
	if auth.gotRegister.Email != "a@x.io" || auth.gotRegister.Name != "Ann" {
		t.Fatalf("input not trimmed: %+v", auth.gotRegister)
	}
	if strings.Contains(strings.ToLower(r.Raw), "password") {
		t.Fatalf("response leaks password: %s", r.Raw)
	}
}

func TestRegisterValidation(t *testing.T) {
	e := newServer(&fakeAuth{}, &fakeTasks{}, "")

	r := do(t, e, http.MethodPost, "/api/auth/register", `{"email":"nope","name":"","password":"123"}`)
	if r.Code != http.StatusBadRequest || r.Body.Error.Code != "VALIDATION_ERROR" || r.Body.Error.Message != "Validation failed" {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
	fields := map[string]bool{}
	for _, d := range r.Body.Error.Details {
		fields[d.Field] = true
	}
	for _, f := range []string{"email", "name", "password"} {
		if !fields[f] {
			t.Fatalf("missing detail for %s: %s", f, r.Raw)
		}
	}
}

func TestRegisterDuplicate(t *testing.T) {
	e := newServer(&fakeAuth{registerErr: service.ErrDuplicateEmail}, &fakeTasks{}, "")
	r := do(t, e, http.MethodPost, "/api/auth/register", `{"email":"a@x.io","name":"Ann","password":"secret1"}`)
	if r.Code != http.StatusConflict || r.Body.Error.Code != "DUPLICATE_EMAIL" {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
}

func TestLogin(t *testing.T) {
	e := newServer(&fakeAuth{}, &fakeTasks{}, "")
	r := do(t, e, http.MethodPost, "/api/auth/login", `{"email":"a@x.io","password":"secret1"}`)
	if r.Code != http.StatusOK {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
	var data struct {
		Token utils.TokenPair `json:"token"`
	}
	if err := json.Unmarshal(r.Body.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Token.AccessToken != "acc" || data.Token.RefreshToken != "ref" {
		t.Fatalf("unexpected tokens %+v", data.Token)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	e := newServer(&fakeAuth{loginErr: service.ErrInvalidCredentials}, &fakeTasks{}, "")
	r := do(t, e, http.MethodPost, "/api/auth/login", `{"email":"a@x.io","password":"wrong"}`)
	if r.Code != http.StatusUnauthorized || r.Body.Error.Code != "INVALID_CREDENTIALS" || r.Body.Error.Message != service.ErrInvalidCredentials.Error() {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
}

func TestRefresh(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   string
		status int
		code   string
	}{
		{"ok", nil, `{"refreshToken":"r1"}`, http.StatusOK, ""},
		{"missing", nil, `{}`, http.StatusBadRequest, "MISSING_TOKEN"},
		{"blank", nil, `{"refreshToken":"  "}`, http.StatusBadRequest, "MISSING_TOKEN"},
		{"invalid", service.ErrInvalidToken, `{"refreshToken":"r1"}`, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"gone", service.ErrUserGone, `{"refreshToken":"r1"}`, http.StatusUnauthorized, "USER_GONE"},
		{"malformed", nil, `{"refreshToken":`, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newServer(&fakeAuth{refreshErr: tt.err}, &fakeTasks{}, "")
			r := do(t, e, http.MethodPost, "/api/auth/refresh", tt.body)
			if r.Code != tt.status || r.Body.Error.Code != tt.code {
				t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
			}
			if tt.status == http.StatusOK && !strings.Contains(string(r.Body.Data), `"accessToken":"new-r1"`) {
				t.Fatalf("unexpected data %s", r.Body.Data)
			}
		})
	}
}

func TestMe(t *testing.T) {
	e := newServer(&fakeAuth{}, &fakeTasks{}, "u-1")
	r := do(t, e, http.MethodGet, "/api/auth/me", "")
	if r.Code != http.StatusOK || !strings.Contains(string(r.Body.Data), `"id":"u-1"`) {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}

	e = newServer(&fakeAuth{meErr: service.ErrUserNotFound}, &fakeTasks{}, "u-1")
	if r := do(t, e, http.MethodGet, "/api/auth/me", ""); r.Code != http.StatusNotFound || r.Body.Error.Code != "USER_NOT_FOUND" {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
}

func TestTasksRequireIdentity(t *testing.T) {
	e := newServer(&fakeAuth{}, &fakeTasks{}, "")
	r := do(t, e, http.MethodGet, "/api/tasks", "")
	if r.Code != http.StatusUnauthorized || r.Body.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
}

func TestListPassesFiltersAndMeta(t *testing.T) {
	tasks := &fakeTasks{}
	e := newServer(&fakeAuth{}, tasks, "u-1")

	r := do(t, e, http.MethodGet, "/api/tasks?status=completed&page=2&limit=5&sortBy=dueDate&sortOrder=ASC&dueDateFrom=2030-01-01", "")
	if r.Code != http.StatusOK {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
	if tasks.owner != "u-1" {
		t.Fatalf("owner not taken from identity: %q", tasks.owner)
	}
	if tasks.filters.Status == nil || *tasks.filters.Status != model.StatusCompleted || tasks.filters.DueDateFrom == nil {
		t.Fatalf("filters not passed: %+v", tasks.filters)
	}
	want := service.TaskQueryOptions{Page: 2, Limit: 5, SortBy: "dueDate", SortOrder: "ASC"}
	if tasks.options != want {
		t.Fatalf("expected options %+v, got %+v", want, tasks.options)
	}
	if r.Body.Meta == nil || *r.Body.Meta != (model.PageMeta{Page: 2, Limit: 5, Total: 12, TotalPages: 3}) {
		t.Fatalf("unexpected meta %+v", r.Body.Meta)
	}
}

func TestListRejectsBadQuery(t *testing.T) {
	e := newServer(&fakeAuth{}, &fakeTasks{}, "u-1")
	for _, q := range []string{"limit=500", "limit=0", "page=0", "page=-1", "status=done", "sortBy=title", "sortOrder=up", "dueDateTo=yesterday", "page=abc"} {
		r := do(t, e, http.MethodGet, "/api/tasks?"+q, "")
		if r.Code != http.StatusBadRequest || r.Body.Error.Code != "VALIDATION_ERROR" {
			t.Fatalf("%s: unexpected response %d %s", q, r.Code, r.Raw)
		}
	}
}

func TestListZeroPageAndLimitMessages(t *testing.T) {
	tasks := &fakeTasks{}
	e := newServer(&fakeAuth{}, tasks, "u-1")

	tests := []struct{ query, field, msg string }{
		{"page=0", "page", "Page must be a positive integer"},
		{"limit=0", "limit", "Limit must be between 1 and 100"},
	}
	for _, tt := range tests {
		r := do(t, e, http.MethodGet, "/api/tasks?"+tt.query, "")
		if r.Code != http.StatusBadRequest || len(r.Body.Error.Details) != 1 {
			t.Fatalf("%s: unexpected response %d %s", tt.query, r.Code, r.Raw)
		}
		if d := r.Body.Error.Details[0]; d.Field != tt.field || d.Message != tt.msg {
			t.Fatalf("%s: unexpected detail %+v", tt.query, d)
		}
	}
	if tasks.owner != "" {
		t.Fatal("service must not be called for an out-of-range query")
	}

	// Absent page and limit still reach the service as zero for defaulting.
	if r := do(t, e, http.MethodGet, "/api/tasks", ""); r.Code != http.StatusOK {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
	if tasks.options.Page != 0 || tasks.options.Limit != 0 {
		t.Fatalf("unexpected options %+v", tasks.options)
	}
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	auth := &fakeAuth{}
	e := newServer(auth, &fakeTasks{}, "")

	// 40 two-byte runes: within max=128 characters, over bcrypt's 72 bytes.
	body := `{"email":"a@x.io","name":"Ann","password":"` + strings.Repeat("é", 40) + `"}`
	r := do(t, e, http.MethodPost, "/api/auth/register", body)
	if r.Code != http.StatusBadRequest || r.Body.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
	if len(r.Body.Error.Details) != 1 || r.Body.Error.Details[0].Message != "Password must not exceed 72 bytes" {
		t.Fatalf("unexpected details %+v", r.Body.Error.Details)
	}
	if auth.gotRegister.Email != "" {
		t.Fatal("service must not be called")
	}
}

func TestCreateTask(t *testing.T) {
	tasks := &fakeTasks{}
	e := newServer(&fakeAuth{}, tasks, "u-1")

	r := do(t, e, http.MethodPost, "/api/tasks", `{"title":" Buy milk ","priority":"high","dueDate":"2030-02-01T00:00:00Z","createdBy":"someone-else"}`)
	if r.Code != http.StatusCreated || r.Body.Message != "Task created successfully" {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
	if tasks.owner != "u-1" {
		t.Fatalf("owner must come from the token, got %q", tasks.owner)
	}
	in := tasks.createIn
	if in.Title != "Buy milk" || in.Priority == nil || *in.Priority != model.PriorityHigh || in.DueDate == nil {
		t.Fatalf("unexpected input %+v", in)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	e := newServer(&fakeAuth{}, &fakeTasks{}, "u-1")
	r := do(t, e, http.MethodPost, "/api/tasks", `{"title":"  ","status":"done","dueDate":"2020-01-01"}`)
	if r.Code != http.StatusBadRequest {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
	got := map[string]string{}
	for _, d := range r.Body.Error.Details {
		got[d.Field] = d.Message
	}
	if got["dueDate"] != "Due date cannot be in the past" || got["title"] == "" || got["status"] == "" {
		t.Fatalf("unexpected details %v", got)
	}
}

func TestGetTask(t *testing.T) {
	e := newServer(&fakeAuth{}, &fakeTasks{}, "u-1")
	if r := do(t, e, http.MethodGet, "/api/tasks/"+taskUUID, ""); r.Code != http.StatusOK {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}

	r := do(t, e, http.MethodGet, "/api/tasks/42", "")
	if r.Code != http.StatusBadRequest || len(r.Body.Error.Details) != 1 || r.Body.Error.Details[0].Message != "Task ID must be a valid UUID" {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}

	e = newServer(&fakeAuth{}, &fakeTasks{err: service.ErrNotFound}, "u-1")
	r = do(t, e, http.MethodGet, "/api/tasks/"+taskUUID, "")
	if r.Code != http.StatusNotFound || r.Body.Error.Code != "NOT_FOUND" {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
}

func TestUpdateTaskExplicitNulls(t *testing.T) {
	tasks := &fakeTasks{}
	e := newServer(&fakeAuth{}, tasks, "u-1")

	r := do(t, e, http.MethodPut, "/api/tasks/"+taskUUID, `{"status":"completed","description":null,"dueDate":null}`)
	if r.Code != http.StatusOK || r.Body.Message != "Task updated successfully" {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
	in := tasks.updateIn
	if in.Status == nil || *in.Status != model.StatusCompleted {
		t.Fatalf("status not passed: %+v", in)
	}
	if !in.ClearDescription || !in.ClearDueDate || in.Title != nil {
		t.Fatalf("unexpected update input %+v", in)
	}
}

func TestUpdateTaskRejectsEmptyTitle(t *testing.T) {
	e := newServer(&fakeAuth{}, &fakeTasks{}, "u-1")
	r := do(t, e, http.MethodPut, "/api/tasks/"+taskUUID, `{"title":""}`)
	if r.Code != http.StatusBadRequest {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
}

func TestDeleteTask(t *testing.T) {
	tasks := &fakeTasks{}
	e := newServer(&fakeAuth{}, tasks, "u-1")
	r := do(t, e, http.MethodDelete, "/api/tasks/"+taskUUID, "")
	if r.Code != http.StatusOK || tasks.deletedID != taskUUID || r.Body.Data != nil {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
}

func TestStats(t *testing.T) {
	e := newServer(&fakeAuth{}, &fakeTasks{}, "u-1")
	r := do(t, e, http.MethodGet, "/api/tasks/stats", "")
	if r.Code != http.StatusOK || string(r.Body.Data) != `{"total":3,"pending":1,"inProgress":1,"completed":1}` {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	e := newServer(&fakeAuth{}, &fakeTasks{err: errors.New("dial tcp 10.0.0.5:3306: connection refused")}, "u-1")
	r := do(t, e, http.MethodGet, "/api/tasks/stats", "")
	if r.Code != http.StatusInternalServerError || r.Body.Error.Code != "INTERNAL_SERVER_ERROR" || r.Body.Error.Message != "Something went wrong" {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
	if strings.Contains(r.Raw, "10.0.0.5") {
		t.Fatal("internal detail leaked")
	}
}

func TestUnknownRoute(t *testing.T) {
	e := newServer(&fakeAuth{}, &fakeTasks{}, "")
	r := do(t, e, http.MethodGet, "/api/nope", "")
	if r.Code != http.StatusNotFound || r.Body.Error.Code != "NOT_FOUND" || r.Body.Error.Message != "Route not found" {
		t.Fatalf("unexpected response %d %s", r.Code, r.Raw)
	}
}
