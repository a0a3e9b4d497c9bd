package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager-api/internal/middleware"
	"github.com/iliyamo/task-manager-api/internal/response"
	"github.com/iliyamo/task-manager-api/internal/service"
	"github.com/iliyamo/task-manager-api/internal/validation"
)

// errNoUser is returned by getUserID when the request was not authenticated.
var errNoUser = errors.New("user_id missing from context")

// getUserID extracts the caller id JWTAuth stored on the context.
func getUserID(c echo.Context) (string, error) {
	if id := middleware.UserID(c); id != "" {
		return id, nil
	}
	return "", errNoUser
}

// withTimeout bounds a store round trip triggered by c.
func withTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 5 * time.Second
	}
	return context.WithTimeout(c.Request().Context(), d)
}

type normalizer interface{ Normalize() }

var errBadJSON = validation.Errors{{Field: "body", Message: "Request body must be valid JSON"}}

// bindAndValidate decodes the request into req, trims it and runs the tag
// rules.  The returned error is ready to be passed to writeError.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errBadJSON
	}
	if n, ok := req.(normalizer); ok {
		n.Normalize()
	}
	return c.Validate(req)
}

// writeError maps service and validation errors onto the error envelope.
// Anything unrecognised is logged and reported as a generic 500.
func writeError(c echo.Context, err error) error {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		return response.FailDetails(c, http.StatusBadRequest, response.CodeValidation, "Validation failed", []validation.FieldError(verrs))
	case errors.Is(err, errNoUser):
		return response.Fail(c, http.StatusUnauthorized, response.CodeUnauthorized, "User not authenticated")
	case errors.Is(err, service.ErrDuplicateEmail):
		return response.Fail(c, http.StatusConflict, response.CodeDuplicateEmail, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return response.Fail(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return response.Fail(c, http.StatusNotFound, response.CodeNotFound, "Task not found")
	case errors.Is(err, service.ErrUserNotFound):
		return response.Fail(c, http.StatusNotFound, response.CodeUserNotFound, "User not found")
	case errors.Is(err, service.ErrInvalidToken):
		return response.Fail(c, http.StatusUnauthorized, response.CodeInvalidToken, "Invalid or expired refresh token")
	case errors.Is(err, service.ErrUserGone):
		return response.Fail(c, http.StatusUnauthorized, response.CodeUserGone, "User no longer exists")
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return response.Fail(c, http.StatusInternalServerError, response.CodeInternal, "Something went wrong")
}

// ErrorHandler renders errors that escape handlers and middleware (unknown
// routes, bad methods, panics recovered by echo) in the error envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		var out error
		switch he.Code {
		case http.StatusNotFound:
			out = response.Fail(c, http.StatusNotFound, response.CodeNotFound, "Route not found")
		case http.StatusMethodNotAllowed:
			out = response.Fail(c, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		case http.StatusRequestEntityTooLarge:
			out = response.Fail(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
		case http.StatusTooManyRequests:
			out = response.Fail(c, http.StatusTooManyRequests, response.CodeTooManyRequests, response.MsgTooManyRequests)
		default:
			if he.Code < http.StatusInternalServerError {
				msg, _ := he.Message.(string)
				if msg == "" {
					msg = http.StatusText(he.Code)
				}
				out = response.Fail(c, he.Code, "REQUEST_ERROR", msg)
				break
			}
			out = writeError(c, err)
		}
		if out != nil {
			c.Logger().Error(out)
		}
		return
	}
	if out := writeError(c, err); out != nil {
		c.Logger().Error(out)
	}
}
