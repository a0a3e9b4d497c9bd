// Package response renders the JSON envelope shared by every endpoint:
//
//	{"success":true,"message":...,"data":...,"meta":...}
//	{"success":false,"error":{"code":...,"message":...,"details":...}}
package response

import "github.com/labstack/echo/v4"

// Error codes.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNotFound           = "NOT_FOUND"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeUserGone           = "USER_GONE"
	CodeMissingToken       = "MISSING_TOKEN"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
)

// MsgTooManyRequests is the 429 message for every rate-limit key strategy.
const MsgTooManyRequests = "Too many requests, please try again later."

type Success struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Failure struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// OK writes a success envelope.  data and meta are omitted when nil.
func OK(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Success{Success: true, Message: message, Data: data})
}

// Page writes a success envelope carrying pagination metadata.
func Page(c echo.Context, status int, message string, data, meta any) error {
	return c.JSON(status, Success{Success: true, Message: message, Data: data, Meta: meta})
}

// Fail writes an error envelope.
func Fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, Failure{Error: ErrorBody{Code: code, Message: message}})
}

// FailDetails writes an error envelope with per-field details.
func FailDetails(c echo.Context, status int, code, message string, details any) error {
	return c.JSON(status, Failure{Error: ErrorBody{Code: code, Message: message, Details: details}})
}
