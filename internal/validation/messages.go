package validation

import "fmt"

const (
	statusMsg   = "Status must be one of: pending, in_progress, completed"
	priorityMsg = "Priority must be one of: low, medium, high"
)

// messages maps field.tag to the text returned to clients.
var messages = map[string]string{
	"email.required":     "Email is required",
	"email.email":        "Please provide a valid email",
	"name.required":      "Name is required",
	"name.trimmed":       "Name is required",
	"name.max":           "Name must be between 1 and 100 characters",
	"password.required":  "Password is required",
	"password.min":       "Password must be between 6 and 128 characters",
	"password.max":       "Password must be between 6 and 128 characters",
	"password.bcryptlen": "Password must not exceed 72 bytes",

	"refreshToken.required": "Refresh token is required",

	"title.required":      "Title must be between 1 and 100 characters",
	"title.trimmed":       "Title must be between 1 and 100 characters",
	"title.max":           "Title must be between 1 and 100 characters",
	"description.max":     "Description must not exceed 500 characters",
	"status.oneof":        statusMsg,
	"priority.oneof":      priorityMsg,
	"dueDate.iso8601":     "Due date must be a valid ISO 8601 date",
	"dueDate.notpast":     "Due date cannot be in the past",
	"dueDateFrom.iso8601": "Due date from must be a valid ISO 8601 date",
	"dueDateTo.iso8601":   "Due date to must be a valid ISO 8601 date",
	"page.min":            "Page must be a positive integer",
	"limit.min":           "Limit must be between 1 and 100",
	"limit.max":           "Limit must be between 1 and 100",
	"sortBy.oneof":        "Sort by must be one of: createdAt, updatedAt, dueDate, priority",
	"sortOrder.oneof":     "Sort order must be ASC or DESC",

	"id.required": "Task ID must be a valid UUID",
	"id.uuid":     "Task ID must be a valid UUID",
}

func message(field, tag, param string) string {
	if m, ok := messages[field+"."+tag]; ok {
		return m
	}
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	}
	return fmt.Sprintf("%s is invalid", field)
}
