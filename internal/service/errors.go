// Package service holds the authentication flow and the owner-scoped task
// query engine.  Services depend on small store interfaces so the HTTP layer
// and tests can swap implementations.
package service

import (
	"errors"

	"github.com/iliyamo/task-manager-api/internal/utils"
)

var (
	ErrDuplicateEmail     = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserGone           = errors.New("user no longer exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotFound           = errors.New("task not found")
	// ErrInvalidToken aliases the token package sentinel so callers only
	// need to import service.
	ErrInvalidToken = utils.ErrInvalidToken
)
