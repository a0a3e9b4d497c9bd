package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager-api/internal/config"
	"github.com/iliyamo/task-manager-api/internal/dto"
	"github.com/iliyamo/task-manager-api/internal/model"
	"github.com/iliyamo/task-manager-api/internal/response"
	"github.com/iliyamo/task-manager-api/internal/service"
	"github.com/iliyamo/task-manager-api/internal/utils"
)

// Authenticator is the auth flow the handlers drive.  *service.AuthService
// implements it.
type Authenticator interface {
	Register(ctx context.Context, in service.RegisterInput) (model.PublicUser, error)
	Login(ctx context.Context, email, password string) (utils.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Me(ctx context.Context, userID string) (model.PublicUser, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg  config.Config
	Auth Authenticator
}

func NewAuthHandler(cfg config.Config, auth Authenticator) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Auth: auth}
}

type loginData struct {
	Token utils.TokenPair `json:"token"`
}

type refreshData struct {
	AccessToken string `json:"accessToken"`
}

// Register: create the user and return its public projection.
func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := withTimeout(c, h.Cfg.QueryTimeout)
	defer cancel()

	u, err := h.Auth.Register(ctx, service.RegisterInput{Email: req.Email, Name: req.Name, Password: req.Password})
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, http.StatusCreated, "User created successfully", u)
}

// Login: verify credentials and return an access/refresh pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := withTimeout(c, h.Cfg.QueryTimeout)
	defer cancel()

	pair, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, http.StatusOK, "Login successful", loginData{Token: pair})
}

// Refresh: exchange a refresh token for a new access token.  The refresh
// token is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req dto.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, errBadJSON)
	}
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		return response.Fail(c, http.StatusBadRequest, response.CodeMissingToken, "Refresh token is required")
	}

	ctx, cancel := withTimeout(c, h.Cfg.QueryTimeout)
	defer cancel()

	access, err := h.Auth.Refresh(ctx, raw)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, http.StatusOK, "Token refreshed successfully", refreshData{AccessToken: access})
}

// Me returns the stored profile of the caller.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := withTimeout(c, h.Cfg.QueryTimeout)
	defer cancel()

	u, err := h.Auth.Me(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, http.StatusOK, "User fetched successfully", u)
}
