package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/task-manager-api/internal/response"
	"github.com/iliyamo/task-manager-api/internal/utils"
)

// Context keys under which JWTAuth publishes the verified identity.
const (
	UserIDKey = "user_id"
	ClaimsKey = "claims"
)

// AccessVerifier validates access tokens.  *utils.TokenService satisfies it.
type AccessVerifier interface {
	VerifyAccess(raw string) (utils.Claims, error)
}

type claimsCtxKey struct{}

// ClaimsFromContext returns the claims JWTAuth stored on the request context.
func ClaimsFromContext(ctx context.Context) (utils.Claims, bool) {
	cl, ok := ctx.Value(claimsCtxKey{}).(utils.Claims)
	return cl, ok
}

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's claims into the request.  Handlers read the caller via
// `c.Get("user_id")` or ClaimsFromContext and never from client input.
//
// A missing token answers 401 UNAUTHORIZED; a token that fails verification
// (bad signature, refresh token, expired, malformed) answers 403 FORBIDDEN.
func JWTAuth(verifier AccessVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		// The returned handler is invoked for each incoming HTTP request.
		return func(c echo.Context) error {
			raw := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if raw == "" {
				return response.Fail(c, http.StatusUnauthorized, response.CodeUnauthorized, "Access token is required")
			}

			claims, err := verifier.VerifyAccess(raw)
			if err != nil {
				return response.Fail(c, http.StatusForbidden, response.CodeForbidden, "Invalid or expired token")
			}

			// Store the identity for handlers and downstream middleware.
			c.Set(UserIDKey, claims.UserID)
			c.Set(ClaimsKey, claims)
			req := c.Request()
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), claimsCtxKey{}, claims)))
			return next(c)
		}
	}
}

// bearerToken extracts the token from "Bearer <token>".  The scheme is
// matched case-insensitively.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
