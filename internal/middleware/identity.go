package middleware

// identity.go holds the helpers that read the caller identity JWTAuth put on
// the Echo context.

import "github.com/labstack/echo/v4"

// UserID returns the authenticated user's id, or "" when the request did not
// pass through JWTAuth.
func UserID(c echo.Context) string {
	if v, ok := c.Get(UserIDKey).(string); ok {
		return v
	}
	return ""
}

// userKey identifies the caller for rate limit and cache keys.  Anonymous
// requests share the "anon" bucket.
func userKey(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
