package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware checks an Authorization: Bearer <key> header against an
// in-process keyset, per spec.md §6: missing or non-Bearer -> 401, key not
// in the allowed set -> 401.
type AuthMiddleware struct {
	allowedKeys map[string]struct{}
}

// NewAuthMiddleware builds an AuthMiddleware from the configured keyset.
func NewAuthMiddleware(keys []string) *AuthMiddleware {
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}
	return &AuthMiddleware{allowedKeys: allowed}
}

// Authenticate enforces the Bearer keyset check.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if header == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
		}

		if _, ok := m.allowedKeys[parts[1]]; !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid API key")
		}

		return next(c)
	}
}
