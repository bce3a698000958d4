package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Skipper decides whether a request bypasses authentication.
type Skipper func(echo.Context) bool

// PublicPaths returns a Skipper matching exact request paths.
func PublicPaths(paths ...string) Skipper {
	public := make(map[string]bool, len(paths))
	for _, p := range paths {
		public[p] = true
	}
	return func(c echo.Context) bool {
		return public[c.Request().URL.Path]
	}
}

// BearerMiddleware requires "Authorization: Bearer <token>" and stores the
// extracted Identity on the request context.
func BearerMiddleware(tokens *TokenManager, skip Skipper) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			scheme, token, ok := strings.Cut(header, " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			id, err := tokens.Extract(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			c.Set("user_id", id.AccountID)
			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), id)))
			return next(c)
		}
	}
}
