package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
)

// Context keys set by the auth chain.
const (
	ContextAccountID = "account_id"
	ContextAccount   = "account"
)

// Auth validates the bearer access token and injects the account id into
// the context.
func Auth(tokens ports.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication credentials were not provided.")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header must be 'Bearer <token>'.")
			}

			claims, err := tokens.Parse(strings.TrimSpace(parts[1]), domain.TokenTypeAccess)
			if err != nil {
				return err
			}

			c.Set(ContextAccountID, claims.AccountID)
			return next(c)
		}
	}
}
