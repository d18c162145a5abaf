package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
)

// LoadAccount resolves the account named by the access token and gates on
// its status. It must run after Auth.
//   - unknown account: 401, the token outlived its subject
//   - inactive account: 403
//   - unverified account: 403 when requireVerified is set
func LoadAccount(accounts ports.AccountService, requireVerified bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, _ := c.Get(ContextAccountID).(string)
			if id == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication credentials were not provided.")
			}

			account, err := accounts.Profile(c.Request().Context(), id)
			if errors.Is(err, domain.ErrAccountNotFound) {
				return domain.ErrInvalidToken
			}
			if err != nil {
				return err
			}

			if !account.IsActive {
				return echo.NewHTTPError(http.StatusForbidden, domain.ErrAccountDisabled.Error())
			}
			if requireVerified && !account.IsVerified {
				return echo.NewHTTPError(http.StatusForbidden, domain.ErrAccountUnverified.Error())
			}

			c.Set(ContextAccount, account)
			return next(c)
		}
	}
}
