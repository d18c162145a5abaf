package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-service/internal/api/middleware"
	"github.com/99minutos/accounts-service/internal/core/domain"
)

// ctxAccount returns the account loaded by the LoadAccount middleware. A
// missing value means the route was mounted without the auth chain.
func ctxAccount(c echo.Context) (*domain.Account, error) {
	account, _ := c.Get(middleware.ContextAccount).(*domain.Account)
	if account == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Authentication credentials were not provided.")
	}
	return account, nil
}
