package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// detailResponse is the envelope for every non-field error.
type detailResponse struct {
	Detail string `json:"detail"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Renders field errors and conflicts as 400 {"field": ["message", ...]}.
//   - Maps the remaining domain errors to their status with {"detail": "..."}.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if code == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="api"`)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, any) {
	// Field-level problems.
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Fields
	}
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		return http.StatusBadRequest, map[string][]string{
			conflict.Field: {domain.ConflictMessage(conflict.Field)},
		}
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, detailResponse{Detail: fmt.Sprintf("%v", he.Message)}
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusBadRequest, detailResponse{Detail: domain.ErrInvalidCredentials.Error()}
	case errors.Is(err, domain.ErrAccountDisabled):
		return http.StatusBadRequest, detailResponse{Detail: domain.ErrAccountDisabled.Error()}
	case errors.Is(err, domain.ErrTokenRevoked):
		return http.StatusUnauthorized, detailResponse{Detail: domain.ErrTokenRevoked.Error()}
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, detailResponse{Detail: domain.ErrInvalidToken.Error()}
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, detailResponse{Detail: "Not found."}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("unhandled error")

	return http.StatusInternalServerError, detailResponse{Detail: "internal server error"}
}
