package handler

import (
	"errors"

	"github.com/99minutos/accounts-service/internal/api/metrics"
	"github.com/99minutos/accounts-service/internal/core/domain"
)

// outcome buckets an error into a metrics result label.
func outcome(err error) string {
	if err == nil {
		return metrics.ResultSuccess
	}

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, domain.ErrAccountExists),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrAccountDisabled),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrTokenRevoked):
		return metrics.ResultInvalid
	default:
		return metrics.ResultFailure
	}
}
