package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-service/internal/api/metrics"
	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
)

// ValidationHandler serves the single-field checks used by the browser forms
// while the user types. Results are advisory; registration re-validates.
type ValidationHandler struct {
	validator ports.LiveValidator
}

func NewValidationHandler(validator ports.LiveValidator) *ValidationHandler {
	return &ValidationHandler{validator: validator}
}

// ValidateUsername checks username format and availability.
//
// @Summary      Check a username
// @Tags         validation
// @Accept       json
// @Produce      json
// @Param        body  body      validateUsernameRequest  true  "Username"
// @Success      200   {object}  availabilityResponse
// @Failure      400   {object}  map[string][]string
// @Router       /validate-username/ [post]
func (h *ValidationHandler) ValidateUsername(c echo.Context) error {
	var req validateUsernameRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msgs, err := h.validator.CheckUsername(c.Request().Context(), req.Username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, availability("username", msgs))
}

// ValidateEmail checks email syntax and availability.
//
// @Summary      Check an email address
// @Tags         validation
// @Accept       json
// @Produce      json
// @Param        body  body      validateEmailRequest  true  "Email"
// @Success      200   {object}  availabilityResponse
// @Failure      400   {object}  map[string][]string
// @Router       /validate-email/ [post]
func (h *ValidationHandler) ValidateEmail(c echo.Context) error {
	var req validateEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msgs, err := h.validator.CheckEmail(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, availability("email", msgs))
}

// ValidatePassword runs the password strength policy. When password_confirm
// is sent it must match.
//
// @Summary      Check a password
// @Tags         validation
// @Accept       json
// @Produce      json
// @Param        body  body      validatePasswordRequest  true  "Password"
// @Success      200   {object}  passwordCheckResponse
// @Failure      400   {object}  map[string][]string
// @Router       /validate-password/ [post]
func (h *ValidationHandler) ValidatePassword(c echo.Context) error {
	var req validatePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msgs, err := h.validator.CheckPassword(c.Request().Context(), req.Password, req.Username, req.Email)
	if err != nil {
		return err
	}
	if req.PasswordConfirm != "" && req.PasswordConfirm != req.Password {
		msgs = append(msgs, "Passwords don't match.")
	}

	valid := len(msgs) == 0
	metrics.LiveValidationsTotal.WithLabelValues("password", strconv.FormatBool(valid)).Inc()

	return c.JSON(http.StatusOK, passwordCheckResponse{
		IsValid:  valid,
		Message:  strings.Join(msgs, " "),
		Messages: nonNil(msgs),
	})
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, msgMalformedBody)
	}
	return c.Validate(req)
}

func availability(field string, msgs []string) availabilityResponse {
	valid := len(msgs) == 0
	metrics.LiveValidationsTotal.WithLabelValues(field, strconv.FormatBool(valid)).Inc()

	taken := false
	conflict := domain.ConflictMessage(field)
	for _, m := range msgs {
		if m == conflict {
			taken = true
		}
	}

	return availabilityResponse{
		IsValid:  valid,
		IsTaken:  taken,
		Message:  strings.Join(msgs, " "),
		Messages: nonNil(msgs),
	}
}

func nonNil(msgs []string) []string {
	if msgs == nil {
		return []string{}
	}
	return msgs
}
