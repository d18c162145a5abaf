package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-service/internal/core/ports"
)

type ProfileHandler struct {
	accountService ports.AccountService
}

func NewProfileHandler(accountService ports.AccountService) *ProfileHandler {
	return &ProfileHandler{accountService: accountService}
}

// Get returns the authenticated account.
//
// @Summary      Get profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  detailResponse
// @Failure      403  {object}  detailResponse
// @Router       /auth/profile/ [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(account))
}

// Put replaces the editable profile fields. email and username are required.
//
// @Summary      Update profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      profileRequest  true  "Profile fields"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  map[string][]string
// @Failure      401   {object}  detailResponse
// @Router       /auth/profile/ [put]
func (h *ProfileHandler) Put(c echo.Context) error {
	return h.update(c, false)
}

// Patch updates only the provided profile fields.
//
// @Summary      Partially update profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      profileRequest  true  "Profile fields"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  map[string][]string
// @Failure      401   {object}  detailResponse
// @Router       /auth/profile/ [patch]
func (h *ProfileHandler) Patch(c echo.Context) error {
	return h.update(c, true)
}

func (h *ProfileHandler) update(c echo.Context, partial bool) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}

	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, msgMalformedBody)
	}

	updated, err := h.accountService.UpdateProfile(c.Request().Context(), account.ID, toProfileUpdate(req), partial)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(updated))
}
