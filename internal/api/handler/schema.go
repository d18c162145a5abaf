package handler

import (
	"time"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

type registerRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// profileRequest uses pointers so PATCH can tell "absent" from "empty".
// id, is_verified and created_at are read-only and not accepted.
type profileRequest struct {
	Email     *string `json:"email"`
	Username  *string `json:"username"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type validateUsernameRequest struct {
	Username string `json:"username" validate:"required"`
}

type validateEmailRequest struct {
	Email string `json:"email" validate:"required"`
}

type validatePasswordRequest struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm"`
	Username        string `json:"username"`
	Email           string `json:"email"`
}

// userResponse is the public view of an account.
type userResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

type authResponse struct {
	Access  string       `json:"access"`
	Refresh string       `json:"refresh"`
	User    userResponse `json:"user"`
}

type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

// availabilityResponse answers the username and email checks.
type availabilityResponse struct {
	IsValid  bool     `json:"is_valid"`
	IsTaken  bool     `json:"is_taken"`
	Message  string   `json:"message"`
	Messages []string `json:"messages"`
}

type passwordCheckResponse struct {
	IsValid  bool     `json:"is_valid"`
	Message  string   `json:"message"`
	Messages []string `json:"messages"`
}

func toUserResponse(a *domain.Account) userResponse {
	return userResponse{
		ID:         a.ID,
		Email:      a.Email,
		Username:   a.Username,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		IsVerified: a.IsVerified,
		CreatedAt:  a.CreatedAt,
	}
}

func toAuthResponse(a *domain.Account, pair domain.TokenPair) authResponse {
	return authResponse{Access: pair.Access, Refresh: pair.Refresh, User: toUserResponse(a)}
}

func toProfileUpdate(req profileRequest) domain.ProfileUpdate {
	return domain.ProfileUpdate{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
}
