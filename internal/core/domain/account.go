package domain

import "time"

// Account models a registered user of the application.
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"-"`
	IsVerified   bool       `json:"is_verified"`
	LastLoginAt  *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"-"`
}

// UsernameKey is the case-folded form used for uniqueness checks.
func (a *Account) UsernameKey() string {
	return UsernameKey(a.Username)
}

// ProfileUpdate carries the editable profile fields. A nil field is left
// untouched, which lets PUT and PATCH share the same path.
type ProfileUpdate struct {
	Email     *string
	Username  *string
	FirstName *string
	LastName  *string
}

// Registration is the raw sign-up payload.
type Registration struct {
	Email           string
	Username        string
	FirstName       string
	LastName        string
	Password        string
	PasswordConfirm string
}
