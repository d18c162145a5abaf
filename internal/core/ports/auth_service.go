package ports

import (
	"context"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, in domain.Registration) (*domain.Account, domain.TokenPair, error)
	Login(ctx context.Context, email, password string) (*domain.Account, domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

type AccountService interface {
	Profile(ctx context.Context, accountID string) (*domain.Account, error)
	// UpdateProfile applies upd. When partial is false, email and username
	// are required as for a full replacement.
	UpdateProfile(ctx context.Context, accountID string, upd domain.ProfileUpdate, partial bool) (*domain.Account, error)
}

// LiveValidator answers single-field checks. An empty slice means valid.
type LiveValidator interface {
	CheckUsername(ctx context.Context, username string) ([]string, error)
	CheckEmail(ctx context.Context, email string) ([]string, error)
	CheckPassword(ctx context.Context, password, username, email string) ([]string, error)
}
