package ports

import (
	"context"
	"time"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// AccountRepository defines the interface for account persistence.
//
// Create and Update must report a unique-constraint violation as a
// *domain.ConflictError naming the offending field ("email" or "username").
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	Update(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	// EmailTaken and UsernameTaken compare case-insensitively and ignore the
	// account identified by excludeID (empty for new accounts).
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
}

// Pinger is implemented by stores that can report their connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
