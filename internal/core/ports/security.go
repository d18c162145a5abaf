package ports

import (
	"context"
	"time"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// PasswordHasher turns plaintext passwords into opaque hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify returns nil when password matches hash.
	Verify(password, hash string) error
}

// TokenIssuer mints and verifies signed tokens.
type TokenIssuer interface {
	Issue(accountID string) (domain.TokenPair, error)
	Parse(token, tokenType string) (*domain.TokenClaims, error)
}

// TokenBlacklist remembers revoked refresh tokens until they expire.
type TokenBlacklist interface {
	// Revoke marks jti revoked until the given time. It returns false when
	// the token was already revoked, so two concurrent uses of the same
	// refresh token cannot both succeed.
	Revoke(ctx context.Context, jti string, until time.Time) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
