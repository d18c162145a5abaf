package domain

import "time"

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenPair is what a successful login, registration or refresh returns.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenClaims is the verified content of a token.
type TokenClaims struct {
	AccountID string
	TokenID   string
	Type      string
	ExpiresAt time.Time
}
