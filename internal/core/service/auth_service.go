package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
	"github.com/99minutos/accounts-service/internal/core/validation"
)

// timingPassword is hashed once and verified against when a login names an
// unknown email, so both failure paths cost one hash computation.
const timingPassword = "timing-equalization-password"

type authService struct {
	repo      ports.AccountRepository
	validator *validation.Validator
	hasher    ports.PasswordHasher
	tokens    ports.TokenIssuer
	blacklist ports.TokenBlacklist
	log       zerolog.Logger
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService returns an AuthService implementation.
func NewAuthService(
	repo ports.AccountRepository,
	validator *validation.Validator,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	blacklist ports.TokenBlacklist,
	log zerolog.Logger,
) ports.AuthService {
	return &authService{
		repo:      repo,
		validator: validator,
		hasher:    hasher,
		tokens:    tokens,
		blacklist: blacklist,
		log:       log,
		now:       time.Now,
	}
}

// Register validates the payload, stores the account and logs it in.
func (s *authService) Register(ctx context.Context, in domain.Registration) (*domain.Account, domain.TokenPair, error) {
	// 1. Field rules and advisory uniqueness checks.
	reg, err := s.validator.Registration(ctx, in)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}

	// 2. Hash before touching the store.
	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("register: hash password: %w", err)
	}

	now := s.now().UTC()
	account := &domain.Account{
		ID:           uuid.NewString(),
		Email:        reg.Email,
		Username:     reg.Username,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 3. Insert. A concurrent registration that won the race surfaces here
	//    as a *domain.ConflictError.
	created, err := s.repo.Create(ctx, account)
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			s.log.Info().Str("field", conflict.Field).Msg("registration lost uniqueness race")
			return nil, domain.TokenPair{}, err
		}
		return nil, domain.TokenPair{}, fmt.Errorf("register: %w", err)
	}

	// 4. Issue tokens.
	pair, err := s.tokens.Issue(created.ID)
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("account_id", created.ID).Msg("account registered")
	return created, pair, nil
}

// Login checks the credentials and issues a token pair. Unknown email and
// wrong password fail with the same domain.ErrInvalidCredentials.
func (s *authService) Login(ctx context.Context, email, password string) (*domain.Account, domain.TokenPair, error) {
	email, err := s.validator.Credentials(email, password)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		s.equalizeTiming(password)
		return nil, domain.TokenPair{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("login: %w", err)
	}

	if err := s.hasher.Verify(password, account.PasswordHash); err != nil {
		return nil, domain.TokenPair{}, domain.ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, domain.TokenPair{}, domain.ErrAccountDisabled
	}

	pair, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("login: %w", err)
	}

	now := s.now().UTC()
	if err := s.repo.TouchLastLogin(ctx, account.ID, now); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("failed to record last login")
	} else {
		account.LastLoginAt = &now
	}

	return account, pair, nil
}

// Refresh rotates a refresh token: the presented token is blacklisted and a
// new pair is issued. A token can be rotated at most once.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		return domain.TokenPair{}, err
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("refresh: %w", err)
	}
	if revoked {
		s.log.Warn().Str("account_id", claims.AccountID).Msg("revoked refresh token presented")
		return domain.TokenPair{}, domain.ErrTokenRevoked
	}

	// Revoke before issuing so two concurrent rotations of one token cannot both win.
	fresh, err := s.blacklist.Revoke(ctx, claims.TokenID, claims.ExpiresAt)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("refresh: %w", err)
	}
	if !fresh {
		s.log.Warn().Str("account_id", claims.AccountID).Msg("revoked refresh token presented")
		return domain.TokenPair{}, domain.ErrTokenRevoked
	}

	account, err := s.repo.FindByID(ctx, claims.AccountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.TokenPair{}, fmt.Errorf("%w: account no longer exists", domain.ErrInvalidToken)
	}
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("refresh: %w", err)
	}
	if !account.IsActive {
		return domain.TokenPair{}, fmt.Errorf("%w: account is disabled", domain.ErrInvalidToken)
	}

	pair, err := s.tokens.Issue(account.ID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("refresh: %w", err)
	}
	return pair, nil
}

// Logout blacklists the refresh token so it can no longer be rotated.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Parse(refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		return err
	}

	fresh, err := s.blacklist.Revoke(ctx, claims.TokenID, claims.ExpiresAt)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if !fresh {
		return domain.ErrTokenRevoked
	}

	s.log.Info().Str("account_id", claims.AccountID).Msg("account logged out")
	return nil
}

func (s *authService) equalizeTiming(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(timingPassword)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to prepare timing hash")
			return
		}
		s.dummyHash = hash
	})
	_ = s.hasher.Verify(password, s.dummyHash)
}
