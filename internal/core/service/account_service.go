package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
	"github.com/99minutos/accounts-service/internal/core/validation"
)

type accountService struct {
	repo      ports.AccountRepository
	validator *validation.Validator
	log       zerolog.Logger
	now       func() time.Time
}

// NewAccountService returns an AccountService implementation.
func NewAccountService(repo ports.AccountRepository, validator *validation.Validator, log zerolog.Logger) ports.AccountService {
	return &accountService{repo: repo, validator: validator, log: log, now: time.Now}
}

func (s *accountService) Profile(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return account, nil
}

// UpdateProfile validates upd against the current store and persists the
// changed fields.
func (s *accountService) UpdateProfile(ctx context.Context, accountID string, upd domain.ProfileUpdate, partial bool) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	clean, err := s.validator.ProfileUpdate(ctx, accountID, upd, partial)
	if err != nil {
		return nil, err
	}

	if clean.Email != nil {
		account.Email = *clean.Email
	}
	if clean.Username != nil {
		account.Username = *clean.Username
	}
	if clean.FirstName != nil {
		account.FirstName = *clean.FirstName
	}
	if clean.LastName != nil {
		account.LastName = *clean.LastName
	}
	account.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.log.Info().Str("account_id", accountID).Bool("partial", partial).Msg("profile updated")
	return updated, nil
}
