package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// accountRecord is the row layout of the accounts table. Email is stored
// normalized; username keeps its original spelling and username_key holds
// the folded form that carries the unique index.
type accountRecord struct {
	ID           string     `gorm:"primaryKey;size:36"`
	Email        string     `gorm:"size:254;not null;uniqueIndex:idx_accounts_email"`
	Username     string     `gorm:"size:150;not null"`
	UsernameKey  string     `gorm:"size:150;not null;uniqueIndex:idx_accounts_username_key"`
	FirstName    string     `gorm:"size:150;not null"`
	LastName     string     `gorm:"size:150;not null"`
	PasswordHash string     `gorm:"size:255;not null"`
	IsActive     bool       `gorm:"not null"`
	IsVerified   bool       `gorm:"not null"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (accountRecord) TableName() string { return "accounts" }

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts the account inside a transaction. A unique-index violation
// is returned as a *domain.ConflictError.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	rec := toRecord(account)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rec).Error
	})
	if err != nil {
		if field := uniqueViolationField(err); field != "" {
			return nil, domain.NewConflictError(field)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return toDomain(&rec), nil
}

// Update writes the editable columns and the status flags.
func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	rec := toRecord(account)

	res := r.db.WithContext(ctx).
		Model(&accountRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]any{
			"email":        rec.Email,
			"username":     rec.Username,
			"username_key": rec.UsernameKey,
			"first_name":   rec.FirstName,
			"last_name":    rec.LastName,
			"is_active":    rec.IsActive,
			"is_verified":  rec.IsVerified,
			"updated_at":   rec.UpdatedAt,
		})
	if res.Error != nil {
		if field := uniqueViolationField(res.Error); field != "" {
			return nil, domain.NewConflictError(field)
		}
		return nil, fmt.Errorf("update account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrAccountNotFound
	}

	return r.FindByID(ctx, rec.ID)
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, "email = ?", domain.NormalizeEmail(email))
}

func (r *AccountRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&accountRecord{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at.UTC())
	if res.Error != nil {
		return fmt.Errorf("touch last login: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	return r.exists(ctx, "email = ?", domain.NormalizeEmail(email), excludeID)
}

func (r *AccountRepository) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	return r.exists(ctx, "username_key = ?", domain.UsernameKey(username), excludeID)
}

// Ping reports whether the database answers.
func (r *AccountRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *AccountRepository) findOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var rec accountRecord
	if err := r.db.WithContext(ctx).Where(query, arg).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return toDomain(&rec), nil
}

func (r *AccountRepository) exists(ctx context.Context, query string, arg any, excludeID string) (bool, error) {
	q := r.db.WithContext(ctx).Model(&accountRecord{}).Where(query, arg)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("count accounts: %w", err)
	}
	return n > 0, nil
}

// uniqueViolationField maps a unique-index violation to the field it
// protects, or returns "" for any other error.
func uniqueViolationField(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return ""
		}
		return fieldForIndex(pgErr.ConstraintName)
	}

	// SQLite: "UNIQUE constraint failed: accounts.email"
	if msg := err.Error(); strings.Contains(msg, "UNIQUE constraint failed") {
		return fieldForIndex(msg)
	}
	return ""
}

func fieldForIndex(name string) string {
	switch {
	case strings.Contains(name, "email"):
		return "email"
	case strings.Contains(name, "username"):
		return "username"
	default:
		return ""
	}
}

func toRecord(a *domain.Account) accountRecord {
	return accountRecord{
		ID:           a.ID,
		Email:        domain.NormalizeEmail(a.Email),
		Username:     a.Username,
		UsernameKey:  a.UsernameKey(),
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		PasswordHash: a.PasswordHash,
		IsActive:     a.IsActive,
		IsVerified:   a.IsVerified,
		LastLoginAt:  a.LastLoginAt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func toDomain(rec *accountRecord) *domain.Account {
	return &domain.Account{
		ID:           rec.ID,
		Email:        rec.Email,
		Username:     rec.Username,
		FirstName:    rec.FirstName,
		LastName:     rec.LastName,
		PasswordHash: rec.PasswordHash,
		IsActive:     rec.IsActive,
		IsVerified:   rec.IsVerified,
		LastLoginAt:  rec.LastLoginAt,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}
