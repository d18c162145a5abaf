package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

const (
	accountsCollection = "accounts"
	emailIndex         = "uniq_email"
	usernameIndex      = "uniq_username_key"
)

// duplicateIndex captures the index name of an E11000 message. The key
// value follows the name, so the first match is always the index.
var duplicateIndex = regexp.MustCompile(`index: (\S+)`)

type AccountRepository struct {
	coll *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(accountsCollection)}
}

type mongoAccount struct {
	ID           string     `bson:"_id"`
	Email        string     `bson:"email"`
	Username     string     `bson:"username"`
	UsernameKey  string     `bson:"username_key"`
	FirstName    string     `bson:"first_name"`
	LastName     string     `bson:"last_name"`
	PasswordHash string     `bson:"password_hash"`
	IsActive     bool       `bson:"is_active"`
	IsVerified   bool       `bson:"is_verified"`
	LastLoginAt  *time.Time `bson:"last_login_at,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

// EnsureIndexes creates the unique indexes that arbitrate concurrent
// registrations.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(emailIndex)},
		{Keys: bson.D{{Key: "username_key", Value: 1}}, Options: options.Index().SetUnique(true).SetName(usernameIndex)},
	})
	if err != nil {
		return fmt.Errorf("ensure account indexes: %w", err)
	}
	return nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	doc := toDocument(account)

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if field := duplicateKeyField(err); field != "" {
			return nil, domain.NewConflictError(field)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return fromDocument(&doc), nil
}

func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	doc := toDocument(account)

	res, err := r.coll.UpdateByID(ctx, doc.ID, bson.M{"$set": bson.M{
		"email":        doc.Email,
		"username":     doc.Username,
		"username_key": doc.UsernameKey,
		"first_name":   doc.FirstName,
		"last_name":    doc.LastName,
		"is_active":    doc.IsActive,
		"is_verified":  doc.IsVerified,
		"updated_at":   doc.UpdatedAt,
	}})
	if err != nil {
		if field := duplicateKeyField(err); field != "" {
			return nil, domain.NewConflictError(field)
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, domain.ErrAccountNotFound
	}
	return r.FindByID(ctx, doc.ID)
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (r *AccountRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"last_login_at": at.UTC()}})
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	return r.exists(ctx, bson.M{"email": domain.NormalizeEmail(email)}, excludeID)
}

func (r *AccountRepository) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	return r.exists(ctx, bson.M{"username_key": domain.UsernameKey(username)}, excludeID)
}

// Ping reports whether the server answers.
func (r *AccountRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var doc mongoAccount
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return fromDocument(&doc), nil
}

func (r *AccountRepository) exists(ctx context.Context, filter bson.M, excludeID string) (bool, error) {
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count accounts: %w", err)
	}
	return n > 0, nil
}

// duplicateKeyField names the field whose unique index rejected a write.
// Only the index name is inspected; the duplicated value may contain anything.
func duplicateKeyField(err error) string {
	if !mongo.IsDuplicateKeyError(err) {
		return ""
	}
	m := duplicateIndex.FindStringSubmatch(err.Error())
	if m == nil {
		return ""
	}
	switch m[1] {
	case emailIndex, "email_1":
		return "email"
	case usernameIndex, "username_key_1":
		return "username"
	default:
		return ""
	}
}

func toDocument(a *domain.Account) mongoAccount {
	return mongoAccount{
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
		CreatedAt:    a.CreatedAt.UTC(),
		UpdatedAt:    a.UpdatedAt.UTC(),
	}
}

func fromDocument(doc *mongoAccount) *domain.Account {
	return &domain.Account{
		ID:           doc.ID,
		Email:        doc.Email,
		Username:     doc.Username,
		FirstName:    doc.FirstName,
		LastName:     doc.LastName,
		PasswordHash: doc.PasswordHash,
		IsActive:     doc.IsActive,
		IsVerified:   doc.IsVerified,
		LastLoginAt:  doc.LastLoginAt,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}
}
