// Package validation holds the request rules for registration, login and
// profile updates. Every rule reports a field-keyed message so the HTTP layer
// can render all problems of a submission in one response.
package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

const (
	maxEmailLength    = 254
	maxUsernameLength = 150
	maxNameLength     = 150
)

const (
	msgRequired        = "This field is required."
	msgInvalidEmail    = "Enter a valid email address."
	msgInvalidUsername = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	msgPasswordsDiffer = "Passwords don't match."
)

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// Lookup answers the availability questions asked during validation.
// Results are advisory; the store's unique constraints have the final say.
type Lookup interface {
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
}

// Validator applies the account rules against the current store state.
type Validator struct {
	lookup Lookup
	policy PasswordPolicy
	v      *validator.Validate
}

func New(lookup Lookup, policy PasswordPolicy) *Validator {
	return &Validator{lookup: lookup, policy: policy, v: validator.New()}
}

// Registration validates a sign-up payload and returns it normalized.
// A failing payload yields a *domain.ValidationError.
func (val *Validator) Registration(ctx context.Context, in domain.Registration) (domain.Registration, error) {
	verr := domain.NewValidationError()

	out := domain.Registration{
		Email:           domain.NormalizeEmail(in.Email),
		Username:        strings.TrimSpace(in.Username),
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		Password:        in.Password,
		PasswordConfirm: in.PasswordConfirm,
	}

	if err := val.email(ctx, verr, out.Email, ""); err != nil {
		return domain.Registration{}, err
	}
	if err := val.username(ctx, verr, out.Username, ""); err != nil {
		return domain.Registration{}, err
	}
	val.name(verr, "first_name", out.FirstName)
	val.name(verr, "last_name", out.LastName)

	if out.Password == "" {
		verr.Add("password", msgRequired)
	} else {
		for _, msg := range val.policy.Check(out.Password,
			PasswordAttribute{Name: "username", Value: out.Username},
			PasswordAttribute{Name: "email address", Value: out.Email},
			PasswordAttribute{Name: "first name", Value: out.FirstName},
			PasswordAttribute{Name: "last name", Value: out.LastName},
		) {
			verr.Add("password", msg)
		}
	}

	switch {
	case out.PasswordConfirm == "":
		verr.Add("password_confirm", msgRequired)
	case out.Password != out.PasswordConfirm:
		verr.Add("password_confirm", msgPasswordsDiffer)
	}

	if err := verr.ErrOrNil(); err != nil {
		return domain.Registration{}, err
	}
	return out, nil
}

// Credentials checks the login payload shape and returns the normalized
// email. It never consults the store.
func (val *Validator) Credentials(email, password string) (string, error) {
	verr := domain.NewValidationError()

	email = domain.NormalizeEmail(email)
	switch {
	case email == "":
		verr.Add("email", msgRequired)
	case val.v.Var(email, "email") != nil:
		verr.Add("email", msgInvalidEmail)
	}
	if password == "" {
		verr.Add("password", msgRequired)
	}

	if err := verr.ErrOrNil(); err != nil {
		return "", err
	}
	return email, nil
}

// ProfileUpdate validates the editable profile fields of accountID. For a
// full update (partial == false) email and username are required.
func (val *Validator) ProfileUpdate(ctx context.Context, accountID string, upd domain.ProfileUpdate, partial bool) (domain.ProfileUpdate, error) {
	verr := domain.NewValidationError()
	var out domain.ProfileUpdate

	if upd.Email != nil || !partial {
		email := ""
		if upd.Email != nil {
			email = domain.NormalizeEmail(*upd.Email)
		}
		if err := val.email(ctx, verr, email, accountID); err != nil {
			return domain.ProfileUpdate{}, err
		}
		out.Email = &email
	}
	if upd.Username != nil || !partial {
		username := ""
		if upd.Username != nil {
			username = strings.TrimSpace(*upd.Username)
		}
		if err := val.username(ctx, verr, username, accountID); err != nil {
			return domain.ProfileUpdate{}, err
		}
		out.Username = &username
	}
	if upd.FirstName != nil {
		first := strings.TrimSpace(*upd.FirstName)
		val.name(verr, "first_name", first)
		out.FirstName = &first
	}
	if upd.LastName != nil {
		last := strings.TrimSpace(*upd.LastName)
		val.name(verr, "last_name", last)
		out.LastName = &last
	}

	if err := verr.ErrOrNil(); err != nil {
		return domain.ProfileUpdate{}, err
	}
	return out, nil
}

// CheckUsername reports format and availability problems of a username.
func (val *Validator) CheckUsername(ctx context.Context, username string) ([]string, error) {
	verr := domain.NewValidationError()
	if err := val.username(ctx, verr, strings.TrimSpace(username), ""); err != nil {
		return nil, err
	}
	return verr.Fields["username"], nil
}

// CheckEmail reports syntax and availability problems of an email address.
func (val *Validator) CheckEmail(ctx context.Context, email string) ([]string, error) {
	verr := domain.NewValidationError()
	if err := val.email(ctx, verr, domain.NormalizeEmail(email), ""); err != nil {
		return nil, err
	}
	return verr.Fields["email"], nil
}

// CheckPassword runs the strength policy. username and email are optional
// and only feed the similarity rule.
func (val *Validator) CheckPassword(_ context.Context, password, username, email string) ([]string, error) {
	if password == "" {
		return []string{msgRequired}, nil
	}
	return val.policy.Check(password,
		PasswordAttribute{Name: "username", Value: username},
		PasswordAttribute{Name: "email address", Value: domain.NormalizeEmail(email)},
	), nil
}

func (val *Validator) email(ctx context.Context, verr *domain.ValidationError, email, excludeID string) error {
	switch {
	case email == "":
		verr.Add("email", msgRequired)
		return nil
	case utf8.RuneCountInString(email) > maxEmailLength:
		verr.Add("email", maxLengthMessage(maxEmailLength))
		return nil
	case val.v.Var(email, "email") != nil:
		verr.Add("email", msgInvalidEmail)
		return nil
	}

	taken, err := val.lookup.EmailTaken(ctx, email, excludeID)
	if err != nil {
		return fmt.Errorf("check email availability: %w", err)
	}
	if taken {
		verr.Add("email", domain.ConflictMessage("email"))
	}
	return nil
}

func (val *Validator) username(ctx context.Context, verr *domain.ValidationError, username, excludeID string) error {
	switch {
	case username == "":
		verr.Add("username", msgRequired)
		return nil
	case utf8.RuneCountInString(username) > maxUsernameLength:
		verr.Add("username", maxLengthMessage(maxUsernameLength))
		return nil
	case !usernamePattern.MatchString(username):
		verr.Add("username", msgInvalidUsername)
		return nil
	}

	taken, err := val.lookup.UsernameTaken(ctx, username, excludeID)
	if err != nil {
		return fmt.Errorf("check username availability: %w", err)
	}
	if taken {
		verr.Add("username", domain.ConflictMessage("username"))
	}
	return nil
}

func (val *Validator) name(verr *domain.ValidationError, field, value string) {
	if utf8.RuneCountInString(value) > maxNameLength {
		verr.Add(field, maxLengthMessage(maxNameLength))
	}
}

func maxLengthMessage(n int) string {
	return fmt.Sprintf("Ensure this field has no more than %d characters.", n)
}
