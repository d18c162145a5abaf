package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in domain.Registration) (*domain.Account, domain.TokenPair, error)
	loginFn    func(ctx context.Context, email, password string) (*domain.Account, domain.TokenPair, error)
	refreshFn  func(ctx context.Context, refreshToken string) (domain.TokenPair, error)
	logoutFn   func(ctx context.Context, refreshToken string) error
}

func (s *stubAuthService) Register(ctx context.Context, in domain.Registration) (*domain.Account, domain.TokenPair, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*domain.Account, domain.TokenPair, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubAuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.logoutFn(ctx, refreshToken)
}

// newJSONContext builds an Echo context for a JSON request with the field
// validator installed, the same as the router does.
func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func sampleAccount() *domain.Account {
	return &domain.Account{
		ID:           "acc-1",
		Email:        "alice@example.com",
		Username:     "alice",
		FirstName:    "Alice",
		PasswordHash: "secret-hash",
		IsActive:     true,
		CreatedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in domain.Registration) (*domain.Account, domain.TokenPair, error) {
			if in.Email != "alice@example.com" || in.Username != "alice" || in.Password != "longenough1" || in.PasswordConfirm != "longenough1" {
				t.Fatalf("unexpected registration: %+v", in)
			}
			return sampleAccount(), domain.TokenPair{Access: "acc", Refresh: "ref"}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/auth/register/",
		`{"email":"alice@example.com","username":"alice","first_name":"Alice","password":"longenough1","password_confirm":"longenough1"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["access"] != "acc" || resp["refresh"] != "ref" {
		t.Fatalf("unexpected tokens: %+v", resp)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if user["id"] != "acc-1" || user["username"] != "alice" || user["first_name"] != "Alice" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if strings.Contains(rec.Body.String(), "secret-hash") || strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("response leaks the password: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_PassesServiceErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"validation", &domain.ValidationError{Fields: map[string][]string{"email": {"This field is required."}}}},
		{"conflict", domain.NewConflictError("email")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubAuthService{
				registerFn: func(context.Context, domain.Registration) (*domain.Account, domain.TokenPair, error) {
					return nil, domain.TokenPair{}, tc.err
				},
			}
			c, _ := newJSONContext(http.MethodPost, "/auth/register/", `{"email":""}`)

			err := NewAuthHandler(stub).Register(c)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
		})
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(context.Context, domain.Registration) (*domain.Account, domain.TokenPair, error) {
			t.Fatalf("should not be called")
			return nil, domain.TokenPair{}, nil
		},
	}
	c, _ := newJSONContext(http.MethodPost, "/auth/register/", "not-json")

	err := NewAuthHandler(stub).Register(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(_ context.Context, email, password string) (*domain.Account, domain.TokenPair, error) {
			if email != "alice@example.com" || password != "longenough1" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return sampleAccount(), domain.TokenPair{Access: "acc", Refresh: "ref"}, nil
		},
	}
	c, rec := newJSONContext(http.MethodPost, "/auth/login/", `{"email":"alice@example.com","password":"longenough1"}`)

	if err := NewAuthHandler(stub).Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Access != "acc" || resp.Refresh != "ref" || resp.User.Email != "alice@example.com" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (*domain.Account, domain.TokenPair, error) {
			return nil, domain.TokenPair{}, domain.ErrInvalidCredentials
		},
	}
	c, rec := newJSONContext(http.MethodPost, "/auth/login/", `{"email":"alice@example.com","password":"bad"}`)

	err := NewAuthHandler(stub).Login(c)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("handler must leave rendering to the error handler")
	}
}

func TestAuthHandler_Refresh_Success(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(_ context.Context, token string) (domain.TokenPair, error) {
			if token != "old" {
				t.Fatalf("unexpected token %q", token)
			}
			return domain.TokenPair{Access: "a2", Refresh: "r2"}, nil
		},
	}
	c, rec := newJSONContext(http.MethodPost, "/auth/token/refresh/", `{"refresh":"old"}`)

	if err := NewAuthHandler(stub).Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Access != "a2" || resp.Refresh != "r2" {
		t.Fatalf("unexpected pair: %+v", resp)
	}
}

func TestAuthHandler_Refresh_MissingToken(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(context.Context, string) (domain.TokenPair, error) {
			t.Fatalf("should not be called")
			return domain.TokenPair{}, nil
		},
	}
	c, _ := newJSONContext(http.MethodPost, "/auth/token/refresh/", `{}`)

	err := NewAuthHandler(stub).Refresh(c)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || !verr.Has("refresh") {
		t.Fatalf("expected refresh field error, got %v", err)
	}
}

func TestAuthHandler_Refresh_Revoked(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(context.Context, string) (domain.TokenPair, error) {
			return domain.TokenPair{}, domain.ErrTokenRevoked
		},
	}
	c, _ := newJSONContext(http.MethodPost, "/auth/token/refresh/", `{"refresh":"used"}`)

	if err := NewAuthHandler(stub).Refresh(c); !errors.Is(err, domain.ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	var revoked string
	stub := &stubAuthService{
		logoutFn: func(_ context.Context, token string) error {
			revoked = token
			return nil
		},
	}
	c, rec := newJSONContext(http.MethodPost, "/auth/logout/", `{"refresh":"tok"}`)

	if err := NewAuthHandler(stub).Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || revoked != "tok" {
		t.Fatalf("expected 200 and revoked token, got %d %q", rec.Code, revoked)
	}
}
