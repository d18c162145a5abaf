package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/accounts-service/internal/core/ports"
	"github.com/99minutos/accounts-service/internal/core/service"
	"github.com/99minutos/accounts-service/internal/core/validation"
	"github.com/99minutos/accounts-service/internal/infrastructure/crypto"
	"github.com/99minutos/accounts-service/internal/infrastructure/db/gormstore"
	redisstore "github.com/99minutos/accounts-service/internal/infrastructure/db/redis"
)

type testServer struct {
	e    *echo.Echo
	mini *miniredis.Miniredis
}

// newTestServer wires the real stack on an in-memory SQLite database and
// miniredis.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	db, err := gormstore.Open(ctx, gormstore.Config{
		Driver:      gormstore.DriverSQLite,
		DSN:         fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		AutoMigrate: true,
		LogLevel:    "silent",
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = gormstore.Close(db) })
	repo := gormstore.NewAccountRepository(db)

	mini := miniredis.RunT(t)
	client, err := redisstore.Connect(ctx, redisstore.Config{Addr: mini.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	blacklist := redisstore.NewTokenBlacklist(client)

	validator := validation.New(repo, validation.DefaultPasswordPolicy())
	tokens := service.NewTokenService(service.TokenConfig{Secret: "test-secret", Issuer: "test"})
	hasher := crypto.NewBcryptHasher(bcrypt.MinCost)
	log := zerolog.Nop()

	e, err := NewRouter(Deps{
		Log:            log,
		AuthService:    service.NewAuthService(repo, validator, hasher, tokens, blacklist, log),
		AccountService: service.NewAccountService(repo, validator, log),
		LiveValidator:  validator,
		Tokens:         tokens,
		HealthChecks: map[string]ports.Pinger{
			"database": repo,
			"redis":    blacklist,
		},
		DocsEnabled: true,
	})
	require.NoError(t, err)
	return &testServer{e: e, mini: mini}
}

func (s *testServer) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

const aliceRegistration = `{"email":"a@x.com","username":"alice","password":"longenough1","password_confirm":"longenough1"}`

func (s *testServer) register(t *testing.T) map[string]any {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/register/", aliceRegistration, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)
}

func TestRouter_RegisterThenDuplicate(t *testing.T) {
	s := newTestServer(t)

	body := s.register(t)
	assert.NotEmpty(t, body["access"])
	assert.NotEmpty(t, body["refresh"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, false, user["is_verified"])
	assert.NotContains(t, user, "password")

	rec := s.do(t, http.MethodPost, "/auth/register/",
		`{"email":"A@X.com","username":"other","password":"longenough1","password_confirm":"longenough1"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decode(t, rec)
	assert.Equal(t, []any{"A user with that email already exists."}, errs["email"])
}

func TestRouter_RegisterReportsEveryField(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/register/",
		`{"email":"bad","username":"bad name!","password":"12345678","password_confirm":"nope"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	errs := decode(t, rec)
	for _, field := range []string{"email", "username", "password", "password_confirm"} {
		assert.Contains(t, errs, field)
	}
}

func TestRouter_LoginFailuresAreUniform(t *testing.T) {
	s := newTestServer(t)
	s.register(t)

	wrongPassword := s.do(t, http.MethodPost, "/auth/login/", `{"email":"a@x.com","password":"wrong-password"}`, "")
	unknownEmail := s.do(t, http.MethodPost, "/auth/login/", `{"email":"nobody@x.com","password":"wrong-password"}`, "")

	assert.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.JSONEq(t, `{"detail":"Invalid credentials"}`, unknownEmail.Body.String())
}

func TestRouter_LoginAndProfile(t *testing.T) {
	s := newTestServer(t)
	s.register(t)

	// no trailing slash and mixed-case email
	rec := s.do(t, http.MethodPost, "/auth/login", `{"email":"A@x.com","password":"longenough1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	access := decode(t, rec)["access"].(string)

	rec = s.do(t, http.MethodGet, "/auth/profile/", "", access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile := decode(t, rec)
	assert.Equal(t, "alice", profile["username"])

	rec = s.do(t, http.MethodPatch, "/auth/profile", `{"first_name":"Alice"}`, access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Alice", decode(t, rec)["first_name"])

	rec = s.do(t, http.MethodPut, "/auth/profile/", `{"first_name":"Al"}`, access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decode(t, rec)
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "username")
}

func TestRouter_ProfileRequiresValidAccessToken(t *testing.T) {
	s := newTestServer(t)
	refresh := s.register(t)["refresh"].(string)

	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"malformed", "Bearer not-a-jwt"},
		{"wrong scheme", "Token abc"},
		{"refresh token", "Bearer " + refresh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/profile/", nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			rec := httptest.NewRecorder()
			s.e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, decode(t, rec), "detail")
		})
	}
}

func TestRouter_RefreshRotation(t *testing.T) {
	s := newTestServer(t)
	refresh := s.register(t)["refresh"].(string)

	rec := s.do(t, http.MethodPost, "/auth/token/refresh/", fmt.Sprintf(`{"refresh":%q}`, refresh), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pair := decode(t, rec)
	assert.NotEmpty(t, pair["access"])
	assert.NotEqual(t, refresh, pair["refresh"])

	rec = s.do(t, http.MethodPost, "/auth/token/refresh/", fmt.Sprintf(`{"refresh":%q}`, refresh), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Token is blacklisted"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/auth/profile/", "", pair["access"].(string))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Logout(t *testing.T) {
	s := newTestServer(t)
	refresh := s.register(t)["refresh"].(string)

	rec := s.do(t, http.MethodPost, "/auth/logout/", fmt.Sprintf(`{"refresh":%q}`, refresh), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/auth/token/refresh/", fmt.Sprintf(`{"refresh":%q}`, refresh), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_LiveValidation(t *testing.T) {
	s := newTestServer(t)
	s.register(t)

	rec := s.do(t, http.MethodPost, "/validate-username/", `{"username":"ALICE"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["is_valid"])
	assert.Equal(t, true, body["is_taken"])

	rec = s.do(t, http.MethodPost, "/validate-email", `{"email":"fresh@x.com"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["is_valid"])

	rec = s.do(t, http.MethodPost, "/validate-password/", `{"password":"password"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, false, body["is_valid"])
	assert.Contains(t, body["messages"], "This password is too common.")
}

func TestRouter_Operations(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	s.register(t)
	rec = s.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "accounts_registrations_total")
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	rec = s.do(t, http.MethodGet, "/docs/doc.json", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/auth/register/")
}

func TestRouter_ReadinessDegradedWhenRedisDown(t *testing.T) {
	s := newTestServer(t)
	s.mini.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		rec := s.do(t, http.MethodGet, "/health/ready", "", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("readiness probe hung")
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode(t, rec), "detail")
}
