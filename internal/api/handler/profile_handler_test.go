package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-service/internal/api/middleware"
	"github.com/99minutos/accounts-service/internal/core/domain"
)

type stubAccountService struct {
	updateFn func(ctx context.Context, id string, upd domain.ProfileUpdate, partial bool) (*domain.Account, error)
}

func (s *stubAccountService) Profile(context.Context, string) (*domain.Account, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAccountService) UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate, partial bool) (*domain.Account, error) {
	return s.updateFn(ctx, id, upd, partial)
}

func TestProfileHandler_Get(t *testing.T) {
	c, rec := newJSONContext(http.MethodGet, "/auth/profile/", "")
	c.Set(middleware.ContextAccount, sampleAccount())

	if err := NewProfileHandler(&stubAccountService{}).Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, key := range []string{"id", "email", "username", "first_name", "last_name", "is_verified", "created_at"} {
		if _, ok := resp[key]; !ok {
			t.Fatalf("missing %q in %v", key, resp)
		}
	}
	if _, ok := resp["password"]; ok {
		t.Fatalf("password must never be serialized")
	}
}

func TestProfileHandler_Get_WithoutAccount(t *testing.T) {
	c, _ := newJSONContext(http.MethodGet, "/auth/profile/", "")

	err := NewProfileHandler(&stubAccountService{}).Get(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestProfileHandler_PutAndPatch(t *testing.T) {
	cases := []struct {
		name        string
		call        func(h *ProfileHandler, c echo.Context) error
		body        string
		wantPartial bool
	}{
		{"put", (*ProfileHandler).Put, `{"email":"new@example.com","username":"alice","first_name":"Al"}`, false},
		{"patch", (*ProfileHandler).Patch, `{"first_name":"Al"}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotPartial bool
			var gotUpd domain.ProfileUpdate
			stub := &stubAccountService{
				updateFn: func(_ context.Context, id string, upd domain.ProfileUpdate, partial bool) (*domain.Account, error) {
					if id != "acc-1" {
						t.Fatalf("unexpected id %q", id)
					}
					gotPartial, gotUpd = partial, upd
					a := sampleAccount()
					a.FirstName = *upd.FirstName
					return a, nil
				},
			}
			c, rec := newJSONContext(http.MethodPut, "/auth/profile/", tc.body)
			c.Set(middleware.ContextAccount, sampleAccount())

			if err := tc.call(NewProfileHandler(stub), c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if gotPartial != tc.wantPartial {
				t.Fatalf("partial = %v, want %v", gotPartial, tc.wantPartial)
			}
			if gotUpd.FirstName == nil || *gotUpd.FirstName != "Al" {
				t.Fatalf("first_name not forwarded: %+v", gotUpd)
			}
			if tc.wantPartial && gotUpd.Email != nil {
				t.Fatalf("absent email must stay nil on patch")
			}

			var resp userResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.FirstName != "Al" {
				t.Fatalf("unexpected response: %+v", resp)
			}
		})
	}
}

func TestProfileHandler_Update_Conflict(t *testing.T) {
	stub := &stubAccountService{
		updateFn: func(context.Context, string, domain.ProfileUpdate, bool) (*domain.Account, error) {
			return nil, domain.NewConflictError("username")
		},
	}
	c, _ := newJSONContext(http.MethodPatch, "/auth/profile/", `{"username":"bob"}`)
	c.Set(middleware.ContextAccount, sampleAccount())

	err := NewProfileHandler(stub).Patch(c)
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) || conflict.Field != "username" {
		t.Fatalf("expected username conflict, got %v", err)
	}
}
