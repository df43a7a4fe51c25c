package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tarothouse/backend/internal/clock"
	"github.com/tarothouse/backend/internal/domain"
	apperrors "github.com/tarothouse/backend/pkg/errorutil"
)

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s stubRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.revoked[id], nil
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		want   string
		err    error
	}{
		{"", "", ErrMissingCredential},
		{"abc.def.ghi", "", ErrMissingCredential},
		{"Basic dXNlcjpwYXNz", "", ErrMissingCredential},
		{"Bearer", "", ErrMissingCredential},
		{"Bearer ", "", ErrMissingCredential},
		{"bearer abc", "", ErrMissingCredential},
		{"Bearer abc", "abc", nil},
	}
	for _, tc := range cases {
		got, err := ExtractBearer(tc.header)
		if !errors.Is(err, tc.err) || got != tc.want {
			t.Errorf("ExtractBearer(%q) = (%q, %v), want (%q, %v)", tc.header, got, err, tc.want, tc.err)
		}
	}
}

func TestGateAuthenticate(t *testing.T) {
	fake := clock.Fake(epoch)
	users, admins := newTestManagers(t, fake)

	userTok, _ := users.Issue("usr_1")
	adminTok, _ := admins.Issue("admin123")
	revokedTok, _ := users.Issue("usr_1")

	gate := NewGate(users, stubRevocations{revoked: map[string]bool{revokedTok.ID: true}})

	principal, err := gate.Authenticate(context.Background(), "Bearer "+userTok.Value)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if principal.SubjectID != "usr_1" || principal.TokenID != userTok.ID || principal.Class != domain.SubjectClassUser {
		t.Fatalf("unexpected principal %+v", principal)
	}
	if !principal.ExpiresAt.Equal(userTok.ExpiresAt) {
		t.Fatalf("ExpiresAt = %v, want %v", principal.ExpiresAt, userTok.ExpiresAt)
	}

	cases := []struct {
		name   string
		header string
		want   error
	}{
		{"missing", "", ErrMissingCredential},
		{"no prefix", userTok.Value, ErrMissingCredential},
		{"garbage", "Bearer nope", ErrInvalidToken},
		{"admin token", "Bearer " + adminTok.Value, ErrInvalidToken},
		{"revoked", "Bearer " + revokedTok.Value, ErrInvalidToken},
	}
	for _, tc := range cases {
		if _, err := gate.Authenticate(context.Background(), tc.header); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}

	fake.Advance(time.Hour)
	if _, err := gate.Authenticate(context.Background(), "Bearer "+userTok.Value); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expired: err = %v", err)
	}
}

func TestGateRevocationFailureIsInternal(t *testing.T) {
	users, _ := newTestManagers(t, clock.Fake(epoch))
	tok, _ := users.Issue("usr_1")
	gate := NewGate(users, stubRevocations{err: errors.New("redis down")})

	_, err := gate.Authenticate(context.Background(), "Bearer "+tok.Value)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := apperrors.ToDomainError(MapAuthError(err)).Code; got != apperrors.CodeInternal {
		t.Fatalf("code = %s, want %s", got, apperrors.CodeInternal)
	}
}

func TestGateHandle(t *testing.T) {
	fake := clock.Fake(epoch)
	users, _ := newTestManagers(t, fake)
	gate := NewGate(users, nil)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code})
		},
	})
	app.Get("/protected", gate.Handle, func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return errors.New("principal missing")
		}
		return c.JSON(fiber.Map{"subject": principal.SubjectID})
	})

	tok, _ := users.Issue("usr_42")

	cases := []struct {
		name   string
		header string
		status int
		field  string
		want   string
	}{
		{"ok", "Bearer " + tok.Value, http.StatusOK, "subject", "usr_42"},
		{"missing", "", http.StatusUnauthorized, "code", apperrors.CodeMissingCredential},
		{"malformed", "Token " + tok.Value, http.StatusUnauthorized, "code", apperrors.CodeMissingCredential},
		{"invalid", "Bearer x.y.z", http.StatusUnauthorized, "code", apperrors.CodeInvalidToken},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		var body map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.status || body[tc.field] != tc.want {
			t.Errorf("%s: got (%d, %v), want (%d, %s=%s)", tc.name, resp.StatusCode, body, tc.status, tc.field, tc.want)
		}
	}

	fake.Advance(2 * time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Value)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("expired: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["code"] != apperrors.CodeExpiredToken {
		t.Fatalf("expired: code = %q", body["code"])
	}
}

func TestRequireClass(t *testing.T) {
	users, _ := newTestManagers(t, clock.Fake(epoch))
	gate := NewGate(users, nil)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code})
		},
	})
	ok := func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) }
	app.Get("/user", gate.Handle, RequireClass(domain.SubjectClassUser), ok)
	app.Get("/admin", gate.Handle, RequireClass(domain.SubjectClassAdmin), ok)
	app.Get("/bare", RequireClass(domain.SubjectClassUser), ok)

	tok, _ := users.Issue("usr_1")
	cases := []struct {
		path   string
		status int
	}{
		{"/user", http.StatusNoContent},
		{"/admin", http.StatusUnauthorized},
		{"/bare", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.Header.Set("Authorization", "Bearer "+tok.Value)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.path, resp.StatusCode, tc.status)
		}
	}
}
