package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tarothouse/backend/internal/auth"
	"github.com/tarothouse/backend/internal/domain"
	"github.com/tarothouse/backend/internal/events"
)

func TestRegisterIssuesUserToken(t *testing.T) {
	h := newHarness(t)

	res, err := h.users.Register(context.Background(), validRegistration("u1"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Token == nil || res.Token.TTL != time.Hour {
		t.Fatalf("unexpected token %+v", res.Token)
	}
	claims, err := h.userTokens.Verify(res.Token.Value)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	profile, ok := res.Data.(UserProfile)
	if !ok {
		t.Fatalf("data = %T, want UserProfile", res.Data)
	}
	if profile.Plat.UID != claims.Subject || profile.Plat.Name != "A" {
		t.Fatalf("profile %+v does not match subject %s", profile.Plat, claims.Subject)
	}
	if h.countEvents(events.EventSubjectRegistered) != 1 || h.countEvents(events.EventSessionIssued) != 1 {
		t.Fatalf("unexpected audit events")
	}
	if n, _ := h.ledger.CountActive(context.Background(), domain.SubjectClassUser, epoch); n != 1 {
		t.Fatalf("active sessions = %d", n)
	}
}

func TestRegisterMissingParamDoesNotTouchStore(t *testing.T) {
	h := newHarness(t)

	cases := map[string]*RegisterInput{
		"nil pack":   nil,
		"no time":    {Name: "A", Credential: "u1", Password: "p1"},
		"no name":    {Time: 1, Credential: "u1", Password: "p1"},
		"no cred":    {Time: 1, Name: "A", Password: "p1"},
		"no pwd":     {Time: 1, Name: "A", Credential: "u1"},
		"empty pack": {},
	}
	for name, in := range cases {
		if _, err := h.users.Register(context.Background(), in); !errors.Is(err, domain.ErrMissingParam) {
			t.Errorf("%s: err = %v, want ErrMissingParam", name, err)
		}
	}

	_, err := h.users.Register(context.Background(), &RegisterInput{Time: 1, Name: "A", Credential: "u1"})
	var missing *domain.MissingParamError
	if !errors.As(err, &missing) || missing.Field != "pwd" {
		t.Fatalf("err = %v, want missing pwd", err)
	}
	if calls := h.store.calls.Load(); calls != 0 {
		t.Fatalf("store touched %d times", calls)
	}
}

func TestRegisterDuplicateCredential(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.users.Register(ctx, validRegistration("u1")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := h.users.Register(ctx, validRegistration("u1")); !errors.Is(err, domain.ErrSubjectExists) {
		t.Fatalf("err = %v, want ErrSubjectExists", err)
	}
}

func TestConcurrentRegistrationSettlesOnOneWinner(t *testing.T) {
	h := newHarness(t)

	const attempts = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		exists  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.users.Register(context.Background(), validRegistration("race"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, domain.ErrSubjectExists):
				exists++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if success != 1 || exists != attempts-1 {
		t.Fatalf("success=%d exists=%d", success, exists)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.users.Register(ctx, validRegistration("u1")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, wrongPwd := h.users.Login(ctx, &LoginInput{Credential: "u1", Password: "nope"})
	_, unknown := h.users.Login(ctx, &LoginInput{Credential: "ghost", Password: "p1"})
	if !errors.Is(wrongPwd, domain.ErrInvalidCredentials) || !errors.Is(unknown, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v, unknown: %v", wrongPwd, unknown)
	}
	if wrongPwd.Error() != unknown.Error() {
		t.Fatalf("messages differ: %q vs %q", wrongPwd, unknown)
	}

	res, err := h.users.Login(ctx, &LoginInput{Credential: "u1", Password: "p1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := h.userTokens.Verify(res.Token.Value); err != nil {
		t.Fatalf("login token: %v", err)
	}

	for name, in := range map[string]*LoginInput{
		"nil":     nil,
		"no cred": {Password: "p1"},
		"no pwd":  {Credential: "u1"},
	} {
		if _, err := h.users.Login(ctx, in); !errors.Is(err, domain.ErrMissingParam) {
			t.Errorf("%s: err = %v, want ErrMissingParam", name, err)
		}
	}
}

func TestActDispatchAndSlidingToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reg, err := h.users.Register(ctx, validRegistration("u1"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	claims, _ := h.userTokens.Verify(reg.Token.Value)

	cases := []struct {
		act  int
		want func(any) bool
	}{
		{1, func(d any) bool { _, ok := d.(RankingSnapshot); return ok }},
		{2, func(d any) bool { entries, ok := d.([]HistoryEntry); return ok && len(entries) == 2 }},
		{7, func(d any) bool { e, ok := d.(EchoResult); return ok && e.Action == 7 && e.Status == "executed" }},
		{-1, func(d any) bool { _, ok := d.(EchoResult); return ok }},
	}
	for _, tc := range cases {
		res, err := h.users.Act(ctx, claims.Subject, &ActInput{Act: tc.act})
		if err != nil {
			t.Fatalf("Act(%d): %v", tc.act, err)
		}
		if !tc.want(res.Data) {
			t.Errorf("Act(%d): unexpected data %#v", tc.act, res.Data)
		}
		if res.Token == nil || res.Token.Value == reg.Token.Value || res.Token.ID == reg.Token.ID {
			t.Errorf("Act(%d): token not refreshed", tc.act)
		}
	}

	if _, err := h.users.Act(ctx, claims.Subject, &ActInput{}); !errors.Is(err, domain.ErrMissingParam) {
		t.Fatalf("act 0: err = %v", err)
	}
	if _, err := h.users.Act(ctx, claims.Subject, nil); !errors.Is(err, domain.ErrMissingParam) {
		t.Fatalf("nil pack: err = %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reg, err := h.users.Register(ctx, validRegistration("u1"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	gate := auth.NewGate(h.userTokens, h.ledger)
	principal, err := gate.Authenticate(ctx, "Bearer "+reg.Token.Value)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	res, err := h.users.Logout(ctx, principal)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if res.Token != nil {
		t.Fatal("logout must not mint a token")
	}
	if _, err := gate.Authenticate(ctx, "Bearer "+reg.Token.Value); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("after logout: err = %v, want ErrInvalidToken", err)
	}
	if h.countEvents(events.EventSessionRevoked) != 1 {
		t.Fatalf("revocation not published")
	}
}
