package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tarothouse/backend/internal/auth"
	"github.com/tarothouse/backend/internal/clock"
	"github.com/tarothouse/backend/internal/domain"
	"github.com/tarothouse/backend/internal/events"
	"github.com/tarothouse/backend/internal/repository"
	"github.com/tarothouse/backend/internal/store"
)

var epoch = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

// countingStore records how often the record store was touched.
type countingStore struct {
	store.Store
	calls atomic.Int64
}

func (s *countingStore) Insert(ctx context.Context, c string, d store.Document) (string, error) {
	s.calls.Add(1)
	return s.Store.Insert(ctx, c, d)
}

func (s *countingStore) FindOne(ctx context.Context, c string, f store.Filter) (store.Document, error) {
	s.calls.Add(1)
	return s.Store.FindOne(ctx, c, f)
}

func (s *countingStore) FindAll(ctx context.Context, c string) ([]store.Document, error) {
	s.calls.Add(1)
	return s.Store.FindAll(ctx, c)
}

type harness struct {
	clock      *clock.FakeClock
	store      *countingStore
	ledger     repository.SessionRepository
	userTokens *auth.TokenManager
	adminTok   *auth.TokenManager
	users      *UserService
	admins     *AdminService

	mu        sync.Mutex
	published []events.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock: clock.Fake(epoch),
		store: &countingStore{Store: store.NewMemory(repository.Indexes()...)},
	}
	h.ledger = repository.NewMemorySessionRepository(h.clock)

	var err error
	h.userTokens, err = auth.NewTokenManager(auth.TokenConfig{
		Secret: "user-secret-for-tests-0123456789abcdef",
		TTL:    time.Hour,
		Issuer: "tarot-test",
		Class:  domain.SubjectClassUser,
	}, h.clock)
	if err != nil {
		t.Fatalf("user tokens: %v", err)
	}
	h.adminTok, err = auth.NewTokenManager(auth.TokenConfig{
		Secret: "admin-secret-for-tests-0123456789abcde",
		TTL:    10 * time.Minute,
		Issuer: "tarot-test",
		Class:  domain.SubjectClassAdmin,
	}, h.clock)
	if err != nil {
		t.Fatalf("admin tokens: %v", err)
	}

	dispatcher := events.NewInMemoryDispatcher()
	events.SubscribeAll(dispatcher, func(_ context.Context, e events.Event) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.published = append(h.published, e)
		return nil
	})

	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	userRepo := repository.NewUserRepository(h.store)

	h.users = NewUserService(UserDependencies{
		Users:      userRepo,
		Hasher:     hasher,
		Sessions:   NewSessionIssuer(h.userTokens, h.ledger, dispatcher, h.clock, nil),
		Dispatcher: dispatcher,
		Clock:      h.clock,
	})
	h.admins = NewAdminService(AdminDependencies{
		Admins:     repository.NewAdminRepository(h.store),
		Users:      userRepo,
		Ledger:     h.ledger,
		Hasher:     hasher,
		Sessions:   NewSessionIssuer(h.adminTok, h.ledger, dispatcher, h.clock, nil),
		Dispatcher: dispatcher,
		Clock:      h.clock,
	})
	return h
}

func (h *harness) countEvents(typ events.EventType) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.published {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func validRegistration(cred string) *RegisterInput {
	return &RegisterInput{Time: epoch.UnixMilli(), Name: "A", Credential: cred, Password: "p1"}
}
