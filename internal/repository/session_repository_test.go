package repository

import (
	"context"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tarothouse/backend/internal/clock"
	"github.com/tarothouse/backend/internal/domain"
)

var epoch = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func session(class domain.SubjectClass, ttl time.Duration) domain.Session {
	return domain.Session{
		TokenID:   uuid.NewString(),
		SubjectID: "subject",
		Class:     class,
		IssuedAt:  epoch,
		ExpiresAt: epoch.Add(ttl),
	}
}

func exerciseSessionRepository(t *testing.T, repo SessionRepository, advance func(time.Duration)) {
	t.Helper()
	ctx := context.Background()

	u1 := session(domain.SubjectClassUser, time.Hour)
	u2 := session(domain.SubjectClassUser, time.Hour)
	a1 := session(domain.SubjectClassAdmin, 10*time.Minute)
	for _, s := range []domain.Session{u1, u2, a1} {
		if err := repo.Record(ctx, s); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	if n, err := repo.CountActive(ctx, domain.SubjectClassUser, epoch); err != nil || n != 2 {
		t.Fatalf("active users = %d, %v", n, err)
	}
	if n, err := repo.CountActive(ctx, domain.SubjectClassAdmin, epoch); err != nil || n != 1 {
		t.Fatalf("active admins = %d, %v", n, err)
	}

	if err := repo.Revoke(ctx, u1.TokenID, u1.ExpiresAt); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if revoked, err := repo.IsRevoked(ctx, u1.TokenID); err != nil || !revoked {
		t.Fatalf("IsRevoked(u1) = %v, %v", revoked, err)
	}
	if revoked, err := repo.IsRevoked(ctx, u2.TokenID); err != nil || revoked {
		t.Fatalf("IsRevoked(u2) = %v, %v", revoked, err)
	}
	if n, _ := repo.CountActive(ctx, domain.SubjectClassUser, epoch); n != 1 {
		t.Fatalf("active users after revoke = %d", n)
	}

	if n, _ := repo.CountActive(ctx, domain.SubjectClassAdmin, epoch.Add(10*time.Minute)); n != 0 {
		t.Fatalf("admin session counted at its expiry: %d", n)
	}

	if advance == nil {
		return
	}
	advance(2 * time.Hour)
	if revoked, _ := repo.IsRevoked(ctx, u1.TokenID); revoked {
		t.Fatalf("revocation outlived token expiry")
	}
}

func TestMemorySessionRepository(t *testing.T) {
	fake := clock.Fake(epoch)
	repo := NewMemorySessionRepository(fake)
	exerciseSessionRepository(t, repo, fake.Advance)

	if err := repo.Revoke(context.Background(), "past", epoch); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if revoked, _ := repo.IsRevoked(context.Background(), "past"); revoked {
		t.Fatal("revocation of an already expired token should be a no-op")
	}
}

// stubRedis implements the commands the redis session repository issues,
// with key expiry driven by a fake clock. Any other command panics through
// the nil embedded interface.
type stubRedis struct {
	redis.Cmdable
	clock   *clock.FakeClock
	zsets   map[string]map[string]float64
	expires map[string]time.Time
	ttls    map[string]time.Duration
}

func newStubRedis(clk *clock.FakeClock) *stubRedis {
	return &stubRedis{
		clock:   clk,
		zsets:   make(map[string]map[string]float64),
		expires: make(map[string]time.Time),
		ttls:    make(map[string]time.Duration),
	}
}

func (s *stubRedis) TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error) {
	return nil, fn(stubPipe{s: s})
}

func (s *stubRedis) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if until, ok := s.expires[key]; ok && until.After(s.clock.Now()) {
			n++
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(n)
	return cmd
}

func (s *stubRedis) ZCount(ctx context.Context, key, lower, upper string) *redis.IntCmd {
	var n int64
	for _, score := range s.zsets[key] {
		if inRange(score, lower, upper) {
			n++
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(n)
	return cmd
}

func (s *stubRedis) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

type stubPipe struct {
	redis.Pipeliner
	s *stubRedis
}

func (p stubPipe) ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd {
	set, ok := p.s.zsets[key]
	if !ok {
		set = make(map[string]float64)
		p.s.zsets[key] = set
	}
	for _, m := range members {
		set[m.Member.(string)] = m.Score
	}
	return redis.NewIntCmd(ctx)
}

func (p stubPipe) ZRemRangeByScore(ctx context.Context, key, lower, upper string) *redis.IntCmd {
	for member, score := range p.s.zsets[key] {
		if inRange(score, lower, upper) {
			delete(p.s.zsets[key], member)
		}
	}
	return redis.NewIntCmd(ctx)
}

func (p stubPipe) ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	for _, m := range members {
		delete(p.s.zsets[key], m.(string))
	}
	return redis.NewIntCmd(ctx)
}

func (p stubPipe) Set(ctx context.Context, key string, _ interface{}, expiration time.Duration) *redis.StatusCmd {
	p.s.expires[key] = p.s.clock.Now().Add(expiration)
	p.s.ttls[key] = expiration
	return redis.NewStatusCmd(ctx)
}

// inRange evaluates a redis score range such as "(1700" "+inf".
func inRange(score float64, lower, upper string) bool {
	lo, loExcl := parseBound(lower)
	hi, hiExcl := parseBound(upper)
	if score < lo || (loExcl && score == lo) {
		return false
	}
	if score > hi || (hiExcl && score == hi) {
		return false
	}
	return true
}

func parseBound(b string) (float64, bool) {
	switch b {
	case "-inf":
		return math.Inf(-1), false
	case "+inf":
		return math.Inf(1), false
	}
	exclusive := strings.HasPrefix(b, "(")
	v, err := strconv.ParseFloat(strings.TrimPrefix(b, "("), 64)
	if err != nil {
		panic("bad score bound " + b)
	}
	return v, exclusive
}

func TestRedisSessionRepositoryCommands(t *testing.T) {
	fake := clock.Fake(epoch)
	stub := newStubRedis(fake)
	repo := NewRedisSessionRepository(stub, fake)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	exerciseSessionRepository(t, repo, fake.Advance)

	users := stub.zsets[sessionKeyPrefix+string(domain.SubjectClassUser)]
	if len(users) != 1 {
		t.Fatalf("user ledger after revoke = %v", users)
	}
	for member, score := range users {
		if want := float64(epoch.Add(time.Hour).UnixMilli()); score != want {
			t.Errorf("score of %s = %v, want %v", member, score, want)
		}
	}
	for key, ttl := range stub.ttls {
		if !strings.HasPrefix(key, revokedKeyPrefix) {
			t.Errorf("unexpected key %q", key)
		}
		if ttl != time.Hour {
			t.Errorf("revocation ttl = %v, want 1h", ttl)
		}
	}
}

func TestRedisSessionRepositorySubSecondExpiry(t *testing.T) {
	fake := clock.Fake(epoch)
	repo := NewRedisSessionRepository(newStubRedis(fake), fake)
	ctx := context.Background()

	s := session(domain.SubjectClassUser, time.Hour+900*time.Millisecond)
	if err := repo.Record(ctx, s); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if n, _ := repo.CountActive(ctx, domain.SubjectClassUser, epoch.Add(time.Hour+500*time.Millisecond)); n != 1 {
		t.Fatalf("session expiring later in the same second not counted: %d", n)
	}
	if n, _ := repo.CountActive(ctx, domain.SubjectClassUser, s.ExpiresAt); n != 0 {
		t.Fatalf("session counted at its expiry: %d", n)
	}

	if err := repo.Revoke(ctx, "gone", epoch.Add(-time.Second)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if revoked, _ := repo.IsRevoked(ctx, "gone"); revoked {
		t.Fatal("revocation of an already expired token should be a no-op")
	}
}

// Runs against a live server when REDIS_TEST_ADDR is set.
func TestRedisSessionRepository(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	for _, class := range sessionClasses {
		client.Del(ctx, sessionKeyPrefix+string(class))
	}

	repo := NewRedisSessionRepository(client, clock.Fake(epoch))
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	// Redis expires revocations on its own clock, so the fake clock is not advanced.
	exerciseSessionRepository(t, repo, nil)
}
