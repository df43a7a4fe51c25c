package repository

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tarothouse/backend/internal/clock"
	"github.com/tarothouse/backend/internal/domain"
)

const (
	sessionKeyPrefix = "sessions:"
	revokedKeyPrefix = "revoked_token:"
)

var sessionClasses = []domain.SubjectClass{domain.SubjectClassUser, domain.SubjectClassAdmin}

// SessionRepository keeps a ledger of issued tokens and the ids explicitly
// revoked before their expiry. Tokens remain verifiable without it.
type SessionRepository interface {
	Record(ctx context.Context, session domain.Session) error
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	CountActive(ctx context.Context, class domain.SubjectClass, at time.Time) (int64, error)
	Ping(ctx context.Context) error
}

type memorySessionRepository struct {
	mu       sync.RWMutex
	clock    clock.Clock
	sessions map[string]domain.Session
	revoked  map[string]time.Time
}

// NewMemorySessionRepository returns a process-local registry.
func NewMemorySessionRepository(clk clock.Clock) SessionRepository {
	if clk == nil {
		clk = clock.Real()
	}
	return &memorySessionRepository{
		clock:    clk,
		sessions: make(map[string]domain.Session),
		revoked:  make(map[string]time.Time),
	}
}

func (r *memorySessionRepository) Record(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.TokenID] = session
	r.pruneLocked(r.clock.Now())
	return nil
}

func (r *memorySessionRepository) Revoke(_ context.Context, tokenID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, tokenID)
	if until.After(r.clock.Now()) {
		r.revoked[tokenID] = until
	}
	return nil
}

func (r *memorySessionRepository) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	until, ok := r.revoked[tokenID]
	return ok && r.clock.Now().Before(until), nil
}

func (r *memorySessionRepository) CountActive(_ context.Context, class domain.SubjectClass, at time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, s := range r.sessions {
		if s.Class == class && s.ExpiresAt.After(at) {
			n++
		}
	}
	return n, nil
}

func (r *memorySessionRepository) Ping(context.Context) error {
	return nil
}

func (r *memorySessionRepository) pruneLocked(now time.Time) {
	for id, s := range r.sessions {
		if !s.ExpiresAt.After(now) {
			delete(r.sessions, id)
		}
	}
	for id, until := range r.revoked {
		if !until.After(now) {
			delete(r.revoked, id)
		}
	}
}

type redisSessionRepository struct {
	client redis.Cmdable
	clock  clock.Clock
}

// NewRedisSessionRepository stores the ledger as one sorted set per subject
// class scored by expiry in unix milliseconds, and revocations as keys that expire with the token.
func NewRedisSessionRepository(client redis.Cmdable, clk clock.Clock) SessionRepository {
	if clk == nil {
		clk = clock.Real()
	}
	return &redisSessionRepository{client: client, clock: clk}
}

func (r *redisSessionRepository) Record(ctx context.Context, session domain.Session) error {
	key := sessionKeyPrefix + string(session.Class)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(session.ExpiresAt.UnixMilli()), Member: session.TokenID})
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(r.clock.Now().UnixMilli(), 10))
		return nil
	})
	return err
}

func (r *redisSessionRepository) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(r.clock.Now())
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, class := range sessionClasses {
			pipe.ZRem(ctx, sessionKeyPrefix+string(class), tokenID)
		}
		if ttl > 0 {
			pipe.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl)
		}
		return nil
	})
	return err
}

func (r *redisSessionRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *redisSessionRepository) CountActive(ctx context.Context, class domain.SubjectClass, at time.Time) (int64, error) {
	lower := "(" + strconv.FormatInt(at.UnixMilli(), 10)
	return r.client.ZCount(ctx, sessionKeyPrefix+string(class), lower, "+inf").Result()
}

func (r *redisSessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
