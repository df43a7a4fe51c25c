package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tarothouse/backend/internal/clock"
	"github.com/tarothouse/backend/internal/domain"
)

var (
	ErrMissingCredential = errors.New("missing bearer credential")
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("token expired")
)

// TokenConfig parameterizes one token pool.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
	Class  domain.SubjectClass
}

// TokenManager handles issuing and validating JWT tokens for a single
// subject class. Tokens carry the class as audience, so a manager never
// accepts another pool's tokens even if secrets were shared.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	class  domain.SubjectClass
	clock  clock.Clock
}

// NewTokenManager builds a new manager.
func NewTokenManager(cfg TokenConfig, clk clock.Clock) (*TokenManager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if cfg.TTL < time.Second {
		return nil, fmt.Errorf("token ttl %v is shorter than one second", cfg.TTL)
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &TokenManager{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		class:  cfg.Class,
		clock:  clk,
	}, nil
}

// Claims describes JWT payload. The registered exp claim only has second
// precision, so the exact expiry travels in ExpiresAtNano.
type Claims struct {
	jwt.RegisteredClaims
	ExpiresAtNano int64 `json:"exp_nano,omitempty"`
}

// Expiry returns the exact expiry instant, falling back to the registered
// exp claim for tokens without exp_nano.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAtNano != 0 {
		return time.Unix(0, c.ExpiresAtNano).UTC()
	}
	return c.ExpiresAt.Time
}

// IssuedToken is a freshly signed token and its metadata.
type IssuedToken struct {
	Value     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
	TTL       time.Duration
}

// Session converts the token into a registry entry for subjectID.
func (t IssuedToken) Session(subjectID string, class domain.SubjectClass) domain.Session {
	return domain.Session{
		TokenID:   t.ID,
		SubjectID: subjectID,
		Class:     class,
		IssuedAt:  t.IssuedAt,
		ExpiresAt: t.ExpiresAt,
	}
}

// Class reports which subject class this manager serves.
func (tm *TokenManager) Class() domain.SubjectClass {
	return tm.class
}

// TTL returns the lifetime of issued tokens.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Issue builds and signs a JWT for the subject. The token expires exactly TTL
// after the clock reading taken here.
func (tm *TokenManager) Issue(subjectID string) (IssuedToken, error) {
	if subjectID == "" {
		return IssuedToken{}, errors.New("subject id is required")
	}
	issuedAt := tm.clock.Now()
	expiresAt := issuedAt.Add(tm.ttl)
	tokenID := uuid.NewString()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    tm.issuer,
			Audience:  jwt.ClaimStrings{string(tm.class)},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        tokenID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return IssuedToken{
		Value:     tokenString,
		ID:        tokenID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		TTL:       tm.ttl,
	}, nil
}

// Verify validates the signature first and the time-based claims second, so
// a forged token is reported as invalid even when its expiry has passed.
func (tm *TokenManager) Verify(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: incomplete claims", ErrInvalidToken)
	}
	if claims.Issuer != tm.issuer {
		return nil, fmt.Errorf("%w: issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if !slices.Contains(claims.Audience, string(tm.class)) {
		return nil, fmt.Errorf("%w: audience %v", ErrInvalidToken, claims.Audience)
	}
	if claims.IssuedAt != nil && !claims.ExpiresAt.After(claims.IssuedAt.Time) {
		return nil, fmt.Errorf("%w: expiry precedes issue time", ErrInvalidToken)
	}
	expiry := claims.Expiry()
	if !expiry.Truncate(time.Second).Equal(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: exp_nano disagrees with exp", ErrInvalidToken)
	}

	if !tm.clock.Now().Before(expiry) {
		return nil, ErrExpiredToken
	}
	return claims, nil
}
