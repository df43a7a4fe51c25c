package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tarothouse/backend/internal/domain"
	apperrors "github.com/tarothouse/backend/pkg/errorutil"
)

const (
	principalKey = "auth_principal"
	bearerPrefix = "Bearer "
)

// Principal represents the authenticated caller.
type Principal struct {
	SubjectID string
	TokenID   string
	Class     domain.SubjectClass
	ExpiresAt time.Time
}

// RevocationChecker reports whether a token id was explicitly revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Gate validates bearer tokens for one subject class and admits or rejects
// the request. It never issues tokens.
type Gate struct {
	tokens      *TokenManager
	revocations RevocationChecker
}

// NewGate constructs the gate. revocations may be nil when tokens are purely
// stateless.
func NewGate(tokens *TokenManager, revocations RevocationChecker) *Gate {
	return &Gate{tokens: tokens, revocations: revocations}
}

// ExtractBearer returns the token from an Authorization header value.
func ExtractBearer(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrMissingCredential
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", ErrMissingCredential
	}
	return token, nil
}

// Authenticate checks a raw Authorization header value and returns the
// verified principal.
func (g *Gate) Authenticate(ctx context.Context, header string) (*Principal, error) {
	tokenStr, err := ExtractBearer(header)
	if err != nil {
		return nil, err
	}

	claims, err := g.tokens.Verify(tokenStr)
	if err != nil {
		return nil, err
	}

	if g.revocations != nil {
		revoked, err := g.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
		}
	}

	return &Principal{
		SubjectID: claims.Subject,
		TokenID:   claims.ID,
		Class:     g.tokens.Class(),
		ExpiresAt: claims.Expiry(),
	}, nil
}

// Handle enforces authentication for protected routes.
func (g *Gate) Handle(c *fiber.Ctx) error {
	principal, err := g.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return MapAuthError(err)
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// MapAuthError translates gate failures into envelope errors. Expired and
// invalid tokens stay distinguishable on the wire.
func MapAuthError(err error) error {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return apperrors.NewMissingCredential()
	case errors.Is(err, ErrExpiredToken):
		return apperrors.NewExpiredToken()
	case errors.Is(err, ErrInvalidToken):
		return apperrors.NewInvalidToken()
	default:
		return apperrors.NewInternalError(err)
	}
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
