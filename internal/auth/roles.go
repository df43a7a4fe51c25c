package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tarothouse/backend/internal/domain"
	apperrors "github.com/tarothouse/backend/pkg/errorutil"
)

// RequireClass ensures the authenticated principal belongs to class. It runs
// after a Gate and rejects principals that reached the route some other way.
func RequireClass(class domain.SubjectClass) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewMissingCredential()
		}
		if principal.Class != class {
			return apperrors.NewInvalidToken()
		}
		return c.Next()
	}
}
