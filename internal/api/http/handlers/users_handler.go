package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tarothouse/backend/internal/api/dto"
	"github.com/tarothouse/backend/internal/auth"
	"github.com/tarothouse/backend/internal/clock"
	"github.com/tarothouse/backend/internal/service"
	apperrors "github.com/tarothouse/backend/pkg/errorutil"
)

// UsersHandler exposes the end-user surface under /user.
type UsersHandler struct {
	users *service.UserService
	clock clock.Clock
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, clk clock.Clock) *UsersHandler {
	if clk == nil {
		clk = clock.Real()
	}
	return &UsersHandler{users: users, clock: clk}
}

// Ping handles POST /user/ping.
func (h *UsersHandler) Ping(c *fiber.Ctx) error {
	res := h.users.Ping()
	return respond(c, h.clock, &res)
}

// Register handles POST /user/reg.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var in *service.RegisterInput
	if p := req.RegPack; p != nil {
		in = &service.RegisterInput{
			Time:           p.Time,
			Name:           p.Name,
			Credential:     p.Cred,
			CredentialType: p.CredID,
			Password:       p.Pwd,
			Email:          p.Email,
			Platform:       p.Plat,
			PlatformUID:    p.PlatUID,
		}
	}

	res, err := h.users.Register(c.UserContext(), in)
	if err != nil {
		return mapServiceError(err)
	}
	return respond(c, h.clock, res)
}

// Login handles POST /user/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var in *service.LoginInput
	if p := req.Pack; p != nil {
		in = &service.LoginInput{Time: p.Time, Credential: p.Cred, Password: p.Pwd}
	}

	res, err := h.users.Login(c.UserContext(), in)
	if err != nil {
		return mapServiceError(err)
	}
	return respond(c, h.clock, res)
}

// Act handles POST /user/act. The gate has already verified the caller.
func (h *UsersHandler) Act(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewMissingCredential()
	}

	var req dto.UserActRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var in *service.ActInput
	if p := req.Pack; p != nil {
		in = &service.ActInput{Time: p.Time, Act: p.Act, Data: p.Data}
	}

	res, err := h.users.Act(c.UserContext(), principal.SubjectID, in)
	if err != nil {
		return mapServiceError(err)
	}
	return respond(c, h.clock, res)
}

// Logout handles POST /user/logout.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewMissingCredential()
	}
	res, err := h.users.Logout(c.UserContext(), principal)
	if err != nil {
		return mapServiceError(err)
	}
	return respond(c, h.clock, res)
}
