package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tarothouse/backend/internal/api/dto"
	"github.com/tarothouse/backend/internal/auth"
	"github.com/tarothouse/backend/internal/clock"
	"github.com/tarothouse/backend/internal/service"
	apperrors "github.com/tarothouse/backend/pkg/errorutil"
)

// AdminHandler exposes the private admin surface.
type AdminHandler struct {
	admins *service.AdminService
	clock  clock.Clock
}

func NewAdminHandler(admins *service.AdminService, clk clock.Clock) *AdminHandler {
	if clk == nil {
		clk = clock.Real()
	}
	return &AdminHandler{admins: admins, clock: clk}
}

func (h *AdminHandler) Ping(c *fiber.Ctx) error {
	res := h.admins.Ping()
	return respond(c, h.clock, &res)
}

// Login handles POST /private/admin/login.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var in *service.AdminLoginInput
	if p := req.UserLoginPack; p != nil {
		in = &service.AdminLoginInput{UserID: p.UserID, Password: p.LoginPwd}
	}

	res, err := h.admins.Login(c.UserContext(), in)
	if err != nil {
		return mapServiceError(err)
	}
	return respond(c, h.clock, res)
}

// Action handles POST /private/admin/action.
func (h *AdminHandler) Action(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewMissingCredential()
	}

	var req dto.AdminActionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var in *service.AdminActionInput
	if p := req.UserPostActionPack; p != nil {
		in = &service.AdminActionInput{Time: p.Time, Command: p.Command}
	}

	res, err := h.admins.Action(c.UserContext(), principal.SubjectID, in)
	if err != nil {
		return mapServiceError(err)
	}
	return respond(c, h.clock, res)
}

func (h *AdminHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewMissingCredential()
	}
	res, err := h.admins.Logout(c.UserContext(), principal)
	if err != nil {
		return mapServiceError(err)
	}
	return respond(c, h.clock, res)
}
