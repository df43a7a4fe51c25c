package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tarothouse/backend/internal/api/dto"
	"github.com/tarothouse/backend/internal/clock"
	"github.com/tarothouse/backend/internal/domain"
	"github.com/tarothouse/backend/internal/observability"
	"github.com/tarothouse/backend/internal/service"
	apperrors "github.com/tarothouse/backend/pkg/errorutil"
)

// parseBody decodes a JSON body. An empty or unparsable body is reported as
// a missing parameter.
func parseBody(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(body) == 0 {
		return apperrors.NewMissingParam(map[string]any{"field": "body"})
	}
	if err := c.App().Config().JSONDecoder(body, v); err != nil {
		return apperrors.NewMissingParam(map[string]any{"field": "body"})
	}
	return nil
}

func respond(c *fiber.Ctx, clk clock.Clock, res *service.Result) error {
	envelope := dto.SuccessResponse{
		Status:    dto.StatusSuccess,
		Message:   res.Message,
		Timestamp: clk.Now().UTC().Format(time.RFC3339),
		RequestID: observability.RequestID(c),
		Data:      res.Data,
	}
	if res.Token != nil {
		envelope.Token = &dto.TokenInfo{
			Value:            res.Token.Value,
			ID:               res.Token.ID,
			ExpiresInSeconds: int64(res.Token.TTL / time.Second),
		}
	}
	return c.Status(fiber.StatusOK).JSON(envelope)
}

// mapServiceError translates service sentinels into envelope errors.
func mapServiceError(err error) error {
	var missing *domain.MissingParamError
	switch {
	case errors.As(err, &missing):
		return apperrors.NewMissingParam(map[string]any{"field": missing.Field})
	case errors.Is(err, domain.ErrMissingParam):
		return apperrors.NewMissingParam(nil)
	case errors.Is(err, domain.ErrSubjectExists):
		return apperrors.NewSubjectExists("credential already registered")
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apperrors.NewInvalidCredentials("invalid credentials")
	default:
		return apperrors.NewInternalError(err)
	}
}
