package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/tarothouse/backend/internal/api/dto"
	"github.com/tarothouse/backend/internal/clock"
	"github.com/tarothouse/backend/internal/observability"
	apperrors "github.com/tarothouse/backend/pkg/errorutil"
)

// MiddlewareConfig bundles the dependencies of the global middlewares.
type MiddlewareConfig struct {
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Clock   clock.Clock
	Timeout time.Duration
	// Production hides error causes from responses.
	Production bool
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	app.Use(requestid.New())
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
	app.Use(errorHandlingMiddleware(cfg))
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics))
}

// ErrorHandler renders errors that escape the middleware chain.
func ErrorHandler(cfg MiddlewareConfig) fiber.ErrorHandler {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	return func(c *fiber.Ctx, err error) error {
		return writeError(c, cfg, err)
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(cfg MiddlewareConfig) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				cfg.Logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				_ = writeError(c, cfg, err)
				err = nil
			}
		}()
		return c.Next()
	}
}

func writeError(c *fiber.Ctx, cfg MiddlewareConfig, err error) error {
	domainErr := apperrors.ToDomainError(err)
	cfg.Metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)

	response := dto.ErrorResponse{
		Status:    dto.StatusError,
		Code:      domainErr.Code,
		Message:   domainErr.Message,
		Timestamp: cfg.Clock.Now().UTC().Format(time.RFC3339),
		RequestID: observability.RequestID(c),
		Details:   domainErr.Details,
	}

	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		cfg.Logger.Error("request failed",
			zap.String("code", domainErr.Code),
			zap.String("request_id", response.RequestID),
			zap.Error(domainErr))
		if !cfg.Production && domainErr.Err != nil {
			response.Debug = &dto.DebugInfo{Cause: domainErr.Err.Error()}
		}
	} else {
		cfg.Logger.Debug("request rejected",
			zap.String("code", domainErr.Code),
			zap.String("request_id", response.RequestID))
	}

	return c.Status(domainErr.HTTPStatus).JSON(response)
}
