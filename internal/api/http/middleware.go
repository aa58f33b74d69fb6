package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/observability"
	apperrors "github.com/majstudio/community-bot/pkg/util/errorutil"
)

// RequestIDHeader carries the id echoed on every ops response.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "requestId"

// RegisterMiddlewares attaches request ids, timeouts, error handling and request logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(requestIDMiddleware())
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
}

func requestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(requestIDKey, id)
		c.Set(RequestIDHeader, id)
		return c.Next()
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

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				writeError(c, logger, metrics, err)
				err = nil
			}
		}()
		return c.Next()
	}
}

func writeError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, err error) {
	status, domainErr := statusOf(err)
	metrics.RecordError("ops", domainErr.Code)

	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	requestID, _ := c.Locals(requestIDKey).(string)
	if requestID != "" {
		body["requestId"] = requestID
	}
	if status >= fiber.StatusInternalServerError {
		logger.Error("ops request failed",
			zap.String("path", c.Path()),
			zap.String("request_id", requestID),
			zap.Error(domainErr))
	}
	_ = c.Status(status).JSON(fiber.Map{"error": body})
}

// statusOf keeps fiber's own errors, e.g. 404 for unknown routes, at their status.
func statusOf(err error) (int, *apperrors.DomainError) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := apperrors.CodeInternal
		if fe.Code == fiber.StatusNotFound {
			code = apperrors.CodeNotFound
		}
		return fe.Code, apperrors.NewDomainError(code, fe.Message, fe.Code, nil)
	}
	domainErr := apperrors.ToDomainError(err)
	return domainErr.HTTPStatus, domainErr
}
