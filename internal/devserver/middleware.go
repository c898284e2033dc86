package devserver

import (
	"log/slog"
	"strings"
	"time"

	"adda/internal/auth"
	"adda/internal/models"
	"adda/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const (
	localUserID   = "userID"
	localUserName = "userName"
)

// ContextMiddleware carries the request id into the request context as
// the correlation id.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
		if id == "" {
			id = observability.GenerateCorrelationID()
		}
		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), id))
		return c.Next()
	}
}

// StructuredLogger logs one record per request.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		observability.GlobalLogger.InfoContext(c.UserContext(), "http request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("correlation_id", observability.ExtractCorrelationID(c.UserContext())),
		)
		return err
	}
}

// AuthRequired enforces a dev bearer token signed with secret.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return respondError(c, models.NewUnauthorizedError("Authorization header required"))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return respondError(c, models.NewUnauthorizedError("Invalid authorization header format"))
		}

		claims, err := auth.VerifyDevToken(secret, parts[1])
		if err != nil {
			return respondError(c, models.NewUnauthorizedError("Invalid or expired token"))
		}

		c.Locals(localUserID, claims.Subject)
		c.Locals(localUserName, claims.Name)
		return c.Next()
	}
}

func userFrom(c *fiber.Ctx) (id, name string) {
	id, _ = c.Locals(localUserID).(string)
	name, _ = c.Locals(localUserName).(string)
	return id, name
}
