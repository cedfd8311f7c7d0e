package httpx

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the last-resort error mapper installed on the fiber app.
// Handlers return *fiber.Error or *ValidationError for expected failures;
// anything else is logged and reported as a generic 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  verr.Message,
				"fields": verr.Fields,
			})
		}

		var ferr *fiber.Error
		if errors.As(err, &ferr) {
			if ferr.Code >= fiber.StatusInternalServerError {
				logger.Error("request failed",
					"status", ferr.Code,
					"error", ferr.Message,
					"method", c.Method(),
					"path", c.Path(),
					"request_id", requestID(c),
				)
			}
			return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
		}

		logger.Error("unexpected error",
			"error", err,
			"method", c.Method(),
			"path", c.Path(),
			"request_id", requestID(c),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}

func requestID(c *fiber.Ctx) string {
	if v, ok := c.Locals("requestid").(string); ok {
		return v
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
