// Package middleware chứa middleware Fiber dùng chung cho các domain router.
package middleware

import (
	"context"

	"meta_posting/internal/logger"

	"github.com/gofiber/fiber/v3"
)

// HeaderWorkerID là header worker gửi kèm mọi request tới /workers
const HeaderWorkerID = "X-Worker-ID"

// RequestContextMiddleware đưa request id (do requestid middleware sinh) vào context.Context
// để service log được request_id qua logger.WithContext.
func RequestContextMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		rid := c.GetRespHeader(fiber.HeaderXRequestID)
		if rid == "" {
			rid = c.Get(fiber.HeaderXRequestID)
		}
		if rid != "" {
			c.SetContext(context.WithValue(c.Context(), logger.RequestIDKey, rid))
		}
		return c.Next()
	}
}

// WorkerContextMiddleware gắn worker id từ header X-Worker-ID vào context.Context
func WorkerContextMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if wid := c.Get(HeaderWorkerID); wid != "" {
			c.SetContext(context.WithValue(c.Context(), logger.WorkerIDKey, wid))
		}
		return c.Next()
	}
}
