package logger

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// ContextKey là type cho context keys
type ContextKey string

const (
	// RequestIDKey là key cho request ID trong context
	RequestIDKey ContextKey = "requestID"
	// WorkerIDKey là key cho worker ID khi request đến từ một worker
	WorkerIDKey ContextKey = "workerID"
)

// WithContext trả về logger entry kèm các field lấy từ context
func WithContext(ctx context.Context) *logrus.Entry {
	entry := GetAppLogger().WithContext(ctx)
	if rid := ctx.Value(RequestIDKey); rid != nil {
		entry = entry.WithField("request_id", rid)
	}
	if wid := ctx.Value(WorkerIDKey); wid != nil {
		entry = entry.WithField("worker_id", wid)
	}
	return entry
}

// WithRequest trả về logger entry với thông tin request Fiber
func WithRequest(c fiber.Ctx) *logrus.Entry {
	entry := GetAppLogger().WithFields(logrus.Fields{
		"method": c.Method(),
		"path":   c.Path(),
		"ip":     c.IP(),
	})

	requestID := ""
	if rid, ok := c.Locals("requestid").(string); ok {
		requestID = rid
	}
	if requestID == "" {
		requestID = c.Get("X-Request-ID")
	}
	if requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	return entry
}

// WithFields trả về logger entry với các fields bổ sung
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return GetAppLogger().WithFields(logrus.Fields(fields))
}

// WithModule trả về logger entry với module name (admission, planner, dispatcher, ...)
func WithModule(module string) *logrus.Entry {
	return GetAppLogger().WithField("module", module)
}

// WithError trả về logger entry với error
func WithError(err error) *logrus.Entry {
	return GetAppLogger().WithError(err)
}
