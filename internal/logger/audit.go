package logger

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// LogAction ghi lại thao tác của operator (resume/cancel rest period, xoá formula, ...)
func LogAction(action string, c fiber.Ctx, resourceType, resourceID string, details map[string]interface{}) {
	if details == nil {
		details = map[string]interface{}{}
	}
	if rid := c.Get("X-Request-ID"); rid != "" {
		details["request_id"] = rid
	}
	GetAuditLogger().WithFields(logrus.Fields{
		"action":        action,
		"resource_type": resourceType,
		"resource_id":   resourceID,
		"ip":            c.IP(),
		"user_agent":    c.Get("User-Agent"),
		"details":       details,
		"timestamp":     time.Now().Unix(),
	}).Info("Audit action")
}
