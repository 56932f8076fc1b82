package basehdl

import (
	"context"
	"time"

	"meta_posting/internal/common"
	"meta_posting/internal/global"

	"github.com/gofiber/fiber/v3"
)

// SystemHandler xử lý các route hệ thống (health)
type SystemHandler struct {
	*BaseHandler
	storeBackend string
}

// NewSystemHandler tạo SystemHandler cho backend store đang chạy (mongo | memory)
func NewSystemHandler(storeBackend string) (*SystemHandler, error) {
	return &SystemHandler{BaseHandler: &BaseHandler{}, storeBackend: storeBackend}, nil
}

// HandleHealth kiểm tra API và kết nối MongoDB.
// Endpoint: GET /health
func (h *SystemHandler) HandleHealth(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	services := fiber.Map{"api": "ok", "store": h.storeBackend}
	healthData := fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"services":  services,
	}

	switch {
	case global.MongoDB_Session != nil:
		if err := global.MongoDB_Session.Ping(ctx, nil); err != nil {
			healthData["status"] = "degraded"
			services["database"] = "error"
			healthData["database_error"] = err.Error()
			return JSONResponse(c, common.StatusServiceUnavailable, fiber.Map{
				"code":    common.StatusServiceUnavailable,
				"message": "Hệ thống đang gặp sự cố",
				"data":    healthData,
				"status":  "error",
			})
		}
		services["database"] = "ok"
	case h.storeBackend == "memory":
		services["database"] = "in_memory"
	default:
		healthData["status"] = "degraded"
		services["database"] = "not_initialized"
	}

	return JSONResponse(c, common.StatusOK, fiber.Map{
		"code":    common.StatusOK,
		"message": common.MsgSuccess,
		"data":    healthData,
		"status":  "success",
	})
}
