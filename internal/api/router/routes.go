// Package router là khung đăng ký route dùng chung; mỗi domain có router riêng
// và được gắn vào /api/v1 qua SetupRoutes.
package router

import (
	"fmt"

	basehdl "meta_posting/internal/api/base/handler"
	"meta_posting/internal/api/middleware"

	"github.com/gofiber/fiber/v3"
)

// Lưu ý Fiber v3: middleware truyền thẳng vào router.Get(path, mw, handler) không được gọi.
// Luôn đăng ký qua RegisterRouteWithMiddleware (group + Use).

// RoutePrefix chứa các prefix của API
type RoutePrefix struct {
	Base string // /api
	V1   string // /api/v1
}

// NewRoutePrefix tạo RoutePrefix mặc định
func NewRoutePrefix() RoutePrefix {
	base := "/api"
	return RoutePrefix{
		Base: base,
		V1:   base + "/v1",
	}
}

// Router giữ app để domain router đăng ký thêm route ngoài v1 khi cần
type Router struct {
	app *fiber.App
}

// NewRouter tạo Router
func NewRouter(app *fiber.App) *Router {
	return &Router{app: app}
}

// App trả về fiber app gốc
func (r *Router) App() *fiber.App {
	return r.app
}

// RegisterRouteWithMiddleware đăng ký route trong group prefix, middleware gắn qua Use
func RegisterRouteWithMiddleware(router fiber.Router, prefix string, method string, path string, middlewares []fiber.Handler, handler fiber.Handler) {
	routeGroup := router.Group(prefix)
	for _, mw := range middlewares {
		routeGroup.Use(mw)
	}

	switch method {
	case fiber.MethodGet:
		routeGroup.Get(path, handler)
	case fiber.MethodPost:
		routeGroup.Post(path, handler)
	case fiber.MethodPut:
		routeGroup.Put(path, handler)
	case fiber.MethodDelete:
		routeGroup.Delete(path, handler)
	}
}

// RegisterFunc là hàm đăng ký route của một domain trên v1
type RegisterFunc func(v1 fiber.Router, r *Router) error

// SetupRoutes gắn middleware context, route hệ thống và route của các domain
func SetupRoutes(app *fiber.App, storeBackend string, regs ...RegisterFunc) error {
	systemHandler, err := basehdl.NewSystemHandler(storeBackend)
	if err != nil {
		return fmt.Errorf("create system handler: %w", err)
	}
	app.Get("/health", systemHandler.HandleHealth)

	prefix := NewRoutePrefix()
	v1 := app.Group(prefix.V1)
	v1.Use(middleware.RequestContextMiddleware())

	r := NewRouter(app)
	for _, reg := range regs {
		if err := reg(v1, r); err != nil {
			return err
		}
	}
	return nil
}
