// Package router đăng ký các route của posting engine (/posting) và worker fleet (/workers).
package router

import (
	"fmt"

	"meta_posting/internal/api/middleware"
	postinghdl "meta_posting/internal/api/posting/handler"
	postingsvc "meta_posting/internal/api/posting/service"
	apirouter "meta_posting/internal/api/router"

	"github.com/gofiber/fiber/v3"
)

// NewRegister trả về RegisterFunc gắn route posting lên v1 cho engine
func NewRegister(engine *postingsvc.Engine) apirouter.RegisterFunc {
	return func(v1 fiber.Router, r *apirouter.Router) error {
		return Register(v1, r, engine)
	}
}

// Register đăng ký tất cả route posting và worker lên v1.
func Register(v1 fiber.Router, r *apirouter.Router, engine *postingsvc.Engine) error {
	postingHandler, err := postinghdl.NewPostingHandler(engine)
	if err != nil {
		return fmt.Errorf("create posting handler: %w", err)
	}
	apirouter.RegisterRouteWithMiddleware(v1, "/posting", "POST", "/plan", nil, postingHandler.HandlePlan)
	apirouter.RegisterRouteWithMiddleware(v1, "/posting", "POST", "/admit", nil, postingHandler.HandleAdmit)
	apirouter.RegisterRouteWithMiddleware(v1, "/posting", "GET", "/violations", nil, postingHandler.HandleListViolations)
	apirouter.RegisterRouteWithMiddleware(v1, "/posting", "GET", "/analytics", nil, postingHandler.HandleListAnalytics)

	formulaHandler, err := postinghdl.NewFormulaHandler(engine)
	if err != nil {
		return fmt.Errorf("create formula handler: %w", err)
	}
	apirouter.RegisterRouteWithMiddleware(v1, "/posting/formulas", "POST", "", nil, formulaHandler.HandleCreate)
	apirouter.RegisterRouteWithMiddleware(v1, "/posting/formulas", "GET", "", nil, formulaHandler.HandleList)
	apirouter.RegisterRouteWithMiddleware(v1, "/posting/formulas", "GET", "/:id", nil, formulaHandler.HandleGet)
	apirouter.RegisterRouteWithMiddleware(v1, "/posting/formulas", "PUT", "/:id", nil, formulaHandler.HandleUpdate)
	apirouter.RegisterRouteWithMiddleware(v1, "/posting/formulas", "DELETE", "/:id", nil, formulaHandler.HandleDelete)

	groupHandler, err := postinghdl.NewGroupHandler(engine)
	if err != nil {
		return fmt.Errorf("create group handler: %w", err)
	}
	apirouter.RegisterRouteWithMiddleware(v1, "/posting/groups", "POST", "", nil, groupHandler.HandleCreateGroup)
	apirouter.RegisterRouteWithMiddleware(v1, "/posting/groups", "GET", "/:id", nil, groupHandler.HandleGetGroup)
	apirouter.RegisterRouteWithMiddleware(v1, "/posting/groups", "PUT", "/:id/formula", nil, groupHandler.HandleSetFormula)
	apirouter.RegisterRouteWithMiddleware(v1, "/posting/groups", "POST", "/:id/accounts", nil, groupHandler.HandleAddAccount)
	apirouter.RegisterRouteWithMiddleware(v1, "/posting", "POST", "/accounts", nil, groupHandler.HandleRegisterAccount)
	apirouter.RegisterRouteWithMiddleware(v1, "/posting", "POST", "/contents", nil, groupHandler.HandleAddContent)

	restHandler, err := postinghdl.NewRestPeriodHandler(engine)
	if err != nil {
		return fmt.Errorf("create rest period handler: %w", err)
	}
	apirouter.RegisterRouteWithMiddleware(v1, "/posting/rest-periods", "GET", "", nil, restHandler.HandleList)
	apirouter.RegisterRouteWithMiddleware(v1, "/posting/rest-periods", "POST", "", nil, restHandler.HandleOpen)
	apirouter.RegisterRouteWithMiddleware(v1, "/posting/rest-periods", "POST", "/:id/resume", nil, restHandler.HandleResume)
	apirouter.RegisterRouteWithMiddleware(v1, "/posting/rest-periods", "POST", "/:id/cancel", nil, restHandler.HandleCancel)

	assignmentHandler, err := postinghdl.NewAssignmentHandler(engine)
	if err != nil {
		return fmt.Errorf("create assignment handler: %w", err)
	}
	apirouter.RegisterRouteWithMiddleware(v1, "/posting/assignments", "GET", "/:postId", nil, assignmentHandler.HandleGet)
	apirouter.RegisterRouteWithMiddleware(v1, "/posting/assignments", "POST", "/:postId/cancel", nil, assignmentHandler.HandleCancel)

	workerHandler, err := postinghdl.NewWorkerHandler(engine)
	if err != nil {
		return fmt.Errorf("create worker handler: %w", err)
	}
	workerMiddleware := []fiber.Handler{middleware.WorkerContextMiddleware()}
	// route tĩnh đăng ký trước /:workerId
	apirouter.RegisterRouteWithMiddleware(v1, "/workers", "POST", "/register", workerMiddleware, workerHandler.HandleRegister)
	apirouter.RegisterRouteWithMiddleware(v1, "/workers", "GET", "/eligible", workerMiddleware, workerHandler.HandleEligible)
	apirouter.RegisterRouteWithMiddleware(v1, "/workers/jobs", "POST", "/dispatch", workerMiddleware, workerHandler.HandleDispatch)
	apirouter.RegisterRouteWithMiddleware(v1, "/workers/jobs", "GET", "/:jobId", workerMiddleware, workerHandler.HandleGetJob)
	apirouter.RegisterRouteWithMiddleware(v1, "/workers/jobs", "POST", "/:jobId/result", workerMiddleware, workerHandler.HandleJobResult)
	apirouter.RegisterRouteWithMiddleware(v1, "/workers", "POST", "/:workerId/heartbeat", workerMiddleware, workerHandler.HandleHeartbeat)
	apirouter.RegisterRouteWithMiddleware(v1, "/workers", "PUT", "/:workerId/status", workerMiddleware, workerHandler.HandleSetStatus)
	apirouter.RegisterRouteWithMiddleware(v1, "/workers", "GET", "/:workerId", workerMiddleware, workerHandler.HandleGet)

	return nil
}
