package postinghdl

import (
	"context"

	basehdl "meta_posting/internal/api/base/handler"
	"meta_posting/internal/api/middleware"
	postingdto "meta_posting/internal/api/posting/dto"
	"meta_posting/internal/api/posting/models"
	postingsvc "meta_posting/internal/api/posting/service"
	"meta_posting/internal/common"
	"meta_posting/internal/logger"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// WorkerHandler xử lý worker registry và vòng đời job
type WorkerHandler struct {
	*basehdl.BaseHandler
	registry   *postingsvc.WorkerRegistryService
	dispatcher *postingsvc.DispatcherService
}

// NewWorkerHandler tạo WorkerHandler
func NewWorkerHandler(engine *postingsvc.Engine) (*WorkerHandler, error) {
	if engine == nil {
		return nil, errNilEngine
	}
	return &WorkerHandler{
		BaseHandler: &basehdl.BaseHandler{},
		registry:    engine.Registry,
		dispatcher:  engine.Dispatcher,
	}, nil
}

// workerContext gắn workerId của path vào context để service log kèm worker_id
func workerContext(c fiber.Ctx, workerID string) context.Context {
	return context.WithValue(c.Context(), logger.WorkerIDKey, workerID)
}

// HandleRegister đăng ký (hoặc cập nhật) worker.
// Endpoint: POST /api/v1/workers/register
func (h *WorkerHandler) HandleRegister(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		var input postingdto.WorkerRegisterInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		w, err := h.registry.Register(c.Context(), input.ToModel())
		h.HandleResponse(c, w, err)
		return nil
	})
}

// HandleHeartbeat nhận heartbeat; worker chưa đăng ký trả 404 và không được tự đăng ký.
// Endpoint: POST /api/v1/workers/:workerId/heartbeat
func (h *WorkerHandler) HandleHeartbeat(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		workerID := c.Params("workerId")
		var health models.WorkerHealth
		if err := h.ParseRequestBody(c, &health); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		w, err := h.registry.Heartbeat(workerContext(c, workerID), workerID, health)
		h.HandleResponse(c, w, err)
		return nil
	})
}

// HandleSetStatus đổi trạng thái vận hành của worker.
// Endpoint: PUT /api/v1/workers/:workerId/status
func (h *WorkerHandler) HandleSetStatus(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		workerID := c.Params("workerId")
		var input postingdto.WorkerStatusInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		w, err := h.registry.SetStatus(workerContext(c, workerID), workerID, input.Status)
		if err == nil {
			logger.LogAction("worker.set_status", c, "worker", workerID, map[string]interface{}{"status": w.Status})
		}
		h.HandleResponse(c, w, err)
		return nil
	})
}

// HandleGet lấy descriptor của worker.
// Endpoint: GET /api/v1/workers/:workerId
func (h *WorkerHandler) HandleGet(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		w, err := h.registry.Get(c.Context(), c.Params("workerId"))
		h.HandleResponse(c, w, err)
		return nil
	})
}

// HandleEligible liệt kê worker nhận được job (platform, action) lúc này, theo thứ tự ưu tiên.
// Endpoint: GET /api/v1/workers/eligible?platform=&action=
func (h *WorkerHandler) HandleEligible(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		platform := c.Query("platform")
		if platform == "" {
			h.HandleResponse(c, nil, common.WithDetails(common.ErrInvalidInput, "platform is required"))
			return nil
		}
		action := c.Query("action", models.ActionPost)
		rows, err := h.registry.ListEligible(c.Context(), platform, action)
		h.HandleResponse(c, rows, err)
		return nil
	})
}

// HandleDispatch tạo job cho assignment; không có worker phù hợp trả 503.
// Endpoint: POST /api/v1/workers/jobs/dispatch
func (h *WorkerHandler) HandleDispatch(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		var input postingdto.DispatchInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		postID, err := postingdto.ObjectID("scheduledPostId", input.ScheduledPostID)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		job, err := h.dispatcher.Dispatch(c.Context(), postID)
		h.HandleResponse(c, job, err)
		return nil
	})
}

// HandleGetJob lấy job theo id.
// Endpoint: GET /api/v1/workers/jobs/:jobId
func (h *WorkerHandler) HandleGetJob(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		job, err := h.dispatcher.GetJob(c.Context(), c.Params("jobId"))
		h.HandleResponse(c, job, err)
		return nil
	})
}

// HandleJobResult nhận kết quả job từ worker; kết quả đến muộn trả 400 và bị bỏ qua.
// Endpoint: POST /api/v1/workers/jobs/:jobId/result
func (h *WorkerHandler) HandleJobResult(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		jobID := c.Params("jobId")
		var input postingdto.JobResultInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		report := input.ToReport(c.Get(middleware.HeaderWorkerID))
		job, err := h.dispatcher.ReportJobResult(workerContext(c, report.WorkerID), jobID, report)
		if err != nil {
			logger.WithRequest(c).WithFields(logrus.Fields{"job_id": jobID, "outcome": report.Outcome}).
				WithError(err).Info("🧾 [JOB] Kết quả job không được chấp nhận")
		}
		h.HandleResponse(c, job, err)
		return nil
	})
}
