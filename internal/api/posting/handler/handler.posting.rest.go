package postinghdl

import (
	"context"

	basehdl "meta_posting/internal/api/base/handler"
	postingdto "meta_posting/internal/api/posting/dto"
	"meta_posting/internal/api/posting/models"
	postingsvc "meta_posting/internal/api/posting/service"
	"meta_posting/internal/common"
	"meta_posting/internal/logger"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RestPeriodHandler xử lý rest period: xem, mở thủ công, resume, cancel
type RestPeriodHandler struct {
	*basehdl.BaseHandler
	engine *postingsvc.Engine
}

// NewRestPeriodHandler tạo RestPeriodHandler
func NewRestPeriodHandler(engine *postingsvc.Engine) (*RestPeriodHandler, error) {
	if engine == nil {
		return nil, errNilEngine
	}
	return &RestPeriodHandler{BaseHandler: &basehdl.BaseHandler{}, engine: engine}, nil
}

// HandleList liệt kê rest period của một scope.
// Endpoint: GET /api/v1/posting/rest-periods?scope=&scopeId=&status=
func (h *RestPeriodHandler) HandleList(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		var q postingdto.ScopeQuery
		if err := h.ParseRequestQuery(c, &q); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		ref := q.Ref()
		if ref.Scope == "" || ref.ScopeID == "" {
			h.HandleResponse(c, nil, common.WithDetails(common.ErrInvalidInput, "scope and scopeId are required"))
			return nil
		}
		rows, err := h.engine.RestPeriods.List(c.Context(), ref, q.Status)
		h.HandleResponse(c, rows, err)
		return nil
	})
}

// HandleOpen mở rest period thủ công; scope đang nghỉ trả 409.
// Endpoint: POST /api/v1/posting/rest-periods
func (h *RestPeriodHandler) HandleOpen(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		var input postingdto.RestPeriodOpenInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		rp, err := h.engine.RestPeriods.Open(c.Context(), input.ToModel(h.engine.Now().UnixMilli()))
		if err == nil {
			logger.LogAction("rest_period.open", c, "rest_period", rp.ID.Hex(), map[string]interface{}{
				"scope": rp.Scope, "scopeId": rp.ScopeID, "endAt": rp.EndAt,
			})
		}
		h.HandleResponse(c, rp, err)
		return nil
	})
}

// HandleResume kết thúc rest period đang active.
// Endpoint: POST /api/v1/posting/rest-periods/:id/resume
func (h *RestPeriodHandler) HandleResume(c fiber.Ctx) error {
	return h.close(c, "rest_period.resume", h.engine.RestPeriods.Resume)
}

// HandleCancel huỷ rest period đang active.
// Endpoint: POST /api/v1/posting/rest-periods/:id/cancel
func (h *RestPeriodHandler) HandleCancel(c fiber.Ctx) error {
	return h.close(c, "rest_period.cancel", h.engine.RestPeriods.Cancel)
}

func (h *RestPeriodHandler) close(c fiber.Ctx, action string, fn func(ctx context.Context, id primitive.ObjectID) (models.RestPeriod, error)) error {
	return h.SafeHandler(c, func() error {
		id, err := h.ParseObjectID(c, "id")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		rp, err := fn(c.Context(), id)
		if err == nil {
			logger.LogAction(action, c, "rest_period", id.Hex(), map[string]interface{}{"status": rp.Status})
		}
		h.HandleResponse(c, rp, err)
		return nil
	})
}
