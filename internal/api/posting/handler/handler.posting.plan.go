// Package postinghdl chứa HTTP handler của posting engine và worker fleet.
package postinghdl

import (
	"errors"

	basehdl "meta_posting/internal/api/base/handler"
	postingdto "meta_posting/internal/api/posting/dto"
	"meta_posting/internal/api/posting/models"
	postingsvc "meta_posting/internal/api/posting/service"
	postingstore "meta_posting/internal/api/posting/store"

	"github.com/gofiber/fiber/v3"
)

var errNilEngine = errors.New("posting engine is nil")

// PostingHandler xử lý plan, admit và đọc log vi phạm / analytics
type PostingHandler struct {
	*basehdl.BaseHandler
	engine *postingsvc.Engine
}

// NewPostingHandler tạo PostingHandler trên engine đã khởi tạo
func NewPostingHandler(engine *postingsvc.Engine) (*PostingHandler, error) {
	if engine == nil {
		return nil, errNilEngine
	}
	return &PostingHandler{BaseHandler: &basehdl.BaseHandler{}, engine: engine}, nil
}

// HandlePlan lên lịch một batch bài đăng.
// Endpoint: POST /api/v1/posting/plan
func (h *PostingHandler) HandlePlan(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		var input postingdto.PlanBatchInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		req, err := input.ToRequest()
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		result, err := h.engine.Planner.Plan(c.Context(), req)
		h.HandleResponse(c, result, err)
		return nil
	})
}

// HandleAdmit xin phép đăng một bài; bị từ chối vẫn trả 200 với approved=false.
// Endpoint: POST /api/v1/posting/admit
func (h *PostingHandler) HandleAdmit(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		var input postingdto.AdmitInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		candidate, err := input.ToCandidate(h.engine.Now())
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		decision, err := h.engine.Admission.Admit(c.Context(), candidate)
		h.HandleResponse(c, decision, err)
		return nil
	})
}

// HandleListViolations liệt kê violation log mới nhất.
// Endpoint: GET /api/v1/posting/violations?scope=&scopeId=&code=&limit=
func (h *PostingHandler) HandleListViolations(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		var q postingdto.ScopeQuery
		if err := h.ParseRequestQuery(c, &q); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		limit, err := h.QueryInt64(c, "limit", 0)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		ref := q.Ref()
		rows, err := h.engine.Events.ListViolations(c.Context(), postingstore.ViolationFilter{
			Scope:   ref.Scope,
			ScopeID: ref.ScopeID,
			Code:    models.DenialCode(c.Query("code")),
			Limit:   limit,
		})
		h.HandleResponse(c, rows, err)
		return nil
	})
}

// HandleListAnalytics liệt kê analytics event (dispatch, complete, retry, timeout).
// Endpoint: GET /api/v1/posting/analytics?type=&limit=
func (h *PostingHandler) HandleListAnalytics(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		limit, err := h.QueryInt64(c, "limit", 0)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		rows, err := h.engine.Events.ListAnalytics(c.Context(), c.Query("type"), limit)
		h.HandleResponse(c, rows, err)
		return nil
	})
}
