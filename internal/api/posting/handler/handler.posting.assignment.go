package postinghdl

import (
	basehdl "meta_posting/internal/api/base/handler"
	postingsvc "meta_posting/internal/api/posting/service"
	"meta_posting/internal/logger"

	"github.com/gofiber/fiber/v3"
)

// AssignmentHandler xử lý schedule assignment theo scheduled post
type AssignmentHandler struct {
	*basehdl.BaseHandler
	assignments *postingsvc.AssignmentService
}

// NewAssignmentHandler tạo AssignmentHandler
func NewAssignmentHandler(engine *postingsvc.Engine) (*AssignmentHandler, error) {
	if engine == nil {
		return nil, errNilEngine
	}
	return &AssignmentHandler{BaseHandler: &basehdl.BaseHandler{}, assignments: engine.Assignments}, nil
}

// HandleGet lấy assignment của scheduled post.
// Endpoint: GET /api/v1/posting/assignments/:postId
func (h *AssignmentHandler) HandleGet(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		postID, err := h.ParseObjectID(c, "postId")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		a, err := h.assignments.Get(c.Context(), postID)
		h.HandleResponse(c, a, err)
		return nil
	})
}

// HandleCancel huỷ assignment: assigned -> cancelled, executing -> cancelRequested.
// Endpoint: POST /api/v1/posting/assignments/:postId/cancel
func (h *AssignmentHandler) HandleCancel(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		postID, err := h.ParseObjectID(c, "postId")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		a, err := h.assignments.Cancel(c.Context(), postID)
		if err == nil {
			logger.LogAction("assignment.cancel", c, "schedule_assignment", postID.Hex(), map[string]interface{}{
				"status": a.Status, "cancelRequested": a.CancelRequested,
			})
		}
		h.HandleResponse(c, a, err)
		return nil
	})
}
