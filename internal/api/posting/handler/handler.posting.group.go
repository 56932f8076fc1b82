package postinghdl

import (
	basehdl "meta_posting/internal/api/base/handler"
	postingdto "meta_posting/internal/api/posting/dto"
	postingsvc "meta_posting/internal/api/posting/service"
	"meta_posting/internal/logger"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupHandler xử lý account group, membership, account directory và content source
type GroupHandler struct {
	*basehdl.BaseHandler
	groups *postingsvc.GroupService
}

// NewGroupHandler tạo GroupHandler
func NewGroupHandler(engine *postingsvc.Engine) (*GroupHandler, error) {
	if engine == nil {
		return nil, errNilEngine
	}
	return &GroupHandler{BaseHandler: &basehdl.BaseHandler{}, groups: engine.Groups}, nil
}

// HandleCreateGroup tạo group.
// Endpoint: POST /api/v1/posting/groups
func (h *GroupHandler) HandleCreateGroup(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		var input postingdto.GroupCreateInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		g, err := input.ToModel()
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		created, err := h.groups.CreateGroup(c.Context(), g)
		h.HandleResponse(c, created, err)
		return nil
	})
}

// HandleGetGroup lấy group theo id.
// Endpoint: GET /api/v1/posting/groups/:id
func (h *GroupHandler) HandleGetGroup(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.ParseObjectID(c, "id")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		g, err := h.groups.GetGroup(c.Context(), id)
		h.HandleResponse(c, g, err)
		return nil
	})
}

// HandleSetFormula gán hoặc bỏ gán formula cho group.
// Endpoint: PUT /api/v1/posting/groups/:id/formula
func (h *GroupHandler) HandleSetFormula(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.ParseObjectID(c, "id")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		var input postingdto.GroupFormulaInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		var formulaID *primitive.ObjectID
		if input.FormulaID != "" {
			fid, err := postingdto.ObjectID("formulaId", input.FormulaID)
			if err != nil {
				h.HandleResponse(c, nil, err)
				return nil
			}
			formulaID = &fid
		}
		g, err := h.groups.SetFormula(c.Context(), id, formulaID)
		if err == nil {
			logger.LogAction("group.set_formula", c, "account_group", id.Hex(), map[string]interface{}{"formulaId": input.FormulaID})
		}
		h.HandleResponse(c, g, err)
		return nil
	})
}

// HandleAddAccount thêm account vào group, cặp trùng trả 409.
// Endpoint: POST /api/v1/posting/groups/:id/accounts
func (h *GroupHandler) HandleAddAccount(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		groupID, err := h.ParseObjectID(c, "id")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		var input postingdto.GroupAccountInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		link, err := input.ToModel(groupID)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		created, err := h.groups.AddAccount(c.Context(), link)
		h.HandleResponse(c, created, err)
		return nil
	})
}

// HandleRegisterAccount ghi account vào account directory.
// Endpoint: POST /api/v1/posting/accounts
func (h *GroupHandler) HandleRegisterAccount(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		var input postingdto.AccountInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		created, err := h.groups.RegisterAccount(c.Context(), input.ToModel())
		h.HandleResponse(c, created, err)
		return nil
	})
}

// HandleAddContent ghi content vào content source.
// Endpoint: POST /api/v1/posting/contents
func (h *GroupHandler) HandleAddContent(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		var input postingdto.ContentInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		created, err := h.groups.AddContent(c.Context(), input.ToModel())
		h.HandleResponse(c, created, err)
		return nil
	})
}
