package postinghdl

import (
	basehdl "meta_posting/internal/api/base/handler"
	postingdto "meta_posting/internal/api/posting/dto"
	postingsvc "meta_posting/internal/api/posting/service"
	"meta_posting/internal/logger"

	"github.com/gofiber/fiber/v3"
)

// FormulaHandler xử lý CRUD posting formula
type FormulaHandler struct {
	*basehdl.BaseHandler
	formulas *postingsvc.FormulaService
}

// NewFormulaHandler tạo FormulaHandler
func NewFormulaHandler(engine *postingsvc.Engine) (*FormulaHandler, error) {
	if engine == nil {
		return nil, errNilEngine
	}
	return &FormulaHandler{BaseHandler: &basehdl.BaseHandler{}, formulas: engine.Formulas}, nil
}

// HandleCreate tạo formula.
// Endpoint: POST /api/v1/posting/formulas
func (h *FormulaHandler) HandleCreate(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		var input postingdto.FormulaInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		created, err := h.formulas.Create(c.Context(), input.ToModel())
		if err == nil {
			logger.LogAction("formula.create", c, "posting_formula", created.ID.Hex(), map[string]interface{}{"name": created.Name})
		}
		h.HandleResponse(c, created, err)
		return nil
	})
}

// HandleList liệt kê formula.
// Endpoint: GET /api/v1/posting/formulas
func (h *FormulaHandler) HandleList(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		rows, err := h.formulas.List(c.Context())
		h.HandleResponse(c, rows, err)
		return nil
	})
}

// HandleGet lấy formula theo id.
// Endpoint: GET /api/v1/posting/formulas/:id
func (h *FormulaHandler) HandleGet(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.ParseObjectID(c, "id")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		f, err := h.formulas.Get(c.Context(), id)
		h.HandleResponse(c, f, err)
		return nil
	})
}

// HandleUpdate thay toàn bộ formula; counter đã tạo giữ limit cũ.
// Endpoint: PUT /api/v1/posting/formulas/:id
func (h *FormulaHandler) HandleUpdate(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.ParseObjectID(c, "id")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		var input postingdto.FormulaInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		updated, err := h.formulas.Update(c.Context(), id, input.ToModel())
		if err == nil {
			logger.LogAction("formula.update", c, "posting_formula", id.Hex(), map[string]interface{}{"name": updated.Name})
		}
		h.HandleResponse(c, updated, err)
		return nil
	})
}

// HandleDelete xoá formula; formula hệ thống không xoá được.
// Endpoint: DELETE /api/v1/posting/formulas/:id
func (h *FormulaHandler) HandleDelete(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.ParseObjectID(c, "id")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.formulas.Delete(c.Context(), id); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		logger.LogAction("formula.delete", c, "posting_formula", id.Hex(), nil)
		h.HandleResponse(c, fiber.Map{"id": id.Hex(), "deleted": true}, nil)
		return nil
	})
}
