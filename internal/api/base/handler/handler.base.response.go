// Package basehdl chứa phần dùng chung của các HTTP handler: envelope response,
// recover panic, parse + validate body và tham số.
package basehdl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"

	"meta_posting/internal/common"
	"meta_posting/internal/global"
	"meta_posting/internal/logger"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JSONResponse trả về JSON response với Content-Type: application/json; charset=utf-8
func JSONResponse(c fiber.Ctx, statusCode int, data interface{}) error {
	c.Set("Content-Type", "application/json; charset=utf-8")
	return c.Status(statusCode).JSON(data)
}

// BaseHandler được embed bởi các domain handler
type BaseHandler struct{}

// SafeHandler bọc handler với recover để luôn trả response cho client, kể cả khi panic
func (h *BaseHandler) SafeHandler(c fiber.Ctx, handler func() error) error {
	defer func() {
		if r := recover(); r != nil {
			logger.WithRequest(c).WithField("panic", r).Errorf("🔥 [PANIC] %s", debug.Stack())
			h.HandleResponse(c, nil, common.NewError(
				common.ErrCodeInternalServer,
				fmt.Sprintf("Lỗi hệ thống không mong muốn: %v", r),
				common.StatusInternalServerError,
				nil,
			))
		}
	}()
	return handler()
}

// HandleResponse chuẩn hoá response: {code, message, data, status}
func (h *BaseHandler) HandleResponse(c fiber.Ctx, data interface{}, err error) {
	if err != nil {
		var customErr *common.Error
		if errors.As(err, &customErr) {
			JSONResponse(c, customErr.StatusCode, fiber.Map{
				"code":    customErr.Code.Code,
				"message": customErr.Message,
				"details": customErr.Details,
				"status":  "error",
			})
			return
		}
		logger.WithRequest(c).WithError(err).Error("❌ [API] Lỗi không xác định")
		JSONResponse(c, common.StatusInternalServerError, fiber.Map{
			"code":    common.ErrCodeDatabase.Code,
			"message": err.Error(),
			"status":  "error",
		})
		return
	}

	JSONResponse(c, common.StatusOK, fiber.Map{
		"code":    common.StatusOK,
		"message": common.MsgSuccess,
		"data":    data,
		"status":  "success",
	})
}

// ParseRequestBody decode JSON body vào input (giữ số dạng json.Number) rồi validate.
// Body rỗng được coi như {} để các endpoint có body tuỳ chọn vẫn qua validate.
func (h *BaseHandler) ParseRequestBody(c fiber.Ctx, input interface{}) error {
	body := c.Body()
	if len(bytes.TrimSpace(body)) > 0 {
		decoder := json.NewDecoder(bytes.NewReader(body))
		decoder.UseNumber()
		if err := decoder.Decode(input); err != nil {
			return common.NewError(
				common.ErrCodeValidationFormat,
				fmt.Sprintf("%s: body không phải JSON hợp lệ", common.MsgValidationError),
				common.StatusBadRequest,
				err.Error(),
			)
		}
	}
	return ValidateInput(input)
}

// ValidateInput chạy validator toàn cục trên struct đã parse
func ValidateInput(input interface{}) error {
	if global.Validate == nil {
		return nil
	}
	if err := global.Validate.Struct(input); err != nil {
		return common.NewError(
			common.ErrCodeValidationInput,
			common.MsgValidationError,
			common.StatusBadRequest,
			err.Error(),
		)
	}
	return nil
}

// ParseObjectID đọc path param dạng ObjectID hex
func (h *BaseHandler) ParseObjectID(c fiber.Ctx, param string) (primitive.ObjectID, error) {
	return ParseObjectIDValue(param, c.Params(param))
}

// ParseObjectIDValue chuyển chuỗi hex sang ObjectID, sai định dạng trả ErrInvalidFormat kèm field
func ParseObjectIDValue(field, value string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return primitive.NilObjectID, common.WithDetails(common.ErrInvalidFormat, fiber.Map{field: value})
	}
	return id, nil
}

// QueryInt64 đọc query param số nguyên, thiếu thì trả def
func (h *BaseHandler) QueryInt64(c fiber.Ctx, key string, def int64) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, common.WithDetails(common.ErrInvalidFormat, fiber.Map{key: raw})
	}
	return v, nil
}

// ParseRequestQuery bind query string (tag `query`) vào input rồi validate
func (h *BaseHandler) ParseRequestQuery(c fiber.Ctx, input interface{}) error {
	if err := c.Bind().Query(input); err != nil {
		return common.NewError(
			common.ErrCodeValidationFormat,
			fmt.Sprintf("%s: query không hợp lệ", common.MsgValidationError),
			common.StatusBadRequest,
			err.Error(),
		)
	}
	return ValidateInput(input)
}
