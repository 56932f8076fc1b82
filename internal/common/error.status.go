package common

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// HTTP Status Code Constants
const (
	StatusOK                  = 200 // Thành công
	StatusCreated             = 201 // Tạo mới thành công
	StatusBadRequest          = 400 // Yêu cầu không hợp lệ
	StatusNotFound            = 404 // Không tìm thấy tài nguyên
	StatusConflict            = 409 // Xung đột dữ liệu
	StatusTooManyRequests     = 429 // Quá nhiều yêu cầu
	StatusInternalServerError = 500 // Lỗi server
	StatusServiceUnavailable  = 503 // Dịch vụ không khả dụng
)

// Response Messages
const (
	MsgSuccess         = "Thao tác thành công"
	MsgCreated         = "Tạo mới thành công"
	MsgValidationError = "Dữ liệu không hợp lệ"
	MsgInternalError   = "Lỗi hệ thống"
	MsgNotFoundData    = "Không tìm thấy dữ liệu"
)

// ErrorCode định nghĩa mã lỗi chi tiết
type ErrorCode struct {
	Code        string // Mã lỗi (ví dụ: POST_001)
	Category    string // Phân loại lỗi
	SubCategory string // Phân loại con
	Description string // Mô tả chi tiết
}

var (
	ErrCodeInternalServer = ErrorCode{Code: "SYS_001", Category: "System", SubCategory: "Internal", Description: "Lỗi hệ thống nội bộ"}

	ErrCodeValidationInput  = ErrorCode{Code: "VAL_001", Category: "Validation", SubCategory: "Input", Description: "Lỗi dữ liệu đầu vào"}
	ErrCodeValidationFormat = ErrorCode{Code: "VAL_002", Category: "Validation", SubCategory: "Format", Description: "Lỗi định dạng dữ liệu"}

	ErrCodeDatabase           = ErrorCode{Code: "DB", Category: "Database", SubCategory: "General", Description: "Lỗi cơ sở dữ liệu chung"}
	ErrCodeDatabaseConnection = ErrorCode{Code: "DB_001", Category: "Database", SubCategory: "Connection", Description: "Lỗi kết nối cơ sở dữ liệu"}
	ErrCodeDatabaseQuery      = ErrorCode{Code: "DB_002", Category: "Database", SubCategory: "Query", Description: "Lỗi truy vấn dữ liệu"}
	ErrCodeDatabaseDuplicate  = ErrorCode{Code: "DB_003", Category: "Database", SubCategory: "Duplicate", Description: "Vi phạm ràng buộc duy nhất"}

	ErrCodeBusinessState     = ErrorCode{Code: "BIZ_001", Category: "Business", SubCategory: "State", Description: "Lỗi trạng thái nghiệp vụ"}
	ErrCodeBusinessOperation = ErrorCode{Code: "BIZ_002", Category: "Business", SubCategory: "Operation", Description: "Lỗi thao tác nghiệp vụ"}
	ErrCodeBusinessVersion   = ErrorCode{Code: "BIZ_003", Category: "Business", SubCategory: "Version", Description: "Xung đột phiên bản (lockVersion)"}

	ErrCodeWorkerUnavailable = ErrorCode{Code: "WRK_001", Category: "Worker", SubCategory: "Capacity", Description: "Không có worker phù hợp"}
	ErrCodeWorkerUnknown     = ErrorCode{Code: "WRK_002", Category: "Worker", SubCategory: "Registry", Description: "Worker chưa đăng ký"}
)

// Error định nghĩa cấu trúc lỗi chi tiết
type Error struct {
	Code       ErrorCode // Mã lỗi chi tiết
	Message    string    // Thông báo lỗi
	StatusCode int       // HTTP status code
	Details    any       // Thông tin chi tiết thêm về lỗi
}

// Error trả về message của lỗi
func (e *Error) Error() string {
	return e.Message
}

// Is so khớp theo mã lỗi và message, để errors.Is hoạt động cả khi Details khác nhau
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return e.Code.Code == t.Code.Code && e.Message == t.Message
}

// NewError tạo một error mới với đầy đủ thông tin
func NewError(code ErrorCode, message string, statusCode int, details any) error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

// WithDetails trả về bản sao của sentinel error kèm details, vẫn khớp errors.Is với sentinel
func WithDetails(err error, details any) error {
	var e *Error
	if errors.As(err, &e) {
		return &Error{Code: e.Code, Message: e.Message, StatusCode: e.StatusCode, Details: details}
	}
	return err
}

var (
	ErrInvalidInput  = NewError(ErrCodeValidationInput, "Dữ liệu đầu vào không hợp lệ", StatusBadRequest, nil)
	ErrInvalidFormat = NewError(ErrCodeValidationFormat, "Định dạng dữ liệu không hợp lệ", StatusBadRequest, nil)

	ErrNotFound    = NewError(ErrCodeDatabaseQuery, MsgNotFoundData, StatusNotFound, nil)
	ErrDuplicate   = NewError(ErrCodeDatabaseDuplicate, "Dữ liệu đã tồn tại", StatusConflict, nil)
	ErrConnection  = NewError(ErrCodeDatabaseConnection, "Lỗi kết nối cơ sở dữ liệu", StatusServiceUnavailable, nil)
	ErrTransaction = NewError(ErrCodeDatabaseQuery, "Lỗi giao dịch cơ sở dữ liệu", StatusInternalServerError, nil)

	ErrInvalidState     = NewError(ErrCodeBusinessState, "Trạng thái không hợp lệ", StatusBadRequest, nil)
	ErrInvalidOperation = NewError(ErrCodeBusinessOperation, "Thao tác không hợp lệ", StatusBadRequest, nil)
	ErrVersionConflict  = NewError(ErrCodeBusinessVersion, "Bản ghi đã bị thay đổi bởi tiến trình khác", StatusConflict, nil)

	ErrNoEligibleWorker = NewError(ErrCodeWorkerUnavailable, "Không có worker nào đủ điều kiện nhận job", StatusServiceUnavailable, nil)
	ErrUnknownWorker    = NewError(ErrCodeWorkerUnknown, "Worker chưa đăng ký", StatusNotFound, nil)
)

// MongoDB Specific Errors
var (
	ErrMongoConnection = NewError(ErrCodeDatabaseConnection, "Lỗi kết nối MongoDB", StatusServiceUnavailable, nil)
	ErrMongoQuery      = NewError(ErrCodeDatabaseQuery, "Lỗi truy vấn MongoDB", StatusInternalServerError, nil)
	ErrMongoWrite      = NewError(ErrCodeDatabaseQuery, "Lỗi ghi dữ liệu MongoDB", StatusInternalServerError, nil)
	ErrMongoSystem     = NewError(ErrCodeDatabase, "Lỗi hệ thống MongoDB", StatusInternalServerError, nil)
)

// ConvertMongoError chuyển đổi lỗi MongoDB sang lỗi hệ thống
func ConvertMongoError(err error) error {
	if err == nil {
		return nil
	}

	// Lỗi đã là *Error thì giữ nguyên
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return ErrMongoConnection
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch {
		case cmdErr.Code >= 100 && cmdErr.Code < 200:
			return ErrMongoConnection
		case cmdErr.Code >= 300 && cmdErr.Code < 400:
			return ErrMongoQuery
		case cmdErr.Code >= 400 && cmdErr.Code < 500:
			return ErrMongoWrite
		default:
			return ErrMongoSystem
		}
	}

	return NewError(ErrCodeDatabase, err.Error(), StatusInternalServerError, nil)
}
