package global

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var hhmmPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// InitValidator khởi tạo và đăng ký các custom validator
func InitValidator() {
	Validate = validator.New()

	_ = Validate.RegisterValidation("no_xss", validateNoXSS)
	_ = Validate.RegisterValidation("hhmm", validateHHMM)
	_ = Validate.RegisterValidation("timezone", validateTimezone)
}

// validateNoXSS chặn các pattern script phổ biến trong chuỗi tự do (name, reason)
func validateNoXSS(fl validator.FieldLevel) bool {
	value := strings.ToLower(fl.Field().String())
	for _, p := range []string{"<script", "javascript:", "onerror=", "onload=", "<iframe"} {
		if strings.Contains(value, p) {
			return false
		}
	}
	return true
}

// validateHHMM kiểm tra định dạng giờ "HH:MM" (dùng cho quietHours)
func validateHHMM(fl validator.FieldLevel) bool {
	return hhmmPattern.MatchString(fl.Field().String())
}

// validateTimezone kiểm tra tên IANA timezone, chuỗi rỗng được chấp nhận (dùng mặc định)
func validateTimezone(fl validator.FieldLevel) bool {
	tz := fl.Field().String()
	if tz == "" {
		return true
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}
