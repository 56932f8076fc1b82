package global

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type window struct {
	Start string `validate:"required,hhmm"`
	TZ    string `validate:"timezone"`
	Name  string `validate:"no_xss"`
}

func TestCustomValidators(t *testing.T) {
	InitValidator()

	assert.NoError(t, Validate.Struct(window{Start: "23:59", TZ: "Asia/Ho_Chi_Minh", Name: "morning"}))
	assert.Error(t, Validate.Struct(window{Start: "24:00"}))
	assert.Error(t, Validate.Struct(window{Start: "09:00", TZ: "Mars/Base"}))
	assert.Error(t, Validate.Struct(window{Start: "09:00", Name: "<script>alert(1)</script>"}))
}
