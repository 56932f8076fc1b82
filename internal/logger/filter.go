package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// FilterHook đánh dấu entry không thuộc module/level được phép, AsyncHook sẽ bỏ qua chúng
type FilterHook struct {
	modules  map[string]bool
	logTypes map[string]bool
}

// NewFilterHook tạo filter hook từ cấu hình
func NewFilterHook(cfg *LogConfig) *FilterHook {
	return &FilterHook{
		modules:  parseFilter(cfg.FilterModules),
		logTypes: parseFilter(cfg.FilterLogTypes),
	}
}

// parseFilter trả về nil khi cho phép tất cả
func parseFilter(s string) map[string]bool {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return nil
	}
	out := make(map[string]bool)
	for _, v := range strings.Split(s, ",") {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out[v] = true
		}
	}
	return out
}

func (h *FilterHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *FilterHook) Fire(entry *logrus.Entry) error {
	if h.logTypes != nil && !h.logTypes[strings.ToLower(entry.Level.String())] {
		entry.Data[filteredField] = true
		return nil
	}
	// Entry không có module luôn được ghi
	if h.modules != nil {
		if module, ok := entry.Data["module"].(string); ok && !h.modules[strings.ToLower(module)] {
			entry.Data[filteredField] = true
		}
	}
	return nil
}
