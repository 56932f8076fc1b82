package logger

import (
	"os"
	"strings"

	"github.com/caarlos0/env"
)

// LogConfig chứa cấu hình cho hệ thống logging
type LogConfig struct {
	// trace, debug, info, warn, error, fatal
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	// json, text
	Format string `env:"LOG_FORMAT" envDefault:"text"`
	// file, stdout, both
	Output string `env:"LOG_OUTPUT" envDefault:"both"`

	MaxSize    int  `env:"LOG_MAX_SIZE" envDefault:"100"`   // MB
	MaxBackups int  `env:"LOG_MAX_BACKUPS" envDefault:"7"`  // Số file cũ giữ lại
	MaxAge     int  `env:"LOG_MAX_AGE" envDefault:"7"`      // Số ngày giữ lại
	Compress   bool `env:"LOG_COMPRESS" envDefault:"true"`  // Nén file cũ

	LogPath   string `env:"LOG_PATH" envDefault:"./logs"`
	AppFile   string `env:"LOG_APP_FILE" envDefault:"app.log"`
	AuditFile string `env:"LOG_AUDIT_FILE" envDefault:"audit.log"`
	ErrorFile string `env:"LOG_ERROR_FILE" envDefault:"error.log"`

	// Danh sách module được phép ghi log, phân cách bằng dấu phẩy ("*" = tất cả)
	FilterModules string `env:"LOG_FILTER_MODULES" envDefault:"*"`
	// Danh sách level được phép ghi log ("*" = tất cả)
	FilterLogTypes string `env:"LOG_FILTER_TYPES" envDefault:"*"`
}

// DefaultConfig trả về cấu hình mặc định, có override từ biến môi trường
func DefaultConfig() *LogConfig {
	cfg := &LogConfig{}
	if err := env.Parse(cfg); err != nil {
		cfg = &LogConfig{
			Level: "info", Format: "text", Output: "both",
			MaxSize: 100, MaxBackups: 7, MaxAge: 7, Compress: true,
			LogPath: "./logs", AppFile: "app.log", AuditFile: "audit.log", ErrorFile: "error.log",
			FilterModules: "*", FilterLogTypes: "*",
		}
	}

	// Môi trường development mặc định debug nếu LOG_LEVEL không được set
	if os.Getenv("LOG_LEVEL") == "" {
		goEnv := os.Getenv("GO_ENV")
		if goEnv == "" || goEnv == "development" {
			cfg.Level = "debug"
		}
	}
	cfg.Level = strings.ToLower(cfg.Level)
	cfg.Format = strings.ToLower(cfg.Format)
	cfg.Output = strings.ToLower(cfg.Output)
	return cfg
}
