package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Configuration chứa thông tin tĩnh cần thiết để chạy ứng dụng
type Configuration struct {
	Address      string `env:"ADDRESS" envDefault:":8080"`       // Địa chỉ server
	StoreBackend string `env:"STORE_BACKEND" envDefault:"mongo"` // mongo | memory

	MongoDB_ConnectionURI string `env:"MONGODB_CONNECTION_URI" envDefault:"mongodb://localhost:27017"` // URL kết nối cơ sở dữ liệu
	MongoDB_DBName        string `env:"MONGODB_DBNAME" envDefault:"meta_posting"`                      // Tên cơ sở dữ liệu

	CORS_Origins      string `env:"CORS_ORIGINS" envDefault:"*"`          // Các origins được phép (phân cách bởi dấu phẩy)
	RateLimit_Max     int    `env:"RATE_LIMIT_MAX" envDefault:"100"`      // Số request tối đa trong window
	RateLimit_Window  int    `env:"RATE_LIMIT_WINDOW" envDefault:"60"`    // Thời gian window (giây)
	RateLimit_Enabled bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"` // Bật/tắt rate limiting

	// Quota toàn ứng dụng (scope app), 0 = không giới hạn
	AppTimezone    string `env:"APP_TIMEZONE" envDefault:"Asia/Ho_Chi_Minh"`
	AppCapPerHour  int    `env:"APP_CAP_PER_HOUR" envDefault:"0"`
	AppCapPerDay   int    `env:"APP_CAP_PER_DAY" envDefault:"0"`
	AppCapPerWeek  int    `env:"APP_CAP_PER_WEEK" envDefault:"0"`
	AppCapPerMonth int    `env:"APP_CAP_PER_MONTH" envDefault:"0"`
	AppCapPerYear  int    `env:"APP_CAP_PER_YEAR" envDefault:"0"`

	// Dispatcher
	JobTimeoutSeconds       int `env:"JOB_TIMEOUT_SECONDS" envDefault:"300"`      // Quá thời gian này không có heartbeat/kết quả -> timeout
	JobMaxRetries           int `env:"JOB_MAX_RETRIES" envDefault:"3"`            // Số lần retry tối đa
	RetryBackoffBaseSeconds int `env:"RETRY_BACKOFF_BASE_SECONDS" envDefault:"1"` // Backoff = base * 2^retryCount
	WorkerOfflineSeconds    int `env:"WORKER_OFFLINE_SECONDS" envDefault:"90"`    // Heartbeat cũ hơn -> isOnline=false
	ConflictRetryAttempts   int `env:"CONFLICT_RETRY_ATTEMPTS" envDefault:"3"`    // Số lần thử lại khi conditional update thất bại

	// Chu kỳ background workers (giây)
	RestPeriodSweepInterval int `env:"REST_PERIOD_SWEEP_INTERVAL" envDefault:"60"`
	JobTimeoutSweepInterval int `env:"JOB_TIMEOUT_SWEEP_INTERVAL" envDefault:"30"`
	RetryDispatchInterval   int `env:"RETRY_DISPATCH_INTERVAL" envDefault:"15"`
	DueDispatchInterval     int `env:"DUE_DISPATCH_INTERVAL" envDefault:"30"`
	CounterGCInterval       int `env:"COUNTER_GC_INTERVAL" envDefault:"3600"`
	WorkerHealthInterval    int `env:"WORKER_HEALTH_INTERVAL" envDefault:"30"`

	// Formula presets (YAML), seed lúc khởi động
	FormulaPresetsFile string `env:"FORMULA_PRESETS_FILE" envDefault:"config/formulas.yaml"`

	// Kafka analytics sink (tuỳ chọn, để trống = không gửi)
	KafkaBrokers        string `env:"KAFKA_BROKERS"`
	KafkaAnalyticsTopic string `env:"KAFKA_ANALYTICS_TOPIC" envDefault:"posting.analytics"`
}

// KafkaBrokerList tách danh sách broker
func (c *Configuration) KafkaBrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// getEnvPath trả về đường dẫn đến file env dựa trên GO_ENV
func getEnvPath() string {
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" {
		goEnv = "development"
	}

	currentDir, err := os.Getwd()
	if err != nil {
		fmt.Printf("Không thể lấy được thư mục hiện tại: %v\n", err)
		return ""
	}

	// Đi lên dần để tìm thư mục config/env
	for {
		envDir := filepath.Join(currentDir, "config", "env")
		if _, err := os.Stat(envDir); err == nil {
			return filepath.Join(envDir, fmt.Sprintf("%s.env", goEnv))
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

// NewConfig đọc cấu hình từ file env (nếu có) rồi parse biến môi trường
func NewConfig() (*Configuration, error) {
	if envPath := getEnvPath(); envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			// Logger chưa được init ở đây
			fmt.Printf("Không thể load file env tại %s: %v\n", envPath, err)
		}
	}

	cfg := Configuration{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.StoreBackend != "mongo" && cfg.StoreBackend != "memory" {
		return nil, fmt.Errorf("STORE_BACKEND must be mongo or memory, got %q", cfg.StoreBackend)
	}
	return &cfg, nil
}
