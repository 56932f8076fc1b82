package main

import (
	"context"
	"fmt"

	"meta_posting/internal/global"
	"meta_posting/internal/logger"
	"meta_posting/internal/worker"

	"github.com/gofiber/fiber/v3"
)

// initLogger khởi tạo và cấu hình logger cho toàn bộ ứng dụng
func initLogger() {
	// Logger tự đọc biến môi trường để cấu hình
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	logger.GetAppLogger().Info("Logger system initialized successfully")
}

// main_thread khởi tạo và chạy Fiber server
func main_thread() {
	app := InitFiberApp()

	cfg := global.MongoDB_ServerConfig
	log := logger.GetAppLogger()
	log.WithFields(map[string]interface{}{
		"address":  cfg.Address,
		"protocol": "HTTP",
		"store":    cfg.StoreBackend,
	}).Info("Starting Fiber server...")

	if err := app.Listen(cfg.Address, fiber.ListenConfig{}); err != nil {
		log.Fatalf("Error in Fiber Listen: %v", err)
	}
}

// Hàm main
func main() {
	initLogger()

	// Cấu hình và database
	InitGlobal()

	InitRegistry()

	InitPostingEngine()

	// Seed formula preset
	InitDefaultData()

	log := logger.GetAppLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background workers: đóng rest period, timeout job, retry, dispatch bài đến hạn, dọn counter, worker offline
	workers := worker.NewPostingWorkers(postingEngine, global.MongoDB_ServerConfig)
	log.Info("⚙️ [WORKERS] Starting posting background workers...")
	workers.Start(ctx)
	defer workers.Stop()

	defer func() {
		if err := postingSink.Close(); err != nil {
			log.WithError(err).Warn("📤 [ANALYTICS] Không đóng được analytics sink")
		}
	}()

	main_thread()
}
