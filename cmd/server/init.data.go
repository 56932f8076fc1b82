package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	postingsvc "meta_posting/internal/api/posting/service"
	"meta_posting/internal/global"
	"meta_posting/internal/logger"
)

func InitDefaultData() {
	log := logger.GetAppLogger()
	log.Info("🔄 [INIT] Starting InitDefaultData...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Đọc formula preset từ YAML
	path := resolvePath(global.MongoDB_ServerConfig.FormulaPresetsFile)
	log.Infof("🔄 [INIT] Step 1: Loading formula presets from %s...", path)
	presets, err := postingsvc.LoadPresets(path)
	if err != nil {
		// Thiếu file preset không chặn khởi động, engine vẫn chạy với formula tạo qua API
		log.WithError(err).Warn("⚠️ [INIT] Step 1: Không đọc được formula preset, bỏ qua seed")
		return
	}
	log.Infof("✅ [INIT] Step 1: Loaded %d formula presets", len(presets))

	// 2. Seed các preset chưa có (theo name)
	log.Info("🔄 [INIT] Step 2: Seeding formula presets...")
	created, err := postingEngine.Formulas.SeedPresets(ctx, presets)
	if err != nil {
		log.Fatalf("Failed to seed formula presets: %v", err)
	}
	log.Infof("✅ [INIT] Step 2: Formula presets seeded (%d created)", created)
}

// resolvePath đổi đường dẫn tương đối thành đường dẫn tính từ thư mục chứa config/env
func resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	currentDir, err := os.Getwd()
	if err != nil {
		return path
	}
	for {
		if _, err := os.Stat(filepath.Join(currentDir, "config", "env")); err == nil {
			return filepath.Join(currentDir, path)
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return path
		}
		currentDir = parentDir
	}
}
