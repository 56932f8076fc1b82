package main

import (
	"context"
	"time"

	"meta_posting/config"
	"meta_posting/internal/analytics"
	"meta_posting/internal/api/posting/models"
	postingsvc "meta_posting/internal/api/posting/service"
	postingstore "meta_posting/internal/api/posting/store"
	"meta_posting/internal/database"
	"meta_posting/internal/global"

	"github.com/sirupsen/logrus"
)

// Posting engine dùng chung cho router và background workers
var (
	postingStore  *postingstore.Store
	postingSink   analytics.Sink
	postingEngine *postingsvc.Engine
)

// Hàm khởi tạo các biến toàn cục
func InitGlobal() {
	initValidator()        // Khởi tạo validator
	initConfig()           // Khởi tạo cấu hình server
	initDatabase_MongoDB() // Khởi tạo kết nối database (chỉ khi STORE_BACKEND=mongo)
}

// InitPostingEngine dựng store, analytics sink và engine; gọi sau InitRegistry
func InitPostingEngine() {
	initStore()
	initAnalyticsSink()
	initEngine()
}

// Hàm khởi tạo validator
func initValidator() {
	global.InitValidator()
	logrus.Info("Initialized validator")
}

// Hàm khởi tạo cấu hình server
func initConfig() {
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("Failed to initialize config: %v", err)
	}
	global.MongoDB_ServerConfig = cfg
	logrus.Infof("Initialized server config (store=%s, timezone=%s)", cfg.StoreBackend, cfg.AppTimezone)
}

// Hàm khởi tạo kết nối database, tạo collection và index
func initDatabase_MongoDB() {
	cfg := global.MongoDB_ServerConfig
	if cfg.StoreBackend != "mongo" {
		logrus.Warn("STORE_BACKEND=memory, bỏ qua kết nối MongoDB (dữ liệu không được lưu bền)")
		return
	}

	client, err := database.GetInstance(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize MongoDB: %v", err)
	}
	global.MongoDB_Session = client
	logrus.Info("Initialized MongoDB")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := client.Database(cfg.MongoDB_DBName)
	cols := global.MongoDB_ColNames
	if err := database.EnsureCollections(ctx, db, cols.AllCollectionNames()); err != nil {
		logrus.Fatalf("Failed to ensure collections: %v", err)
	}

	// Index khai báo qua struct tag
	indexed := []struct {
		name  string
		model interface{}
	}{
		{cols.AccountGroups, models.AccountGroup{}},
		{cols.GroupAccounts, models.GroupAccount{}},
		{cols.SocialAccounts, models.SocialAccount{}},
		{cols.ContentItems, models.ContentItem{}},
		{cols.PostingFormulas, models.PostingFormula{}},
		{cols.LimitCounters, models.LimitCounter{}},
		{cols.RestPeriods, models.RestPeriod{}},
		{cols.ScheduledPosts, models.ScheduledPost{}},
		{cols.ScheduleAssignments, models.ScheduleAssignment{}},
		{cols.Workers, models.Worker{}},
		{cols.WorkerJobs, models.WorkerJob{}},
		{cols.ViolationLogs, models.ViolationLog{}},
		{cols.AnalyticsEvents, models.AnalyticsEvent{}},
	}
	for _, item := range indexed {
		if err := database.CreateIndexes(ctx, db.Collection(item.name), item.model); err != nil {
			logrus.Errorf("Failed to create indexes for %s: %v", item.name, err)
		}
	}
	if err := database.CreatePostingAdditionalIndexes(ctx, db); err != nil {
		logrus.Errorf("Failed to create additional posting indexes: %v", err)
	}
	logrus.Info("Initialized MongoDB indexes")
}

// initStore chọn MongoStore hoặc MemoryStore theo STORE_BACKEND
func initStore() {
	cfg := global.MongoDB_ServerConfig
	if cfg.StoreBackend == "mongo" {
		postingStore = postingstore.NewMongoStore(global.MongoDB_Session.Database(cfg.MongoDB_DBName))
	} else {
		postingStore = postingstore.NewMemoryStore()
	}
	logrus.Infof("Initialized posting store (%s)", cfg.StoreBackend)
}

// initAnalyticsSink bật Kafka sink khi có KAFKA_BROKERS, ngược lại dùng noop
func initAnalyticsSink() {
	cfg := global.MongoDB_ServerConfig
	sink, err := analytics.NewSink(cfg.KafkaBrokerList(), cfg.KafkaAnalyticsTopic)
	if err != nil {
		logrus.Errorf("Failed to initialize analytics sink, continuing without Kafka: %v", err)
		sink = analytics.NoopSink{}
	}
	postingSink = sink
}

func initEngine() {
	postingEngine = postingsvc.NewEngine(postingStore, global.MongoDB_ServerConfig, postingSink)
	logrus.Info("Initialized posting engine")
}
