package postingstore

import (
	"context"

	basesvc "meta_posting/internal/api/base/service"
	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/global"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// NewMongoStore tạo store dùng MongoDB.
// Counter, worker slot, job và assignment dùng conditional update (FindOneAndUpdate có điều kiện)
// nên nhiều instance server có thể chạy song song trên cùng database.
func NewMongoStore(db *mongo.Database) *Store {
	cols := global.MongoDB_ColNames
	return &Store{
		Counters:       &mongoCounters{base: basesvc.NewBaseServiceMongo[models.LimitCounter](collection(db, cols.LimitCounters))},
		Formulas:       &mongoFormulas{base: basesvc.NewBaseServiceMongo[models.PostingFormula](collection(db, cols.PostingFormulas))},
		Groups:         &mongoGroups{base: basesvc.NewBaseServiceMongo[models.AccountGroup](collection(db, cols.AccountGroups))},
		GroupAccounts:  &mongoGroupAccounts{base: basesvc.NewBaseServiceMongo[models.GroupAccount](collection(db, cols.GroupAccounts))},
		Accounts:       &mongoAccounts{base: basesvc.NewBaseServiceMongo[models.SocialAccount](collection(db, cols.SocialAccounts))},
		Contents:       &mongoContents{base: basesvc.NewBaseServiceMongo[models.ContentItem](collection(db, cols.ContentItems))},
		RestPeriods:    &mongoRestPeriods{base: basesvc.NewBaseServiceMongo[models.RestPeriod](collection(db, cols.RestPeriods))},
		ScheduledPosts: &mongoScheduledPosts{base: basesvc.NewBaseServiceMongo[models.ScheduledPost](collection(db, cols.ScheduledPosts))},
		Assignments:    &mongoAssignments{base: basesvc.NewBaseServiceMongo[models.ScheduleAssignment](collection(db, cols.ScheduleAssignments))},
		Workers:        &mongoWorkers{base: basesvc.NewBaseServiceMongo[models.Worker](collection(db, cols.Workers))},
		Jobs:           &mongoJobs{base: basesvc.NewBaseServiceMongo[models.WorkerJob](collection(db, cols.WorkerJobs))},
		Violations:     &mongoViolations{base: basesvc.NewBaseServiceMongo[models.ViolationLog](collection(db, cols.ViolationLogs))},
		Analytics:      &mongoAnalytics{base: basesvc.NewBaseServiceMongo[models.AnalyticsEvent](collection(db, cols.AnalyticsEvents))},
	}
}

// collection lấy collection từ registry dùng chung, đăng ký nếu chưa có
func collection(db *mongo.Database, name string) *mongo.Collection {
	col, err := global.RegistryCollections.GetOrCreate(name, func() (*mongo.Collection, error) {
		return db.Collection(name), nil
	})
	if err != nil {
		return db.Collection(name)
	}
	return col
}

// exists kiểm tra có document khớp filter không, dùng để phân biệt not-found với điều kiện không thoả
func exists[T any](ctx context.Context, base *basesvc.BaseServiceMongoImpl[T], filter bson.M) (bool, error) {
	n, err := base.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
