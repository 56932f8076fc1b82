package database

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"meta_posting/internal/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureCollections tạo các collection còn thiếu trong database
func EnsureCollections(ctx context.Context, db *mongo.Database, names []string) error {
	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	has := make(map[string]bool, len(existing))
	for _, n := range existing {
		has[n] = true
	}
	for _, name := range names {
		if has[name] {
			continue
		}
		logger.GetAppLogger().Infof("Collection %s chưa tồn tại, tạo mới.", name)
		if err := db.CreateCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
	}
	return nil
}

// parseIndexTag tách tag `index:"single:1;unique;compound:name_unique"` thành danh sách cấu hình
func parseIndexTag(tag string) []map[string]string {
	var result []map[string]string
	for _, part := range strings.Split(tag, ";") {
		entry := map[string]string{}
		for _, sub := range strings.Split(part, ",") {
			kv := strings.SplitN(strings.TrimSpace(sub), ":", 2)
			if kv[0] == "" {
				continue
			}
			if len(kv) == 2 {
				entry[kv[0]] = kv[1]
			} else {
				entry[kv[0]] = ""
			}
		}
		if len(entry) > 0 {
			result = append(result, entry)
		}
	}
	return result
}

// parseOrder trả về -1 nếu tag có "order:-1", mặc định 1
func parseOrder(cfg map[string]string) int {
	if cfg["order"] == "-1" || cfg["single"] == "-1" {
		return -1
	}
	return 1
}

// BuildIndexModels đọc struct tag `index` của model và sinh danh sách index
func BuildIndexModels(model interface{}) ([]mongo.IndexModel, error) {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var models []mongo.IndexModel
	var compoundOrder []string
	compoundKeys := map[string]bson.D{}
	compoundSparse := map[string]bool{}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, ok := field.Tag.Lookup("index")
		if !ok {
			continue
		}
		bsonField := strings.Split(field.Tag.Get("bson"), ",")[0]
		if bsonField == "" || bsonField == "-" {
			continue
		}

		for _, cfg := range parseIndexTag(tag) {
			if _, ok := cfg["single"]; ok {
				name := bsonField + "_single"
				models = append(models, mongo.IndexModel{
					Keys:    bson.D{{Key: bsonField, Value: parseOrder(cfg)}},
					Options: options.Index().SetName(name),
				})
			}
			if _, ok := cfg["unique"]; ok {
				opts := options.Index().SetName(bsonField + "_unique").SetUnique(true)
				if _, sparse := cfg["sparse"]; sparse {
					opts = opts.SetSparse(true)
				}
				models = append(models, mongo.IndexModel{Keys: bson.D{{Key: bsonField, Value: 1}}, Options: opts})
			}
			if ttlValue, ok := cfg["ttl"]; ok {
				ttl, err := strconv.Atoi(ttlValue)
				if err != nil {
					return nil, fmt.Errorf("TTL không hợp lệ trên field %s: %w", bsonField, err)
				}
				models = append(models, mongo.IndexModel{
					Keys:    bson.D{{Key: bsonField, Value: 1}},
					Options: options.Index().SetName(bsonField + "_ttl").SetExpireAfterSeconds(int32(ttl)),
				})
			}
			if group, ok := cfg["compound"]; ok {
				if _, seen := compoundKeys[group]; !seen {
					compoundOrder = append(compoundOrder, group)
				}
				compoundKeys[group] = append(compoundKeys[group], bson.E{Key: bsonField, Value: parseOrder(cfg)})
				if _, sparse := cfg["sparse"]; sparse {
					compoundSparse[group] = true
				}
			}
		}
	}

	for _, group := range compoundOrder {
		opts := options.Index().SetName(group)
		// Tên group kết thúc bằng "_unique" -> unique index
		if strings.HasSuffix(group, "_unique") {
			opts = opts.SetUnique(true)
		}
		if compoundSparse[group] {
			opts = opts.SetSparse(true)
		}
		models = append(models, mongo.IndexModel{Keys: compoundKeys[group], Options: opts})
	}
	return models, nil
}

// CreateIndexes tạo các index khai báo trên model cho collection
func CreateIndexes(ctx context.Context, collection *mongo.Collection, model interface{}) error {
	models, err := BuildIndexModels(model)
	if err != nil {
		return err
	}
	for _, m := range models {
		if _, err := collection.Indexes().CreateOne(ctx, m); err != nil && !isIndexExistsError(err) {
			return fmt.Errorf("không thể tạo index trên %s: %w", collection.Name(), err)
		}
	}
	logger.WithModule("database").WithField("collection", collection.Name()).
		Debugf("Đã đảm bảo %d index", len(models))
	return nil
}

// isIndexExistsError nhận diện lỗi index đã tồn tại (code 85/86)
func isIndexExistsError(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == 85 || cmdErr.Code == 86
	}
	return strings.Contains(err.Error(), "already exists")
}
