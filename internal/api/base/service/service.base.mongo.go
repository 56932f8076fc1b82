// package basesvc cung cấp các thao tác MongoDB dùng chung cho repository của các domain
package basesvc

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"meta_posting/internal/common"
)

// UpdateData định nghĩa kiểu dữ liệu cho partial update
type UpdateData struct {
	Set         map[string]interface{} `bson:"$set,omitempty"`         // Các trường cần update
	SetOnInsert map[string]interface{} `bson:"$setOnInsert,omitempty"` // Các trường chỉ set khi insert (upsert tạo mới)
	Unset       map[string]interface{} `bson:"$unset,omitempty"`       // Các trường cần xóa
	Inc         map[string]interface{} `bson:"$inc,omitempty"`         // Các trường tăng/giảm
	Max         map[string]interface{} `bson:"$max,omitempty"`         // Các trường lấy giá trị lớn hơn
	Push        map[string]interface{} `bson:"$push,omitempty"`        // Các trường cần thêm vào array
}

// BaseServiceMongoImpl gói một collection với kiểu model T
type BaseServiceMongoImpl[T any] struct {
	collection *mongo.Collection
}

// NewBaseServiceMongo tạo base service cho collection
func NewBaseServiceMongo[T any](collection *mongo.Collection) *BaseServiceMongoImpl[T] {
	return &BaseServiceMongoImpl[T]{collection: collection}
}

// Collection trả về collection gốc (dùng cho transaction, aggregate)
func (s *BaseServiceMongoImpl[T]) Collection() *mongo.Collection {
	return s.collection
}

// InsertOne áp default từ struct tag, thêm createdAt/updatedAt rồi insert
func (s *BaseServiceMongoImpl[T]) InsertOne(ctx context.Context, data T) (T, error) {
	var zero T
	ApplyInsertDefaults(&data)

	doc, err := toBsonM(data)
	if err != nil {
		return zero, common.ErrInvalidFormat
	}
	now := time.Now().UnixMilli()
	doc["createdAt"] = now
	doc["updatedAt"] = now

	result, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		return zero, common.ConvertMongoError(err)
	}

	var created T
	if err := s.collection.FindOne(ctx, bson.M{"_id": result.InsertedID}).Decode(&created); err != nil {
		return zero, common.ConvertMongoError(err)
	}
	return created, nil
}

// FindOne tìm một document, ErrNotFound nếu không có
func (s *BaseServiceMongoImpl[T]) FindOne(ctx context.Context, filter interface{}, opts *options.FindOneOptions) (T, error) {
	var zero T
	if filter == nil {
		filter = bson.D{}
	}
	if opts == nil {
		opts = options.FindOne()
	}
	var result T
	if err := s.collection.FindOne(ctx, filter, opts).Decode(&result); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, common.ErrNotFound
		}
		return zero, common.ConvertMongoError(err)
	}
	return result, nil
}

// Find tìm nhiều document
func (s *BaseServiceMongoImpl[T]) Find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]T, error) {
	if filter == nil {
		filter = bson.D{}
	}
	if opts == nil {
		opts = options.Find()
	}
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	defer cursor.Close(ctx)

	var results []T
	if err := cursor.All(ctx, &results); err != nil {
		return nil, common.ConvertMongoError(err)
	}
	return results, nil
}

// FindOneAndUpdate cập nhật nguyên tử và trả về document sau cập nhật.
// Không khớp filter -> ErrNotFound.
func (s *BaseServiceMongoImpl[T]) FindOneAndUpdate(ctx context.Context, filter interface{}, update UpdateData, opts *options.FindOneAndUpdateOptions) (T, error) {
	var zero T
	if opts == nil {
		opts = options.FindOneAndUpdate()
	}
	opts = opts.SetReturnDocument(options.After)

	if update.Set == nil {
		update.Set = make(map[string]interface{})
	}
	update.Set["updatedAt"] = time.Now().UnixMilli()

	var result T
	if err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, common.ErrNotFound
		}
		return zero, common.ConvertMongoError(err)
	}
	return result, nil
}

// UpdateMany cập nhật nhiều document, trả số document đã sửa
func (s *BaseServiceMongoImpl[T]) UpdateMany(ctx context.Context, filter interface{}, update UpdateData) (int64, error) {
	if update.Set == nil {
		update.Set = make(map[string]interface{})
	}
	update.Set["updatedAt"] = time.Now().UnixMilli()

	result, err := s.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, common.ConvertMongoError(err)
	}
	return result.ModifiedCount, nil
}

// Upsert cập nhật theo filter, tạo mới nếu chưa có; default tag của model vào $setOnInsert
func (s *BaseServiceMongoImpl[T]) Upsert(ctx context.Context, filter interface{}, update UpdateData) (T, error) {
	var zero T
	now := time.Now().UnixMilli()
	if update.SetOnInsert == nil {
		update.SetOnInsert = make(map[string]interface{})
	}
	var model T
	for k, v := range defaultsForType(reflect.TypeOf(model)) {
		if _, inSet := update.Set[k]; !inSet {
			if _, ok := update.SetOnInsert[k]; !ok {
				update.SetOnInsert[k] = v
			}
		}
	}
	update.SetOnInsert["createdAt"] = now

	result, err := s.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetUpsert(true))
	if err != nil {
		return zero, err
	}
	return result, nil
}

// DeleteOne xoá một document, ErrNotFound nếu không có
func (s *BaseServiceMongoImpl[T]) DeleteOne(ctx context.Context, filter interface{}) error {
	result, err := s.collection.DeleteOne(ctx, filter)
	if err != nil {
		return common.ConvertMongoError(err)
	}
	if result.DeletedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeleteMany xoá nhiều document
func (s *BaseServiceMongoImpl[T]) DeleteMany(ctx context.Context, filter interface{}) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, common.ConvertMongoError(err)
	}
	return result.DeletedCount, nil
}

// CountDocuments đếm document khớp filter
func (s *BaseServiceMongoImpl[T]) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	n, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, common.ConvertMongoError(err)
	}
	return n, nil
}

func toBsonM(data interface{}) (bson.M, error) {
	raw, err := bson.Marshal(data)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ApplyInsertDefaults gán giá trị từ struct tag `default:"..."` cho các field đang zero
func ApplyInsertDefaults(ptr interface{}) {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return
	}
	struc := v.Elem()
	rt := struc.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		defaultStr, ok := f.Tag.Lookup("default")
		if !ok {
			continue
		}
		fieldVal := struc.Field(i)
		if !fieldVal.CanSet() || !fieldVal.IsZero() {
			continue
		}
		if val := parseDefaultValue(defaultStr, f.Type); val != nil {
			fieldVal.Set(reflect.ValueOf(val).Convert(f.Type))
		}
	}
}

// defaultsForType trả map[bsonKey]default của model
func defaultsForType(rt reflect.Type) map[string]interface{} {
	if rt == nil {
		return nil
	}
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil
	}
	out := make(map[string]interface{})
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		defaultStr, ok := f.Tag.Lookup("default")
		if !ok {
			continue
		}
		bsonKey := strings.TrimSpace(strings.Split(f.Tag.Get("bson"), ",")[0])
		if bsonKey == "" || bsonKey == "-" {
			continue
		}
		if val := parseDefaultValue(defaultStr, f.Type); val != nil {
			out[bsonKey] = val
		}
	}
	return out
}

// parseDefaultValue chuyển chuỗi default sang đúng kiểu (bool, int, float, string)
func parseDefaultValue(s string, t reflect.Type) interface{} {
	switch t.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil
		}
		return b
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil
		}
		return reflect.ValueOf(n).Convert(t).Interface()
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return reflect.ValueOf(n).Convert(t).Interface()
	case reflect.String:
		return reflect.ValueOf(s).Convert(t).Interface()
	default:
		return nil
	}
}
