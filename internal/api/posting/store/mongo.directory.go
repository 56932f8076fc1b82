package postingstore

import (
	"context"
	"errors"
	"time"

	basesvc "meta_posting/internal/api/base/service"
	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ===== Formulas =====

type mongoFormulas struct {
	base *basesvc.BaseServiceMongoImpl[models.PostingFormula]
}

func (m *mongoFormulas) Insert(ctx context.Context, f models.PostingFormula) (models.PostingFormula, error) {
	return m.base.InsertOne(ctx, f)
}

func (m *mongoFormulas) FindByID(ctx context.Context, id primitive.ObjectID) (models.PostingFormula, error) {
	return m.base.FindOne(ctx, bson.M{"_id": id}, nil)
}

func (m *mongoFormulas) FindByName(ctx context.Context, name string) (models.PostingFormula, error) {
	return m.base.FindOne(ctx, bson.M{"name": name}, nil)
}

func (m *mongoFormulas) FindSystemDefault(ctx context.Context) (models.PostingFormula, error) {
	return m.base.FindOne(ctx, bson.M{"isSystemDefault": true},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (m *mongoFormulas) Replace(ctx context.Context, f models.PostingFormula) (models.PostingFormula, error) {
	current, err := m.FindByID(ctx, f.ID)
	if err != nil {
		return models.PostingFormula{}, err
	}
	f.CreatedAt = current.CreatedAt
	f.UpdatedAt = time.Now().UnixMilli()
	var replaced models.PostingFormula
	err = m.base.Collection().FindOneAndReplace(ctx, bson.M{"_id": f.ID}, f,
		options.FindOneAndReplace().SetReturnDocument(options.After)).Decode(&replaced)
	if err != nil {
		return models.PostingFormula{}, common.ConvertMongoError(err)
	}
	return replaced, nil
}

func (m *mongoFormulas) Delete(ctx context.Context, id primitive.ObjectID) error {
	return m.base.DeleteOne(ctx, bson.M{"_id": id})
}

func (m *mongoFormulas) List(ctx context.Context) ([]models.PostingFormula, error) {
	return m.base.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// ===== Groups =====

type mongoGroups struct {
	base *basesvc.BaseServiceMongoImpl[models.AccountGroup]
}

func (m *mongoGroups) Insert(ctx context.Context, g models.AccountGroup) (models.AccountGroup, error) {
	return m.base.InsertOne(ctx, g)
}

func (m *mongoGroups) FindByID(ctx context.Context, id primitive.ObjectID) (models.AccountGroup, error) {
	return m.base.FindOne(ctx, bson.M{"_id": id}, nil)
}

func (m *mongoGroups) SetFormula(ctx context.Context, id primitive.ObjectID, formulaID *primitive.ObjectID) error {
	update := basesvc.UpdateData{}
	if formulaID == nil {
		update.Unset = map[string]interface{}{"formulaId": ""}
	} else {
		update.Set = map[string]interface{}{"formulaId": *formulaID}
	}
	_, err := m.base.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, nil)
	return err
}

func (m *mongoGroups) RecordPost(ctx context.Context, id primitive.ObjectID, at int64) error {
	_, err := m.base.FindOneAndUpdate(ctx, bson.M{"_id": id}, basesvc.UpdateData{
		Inc: map[string]interface{}{"totalPosts": 1},
		Max: map[string]interface{}{"lastPostAt": at},
	}, nil)
	return err
}

// ===== Group accounts =====

type mongoGroupAccounts struct {
	base *basesvc.BaseServiceMongoImpl[models.GroupAccount]
}

func (m *mongoGroupAccounts) Insert(ctx context.Context, ga models.GroupAccount) (models.GroupAccount, error) {
	created, err := m.base.InsertOne(ctx, ga)
	if errors.Is(err, common.ErrDuplicate) {
		return models.GroupAccount{}, common.WithDetails(common.ErrDuplicate, map[string]interface{}{
			"groupId": ga.GroupID.Hex(), "accountId": ga.AccountID.Hex(),
		})
	}
	return created, err
}

func (m *mongoGroupAccounts) Find(ctx context.Context, groupID, accountID primitive.ObjectID) (models.GroupAccount, error) {
	return m.base.FindOne(ctx, bson.M{"groupId": groupID, "accountId": accountID}, nil)
}

func (m *mongoGroupAccounts) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupAccount, error) {
	return m.base.Find(ctx, bson.M{"groupId": groupID, "isActive": true},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (m *mongoGroupAccounts) ListByAccount(ctx context.Context, accountID primitive.ObjectID) ([]models.GroupAccount, error) {
	return m.base.Find(ctx, bson.M{"accountId": accountID, "isActive": true},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// ===== Accounts =====

type mongoAccounts struct {
	base *basesvc.BaseServiceMongoImpl[models.SocialAccount]
}

func (m *mongoAccounts) Insert(ctx context.Context, a models.SocialAccount) (models.SocialAccount, error) {
	return m.base.InsertOne(ctx, a)
}

func (m *mongoAccounts) FindByID(ctx context.Context, id primitive.ObjectID) (models.SocialAccount, error) {
	return m.base.FindOne(ctx, bson.M{"_id": id}, nil)
}

// FindByIDs giữ thứ tự của ids, bỏ qua id không tồn tại
func (m *mongoAccounts) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.SocialAccount, error) {
	found, err := m.base.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.SocialAccount, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}
	out := make([]models.SocialAccount, 0, len(ids))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mongoAccounts) TouchLastPost(ctx context.Context, id primitive.ObjectID, at, minGapMs int64) (bool, error) {
	filter := bson.M{"_id": id}
	if minGapMs > 0 {
		filter["$or"] = bson.A{
			bson.M{"lastPostAt": bson.M{"$exists": false}},
			bson.M{"lastPostAt": 0},
			bson.M{"lastPostAt": bson.M{"$lte": at - minGapMs}},
			bson.M{"lastPostAt": bson.M{"$gte": at + minGapMs}},
		}
	}
	_, err := m.base.FindOneAndUpdate(ctx, filter, basesvc.UpdateData{
		Max: map[string]interface{}{"lastPostAt": at},
	}, nil)
	if errors.Is(err, common.ErrNotFound) {
		ok, existErr := exists(ctx, m.base, bson.M{"_id": id})
		if existErr != nil {
			return false, existErr
		}
		if !ok {
			return false, common.ErrNotFound
		}
		return false, nil
	}
	return err == nil, err
}

// ===== Contents =====

type mongoContents struct {
	base *basesvc.BaseServiceMongoImpl[models.ContentItem]
}

func (m *mongoContents) Insert(ctx context.Context, c models.ContentItem) (models.ContentItem, error) {
	return m.base.InsertOne(ctx, c)
}

func (m *mongoContents) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.ContentItem, error) {
	found, err := m.base.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.ContentItem, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	out := make([]models.ContentItem, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mongoContents) ListReady(ctx context.Context, platform string, limit int64) ([]models.ContentItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return m.base.Find(ctx, bson.M{
		"status": "ready",
		"$or": bson.A{
			bson.M{"platform": platform},
			bson.M{"platform": bson.M{"$in": bson.A{nil, ""}}},
		},
	}, opts)
}

// ===== Scheduled posts =====

type mongoScheduledPosts struct {
	base *basesvc.BaseServiceMongoImpl[models.ScheduledPost]
}

func (m *mongoScheduledPosts) Insert(ctx context.Context, p models.ScheduledPost) (models.ScheduledPost, error) {
	return m.base.InsertOne(ctx, p)
}

func (m *mongoScheduledPosts) FindByID(ctx context.Context, id primitive.ObjectID) (models.ScheduledPost, error) {
	return m.base.FindOne(ctx, bson.M{"_id": id}, nil)
}
