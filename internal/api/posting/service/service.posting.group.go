package postingsvc

import (
	"context"

	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupService quản lý account group, liên kết account và dữ liệu directory (account, content)
type GroupService struct {
	d        *deps
	formulas *FormulaService
}

// CreateGroup tạo group; formulaId (nếu có) phải tồn tại
func (s *GroupService) CreateGroup(ctx context.Context, g models.AccountGroup) (models.AccountGroup, error) {
	if g.Name == "" || g.Platform == "" {
		return models.AccountGroup{}, common.WithDetails(common.ErrInvalidInput, "name and platform are required")
	}
	if g.FormulaID != nil {
		if _, err := s.formulas.Get(ctx, *g.FormulaID); err != nil {
			return models.AccountGroup{}, err
		}
	}
	g.ID = primitive.NilObjectID
	g.TotalPosts, g.LastPostAt = 0, 0
	return s.d.store.Groups.Insert(ctx, g)
}

// GetGroup lấy group theo id
func (s *GroupService) GetGroup(ctx context.Context, id primitive.ObjectID) (models.AccountGroup, error) {
	return s.d.store.Groups.FindByID(ctx, id)
}

// SetFormula gán (hoặc bỏ gán khi nil) formula cho group
func (s *GroupService) SetFormula(ctx context.Context, groupID primitive.ObjectID, formulaID *primitive.ObjectID) (models.AccountGroup, error) {
	if formulaID != nil {
		if _, err := s.formulas.Get(ctx, *formulaID); err != nil {
			return models.AccountGroup{}, err
		}
	}
	if err := s.d.store.Groups.SetFormula(ctx, groupID, formulaID); err != nil {
		return models.AccountGroup{}, err
	}
	return s.d.store.Groups.FindByID(ctx, groupID)
}

// AddAccount thêm account vào group; account phải cùng platform, cặp trùng trả ErrDuplicate
func (s *GroupService) AddAccount(ctx context.Context, link models.GroupAccount) (models.GroupAccount, error) {
	group, err := s.d.store.Groups.FindByID(ctx, link.GroupID)
	if err != nil {
		return models.GroupAccount{}, err
	}
	account, err := s.d.store.Accounts.FindByID(ctx, link.AccountID)
	if err != nil {
		return models.GroupAccount{}, err
	}
	if account.Platform != group.Platform {
		return models.GroupAccount{}, common.WithDetails(common.ErrInvalidInput, map[string]interface{}{
			"reason": "account platform does not match group platform", "accountPlatform": account.Platform, "groupPlatform": group.Platform,
		})
	}
	link.ID = primitive.NilObjectID
	return s.d.store.GroupAccounts.Insert(ctx, link)
}

// Membership trả về liên kết đầu tiên đang active của account, ErrNotFound nếu account chưa thuộc group nào
func (s *GroupService) Membership(ctx context.Context, accountID primitive.ObjectID) (models.GroupAccount, models.AccountGroup, error) {
	links, err := s.d.store.GroupAccounts.ListByAccount(ctx, accountID)
	if err != nil {
		return models.GroupAccount{}, models.AccountGroup{}, err
	}
	if len(links) == 0 {
		return models.GroupAccount{}, models.AccountGroup{}, common.ErrNotFound
	}
	group, err := s.d.store.Groups.FindByID(ctx, links[0].GroupID)
	if err != nil {
		return models.GroupAccount{}, models.AccountGroup{}, err
	}
	return links[0], group, nil
}

// RegisterAccount thêm account vào account directory
func (s *GroupService) RegisterAccount(ctx context.Context, a models.SocialAccount) (models.SocialAccount, error) {
	if a.Platform == "" {
		return models.SocialAccount{}, common.WithDetails(common.ErrInvalidInput, "platform is required")
	}
	a.ID = primitive.NilObjectID
	a.LastPostAt = 0
	return s.d.store.Accounts.Insert(ctx, a)
}

// AddContent thêm content vào content source
func (s *GroupService) AddContent(ctx context.Context, c models.ContentItem) (models.ContentItem, error) {
	c.ID = primitive.NilObjectID
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return s.d.store.Contents.Insert(ctx, c)
}
