package postingdto

import (
	"meta_posting/internal/api/posting/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupCreateInput là input của POST /posting/groups
type GroupCreateInput struct {
	Name      string  `json:"name" validate:"required,max=200,no_xss"`
	Platform  string  `json:"platform" validate:"required,alphanum"`
	Priority  int     `json:"priority,omitempty" validate:"omitempty,min=1,max=5"`
	Weight    float64 `json:"weight,omitempty" validate:"gte=0"`
	FormulaID string  `json:"formulaId,omitempty" validate:"omitempty,hexadecimal,len=24"`
	Timezone  string  `json:"timezone,omitempty" validate:"timezone"`
}

// ToModel chuyển input sang AccountGroup
func (in GroupCreateInput) ToModel() (models.AccountGroup, error) {
	g := models.AccountGroup{
		Name:     in.Name,
		Platform: in.Platform,
		Priority: in.Priority,
		Weight:   in.Weight,
		Timezone: in.Timezone,
	}
	if in.FormulaID != "" {
		id, err := ObjectID("formulaId", in.FormulaID)
		if err != nil {
			return models.AccountGroup{}, err
		}
		g.FormulaID = &id
	}
	return g, nil
}

// GroupFormulaInput là input của PUT /posting/groups/:id/formula, formulaId rỗng = bỏ gán
type GroupFormulaInput struct {
	FormulaID string `json:"formulaId,omitempty" validate:"omitempty,hexadecimal,len=24"`
}

// GroupAccountInput là input của POST /posting/groups/:id/accounts
type GroupAccountInput struct {
	AccountID        string  `json:"accountId" validate:"required,hexadecimal,len=24"`
	Weight           float64 `json:"weight,omitempty" validate:"gte=0"`
	DailyCapOverride int     `json:"dailyCapOverride,omitempty" validate:"gte=0"`
	CooldownMinutes  int     `json:"cooldownMinutes,omitempty" validate:"gte=0"`
	IsActive         *bool   `json:"isActive,omitempty"`
}

// ToModel chuyển input sang GroupAccount của groupID; isActive mặc định true
func (in GroupAccountInput) ToModel(groupID primitive.ObjectID) (models.GroupAccount, error) {
	accountID, err := ObjectID("accountId", in.AccountID)
	if err != nil {
		return models.GroupAccount{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return models.GroupAccount{
		GroupID:          groupID,
		AccountID:        accountID,
		Weight:           in.Weight,
		DailyCapOverride: in.DailyCapOverride,
		CooldownMinutes:  in.CooldownMinutes,
		IsActive:         active,
	}, nil
}

// AccountInput là input của POST /posting/accounts (ghi vào account directory)
type AccountInput struct {
	Platform         string   `json:"platform" validate:"required,alphanum"`
	Name             string   `json:"name" validate:"required,max=200,no_xss"`
	PreferredTags    []string `json:"preferredTags,omitempty"`
	ExcludedTags     []string `json:"excludedTags,omitempty"`
	PerformanceScore float64  `json:"performanceScore,omitempty" validate:"gte=0"`
	Status           string   `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// ToModel chuyển input sang SocialAccount
func (in AccountInput) ToModel() models.SocialAccount {
	return models.SocialAccount{
		Platform:         in.Platform,
		Name:             in.Name,
		PreferredTags:    in.PreferredTags,
		ExcludedTags:     in.ExcludedTags,
		PerformanceScore: in.PerformanceScore,
		Status:           in.Status,
	}
}

// ContentInput là input của POST /posting/contents (ghi vào content source)
type ContentInput struct {
	Platform  string   `json:"platform,omitempty" validate:"omitempty,alphanum"`
	Title     string   `json:"title,omitempty" validate:"max=500,no_xss"`
	Tags      []string `json:"tags,omitempty"`
	MediaRefs []string `json:"mediaRefs,omitempty" validate:"omitempty,dive,url"`
}

// ToModel chuyển input sang ContentItem
func (in ContentInput) ToModel() models.ContentItem {
	return models.ContentItem{
		Platform:  in.Platform,
		Title:     in.Title,
		Tags:      in.Tags,
		MediaRefs: in.MediaRefs,
	}
}
