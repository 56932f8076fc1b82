package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// AccountGroup là nhóm tài khoản cùng platform, gắn với một formula theo id
// Collection: posting_account_groups
type AccountGroup struct {
	ID         primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	Name       string              `json:"name" bson:"name" index:"single:1"`
	Platform   string              `json:"platform" bson:"platform" index:"single:1"`
	Priority   int                 `json:"priority" bson:"priority" default:"3"` // 1..5
	Weight     float64             `json:"weight" bson:"weight" default:"1"`
	FormulaID  *primitive.ObjectID `json:"formulaId,omitempty" bson:"formulaId,omitempty"`
	Timezone   string              `json:"timezone,omitempty" bson:"timezone,omitempty"` // IANA, rỗng = APP_TIMEZONE
	TotalPosts int64               `json:"totalPosts" bson:"totalPosts"`
	LastPostAt int64               `json:"lastPostAt,omitempty" bson:"lastPostAt,omitempty"`
	CreatedAt  int64               `json:"createdAt" bson:"createdAt"`
	UpdatedAt  int64               `json:"updatedAt" bson:"updatedAt"`
}

// GroupAccount liên kết account với group, kèm override riêng
// Collection: posting_group_accounts
type GroupAccount struct {
	ID               primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	GroupID          primitive.ObjectID `json:"groupId" bson:"groupId" index:"compound:group_account_unique"`
	AccountID        primitive.ObjectID `json:"accountId" bson:"accountId" index:"single:1;compound:group_account_unique"`
	Weight           float64            `json:"weight,omitempty" bson:"weight,omitempty"`                     // 0 = 1
	DailyCapOverride int                `json:"dailyCapOverride,omitempty" bson:"dailyCapOverride,omitempty"` // 0 = theo formula
	CooldownMinutes  int                `json:"cooldownMinutes,omitempty" bson:"cooldownMinutes,omitempty"`   // 0 = theo formula
	IsActive         bool               `json:"isActive" bson:"isActive" default:"true"`
	CreatedAt        int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt        int64              `json:"updatedAt" bson:"updatedAt"`
}

// EffectiveWeight = group weight × account weight, giá trị <= 0 coi như 1
func EffectiveWeight(group AccountGroup, link GroupAccount) float64 {
	gw, aw := group.Weight, link.Weight
	if gw <= 0 {
		gw = 1
	}
	if aw <= 0 {
		aw = 1
	}
	return gw * aw
}
