package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// SocialAccount là bản ghi account directory mà engine đọc và cập nhật lastPostAt
// Collection: posting_social_accounts
type SocialAccount struct {
	ID               primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Platform         string             `json:"platform" bson:"platform" index:"single:1"`
	Name             string             `json:"name" bson:"name"`
	PreferredTags    []string           `json:"preferredTags,omitempty" bson:"preferredTags,omitempty"`
	ExcludedTags     []string           `json:"excludedTags,omitempty" bson:"excludedTags,omitempty"`
	PerformanceScore float64            `json:"performanceScore" bson:"performanceScore"`
	LastPostAt       int64              `json:"lastPostAt,omitempty" bson:"lastPostAt,omitempty"`
	Status           string             `json:"status" bson:"status" default:"active"`
	CreatedAt        int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt        int64              `json:"updatedAt" bson:"updatedAt"`
}

// ContentItem là nội dung ứng viên từ content source
// Collection: posting_content_items
type ContentItem struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Platform  string             `json:"platform,omitempty" bson:"platform,omitempty" index:"single:1"` // rỗng = mọi platform
	Title     string             `json:"title,omitempty" bson:"title,omitempty"`
	Tags      []string           `json:"tags" bson:"tags"`
	MediaRefs []string           `json:"mediaRefs,omitempty" bson:"mediaRefs,omitempty"`
	Status    string             `json:"status" bson:"status" default:"ready"`
	CreatedAt int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64              `json:"updatedAt" bson:"updatedAt"`
}
