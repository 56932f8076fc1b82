// Package postingdto chứa input của các endpoint posting và worker.
package postingdto

import (
	"time"

	"meta_posting/internal/api/posting/models"
	postingsvc "meta_posting/internal/api/posting/service"
	"meta_posting/internal/common"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanBatchInput là input của POST /posting/plan
type PlanBatchInput struct {
	Platform       string   `json:"platform" validate:"required,alphanum"`
	Action         string   `json:"action,omitempty" validate:"omitempty,alphanum"`
	PostCount      int      `json:"postCount" validate:"required,min=1,max=1000"`
	AccountPoolIDs []string `json:"accountPoolIds" validate:"required,min=1,dive,hexadecimal,len=24"`
	StartDate      string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate        string   `json:"endDate" validate:"required,datetime=2006-01-02"`
	ContentIDs     []string `json:"contentIds,omitempty" validate:"omitempty,dive,hexadecimal,len=24"`
}

// ToRequest chuyển input sang PlanRequest
func (in PlanBatchInput) ToRequest() (postingsvc.PlanRequest, error) {
	pool, err := ObjectIDs("accountPoolIds", in.AccountPoolIDs)
	if err != nil {
		return postingsvc.PlanRequest{}, err
	}
	contents, err := ObjectIDs("contentIds", in.ContentIDs)
	if err != nil {
		return postingsvc.PlanRequest{}, err
	}
	return postingsvc.PlanRequest{
		Platform:       in.Platform,
		Action:         in.Action,
		PostCount:      in.PostCount,
		AccountPoolIDs: pool,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		ContentIDs:     contents,
	}, nil
}

// AdmitInput là input của POST /posting/admit; when = 0 nghĩa là ngay bây giờ
type AdmitInput struct {
	AccountID string `json:"accountId" validate:"required,hexadecimal,len=24"`
	GroupID   string `json:"groupId" validate:"required,hexadecimal,len=24"`
	Action    string `json:"action,omitempty" validate:"omitempty,alphanum"`
	When      int64  `json:"when,omitempty" validate:"gte=0"` // unix ms
}

// ToCandidate chuyển input sang Candidate, now dùng khi when = 0
func (in AdmitInput) ToCandidate(now time.Time) (postingsvc.Candidate, error) {
	accountID, err := ObjectID("accountId", in.AccountID)
	if err != nil {
		return postingsvc.Candidate{}, err
	}
	groupID, err := ObjectID("groupId", in.GroupID)
	if err != nil {
		return postingsvc.Candidate{}, err
	}
	when := now
	if in.When > 0 {
		when = time.UnixMilli(in.When)
	}
	action := in.Action
	if action == "" {
		action = models.ActionPost
	}
	return postingsvc.Candidate{AccountID: accountID, GroupID: groupID, Action: action, When: when}, nil
}

// ObjectID parse một id hex, sai định dạng trả ErrInvalidFormat kèm field
func ObjectID(field, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, common.WithDetails(common.ErrInvalidFormat, map[string]interface{}{field: hex})
	}
	return id, nil
}

// ObjectIDs parse danh sách id hex
func ObjectIDs(field string, hexes []string) ([]primitive.ObjectID, error) {
	if len(hexes) == 0 {
		return nil, nil
	}
	out := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := ObjectID(field, h)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
