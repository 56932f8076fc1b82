package postingdto

import "meta_posting/internal/api/posting/models"

// FormulaInput là input tạo / sửa formula qua API; isSystemDefault chỉ đặt được qua preset
type FormulaInput struct {
	Name             string              `json:"name" validate:"required,max=100,no_xss"`
	Caps             models.Caps         `json:"caps"`
	GroupCaps        models.Caps         `json:"groupCaps,omitempty"`
	MinGapMinutes    int                 `json:"minGapMinutes" validate:"gte=0"`
	MaxPerHour       int                 `json:"maxPerHour,omitempty" validate:"gte=0"`
	QuietHours       []models.TimeRange  `json:"quietHours,omitempty" validate:"dive"`
	AllowedDays      []int               `json:"allowedDays,omitempty" validate:"dive,gte=0,lte=6"`
	PeakSlots        []models.PeakSlot   `json:"peakSlots,omitempty" validate:"dive"`
	JitterSeconds    int                 `json:"jitterSeconds,omitempty" validate:"gte=0"`
	DistributionMode string              `json:"distributionMode,omitempty" validate:"omitempty,oneof=even weighted performance"`
	BackoffOnFail    *bool               `json:"backoffOnFail,omitempty"`
	RestStrategy     models.RestStrategy `json:"restStrategy"`
}

// ToModel chuyển input sang PostingFormula; backoffOnFail mặc định true
func (in FormulaInput) ToModel() models.PostingFormula {
	backoff := true
	if in.BackoffOnFail != nil {
		backoff = *in.BackoffOnFail
	}
	return models.PostingFormula{
		Name:             in.Name,
		Caps:             in.Caps,
		GroupCaps:        in.GroupCaps,
		MinGapMinutes:    in.MinGapMinutes,
		MaxPerHour:       in.MaxPerHour,
		QuietHours:       in.QuietHours,
		AllowedDays:      in.AllowedDays,
		PeakSlots:        in.PeakSlots,
		JitterSeconds:    in.JitterSeconds,
		DistributionMode: in.DistributionMode,
		BackoffOnFail:    backoff,
		RestStrategy:     in.RestStrategy,
	}
}
