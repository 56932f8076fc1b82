package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// DistributionMode
const (
	DistributionEven        = "even"
	DistributionWeighted    = "weighted"
	DistributionPerformance = "performance"
)

// ResumePolicy
const (
	ResumeAuto   = "auto"
	ResumeManual = "manual"
)

// Caps là giới hạn theo cửa sổ, 0 = không giới hạn
type Caps struct {
	PerHour  int `json:"perHour,omitempty" bson:"perHour,omitempty" yaml:"perHour" validate:"gte=0"`
	PerDay   int `json:"perDay,omitempty" bson:"perDay,omitempty" yaml:"perDay" validate:"gte=0"`
	PerWeek  int `json:"perWeek,omitempty" bson:"perWeek,omitempty" yaml:"perWeek" validate:"gte=0"`
	PerMonth int `json:"perMonth,omitempty" bson:"perMonth,omitempty" yaml:"perMonth" validate:"gte=0"`
	PerYear  int `json:"perYear,omitempty" bson:"perYear,omitempty" yaml:"perYear" validate:"gte=0"`
}

// For trả về cap của một cửa sổ
func (c Caps) For(w Window) int {
	switch w {
	case WindowHour:
		return c.PerHour
	case WindowDay:
		return c.PerDay
	case WindowWeek:
		return c.PerWeek
	case WindowMonth:
		return c.PerMonth
	case WindowYear:
		return c.PerYear
	}
	return 0
}

// IsZero true nếu không có cửa sổ nào bị giới hạn
func (c Caps) IsZero() bool {
	return c == Caps{}
}

// TimeRange là khoảng giờ "HH:MM" theo giờ địa phương, end < start nghĩa là qua nửa đêm
type TimeRange struct {
	Start string `json:"start" bson:"start" yaml:"start" validate:"required,hhmm"`
	End   string `json:"end" bson:"end" yaml:"end" validate:"required,hhmm"`
}

// PeakSlot là khung giờ đăng ưu tiên trong ngày
type PeakSlot struct {
	Hour   int     `json:"hour" bson:"hour" yaml:"hour" validate:"gte=0,lte=23"`
	Minute int     `json:"minute" bson:"minute" yaml:"minute" validate:"gte=0,lte=59"`
	Weight float64 `json:"weight,omitempty" bson:"weight,omitempty" yaml:"weight"`
}

// DefaultPeakSlots dùng khi formula không khai báo peakSlots
var DefaultPeakSlots = []PeakSlot{{Hour: 9}, {Hour: 14}, {Hour: 21}}

// RestStrategy cấu hình nghỉ khi usage ngày chạm ngưỡng
type RestStrategy struct {
	Threshold         float64 `json:"threshold" bson:"threshold" yaml:"threshold" validate:"gte=0,lte=1"` // 0 = tắt
	RestDurationHours float64 `json:"restDurationHours" bson:"restDurationHours" yaml:"restDurationHours" validate:"gte=0"`
	ResumePolicy      string  `json:"resumePolicy" bson:"resumePolicy" yaml:"resumePolicy" validate:"omitempty,oneof=auto manual"`
}

// Enabled true nếu strategy có hiệu lực
func (r RestStrategy) Enabled() bool {
	return r.Threshold > 0 && r.RestDurationHours > 0
}

// PostingFormula là bộ quy tắc đăng bài dùng chung cho nhiều group.
// Counter đã tạo giữ nguyên limit khi formula bị sửa.
// Collection: posting_formulas
type PostingFormula struct {
	ID               primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty" yaml:"-"`
	Name             string             `json:"name" bson:"name" yaml:"name" index:"unique" validate:"required,max=100,no_xss"`
	Caps             Caps               `json:"caps" bson:"caps" yaml:"caps"`
	GroupCaps        Caps               `json:"groupCaps,omitempty" bson:"groupCaps,omitempty" yaml:"groupCaps"` // quota tổng của group
	MinGapMinutes    int                `json:"minGapMinutes" bson:"minGapMinutes" yaml:"minGapMinutes" validate:"gte=0"`
	MaxPerHour       int                `json:"maxPerHour,omitempty" bson:"maxPerHour,omitempty" yaml:"maxPerHour" validate:"gte=0"`
	QuietHours       []TimeRange        `json:"quietHours,omitempty" bson:"quietHours,omitempty" yaml:"quietHours" validate:"dive"`
	AllowedDays      []int              `json:"allowedDays,omitempty" bson:"allowedDays,omitempty" yaml:"allowedDays" validate:"dive,gte=0,lte=6"`
	PeakSlots        []PeakSlot         `json:"peakSlots,omitempty" bson:"peakSlots,omitempty" yaml:"peakSlots" validate:"dive"`
	JitterSeconds    int                `json:"jitterSeconds,omitempty" bson:"jitterSeconds,omitempty" yaml:"jitterSeconds" validate:"gte=0"`
	DistributionMode string             `json:"distributionMode" bson:"distributionMode" yaml:"distributionMode" validate:"omitempty,oneof=even weighted performance"`
	BackoffOnFail    bool               `json:"backoffOnFail" bson:"backoffOnFail" yaml:"backoffOnFail"`
	RestStrategy     RestStrategy       `json:"restStrategy" bson:"restStrategy" yaml:"restStrategy"`
	IsSystemDefault  bool               `json:"isSystemDefault" bson:"isSystemDefault" yaml:"isSystemDefault" index:"single:1"`
	CreatedAt        int64              `json:"createdAt" bson:"createdAt" yaml:"-"`
	UpdatedAt        int64              `json:"updatedAt" bson:"updatedAt" yaml:"-"`
}

// AccountCaps là caps áp cho scope account: maxPerHour siết cap giờ, dailyCapOverride siết cap ngày
func (f PostingFormula) AccountCaps(dailyCapOverride int) Caps {
	caps := f.Caps
	caps.PerHour = minPositive(caps.PerHour, f.MaxPerHour)
	caps.PerDay = minPositive(caps.PerDay, dailyCapOverride)
	return caps
}

// Mode trả về distribution mode, mặc định even
func (f PostingFormula) Mode() string {
	if f.DistributionMode == "" {
		return DistributionEven
	}
	return f.DistributionMode
}

// Slots trả về peak slots, mặc định 09:00, 14:00, 21:00
func (f PostingFormula) Slots() []PeakSlot {
	if len(f.PeakSlots) == 0 {
		return DefaultPeakSlots
	}
	return f.PeakSlots
}

// minPositive trả về giá trị nhỏ nhất trong các giá trị > 0, 0 nếu không có
func minPositive(a, b int) int {
	switch {
	case a <= 0:
		return b
	case b <= 0:
		return a
	case a < b:
		return a
	default:
		return b
	}
}

// FallbackFormula là formula bảo thủ dùng khi group không có formula và chưa seed preset
func FallbackFormula() PostingFormula {
	return PostingFormula{
		Name:             "fallback-default",
		Caps:             Caps{PerHour: 2, PerDay: 10, PerWeek: 50, PerMonth: 200, PerYear: 2000},
		MinGapMinutes:    30,
		DistributionMode: DistributionEven,
		BackoffOnFail:    true,
		RestStrategy:     RestStrategy{ResumePolicy: ResumeAuto},
		IsSystemDefault:  true,
	}
}
