package postingsvc

import (
	"testing"
	"time"

	"meta_posting/internal/api/posting/models"

	"github.com/stretchr/testify/assert"
)

func TestWindowBounds(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Skip("tzdata không có sẵn")
	}
	// Thứ Tư 2025-03-12 15:42 giờ VN
	at := time.Date(2025, 3, 12, 15, 42, 10, 0, loc)

	cases := []struct {
		w          models.Window
		start, end time.Time
	}{
		{models.WindowHour, time.Date(2025, 3, 12, 15, 0, 0, 0, loc), time.Date(2025, 3, 12, 16, 0, 0, 0, loc)},
		{models.WindowDay, time.Date(2025, 3, 12, 0, 0, 0, 0, loc), time.Date(2025, 3, 13, 0, 0, 0, 0, loc)},
		{models.WindowWeek, time.Date(2025, 3, 10, 0, 0, 0, 0, loc), time.Date(2025, 3, 17, 0, 0, 0, 0, loc)},
		{models.WindowMonth, time.Date(2025, 3, 1, 0, 0, 0, 0, loc), time.Date(2025, 4, 1, 0, 0, 0, 0, loc)},
		{models.WindowYear, time.Date(2025, 1, 1, 0, 0, 0, 0, loc), time.Date(2026, 1, 1, 0, 0, 0, 0, loc)},
	}
	for _, tc := range cases {
		t.Run(string(tc.w), func(t *testing.T) {
			start, end := WindowBounds(tc.w, at, loc)
			assert.Equal(t, tc.start.UnixMilli(), start)
			assert.Equal(t, tc.end.UnixMilli(), end)
		})
	}
}

func TestWeekWindowOnSundayStartsPreviousMonday(t *testing.T) {
	at := time.Date(2025, 3, 16, 23, 0, 0, 0, time.UTC) // Chủ nhật
	start, _ := WindowBounds(models.WindowWeek, at, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC).UnixMilli(), start)
}

func TestInQuietHoursWrapsMidnight(t *testing.T) {
	ranges := []models.TimeRange{{Start: "22:00", End: "06:00"}}
	day := func(h, m int) time.Time { return time.Date(2025, 1, 1, h, m, 0, 0, time.UTC) }

	assert.True(t, inQuietHours(ranges, day(23, 30)))
	assert.True(t, inQuietHours(ranges, day(5, 59)))
	assert.False(t, inQuietHours(ranges, day(6, 0)))
	assert.False(t, inQuietHours(ranges, day(12, 0)))

	assert.True(t, inQuietHours([]models.TimeRange{{Start: "12:00", End: "13:00"}}, day(12, 30)))
}

func TestAllowedDay(t *testing.T) {
	sunday := time.Date(2025, 3, 16, 10, 0, 0, 0, time.UTC)
	assert.True(t, allowedDay(nil, sunday))
	assert.True(t, allowedDay([]int{0, 6}, sunday))
	assert.False(t, allowedDay([]int{1, 2, 3, 4, 5}, sunday))
}
