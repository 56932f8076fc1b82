package postingsvc

import (
	"time"

	"meta_posting/internal/api/posting/models"
)

// WindowBounds trả về [start, end) (unix milli) của cửa sổ chứa at, tính theo giờ địa phương loc.
// hour: đầu giờ; day: nửa đêm; week: thứ Hai 00:00; month: ngày 1; year: 1/1.
func WindowBounds(w models.Window, at time.Time, loc *time.Location) (int64, int64) {
	t := at.In(loc)
	var start, end time.Time
	switch w {
	case models.WindowHour:
		start = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
		end = start.Add(time.Hour)
	case models.WindowDay:
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 1)
	case models.WindowWeek:
		offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
		start = time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 7)
	case models.WindowMonth:
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
	default:
		start = time.Date(t.Year(), 1, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(1, 0, 0)
	}
	return start.UnixMilli(), end.UnixMilli()
}

// loadLocation trả về timezone theo tên, rơi về fallback khi tên rỗng hoặc sai
func loadLocation(name string, fallback *time.Location) *time.Location {
	if name == "" {
		return fallback
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallback
	}
	return loc
}

// minutesOfDay đổi "HH:MM" thành số phút trong ngày, -1 nếu sai định dạng
func minutesOfDay(hhmm string) int {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return -1
	}
	return t.Hour()*60 + t.Minute()
}

// inQuietHours kiểm tra thời điểm địa phương t có rơi vào một khoảng quiet hour không.
// end < start nghĩa là khoảng đi qua nửa đêm.
func inQuietHours(ranges []models.TimeRange, t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	for _, r := range ranges {
		start, end := minutesOfDay(r.Start), minutesOfDay(r.End)
		if start < 0 || end < 0 || start == end {
			continue
		}
		if start < end {
			if m >= start && m < end {
				return true
			}
			continue
		}
		if m >= start || m < end {
			return true
		}
	}
	return false
}

// allowedDay true khi allowedDays rỗng hoặc chứa weekday của t (0 = Chủ nhật)
func allowedDay(days []int, t time.Time) bool {
	if len(days) == 0 {
		return true
	}
	wd := int(t.Weekday())
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}
