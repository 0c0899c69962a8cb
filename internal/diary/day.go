package diary

import (
	"strconv"
	"strings"
	"time"

	"kakaocal/internal/model"
)

// DefaultCutoffHour attributes 00:00-03:59 to the previous day.
const DefaultCutoffHour = 4

const dayLayout = "01/02/2006"

// Day returns the MM/DD/YYYY diary label for ts. When the wall-clock hour
// of ts is below cutoffHour the label is the previous calendar date.
func Day(ts time.Time, cutoffHour int) string {
	if ts.Hour() < cutoffHour {
		ts = ts.AddDate(0, 0, -1)
	}
	return FormatDate(ts)
}

// FormatDate renders the wall-clock date of ts as MM/DD/YYYY.
func FormatDate(ts time.Time) string {
	return ts.Format(dayLayout)
}

// Assign sets DiaryDay on every message in place.
func Assign(msgs []model.Message, cutoffHour int) {
	for i := range msgs {
		msgs[i].DiaryDay = Day(msgs[i].Timestamp, cutoffHour)
	}
}

// ParseDay turns a MM/DD/YYYY label back into midnight of that date in loc.
// Labels that do not parse fall back to today in loc.
func ParseDay(label string, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}

	parts := strings.Split(label, "/")
	if len(parts) == 3 {
		month, errM := strconv.Atoi(parts[0])
		day, errD := strconv.Atoi(parts[1])
		year, errY := strconv.Atoi(parts[2])
		if errM == nil && errD == nil && errY == nil {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
		}
	}

	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
}
