package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateTimeLayout is the due date format used in messages and audit entries
const DateTimeLayout = "2006-01-02 15:04:05"

// WillExpireAt returns the moment a pending booking stops being offered to
// translators. The closer the booking is to its due time, the shorter the
// window translators get to accept it.
func WillExpireAt(due, created time.Time) time.Time {
	gap := due.Sub(created)
	if gap < 0 {
		gap = -gap
	}

	switch {
	case gap <= 90*time.Minute:
		return due
	case gap <= 24*time.Hour:
		return created.Add(90 * time.Minute)
	case gap <= 72*time.Hour:
		return created.Add(16 * time.Hour)
	default:
		return due.Add(-48 * time.Hour)
	}
}

// Elapsed returns the absolute wall-clock difference between from and to as H:MM:SS
func Elapsed(from, to time.Time) string {
	d := to.Sub(from)
	if d < 0 {
		d = -d
	}
	return FormatSessionTime(d)
}

// FormatSessionTime renders d as H:MM:SS with total hours
func FormatSessionTime(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int64(d / time.Hour)
	m := int64(d%time.Hour) / int64(time.Minute)
	s := int64(d%time.Minute) / int64(time.Second)
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// ParseSessionTime parses "H:M" or "H:M:S"
func ParseSessionTime(value string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid session time %q: expected H:M or H:M:S", value)
	}

	limits := []int{-1, 59, 59}
	units := []time.Duration{time.Hour, time.Minute, time.Second}

	var total time.Duration
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid session time %q: %q is not a number", value, part)
		}
		if limits[i] >= 0 && n > limits[i] {
			return 0, fmt.Errorf("invalid session time %q: %d out of range", value, n)
		}
		total += time.Duration(n) * units[i]
	}

	return total, nil
}

// SessionTimeText renders d the way invoices and payroll mails show it
func SessionTimeText(d time.Duration) string {
	h := int64(d / time.Hour)
	m := int64(d%time.Hour) / int64(time.Minute)
	return fmt.Sprintf("%d tim %02d min", h, m)
}

// IsNight reports whether t falls in the window starting at startHour and
// ending at endHour. The window may wrap midnight.
func IsNight(t time.Time, startHour, endHour int) bool {
	h := t.Hour()
	if startHour == endHour {
		return false
	}
	if startHour < endHour {
		return h >= startHour && h < endHour
	}
	return h >= startHour || h < endHour
}

// NextMorning returns the next occurrence of hour:00 after t in t's location
func NextMorning(t time.Time, hour int) time.Time {
	morning := time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
	if !morning.After(t) {
		morning = morning.AddDate(0, 0, 1)
	}
	return morning
}
