package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bookable hours: twelve hourly slots from 9:00 through 20:00.
const (
	firstSlotHour = 9
	lastSlotHour  = 20
)

// DateLayout is the user-facing date format.
const DateLayout = "DD-MM-YYYY"

// Slots returns the fixed per-date slot catalog in chronological order.
func Slots() []string {
	out := make([]string, 0, lastSlotHour-firstSlotHour+1)
	for h := firstSlotHour; h <= lastSlotHour; h++ {
		out = append(out, fmt.Sprintf("%d:00", h))
	}
	return out
}

// FreeSlots returns the slot catalog minus the slots already taken for the
// date. A date absent from the calendar has every slot free.
func FreeSlots(cal Calendar, date string) []string {
	taken := cal[date]
	if len(taken) == 0 {
		return Slots()
	}
	out := make([]string, 0, lastSlotHour-firstSlotHour+1)
	for _, slot := range Slots() {
		if _, ok := taken[slot]; !ok {
			out = append(out, slot)
		}
	}
	return out
}

// ParseDate parses a DD-MM-YYYY string into a calendar date. Inputs that do
// not split into three integers or name an impossible date (e.g. 31-02) are
// rejected.
func ParseDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("date %q: want %s", s, DateLayout)
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: bad day: %w", s, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: bad month: %w", s, err)
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: bad year: %w", s, err)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (32-01 becomes 01-02), so an exact
	// round-trip check catches impossible dates.
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, fmt.Errorf("date %q: no such calendar date", s)
	}
	return t, nil
}

// DateInWindow reports whether the date is bookable: today or later, and
// strictly before January 1 of the year after next.
func DateInWindow(date, now time.Time) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return false
	}
	limit := time.Date(now.Year()+2, time.January, 1, 0, 0, 0, 0, time.UTC)
	return date.Before(limit)
}
