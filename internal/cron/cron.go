// Package cron parses 5-field cron expressions
// (minute hour day-of-month month day-of-week) and computes fire times.
// Supported syntax per field: "*", single values, comma lists, ranges
// (a-b) and steps (*/n, a-b/n).
package cron

import "time"

// Schedule is a parsed cron expression.
type Schedule struct {
	minutes     map[int]bool // 0-59
	hours       map[int]bool // 0-23
	daysOfMonth map[int]bool // 1-31
	months      map[int]bool // 1-12
	daysOfWeek  map[int]bool // 0-6, 0=Sunday
	domStar     bool
	dowStar     bool

	expr string
}

// String returns the original expression.
func (s *Schedule) String() string {
	return s.expr
}

// matches reports whether t is a firing minute for this schedule.
// Standard cron semantics: when both day-of-month and day-of-week are
// restricted, either matching is sufficient.
func (s *Schedule) matches(t time.Time) bool {
	if !s.minutes[t.Minute()] || !s.hours[t.Hour()] || !s.months[int(t.Month())] {
		return false
	}

	domOK := s.daysOfMonth[t.Day()]
	dowOK := s.daysOfWeek[int(t.Weekday())]

	switch {
	case s.domStar && s.dowStar:
		return true
	case s.domStar:
		return dowOK
	case s.dowStar:
		return domOK
	default:
		return domOK || dowOK
	}
}

// Next returns the first firing time strictly after the given time.
// Returns the zero time if no firing occurs within four years, which
// only happens for impossible date combinations.
func (s *Schedule) Next(after time.Time) time.Time {
	// Cron has minute granularity; start at the next minute boundary.
	t := after.Truncate(time.Minute).Add(time.Minute)
	limit := after.AddDate(4, 0, 0)

	for t.Before(limit) {
		if s.matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}
}
