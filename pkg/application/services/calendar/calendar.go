// Package calendar converts between wall-clock dates and the integer
// working-minutes coordinate the constraint model operates on.
package calendar

import (
	"fmt"
	"time"

	"github.com/solderline/smt-scheduler/pkg/domain/entities"
)

// maxCalendarDays bounds minutes_to_date's forward walk so a
// misconfigured calendar (e.g. no working days at all) fails loudly
// instead of looping forever.
const maxCalendarDays = 1000

// Service answers calendar questions against one entities.Calendar.
type Service struct {
	cal *entities.Calendar
}

// New wraps a calendar for date/minute conversion.
func New(cal *entities.Calendar) *Service {
	return &Service{cal: cal}
}

// IsWorkingDay reports whether date is a working day for the given line
// (empty line checks the global calendar only).
func (s *Service) IsWorkingDay(date time.Time, line entities.LineID) bool {
	if !s.cal.WorkingDaysOfWeek[date.Weekday()] {
		return false
	}
	for _, h := range s.cal.Holidays {
		if h.WholeDay && h.Covers(date, line) {
			return false
		}
	}
	return true
}

// WorkingMinutesInDay returns the working capacity of date for line, after
// subtracting any partial holiday that intersects the shift.
func (s *Service) WorkingMinutesInDay(date time.Time, line entities.LineID) int {
	if !s.IsWorkingDay(date, line) {
		return 0
	}
	shift := s.cal.ShiftFor(date, line)
	minutes := shift.WorkingMinutes()
	for _, h := range s.cal.Holidays {
		if h.WholeDay || !h.Covers(date, line) {
			continue
		}
		overlapStart := max(h.StartMinute, shift.StartMinute)
		overlapEnd := min(h.EndMinute, shift.EndMinute)
		if overlapEnd > overlapStart {
			minutes -= overlapEnd - overlapStart
		}
	}
	if minutes < 0 {
		return 0
	}
	return minutes
}

// DateToMinutes converts date to its integer working-minutes coordinate
// relative to ref.
func (s *Service) DateToMinutes(date, ref time.Time, line entities.LineID) int {
	total := 0
	cursor := truncateToDay(ref)
	target := truncateToDay(date)

	for cursor.Before(target) {
		total += s.WorkingMinutesInDay(cursor, line)
		cursor = cursor.AddDate(0, 0, 1)
	}

	shift := s.cal.ShiftFor(date, line)
	minuteOfDay := date.Hour()*60 + date.Minute()
	elapsed := minuteOfDay - shift.StartMinute
	if elapsed < 0 {
		elapsed = 0
	}
	if shift.BreakEnd > shift.BreakStart && minuteOfDay > shift.BreakStart {
		overlap := min(minuteOfDay, shift.BreakEnd) - shift.BreakStart
		if overlap > 0 {
			elapsed -= overlap
		}
	}
	capacity := shift.WorkingMinutes()
	if elapsed > capacity {
		elapsed = capacity
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return total + elapsed
}

// MinutesToDate is the inverse of DateToMinutes: it walks forward from ref
// one day at a time, consuming m until it fits within the current day's
// shift.
func (s *Service) MinutesToDate(m int, ref time.Time, line entities.LineID) (time.Time, error) {
	remaining := m
	cursor := truncateToDay(ref)

	for day := 0; day < maxCalendarDays; day++ {
		capacity := s.WorkingMinutesInDay(cursor, line)
		if remaining <= capacity {
			shift := s.cal.ShiftFor(cursor, line)
			minuteOfDay := shift.StartMinute + remaining
			if shift.BreakEnd > shift.BreakStart && minuteOfDay > shift.BreakStart {
				minuteOfDay += shift.BreakEnd - shift.BreakStart
			}
			return time.Date(cursor.Year(), cursor.Month(), cursor.Day(), 0, 0, 0, 0, cursor.Location()).
				Add(time.Duration(minuteOfDay) * time.Minute), nil
		}
		remaining -= capacity
		cursor = cursor.AddDate(0, 0, 1)
	}
	return time.Time{}, &entities.CalendarOverrunError{Minutes: m}
}

// AddWorkingDays advances from day-by-day, counting only working days for
// line, and returns the resulting date.
func (s *Service) AddWorkingDays(from time.Time, n int, line entities.LineID) time.Time {
	cursor := truncateToDay(from)
	counted := 0
	for counted < n {
		cursor = cursor.AddDate(0, 0, 1)
		if s.IsWorkingDay(cursor, line) {
			counted++
		}
	}
	return cursor
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// errInvalidCalendar is returned by validation helpers that check a
// calendar has at least one working day before the engine relies on it.
var errInvalidCalendar = fmt.Errorf("calendar has no working days configured")

// ValidateHasWorkingDays checks the calendar configures at least one
// working day of the week, failing fast instead of letting
// MinutesToDate run into its 1000-day guard.
func ValidateHasWorkingDays(cal *entities.Calendar) error {
	for _, working := range cal.WorkingDaysOfWeek {
		if working {
			return nil
		}
	}
	return errInvalidCalendar
}
