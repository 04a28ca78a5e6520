// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring expense dueness
// checking. Each frequency (daily, weekly, monthly) has its own strategy that
// encapsulates the logic for determining if a template is due on a given day.

package services

import (
	"fmt"
	"time"

	"sprout/internal/core"
)

// DuenessChecker is the strategy interface for checking if a recurring
// expense template is due. All comparisons are over calendar days anchored to
// the template's start date; lastRun is the zero Date when the template has
// never been processed.
type DuenessChecker interface {
	IsDue(lastRun, today, startDate core.Date) bool
}

// ranToday guards against a second materialization on the same day.
func ranToday(lastRun, today core.Date) bool {
	return !lastRun.IsZero() && !lastRun.Before(today)
}

// DailyChecker implements DuenessChecker for daily templates.
type DailyChecker struct{}

// IsDue returns true on every day from the start date onward, at most once
// per day.
func (DailyChecker) IsDue(lastRun, today, startDate core.Date) bool {
	if today.Before(startDate) {
		return false
	}
	return !ranToday(lastRun, today)
}

// WeeklyChecker implements DuenessChecker for weekly templates.
type WeeklyChecker struct{}

// IsDue returns true on the start date and on every 7th day after it.
func (WeeklyChecker) IsDue(lastRun, today, startDate core.Date) bool {
	if today.Before(startDate) {
		return false
	}
	if core.DaysBetween(startDate, today)%7 != 0 {
		return false
	}
	return !ranToday(lastRun, today)
}

// MonthlyChecker implements DuenessChecker for monthly templates.
type MonthlyChecker struct{}

// IsDue returns true when the day of month matches the start date's day,
// clamped to the final day of months too short to hold it.
func (MonthlyChecker) IsDue(lastRun, today, startDate core.Date) bool {
	if today.Before(startDate) {
		return false
	}

	targetDay := startDate.Day()
	lastDayOfMonth := time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if targetDay > lastDayOfMonth {
		targetDay = lastDayOfMonth
	}
	if today.Day() != targetDay {
		return false
	}
	return !ranToday(lastRun, today)
}

// duenessStrategies maps frequencies to their corresponding checkers.
var duenessStrategies = map[core.Frequency]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
}

// GetDuenessChecker returns the checker for a frequency, or an error for
// frequencies without one.
func GetDuenessChecker(frequency core.Frequency) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return checker, nil
}

// RegisterDuenessChecker registers a custom checker for a new frequency.
func RegisterDuenessChecker(frequency core.Frequency, checker DuenessChecker) {
	duenessStrategies[frequency] = checker
}
