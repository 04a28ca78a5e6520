package core

import (
	"context"
	"time"
)

// DateLayout is the wire and storage form of a calendar day.
const DateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day component. The zero value is
// usable only as "absent"; construct real values with NewDate or ParseDate.
type Date struct {
	t time.Time // midnight UTC
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its UTC calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, m, d)
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, NewValidationError("Invalid date format. Use YYYY-MM-DD", "date")
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return d.t.Format(DateLayout)
}

func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }
func (d Date) IsZero() bool           { return d.t.IsZero() }

func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

// Bounds returns the half-open UTC window [start, end) covering the day.
// Every timestamp query in the program goes through this window so that an
// expense logged at 23:59:59.999 lands on the day it belongs to.
func (d Date) Bounds() (start, end time.Time) {
	return d.t, d.t.AddDate(0, 0, 1)
}

// At combines the day with a time-of-day taken from the given instant.
// Used when an expense is logged under a simulated date: the day comes from
// the simulation, the clock time from the real wall clock.
func (d Date) At(clock time.Time) time.Time {
	c := clock.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), c.Nanosecond(), time.UTC)
}

// DaysBetween returns the number of calendar days from a to b; negative when
// b precedes a.
func DaysBetween(a, b Date) int {
	return int(b.t.Sub(a.t) / (24 * time.Hour))
}

// Clock resolves "today" for a user. The production implementation consults
// the user's preferences so a simulated date shifts every day-relative
// operation at once; tests substitute a fixed clock.
type Clock interface {
	Today(ctx context.Context, userID int64) (Date, error)
}

// RealClock resolves today from the system wall clock in UTC.
type RealClock struct{}

func (RealClock) Today(context.Context, int64) (Date, error) {
	return DateOf(time.Now()), nil
}

// FixedClock always resolves the same day regardless of user.
type FixedClock struct {
	Date Date
}

func (c FixedClock) Today(context.Context, int64) (Date, error) {
	return c.Date, nil
}
