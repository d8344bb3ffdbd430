package leave

import (
	"context"
	"fmt"
	"time"
)

// WeekendPolicy reports whether a weekday is a non-working day.
type WeekendPolicy func(time.Weekday) bool

// StandardWeekend treats Saturday and Sunday as non-working.
func StandardWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

// HolidayCalendar supplies public holidays for a date range. Keys are
// midnight-UTC dates.
type HolidayCalendar interface {
	Holidays(ctx context.Context, from, to time.Time) (map[time.Time]struct{}, error)
}

// DayCalculator turns a calendar range into a working-day count. Whether
// public holidays are excluded on top of weekends is a policy decision, so
// it is a switch rather than a constant.
type DayCalculator struct {
	Weekend         WeekendPolicy
	Calendar        HolidayCalendar
	ExcludeHolidays bool
}

// Days counts working days in [start, end] inclusive. The count it returns
// is the exact quantity later debited from the ledger on approval.
func (c DayCalculator) Days(ctx context.Context, start, end time.Time) (float64, error) {
	start = DateOnly(start)
	end = DateOnly(end)
	if end.Before(start) {
		return 0, fmt.Errorf("%w: end date before start date", ErrValidation)
	}

	var holidays map[time.Time]struct{}
	if c.ExcludeHolidays && c.Calendar != nil {
		var err error
		holidays, err = c.Calendar.Holidays(ctx, start, end)
		if err != nil {
			return 0, err
		}
	}

	return CountWorkingDays(start, end, c.Weekend, holidays), nil
}

// CountWorkingDays is the pure counting rule: every day in [start, end]
// that is neither a weekend nor in the holidays set. Pass a nil holidays
// map for the weekends-only interpretation.
func CountWorkingDays(start, end time.Time, weekend WeekendPolicy, holidays map[time.Time]struct{}) float64 {
	if weekend == nil {
		weekend = StandardWeekend
	}
	days := 0.0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if weekend(d.Weekday()) {
			continue
		}
		if _, ok := holidays[d]; ok {
			continue
		}
		days++
	}
	return days
}

// DateOnly normalizes a timestamp to its midnight-UTC date so map lookups
// and day iteration line up regardless of input precision.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
