package attendance

import (
	"context"
	"time"

	"payledger/internal/domain/leave"
)

// Aggregate classifies every working day in [periodStart, periodEnd] as
// either worked or loss of pay. Weekends never count as working days.
// Classification order for a working day:
//
//  1. holiday: worked
//  2. marked present or half day: worked (a half day counts as a full day
//     for payroll purposes)
//  3. covered by approved paid leave: worked
//  4. covered by approved unpaid leave, marked absent, or unmarked: loss of pay
func Aggregate(periodStart, periodEnd time.Time, weekend leave.WeekendPolicy, holidays map[time.Time]struct{}, marks map[time.Time]DayStatus, leaves []LeaveWindow) Summary {
	var sum Summary
	start := leave.DateOnly(periodStart)
	end := leave.DateOnly(periodEnd)

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if weekend(d.Weekday()) {
			continue
		}
		if _, ok := holidays[d]; ok {
			sum.DaysWorked++
			continue
		}
		switch marks[d] {
		case StatusPresent, StatusHalfDay:
			sum.DaysWorked++
			continue
		}
		if covered, paid := leaveCover(leaves, d); covered && paid {
			sum.DaysWorked++
			continue
		}
		sum.LossOfPayDays++
	}

	sum.WorkingDays = sum.DaysWorked + sum.LossOfPayDays
	return sum
}

func leaveCover(leaves []LeaveWindow, day time.Time) (covered, paid bool) {
	for _, w := range leaves {
		if day.Before(leave.DateOnly(w.Start)) || day.After(leave.DateOnly(w.End)) {
			continue
		}
		covered = true
		if w.Paid {
			return true, true
		}
	}
	return covered, false
}

// Aggregator computes a payroll-ready attendance summary for one employee.
type Aggregator interface {
	Summarize(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (Summary, error)
}

// Service is the database-backed Aggregator. It fetches holidays, marks and
// approved leave windows for the period and delegates to Aggregate.
type Service struct {
	store    *Store
	calendar leave.HolidayCalendar
	weekend  leave.WeekendPolicy
}

func NewService(store *Store, calendar leave.HolidayCalendar, weekend leave.WeekendPolicy) *Service {
	if weekend == nil {
		weekend = leave.StandardWeekend
	}
	return &Service{store: store, calendar: calendar, weekend: weekend}
}

func (s *Service) Summarize(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (Summary, error) {
	holidays, err := s.calendar.Holidays(ctx, periodStart, periodEnd)
	if err != nil {
		return Summary{}, err
	}
	marks, err := s.store.MarksByDay(ctx, employeeID, periodStart, periodEnd)
	if err != nil {
		return Summary{}, err
	}
	leaves, err := s.store.ApprovedLeaveWindows(ctx, employeeID, periodStart, periodEnd)
	if err != nil {
		return Summary{}, err
	}
	return Aggregate(periodStart, periodEnd, s.weekend, holidays, marks, leaves), nil
}
