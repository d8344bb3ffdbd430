package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"payledger/internal/domain/leave"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// 2026-03-02 is a Monday; the period Mon..Sun holds five working days.
var (
	periodStart = day("2026-03-02")
	periodEnd   = day("2026-03-08")
)

func TestAggregateAllPresent(t *testing.T) {
	marks := map[time.Time]DayStatus{}
	for d := periodStart; !d.After(periodEnd); d = d.AddDate(0, 0, 1) {
		marks[d] = StatusPresent
	}

	got := Aggregate(periodStart, periodEnd, leave.StandardWeekend, nil, marks, nil)

	assert.Equal(t, Summary{DaysWorked: 5, LossOfPayDays: 0, WorkingDays: 5}, got)
}

func TestAggregateUnmarkedDaysAreLossOfPay(t *testing.T) {
	marks := map[time.Time]DayStatus{
		day("2026-03-02"): StatusPresent,
		day("2026-03-03"): StatusPresent,
	}

	got := Aggregate(periodStart, periodEnd, leave.StandardWeekend, nil, marks, nil)

	assert.Equal(t, Summary{DaysWorked: 2, LossOfPayDays: 3, WorkingDays: 5}, got)
}

func TestAggregateHolidayCountsAsWorked(t *testing.T) {
	holidays := map[time.Time]struct{}{day("2026-03-04"): {}}

	got := Aggregate(periodStart, periodEnd, leave.StandardWeekend, holidays, nil, nil)

	assert.Equal(t, float64(1), got.DaysWorked)
	assert.Equal(t, float64(4), got.LossOfPayDays)
}

func TestAggregateHalfDayCountsAsFullDay(t *testing.T) {
	marks := map[time.Time]DayStatus{day("2026-03-02"): StatusHalfDay}

	got := Aggregate(periodStart, periodEnd, leave.StandardWeekend, nil, marks, nil)

	assert.Equal(t, float64(1), got.DaysWorked)
}

func TestAggregatePaidLeaveCountsAsWorked(t *testing.T) {
	leaves := []LeaveWindow{{Start: day("2026-03-02"), End: day("2026-03-03"), Paid: true}}

	got := Aggregate(periodStart, periodEnd, leave.StandardWeekend, nil, nil, leaves)

	assert.Equal(t, Summary{DaysWorked: 2, LossOfPayDays: 3, WorkingDays: 5}, got)
}

func TestAggregateUnpaidLeaveIsLossOfPay(t *testing.T) {
	leaves := []LeaveWindow{{Start: day("2026-03-02"), End: day("2026-03-06"), Paid: false}}

	got := Aggregate(periodStart, periodEnd, leave.StandardWeekend, nil, nil, leaves)

	assert.Equal(t, Summary{DaysWorked: 0, LossOfPayDays: 5, WorkingDays: 5}, got)
}

func TestAggregateAbsentMarkCoveredByPaidLeave(t *testing.T) {
	marks := map[time.Time]DayStatus{day("2026-03-02"): StatusAbsent}
	leaves := []LeaveWindow{{Start: day("2026-03-02"), End: day("2026-03-02"), Paid: true}}

	got := Aggregate(periodStart, periodEnd, leave.StandardWeekend, nil, marks, leaves)

	assert.Equal(t, float64(1), got.DaysWorked)
}

func TestAggregateWorkingDaysInvariant(t *testing.T) {
	marks := map[time.Time]DayStatus{
		day("2026-03-02"): StatusPresent,
		day("2026-03-05"): StatusAbsent,
	}
	holidays := map[time.Time]struct{}{day("2026-03-06"): {}}
	leaves := []LeaveWindow{{Start: day("2026-03-03"), End: day("2026-03-03"), Paid: true}}

	got := Aggregate(periodStart, periodEnd, leave.StandardWeekend, holidays, marks, leaves)

	assert.Equal(t, got.WorkingDays, got.DaysWorked+got.LossOfPayDays)
	assert.Equal(t, float64(5), got.WorkingDays)
}
