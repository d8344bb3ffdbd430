package attendance

import "time"

type DayStatus string

const (
	StatusPresent DayStatus = "present"
	StatusHalfDay DayStatus = "half_day"
	StatusAbsent  DayStatus = "absent"
)

func (s DayStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusHalfDay, StatusAbsent:
		return true
	}
	return false
}

// Mark is one employee's recorded status for one calendar day.
type Mark struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Day        time.Time `json:"day"`
	Status     DayStatus `json:"status"`
	Note       string    `json:"note,omitempty"`
}

// LeaveWindow is an approved leave request projected onto the attendance
// timeline. Paid mirrors the leave type's is_paid flag.
type LeaveWindow struct {
	Start time.Time
	End   time.Time
	Paid  bool
}

// Summary is what payroll consumes for one employee over one period.
// WorkingDays is always DaysWorked + LossOfPayDays.
type Summary struct {
	DaysWorked    float64 `json:"daysWorked"`
	LossOfPayDays float64 `json:"lossOfPayDays"`
	WorkingDays   float64 `json:"workingDays"`
}
