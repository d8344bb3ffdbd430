package leave

import "time"

// RequestStatus is a closed enum; transitions outside the table below are
// rejected with ErrInvalidState.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
)

// transitions lists every legal state change. Approved→Cancelled is the
// admin-level reversal path and triggers a ledger credit.
var transitions = map[RequestStatus]map[RequestStatus]bool{
	StatusPending: {
		StatusApproved:  true,
		StatusRejected:  true,
		StatusCancelled: true,
	},
	StatusApproved: {
		StatusCancelled: true,
	},
}

func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return transitions[s][next]
}

func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

type LeaveType struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	DefaultDaysPerYear float64 `json:"defaultDaysPerYear"`
	IsPaid             bool    `json:"isPaid"`
	IsActive           bool    `json:"isActive"`
}

// Balance is one ledger row. RemainingDays is a generated column in the
// database, so remaining == total + carried - used holds on every write.
type Balance struct {
	ID                 string    `json:"id"`
	EmployeeID         string    `json:"employeeId"`
	LeaveTypeID        string    `json:"leaveTypeId"`
	Year               int       `json:"year"`
	TotalDays          float64   `json:"totalDays"`
	UsedDays           float64   `json:"usedDays"`
	RemainingDays      float64   `json:"remainingDays"`
	CarriedForwardDays float64   `json:"carriedForwardDays"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type Request struct {
	ID               string        `json:"id"`
	EmployeeID       string        `json:"employeeId"`
	LeaveTypeID      string        `json:"leaveTypeId"`
	StartDate        time.Time     `json:"startDate"`
	EndDate          time.Time     `json:"endDate"`
	Days             float64       `json:"days"`
	Status           RequestStatus `json:"status"`
	Reason           string        `json:"reason"`
	ApproverComments string        `json:"approverComments"`
	CreatedAt        time.Time     `json:"createdAt"`
}

type Holiday struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}
