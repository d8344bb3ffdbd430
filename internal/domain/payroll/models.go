package payroll

import "time"

type RunStatus string

const (
	RunDraft     RunStatus = "draft"
	RunFinalized RunStatus = "finalized"
)

type ComponentType string

const (
	ComponentEarning   ComponentType = "earning"
	ComponentDeduction ComponentType = "deduction"
)

// Run is one payroll cycle for a calendar month. A month/year pair admits at
// most one run.
type Run struct {
	ID          string     `json:"id"`
	Month       int        `json:"month"`
	Year        int        `json:"year"`
	Status      RunStatus  `json:"status"`
	TotalGross  float64    `json:"totalGross"`
	TotalNet    float64    `json:"totalNet"`
	CreatedAt   time.Time  `json:"createdAt"`
	FinalizedAt *time.Time `json:"finalizedAt,omitempty"`
}

// EmployeeLine is one employee's row within a run.
type EmployeeLine struct {
	ID              string  `json:"id"`
	RunID           string  `json:"runId"`
	EmployeeID      string  `json:"employeeId"`
	EmployeeName    string  `json:"employeeName,omitempty"`
	DaysWorked      float64 `json:"daysWorked"`
	LossOfPayDays   float64 `json:"lossOfPayDays"`
	WorkingDays     float64 `json:"workingDays"`
	GrossEarnings   float64 `json:"grossEarnings"`
	TotalDeductions float64 `json:"totalDeductions"`
	NetPay          float64 `json:"netPay"`
}

// Detail is one component amount on an employee line, after pro-rating.
type Detail struct {
	ID            string        `json:"id"`
	LineID        string        `json:"lineId"`
	ComponentID   string        `json:"componentId"`
	ComponentName string        `json:"componentName"`
	Type          ComponentType `json:"type"`
	Amount        float64       `json:"amount"`
}

// SalaryComponent is a catalog entry. ProRatable controls whether the amount
// scales with attendance; earnings always scale regardless of the flag.
type SalaryComponent struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Type       ComponentType `json:"type"`
	ProRatable bool          `json:"proRatable"`
	IsActive   bool          `json:"isActive"`
}

// ComponentAmount is a component assigned to an employee with its monthly
// base amount.
type ComponentAmount struct {
	ComponentID string
	Name        string
	Type        ComponentType
	Amount      float64
	ProRatable  bool
}
