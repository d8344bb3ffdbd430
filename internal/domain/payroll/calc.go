package payroll

import (
	"fmt"
	"math"
)

// LineTotals is the computed money for one employee line.
type LineTotals struct {
	GrossEarnings   float64
	TotalDeductions float64
	NetPay          float64
	Details         []Detail
}

// ComputeLine applies attendance pro-rating to an employee's salary
// components. Earnings always scale by daysWorked/workingDays. Deductions
// keep their full base amount unless the component is pro-ratable.
func ComputeLine(components []ComponentAmount, daysWorked, workingDays float64) (LineTotals, error) {
	var totals LineTotals
	if workingDays <= 0 {
		return totals, fmt.Errorf("%w: working days must be positive", ErrValidation)
	}
	if daysWorked < 0 || daysWorked > workingDays {
		return totals, fmt.Errorf("%w: days worked %v outside [0, %v]", ErrValidation, daysWorked, workingDays)
	}

	factor := daysWorked / workingDays
	for _, c := range components {
		if c.Amount < 0 {
			return LineTotals{}, fmt.Errorf("%w: component %s has negative amount", ErrValidation, c.Name)
		}
		amount := c.Amount
		switch c.Type {
		case ComponentEarning:
			amount = round2(amount * factor)
			totals.GrossEarnings += amount
		case ComponentDeduction:
			if c.ProRatable {
				amount = round2(amount * factor)
			}
			totals.TotalDeductions += amount
		default:
			return LineTotals{}, fmt.Errorf("%w: unknown component type %q", ErrValidation, c.Type)
		}
		totals.Details = append(totals.Details, Detail{
			ComponentID:   c.ComponentID,
			ComponentName: c.Name,
			Type:          c.Type,
			Amount:        amount,
		})
	}

	totals.GrossEarnings = round2(totals.GrossEarnings)
	totals.TotalDeductions = round2(totals.TotalDeductions)
	totals.NetPay = round2(totals.GrossEarnings - totals.TotalDeductions)
	return totals, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
