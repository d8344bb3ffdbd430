package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"payledger/internal/domain/attendance"
	"payledger/internal/domain/employee"
	"payledger/internal/platform/metrics"
)

// Engine creates, finalizes and deletes payroll runs. Process writes the run
// and every employee line in one transaction, so a failure for any employee
// leaves no partial run behind.
type Engine struct {
	store      *Store
	directory  employee.Directory
	aggregator attendance.Aggregator
	metrics    *metrics.Collector
	logger     *slog.Logger
}

func NewEngine(store *Store, directory employee.Directory, aggregator attendance.Aggregator, m *metrics.Collector, logger *slog.Logger) *Engine {
	return &Engine{store: store, directory: directory, aggregator: aggregator, metrics: m, logger: logger}
}

// Process computes a draft run for the given month. Employees without an
// assigned salary structure are skipped. Returns ErrConflict when a run for
// the month already exists, in any status.
func (e *Engine) Process(ctx context.Context, month, year int) (Run, error) {
	var run Run
	if month < 1 || month > 12 {
		return run, fmt.Errorf("%w: month %d out of range", ErrValidation, month)
	}
	if year < 2000 || year > 2200 {
		return run, fmt.Errorf("%w: year %d out of range", ErrValidation, year)
	}

	periodStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, -1)

	employees, err := e.directory.ListActive(ctx)
	if err != nil {
		return run, fmt.Errorf("list employees: %w", err)
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return run, err
	}
	defer tx.Rollback(ctx)

	runID, err := e.store.CreateRun(ctx, tx, month, year)
	if err != nil {
		return run, err
	}

	var totalGross, totalNet float64
	lines := 0
	for _, emp := range employees {
		components, err := e.store.EmployeeComponents(ctx, emp.ID)
		if err != nil {
			return run, fmt.Errorf("load salary for employee %s: %w", emp.ID, err)
		}
		if len(components) == 0 {
			e.logger.Warn("employee has no salary structure, skipping", "employeeId", emp.ID)
			continue
		}

		summary, err := e.aggregator.Summarize(ctx, emp.ID, periodStart, periodEnd)
		if err != nil {
			return run, fmt.Errorf("attendance for employee %s: %w", emp.ID, err)
		}
		totals, err := ComputeLine(components, summary.DaysWorked, summary.WorkingDays)
		if err != nil {
			return run, fmt.Errorf("compute line for employee %s: %w", emp.ID, err)
		}

		lineID, err := e.store.InsertLine(ctx, tx, EmployeeLine{
			RunID:           runID,
			EmployeeID:      emp.ID,
			DaysWorked:      summary.DaysWorked,
			LossOfPayDays:   summary.LossOfPayDays,
			WorkingDays:     summary.WorkingDays,
			GrossEarnings:   totals.GrossEarnings,
			TotalDeductions: totals.TotalDeductions,
			NetPay:          totals.NetPay,
		})
		if err != nil {
			return run, fmt.Errorf("insert line for employee %s: %w", emp.ID, err)
		}
		for _, d := range totals.Details {
			d.LineID = lineID
			if err := e.store.InsertDetail(ctx, tx, d); err != nil {
				return run, fmt.Errorf("insert detail for employee %s: %w", emp.ID, err)
			}
		}

		totalGross += totals.GrossEarnings
		totalNet += totals.NetPay
		lines++
	}

	if err := e.store.UpdateRunTotals(ctx, tx, runID, round2(totalGross), round2(totalNet)); err != nil {
		return run, err
	}
	if err := tx.Commit(ctx); err != nil {
		return run, err
	}

	e.metrics.RecordPayrollRun()
	e.logger.Info("payroll run processed",
		"runId", runID, "month", month, "year", year, "employees", lines)

	return e.store.GetRun(ctx, e.store.DB, runID)
}

// Finalize moves a draft run to finalized. The transition is one way and
// requires at least one employee line.
func (e *Engine) Finalize(ctx context.Context, runID string) (Run, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return Run{}, err
	}
	defer tx.Rollback(ctx)

	run, err := e.store.RunForUpdate(ctx, tx, runID)
	if err != nil {
		return run, err
	}
	if run.Status != RunDraft {
		return run, fmt.Errorf("%w: run is %s, only draft runs can be finalized", ErrInvalidState, run.Status)
	}
	n, err := e.store.CountLines(ctx, tx, runID)
	if err != nil {
		return run, err
	}
	if n == 0 {
		return run, fmt.Errorf("%w: run has no employee lines", ErrInvalidState)
	}
	if err := e.store.MarkRunFinalized(ctx, tx, runID); err != nil {
		return run, err
	}
	if err := tx.Commit(ctx); err != nil {
		return run, err
	}

	e.logger.Info("payroll run finalized", "runId", runID, "lines", n)
	return e.store.GetRun(ctx, e.store.DB, runID)
}

// Delete removes a draft run and its lines. Finalized runs are immutable.
func (e *Engine) Delete(ctx context.Context, runID string) error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	run, err := e.store.RunForUpdate(ctx, tx, runID)
	if err != nil {
		return err
	}
	if run.Status != RunDraft {
		return fmt.Errorf("%w: finalized runs cannot be deleted", ErrInvalidState)
	}
	if err := e.store.DeleteRun(ctx, tx, runID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	e.logger.Info("payroll run deleted", "runId", runID)
	return nil
}

func (e *Engine) ListRuns(ctx context.Context) ([]Run, error) {
	return e.store.ListRuns(ctx)
}

// LineWithDetails pairs an employee line with its component breakdown.
type LineWithDetails struct {
	EmployeeLine
	Details []Detail `json:"details"`
}

// RunDetails is one run with every employee line expanded.
type RunDetails struct {
	Run   Run               `json:"run"`
	Lines []LineWithDetails `json:"lines"`
}

func (e *Engine) GetRunDetails(ctx context.Context, runID string) (RunDetails, error) {
	var out RunDetails
	run, err := e.store.GetRun(ctx, e.store.DB, runID)
	if err != nil {
		return out, err
	}
	lines, err := e.store.ListLines(ctx, runID)
	if err != nil {
		return out, err
	}
	out.Run = run
	for _, l := range lines {
		details, err := e.store.ListDetails(ctx, l.ID)
		if err != nil {
			return out, err
		}
		out.Lines = append(out.Lines, LineWithDetails{EmployeeLine: l, Details: details})
	}
	return out, nil
}
