package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"payledger/internal/domain/employee"
	"payledger/internal/platform/metrics"
)

// CarryForwardPolicy decides how many unused days from the previous year seed
// a new ledger row.
type CarryForwardPolicy func(previousRemaining float64) float64

// ZeroCarryForward discards unused days at year end.
func ZeroCarryForward(float64) float64 { return 0 }

// CappedCarryForward carries unused days up to limit.
func CappedCarryForward(limit float64) CarryForwardPolicy {
	return func(previousRemaining float64) float64 {
		if previousRemaining > limit {
			return limit
		}
		if previousRemaining < 0 {
			return 0
		}
		return previousRemaining
	}
}

// Ledger owns the per-employee, per-type, per-year balance rows. All balance
// mutation in the system goes through Debit and Credit.
type Ledger struct {
	store     BalanceStore
	directory employee.Directory
	carryOver CarryForwardPolicy
	metrics   *metrics.Collector
	logger    *slog.Logger
}

func NewLedger(store BalanceStore, directory employee.Directory, carryOver CarryForwardPolicy, m *metrics.Collector, logger *slog.Logger) *Ledger {
	if carryOver == nil {
		carryOver = ZeroCarryForward
	}
	return &Ledger{store: store, directory: directory, carryOver: carryOver, metrics: m, logger: logger}
}

// Initialize creates the year's balance rows for one employee, one per active
// leave type. Rows that already exist are left untouched, so the call is safe
// to repeat.
func (l *Ledger) Initialize(ctx context.Context, employeeID string, year int) ([]Balance, error) {
	if year < 2000 || year > 2200 {
		return nil, fmt.Errorf("%w: year %d out of range", ErrValidation, year)
	}
	active, err := l.directory.IsActive(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("check employee: %w", err)
	}
	if !active {
		return nil, fmt.Errorf("%w: employee %s is not active", ErrValidation, employeeID)
	}

	types, err := l.store.ActiveTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list leave types: %w", err)
	}

	for _, t := range types {
		carried := 0.0
		prev, err := l.store.Balance(ctx, employeeID, t.ID, year-1)
		switch {
		case err == nil:
			carried = l.carryOver(prev.RemainingDays)
		case errors.Is(err, ErrNotFound):
			// First tracked year for this type.
		default:
			return nil, fmt.Errorf("read prior year balance for type %s: %w", t.Name, err)
		}

		created, err := l.store.InsertBalanceIfAbsent(ctx, Balance{
			EmployeeID:         employeeID,
			LeaveTypeID:        t.ID,
			Year:               year,
			TotalDays:          t.DefaultDaysPerYear,
			CarriedForwardDays: carried,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize balance for type %s: %w", t.Name, err)
		}
		if created {
			l.logger.Info("leave balance initialized",
				"employeeId", employeeID, "leaveType", t.Name, "year", year, "carried", carried)
		}
	}

	return l.store.ListBalances(ctx, employeeID, year)
}

// InitializeAll runs Initialize for every active employee. Skips employees
// whose initialization fails validation rather than aborting the batch.
func (l *Ledger) InitializeAll(ctx context.Context, year int) (int, error) {
	employees, err := l.directory.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list employees: %w", err)
	}
	count := 0
	for _, emp := range employees {
		if _, err := l.Initialize(ctx, emp.ID, year); err != nil {
			l.logger.Error("initialize balances", "employeeId", emp.ID, "year", year, "error", err)
			continue
		}
		count++
	}
	return count, nil
}

// Debit consumes days from a balance. Fails with ErrInsufficientBalance when
// remaining days are fewer than requested, without touching the row.
func (l *Ledger) Debit(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error {
	if days <= 0 {
		return fmt.Errorf("%w: debit amount must be positive", ErrValidation)
	}
	if err := l.store.Debit(ctx, employeeID, leaveTypeID, year, days); err != nil {
		return err
	}
	l.metrics.RecordLedgerDebit()
	return nil
}

// Credit returns previously used days to a balance.
func (l *Ledger) Credit(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error {
	if days <= 0 {
		return fmt.Errorf("%w: credit amount must be positive", ErrValidation)
	}
	if err := l.store.Credit(ctx, employeeID, leaveTypeID, year, days); err != nil {
		return err
	}
	l.metrics.RecordLedgerCredit()
	return nil
}

func (l *Ledger) Get(ctx context.Context, employeeID, leaveTypeID string, year int) (Balance, error) {
	return l.store.Balance(ctx, employeeID, leaveTypeID, year)
}

func (l *Ledger) List(ctx context.Context, employeeID string, year int) ([]Balance, error) {
	return l.store.ListBalances(ctx, employeeID, year)
}
