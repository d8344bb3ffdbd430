package leave

import "context"

// BalanceStore is the ledger's view of persistence. *Store implements it
// against the pool; tests substitute fakes.
type BalanceStore interface {
	ActiveTypes(ctx context.Context) ([]LeaveType, error)
	Balance(ctx context.Context, employeeID, leaveTypeID string, year int) (Balance, error)
	InsertBalanceIfAbsent(ctx context.Context, b Balance) (bool, error)
	ListBalances(ctx context.Context, employeeID string, year int) ([]Balance, error)
	Debit(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error
	Credit(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error
}
