package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"payledger/internal/platform/querier"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.DB.BeginTx(ctx, pgx.TxOptions{})
}

func (s *Store) ListTypes(ctx context.Context) ([]LeaveType, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, default_days_per_year, is_paid, is_active
    FROM leave_types
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTypes(rows)
}

func (s *Store) ActiveTypes(ctx context.Context) ([]LeaveType, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, default_days_per_year, is_paid, is_active
    FROM leave_types
    WHERE is_active = true
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTypes(rows)
}

func scanTypes(rows pgx.Rows) ([]LeaveType, error) {
	var types []LeaveType
	for rows.Next() {
		var t LeaveType
		if err := rows.Scan(&t.ID, &t.Name, &t.DefaultDaysPerYear, &t.IsPaid, &t.IsActive); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (s *Store) CreateType(ctx context.Context, payload LeaveType) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_types (name, default_days_per_year, is_paid, is_active)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, payload.Name, payload.DefaultDaysPerYear, payload.IsPaid, payload.IsActive).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetType(ctx context.Context, id string) (LeaveType, error) {
	var t LeaveType
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, default_days_per_year, is_paid, is_active
    FROM leave_types
    WHERE id = $1
  `, id).Scan(&t.ID, &t.Name, &t.DefaultDaysPerYear, &t.IsPaid, &t.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, fmt.Errorf("%w: leave type %s", ErrNotFound, id)
	}
	return t, err
}

func (s *Store) ListHolidays(ctx context.Context) ([]Holiday, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, date, name FROM holidays ORDER BY date")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Date, &h.Name); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) CreateHoliday(ctx context.Context, day time.Time, name string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO holidays (date, name)
    VALUES ($1,$2)
    RETURNING id
  `, DateOnly(day), name).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM holidays WHERE id = $1", id)
	return err
}

// Holidays implements HolidayCalendar for the day calculator and the
// attendance aggregator.
func (s *Store) Holidays(ctx context.Context, from, to time.Time) (map[time.Time]struct{}, error) {
	rows, err := s.DB.Query(ctx, "SELECT date FROM holidays WHERE date >= $1 AND date <= $2", DateOnly(from), DateOnly(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[time.Time]struct{}{}
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out[DateOnly(d)] = struct{}{}
	}
	return out, rows.Err()
}

const balanceColumns = "id, employee_id, leave_type_id, year, total_days, used_days, remaining_days, carried_forward_days, updated_at"

// Balance reads one ledger row outside any transaction.
func (s *Store) Balance(ctx context.Context, employeeID, leaveTypeID string, year int) (Balance, error) {
	return s.GetBalance(ctx, s.DB, employeeID, leaveTypeID, year)
}

// Debit and Credit are the non-transactional forms used by the ledger
// service; the approval flow uses DebitBalance with its own tx instead.
func (s *Store) Debit(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error {
	return s.DebitBalance(ctx, s.DB, employeeID, leaveTypeID, year, days)
}

func (s *Store) Credit(ctx context.Context, employeeID, leaveTypeID string, year int, days float64) error {
	return s.CreditBalance(ctx, s.DB, employeeID, leaveTypeID, year, days)
}

func (s *Store) GetBalance(ctx context.Context, q querier.Querier, employeeID, leaveTypeID string, year int) (Balance, error) {
	var b Balance
	err := q.QueryRow(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances
    WHERE employee_id = $1 AND leave_type_id = $2 AND year = $3
  `, employeeID, leaveTypeID, year).Scan(
		&b.ID, &b.EmployeeID, &b.LeaveTypeID, &b.Year,
		&b.TotalDays, &b.UsedDays, &b.RemainingDays, &b.CarriedForwardDays, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return b, fmt.Errorf("%w: no balance for employee %s type %s year %d", ErrNotFound, employeeID, leaveTypeID, year)
	}
	return b, err
}

func (s *Store) ListBalances(ctx context.Context, employeeID string, year int) ([]Balance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances
    WHERE employee_id = $1 AND year = $2
    ORDER BY leave_type_id
  `, employeeID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(
			&b.ID, &b.EmployeeID, &b.LeaveTypeID, &b.Year,
			&b.TotalDays, &b.UsedDays, &b.RemainingDays, &b.CarriedForwardDays, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// InsertBalanceIfAbsent creates a ledger row unless one already exists at the
// (employee, type, year) grain. Insert-if-absent rather than check-then-insert
// so concurrent initialization calls cannot produce duplicates.
func (s *Store) InsertBalanceIfAbsent(ctx context.Context, b Balance) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO leave_balances (employee_id, leave_type_id, year, total_days, used_days, carried_forward_days)
    VALUES ($1,$2,$3,$4,0,$5)
    ON CONFLICT (employee_id, leave_type_id, year) DO NOTHING
  `, b.EmployeeID, b.LeaveTypeID, b.Year, b.TotalDays, b.CarriedForwardDays)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DebitBalance consumes days from a ledger row in a single conditional
// update. remaining_days is a generated column, so adjusting used_days keeps
// the arithmetic identity without a second write. The remaining_days guard
// makes two racing debits serialize on the row lock; the loser observes zero
// rows affected.
func (s *Store) DebitBalance(ctx context.Context, q querier.Querier, employeeID, leaveTypeID string, year int, amount float64) error {
	tag, err := q.Exec(ctx, `
    UPDATE leave_balances
    SET used_days = used_days + $4, updated_at = now()
    WHERE employee_id = $1 AND leave_type_id = $2 AND year = $3 AND remaining_days >= $4
  `, employeeID, leaveTypeID, year, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetBalance(ctx, q, employeeID, leaveTypeID, year); err != nil {
			return err
		}
		return fmt.Errorf("%w: %v days requested", ErrInsufficientBalance, amount)
	}
	return nil
}

// CreditBalance reverses a prior debit. The used_days guard keeps the ledger
// from going negative if a credit is replayed.
func (s *Store) CreditBalance(ctx context.Context, q querier.Querier, employeeID, leaveTypeID string, year int, amount float64) error {
	tag, err := q.Exec(ctx, `
    UPDATE leave_balances
    SET used_days = used_days - $4, updated_at = now()
    WHERE employee_id = $1 AND leave_type_id = $2 AND year = $3 AND used_days >= $4
  `, employeeID, leaveTypeID, year, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetBalance(ctx, q, employeeID, leaveTypeID, year); err != nil {
			return err
		}
		return fmt.Errorf("%w: credit of %v days would drive used days below zero", ErrValidation, amount)
	}
	return nil
}

const requestColumns = "id, employee_id, leave_type_id, start_date, end_date, days, status, reason, COALESCE(approver_comments, ''), created_at"

func (s *Store) InsertRequest(ctx context.Context, req Request) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (employee_id, leave_type_id, start_date, end_date, days, status, reason)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, req.EmployeeID, req.LeaveTypeID, req.StartDate, req.EndDate, req.Days, req.Status, req.Reason).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (Request, error) {
	return s.scanRequest(s.DB.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE id = $1
  `, id), id)
}

// RequestForUpdate locks the request row for the duration of the enclosing
// transaction, serializing concurrent transition attempts.
func (s *Store) RequestForUpdate(ctx context.Context, tx pgx.Tx, id string) (Request, error) {
	return s.scanRequest(tx.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE id = $1
    FOR UPDATE
  `, id), id)
}

func (s *Store) scanRequest(row pgx.Row, id string) (Request, error) {
	var req Request
	err := row.Scan(
		&req.ID, &req.EmployeeID, &req.LeaveTypeID, &req.StartDate, &req.EndDate,
		&req.Days, &req.Status, &req.Reason, &req.ApproverComments, &req.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return req, fmt.Errorf("%w: leave request %s", ErrNotFound, id)
	}
	return req, err
}

func (s *Store) SetRequestStatus(ctx context.Context, q querier.Querier, id string, status RequestStatus, comments string) error {
	_, err := q.Exec(ctx, `
    UPDATE leave_requests
    SET status = $2, approver_comments = $3, decided_at = now()
    WHERE id = $1
  `, id, status, comments)
	return err
}

type RequestFilter struct {
	EmployeeID string
	Status     RequestStatus
	Limit      int
	Offset     int
}

func (s *Store) ListRequests(ctx context.Context, filter RequestFilter) ([]Request, error) {
	query := `
    SELECT ` + requestColumns + `
    FROM leave_requests
    WHERE 1=1
  `
	args := []any{}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		query += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(
			&req.ID, &req.EmployeeID, &req.LeaveTypeID, &req.StartDate, &req.EndDate,
			&req.Days, &req.Status, &req.Reason, &req.ApproverComments, &req.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
