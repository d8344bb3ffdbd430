package payroll

import (
	"context"
	"errors"
	"fmt"

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

func (s *Store) ListComponents(ctx context.Context) ([]SalaryComponent, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, type, pro_ratable, is_active
    FROM salary_components
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SalaryComponent
	for rows.Next() {
		var c SalaryComponent
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.ProRatable, &c.IsActive); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateComponent(ctx context.Context, c SalaryComponent) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO salary_components (name, type, pro_ratable, is_active)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, c.Name, c.Type, c.ProRatable, c.IsActive).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// AssignComponent sets an employee's monthly amount for a component,
// replacing any previous assignment.
func (s *Store) AssignComponent(ctx context.Context, employeeID, componentID string, amount float64) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO employee_salary_components (employee_id, component_id, amount)
    VALUES ($1,$2,$3)
    ON CONFLICT (employee_id, component_id)
    DO UPDATE SET amount = EXCLUDED.amount
  `, employeeID, componentID, amount)
	return err
}

// EmployeeComponents loads the active salary structure for one employee.
func (s *Store) EmployeeComponents(ctx context.Context, employeeID string) ([]ComponentAmount, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT sc.id, sc.name, sc.type, esc.amount, sc.pro_ratable
    FROM employee_salary_components esc
    JOIN salary_components sc ON sc.id = esc.component_id
    WHERE esc.employee_id = $1 AND sc.is_active = true
    ORDER BY sc.type, sc.name
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ComponentAmount
	for rows.Next() {
		var c ComponentAmount
		if err := rows.Scan(&c.ComponentID, &c.Name, &c.Type, &c.Amount, &c.ProRatable); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateRun inserts the run row for a month. A duplicate month yields
// ErrConflict via the unique constraint rather than a racy pre-check.
func (s *Store) CreateRun(ctx context.Context, tx pgx.Tx, month, year int) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
    INSERT INTO payroll_runs (month, year, status)
    VALUES ($1,$2,$3)
    ON CONFLICT (month, year) DO NOTHING
    RETURNING id
  `, month, year, RunDraft).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: payroll run for %d-%02d already exists", ErrConflict, year, month)
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

const runColumns = "id, month, year, status, total_gross, total_net, created_at, finalized_at"

func (s *Store) GetRun(ctx context.Context, q querier.Querier, id string) (Run, error) {
	return s.scanRun(q.QueryRow(ctx, `
    SELECT `+runColumns+`
    FROM payroll_runs
    WHERE id = $1
  `, id), id)
}

func (s *Store) RunForUpdate(ctx context.Context, tx pgx.Tx, id string) (Run, error) {
	return s.scanRun(tx.QueryRow(ctx, `
    SELECT `+runColumns+`
    FROM payroll_runs
    WHERE id = $1
    FOR UPDATE
  `, id), id)
}

func (s *Store) scanRun(row pgx.Row, id string) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.Month, &r.Year, &r.Status, &r.TotalGross, &r.TotalNet, &r.CreatedAt, &r.FinalizedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r, fmt.Errorf("%w: payroll run %s", ErrNotFound, id)
	}
	return r, err
}

func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+runColumns+`
    FROM payroll_runs
    ORDER BY year DESC, month DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Month, &r.Year, &r.Status, &r.TotalGross, &r.TotalNet, &r.CreatedAt, &r.FinalizedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) InsertLine(ctx context.Context, tx pgx.Tx, line EmployeeLine) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
    INSERT INTO employee_payrolls
      (run_id, employee_id, days_worked, loss_of_pay_days, working_days, gross_earnings, total_deductions, net_pay)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, line.RunID, line.EmployeeID, line.DaysWorked, line.LossOfPayDays, line.WorkingDays,
		line.GrossEarnings, line.TotalDeductions, line.NetPay).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) InsertDetail(ctx context.Context, tx pgx.Tx, d Detail) error {
	_, err := tx.Exec(ctx, `
    INSERT INTO payroll_details (line_id, component_id, component_name, type, amount)
    VALUES ($1,$2,$3,$4,$5)
  `, d.LineID, d.ComponentID, d.ComponentName, d.Type, d.Amount)
	return err
}

func (s *Store) UpdateRunTotals(ctx context.Context, tx pgx.Tx, id string, gross, net float64) error {
	_, err := tx.Exec(ctx, `
    UPDATE payroll_runs SET total_gross = $2, total_net = $3 WHERE id = $1
  `, id, gross, net)
	return err
}

func (s *Store) MarkRunFinalized(ctx context.Context, tx pgx.Tx, id string) error {
	_, err := tx.Exec(ctx, `
    UPDATE payroll_runs SET status = $2, finalized_at = now() WHERE id = $1
  `, id, RunFinalized)
	return err
}

func (s *Store) CountLines(ctx context.Context, q querier.Querier, runID string) (int, error) {
	var n int
	err := q.QueryRow(ctx, "SELECT COUNT(*) FROM employee_payrolls WHERE run_id = $1", runID).Scan(&n)
	return n, err
}

// DeleteRun removes a run. Lines and details go with it through cascading
// foreign keys.
func (s *Store) DeleteRun(ctx context.Context, tx pgx.Tx, id string) error {
	_, err := tx.Exec(ctx, "DELETE FROM payroll_runs WHERE id = $1", id)
	return err
}

const lineColumns = `ep.id, ep.run_id, ep.employee_id, e.first_name || ' ' || e.last_name,
      ep.days_worked, ep.loss_of_pay_days, ep.working_days,
      ep.gross_earnings, ep.total_deductions, ep.net_pay`

func (s *Store) ListLines(ctx context.Context, runID string) ([]EmployeeLine, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+lineColumns+`
    FROM employee_payrolls ep
    JOIN employees e ON e.id = ep.employee_id
    WHERE ep.run_id = $1
    ORDER BY e.last_name, e.first_name
  `, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EmployeeLine
	for rows.Next() {
		var l EmployeeLine
		if err := rows.Scan(&l.ID, &l.RunID, &l.EmployeeID, &l.EmployeeName,
			&l.DaysWorked, &l.LossOfPayDays, &l.WorkingDays,
			&l.GrossEarnings, &l.TotalDeductions, &l.NetPay); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) GetLine(ctx context.Context, runID, employeeID string) (EmployeeLine, error) {
	var l EmployeeLine
	err := s.DB.QueryRow(ctx, `
    SELECT `+lineColumns+`
    FROM employee_payrolls ep
    JOIN employees e ON e.id = ep.employee_id
    WHERE ep.run_id = $1 AND ep.employee_id = $2
  `, runID, employeeID).Scan(&l.ID, &l.RunID, &l.EmployeeID, &l.EmployeeName,
		&l.DaysWorked, &l.LossOfPayDays, &l.WorkingDays,
		&l.GrossEarnings, &l.TotalDeductions, &l.NetPay)
	if errors.Is(err, pgx.ErrNoRows) {
		return l, fmt.Errorf("%w: no payroll line for employee %s in run %s", ErrNotFound, employeeID, runID)
	}
	return l, err
}

func (s *Store) ListDetails(ctx context.Context, lineID string) ([]Detail, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, line_id, component_id, component_name, type, amount
    FROM payroll_details
    WHERE line_id = $1
    ORDER BY type, component_name
  `, lineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.LineID, &d.ComponentID, &d.ComponentName, &d.Type, &d.Amount); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
