package employee

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"payledger/internal/platform/querier"
)

// Directory is the active-employee lookup the leave and payroll services
// consume; they never reach into employee rows themselves.
type Directory interface {
	IsActive(ctx context.Context, employeeID string) (bool, error)
	ListActive(ctx context.Context) ([]Employee, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) IsActive(ctx context.Context, employeeID string) (bool, error) {
	var status string
	err := s.DB.QueryRow(ctx, "SELECT status FROM employees WHERE id = $1", employeeID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status == StatusActive, nil
}

func (s *Store) ListActive(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, first_name, last_name, email, status, created_at
    FROM employees
    WHERE status = $1
    ORDER BY last_name, first_name
  `, StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var emp Employee
		if err := rows.Scan(&emp.ID, &emp.FirstName, &emp.LastName, &emp.Email, &emp.Status, &emp.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, employeeID string) (Employee, error) {
	var emp Employee
	err := s.DB.QueryRow(ctx, `
    SELECT id, first_name, last_name, email, status, created_at
    FROM employees
    WHERE id = $1
  `, employeeID).Scan(&emp.ID, &emp.FirstName, &emp.LastName, &emp.Email, &emp.Status, &emp.CreatedAt)
	return emp, err
}
