package attendance

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"payledger/internal/domain/leave"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// UpsertMark records or overwrites the status for one employee day.
func (s *Store) UpsertMark(ctx context.Context, m Mark) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO attendance_days (employee_id, day, status, note)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (employee_id, day)
    DO UPDATE SET status = EXCLUDED.status, note = EXCLUDED.note
    RETURNING id
  `, m.EmployeeID, leave.DateOnly(m.Day), m.Status, m.Note).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListMarks(ctx context.Context, employeeID string, from, to time.Time) ([]Mark, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, day, status, COALESCE(note, '')
    FROM attendance_days
    WHERE employee_id = $1 AND day >= $2 AND day <= $3
    ORDER BY day
  `, employeeID, leave.DateOnly(from), leave.DateOnly(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Mark
	for rows.Next() {
		var m Mark
		if err := rows.Scan(&m.ID, &m.EmployeeID, &m.Day, &m.Status, &m.Note); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) MarksByDay(ctx context.Context, employeeID string, from, to time.Time) (map[time.Time]DayStatus, error) {
	marks, err := s.ListMarks(ctx, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	out := make(map[time.Time]DayStatus, len(marks))
	for _, m := range marks {
		out[leave.DateOnly(m.Day)] = m.Status
	}
	return out, nil
}

// ApprovedLeaveWindows returns approved leave requests overlapping the
// period, with the paid flag taken from the leave type.
func (s *Store) ApprovedLeaveWindows(ctx context.Context, employeeID string, from, to time.Time) ([]LeaveWindow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT lr.start_date, lr.end_date, lt.is_paid
    FROM leave_requests lr
    JOIN leave_types lt ON lt.id = lr.leave_type_id
    WHERE lr.employee_id = $1
      AND lr.status = $2
      AND lr.start_date <= $3
      AND lr.end_date >= $4
  `, employeeID, leave.StatusApproved, leave.DateOnly(to), leave.DateOnly(from))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaveWindow
	for rows.Next() {
		var w LeaveWindow
		if err := rows.Scan(&w.Start, &w.End, &w.Paid); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
