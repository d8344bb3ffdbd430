package leave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"payledger/internal/domain/employee"
	"payledger/internal/platform/metrics"
)

// Service drives leave requests through their lifecycle. Transitions that
// touch the ledger (approve, admin cancel of an approved request) run inside
// a single transaction so the request status and the balance never disagree.
type Service struct {
	store     *Store
	directory employee.Directory
	calc      *DayCalculator
	metrics   *metrics.Collector
	logger    *slog.Logger
}

func NewService(store *Store, directory employee.Directory, calc *DayCalculator, m *metrics.Collector, logger *slog.Logger) *Service {
	return &Service{store: store, directory: directory, calc: calc, metrics: m, logger: logger}
}

type SubmitInput struct {
	EmployeeID  string
	LeaveTypeID string
	StartDate   time.Time
	EndDate     time.Time
	Reason      string
}

// Submit creates a pending request. The balance is checked here so obviously
// doomed requests fail fast, but days are not reserved until approval, so a
// later approve may still find the balance consumed.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Request, error) {
	var req Request

	active, err := s.directory.IsActive(ctx, in.EmployeeID)
	if err != nil {
		return req, fmt.Errorf("check employee: %w", err)
	}
	if !active {
		return req, fmt.Errorf("%w: employee %s is not active", ErrValidation, in.EmployeeID)
	}

	lt, err := s.store.GetType(ctx, in.LeaveTypeID)
	if err != nil {
		return req, err
	}
	if !lt.IsActive {
		return req, fmt.Errorf("%w: leave type %s is inactive", ErrValidation, lt.Name)
	}

	days, err := s.calc.Days(ctx, in.StartDate, in.EndDate)
	if err != nil {
		return req, err
	}
	if days <= 0 {
		return req, fmt.Errorf("%w: requested range contains no working days", ErrValidation)
	}

	balance, err := s.store.GetBalance(ctx, s.store.DB, in.EmployeeID, in.LeaveTypeID, in.StartDate.Year())
	if err != nil {
		return req, err
	}
	if balance.RemainingDays < days {
		return req, fmt.Errorf("%w: %v days requested, %v remaining", ErrInsufficientBalance, days, balance.RemainingDays)
	}

	req = Request{
		EmployeeID:  in.EmployeeID,
		LeaveTypeID: in.LeaveTypeID,
		StartDate:   DateOnly(in.StartDate),
		EndDate:     DateOnly(in.EndDate),
		Days:        days,
		Status:      StatusPending,
		Reason:      in.Reason,
	}
	req.ID, err = s.store.InsertRequest(ctx, req)
	if err != nil {
		return req, fmt.Errorf("insert request: %w", err)
	}

	s.logger.Info("leave request submitted",
		"requestId", req.ID, "employeeId", req.EmployeeID, "days", days)
	return req, nil
}

// Approve debits the ledger and marks the request approved in one
// transaction. If the balance no longer covers the request the transaction
// rolls back and the request stays pending.
func (s *Service) Approve(ctx context.Context, requestID, comments string) (Request, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Request{}, err
	}
	defer tx.Rollback(ctx)

	req, err := s.store.RequestForUpdate(ctx, tx, requestID)
	if err != nil {
		return req, err
	}
	if !req.Status.CanTransitionTo(StatusApproved) {
		return req, fmt.Errorf("%w: cannot approve a %s request", ErrInvalidState, req.Status)
	}

	year := req.StartDate.Year()
	if err := s.store.DebitBalance(ctx, tx, req.EmployeeID, req.LeaveTypeID, year, req.Days); err != nil {
		return req, err
	}
	if err := s.store.SetRequestStatus(ctx, tx, req.ID, StatusApproved, comments); err != nil {
		return req, err
	}
	if err := tx.Commit(ctx); err != nil {
		return req, err
	}

	s.metrics.RecordLedgerDebit()
	req.Status = StatusApproved
	req.ApproverComments = comments
	s.logger.Info("leave request approved",
		"requestId", req.ID, "employeeId", req.EmployeeID, "days", req.Days)
	return req, nil
}

// Reject declines a pending request. The ledger is untouched.
func (s *Service) Reject(ctx context.Context, requestID, comments string) (Request, error) {
	return s.transition(ctx, requestID, StatusRejected, comments)
}

// Cancel withdraws a request. Employees may cancel their own pending
// requests. When asAdmin is set, an approved request may also be cancelled,
// which credits the debited days back to the ledger in the same transaction.
func (s *Service) Cancel(ctx context.Context, requestID, comments string, asAdmin bool) (Request, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Request{}, err
	}
	defer tx.Rollback(ctx)

	req, err := s.store.RequestForUpdate(ctx, tx, requestID)
	if err != nil {
		return req, err
	}
	if !req.Status.CanTransitionTo(StatusCancelled) {
		return req, fmt.Errorf("%w: cannot cancel a %s request", ErrInvalidState, req.Status)
	}
	if req.Status == StatusApproved {
		if !asAdmin {
			return req, fmt.Errorf("%w: only an administrator may cancel an approved request", ErrInvalidState)
		}
		year := req.StartDate.Year()
		if err := s.store.CreditBalance(ctx, tx, req.EmployeeID, req.LeaveTypeID, year, req.Days); err != nil {
			return req, err
		}
	}
	if err := s.store.SetRequestStatus(ctx, tx, req.ID, StatusCancelled, comments); err != nil {
		return req, err
	}
	if err := tx.Commit(ctx); err != nil {
		return req, err
	}

	if req.Status == StatusApproved {
		s.metrics.RecordLedgerCredit()
	}
	s.logger.Info("leave request cancelled",
		"requestId", req.ID, "employeeId", req.EmployeeID, "wasApproved", req.Status == StatusApproved)
	req.Status = StatusCancelled
	req.ApproverComments = comments
	return req, nil
}

func (s *Service) transition(ctx context.Context, requestID string, to RequestStatus, comments string) (Request, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Request{}, err
	}
	defer tx.Rollback(ctx)

	req, err := s.store.RequestForUpdate(ctx, tx, requestID)
	if err != nil {
		return req, err
	}
	if !req.Status.CanTransitionTo(to) {
		return req, fmt.Errorf("%w: cannot move a %s request to %s", ErrInvalidState, req.Status, to)
	}
	if err := s.store.SetRequestStatus(ctx, tx, req.ID, to, comments); err != nil {
		return req, err
	}
	if err := tx.Commit(ctx); err != nil {
		return req, err
	}

	req.Status = to
	req.ApproverComments = comments
	s.logger.Info("leave request updated", "requestId", req.ID, "status", to)
	return req, nil
}

func (s *Service) Get(ctx context.Context, requestID string) (Request, error) {
	return s.store.GetRequest(ctx, requestID)
}

func (s *Service) List(ctx context.Context, filter RequestFilter) ([]Request, error) {
	return s.store.ListRequests(ctx, filter)
}

// CalculateDays exposes the working-day computation for request previews.
func (s *Service) CalculateDays(ctx context.Context, start, end time.Time) (float64, error) {
	return s.calc.Days(ctx, start, end)
}
