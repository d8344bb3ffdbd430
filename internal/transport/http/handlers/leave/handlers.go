package leavehandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"payledger/internal/domain/auth"
	"payledger/internal/domain/leave"
	"payledger/internal/requestctx"
	"payledger/internal/transport/http/api"
	"payledger/internal/transport/http/middleware"
	"payledger/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
	Ledger  *leave.Ledger
	Store   *leave.Store
}

func NewHandler(service *leave.Service, ledger *leave.Ledger, store *leave.Store) *Handler {
	return &Handler{Service: service, Ledger: ledger, Store: store}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/types", h.handleListTypes)
		r.With(middleware.RequireRole(auth.RoleHR)).Post("/types", h.handleCreateType)

		r.Get("/holidays", h.handleListHolidays)
		r.With(middleware.RequireRole(auth.RoleHR)).Post("/holidays", h.handleCreateHoliday)
		r.With(middleware.RequireRole(auth.RoleHR)).Delete("/holidays/{holidayID}", h.handleDeleteHoliday)

		r.Get("/balances", h.handleListBalances)
		r.With(middleware.RequireRole(auth.RoleHR)).Post("/balances/initialize", h.handleInitializeBalances)

		r.Get("/days", h.handleCalculateDays)

		r.Post("/requests", h.handleSubmitRequest)
		r.Get("/requests", h.handleListRequests)
		r.Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequireRole(auth.RoleManager, auth.RoleHR)).Post("/requests/{requestID}/approve", h.handleApprove)
		r.With(middleware.RequireRole(auth.RoleManager, auth.RoleHR)).Post("/requests/{requestID}/reject", h.handleReject)
		r.Post("/requests/{requestID}/cancel", h.handleCancel)
	})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestctx.GetRequestID(r.Context())
	switch {
	case errors.Is(err, leave.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, leave.ErrInsufficientBalance):
		api.Fail(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error(), requestID)
	case errors.Is(err, leave.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ListTypes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, types, requestctx.GetRequestID(r.Context()))
}

type createTypeRequest struct {
	Name               string  `json:"name"`
	DefaultDaysPerYear float64 `json:"defaultDaysPerYear"`
	IsPaid             bool    `json:"isPaid"`
}

func (h *Handler) handleCreateType(w http.ResponseWriter, r *http.Request) {
	var payload createTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	v.NonNegative("defaultDaysPerYear", payload.DefaultDaysPerYear, "must not be negative")
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Store.CreateType(r.Context(), leave.LeaveType{
		Name:               payload.Name,
		DefaultDaysPerYear: payload.DefaultDaysPerYear,
		IsPaid:             payload.IsPaid,
		IsActive:           true,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, map[string]string{"id": id}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, holidays, requestctx.GetRequestID(r.Context()))
}

type createHolidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

func (h *Handler) handleCreateHoliday(w http.ResponseWriter, r *http.Request) {
	var payload createHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	day, _ := v.Date("date", payload.Date)
	v.Required("name", payload.Name, "is required")
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Store.CreateHoliday(r.Context(), day, payload.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, map[string]string{"id": id}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "holidayID")); err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, map[string]bool{"deleted": true}, requestctx.GetRequestID(r.Context()))
}

// Employees see their own balances. HR may pass employeeId to inspect anyone.
func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID := user.EmployeeID
	if requested := r.URL.Query().Get("employeeId"); requested != "" && user.Role == auth.RoleHR {
		employeeID = requested
	}
	if employeeID == "" {
		api.Fail(w, http.StatusBadRequest, "validation_error", "no employee record for this user", requestctx.GetRequestID(r.Context()))
		return
	}
	year := time.Now().UTC().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := time.Parse("2006", raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "validation_error", "invalid year", requestctx.GetRequestID(r.Context()))
			return
		}
		year = parsed.Year()
	}

	balances, err := h.Ledger.List(r.Context(), employeeID, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, balances, requestctx.GetRequestID(r.Context()))
}

type initializeBalancesRequest struct {
	EmployeeID string `json:"employeeId"`
	Year       int    `json:"year"`
}

// With an employeeId the call seeds one employee, otherwise every active
// employee. Existing rows are never modified.
func (h *Handler) handleInitializeBalances(w http.ResponseWriter, r *http.Request) {
	var payload initializeBalancesRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	if payload.Year == 0 {
		payload.Year = time.Now().UTC().Year()
	}

	if payload.EmployeeID != "" {
		balances, err := h.Ledger.Initialize(r.Context(), payload.EmployeeID, payload.Year)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.Created(w, balances, requestctx.GetRequestID(r.Context()))
		return
	}

	count, err := h.Ledger.InitializeAll(r.Context(), payload.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, map[string]int{"employeesInitialized": count}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleCalculateDays(w http.ResponseWriter, r *http.Request) {
	start, err := shared.ParseDate(r.URL.Query().Get("start"))
	if err != nil || start.IsZero() {
		api.Fail(w, http.StatusBadRequest, "validation_error", "start is required", requestctx.GetRequestID(r.Context()))
		return
	}
	end, err := shared.ParseDate(r.URL.Query().Get("end"))
	if err != nil || end.IsZero() {
		api.Fail(w, http.StatusBadRequest, "validation_error", "end is required", requestctx.GetRequestID(r.Context()))
		return
	}

	days, err := h.Service.CalculateDays(r.Context(), start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, map[string]float64{"days": days}, requestctx.GetRequestID(r.Context()))
}

type submitRequest struct {
	LeaveTypeID string `json:"leaveTypeId"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Reason      string `json:"reason"`
}

func (h *Handler) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if user.EmployeeID == "" {
		api.Fail(w, http.StatusBadRequest, "validation_error", "no employee record for this user", requestctx.GetRequestID(r.Context()))
		return
	}

	var payload submitRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("leaveTypeId", payload.LeaveTypeID, "is required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}

	req, err := h.Service.Submit(r.Context(), leave.SubmitInput{
		EmployeeID:  user.EmployeeID,
		LeaveTypeID: payload.LeaveTypeID,
		StartDate:   start,
		EndDate:     end,
		Reason:      payload.Reason,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, req, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 20, 100)

	filter := leave.RequestFilter{
		EmployeeID: user.EmployeeID,
		Status:     leave.RequestStatus(r.URL.Query().Get("status")),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
	if user.Role == auth.RoleHR || user.Role == auth.RoleManager {
		filter.EmployeeID = r.URL.Query().Get("employeeId")
	} else if filter.EmployeeID == "" {
		api.Fail(w, http.StatusBadRequest, "validation_error", "no employee record for this user", requestctx.GetRequestID(r.Context()))
		return
	}
	if filter.Status != "" && !filter.Status.Valid() {
		api.Fail(w, http.StatusBadRequest, "validation_error", "unknown status filter", requestctx.GetRequestID(r.Context()))
		return
	}

	requests, err := h.Service.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, requests, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Service.Get(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, _ := middleware.GetUser(r.Context())
	if user.Role == auth.RoleEmployee && req.EmployeeID != user.EmployeeID {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your request", requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, req, requestctx.GetRequestID(r.Context()))
}

type decisionRequest struct {
	Comments string `json:"comments"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	var payload decisionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
			return
		}
	}
	req, err := h.Service.Approve(r.Context(), chi.URLParam(r, "requestID"), payload.Comments)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, req, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	var payload decisionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
			return
		}
	}
	req, err := h.Service.Reject(r.Context(), chi.URLParam(r, "requestID"), payload.Comments)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, req, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	req, err := h.Service.Get(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user.Role == auth.RoleEmployee && req.EmployeeID != user.EmployeeID {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your request", requestctx.GetRequestID(r.Context()))
		return
	}

	var payload decisionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
			return
		}
	}

	updated, err := h.Service.Cancel(r.Context(), req.ID, payload.Comments, user.Role == auth.RoleHR)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, updated, requestctx.GetRequestID(r.Context()))
}
