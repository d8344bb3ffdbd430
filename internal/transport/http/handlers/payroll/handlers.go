package payrollhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"payledger/internal/domain/auth"
	"payledger/internal/domain/payroll"
	"payledger/internal/requestctx"
	"payledger/internal/transport/http/api"
	"payledger/internal/transport/http/middleware"
	"payledger/internal/transport/http/shared"
)

type Handler struct {
	Engine *payroll.Engine
	Store  *payroll.Store
}

func NewHandler(engine *payroll.Engine, store *payroll.Store) *Handler {
	return &Handler{Engine: engine, Store: store}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.With(middleware.RequireRole(auth.RoleHR)).Get("/components", h.handleListComponents)
		r.With(middleware.RequireRole(auth.RoleHR)).Post("/components", h.handleCreateComponent)
		r.With(middleware.RequireRole(auth.RoleHR)).Post("/components/assign", h.handleAssignComponent)

		r.With(middleware.RequireRole(auth.RoleHR)).Post("/runs", h.handleProcessRun)
		r.With(middleware.RequireRole(auth.RoleHR)).Get("/runs", h.handleListRuns)
		r.With(middleware.RequireRole(auth.RoleHR)).Get("/runs/{runID}", h.handleGetRun)
		r.With(middleware.RequireRole(auth.RoleHR)).Post("/runs/{runID}/finalize", h.handleFinalizeRun)
		r.With(middleware.RequireRole(auth.RoleHR)).Delete("/runs/{runID}", h.handleDeleteRun)

		r.Get("/runs/{runID}/payslips/{employeeID}", h.handlePayslip)
	})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestctx.GetRequestID(r.Context())
	switch {
	case errors.Is(err, payroll.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, payroll.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, payroll.ErrConflict):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID)
	case errors.Is(err, payroll.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}

func (h *Handler) handleListComponents(w http.ResponseWriter, r *http.Request) {
	components, err := h.Store.ListComponents(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, components, requestctx.GetRequestID(r.Context()))
}

type createComponentRequest struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	ProRatable bool   `json:"proRatable"`
}

func (h *Handler) handleCreateComponent(w http.ResponseWriter, r *http.Request) {
	var payload createComponentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	v.Required("type", payload.Type, "is required")
	v.Enum("type", payload.Type, []string{string(payroll.ComponentEarning), string(payroll.ComponentDeduction)}, "must be earning or deduction")
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}
	componentType := payroll.ComponentType(payload.Type)

	id, err := h.Store.CreateComponent(r.Context(), payroll.SalaryComponent{
		Name:       payload.Name,
		Type:       componentType,
		ProRatable: payload.ProRatable,
		IsActive:   true,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, map[string]string{"id": id}, requestctx.GetRequestID(r.Context()))
}

type assignComponentRequest struct {
	EmployeeID  string  `json:"employeeId"`
	ComponentID string  `json:"componentId"`
	Amount      float64 `json:"amount"`
}

func (h *Handler) handleAssignComponent(w http.ResponseWriter, r *http.Request) {
	var payload assignComponentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "is required")
	v.Required("componentId", payload.ComponentID, "is required")
	v.NonNegative("amount", payload.Amount, "must not be negative")
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}

	if err := h.Store.AssignComponent(r.Context(), payload.EmployeeID, payload.ComponentID, payload.Amount); err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, map[string]bool{"assigned": true}, requestctx.GetRequestID(r.Context()))
}

type processRunRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (h *Handler) handleProcessRun(w http.ResponseWriter, r *http.Request) {
	var payload processRunRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}

	run, err := h.Engine.Process(r.Context(), payload.Month, payload.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, run, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Engine.ListRuns(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, runs, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	details, err := h.Engine.GetRunDetails(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, details, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleFinalizeRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Engine.Finalize(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, run, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Delete(r.Context(), chi.URLParam(r, "runID")); err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, map[string]bool{"deleted": true}, requestctx.GetRequestID(r.Context()))
}

// Employees can only fetch their own payslip. HR can fetch anyone's.
func (h *Handler) handlePayslip(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	if user.Role != auth.RoleHR && user.EmployeeID != employeeID {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your payslip", requestctx.GetRequestID(r.Context()))
		return
	}

	runID := chi.URLParam(r, "runID")
	pdf, err := h.Engine.Payslip(r.Context(), runID, employeeID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=payslip-%s.pdf", runID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
