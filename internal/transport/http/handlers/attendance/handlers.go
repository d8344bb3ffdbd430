package attendancehandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"payledger/internal/domain/attendance"
	"payledger/internal/domain/auth"
	"payledger/internal/requestctx"
	"payledger/internal/transport/http/api"
	"payledger/internal/transport/http/middleware"
	"payledger/internal/transport/http/shared"
)

type Handler struct {
	Store      *attendance.Store
	Aggregator attendance.Aggregator
}

func NewHandler(store *attendance.Store, aggregator attendance.Aggregator) *Handler {
	return &Handler{Store: store, Aggregator: aggregator}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.With(middleware.RequireRole(auth.RoleManager, auth.RoleHR)).Post("/marks", h.handleUpsertMark)
		r.Get("/marks", h.handleListMarks)
		r.With(middleware.RequireRole(auth.RoleManager, auth.RoleHR)).Get("/summary", h.handleSummary)
	})
}

type markRequest struct {
	EmployeeID string `json:"employeeId"`
	Day        string `json:"day"`
	Status     string `json:"status"`
	Note       string `json:"note"`
}

func (h *Handler) handleUpsertMark(w http.ResponseWriter, r *http.Request) {
	var payload markRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	day, err := shared.ParseDate(payload.Day)
	if err != nil || day.IsZero() || payload.EmployeeID == "" {
		api.Fail(w, http.StatusBadRequest, "validation_error", "employeeId and day are required", requestctx.GetRequestID(r.Context()))
		return
	}
	status := attendance.DayStatus(payload.Status)
	if !status.Valid() {
		api.Fail(w, http.StatusBadRequest, "validation_error", "status must be present, half_day or absent", requestctx.GetRequestID(r.Context()))
		return
	}

	id, err := h.Store.UpsertMark(r.Context(), attendance.Mark{
		EmployeeID: payload.EmployeeID,
		Day:        day,
		Status:     status,
		Note:       payload.Note,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestctx.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleListMarks(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID := user.EmployeeID
	if requested := r.URL.Query().Get("employeeId"); requested != "" && user.Role != auth.RoleEmployee {
		employeeID = requested
	}
	from, to, ok := parseRange(w, r)
	if !ok {
		return
	}

	marks, err := h.Store.ListMarks(r.Context(), employeeID, from, to)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, marks, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	employeeID := r.URL.Query().Get("employeeId")
	if employeeID == "" {
		api.Fail(w, http.StatusBadRequest, "validation_error", "employeeId is required", requestctx.GetRequestID(r.Context()))
		return
	}
	from, to, ok := parseRange(w, r)
	if !ok {
		return
	}

	summary, err := h.Aggregator.Summarize(r.Context(), employeeID, from, to)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, summary, requestctx.GetRequestID(r.Context()))
}

// parseRange reads from/to query params, defaulting to the current month.
func parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := shared.ParseDate(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "validation_error", "invalid from date", requestctx.GetRequestID(r.Context()))
			return from, to, false
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := shared.ParseDate(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "validation_error", "invalid to date", requestctx.GetRequestID(r.Context()))
			return from, to, false
		}
		to = parsed
	}
	return from, to, true
}
