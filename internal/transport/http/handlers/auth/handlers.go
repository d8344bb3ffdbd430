package authhandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"payledger/internal/domain/auth"
	"payledger/internal/requestctx"
	"payledger/internal/transport/http/api"
	"payledger/internal/transport/http/middleware"
)

type Handler struct {
	DB     *pgxpool.Pool
	Secret string
}

func NewHandler(db *pgxpool.Pool, secret string) *Handler {
	return &Handler{DB: db, Secret: secret}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.With(middleware.RequireAuth).Get("/me", h.handleMe)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token      string `json:"token"`
	Role       string `json:"role"`
	EmployeeID string `json:"employeeId,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}

	var id, role, hash string
	var employeeID *string
	err := h.DB.QueryRow(r.Context(), `
    SELECT id, role, password_hash, employee_id
    FROM users
    WHERE email = $1 AND is_active = true
  `, payload.Email).Scan(&id, &role, &hash, &employeeID)
	if err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestctx.GetRequestID(r.Context()))
		return
	}
	if err := auth.CheckPassword(hash, payload.Password); err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestctx.GetRequestID(r.Context()))
		return
	}

	eid := ""
	if employeeID != nil {
		eid = *employeeID
	}
	token, err := auth.GenerateToken(h.Secret, auth.Claims{UserID: id, EmployeeID: eid, Role: role}, 12*time.Hour)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "could not issue token", requestctx.GetRequestID(r.Context()))
		return
	}

	api.Success(w, loginResponse{Token: token, Role: role, EmployeeID: eid}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	api.Success(w, user, requestctx.GetRequestID(r.Context()))
}
