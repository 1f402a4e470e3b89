package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"projects/internal/staff/models"
	dErrors "projects/pkg/domain-errors"
	"projects/pkg/platform/httputil"
)

// Service is the read side of the staff directory.
type Service interface {
	Employee(ctx context.Context, id int64) (*models.Employee, error)
	Department(ctx context.Context, id int64) (*models.Department, error)
	Employees(ctx context.Context, dept *models.Department) ([]*models.Employee, error)
}

// Handler exposes read-only directory lookups.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts directory endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/employees/{id}", h.HandleGetEmployee)
	r.Get("/departments/{id}", h.HandleGetDepartment)
}

// HandleGetEmployee handles GET /employees/{id}.
func (h *Handler) HandleGetEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	e, err := h.service.Employee(ctx, id)
	if err != nil {
		h.fail(ctx, w, "employee lookup failed", id, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, employeeResponse(e))
}

// HandleGetDepartment handles GET /departments/{id}, members included.
func (h *Handler) HandleGetDepartment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	d, err := h.service.Department(ctx, id)
	if err != nil {
		h.fail(ctx, w, "department lookup failed", id, err)
		return
	}
	members, err := h.service.Employees(ctx, d)
	if err != nil {
		h.fail(ctx, w, "department members lookup failed", id, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, departmentResponse(d, members))
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, id int64, err error) {
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		h.logger.ErrorContext(ctx, msg, "id", id, "error", err)
	}
	httputil.WriteError(w, err)
}
