package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/enum"
	"github.com/innstay/api/internal/middleware"
)

// DepartmentStore defines the database methods needed by department handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type DepartmentStore interface {
	ListDepartments(ctx context.Context) ([]database.ListDepartmentsRow, error)
	GetDepartment(ctx context.Context, id uuid.UUID) (database.Department, error)
	CreateDepartment(ctx context.Context, arg database.CreateDepartmentParams) (database.Department, error)
	UpdateDepartment(ctx context.Context, arg database.UpdateDepartmentParams) (database.Department, error)
	DeleteDepartment(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// DepartmentHandler handles department CRUD endpoints.
type DepartmentHandler struct {
	store DepartmentStore
}

// NewDepartmentHandler creates a new DepartmentHandler.
func NewDepartmentHandler(store DepartmentStore) *DepartmentHandler {
	return &DepartmentHandler{store: store}
}

// RegisterRoutes registers department CRUD endpoints on the given Chi router.
// Expected to be mounted at /departments behind Authenticate. Staff can read;
// only admins write.
func (h *DepartmentHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequireStaff)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.UserRoleAdmin))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// --- Request / Response types ---

type departmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type departmentResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	StaffCount  *int64    `json:"staff_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toDepartmentResponse(d database.Department) departmentResponse {
	return departmentResponse{
		ID:          d.ID,
		Name:        d.Name,
		Description: textPtr(d.Description),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// --- Handlers ---

// List returns every department with its active staff count.
func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListDepartments(r.Context())
	if err != nil {
		writeInternal(w, "list departments", err)
		return
	}

	resp := make([]departmentResponse, len(rows))
	for i, row := range rows {
		count := row.StaffCount
		resp[i] = departmentResponse{
			ID:          row.ID,
			Name:        row.Name,
			Description: textPtr(row.Description),
			StaffCount:  &count,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DepartmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid department ID")
		return
	}

	d, err := h.store.GetDepartment(r.Context(), id)
	if err != nil {
		notFound(w, "get department", err, "department")
		return
	}
	writeJSON(w, http.StatusOK, toDepartmentResponse(d))
}

func (h *DepartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req departmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	d, err := h.store.CreateDepartment(r.Context(), database.CreateDepartmentParams{
		Name:        name,
		Description: optionalText(req.Description),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "department name already exists")
			return
		}
		writeInternal(w, "create department", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDepartmentResponse(d))
}

func (h *DepartmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid department ID")
		return
	}

	var req departmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	d, err := h.store.UpdateDepartment(r.Context(), database.UpdateDepartmentParams{
		ID:          id,
		Name:        name,
		Description: optionalText(req.Description),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "department name already exists")
			return
		}
		notFound(w, "update department", err, "department")
		return
	}
	writeJSON(w, http.StatusOK, toDepartmentResponse(d))
}

// Delete removes a department. Its staff stay, with no department.
func (h *DepartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid department ID")
		return
	}

	if _, err := h.store.DeleteDepartment(r.Context(), id); err != nil {
		notFound(w, "delete department", err, "department")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
