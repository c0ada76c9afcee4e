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
	"github.com/innstay/api/internal/listing"
	"github.com/innstay/api/internal/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

// StaffStore defines the database methods needed by staff handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type StaffStore interface {
	ListStaff(ctx context.Context, arg database.ListStaffParams) ([]database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	UpdateUser(ctx context.Context, arg database.UpdateUserParams) (database.User, error)
	SoftDeleteUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// StaffHandler handles staff account CRUD endpoints.
type StaffHandler struct {
	store StaffStore
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(store StaffStore) *StaffHandler {
	return &StaffHandler{store: store}
}

// RegisterRoutes registers staff CRUD endpoints on the given Chi router.
// Expected to be mounted at /staff behind Authenticate.
func (h *StaffHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequireRole(enum.UserRoleAdmin))
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createStaffRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	Phone        string `json:"phone"`
	DepartmentID string `json:"department_id"`
	Position     string `json:"position"`
}

type updateStaffRequest struct {
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	Phone        string `json:"phone"`
	DepartmentID string `json:"department_id"`
	Position     string `json:"position"`
}

type staffResponse struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	Phone        *string   `json:"phone"`
	DepartmentID *string   `json:"department_id"`
	Position     *string   `json:"position"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toStaffResponse(u database.User) staffResponse {
	return staffResponse{
		ID:           u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		Role:         u.Role,
		Phone:        textPtr(u.Phone),
		DepartmentID: uuidPtr(u.DepartmentID),
		Position:     textPtr(u.Position),
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// --- Handlers ---

// List returns active staff, optionally filtered by role and department.
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := listing.ParsePage(q, defaultPageLimit, maxPageLimit)
	params := database.ListStaffParams{
		Limit:  int32(page.Limit),
		Offset: int32(page.Offset),
	}

	if s := q.Get("role"); s != "" {
		role := strings.ToUpper(s)
		if !enum.IsStaffRole(role) {
			writeError(w, http.StatusBadRequest, "invalid role")
			return
		}
		params.Role = pgtype.Text{String: role, Valid: true}
	}
	if s := q.Get("department_id"); s != "" {
		dept, err := optionalUUID(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid department_id")
			return
		}
		params.DepartmentID = dept
	}

	users, err := h.store.ListStaff(r.Context(), params)
	if err != nil {
		writeInternal(w, "list staff", err)
		return
	}

	resp := make([]staffResponse, len(users))
	for i, u := range users {
		resp[i] = toStaffResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *StaffHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid staff ID")
		return
	}

	u, err := h.store.GetUserByID(r.Context(), id)
	if err == nil && !enum.IsStaffRole(u.Role) {
		err = pgx.ErrNoRows
	}
	if err != nil {
		notFound(w, "get staff", err, "staff member")
		return
	}
	writeJSON(w, http.StatusOK, toStaffResponse(u))
}

// Create adds a staff account.
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStaffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" || req.FullName == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "email, password, full_name, and role are required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	fields, err := validateStaffFields(req.Email, req.Role, req.DepartmentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeInternal(w, "create staff: hash password", err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		FullName:       strings.TrimSpace(req.FullName),
		Email:          fields.email,
		HashedPassword: string(hashed),
		Role:           fields.role,
		Phone:          optionalText(req.Phone),
		DepartmentID:   fields.department,
		Position:       optionalText(req.Position),
	})
	if err != nil {
		h.writeStoreError(w, "create staff", err)
		return
	}

	writeJSON(w, http.StatusCreated, toStaffResponse(user))
}

// Update modifies a staff account. Passwords change through the reset flow.
func (h *StaffHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid staff ID")
		return
	}

	var req updateStaffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.FullName == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "email, full_name, and role are required")
		return
	}

	fields, err := validateStaffFields(req.Email, req.Role, req.DepartmentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.store.UpdateUser(r.Context(), database.UpdateUserParams{
		ID:           id,
		FullName:     strings.TrimSpace(req.FullName),
		Email:        fields.email,
		Role:         fields.role,
		Phone:        optionalText(req.Phone),
		DepartmentID: fields.department,
		Position:     optionalText(req.Position),
	})
	if err != nil {
		h.writeStoreError(w, "update staff", err)
		return
	}

	writeJSON(w, http.StatusOK, toStaffResponse(user))
}

// Delete deactivates a staff account. Admins cannot deactivate themselves.
func (h *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid staff ID")
		return
	}

	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil && claims.UserID == id {
		writeError(w, http.StatusConflict, "cannot deactivate your own account")
		return
	}

	if _, err := h.store.SoftDeleteUser(r.Context(), id); err != nil {
		notFound(w, "delete staff", err, "staff member")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

type staffFields struct {
	email      string
	role       string
	department pgtype.UUID
}

func validateStaffFields(email, role, departmentID string) (staffFields, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return staffFields{}, validationError("invalid email format")
	}
	role = strings.ToUpper(role)
	if !enum.IsStaffRole(role) {
		return staffFields{}, validationError("role must be ADMIN, RECEPTIONIST, KITCHEN or WAITER")
	}
	dept, err := optionalUUID(departmentID)
	if err != nil {
		return staffFields{}, validationError("invalid department_id")
	}
	return staffFields{email: email, role: role, department: dept}, nil
}

func (h *StaffHandler) writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case isUniqueViolation(err):
		writeError(w, http.StatusConflict, "email already exists")
	case isForeignKeyViolation(err):
		writeError(w, http.StatusBadRequest, "department not found")
	default:
		notFound(w, op, err, "staff member")
	}
}
