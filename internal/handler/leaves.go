package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/innstay/api/internal/auth"
	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/enum"
	"github.com/innstay/api/internal/listing"
	"github.com/innstay/api/internal/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// LeaveStore defines the database methods needed by leave handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type LeaveStore interface {
	CreateLeaveRequest(ctx context.Context, arg database.CreateLeaveRequestParams) (database.LeaveRequest, error)
	GetLeaveRequest(ctx context.Context, id uuid.UUID) (database.LeaveRequest, error)
	ListLeaveRequests(ctx context.Context, arg database.ListLeaveRequestsParams) ([]database.LeaveRequest, error)
	ReviewLeaveRequest(ctx context.Context, arg database.ReviewLeaveRequestParams) (database.LeaveRequest, error)
}

// LeaveHandler handles staff leave requests.
type LeaveHandler struct {
	store LeaveStore
}

// NewLeaveHandler creates a new LeaveHandler.
func NewLeaveHandler(store LeaveStore) *LeaveHandler {
	return &LeaveHandler{store: store}
}

// RegisterRoutes registers leave endpoints on the given Chi router.
// Expected to be mounted at /leaves behind Authenticate. Staff file and read
// their own requests; admins see all of them and review.
func (h *LeaveHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequireStaff)
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.UserRoleAdmin))
		r.Post("/{id}/approve", h.Approve)
		r.Post("/{id}/reject", h.Reject)
	})
}

// --- Request / Response types ---

type createLeaveRequest struct {
	LeaveType string `json:"leave_type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

type reviewLeaveRequest struct {
	Note string `json:"note"`
}

type leaveResponse struct {
	ID         uuid.UUID  `json:"id"`
	StaffID    uuid.UUID  `json:"staff_id"`
	LeaveType  string     `json:"leave_type"`
	StartDate  string     `json:"start_date"`
	EndDate    string     `json:"end_date"`
	Days       int        `json:"days"`
	Reason     *string    `json:"reason"`
	Status     string     `json:"status"`
	ReviewedBy *string    `json:"reviewed_by"`
	ReviewedAt *time.Time `json:"reviewed_at"`
	ReviewNote *string    `json:"review_note"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type leaveListResponse struct {
	Leaves []leaveResponse `json:"leaves"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func toLeaveResponse(l database.LeaveRequest) leaveResponse {
	resp := leaveResponse{
		ID:         l.ID,
		StaffID:    l.StaffID,
		LeaveType:  l.LeaveType,
		StartDate:  dateString(l.StartDate),
		EndDate:    dateString(l.EndDate),
		Reason:     textPtr(l.Reason),
		Status:     l.Status,
		ReviewedBy: uuidPtr(l.ReviewedBy),
		ReviewNote: textPtr(l.ReviewNote),
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
	if l.StartDate.Valid && l.EndDate.Valid {
		resp.Days = int(l.EndDate.Time.Sub(l.StartDate.Time).Hours()/24) + 1
	}
	if l.ReviewedAt.Valid {
		t := l.ReviewedAt.Time
		resp.ReviewedAt = &t
	}
	return resp
}

// canSee reports whether claims may read l.
func canSee(claims *auth.Claims, l database.LeaveRequest) bool {
	return claims.Role == enum.UserRoleAdmin || claims.UserID == l.StaffID
}

// --- Handlers ---

// Create handles POST /leaves. The request is filed for the caller.
func (h *LeaveHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createLeaveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	leaveType := strings.ToUpper(req.LeaveType)
	if leaveType == "" {
		writeError(w, http.StatusBadRequest, errRequired("leave_type").Error())
		return
	}
	if !enum.IsValidLeaveType(leaveType) {
		writeError(w, http.StatusBadRequest, "leave_type must be ANNUAL, SICK, UNPAID or OTHER")
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date format, use YYYY-MM-DD")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date format, use YYYY-MM-DD")
		return
	}
	if end.Time.Before(start.Time) {
		writeError(w, http.StatusBadRequest, "end_date must not be before start_date")
		return
	}

	leave, err := h.store.CreateLeaveRequest(r.Context(), database.CreateLeaveRequestParams{
		StaffID:   claims.UserID,
		LeaveType: leaveType,
		StartDate: start,
		EndDate:   end,
		Reason:    optionalText(req.Reason),
	})
	if err != nil {
		writeInternal(w, "create leave request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveResponse(leave))
}

// List handles GET /leaves. Admins may filter by staff_id; everyone else only
// sees their own requests.
func (h *LeaveHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	q := r.URL.Query()
	page := listing.ParsePage(q, defaultPageLimit, maxPageLimit)

	params := database.ListLeaveRequestsParams{
		Limit:  int32(page.Limit),
		Offset: int32(page.Offset),
	}

	if claims.Role == enum.UserRoleAdmin {
		staffID, err := optionalUUID(q.Get("staff_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid staff_id")
			return
		}
		params.StaffID = staffID
	} else {
		params.StaffID = pgtype.UUID{Bytes: claims.UserID, Valid: true}
	}

	if s := q.Get("status"); s != "" {
		status := strings.ToUpper(s)
		switch status {
		case enum.LeaveStatusPending, enum.LeaveStatusApproved, enum.LeaveStatusRejected:
		default:
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		params.Status = pgtype.Text{String: status, Valid: true}
	}

	leaves, err := h.store.ListLeaveRequests(r.Context(), params)
	if err != nil {
		writeInternal(w, "list leave requests", err)
		return
	}

	resp := make([]leaveResponse, len(leaves))
	for i, l := range leaves {
		resp[i] = toLeaveResponse(l)
	}
	writeJSON(w, http.StatusOK, leaveListResponse{
		Leaves: resp,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

// Get handles GET /leaves/{id}. Another member's request reads as not found.
func (h *LeaveHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid leave request ID")
		return
	}

	leave, err := h.store.GetLeaveRequest(r.Context(), id)
	if err == nil && !canSee(claims, leave) {
		err = pgx.ErrNoRows
	}
	if err != nil {
		notFound(w, "get leave request", err, "leave request")
		return
	}
	writeJSON(w, http.StatusOK, toLeaveResponse(leave))
}

func (h *LeaveHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, enum.LeaveStatusApproved)
}

func (h *LeaveHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, enum.LeaveStatusRejected)
}

// review moves a PENDING request to status. Reviewed requests are final.
func (h *LeaveHandler) review(w http.ResponseWriter, r *http.Request, status string) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid leave request ID")
		return
	}

	var req reviewLeaveRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	leave, err := h.store.GetLeaveRequest(r.Context(), id)
	if err != nil {
		notFound(w, "get leave request", err, "leave request")
		return
	}
	if leave.StaffID == claims.UserID {
		writeError(w, http.StatusConflict, "cannot review your own leave request")
		return
	}
	if leave.Status != enum.LeaveStatusPending {
		writeError(w, http.StatusConflict, "leave request already reviewed")
		return
	}

	updated, err := h.store.ReviewLeaveRequest(r.Context(), database.ReviewLeaveRequestParams{
		ID:         id,
		Status:     status,
		ReviewedBy: pgtype.UUID{Bytes: claims.UserID, Valid: true},
		ReviewNote: optionalText(req.Note),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusConflict, "leave request already reviewed")
			return
		}
		writeInternal(w, "review leave request", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveResponse(updated))
}
