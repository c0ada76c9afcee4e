package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/enum"
	"github.com/innstay/api/internal/middleware"
	"github.com/innstay/api/internal/qrcode"
)

const maxQRSize = 1024

// TableStore defines the database methods needed by dining table handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	ListDiningTables(ctx context.Context) ([]database.DiningTable, error)
	GetDiningTable(ctx context.Context, id uuid.UUID) (database.DiningTable, error)
	CreateDiningTable(ctx context.Context, arg database.CreateDiningTableParams) (database.DiningTable, error)
	UpdateDiningTable(ctx context.Context, arg database.UpdateDiningTableParams) (database.DiningTable, error)
	UpdateDiningTableQRToken(ctx context.Context, arg database.UpdateDiningTableQRTokenParams) (database.DiningTable, error)
	DeleteDiningTable(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// TableHandler handles dining table endpoints and their QR codes.
type TableHandler struct {
	store   TableStore
	baseURL string
}

// NewTableHandler creates a new TableHandler. baseURL is the public frontend
// origin encoded in QR codes.
func NewTableHandler(store TableStore, baseURL string) *TableHandler {
	return &TableHandler{store: store, baseURL: baseURL}
}

// RegisterRoutes registers table endpoints on the given Chi router.
// Expected to be mounted at /tables behind Authenticate.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequireStaff)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/qr", h.QR)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.UserRoleAdmin))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/qr/regenerate", h.RegenerateQR)
	})
}

// --- Request / Response types ---

type tableRequest struct {
	Number   int32  `json:"number"`
	Capacity int32  `json:"capacity"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

type tableResponse struct {
	ID        uuid.UUID `json:"id"`
	Number    int32     `json:"number"`
	Capacity  int32     `json:"capacity"`
	Location  *string   `json:"location"`
	Status    string    `json:"status"`
	QRToken   string    `json:"qr_token"`
	MenuURL   string    `json:"menu_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *TableHandler) toResponse(t database.DiningTable) tableResponse {
	link, _ := qrcode.MenuURL(h.baseURL, int(t.Number), t.QrToken)
	return tableResponse{
		ID:        t.ID,
		Number:    t.Number,
		Capacity:  t.Capacity,
		Location:  textPtr(t.Location),
		Status:    t.Status,
		QRToken:   t.QrToken,
		MenuURL:   link,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// newQRToken returns an opaque, unguessable table token.
func newQRToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// --- Handlers ---

func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListDiningTables(r.Context())
	if err != nil {
		writeInternal(w, "list tables", err)
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = h.toResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	t, err := h.store.GetDiningTable(r.Context(), id)
	if err != nil {
		notFound(w, "get table", err, "table")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(t))
}

func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tableRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.store.CreateDiningTable(r.Context(), database.CreateDiningTableParams{
		Number:   req.Number,
		Capacity: req.Capacity,
		Location: optionalText(req.Location),
		Status:   status,
		QrToken:  newQRToken(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "table number already exists")
			return
		}
		writeInternal(w, "create table", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toResponse(t))
}

func (h *TableHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	var req tableRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.store.UpdateDiningTable(r.Context(), database.UpdateDiningTableParams{
		ID:       id,
		Number:   req.Number,
		Capacity: req.Capacity,
		Location: optionalText(req.Location),
		Status:   status,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "table number already exists")
			return
		}
		notFound(w, "update table", err, "table")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(t))
}

func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	if _, err := h.store.DeleteDiningTable(r.Context(), id); err != nil {
		notFound(w, "delete table", err, "table")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// QR handles GET /tables/{id}/qr and returns the table's QR code as PNG.
// ?size= sets the edge length in pixels.
func (h *TableHandler) QR(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	size := qrcode.DefaultSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > maxQRSize {
			writeError(w, http.StatusBadRequest, "size must be between 64 and 1024")
			return
		}
		size = n
	}

	t, err := h.store.GetDiningTable(r.Context(), id)
	if err != nil {
		notFound(w, "get table", err, "table")
		return
	}

	png, link, err := qrcode.TablePNG(h.baseURL, int(t.Number), t.QrToken, size)
	if err != nil {
		writeInternal(w, "render table qr", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", "inline; filename=\"table-"+strconv.Itoa(int(t.Number))+".png\"")
	w.Header().Set("X-Menu-URL", link)
	w.WriteHeader(http.StatusOK)
	w.Write(png) //nolint:errcheck
}

// RegenerateQR handles POST /tables/{id}/qr/regenerate. Codes printed with the
// old token stop working.
func (h *TableHandler) RegenerateQR(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	t, err := h.store.UpdateDiningTableQRToken(r.Context(), database.UpdateDiningTableQRTokenParams{
		ID:      id,
		QrToken: newQRToken(),
	})
	if err != nil {
		notFound(w, "regenerate table qr", err, "table")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(t))
}

func (req tableRequest) validate() (string, error) {
	if req.Number <= 0 {
		return "", validationError("number must be > 0")
	}
	if req.Capacity <= 0 {
		return "", validationError("capacity must be > 0")
	}
	status := strings.ToUpper(req.Status)
	if status == "" {
		status = enum.TableStatusAvailable
	}
	if !enum.IsValidTableStatus(status) {
		return "", validationError("status must be AVAILABLE, OCCUPIED or RESERVED")
	}
	return status, nil
}
