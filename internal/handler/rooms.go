package handler

import (
	"cmp"
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/enum"
	"github.com/innstay/api/internal/listing"
	"github.com/innstay/api/internal/middleware"
	"github.com/shopspring/decimal"
)

// RoomStore defines the database methods needed by room handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type RoomStore interface {
	ListRooms(ctx context.Context) ([]database.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (database.Room, error)
	CreateRoom(ctx context.Context, arg database.CreateRoomParams) (database.Room, error)
	UpdateRoom(ctx context.Context, arg database.UpdateRoomParams) (database.Room, error)
	UpdateRoomStatus(ctx context.Context, arg database.UpdateRoomStatusParams) (database.Room, error)
	DeleteRoom(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// RoomHandler handles room endpoints.
type RoomHandler struct {
	store RoomStore
}

// NewRoomHandler creates a new RoomHandler.
func NewRoomHandler(store RoomStore) *RoomHandler {
	return &RoomHandler{store: store}
}

// RegisterPublicRoutes registers the guest-facing browse endpoints.
// Expected to be mounted at /public/rooms.
func (h *RoomHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/", h.Browse)
	r.Get("/{id}", h.Get)
}

// RegisterRoutes registers the staff endpoints. Expected to be mounted at
// /rooms behind Authenticate.
func (h *RoomHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequireStaff)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.UserRoleAdmin, enum.UserRoleReceptionist))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}/status", h.UpdateStatus)
	})
	r.With(middleware.RequireRole(enum.UserRoleAdmin)).Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type roomRequest struct {
	Number        string   `json:"number"`
	RoomType      string   `json:"room_type"`
	PricePerNight string   `json:"price_per_night"`
	Capacity      int32    `json:"capacity"`
	Status        string   `json:"status"`
	Description   string   `json:"description"`
	Amenities     []string `json:"amenities"`
	ImageURL      string   `json:"image_url"`
}

type roomStatusRequest struct {
	Status string `json:"status"`
}

type roomResponse struct {
	ID            uuid.UUID `json:"id"`
	Number        string    `json:"number"`
	RoomType      string    `json:"room_type"`
	PricePerNight string    `json:"price_per_night"`
	Capacity      int32     `json:"capacity"`
	Status        string    `json:"status"`
	Description   *string   `json:"description"`
	Amenities     []string  `json:"amenities"`
	ImageURL      *string   `json:"image_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type roomListResponse struct {
	Rooms  []roomResponse `json:"rooms"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func toRoomResponse(rm database.Room) roomResponse {
	amenities := rm.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	return roomResponse{
		ID:            rm.ID,
		Number:        rm.Number,
		RoomType:      rm.RoomType,
		PricePerNight: numericToString(rm.PricePerNight),
		Capacity:      rm.Capacity,
		Status:        rm.Status,
		Description:   textPtr(rm.Description),
		Amenities:     amenities,
		ImageURL:      textPtr(rm.ImageUrl),
		CreatedAt:     rm.CreatedAt,
		UpdatedAt:     rm.UpdatedAt,
	}
}

var roomSorter = listing.Sorter[database.Room]{
	"price_asc": func(a, b database.Room) int {
		return numericToDecimal(a.PricePerNight).Cmp(numericToDecimal(b.PricePerNight))
	},
	"price_desc": func(a, b database.Room) int {
		return numericToDecimal(b.PricePerNight).Cmp(numericToDecimal(a.PricePerNight))
	},
	"capacity": func(a, b database.Room) int {
		return cmp.Compare(a.Capacity, b.Capacity)
	},
	"number": func(a, b database.Room) int {
		return strings.Compare(a.Number, b.Number)
	},
}

// --- Handlers ---

// Browse handles GET /public/rooms. Rooms under maintenance are hidden.
func (h *RoomHandler) Browse(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(rm database.Room) bool { return rm.Status != enum.RoomStatusMaintenance })
}

// List handles GET /rooms.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, nil)
}

func (h *RoomHandler) list(w http.ResponseWriter, r *http.Request, base listing.Predicate[database.Room]) {
	preds, err := roomFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rooms, err := h.store.ListRooms(r.Context())
	if err != nil {
		writeInternal(w, "list rooms", err)
		return
	}

	filtered := listing.Filter(rooms, append(preds, base)...)
	sorted, err := roomSorter.Sort(filtered, r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sort, use one of: "+strings.Join(roomSorter.Keys(), ", "))
		return
	}

	page := listing.ParsePage(r.URL.Query(), defaultPageLimit, maxPageLimit)
	window := listing.Paginate(sorted, page)

	resp := make([]roomResponse, len(window))
	for i, rm := range window {
		resp[i] = toRoomResponse(rm)
	}
	writeJSON(w, http.StatusOK, roomListResponse{
		Rooms:  resp,
		Total:  len(sorted),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func roomFilters(r *http.Request) ([]listing.Predicate[database.Room], error) {
	q := r.URL.Query()
	var preds []listing.Predicate[database.Room]

	if s := q.Get("type"); s != "" {
		t := strings.ToUpper(s)
		if !enum.IsValidRoomType(t) {
			return nil, errBadFilter("type")
		}
		preds = append(preds, func(rm database.Room) bool { return rm.RoomType == t })
	}
	if s := q.Get("status"); s != "" {
		st := strings.ToUpper(s)
		if !enum.IsValidRoomStatus(st) {
			return nil, errBadFilter("status")
		}
		preds = append(preds, func(rm database.Room) bool { return rm.Status == st })
	}
	if s := q.Get("min_price"); s != "" {
		lo, err := decimal.NewFromString(s)
		if err != nil {
			return nil, errBadFilter("min_price")
		}
		preds = append(preds, func(rm database.Room) bool {
			return numericToDecimal(rm.PricePerNight).GreaterThanOrEqual(lo)
		})
	}
	if s := q.Get("max_price"); s != "" {
		hi, err := decimal.NewFromString(s)
		if err != nil {
			return nil, errBadFilter("max_price")
		}
		preds = append(preds, func(rm database.Room) bool {
			return numericToDecimal(rm.PricePerNight).LessThanOrEqual(hi)
		})
	}
	if s := q.Get("guests"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, errBadFilter("guests")
		}
		preds = append(preds, func(rm database.Room) bool { return int(rm.Capacity) >= n })
	}
	if s := q.Get("available"); s != "" {
		want, err := strconv.ParseBool(s)
		if err != nil {
			return nil, errBadFilter("available")
		}
		preds = append(preds, func(rm database.Room) bool {
			return (rm.Status == enum.RoomStatusAvailable) == want
		})
	}
	if s := q.Get("q"); s != "" {
		preds = append(preds, func(rm database.Room) bool {
			fields := append([]string{rm.Number, rm.RoomType, rm.Description.String}, rm.Amenities...)
			return listing.MatchesQuery(s, fields...)
		})
	}
	return preds, nil
}

// Get handles GET /rooms/{id} and GET /public/rooms/{id}.
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room ID")
		return
	}

	rm, err := h.store.GetRoom(r.Context(), id)
	if err != nil {
		notFound(w, "get room", err, "room")
		return
	}
	writeJSON(w, http.StatusOK, toRoomResponse(rm))
}

// Create handles POST /rooms.
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rm, err := h.store.CreateRoom(r.Context(), database.CreateRoomParams{
		Number:        params.Number,
		RoomType:      params.RoomType,
		PricePerNight: params.PricePerNight,
		Capacity:      params.Capacity,
		Status:        params.Status,
		Description:   params.Description,
		Amenities:     params.Amenities,
		ImageUrl:      params.ImageUrl,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "room number already exists")
			return
		}
		writeInternal(w, "create room", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoomResponse(rm))
}

// Update handles PUT /rooms/{id}.
func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room ID")
		return
	}

	var req roomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	params.ID = id

	rm, err := h.store.UpdateRoom(r.Context(), params)
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "room number already exists")
			return
		}
		notFound(w, "update room", err, "room")
		return
	}
	writeJSON(w, http.StatusOK, toRoomResponse(rm))
}

// UpdateStatus handles PATCH /rooms/{id}/status.
func (h *RoomHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room ID")
		return
	}

	var req roomStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status := strings.ToUpper(req.Status)
	if !enum.IsValidRoomStatus(status) {
		writeError(w, http.StatusBadRequest, "status must be AVAILABLE, OCCUPIED or MAINTENANCE")
		return
	}

	rm, err := h.store.UpdateRoomStatus(r.Context(), database.UpdateRoomStatusParams{ID: id, Status: status})
	if err != nil {
		notFound(w, "update room status", err, "room")
		return
	}
	writeJSON(w, http.StatusOK, toRoomResponse(rm))
}

// Delete handles DELETE /rooms/{id}. Rooms with bookings cannot be removed.
func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room ID")
		return
	}

	if _, err := h.store.DeleteRoom(r.Context(), id); err != nil {
		if isForeignKeyViolation(err) {
			writeError(w, http.StatusConflict, "room has bookings; set it to MAINTENANCE instead")
			return
		}
		notFound(w, "delete room", err, "room")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// toParams validates the request. The returned params have no ID.
func (req roomRequest) toParams() (database.UpdateRoomParams, error) {
	number := strings.TrimSpace(req.Number)
	if number == "" {
		return database.UpdateRoomParams{}, errRequired("number")
	}
	roomType := strings.ToUpper(req.RoomType)
	if !enum.IsValidRoomType(roomType) {
		return database.UpdateRoomParams{}, validationError("room_type must be SINGLE, DOUBLE, SUITE or DELUXE")
	}
	price, err := parseMoney(req.PricePerNight)
	if err != nil {
		return database.UpdateRoomParams{}, validationError("price_per_night: " + err.Error())
	}
	if req.Capacity <= 0 {
		return database.UpdateRoomParams{}, validationError("capacity must be > 0")
	}
	status := strings.ToUpper(req.Status)
	if status == "" {
		status = enum.RoomStatusAvailable
	}
	if !enum.IsValidRoomStatus(status) {
		return database.UpdateRoomParams{}, validationError("status must be AVAILABLE, OCCUPIED or MAINTENANCE")
	}

	amenities := make([]string, 0, len(req.Amenities))
	for _, a := range req.Amenities {
		if a = strings.TrimSpace(a); a != "" {
			amenities = append(amenities, a)
		}
	}

	return database.UpdateRoomParams{
		Number:        number,
		RoomType:      roomType,
		PricePerNight: decimalToNumeric(price),
		Capacity:      req.Capacity,
		Status:        status,
		Description:   optionalText(req.Description),
		Amenities:     amenities,
		ImageUrl:      optionalText(req.ImageURL),
	}, nil
}
