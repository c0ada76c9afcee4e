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
)

// MenuItemStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuItemStore interface {
	ListMenuItems(ctx context.Context) ([]database.MenuItem, error)
	ListMenuCategories(ctx context.Context) ([]database.ListMenuCategoriesRow, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// MenuItemHandler handles menu item endpoints.
type MenuItemHandler struct {
	store MenuItemStore
}

// NewMenuItemHandler creates a new MenuItemHandler.
func NewMenuItemHandler(store MenuItemStore) *MenuItemHandler {
	return &MenuItemHandler{store: store}
}

// RegisterPublicRoutes registers the guest menu. Expected to be mounted at /public.
func (h *MenuItemHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/menu-items", h.Browse)
	r.Get("/menu-items/{id}", h.Get)
	r.Get("/menu-categories", h.Categories)
}

// RegisterRoutes registers the staff endpoints. Expected to be mounted at
// /menu-items behind Authenticate.
func (h *MenuItemHandler) RegisterRoutes(r chi.Router) {
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

type menuItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       string `json:"price"`
	PrepMinutes int32  `json:"prep_minutes"`
	IsAvailable *bool  `json:"is_available"`
	ImageURL    string `json:"image_url"`
}

type menuItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Category    string    `json:"category"`
	Price       string    `json:"price"`
	PrepMinutes int32     `json:"prep_minutes"`
	IsAvailable bool      `json:"is_available"`
	ImageURL    *string   `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type menuItemListResponse struct {
	Items  []menuItemResponse `json:"items"`
	Total  int                `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:          m.ID,
		Name:        m.Name,
		Description: textPtr(m.Description),
		Category:    m.Category,
		Price:       numericToString(m.Price),
		PrepMinutes: m.PrepMinutes,
		IsAvailable: m.IsAvailable,
		ImageURL:    textPtr(m.ImageUrl),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

var menuItemSorter = listing.Sorter[database.MenuItem]{
	"price_asc": func(a, b database.MenuItem) int {
		return numericToDecimal(a.Price).Cmp(numericToDecimal(b.Price))
	},
	"price_desc": func(a, b database.MenuItem) int {
		return numericToDecimal(b.Price).Cmp(numericToDecimal(a.Price))
	},
	"name": func(a, b database.MenuItem) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	},
	"prep_time": func(a, b database.MenuItem) int {
		return cmp.Compare(a.PrepMinutes, b.PrepMinutes)
	},
}

// --- Handlers ---

// Browse handles GET /public/menu-items. Only available items are listed.
func (h *MenuItemHandler) Browse(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(m database.MenuItem) bool { return m.IsAvailable })
}

// List handles GET /menu-items.
func (h *MenuItemHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, nil)
}

func (h *MenuItemHandler) list(w http.ResponseWriter, r *http.Request, base listing.Predicate[database.MenuItem]) {
	q := r.URL.Query()
	preds := []listing.Predicate[database.MenuItem]{base}

	if s := q.Get("category"); s != "" {
		preds = append(preds, func(m database.MenuItem) bool { return strings.EqualFold(m.Category, s) })
	}
	if s := q.Get("available"); s != "" {
		want, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, errBadFilter("available").Error())
			return
		}
		preds = append(preds, func(m database.MenuItem) bool { return m.IsAvailable == want })
	}
	if s := q.Get("q"); s != "" {
		preds = append(preds, func(m database.MenuItem) bool {
			return listing.MatchesQuery(s, m.Name, m.Category, m.Description.String)
		})
	}

	items, err := h.store.ListMenuItems(r.Context())
	if err != nil {
		writeInternal(w, "list menu items", err)
		return
	}

	sorted, err := menuItemSorter.Sort(listing.Filter(items, preds...), q.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sort, use one of: "+strings.Join(menuItemSorter.Keys(), ", "))
		return
	}

	page := listing.ParsePage(q, defaultPageLimit, maxPageLimit)
	window := listing.Paginate(sorted, page)

	resp := make([]menuItemResponse, len(window))
	for i, m := range window {
		resp[i] = toMenuItemResponse(m)
	}
	writeJSON(w, http.StatusOK, menuItemListResponse{
		Items:  resp,
		Total:  len(sorted),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

// Categories handles GET /public/menu-categories.
func (h *MenuItemHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.ListMenuCategories(r.Context())
	if err != nil {
		writeInternal(w, "list menu categories", err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// Get handles GET /menu-items/{id}.
func (h *MenuItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid menu item ID")
		return
	}

	m, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		notFound(w, "get menu item", err, "menu item")
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(m))
}

// Create handles POST /menu-items.
func (h *MenuItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		PrepMinutes: p.PrepMinutes,
		IsAvailable: p.IsAvailable,
		ImageUrl:    p.ImageUrl,
	})
	if err != nil {
		writeInternal(w, "create menu item", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMenuItemResponse(m))
}

// Update handles PUT /menu-items/{id}.
func (h *MenuItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid menu item ID")
		return
	}

	var req menuItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p.ID = id

	m, err := h.store.UpdateMenuItem(r.Context(), p)
	if err != nil {
		notFound(w, "update menu item", err, "menu item")
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(m))
}

// Delete handles DELETE /menu-items/{id}. The item is hidden rather than
// removed so past orders keep their lines.
func (h *MenuItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid menu item ID")
		return
	}

	if _, err := h.store.DeleteMenuItem(r.Context(), id); err != nil {
		notFound(w, "delete menu item", err, "menu item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req menuItemRequest) toParams() (database.UpdateMenuItemParams, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return database.UpdateMenuItemParams{}, errRequired("name")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return database.UpdateMenuItemParams{}, errRequired("category")
	}
	price, err := parseMoney(req.Price)
	if err != nil {
		return database.UpdateMenuItemParams{}, validationError("price: " + err.Error())
	}
	if req.PrepMinutes < 0 {
		return database.UpdateMenuItemParams{}, validationError("prep_minutes must be >= 0")
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	return database.UpdateMenuItemParams{
		Name:        name,
		Description: optionalText(req.Description),
		Category:    category,
		Price:       decimalToNumeric(price),
		PrepMinutes: req.PrepMinutes,
		IsAvailable: available,
		ImageUrl:    optionalText(req.ImageURL),
	}, nil
}
