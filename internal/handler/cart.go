package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/innstay/api/internal/cart"
	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/orderflow"
	"github.com/innstay/api/internal/service"
	"github.com/jackc/pgx/v5"
)

// CartMenuStore looks up menu items when they are added to a cart.
// Satisfied by *database.Queries.
type CartMenuStore interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
}

// CartHandler handles the guest session cart.
type CartHandler struct {
	carts  *cart.Store
	menu   CartMenuStore
	orders OrderServicer
	notify OrderNotifier
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts *cart.Store, menu CartMenuStore, orders OrderServicer, notify OrderNotifier) *CartHandler {
	return &CartHandler{carts: carts, menu: menu, orders: orders, notify: notify}
}

// RegisterRoutes registers cart endpoints on the given Chi router.
// Expected to be mounted at /cart; no authentication.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/items", h.AddItem)
	r.Delete("/{id}/items", h.Clear)
	r.Put("/{id}/items/{menuItemId}", h.SetQuantity)
	r.Delete("/{id}/items/{menuItemId}", h.RemoveItem)
	r.Post("/{id}/checkout", h.Checkout)
}

// --- Request / Response types ---

type addCartItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type checkoutRequest struct {
	TableToken   string `json:"table_token"`
	CustomerName string `json:"customer_name"`
	Notes        string `json:"notes"`
}

type cartItemResponse struct {
	MenuItemID  uuid.UUID `json:"menu_item_id"`
	Name        string    `json:"name"`
	UnitPrice   string    `json:"unit_price"`
	PrepMinutes int       `json:"prep_minutes"`
	Quantity    int       `json:"quantity"`
	Subtotal    string    `json:"subtotal"`
}

type cartResponse struct {
	ID        uuid.UUID          `json:"id"`
	Items     []cartItemResponse `json:"items"`
	Count     int                `json:"count"`
	Total     string             `json:"total"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func toCartResponse(c cart.Cart) cartResponse {
	items := make([]cartItemResponse, len(c.Items))
	for i, it := range c.Items {
		items[i] = cartItemResponse{
			MenuItemID:  it.MenuItemID,
			Name:        it.Name,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			PrepMinutes: it.PrepMinutes,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal().StringFixed(2),
		}
	}
	return cartResponse{
		ID:        c.ID,
		Items:     items,
		Count:     c.Count(),
		Total:     c.Total().StringFixed(2),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

var cartErrors = newErrorMapper().
	withAll(http.StatusNotFound, cart.ErrCartNotFound, cart.ErrItemNotFound).
	withAll(http.StatusBadRequest, cart.ErrInvalidQuantity, cart.ErrEmptyCart).
	withAll(http.StatusServiceUnavailable, cart.ErrTooManyCarts)

// --- Handlers ---

func (h *CartHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Create()
	if err != nil {
		cartErrors.write(w, "create cart", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCartResponse(c))
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cart ID")
		return
	}

	c, err := h.carts.Get(id)
	if err != nil {
		cartErrors.write(w, "get cart", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *CartHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cart ID")
		return
	}

	if err := h.carts.Delete(id); err != nil {
		cartErrors.write(w, "delete cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /cart/{id}/items. The line keeps the menu item's
// current name and price; checkout re-prices from the database.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cart ID")
		return
	}

	var req addCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	menuItemID, err := uuid.Parse(req.MenuItemID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid menu_item_id")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if _, err := h.carts.Get(id); err != nil {
		cartErrors.write(w, "get cart", err)
		return
	}

	m, err := h.menu.GetMenuItem(r.Context(), menuItemID)
	if err == nil && !m.IsAvailable {
		err = pgx.ErrNoRows
	}
	if err != nil {
		newErrorMapper().
			with(pgx.ErrNoRows, http.StatusBadRequest, service.ErrMenuItemNotFound.Error()).
			write(w, "get menu item for cart", err)
		return
	}

	c, err := h.carts.AddItem(id, cart.Item{
		MenuItemID:  m.ID,
		Name:        m.Name,
		UnitPrice:   numericToDecimal(m.Price),
		PrepMinutes: int(m.PrepMinutes),
	}, req.Quantity)
	if err != nil {
		cartErrors.write(w, "add cart item", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// SetQuantity handles PUT /cart/{id}/items/{menuItemId}. Zero removes the line.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id, menuItemID, ok := cartItemParams(w, r)
	if !ok {
		return
	}

	var req setQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity == nil {
		writeError(w, http.StatusBadRequest, errRequired("quantity").Error())
		return
	}

	c, err := h.carts.SetQuantity(id, menuItemID, *req.Quantity)
	if err != nil {
		cartErrors.write(w, "set cart quantity", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, menuItemID, ok := cartItemParams(w, r)
	if !ok {
		return
	}

	c, err := h.carts.RemoveItem(id, menuItemID)
	if err != nil {
		cartErrors.write(w, "remove cart item", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cart ID")
		return
	}

	c, err := h.carts.Clear(id)
	if err != nil {
		cartErrors.write(w, "clear cart", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// Checkout handles POST /cart/{id}/checkout. The cart becomes a PENDING
// order and is discarded.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cart ID")
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.carts.Get(id)
	if err != nil {
		cartErrors.write(w, "get cart", err)
		return
	}
	if len(c.Items) == 0 {
		cartErrors.write(w, "checkout cart", cart.ErrEmptyCart)
		return
	}

	items := make([]service.CreateOrderItemRequest, len(c.Items))
	for i, it := range c.Items {
		items[i] = service.CreateOrderItemRequest{
			MenuItemID: it.MenuItemID.String(),
			Quantity:   int32(it.Quantity),
		}
	}

	result, err := h.orders.CreateOrder(r.Context(), service.CreateOrderRequest{
		Status:       orderflow.Pending,
		TableToken:   req.TableToken,
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
		Items:        items,
	})
	if err != nil {
		createErrors.write(w, "checkout cart", err)
		return
	}

	// The order exists now, so a stale cart is only logged.
	if err := h.carts.Delete(id); err != nil && !errors.Is(err, cart.ErrCartNotFound) {
		slog.Warn("delete checked out cart", "cart_id", id, "error", err)
	}

	h.notify.OrderCreated(r.Context(), result.Order, result.Table)
	resp := toOrderResponse(result)
	resp.TrackingURL = trackingURL(result.Order.ID)
	writeJSON(w, http.StatusCreated, resp)
}

func cartItemParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cart ID")
		return uuid.Nil, uuid.Nil, false
	}
	menuItemID, err := urlUUID(r, "menuItemId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid menu item ID")
		return uuid.Nil, uuid.Nil, false
	}
	return id, menuItemID, true
}
