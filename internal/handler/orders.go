package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/enum"
	"github.com/innstay/api/internal/events"
	"github.com/innstay/api/internal/listing"
	"github.com/innstay/api/internal/middleware"
	"github.com/innstay/api/internal/orderflow"
	"github.com/innstay/api/internal/service"
	"github.com/innstay/api/internal/tracking"
	"github.com/innstay/api/internal/ws"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const eventTrackingTick = "tracking.tick"

// OrderServicer is the order creation logic the handlers need.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderStore defines the database methods needed by order handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListActiveOrders(ctx context.Context) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	ListPayments(ctx context.Context, arg database.ListPaymentsParams) ([]database.Payment, error)
}

// OrderHandler handles restaurant order endpoints.
type OrderHandler struct {
	svc    OrderServicer
	store  OrderStore
	notify OrderNotifier
	hub    *ws.Hub
	loc    *time.Location
	now    func() time.Time
	tick   time.Duration
}

// NewOrderHandler creates a new OrderHandler. hub may be nil, in which case
// the tracking stream is unavailable. Date filters are read as days in loc;
// nil means UTC.
func NewOrderHandler(svc OrderServicer, store OrderStore, notify OrderNotifier, hub *ws.Hub, loc *time.Location) *OrderHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderHandler{
		svc:    svc,
		store:  store,
		notify: notify,
		hub:    hub,
		loc:    loc,
		now:    time.Now,
		tick:   time.Second,
	}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders. Tracking is public so the guest page can
// poll it; everything else goes through authn and is staff only.
func (h *OrderHandler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Get("/{id}/tracking", h.Tracking)

	r.Group(func(r chi.Router) {
		r.Use(authn, middleware.RequireStaff)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Get("/{id}/actions", h.Actions)
		r.Post("/{id}/status", h.UpdateStatus)
		r.With(middleware.RequireRole(enum.UserRoleWaiter, enum.UserRoleReceptionist, enum.UserRoleAdmin)).
			Post("/", h.Create)
	})
}

// RegisterKitchenRoutes registers the kitchen board. Expected to be mounted
// at /kitchen behind Authenticate.
func (h *OrderHandler) RegisterKitchenRoutes(r chi.Router) {
	r.Use(middleware.RequireStaff)
	r.Get("/orders", h.Kitchen)
}

// RegisterPublicRoutes registers the QR ordering endpoint. Expected to be
// mounted at /public.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/orders", h.CreateGuest)
}

// --- Request / Response types ---

type orderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
	Notes      string `json:"notes"`
}

type createOrderRequest struct {
	TableID      string             `json:"table_id"`
	CustomerName string             `json:"customer_name"`
	Notes        string             `json:"notes"`
	Items        []orderItemRequest `json:"items"`
}

type guestOrderRequest struct {
	TableToken   string             `json:"table_token"`
	CustomerName string             `json:"customer_name"`
	Notes        string             `json:"notes"`
	Items        []orderItemRequest `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Action string `json:"action"`
}

type orderItemResponse struct {
	ID         uuid.UUID `json:"id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Name       string    `json:"name"`
	Quantity   int32     `json:"quantity"`
	UnitPrice  string    `json:"unit_price"`
	Subtotal   string    `json:"subtotal"`
	Notes      *string   `json:"notes"`
}

type orderResponse struct {
	ID               uuid.UUID           `json:"id"`
	OrderNumber      string              `json:"order_number"`
	TableID          *string             `json:"table_id"`
	TableNumber      *int32              `json:"table_number,omitempty"`
	CustomerName     *string             `json:"customer_name"`
	Status           string              `json:"status"`
	Notes            *string             `json:"notes"`
	Subtotal         string              `json:"subtotal"`
	TotalAmount      string              `json:"total_amount"`
	EstimatedMinutes int32               `json:"estimated_minutes"`
	CreatedBy        *string             `json:"created_by"`
	StatusChangedAt  time.Time           `json:"status_changed_at"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	Items            []orderItemResponse `json:"items,omitempty"`
	Payments         []paymentResponse   `json:"payments,omitempty"`
	Actions          []orderflow.Action  `json:"actions,omitempty"`
	TrackingURL      string              `json:"tracking_url,omitempty"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type kitchenBoardResponse struct {
	Orders      []orderResponse `json:"orders"`
	GeneratedAt time.Time       `json:"generated_at"`
}

type actionsResponse struct {
	Status  string             `json:"status"`
	Actions []orderflow.Action `json:"actions"`
}

type trackingResponse struct {
	OrderID          uuid.UUID `json:"order_id"`
	OrderNumber      string    `json:"order_number"`
	Status           string    `json:"status"`
	EstimatedMinutes int32     `json:"estimated_minutes"`
	tracking.Snapshot
}

func dbOrderToResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		TableID:          uuidPtr(o.TableID),
		CustomerName:     textPtr(o.CustomerName),
		Status:           o.Status,
		Notes:            textPtr(o.Notes),
		Subtotal:         numericToString(o.Subtotal),
		TotalAmount:      numericToString(o.TotalAmount),
		EstimatedMinutes: o.EstimatedMinutes,
		CreatedBy:        uuidPtr(o.CreatedBy),
		StatusChangedAt:  o.StatusChangedAt,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func dbOrderItemToResponse(i database.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:         i.ID,
		MenuItemID: i.MenuItemID,
		Name:       i.Name,
		Quantity:   i.Quantity,
		UnitPrice:  numericToString(i.UnitPrice),
		Subtotal:   numericToString(i.Subtotal),
		Notes:      textPtr(i.Notes),
	}
}

func toOrderResponse(result *service.CreateOrderResult) orderResponse {
	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = dbOrderItemToResponse(item)
	}
	if result.Table != nil {
		n := result.Table.Number
		resp.TableNumber = &n
	}
	return resp
}

func toServiceItems(items []orderItemRequest) []service.CreateOrderItemRequest {
	out := make([]service.CreateOrderItemRequest, len(items))
	for i, it := range items {
		out[i] = service.CreateOrderItemRequest{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			Notes:      it.Notes,
		}
	}
	return out
}

func trackingURL(id uuid.UUID) string {
	return "/orders/" + id.String() + "/tracking"
}

// trackingSnapshot is the countdown for o at now. Cancelled orders stop at
// zero with their own label.
func trackingSnapshot(o database.Order, now time.Time) tracking.Snapshot {
	snap := tracking.Compute(o.CreatedAt, int(o.EstimatedMinutes), now)
	if o.Status == enum.OrderStatusCancelled {
		snap.RemainingSeconds = 0
		snap.Progress = 1
		snap.Label = tracking.LabelCancelled
	}
	return snap
}

func toTrackingResponse(o database.Order, snap tracking.Snapshot) trackingResponse {
	return trackingResponse{
		OrderID:          o.ID,
		OrderNumber:      o.OrderNumber,
		Status:           o.Status,
		EstimatedMinutes: o.EstimatedMinutes,
		Snapshot:         snap,
	}
}

// createErrors maps order service validation failures to 400.
var createErrors = newErrorMapper().withAll(http.StatusBadRequest,
	service.ErrEmptyItems,
	service.ErrInvalidQuantity,
	service.ErrInvalidMenuItemID,
	service.ErrMenuItemNotFound,
	service.ErrInvalidTableID,
	service.ErrTableNotFound,
	service.ErrInvalidTableToken,
	service.ErrInvalidStartStatus,
)

var transitionErrors = newErrorMapper().
	withAll(http.StatusBadRequest, orderflow.ErrUnknownAction, orderflow.ErrUnknownStatus).
	withAll(http.StatusConflict, orderflow.ErrInvalidTransition, orderflow.ErrTerminalStatus).
	withAll(http.StatusForbidden, orderflow.ErrForbiddenAction)

// --- Handlers ---

// Create handles POST /orders. Staff orders skip the PENDING step.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		CreatedBy:    claims.UserID,
		Status:       orderflow.New,
		TableID:      req.TableID,
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
		Items:        toServiceItems(req.Items),
	})
	if err != nil {
		createErrors.write(w, "create order", err)
		return
	}

	h.notify.OrderCreated(r.Context(), result.Order, result.Table)
	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

// CreateGuest handles POST /public/orders, the QR table flow. The order waits
// in PENDING until a waiter accepts it.
func (h *OrderHandler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	var req guestOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TableToken == "" {
		writeError(w, http.StatusBadRequest, errRequired("table_token").Error())
		return
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		Status:       orderflow.Pending,
		TableToken:   req.TableToken,
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
		Items:        toServiceItems(req.Items),
	})
	if err != nil {
		createErrors.write(w, "create guest order", err)
		return
	}

	h.notify.OrderCreated(r.Context(), result.Order, result.Table)
	resp := toOrderResponse(result)
	resp.TrackingURL = trackingURL(result.Order.ID)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /orders with optional status, table_id, start_date and
// end_date filters. Dates are whole days in the handler's location, end
// inclusive.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := listing.ParsePage(q, defaultPageLimit, maxPageLimit)
	params := database.ListOrdersParams{
		Limit:  int32(page.Limit),
		Offset: int32(page.Offset),
	}

	if s := q.Get("status"); s != "" {
		status, err := orderflow.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		params.Status = pgtype.Text{String: status.String(), Valid: true}
	}
	if s := q.Get("table_id"); s != "" {
		tableID, err := optionalUUID(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid table_id")
			return
		}
		params.TableID = tableID
	}
	if s := q.Get("start_date"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, h.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date format, use YYYY-MM-DD")
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := q.Get("end_date"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, h.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date format, use YYYY-MM-DD")
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t.AddDate(0, 0, 1), Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		writeInternal(w, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

// Get handles GET /orders/{id} and returns the order with its items,
// payments and the caller's next actions.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		notFound(w, "get order", err, "order")
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), id)
	if err != nil {
		writeInternal(w, "list order items", err)
		return
	}

	payments, err := h.store.ListPayments(r.Context(), database.ListPaymentsParams{
		OrderID: pgtype.UUID{Bytes: id, Valid: true},
		Limit:   maxPageLimit,
	})
	if err != nil {
		writeInternal(w, "list order payments", err)
		return
	}

	resp := dbOrderToResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = dbOrderItemToResponse(item)
	}
	resp.Payments = make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp.Payments[i] = toPaymentResponse(p)
	}
	resp.Actions = h.actionsFor(r.Context(), order.Status)
	writeJSON(w, http.StatusOK, resp)
}

// Actions handles GET /orders/{id}/actions.
func (h *OrderHandler) Actions(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		notFound(w, "get order", err, "order")
		return
	}

	actions := h.actionsFor(r.Context(), order.Status)
	if actions == nil {
		actions = []orderflow.Action{}
	}
	writeJSON(w, http.StatusOK, actionsResponse{Status: order.Status, Actions: actions})
}

func (h *OrderHandler) actionsFor(ctx context.Context, status string) []orderflow.Action {
	claims := middleware.ClaimsFromContext(ctx)
	s, err := orderflow.Parse(status)
	if err != nil || claims == nil {
		return nil
	}
	return orderflow.ActionsFor(s, claims.Role)
}

// UpdateStatus handles POST /orders/{id}/status. The body names either the
// target status or the action; both go through the role check. The update
// only applies if nobody changed the order since it was read.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if (req.Status == "") == (req.Action == "") {
		writeError(w, http.StatusBadRequest, "provide exactly one of status or action")
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		notFound(w, "get order", err, "order")
		return
	}

	current, err := orderflow.Parse(order.Status)
	if err != nil {
		writeInternal(w, "parse stored order status", err)
		return
	}

	action := req.Action
	if req.Status != "" {
		target, err := orderflow.Parse(req.Status)
		if err != nil {
			transitionErrors.write(w, "update order status", err)
			return
		}
		a, err := orderflow.ActionFor(current, target)
		if err != nil {
			transitionErrors.write(w, "update order status", err)
			return
		}
		action = a.Name
	}

	next, err := orderflow.Apply(current, action, claims.Role)
	if err != nil {
		transitionErrors.write(w, "update order status", err)
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:             id,
		Status:         next.String(),
		ExpectedStatus: current.String(),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusConflict, "order was changed by someone else, reload and retry")
			return
		}
		writeInternal(w, "update order status", err)
		return
	}

	slog.InfoContext(r.Context(), "order status changed",
		"order_id", id, "from", current, "to", next, "by", claims.UserID)
	h.notify.OrderStatusChanged(r.Context(), updated, current.String())

	resp := dbOrderToResponse(updated)
	resp.Actions = orderflow.ActionsFor(next, claims.Role)
	writeJSON(w, http.StatusOK, resp)
}

// Kitchen handles GET /kitchen/orders: every open order, oldest first, with
// its items and the caller's next actions.
func (h *OrderHandler) Kitchen(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListActiveOrders(r.Context())
	if err != nil {
		writeInternal(w, "list active orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		items, err := h.store.ListOrderItemsByOrder(r.Context(), o.ID)
		if err != nil {
			writeInternal(w, "list order items", err)
			return
		}
		resp[i] = dbOrderToResponse(o)
		resp[i].Items = make([]orderItemResponse, len(items))
		for j, item := range items {
			resp[i].Items[j] = dbOrderItemToResponse(item)
		}
		resp[i].Actions = h.actionsFor(r.Context(), o.Status)
	}

	writeJSON(w, http.StatusOK, kitchenBoardResponse{Orders: resp, GeneratedAt: h.now().UTC()})
}

// Tracking handles GET /orders/{id}/tracking. Order ids are unguessable, so
// the endpoint is public.
func (h *OrderHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		notFound(w, "get order", err, "order")
		return
	}

	writeJSON(w, http.StatusOK, toTrackingResponse(order, trackingSnapshot(order, h.now())))
}

// TrackingStream handles WS /ws/orders/{id}/tracking. The socket receives a
// snapshot every tick until the countdown ends, plus the order's status
// events. A cancellation ends the stream with the cancelled snapshot.
func (h *OrderHandler) TrackingStream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "realtime updates unavailable")
		return
	}

	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	// Watch before reading so a status change in between is not missed.
	updates, stop := h.hub.Watch(ws.OrderTopic(id))

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		stop()
		notFound(w, "get order", err, "order")
		return
	}

	client, err := ws.Subscribe(h.hub, ws.OrderTopic(order.ID), w, r)
	if err != nil {
		stop()
		slog.Error("tracking websocket upgrade", "order_id", id, "error", err)
		return
	}

	go h.streamTracking(client, order, updates, stop)
}

// streamTracking outlives the request, so it stops on client disconnect
// rather than on the request context.
func (h *OrderHandler) streamTracking(client *ws.Client, order database.Order, updates <-chan ws.Event, stop func()) {
	defer stop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	current := order

	send := func(snap tracking.Snapshot) error {
		mu.Lock()
		o := current
		mu.Unlock()
		if o.Status == enum.OrderStatusCancelled {
			snap = trackingSnapshot(o, h.now())
		}
		ev, err := ws.NewEvent(eventTrackingTick, toTrackingResponse(o, snap))
		if err != nil {
			return err
		}
		h.hub.SendTo(client, ev)
		return nil
	}

	if order.Status == enum.OrderStatusCancelled {
		if err := send(tracking.Snapshot{}); err != nil {
			slog.Error("send tracking snapshot", "order_id", order.ID, "error", err)
		}
		return
	}

	go func() {
		defer cancel()
		for {
			select {
			case <-client.Done():
				return
			case <-ctx.Done():
				return
			case ev, ok := <-updates:
				if !ok {
					return
				}
				if ev.Type != events.EventOrderStatusChanged {
					continue
				}
				latest, err := h.store.GetOrder(ctx, order.ID)
				if err != nil {
					slog.Warn("reload tracked order", "order_id", order.ID, "error", err)
					continue
				}
				mu.Lock()
				current = latest
				mu.Unlock()
				if latest.Status == enum.OrderStatusCancelled {
					if err := send(tracking.Snapshot{}); err != nil {
						slog.Error("send tracking snapshot", "order_id", order.ID, "error", err)
					}
					return
				}
			}
		}
	}()

	countdown := tracking.New(order.CreatedAt, int(order.EstimatedMinutes), h.now())
	if err := countdown.Run(ctx, h.tick, send); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("tracking stream stopped", "order_id", order.ID, "error", err)
	}
}
