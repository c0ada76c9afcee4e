package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/enum"
	"github.com/innstay/api/internal/listing"
	"github.com/innstay/api/internal/middleware"
	"github.com/innstay/api/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// PaymentStore defines the database methods needed by payment handlers.
type PaymentStore interface {
	ListPayments(ctx context.Context, arg database.ListPaymentsParams) ([]database.Payment, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetBookingForUpdate(ctx context.Context, id uuid.UUID) (database.Booking, error)
	SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error)
	SumPaymentsByBooking(ctx context.Context, bookingID uuid.UUID) (pgtype.Numeric, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
}

// NewPaymentStore creates a PaymentStore from a DBTX (pool or tx).
type NewPaymentStore func(db database.DBTX) PaymentStore

// PaymentHandler handles payment endpoints for orders and bookings.
type PaymentHandler struct {
	store    PaymentStore
	pool     service.TxBeginner
	newStore NewPaymentStore
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(store PaymentStore, pool service.TxBeginner, newStore NewPaymentStore) *PaymentHandler {
	return &PaymentHandler{store: store, pool: pool, newStore: newStore}
}

// RegisterRoutes registers payment endpoints on the given Chi router.
// Expected to be mounted at /payments behind Authenticate.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireRole(enum.UserRoleReceptionist, enum.UserRoleAdmin)).
		Get("/", h.List)
	r.With(middleware.RequireRole(enum.UserRoleReceptionist, enum.UserRoleAdmin, enum.UserRoleWaiter)).
		Post("/", h.Create)
}

// --- Request / Response types ---

type createPaymentRequest struct {
	OrderID        string `json:"order_id"`
	BookingID      string `json:"booking_id"`
	Method         string `json:"method"`
	Amount         string `json:"amount"`
	AmountReceived string `json:"amount_received"`
	Reference      string `json:"reference"`
}

type paymentResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     *string   `json:"order_id"`
	BookingID   *string   `json:"booking_id"`
	Method      string    `json:"method"`
	Amount      string    `json:"amount"`
	Reference   *string   `json:"reference"`
	ProcessedBy uuid.UUID `json:"processed_by"`
	ProcessedAt time.Time `json:"processed_at"`
}

type balanceResponse struct {
	Total     string `json:"total"`
	Paid      string `json:"paid"`
	Remaining string `json:"remaining"`
}

type createPaymentResponse struct {
	Payment paymentResponse `json:"payment"`
	Balance balanceResponse `json:"balance"`
	Change  *string         `json:"change,omitempty"`
}

type paymentListResponse struct {
	Payments []paymentResponse `json:"payments"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

func toPaymentResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		OrderID:     uuidPtr(p.OrderID),
		BookingID:   uuidPtr(p.BookingID),
		Method:      p.Method,
		Amount:      numericToString(p.Amount),
		Reference:   textPtr(p.Reference),
		ProcessedBy: p.ProcessedBy,
		ProcessedAt: p.ProcessedAt,
	}
}

// paymentTarget is the locked order or booking a payment settles.
type paymentTarget struct {
	kind      string
	cancelled bool
	total     decimal.Decimal
	paid      decimal.Decimal
}

// --- Handlers ---

// Create handles POST /payments. The order or booking row is locked so
// concurrent payments cannot overpay it.
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if (req.OrderID == "") == (req.BookingID == "") {
		writeError(w, http.StatusBadRequest, "exactly one of order_id or booking_id is required")
		return
	}
	orderID, err := optionalUUID(req.OrderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order_id")
		return
	}
	bookingID, err := optionalUUID(req.BookingID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking_id")
		return
	}
	if bookingID.Valid && claims.Role == enum.UserRoleWaiter {
		writeError(w, http.StatusForbidden, "waiters can only take order payments")
		return
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		writeError(w, http.StatusBadRequest, errRequired("method").Error())
		return
	}
	if !enum.IsValidPaymentMethod(method) {
		writeError(w, http.StatusBadRequest, "method must be CASH, CARD, TRANSFER or QRIS")
		return
	}

	if req.Amount == "" {
		writeError(w, http.StatusBadRequest, errRequired("amount").Error())
		return
	}
	amount, err := parseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var change *string
	if req.AmountReceived != "" {
		if method != enum.PaymentMethodCash {
			writeError(w, http.StatusBadRequest, "amount_received only applies to CASH payments")
			return
		}
		received, err := decimal.NewFromString(req.AmountReceived)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount_received")
			return
		}
		if received.LessThan(amount) {
			writeError(w, http.StatusBadRequest, "amount_received must be >= amount")
			return
		}
		c := received.Sub(amount).StringFixed(2)
		change = &c
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		writeInternal(w, "begin tx for create payment", err)
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck

	txStore := h.newStore(tx)

	target, err := h.lockTarget(r.Context(), txStore, orderID, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if orderID.Valid {
				writeError(w, http.StatusNotFound, "order not found")
			} else {
				writeError(w, http.StatusNotFound, "booking not found")
			}
			return
		}
		writeInternal(w, "lock payment target", err)
		return
	}

	if target.cancelled {
		writeError(w, http.StatusConflict, "cannot add payment to cancelled "+target.kind)
		return
	}
	if target.paid.GreaterThanOrEqual(target.total) {
		writeError(w, http.StatusConflict, target.kind+" is already fully paid")
		return
	}
	paid := target.paid.Add(amount)
	if paid.GreaterThan(target.total) {
		writeError(w, http.StatusConflict, "payment exceeds remaining balance")
		return
	}

	payment, err := txStore.CreatePayment(r.Context(), database.CreatePaymentParams{
		OrderID:     orderID,
		BookingID:   bookingID,
		Method:      method,
		Amount:      decimalToNumeric(amount),
		Reference:   optionalText(req.Reference),
		ProcessedBy: claims.UserID,
	})
	if err != nil {
		writeInternal(w, "create payment", err)
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		writeInternal(w, "commit tx for create payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, createPaymentResponse{
		Payment: toPaymentResponse(payment),
		Balance: balanceResponse{
			Total:     target.total.StringFixed(2),
			Paid:      paid.StringFixed(2),
			Remaining: target.total.Sub(paid).StringFixed(2),
		},
		Change: change,
	})
}

func (h *PaymentHandler) lockTarget(ctx context.Context, store PaymentStore, orderID, bookingID pgtype.UUID) (paymentTarget, error) {
	if orderID.Valid {
		id := uuid.UUID(orderID.Bytes)
		order, err := store.GetOrderForUpdate(ctx, id)
		if err != nil {
			return paymentTarget{}, err
		}
		paid, err := store.SumPaymentsByOrder(ctx, id)
		if err != nil {
			return paymentTarget{}, err
		}
		return paymentTarget{
			kind:      "order",
			cancelled: order.Status == enum.OrderStatusCancelled,
			total:     numericToDecimal(order.TotalAmount),
			paid:      numericToDecimal(paid),
		}, nil
	}

	id := uuid.UUID(bookingID.Bytes)
	booking, err := store.GetBookingForUpdate(ctx, id)
	if err != nil {
		return paymentTarget{}, err
	}
	paid, err := store.SumPaymentsByBooking(ctx, id)
	if err != nil {
		return paymentTarget{}, err
	}
	return paymentTarget{
		kind:      "booking",
		cancelled: booking.Status == enum.BookingStatusCancelled,
		total:     numericToDecimal(booking.TotalAmount),
		paid:      numericToDecimal(paid),
	}, nil
}

// List handles GET /payments with optional order_id and booking_id filters.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := listing.ParsePage(q, defaultPageLimit, maxPageLimit)

	orderID, err := optionalUUID(q.Get("order_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order_id")
		return
	}
	bookingID, err := optionalUUID(q.Get("booking_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking_id")
		return
	}

	payments, err := h.store.ListPayments(r.Context(), database.ListPaymentsParams{
		OrderID:   orderID,
		BookingID: bookingID,
		Limit:     int32(page.Limit),
		Offset:    int32(page.Offset),
	})
	if err != nil {
		writeInternal(w, "list payments", err)
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPaymentResponse(p)
	}
	writeJSON(w, http.StatusOK, paymentListResponse{
		Payments: resp,
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
}
