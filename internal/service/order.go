package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/innstay/api/internal/cart"
	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/orderflow"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems         = errors.New("items are required")
	ErrInvalidQuantity    = fmt.Errorf("quantity must be between 1 and %d", cart.MaxQuantity)
	ErrInvalidMenuItemID  = errors.New("invalid menu_item_id")
	ErrMenuItemNotFound   = errors.New("menu item not found or unavailable")
	ErrInvalidTableID     = errors.New("invalid table_id")
	ErrTableNotFound      = errors.New("table not found")
	ErrInvalidTableToken  = errors.New("invalid table token")
	ErrInvalidStartStatus = errors.New("orders start as PENDING or NEW")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context) (int32, error)
	GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	GetDiningTable(ctx context.Context, id uuid.UUID) (database.DiningTable, error)
	GetDiningTableByQRToken(ctx context.Context, qrToken string) (database.DiningTable, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the input for creating an order. Staff orders carry
// CreatedBy; guest orders leave it Nil and identify their table by QR token.
type CreateOrderRequest struct {
	CreatedBy    uuid.UUID
	Status       orderflow.Status // zero value means NEW
	TableID      string
	TableToken   string
	CustomerName string
	Notes        string
	Items        []CreateOrderItemRequest
}

type CreateOrderItemRequest struct {
	MenuItemID string
	Quantity   int32
	Notes      string
}

// CreateOrderResult is the created order with its lines and, when the order
// is bound to one, its table.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
	Table *database.DiningTable
}

// OrderService handles order business logic.
type OrderService struct {
	pool        TxBeginner
	newStore    NewOrderStore
	defaultPrep int32
}

// NewOrderService creates a new OrderService. defaultPrepMinutes is the
// estimate used when no ordered item carries a prep time.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, defaultPrepMinutes int) *OrderService {
	if defaultPrepMinutes <= 0 {
		defaultPrepMinutes = 20
	}
	return &OrderService{pool: pool, newStore: newStore, defaultPrep: int32(defaultPrepMinutes)}
}

// CreateOrder validates, prices and stores an order atomically.
// Retries up to maxOrderNumberRetries times on order_number unique constraint
// violations (concurrent transactions reading the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	status := req.Status
	if status == "" {
		status = orderflow.New
	}
	if status != orderflow.New && status != orderflow.Pending {
		return nil, ErrInvalidStartStatus
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req, status)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, status orderflow.Status) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Resolve table ---
	table, err := resolveTable(ctx, store, req)
	if err != nil {
		return nil, err
	}

	// --- Price items from the current menu ---
	subtotal := decimal.Zero
	prep := make([]int32, 0, len(req.Items))
	var units int64
	lines := make([]database.CreateOrderItemParams, 0, len(req.Items))

	for i, item := range req.Items {
		if item.Quantity <= 0 || item.Quantity > cart.MaxQuantity {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		menuItemID, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidMenuItemID)
		}
		mi, err := store.GetMenuItemForOrder(ctx, menuItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get menu item: %w", i, err)
		}

		unitPrice := numericToDecimal(mi.Price)
		lineTotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		subtotal = subtotal.Add(lineTotal)
		prep = append(prep, mi.PrepMinutes)
		units += int64(item.Quantity)

		lines = append(lines, database.CreateOrderItemParams{
			MenuItemID: menuItemID,
			Name:       mi.Name,
			Quantity:   item.Quantity,
			UnitPrice:  decimalToNumeric(unitPrice),
			Subtotal:   decimalToNumeric(lineTotal),
			Notes:      optionalText(item.Notes),
		})
	}

	// --- Order number ---
	nextNum, err := store.GetNextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}

	params := database.CreateOrderParams{
		OrderNumber:      FormatOrderNumber(nextNum),
		CustomerName:     optionalText(req.CustomerName),
		Status:           string(status),
		Notes:            optionalText(req.Notes),
		Subtotal:         decimalToNumeric(subtotal),
		TotalAmount:      decimalToNumeric(subtotal),
		EstimatedMinutes: EstimateMinutes(prep, units, s.defaultPrep),
	}
	if table != nil {
		params.TableID = pgtype.UUID{Bytes: table.ID, Valid: true}
	}
	if req.CreatedBy != uuid.Nil {
		params.CreatedBy = pgtype.UUID{Bytes: req.CreatedBy, Valid: true}
	}

	order, err := store.CreateOrder(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(lines))
	for _, line := range lines {
		line.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, line)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items, Table: table}, nil
}

func resolveTable(ctx context.Context, store OrderStore, req CreateOrderRequest) (*database.DiningTable, error) {
	switch {
	case req.TableToken != "":
		t, err := store.GetDiningTableByQRToken(ctx, req.TableToken)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrInvalidTableToken
			}
			return nil, fmt.Errorf("get table by token: %w", err)
		}
		return &t, nil
	case req.TableID != "":
		id, err := uuid.Parse(req.TableID)
		if err != nil {
			return nil, ErrInvalidTableID
		}
		t, err := store.GetDiningTable(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrTableNotFound
			}
			return nil, fmt.Errorf("get table: %w", err)
		}
		return &t, nil
	}
	return nil, nil
}

// FormatOrderNumber renders the human-facing order number, e.g. ORD-007.
func FormatOrderNumber(n int32) string {
	return fmt.Sprintf("ORD-%03d", n)
}

// EstimateMinutes is the longest prep time among the ordered items plus one
// minute for every unit beyond the first. Falls back to def when no item
// has a prep time. The result saturates at math.MaxInt32.
func EstimateMinutes(prepMinutes []int32, units int64, def int32) int32 {
	var longest int32
	for _, p := range prepMinutes {
		if p > longest {
			longest = p
		}
	}
	if longest <= 0 {
		return def
	}
	total := int64(longest)
	if units > 1 {
		total += units - 1
	}
	if total > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(total)
}

// --- Helpers ---

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
