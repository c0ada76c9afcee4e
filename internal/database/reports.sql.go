package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getSalesSummary = `
SELECT
    count(*)                                                        AS order_count,
    count(*) FILTER (WHERE status = 'COMPLETED')                    AS completed_count,
    count(*) FILTER (WHERE status = 'CANCELLED')                    AS cancelled_count,
    COALESCE(SUM(total_amount) FILTER (WHERE status = 'COMPLETED'), 0)::numeric(12,2) AS order_revenue,
    (SELECT COALESCE(SUM(p.amount), 0)::numeric(12,2) FROM payments p
      WHERE p.booking_id IS NOT NULL AND p.processed_at >= $1 AND p.processed_at < $2) AS booking_revenue
FROM orders
WHERE created_at >= $1 AND created_at < $2`

type GetSalesSummaryParams struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type GetSalesSummaryRow struct {
	OrderCount     int64          `json:"order_count"`
	CompletedCount int64          `json:"completed_count"`
	CancelledCount int64          `json:"cancelled_count"`
	OrderRevenue   pgtype.Numeric `json:"order_revenue"`
	BookingRevenue pgtype.Numeric `json:"booking_revenue"`
}

func (q *Queries) GetSalesSummary(ctx context.Context, arg GetSalesSummaryParams) (GetSalesSummaryRow, error) {
	row := q.db.QueryRow(ctx, getSalesSummary, arg.Start, arg.End)
	var i GetSalesSummaryRow
	err := row.Scan(
		&i.OrderCount,
		&i.CompletedCount,
		&i.CancelledCount,
		&i.OrderRevenue,
		&i.BookingRevenue,
	)
	return i, err
}

const getDailyRevenue = `
SELECT
    (created_at AT TIME ZONE $3)::date                         AS sale_date,
    count(*)                                                   AS order_count,
    COALESCE(SUM(total_amount), 0)::numeric(12,2)              AS revenue
FROM orders
WHERE status = 'COMPLETED' AND created_at >= $1 AND created_at < $2
GROUP BY sale_date
ORDER BY sale_date`

// GetDailyRevenueParams.Timezone is an IANA zone name; days are cut there.
type GetDailyRevenueParams struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Timezone string    `json:"timezone"`
}

type GetDailyRevenueRow struct {
	SaleDate   pgtype.Date    `json:"sale_date"`
	OrderCount int64          `json:"order_count"`
	Revenue    pgtype.Numeric `json:"revenue"`
}

func (q *Queries) GetDailyRevenue(ctx context.Context, arg GetDailyRevenueParams) ([]GetDailyRevenueRow, error) {
	rows, err := q.db.Query(ctx, getDailyRevenue, arg.Start, arg.End, arg.Timezone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetDailyRevenueRow{}
	for rows.Next() {
		var i GetDailyRevenueRow
		if err := rows.Scan(&i.SaleDate, &i.OrderCount, &i.Revenue); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTopItems = `
SELECT
    oi.menu_item_id,
    oi.name,
    SUM(oi.quantity)::bigint                       AS quantity_sold,
    COALESCE(SUM(oi.subtotal), 0)::numeric(12,2)   AS revenue
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
WHERE o.status = 'COMPLETED' AND o.created_at >= $1 AND o.created_at < $2
GROUP BY oi.menu_item_id, oi.name
ORDER BY quantity_sold DESC, revenue DESC
LIMIT $3`

type GetTopItemsParams struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Limit int32     `json:"limit"`
}

type GetTopItemsRow struct {
	MenuItemID   uuid.UUID      `json:"menu_item_id"`
	Name         string         `json:"name"`
	QuantitySold int64          `json:"quantity_sold"`
	Revenue      pgtype.Numeric `json:"revenue"`
}

func (q *Queries) GetTopItems(ctx context.Context, arg GetTopItemsParams) ([]GetTopItemsRow, error) {
	rows, err := q.db.Query(ctx, getTopItems, arg.Start, arg.End, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetTopItemsRow{}
	for rows.Next() {
		var i GetTopItemsRow
		if err := rows.Scan(&i.MenuItemID, &i.Name, &i.QuantitySold, &i.Revenue); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getPaymentSummary = `
SELECT method, count(*) AS transaction_count, COALESCE(SUM(amount), 0)::numeric(12,2) AS total_amount
FROM payments
WHERE processed_at >= $1 AND processed_at < $2
GROUP BY method
ORDER BY total_amount DESC`

type GetPaymentSummaryParams struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type GetPaymentSummaryRow struct {
	Method           string         `json:"method"`
	TransactionCount int64          `json:"transaction_count"`
	TotalAmount      pgtype.Numeric `json:"total_amount"`
}

func (q *Queries) GetPaymentSummary(ctx context.Context, arg GetPaymentSummaryParams) ([]GetPaymentSummaryRow, error) {
	rows, err := q.db.Query(ctx, getPaymentSummary, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetPaymentSummaryRow{}
	for rows.Next() {
		var i GetPaymentSummaryRow
		if err := rows.Scan(&i.Method, &i.TransactionCount, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getDashboardStats = `
SELECT
    (SELECT count(*) FROM rooms)                                                  AS total_rooms,
    (SELECT count(*) FROM rooms WHERE status = 'OCCUPIED')                        AS occupied_rooms,
    (SELECT count(*) FROM orders WHERE status IN ('PENDING', 'NEW', 'PREPARING', 'READY')) AS active_orders,
    (SELECT count(*) FROM leave_requests WHERE status = 'PENDING')                AS pending_leaves,
    (SELECT count(*) FROM users WHERE role <> 'CUSTOMER' AND is_active = true)    AS staff_count,
    (SELECT count(*) FROM bookings WHERE check_in = $1::date AND status <> 'CANCELLED') AS arrivals_today,
    (SELECT COALESCE(SUM(total_amount), 0)::numeric(12,2) FROM orders
      WHERE status = 'COMPLETED' AND created_at >= $2 AND created_at < $3)        AS revenue_today`

type GetDashboardStatsParams struct {
	Today    pgtype.Date `json:"today"`
	DayStart time.Time   `json:"day_start"`
	DayEnd   time.Time   `json:"day_end"`
}

type GetDashboardStatsRow struct {
	TotalRooms    int64          `json:"total_rooms"`
	OccupiedRooms int64          `json:"occupied_rooms"`
	ActiveOrders  int64          `json:"active_orders"`
	PendingLeaves int64          `json:"pending_leaves"`
	StaffCount    int64          `json:"staff_count"`
	ArrivalsToday int64          `json:"arrivals_today"`
	RevenueToday  pgtype.Numeric `json:"revenue_today"`
}

func (q *Queries) GetDashboardStats(ctx context.Context, arg GetDashboardStatsParams) (GetDashboardStatsRow, error) {
	row := q.db.QueryRow(ctx, getDashboardStats, arg.Today, arg.DayStart, arg.DayEnd)
	var i GetDashboardStatsRow
	err := row.Scan(
		&i.TotalRooms,
		&i.OccupiedRooms,
		&i.ActiveOrders,
		&i.PendingLeaves,
		&i.StaffCount,
		&i.ArrivalsToday,
		&i.RevenueToday,
	)
	return i, err
}
