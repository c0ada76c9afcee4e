package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/enum"
	"github.com/innstay/api/internal/middleware"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const (
	defaultTopItems = 10
	maxTopItems     = 50
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetSalesSummary(ctx context.Context, arg database.GetSalesSummaryParams) (database.GetSalesSummaryRow, error)
	GetDailyRevenue(ctx context.Context, arg database.GetDailyRevenueParams) ([]database.GetDailyRevenueRow, error)
	GetTopItems(ctx context.Context, arg database.GetTopItemsParams) ([]database.GetTopItemsRow, error)
	GetPaymentSummary(ctx context.Context, arg database.GetPaymentSummaryParams) ([]database.GetPaymentSummaryRow, error)
	GetDashboardStats(ctx context.Context, arg database.GetDashboardStatsParams) (database.GetDashboardStatsRow, error)
}

// ReportsHandler handles report and dashboard endpoints.
type ReportsHandler struct {
	store ReportsStore
	loc   *time.Location
	now   func() time.Time
}

// NewReportsHandler creates a new ReportsHandler. Report days are cut in loc.
func NewReportsHandler(store ReportsStore, loc *time.Location) *ReportsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportsHandler{store: store, loc: loc, now: time.Now}
}

// RegisterRoutes registers report endpoints. Expected to be mounted at
// /reports behind Authenticate.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequireRole(enum.UserRoleAdmin))
	r.Get("/summary", h.Summary)
	r.Get("/daily-revenue", h.DailyRevenue)
	r.Get("/top-items", h.TopItems)
	r.Get("/payment-summary", h.PaymentSummary)
}

// RegisterDashboardRoutes registers the admin dashboard. Expected to be
// mounted at /dashboard behind Authenticate.
func (h *ReportsHandler) RegisterDashboardRoutes(r chi.Router) {
	r.Use(middleware.RequireRole(enum.UserRoleAdmin))
	r.Get("/stats", h.DashboardStats)
}

// --- Response types ---

type summaryResponse struct {
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	OrderCount        int64  `json:"order_count"`
	CompletedCount    int64  `json:"completed_count"`
	CancelledCount    int64  `json:"cancelled_count"`
	OrderRevenue      string `json:"order_revenue"`
	BookingRevenue    string `json:"booking_revenue"`
	TotalRevenue      string `json:"total_revenue"`
	AverageOrderValue string `json:"average_order_value"`
}

type dailyRevenueResponse struct {
	Date       string `json:"date"`
	OrderCount int64  `json:"order_count"`
	Revenue    string `json:"revenue"`
}

type topItemResponse struct {
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	Name         string    `json:"name"`
	QuantitySold int64     `json:"quantity_sold"`
	Revenue      string    `json:"revenue"`
}

type paymentSummaryResponse struct {
	Method           string `json:"method"`
	TransactionCount int64  `json:"transaction_count"`
	TotalAmount      string `json:"total_amount"`
}

type dashboardStatsResponse struct {
	Date          string  `json:"date"`
	TotalRooms    int64   `json:"total_rooms"`
	OccupiedRooms int64   `json:"occupied_rooms"`
	OccupancyRate float64 `json:"occupancy_rate"`
	ArrivalsToday int64   `json:"arrivals_today"`
	ActiveOrders  int64   `json:"active_orders"`
	PendingLeaves int64   `json:"pending_leaves"`
	StaffCount    int64   `json:"staff_count"`
	RevenueToday  string  `json:"revenue_today"`
}

// --- Handlers ---

// Summary handles GET /reports/summary?start_date&end_date.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r, h.loc, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	row, err := h.store.GetSalesSummary(r.Context(), database.GetSalesSummaryParams{
		Start: start,
		End:   end,
	})
	if err != nil {
		writeInternal(w, "get sales summary", err)
		return
	}

	orderRevenue := numericToDecimal(row.OrderRevenue)
	bookingRevenue := numericToDecimal(row.BookingRevenue)
	average := decimal.Zero
	if row.CompletedCount > 0 {
		average = orderRevenue.Div(decimal.NewFromInt(row.CompletedCount))
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		StartDate:         start.Format(dateLayout),
		EndDate:           end.AddDate(0, 0, -1).Format(dateLayout),
		OrderCount:        row.OrderCount,
		CompletedCount:    row.CompletedCount,
		CancelledCount:    row.CancelledCount,
		OrderRevenue:      orderRevenue.StringFixed(2),
		BookingRevenue:    bookingRevenue.StringFixed(2),
		TotalRevenue:      orderRevenue.Add(bookingRevenue).StringFixed(2),
		AverageOrderValue: average.StringFixed(2),
	})
}

// DailyRevenue handles GET /reports/daily-revenue. Days without sales are
// reported with zeros so charts get a continuous series.
func (h *ReportsHandler) DailyRevenue(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r, h.loc, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.store.GetDailyRevenue(r.Context(), database.GetDailyRevenueParams{
		Start:    start,
		End:      end,
		Timezone: h.loc.String(),
	})
	if err != nil {
		writeInternal(w, "get daily revenue", err)
		return
	}

	byDate := make(map[string]database.GetDailyRevenueRow, len(rows))
	for _, row := range rows {
		byDate[dateString(row.SaleDate)] = row
	}

	var resp []dailyRevenueResponse
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(dateLayout)
		row := byDate[key]
		resp = append(resp, dailyRevenueResponse{
			Date:       key,
			OrderCount: row.OrderCount,
			Revenue:    numericToString(row.Revenue),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// TopItems handles GET /reports/top-items?limit=.
func (h *ReportsHandler) TopItems(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r, h.loc, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := defaultTopItems
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxTopItems {
		limit = maxTopItems
	}

	rows, err := h.store.GetTopItems(r.Context(), database.GetTopItemsParams{
		Start: start,
		End:   end,
		Limit: int32(limit),
	})
	if err != nil {
		writeInternal(w, "get top items", err)
		return
	}

	resp := make([]topItemResponse, len(rows))
	for i, row := range rows {
		resp[i] = topItemResponse{
			MenuItemID:   row.MenuItemID,
			Name:         row.Name,
			QuantitySold: row.QuantitySold,
			Revenue:      numericToString(row.Revenue),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// PaymentSummary handles GET /reports/payment-summary.
func (h *ReportsHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r, h.loc, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.store.GetPaymentSummary(r.Context(), database.GetPaymentSummaryParams{
		Start: start,
		End:   end,
	})
	if err != nil {
		writeInternal(w, "get payment summary", err)
		return
	}

	resp := make([]paymentSummaryResponse, len(rows))
	for i, row := range rows {
		resp[i] = paymentSummaryResponse{
			Method:           row.Method,
			TransactionCount: row.TransactionCount,
			TotalAmount:      numericToString(row.TotalAmount),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// DashboardStats handles GET /dashboard/stats: today's figures for the
// admin landing page.
func (h *ReportsHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	now := h.now().In(h.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	row, err := h.store.GetDashboardStats(r.Context(), database.GetDashboardStatsParams{
		Today:    pgtype.Date{Time: today, Valid: true},
		DayStart: dayStart,
		DayEnd:   dayStart.AddDate(0, 0, 1),
	})
	if err != nil {
		writeInternal(w, "get dashboard stats", err)
		return
	}

	var occupancy float64
	if row.TotalRooms > 0 {
		occupancy = math.Round(float64(row.OccupiedRooms)/float64(row.TotalRooms)*1000) / 10
	}

	writeJSON(w, http.StatusOK, dashboardStatsResponse{
		Date:          today.Format(dateLayout),
		TotalRooms:    row.TotalRooms,
		OccupiedRooms: row.OccupiedRooms,
		OccupancyRate: occupancy,
		ArrivalsToday: row.ArrivalsToday,
		ActiveOrders:  row.ActiveOrders,
		PendingLeaves: row.PendingLeaves,
		StaffCount:    row.StaffCount,
		RevenueToday:  numericToString(row.RevenueToday),
	})
}
