package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/innstay/api/internal/cart"
	"github.com/innstay/api/internal/config"
	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/events"
	"github.com/innstay/api/internal/handler"
	mw "github.com/innstay/api/internal/middleware"
	"github.com/innstay/api/internal/service"
	"github.com/innstay/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	queries *database.Queries,
	pool *pgxpool.Pool,
	hub *ws.Hub,
	notifier *events.Notifier,
	carts *cart.Store,
) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Menu-URL"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	authn := mw.Authenticate(cfg.JWTSecret)

	// Services
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, cfg.DefaultPrepMinutes)
	bookingService := service.NewBookingService(pool, func(db database.DBTX) service.BookingStore {
		return database.New(db)
	}, cfg.Location())
	broadcaster := handler.NewOrderBroadcaster(hub, notifier)

	// Handlers
	authHandler := handler.NewAuthHandler(queries, pool, func(db database.DBTX) handler.PasswordResetStore {
		return database.New(db)
	}, handler.TokenConfig{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	roomHandler := handler.NewRoomHandler(queries)
	menuHandler := handler.NewMenuItemHandler(queries)
	bookingHandler := handler.NewBookingHandler(bookingService, queries)
	orderHandler := handler.NewOrderHandler(orderService, queries, broadcaster, hub, cfg.Location())
	cartHandler := handler.NewCartHandler(carts, queries, orderService, broadcaster)
	departmentHandler := handler.NewDepartmentHandler(queries)
	staffHandler := handler.NewStaffHandler(queries)
	tableHandler := handler.NewTableHandler(queries, cfg.PublicBaseURL)
	leaveHandler := handler.NewLeaveHandler(queries)
	paymentHandler := handler.NewPaymentHandler(queries, pool, func(db database.DBTX) handler.PaymentStore {
		return database.New(db)
	})
	reportsHandler := handler.NewReportsHandler(queries, cfg.Location())

	// Auth routes (public)
	authHandler.RegisterRoutes(r)

	// Guest-facing routes
	r.Route("/public", func(r chi.Router) {
		r.Route("/rooms", func(r chi.Router) {
			roomHandler.RegisterPublicRoutes(r)
			r.Get("/{id}/availability", bookingHandler.Availability)
		})
		menuHandler.RegisterPublicRoutes(r)
		bookingHandler.RegisterPublicRoutes(r)
		orderHandler.RegisterPublicRoutes(r)
	})
	r.Route("/cart", cartHandler.RegisterRoutes)

	// Orders mix the public tracking endpoint with staff routes
	r.Route("/orders", func(r chi.Router) {
		orderHandler.RegisterRoutes(r, authn)
	})

	// WebSocket routes (staff auth via query param, tracking is public)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})
	r.Get("/ws/orders/{id}/tracking", orderHandler.TrackingStream)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(authn)

		authHandler.RegisterProtectedRoutes(r)

		r.Route("/rooms", roomHandler.RegisterRoutes)
		r.Route("/menu-items", menuHandler.RegisterRoutes)
		r.Route("/departments", departmentHandler.RegisterRoutes)
		r.Route("/staff", staffHandler.RegisterRoutes)
		r.Route("/tables", tableHandler.RegisterRoutes)
		r.Route("/kitchen", orderHandler.RegisterKitchenRoutes)
		r.Route("/leaves", leaveHandler.RegisterRoutes)
		r.Route("/bookings", bookingHandler.RegisterRoutes)
		r.Route("/payments", paymentHandler.RegisterRoutes)
		r.Route("/reports", reportsHandler.RegisterRoutes)
		r.Route("/dashboard", reportsHandler.RegisterDashboardRoutes)
	})

	logger.Info("router initialized")
	return r
}
