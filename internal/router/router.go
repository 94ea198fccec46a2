package router

import (
	"log/slog"
	"net/http"

	"github.com/dinein-pos/api/internal/config"
	"github.com/dinein-pos/api/internal/database"
	"github.com/dinein-pos/api/internal/handler"
	"github.com/dinein-pos/api/internal/metrics"
	mw "github.com/dinein-pos/api/internal/middleware"
	"github.com/dinein-pos/api/internal/qr"
	"github.com/dinein-pos/api/internal/service"
	"github.com/dinein-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed; every
// protected handler scopes its queries to the caller's owner.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Services. Each transactional service opens its own store on the tx.
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	paymentService := service.NewPaymentService(pool, func(db database.DBTX) service.PaymentStore {
		return database.New(db)
	})
	billSplitService := service.NewBillSplitService(pool, func(db database.DBTX) service.BillSplitStore {
		return database.New(db)
	})
	sessionService := service.NewSessionService(queries)
	qrGen := qr.NewPNGGenerator(cfg.PublicBaseURL)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Customer QR flow, keyed by table id or session token.
	publicHandler := handler.NewPublicHandler(sessionService, orderService, queries, hub)
	qrHandler := handler.NewQRHandler(queries, qrGen)
	r.Route("/public", func(r chi.Router) {
		publicHandler.RegisterRoutes(r)
		qrHandler.RegisterRoutes(r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		restaurantHandler := handler.NewRestaurantHandler(queries)
		r.Route("/restaurant", restaurantHandler.RegisterRoutes)

		staffHandler := handler.NewStaffHandler(queries)
		r.Route("/staff", func(r chi.Router) {
			r.Use(mw.RequireAdmin)
			staffHandler.RegisterRoutes(r)
		})

		tableHandler := handler.NewTableHandler(queries)
		r.Route("/tables", tableHandler.RegisterRoutes)

		departmentHandler := handler.NewDepartmentHandler(queries)
		r.Route("/departments", departmentHandler.RegisterRoutes)

		categoryHandler := handler.NewCategoryHandler(queries)
		r.Route("/categories", categoryHandler.RegisterRoutes)

		// Menu items and their selections share one router
		menuItemHandler := handler.NewMenuItemHandler(queries)
		selectionHandler := handler.NewSelectionHandler(queries, pool, func(db database.DBTX) handler.SelectionStore {
			return database.New(db)
		})
		r.Route("/menu-items", func(r chi.Router) {
			menuItemHandler.RegisterRoutes(r)
			selectionHandler.RegisterRoutes(r)
		})

		sessionHandler := handler.NewSessionHandler(sessionService, paymentService, queries, qrGen, hub)
		r.Route("/sessions", sessionHandler.RegisterRoutes)

		orderHandler := handler.NewOrderHandler(orderService, queries, hub)
		r.Route("/orders", orderHandler.RegisterRoutes)

		dashboardHandler := handler.NewDashboardHandler(orderService, queries, hub)
		r.Route("/dashboard", dashboardHandler.RegisterRoutes)

		paymentHandler := handler.NewPaymentHandler(paymentService, queries)
		r.Route("/payments", paymentHandler.RegisterRoutes)

		billSplitHandler := handler.NewBillSplitHandler(billSplitService, paymentService, queries, hub)
		r.Route("/bill-splits", billSplitHandler.RegisterRoutes)
	})

	slog.Debug("router initialized")
	return r
}
