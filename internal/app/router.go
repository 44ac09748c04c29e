package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stocklane-erp/stocklane/internal/audit"
	"github.com/stocklane-erp/stocklane/internal/auth"
	"github.com/stocklane-erp/stocklane/internal/delivery"
	"github.com/stocklane-erp/stocklane/internal/inventory"
	"github.com/stocklane-erp/stocklane/internal/masterdata/categories"
	"github.com/stocklane-erp/stocklane/internal/masterdata/products"
	"github.com/stocklane-erp/stocklane/internal/notifications"
	"github.com/stocklane-erp/stocklane/internal/observability"
	"github.com/stocklane-erp/stocklane/internal/orders"
	"github.com/stocklane-erp/stocklane/internal/rbac"
	"github.com/stocklane-erp/stocklane/internal/reports"
	"github.com/stocklane-erp/stocklane/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AuthMiddleware auth.Middleware

	AuthHandler          *auth.Handler
	RolesHandler         *rbac.RolesHandler
	PermissionsHandler   *rbac.PermissionsHandler
	UsersHandler         *users.Handler
	CategoriesHandler    *categories.Handler
	ProductsHandler      *products.Handler
	InventoryHandler     *inventory.Handler
	OrdersHandler        *orders.Handler
	DeliveriesHandler    *delivery.Handler
	NotificationsHandler *notifications.Handler
	AuditHandler         *audit.Handler
	ReportsHandler       *reports.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Stocklane defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(LoginRateLimit())
		params.AuthHandler.MountRoutes(r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(params.AuthMiddleware.Authenticate)

		r.Route("/roles", params.RolesHandler.MountRoutes)
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/categories", params.CategoriesHandler.MountRoutes)
		r.Route("/products", params.ProductsHandler.MountRoutes)
		r.Route("/stocks", params.InventoryHandler.MountRoutes)
		r.Route("/orders", params.OrdersHandler.MountRoutes)
		r.Route("/deliveries", params.DeliveriesHandler.MountRoutes)
		r.Route("/notifications", params.NotificationsHandler.MountRoutes)
		r.Route("/audit-logs", params.AuditHandler.MountRoutes)
		r.Route("/reports", params.ReportsHandler.MountRoutes)
	})

	return r
}
