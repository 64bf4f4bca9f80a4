package routes

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/delivery-admin-api/config"
	"github.com/kendall-kelly/delivery-admin-api/controllers"
	"github.com/kendall-kelly/delivery-admin-api/events"
	"github.com/kendall-kelly/delivery-admin-api/middleware"
	"github.com/kendall-kelly/delivery-admin-api/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Dependencies are the backends the HTTP layer is built on. Optional
// backends are left nil when not configured.
type Dependencies struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *slog.Logger

	// Authenticate validates the caller's token. It must populate the
	// subject with middleware.SetIdentity.
	Authenticate gin.HandlerFunc
	// UserInfo links first logins to pre-created admins.
	UserInfo services.UserInfoFetcher

	Images    services.ImageService
	Publisher events.Publisher
	Scheduler services.ActivationScheduler
	Cache     services.JSONCache
	Metrics   *services.Metrics
	Activator *services.Activator
	Gatherer  prometheus.Gatherer
}

// SetupRouter builds the gin engine with every route under /api/v1
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	activator := deps.Activator
	if activator == nil {
		activator = services.NewActivator(deps.DB, publisher, deps.Metrics, logger)
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	ledger := services.NewLedgerService(deps.DB, publisher, deps.Metrics)
	adminService := services.NewAdminService(deps.DB, deps.UserInfo)

	locations := controllers.NewLocationController(services.NewLocationService(deps.DB))
	products := controllers.NewProductController(services.NewProductService(deps.DB, deps.Images))
	clients := controllers.NewClientController(services.NewClientService(deps.DB, deps.Images))
	drivers := controllers.NewDriverController(services.NewDriverService(deps.DB, deps.Images))
	orders := controllers.NewOrderController(
		services.NewOrderService(deps.DB, ledger, publisher),
		services.NewPricingService(deps.DB),
	)
	scheduled := controllers.NewScheduledOrderController(
		services.NewScheduledOrderService(deps.DB, deps.Scheduler, publisher),
		activator,
	)
	payments := controllers.NewPaymentController(ledger)
	dashboard := controllers.NewDashboardController(services.NewDashboardService(deps.DB, deps.Cache, cfg.DashboardCacheTTL), deps.DB)
	admins := controllers.NewAdminController(adminService)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(logger),
		middleware.SecureHeaders(cfg.IsProduction()),
		cors.New(corsConfig(cfg.CORSAllowedOrigins)),
		middleware.RateLimit(cfg.RateLimitPerMinute),
	)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	v1.GET("/health", dashboard.Health)

	api := v1.Group("", deps.Authenticate, middleware.LoadAdmin(adminService))
	{
		api.GET("/dashboard", dashboard.Stats)

		api.GET("/locations", locations.List)
		api.POST("/locations", locations.Create)
		api.PUT("/locations/:id", locations.Update)
		api.DELETE("/locations/:id", locations.Delete)

		api.GET("/products", products.List)
		api.POST("/products", products.Create)
		api.GET("/products/:id", products.Get)
		api.PUT("/products/:id", products.Update)
		api.DELETE("/products/:id", products.Delete)
		api.POST("/products/:id/photo", products.UploadPhoto)
		api.DELETE("/products/:id/photo", products.DeletePhoto)

		api.GET("/clients", clients.List)
		api.POST("/clients", clients.Create)
		api.GET("/clients/:id", clients.Get)
		api.PUT("/clients/:id", clients.Update)
		api.DELETE("/clients/:id", clients.Delete)
		api.POST("/clients/:id/image", clients.UploadImage)
		api.DELETE("/clients/:id/image", clients.DeleteImage)

		api.GET("/drivers", drivers.List)
		api.POST("/drivers", drivers.Create)
		api.GET("/drivers/:id", drivers.Get)
		api.PUT("/drivers/:id", drivers.Update)
		api.DELETE("/drivers/:id", drivers.Delete)
		api.PATCH("/drivers/:id/status", drivers.UpdateStatus)
		api.GET("/drivers/:id/prices", drivers.Prices)
		api.POST("/drivers/:id/image", drivers.UploadImage)
		api.DELETE("/drivers/:id/image", drivers.DeleteImage)

		api.POST("/pricing/snapshot", orders.Snapshot)

		api.GET("/orders", orders.List)
		api.POST("/orders", orders.Create)
		api.GET("/orders/:id", orders.Get)
		api.DELETE("/orders/:id", orders.Delete)
		api.PATCH("/orders/:id/status", orders.UpdateStatus)
		api.PATCH("/orders/:id/driver", orders.AssignDriver)

		api.GET("/scheduled-orders", scheduled.List)
		api.POST("/scheduled-orders", scheduled.Create)
		api.POST("/scheduled-orders/activate-due", scheduled.ActivateDue)
		api.GET("/scheduled-orders/:id", scheduled.Get)
		api.DELETE("/scheduled-orders/:id", scheduled.Delete)
		api.POST("/scheduled-orders/:id/cancel", scheduled.Cancel)

		api.GET("/payments", payments.ListBalances)
		api.GET("/payments/transactions", payments.ListTransactions)
		api.GET("/payments/withdrawals", payments.ListWithdrawals)
		api.GET("/payments/:driverId", payments.GetBalance)
		api.POST("/payments/:driverId/pay", payments.Pay)
		api.POST("/payments/:driverId/withdraw", payments.Withdraw)

		api.GET("/admins", admins.List)
		api.GET("/admins/me", admins.Me)
		api.POST("/admins", middleware.RequireSuperAdmin(), admins.Create)
		api.DELETE("/admins/:id", middleware.RequireSuperAdmin(), admins.Delete)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
