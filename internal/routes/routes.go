package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/schoollunch/lunchwallet/internal/auth"
	"github.com/schoollunch/lunchwallet/internal/cache"
	"github.com/schoollunch/lunchwallet/internal/children"
	"github.com/schoollunch/lunchwallet/internal/config"
	"github.com/schoollunch/lunchwallet/internal/history"
	"github.com/schoollunch/lunchwallet/internal/ledger"
	"github.com/schoollunch/lunchwallet/internal/logging"
	"github.com/schoollunch/lunchwallet/internal/lunch"
	"github.com/schoollunch/lunchwallet/internal/metrics"
	"github.com/schoollunch/lunchwallet/internal/middleware"
	"github.com/schoollunch/lunchwallet/internal/notification"
	"github.com/schoollunch/lunchwallet/internal/orders"
	"github.com/schoollunch/lunchwallet/internal/parent"
	"github.com/schoollunch/lunchwallet/internal/wallet"
)

const loginAttemptsPerMinute = 5

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Lunch overrides the gateway built from Cfg.Lunch.
	Lunch lunch.Gateway
	// Metrics overrides the default registry.
	Metrics *metrics.Metrics
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	m := d.Metrics
	if m == nil {
		m = metrics.New()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Metrics(m))
	app.Use(middleware.Audit(logging.Component(d.Logger, "http")))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	// Storage
	var (
		store      ledger.Store
		walletRepo wallet.Repository
		parentRepo parent.Repository
		childRepo  children.Repository
	)
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		parentRepo = parent.NewPostgresRepository(d.DB)
		childRepo = children.NewPostgresRepository(d.DB)
	} else {
		store = ledger.NewInMemory()
		walletRepo = wallet.NewMemoryRepository(store)
		parentRepo = parent.NewMemoryRepository()
		childRepo = children.NewMemoryRepository()
	}

	walletOpts := []wallet.Option{
		wallet.WithCurrency(d.Cfg.Currency),
		wallet.WithLogger(d.Logger),
		wallet.WithMetrics(m),
	}
	if d.Cache != nil {
		walletOpts = append(walletOpts, wallet.WithHistoryCache(cache.NewHistory(d.Cache, d.Cfg.HistoryCacheTTL)))
	}
	walletSvc := wallet.NewService(walletRepo, store, walletOpts...)

	gateway := d.Lunch
	if gateway == nil {
		gateway = lunchGateway(d.Cfg.Lunch, d.Logger)
	}
	gateway = lunch.NewRetrying(gateway, d.Cfg.Lunch.RetryAttempts, d.Cfg.Lunch.RetryBackoff,
		lunch.WithRetryLogger(d.Logger), lunch.WithRetryMetrics(m))

	notifier := notification.NewLoggerNotifier(d.Logger)
	parentSvc := parent.NewService(parentRepo, walletSvc, d.Logger)
	authSvc := auth.NewService(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL, parentSvc)
	childSvc := children.NewService(childRepo, gateway, walletSvc, notifier, d.Logger)
	orderSvc := orders.NewService(gateway, walletSvc, childSvc, notifier, d.Logger)
	enricher := history.NewEnricher(childSvc, gateway, d.Logger)

	parentHandler := parent.NewHandler(parentSvc)
	authHandler := auth.NewHandler(authSvc)
	walletHandler := wallet.NewHandler(walletSvc)
	pageHandler := history.NewHandler(walletSvc, enricher)
	childHandler := children.NewHandler(childSvc)
	orderHandler := orders.NewHandler(orderSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	jwtmw := middleware.JWTAuth(authSvc)
	var idem fiber.Handler
	if d.Cache != nil {
		idem = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	// Public routes
	RegisterAuthRoutes(api, parentHandler, authHandler, middleware.LoginRateLimit(d.Cache, loginAttemptsPerMinute), jwtmw)

	// Protected routes
	protected := api.Group("", jwtmw)
	RegisterParentRoutes(protected, parentHandler)
	RegisterWalletRoutes(protected, walletHandler, pageHandler, idem)
	RegisterChildrenRoutes(protected, childHandler, orderHandler, idem)

	return nil
}

func lunchGateway(cfg config.LunchConfig, logger *slog.Logger) lunch.Gateway {
	if cfg.BaseURL == "" {
		logger.Warn("LUNCH_SERVICE_URL not set, using in-memory lunch service")
		return lunch.NewMemory()
	}
	return lunch.NewClient(cfg.BaseURL, cfg.Timeout)
}
