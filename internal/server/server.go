package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"ipek-store/internal/config"
	custommiddleware "ipek-store/internal/middleware"
	"ipek-store/internal/notification"
	"ipek-store/internal/repository"
	"ipek-store/internal/service"
	"ipek-store/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies are the collaborators the router is built from. Tests pass
// in-memory repositories and a nil Redis client.
type Dependencies struct {
	Config     *config.Config
	Logger     *zap.Logger
	Repos      repository.Repositories
	Transactor repository.Transactor
	Notifier   notification.Notifier
	Redis      *redis.Client
	Clock      service.Clock
}

type Server struct {
	*http.Server
	config   *config.Config
	logger   *zap.Logger
	db       *sql.DB
	redis    *redis.Client
	notifier *notification.Async
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client) *Server {
	var mailer notification.Notifier = notification.Nop{}
	if cfg.Mail.Enabled() {
		mailer = notification.NewSMTP(cfg.Mail)
	} else {
		logger.Info("SMTP host not configured, order e-mails are disabled")
	}
	notifier := notification.NewAsync(mailer, 15*time.Second, logger)

	router := NewRouter(Dependencies{
		Config:     cfg,
		Logger:     logger,
		Repos:      repository.NewRepositories(db),
		Transactor: repository.NewTransactor(db),
		Notifier:   notifier,
		Redis:      redisClient,
	})

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:   cfg,
		logger:   logger,
		db:       db,
		redis:    redisClient,
		notifier: notifier,
	}
}

// NewRouter wires services and handlers onto a chi router.
func NewRouter(deps Dependencies) http.Handler {
	cfg, logger, repos := deps.Config, deps.Logger, deps.Repos

	router := chi.NewRouter()
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server))
	router.Use(custommiddleware.RequireJSON)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Services
	productService := service.NewProductService(repos.Products, repos.Categories, deps.Clock, logger)
	settingsService := service.NewSettingsService(repos.Settings, cfg.Shipping, deps.Clock, logger)
	cartService := service.NewCartService(repos, deps.Transactor, cfg.Coupons, cfg.Shipping, deps.Clock, logger)
	userService := service.NewUserService(repos.Users, repos.RefreshTokens, cartService, cfg.JWT, deps.Clock, logger)
	couponService := service.NewCouponService(repos, deps.Transactor, cfg.Coupons, deps.Clock, logger)
	addressService := service.NewAddressService(repos.Addresses, deps.Transactor, deps.Clock, logger)
	orderService := service.NewOrderService(repos.Orders, deps.Transactor, deps.Notifier, cfg.Orders, deps.Clock, logger)
	checkoutService := service.NewCheckoutService(repos, deps.Transactor, deps.Notifier, cfg.Coupons, cfg.Shipping, deps.Clock, logger)

	// Middleware
	authMiddleware := custommiddleware.AuthMiddleware(userService, logger)
	optionalAuth := custommiddleware.OptionalAuthMiddleware(userService)
	requireAdmin := custommiddleware.RequireAdmin(logger)
	limit := func(prefix string) func(http.Handler) http.Handler {
		return custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "ratelimit:" + prefix,
		}, logger)
	}

	// Handlers
	userHandler := transport.NewUserHandler(userService, logger)
	catalogHandler := transport.NewCatalogHandler(productService, logger)
	settingsHandler := transport.NewSettingsHandler(settingsService, logger)
	cartHandler := transport.NewCartHandler(cartService, couponService, logger)
	couponHandler := transport.NewCouponHandler(couponService, logger)
	addressHandler := transport.NewAddressHandler(addressService, logger)
	checkoutHandler := transport.NewCheckoutHandler(checkoutService, orderService, logger)
	orderHandler := transport.NewOrderHandler(orderService, logger)

	userHandler.RegisterRoutes(router, authMiddleware)
	catalogHandler.RegisterRoutes(router)
	settingsHandler.RegisterRoutes(router)
	cartHandler.RegisterRoutes(router, authMiddleware, limit("coupon"))
	couponHandler.RegisterRoutes(router, optionalAuth, limit("coupon"))
	addressHandler.RegisterRoutes(router, authMiddleware)
	checkoutHandler.RegisterRoutes(router, authMiddleware, limit("guest_checkout"))
	orderHandler.RegisterRoutes(router, authMiddleware)

	router.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware, requireAdmin)
		catalogHandler.RegisterAdminRoutes(r)
		couponHandler.RegisterAdminRoutes(r)
		orderHandler.RegisterAdminRoutes(r)
		settingsHandler.RegisterAdminRoutes(r)
	})

	return router
}

// Close waits for pending e-mails, then releases Redis and the database.
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	done := make(chan struct{})
	go func() {
		s.notifier.Wait()
		close(done)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Gave up waiting for pending notifications")
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
