package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"vabboost/internal/config"
	"vabboost/internal/database"
	"vabboost/internal/middleware"
	"vabboost/internal/modules/admin"
	"vabboost/internal/modules/order"
	"vabboost/internal/modules/payment"
	"vabboost/internal/modules/pricing"
	"vabboost/internal/notification"
	jwtsvc "vabboost/internal/pkg/jwt"
	"vabboost/internal/pkg/logger"
	"vabboost/internal/pkg/ordernumber"
	"vabboost/internal/pkg/response"
	"vabboost/internal/pkg/yookassa"
	"vabboost/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger.Init(cfg.LogLevel, cfg.LogPretty)
	if cfg.LogDir != "" {
		if err := logger.AddFileLogger(cfg.LogDir); err != nil {
			logger.Logger.Fatal().Err(err).Str("dir", cfg.LogDir).Msg("failed to open log file")
		}
	}
	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		logger.Logger.Fatal().Err(err).Msg("database migration failed")
	}

	var limiter redis.Scripter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		defer rdb.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, rate limiting fails open")
		}
		cancel()
		limiter = rdb
	} else {
		logger.Logger.Warn().Msg("REDIS_ADDR not set, order rate limiting disabled")
	}

	orderRepo := repository.NewOrderRepository(db, ordernumber.New(cfg.OrderNumberPrefix))
	paymentRepo := repository.NewPaymentRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	notifier := notification.NewService(repository.NewNotificationRepository(db))

	gateway := yookassa.NewClient(yookassa.Config{
		ShopID:      cfg.YooKassa.ShopID,
		SecretKey:   cfg.YooKassa.SecretKey,
		APIURL:      cfg.YooKassa.APIURL,
		Timeout:     cfg.YooKassa.Timeout,
		MaxAttempts: cfg.YooKassa.MaxAttempts,
	})
	engine := pricing.NewEngine(pricing.RegionTable(cfg.RegionMultipliers))
	tokens := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	pricingHandler := pricing.NewHandler(engine)
	orderHandler := order.NewHandler(order.NewService(orderRepo, gateway, engine, notifier, order.Config{
		Currency:  cfg.Currency,
		MaxAmount: cfg.OrderMaxAmount,
		ReturnURL: cfg.YooKassa.ReturnURL,
	}))
	paymentHandler := payment.NewHandler(payment.NewService(paymentRepo, notifier))
	adminHandler := admin.NewHandler(admin.NewService(adminRepo, orderRepo, tokens))

	r := gin.New()
	// ClientIP feeds the webhook allowlist, so forwarding headers count only from listed proxies.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Logger.Fatal().Err(err).Msg("invalid TRUSTED_PROXIES")
	}
	r.Use(middleware.RequestID(), middleware.ErrorLogger(), middleware.CORS(cfg.CORSAllowedOrigins))
	r.GET("/health", health(db))

	v1 := r.Group("/api/v1")
	{
		pricingHandler.RegisterRoutes(v1)
		orderHandler.RegisterRoutes(v1,
			middleware.RateLimit(limiter, "orders", cfg.OrderRateLimit, cfg.OrderRateWindow))
		paymentHandler.RegisterRoutes(v1, middleware.WebhookAuth(middleware.WebhookAuthConfig{
			Secret:          cfg.WebhookSecret,
			SignatureHeader: cfg.WebhookSignatureHeader,
			AllowedIPs:      cfg.WebhookAllowedIPs,
		}))

		adminGroup := v1.Group("/admin")
		adminHandler.RegisterPublicRoutes(adminGroup)
		adminHandler.RegisterRoutes(adminGroup.Group("", middleware.AdminJWTAuth(tokens), middleware.AdminOnly()))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Logger.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.AppEnv).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			_ = c.Error(err)
			response.Error(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable")
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
