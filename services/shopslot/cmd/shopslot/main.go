package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopslothq/shopslot/libs/config"
	"github.com/shopslothq/shopslot/libs/db"
	"github.com/shopslothq/shopslot/libs/httpx"
	"github.com/shopslothq/shopslot/libs/kafkax"
	otelx "github.com/shopslothq/shopslot/libs/otel"
	"github.com/shopslothq/shopslot/libs/runtime"
	"github.com/shopslothq/shopslot/services/shopslot/internal/handlers"
	"github.com/shopslothq/shopslot/services/shopslot/internal/metrics"
	"github.com/shopslothq/shopslot/services/shopslot/internal/outbox"
	"github.com/shopslothq/shopslot/services/shopslot/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "shopslot")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	metrics.Register()

	shopRepo := storage.NewShopRepository(pool)
	catalogRepo := storage.NewCatalogRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	publicHandler := handlers.NewPublicHandler(shopRepo, catalogRepo, bookingRepo, outboxRepo, logger)
	adminHandler := handlers.NewAdminHandler(shopRepo, catalogRepo, bookingRepo, outboxRepo, logger)
	dashboardHandler := handlers.NewDashboardHandler(shopRepo, bookingRepo, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	// Public endpoints are rate limited per client; Redis makes the window
	// shared across replicas, otherwise a per-process limiter applies.
	var publicLimit httpx.Middleware
	limit := config.Int("PUBLIC_RATE_LIMIT", 60)
	window := time.Duration(config.Int("PUBLIC_RATE_WINDOW_SECONDS", 60)) * time.Second
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer rdb.Close()
		publicLimit = httpx.NewRedisRateLimiter(rdb, limit, window, "shopslot:rl").Middleware(logger, true)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	} else {
		publicLimit = httpx.NewRateLimiter(limit, window).Middleware()
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/metrics", promhttp.Handler())

	public := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, publicLimit)
	}
	mux.Handle("/api/v1/public/booking", public(publicHandler.BookingPage))
	mux.Handle("/api/v1/public/slots", public(publicHandler.Slots))
	mux.Handle("/api/v1/public/book", public(publicHandler.Book))

	mux.HandleFunc("/api/v1/shops", adminHandler.CreateShop)
	mux.HandleFunc("/api/v1/shops/hours", adminHandler.UpdateShopHours)
	mux.HandleFunc("/api/v1/shops/closures", adminHandler.Closures)
	mux.HandleFunc("/api/v1/services", adminHandler.Services)
	mux.HandleFunc("/api/v1/staff", adminHandler.Staff)
	mux.HandleFunc("/api/v1/staff/hours", adminHandler.UpdateStaffHours)
	mux.HandleFunc("/api/v1/staff/services", adminHandler.AssignService)
	mux.HandleFunc("/api/v1/staff/timeoff", adminHandler.TimeOff)
	mux.HandleFunc("/api/v1/bookings", adminHandler.Bookings)
	mux.HandleFunc("/api/v1/bookings/status", adminHandler.BookingStatus)
	mux.HandleFunc("/api/v1/bookings/cancel", adminHandler.CancelBooking)
	mux.HandleFunc("/api/v1/dashboard/stats", dashboardHandler.Stats)

	var corsOrigins []string
	if raw := config.String("CORS_ALLOWED_ORIGINS", ""); raw != "" {
		corsOrigins = strings.Split(raw, ",")
	}
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type", "Idempotency-Key", "X-Shop-Id"},
			MaxAge:         10 * time.Minute,
		}),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "shopslot")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
