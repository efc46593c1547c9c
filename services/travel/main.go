package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	ratelimit "github.com/diagnosis/jf-travel/internal/http/middleware"
	"github.com/diagnosis/jf-travel/pkg/auth"
	"github.com/diagnosis/jf-travel/pkg/cache"
	"github.com/diagnosis/jf-travel/pkg/config"
	"github.com/diagnosis/jf-travel/pkg/database"
	"github.com/diagnosis/jf-travel/pkg/events"
	"github.com/diagnosis/jf-travel/pkg/logger"
	mw "github.com/diagnosis/jf-travel/pkg/middleware"
	"github.com/diagnosis/jf-travel/pkg/payments"
	"github.com/diagnosis/jf-travel/services/travel/internal/handlers"
	"github.com/diagnosis/jf-travel/services/travel/internal/repository"
	"github.com/diagnosis/jf-travel/services/travel/internal/service"
	"github.com/diagnosis/jf-travel/services/travel/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", "error", err)
	}
	logger.SetDefault(logger.New(os.Stdout, os.Getenv("LOG_LEVEL")))
	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to event bus; the API keeps serving without it
	var eventBus events.EventBus = events.NopBus{}
	if nc, err := events.NewNATSEventBus(cfg.NATS.URL, "travel"); err != nil {
		logger.Warn("NATS unavailable, events will be dropped", "error", err)
	} else {
		eventBus = nc
	}
	defer eventBus.Close()

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL)
	if err != nil {
		logger.Error("Failed to create token issuer", "error", err)
		os.Exit(1)
	}

	images, err := storage.NewLocalStore(cfg.Storage.Root, cfg.Storage.PublicPrefix, cfg.Storage.MaxImageBytes)
	if err != nil {
		logger.Error("Failed to prepare image storage", "error", err)
		os.Exit(1)
	}

	gateway := payments.NewStripeGateway(cfg.Stripe.SecretKey)
	if !gateway.Enabled() {
		logger.Info("Stripe disabled, card deposits stay pending until settled by an admin")
	}

	// Initialize repositories
	tourRepo := repository.NewTourRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	rateRepo := repository.NewRateRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	depositRepo := repository.NewDepositRepository(pool)

	// Initialize services
	rateService := service.NewRateService(rateRepo, eventBus, cfg)
	tourService := service.NewTourService(tourRepo, images, rateService, eventBus)
	bookingService := service.NewBookingService(bookingRepo, tourRepo, userRepo, rateService, eventBus)
	authService := service.NewAuthService(userRepo, issuer, eventBus)
	depositService := service.NewDepositService(depositRepo, userRepo, rateService, gateway, eventBus, cfg)

	h := handlers.New(tourService, bookingService, rateService, authService, depositService, cfg.Storage.MaxImageBytes)

	opts := handlers.RouteOptions{
		AuthRateLimit: ratelimit.NewRateLimiter(ratelimit.NewPostgresRateLimitStore(pool), ratelimit.RateLimitConfig{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
		}).Middleware(),
	}
	if store, err := cache.NewRedisStore(ctx, cfg.Redis.URL); err != nil {
		logger.Warn("Redis unavailable, idempotency keys disabled", "error", err)
	} else {
		defer store.Close()
		opts.Idempotency = mw.IdempotencyMiddleware(store, cfg.Redis.IdempotencyTTL)
	}

	// Setup router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("travel"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.CORS(cfg.CORS.AllowedOrigins))
	r.Use(mw.Health(pool))
	r.Use(mw.Authenticate(issuer))

	h.Routes(r, opts)

	prefix := cfg.Storage.PublicPrefix
	r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(images.Root()))))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down travel service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Travel service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting travel service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Travel service error", "error", err)
		os.Exit(1)
	}
}
