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
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/jf-travel/pkg/config"
	"github.com/diagnosis/jf-travel/pkg/events"
	"github.com/diagnosis/jf-travel/pkg/logger"
	mw "github.com/diagnosis/jf-travel/pkg/middleware"
	"github.com/diagnosis/jf-travel/services/notify/internal/mailer"
	"github.com/diagnosis/jf-travel/services/notify/internal/notifier"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", "error", err)
	}
	logger.SetDefault(logger.New(os.Stdout, os.Getenv("LOG_LEVEL")))
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus, err := events.NewNATSEventBus(cfg.NATS.URL, "notify")
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}

	n := notifier.New(mailer.New(cfg.Email), cfg.Currency.Locale)
	for _, subject := range notifier.Subjects {
		err := bus.QueueSubscribe(subject, cfg.NATS.Queue, func(msg *events.Message) {
			hctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := n.Handle(hctx, msg); err != nil {
				logger.ErrorContext(hctx, "Failed to handle event", "error", err, "subject", msg.Subject, "event_id", msg.ID)
			}
		})
		if err != nil {
			logger.Error("Failed to subscribe", "error", err, "subject", subject)
			os.Exit(1)
		}
		logger.Info("Subscribed", "subject", subject, "queue", cfg.NATS.Queue)
	}

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("notify"))
	r.Use(mw.Logging)
	r.Use(mw.Health(nil))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.NotifyPort,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting notify service", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down notify service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// let in-flight e-mails finish before closing the connection
		if err := bus.Drain(); err != nil {
			logger.Error("NATS drain error", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Notify service error", "error", err)
		os.Exit(1)
	}
}

