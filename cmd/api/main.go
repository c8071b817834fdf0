package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mendelflow/mendelflowgo/internal/config"
	"github.com/mendelflow/mendelflowgo/internal/database"
	"github.com/mendelflow/mendelflowgo/internal/handlers"
	"github.com/mendelflow/mendelflowgo/internal/logging"
	"github.com/mendelflow/mendelflowgo/internal/middleware"
	"github.com/mendelflow/mendelflowgo/internal/notify"
	"github.com/mendelflow/mendelflowgo/internal/notify/twilio"
	"github.com/mendelflow/mendelflowgo/internal/scheduler"
	"github.com/mendelflow/mendelflowgo/internal/services/picking"
	"github.com/mendelflow/mendelflowgo/internal/services/queue"
	"github.com/mendelflow/mendelflowgo/internal/services/reports"
	"github.com/mendelflow/mendelflowgo/internal/store"
	"github.com/mendelflow/mendelflowgo/internal/websocket"
)

const sessionExpirySchedule = "*/5 * * * *"

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.NodeEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// 3. Auto-Migrate Schema
	logger.Info("synchronizing database schema")
	if err := db.Migrate(); err != nil {
		logger.Warn("migration warning", zap.Error(err))
	}

	st := store.New(db.DB)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if n, err := st.CountUsers(ctx); err == nil && n == 0 {
		logger.Warn("no user accounts exist yet, run cmd/seed_demo or create one directly in the database")
	}

	// 4. SMS provider
	sms, err := smsProvider(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize SMS provider", zap.Error(err))
	}

	// 5. Live queue board
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// 6. Services
	pickingSvc := picking.NewService(st, cfg.Picking.SessionTTL, logger)
	queueSvc := queue.NewService(st, sms, hub, queue.Options{StrictCall: cfg.Queue.StrictCall}, logger)
	reportsSvc := reports.NewService(st, logger)

	// 7. Housekeeping jobs
	sched := scheduler.New(time.Local, logger)
	if err := sched.AddQueueSweep(cfg.Queue.SweepSchedule, queueSvc); err != nil {
		logger.Fatal("failed to schedule queue sweep", zap.Error(err))
	}
	if err := sched.AddSessionExpiry(sessionExpirySchedule, pickingSvc); err != nil {
		logger.Fatal("failed to schedule session expiry", zap.Error(err))
	}
	sched.Start()

	// 8. Set up HTTP router
	router := handlers.NewRouter(handlers.Deps{
		Config:  cfg,
		DB:      db,
		Store:   st,
		Auth:    middleware.NewAuth(cfg.JWTSecret, st, logger),
		Picking: pickingSvc,
		Queue:   queueSvc,
		Reports: reportsSvc,
		SMS:     sms,
		Hub:     hub,
		Log:     logger,
	})

	// 9. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.NodeEnv),
			zap.String("sms", sms.Code()),
			zap.Bool("embeddedDb", database.IsEmbedded(cfg.Database)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	sig := <-shutdown
	logger.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}
	sched.Stop(shutdownCtx)
	cancel()

	// Close database (this also stops embedded PostgreSQL)
	if err := db.Close(); err != nil {
		logger.Error("database close error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// smsProvider registers the configured gateway and returns it
func smsProvider(cfg *config.Config, logger *zap.Logger) (notify.Provider, error) {
	if err := notify.SetDefaultRegion(cfg.SMS.DefaultRegion); err != nil {
		return nil, err
	}
	registry := notify.NewRegistry()
	if err := registry.Register(notify.NewLogProvider(logger)); err != nil {
		return nil, err
	}
	if cfg.SMS.Provider == "twilio" {
		p, err := twilio.NewProvider(twilio.Config{
			AccountSID:  cfg.SMS.TwilioAccountSID,
			AuthToken:   cfg.SMS.TwilioAuthToken,
			PhoneNumber: cfg.SMS.TwilioPhoneNumber,
		})
		if err != nil {
			return nil, err
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	return registry.Get(cfg.SMS.Provider)
}
