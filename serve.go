package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stocks-simulator/config"
	"stocks-simulator/database"
	"stocks-simulator/handlers"
	"stocks-simulator/logger"
	"stocks-simulator/middleware"
	"stocks-simulator/quotes"
	"stocks-simulator/session"
	"stocks-simulator/trading"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Create or update tables from the models before serving")
	return cmd
}

func serve(autoMigrate bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	appLogger, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		appLogger.Fatal("Failed to connect to the database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if autoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			appLogger.Fatal("Failed to migrate models", logger.ErrorField(err))
		}
	}

	rdb, err := config.InitRedis(ctx, cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer rdb.Close()

	var quoteCache quotes.Cache = quotes.NewRedisCache(rdb)
	if cfg.Quotes.CacheBackend == "memory" {
		quoteCache = quotes.NewMemoryCache(cfg.Quotes.CacheTTL)
	}
	quoter := quotes.NewCachedProvider(
		quotes.NewAlphaVantage(cfg.Quotes.BaseURL, cfg.Quotes.APIKey, cfg.Quotes.Timeout),
		quoteCache,
		cfg.Quotes.CacheTTL,
		appLogger,
	)

	startingCash, _ := cfg.InitialCash()
	store := database.NewStore(db)
	svc := trading.NewService(
		store,
		database.NewUserRepository(store),
		database.NewTransactionRepository(store),
		quoter,
		appLogger,
		trading.Options{StartingCash: startingCash},
	)

	sessions := session.NewManager(rdb, cfg.Session.Secret, cfg.Session.TTL)
	h := handlers.New(svc, sessions, handlers.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.SecureCookie,
	}, appLogger)

	gin.SetMode(gin.ReleaseMode)
	router, err := h.Router(middleware.NewRateLimiter(cfg.LoginRate))
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("HTTP server starting", logger.StringField("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed", logger.ErrorField(err))
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	appLogger.Info("Server exiting")
	return nil
}
