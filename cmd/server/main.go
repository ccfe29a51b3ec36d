// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/servicemart-backend/internal/cache"
	"github.com/javajoker/servicemart-backend/internal/config"
	"github.com/javajoker/servicemart-backend/internal/database"
	"github.com/javajoker/servicemart-backend/internal/i18n"
	"github.com/javajoker/servicemart-backend/internal/router"
	"github.com/javajoker/servicemart-backend/internal/services"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize database")
	}
	defer database.Close(db)

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db); err != nil {
			logrus.WithError(err).Fatal("failed to run migrations")
		}
	}
	if err := database.SeedInitialData(db, cfg); err != nil {
		logrus.WithError(err).Fatal("failed to seed initial data")
	}

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("failed to initialize i18n")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := router.Dependencies{
		Outbox: services.NewEmailOutbox(db, services.NewSMTPMailer(cfg.Email), cfg.Workflow.EmailMaxRetries, cfg.Workflow.EmailBatchSize),
	}

	if cfg.Redis.Enabled() {
		categoryCache, err := cache.NewCategoryCache(cache.Config{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      time.Duration(cfg.Redis.CategoryTTL) * time.Second,
		})
		if err != nil {
			logrus.WithError(err).Warn("redis unavailable, category cache disabled")
		} else {
			defer categoryCache.Close()
			deps.Cache = categoryCache
		}
	}

	if cfg.Payment.StripeSecretKey != "" {
		deps.Gateway = services.NewStripeGateway(cfg.Payment)
	} else {
		logrus.Info("stripe not configured, paid orders settle manually")
	}

	r, err := router.Initialize(db, cfg, deps)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize router")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	dispatcher := services.NewEmailDispatcher(deps.Outbox, cfg.Workflow.EmailDispatchSchedule)
	if err := dispatcher.Start(ctx); err != nil {
		logrus.WithError(err).Fatal("failed to start email dispatcher")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down server")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("server forced to shutdown")
	}

	logrus.Info("server exited")
}
