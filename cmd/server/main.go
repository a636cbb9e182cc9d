package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taxledger/internal/cache"
	"taxledger/internal/config"
	"taxledger/internal/db"
	"taxledger/internal/handlers"
	"taxledger/internal/logging"
	"taxledger/internal/services"
	"taxledger/internal/store"
	"taxledger/internal/websocket"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.AutoMigrate {
		before, after, err := db.Migrate(cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Fatal("migrate database")
		}
		logger.WithField("from", before).WithField("to", after).Info("schema.migrated")
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("connect database")
	}
	defer database.Close()

	users := store.NewUserStore(database)
	audit := store.NewAuditStore(database)
	categories := store.NewCategoryStore(database)
	transactions := store.NewTransactionStore(database)
	organizations := store.NewOrganizationStore(database)
	activityCodes := store.NewActivityStore(database)
	analytics := store.NewAnalyticsStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	dashboard := services.NewDashboardService(analytics, transactions,
		cache.NewTTL[services.Dashboard](cfg.DashboardCacheSize, cfg.DashboardCacheTTL), logger)
	analyticsService := services.NewAnalyticsService(analytics, cfg.AnalyticsDefaultDays, cfg.Location)

	handler := handlers.New(handlers.Deps{
		Config:       cfg,
		TxRunner:     txRunner,
		Users:        users,
		Audit:        audit,
		Activities:   activityCodes,
		Organization: services.NewOrganizationService(txRunner, database, organizations, activityCodes, audit, cfg.Location, logger),
		Categories:   services.NewCategoryService(txRunner, categories, audit, dashboard),
		Transactions: services.NewTransactionService(services.TransactionDeps{
			TxRunner:      txRunner,
			Reader:        database,
			Categories:    categories,
			Transactions:  transactions,
			Organizations: organizations,
			ActivityCodes: activityCodes,
			Audit:         audit,
			Dashboard:     dashboard,
			Hub:           hub,
			MaxAmount:     cfg.MaxTransactionAmount,
			Logger:        logger,
		}),
		Dashboard:  dashboard,
		Analytics:  analyticsService,
		TaxReports: services.NewTaxReportService(database, organizations, analyticsService, cfg.Location),
		Hub:        hub,
		Logger:     logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("taxledger API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("shutdown error")
	}
}
