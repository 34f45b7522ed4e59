package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capermax-01/energy-waste-engine/internal/adaptive"
	"github.com/capermax-01/energy-waste-engine/internal/alerts"
	"github.com/capermax-01/energy-waste-engine/internal/api"
	"github.com/capermax-01/energy-waste-engine/internal/cache"
	"github.com/capermax-01/energy-waste-engine/internal/config"
	"github.com/capermax-01/energy-waste-engine/internal/engine"
	"github.com/capermax-01/energy-waste-engine/internal/metrics"
	"github.com/capermax-01/energy-waste-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting waste-engine",
		slog.String("address", cfg.Server.Address),
		slog.String("building_id", cfg.Engine.BuildingID))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var store alerts.Store
	switch cfg.Store.Backend {
	case "sqlite":
		sqliteStore, err := alerts.OpenSQLiteStore(cfg.Store.Path)
		if err != nil {
			logger.Error("failed to open sqlite store", slog.String("path", cfg.Store.Path), slog.Any("error", err))
			os.Exit(1)
		}
		store = sqliteStore
	default:
		store = alerts.NewMemoryStore()
	}
	defer store.Close()

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		connectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		provider, err := cache.NewRedisProvider(connectCtx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
		cancel()
		if err != nil {
			logger.Warn("redis cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			defer provider.Close()
		}
	}

	controller := adaptive.NewController(logger, cfg.Engine.BuildingID)

	costModel, err := engine.NewCostModel(cfg.Engine.TariffINRPerKWh)
	if err != nil {
		logger.Error("invalid tariff", slog.Any("error", err))
		os.Exit(1)
	}

	classifier, err := engine.NewWasteClassifier(engine.ClassifierConfig{
		BusinessStartHour: cfg.Engine.BusinessStartHour,
		BusinessEndHour:   cfg.Engine.BusinessEndHour,
	}, controller)
	if err != nil {
		logger.Error("failed to build classifier", slog.Any("error", err))
		os.Exit(1)
	}

	generator, err := alerts.NewGenerator(logger, store, controller, costModel)
	if err != nil {
		logger.Error("failed to build alert generator", slog.Any("error", err))
		os.Exit(1)
	}

	analyzer, err := engine.NewAnalyzer(
		logger,
		engine.NewBaselineLearner(logger),
		classifier,
		costModel,
		engine.Bounds{MinPowerW: cfg.Engine.MinPowerW, MaxPowerW: cfg.Engine.MaxPowerW},
		generator,
	)
	if err != nil {
		logger.Error("failed to build analyzer", slog.Any("error", err))
		os.Exit(1)
	}

	reporter := alerts.NewReporter(logger, store, cfg.Engine.BuildingID)

	server, err := api.NewServer(cfg.Server.Address, api.Options{
		Logger:     logger,
		Analyzer:   analyzer,
		Controller: controller,
		Reporter:   reporter,
		Store:      store,
		Cache:      cacheProvider,
		BuildingID: cfg.Engine.BuildingID,
		ReportTTL:  cfg.Cache.ReportTTL,
	})
	if err != nil {
		logger.Error("failed to create http server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.ListenAndServe(); serveErr != nil {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("waste-engine stopped")
}
