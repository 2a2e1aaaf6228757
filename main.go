package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mytube/internal/database"
	"mytube/internal/handlers"
	"mytube/internal/indexer"
	"mytube/internal/logging"
	"mytube/internal/media"
	"mytube/internal/memory"
	"mytube/internal/metrics"
	"mytube/internal/middleware"
	"mytube/internal/startup"

	"github.com/gorilla/mux"
)

const metricsInterval = time.Minute

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	memory.ConfigureLimit(os.Getenv)
	memMonitor := memory.NewMonitor(memory.DefaultConfig(), nil)
	memMonitor.Start()

	build := startup.GetBuildInfo()
	metrics.SetAppInfo(build.Version, build.Commit, build.GoVersion)
	metrics.InitializeMetrics()

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	// Media tools
	startup.LogMediaToolsInit(config.FFprobePath, config.FFmpegPath)
	prober := media.NewProber(media.ExecRunner{}, config.FFprobePath, time.Duration(config.ProbeTimeout))
	thumbs := media.NewThumbnailGenerator(media.ExecRunner{}, config.FFmpegPath, time.Duration(config.ThumbnailTimeout))

	// Initialize scanner
	scanCfg := config.IndexerConfig()
	startup.LogScannerInit(config, scanCfg.Workers)
	scanner := indexer.New(scanCfg, db, prober, thumbs, indexer.WithGate(memMonitor))
	scanner.Start()
	startup.LogScannerStarted()

	var watcher *indexer.Watcher
	if config.WatchEnabled {
		watcher, err = indexer.NewWatcher(config.MediaDir, time.Duration(config.WatchDebounce), scanner, nil)
		if err != nil {
			logging.Warn("File watching disabled: %v", err)
		} else {
			watcher.Start()
		}
	}

	collector := metrics.NewCollector(db, metricsInterval)
	collector.Start()

	// Setup router
	router := mux.NewRouter()
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	handlers.New(db, scanner, config.ThumbnailDir, config.ThumbnailURLPrefix).RegisterRoutes(router)

	startup.LogHTTPRoutes(router, config.LogHTTP)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.Enabled = config.LogHTTP
	handler := middleware.Logger(loggingConfig)(router)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", handlers.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go handleShutdown(done, srv, metricsSrv, scanner, watcher, collector, memMonitor)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}

	<-done

	startup.LogShutdownStep("Closing database")
	if err := db.Close(); err != nil {
		logging.Warn("Database close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Database closed")
	}
	startup.LogShutdownComplete()
}

func handleShutdown(done chan<- struct{}, srv, metricsSrv *http.Server, scanner *indexer.Scanner, watcher *indexer.Watcher, collector *metrics.Collector, memMonitor *memory.Monitor) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if watcher != nil {
		startup.LogShutdownStep("Stopping file watcher")
		watcher.Stop()
		startup.LogShutdownStepComplete("File watcher stopped")
	}

	startup.LogShutdownStep("Stopping scanner")
	scanner.Stop()
	startup.LogShutdownStepComplete("Scanner stopped")

	startup.LogShutdownStep("Stopping memory monitor")
	memMonitor.Stop()
	startup.LogShutdownStepComplete("Memory monitor stopped")

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}
}
