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

	"github.com/joho/godotenv"

	"github.com/onnwee/minimonday/backend/internal/api"
	"github.com/onnwee/minimonday/backend/internal/config"
	"github.com/onnwee/minimonday/backend/internal/errorreporting"
	"github.com/onnwee/minimonday/backend/internal/facade"
	"github.com/onnwee/minimonday/backend/internal/logger"
	"github.com/onnwee/minimonday/backend/internal/metrics"
	"github.com/onnwee/minimonday/backend/internal/secrets"
	"github.com/onnwee/minimonday/backend/internal/sheets"
	"github.com/onnwee/minimonday/backend/internal/store"
	"github.com/onnwee/minimonday/backend/internal/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (falling back to system env)")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize structured logging
	logger.Init(cfg.LogLevel)
	logger.Info("Initializing API server", "version", cfg.SentryRelease, "log_level", cfg.LogLevel)

	if err := validateSecrets(cfg); err != nil {
		logger.Error("Invalid configuration", "error", err)
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize error reporting
	if err := errorreporting.Init(errorreporting.Options{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     cfg.SentryRelease,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		logger.Warn("Failed to initialize error reporting", "error", err)
	} else if errorreporting.IsSentryEnabled() {
		logger.Info("Error reporting initialized", "environment", cfg.SentryEnvironment)
		defer func() {
			logger.Info("Flushing error reports...")
			errorreporting.Flush(2 * time.Second)
		}()
	}

	// Initialize tracing
	shutdownTracing, err := tracing.Init("minimonday-api", tracing.Settings{
		Enabled:    cfg.OTELEnabled,
		Endpoint:   cfg.OTELEndpoint,
		SampleRate: cfg.OTELSampleRate,
	})
	if err != nil {
		logger.Warn("Failed to initialize tracing", "error", err)
	} else if cfg.OTELEnabled {
		logger.Info("Tracing initialized", "endpoint", cfg.OTELEndpoint, "sample_rate", cfg.OTELSampleRate)
		defer func() {
			logger.Info("Shutting down tracer...")
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("Failed to shutdown tracer", "error", err)
			}
		}()
	}

	client, err := sheets.NewFromConfig(cfg)
	if err != nil {
		logger.Error("Failed to create Sheets client", "error", err)
		log.Fatalf("Failed to create Sheets client: %v", err)
	}
	logger.Info("Sheets client ready",
		"base_url", secrets.MaskURL(cfg.SheetsBaseURL),
		"spreadsheet", secrets.Mask(cfg.SpreadsheetID),
		"service_account", secrets.MaskEmail(cfg.GoogleServiceAccountEmail),
	)

	f, err := facade.New(facade.ConfigFromApp(cfg))
	if err != nil {
		logger.Error("Failed to create data-access facade", "error", err)
		log.Fatalf("Failed to create data-access facade: %v", err)
	}
	repo := store.NewRepository(client, f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := metrics.NewCollector(facade.MetricsSource(f), cfg.MetricsInterval)
	go collector.Start(ctx)

	handler, stopLimiter := api.Handler(api.Deps{Store: repo, Facade: f})
	defer stopLimiter()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Received shutdown signal")
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("Server listening", "addr", srv.Addr, "perf_hardening", cfg.PerfHardening)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", "error", err)
		errorreporting.CaptureError(err)
		log.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}

// validateSecrets checks the credentials the server cannot start without.
func validateSecrets(cfg *config.Config) error {
	required := map[string]string{"SHEETS_SPREADSHEET_ID": cfg.SpreadsheetID}
	if cfg.GoogleServiceAccountEmail != "" || cfg.GooglePrivateKey != "" {
		required["GOOGLE_SERVICE_ACCOUNT_EMAIL"] = cfg.GoogleServiceAccountEmail
		required["GOOGLE_PRIVATE_KEY"] = cfg.GooglePrivateKey
	}
	if err := secrets.ValidateRequired(required); err != nil {
		return err
	}
	if cfg.GooglePrivateKey != "" {
		if err := secrets.ValidatePrivateKey(cfg.GooglePrivateKey); err != nil {
			return err
		}
	}
	return secrets.ValidateAdminToken(cfg.AdminAPIToken)
}
