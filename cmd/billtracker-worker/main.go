package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"billtracker/internal/amqp"
	"billtracker/internal/backend"
	"billtracker/internal/cli"
	"billtracker/internal/config"
	"billtracker/internal/log"
	"billtracker/internal/metrics"
	"billtracker/internal/sheets"
	gsheet "billtracker/internal/sheets/google"
	memmirror "billtracker/internal/sheets/memory"
	"billtracker/internal/worker"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "mirror into memory instead of Google Sheets")
	metricsAddr := flag.String("metrics-addr", ":9091", "address for /metrics, empty to disable")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	if err := run(cfg, logger, *dryRun, *metricsAddr); err != nil {
		logger.Error("Worker exited with error", log.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger, dryRun bool, metricsAddr string) error {
	if !dryRun {
		if err := cfg.ValidateMirror(); err != nil {
			return err
		}
	} else if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required for the mirror worker")
	}

	startCtx := context.Background()
	mirror, err := newMirror(startCtx, cfg, dryRun)
	if err != nil {
		return err
	}
	logger.Info("Mirror initialized", "dry_run", dryRun, "spreadsheet_id", cfg.GoogleSpreadsheetID)

	m := metrics.New()
	mw := worker.NewMirrorWorker(mirror, m, logger)

	broker, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer broker.Close()

	// A memory backend lives in the server process, so there is nothing
	// shared to catch up from.
	if cfg.DataBackend != config.BackendMemory {
		startupSync(startCtx, cfg, logger, mw)
	}

	var metricsSrv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", m.Handler())
		metricsSrv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	// The consumer and the metrics server both stop on ctx.
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consuming ledger changes", "queue", cfg.AMQPQueue)
		err := broker.ConsumeLedgerChanges(gctx, mw.HandleLedgerChange)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("consume ledger changes: %w", err)
		}
		return nil
	})
	if metricsSrv != nil {
		g.Go(func() error {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
	logger.Info("Worker stopped")
	return nil
}

func newMirror(ctx context.Context, cfg *config.Config, dryRun bool) (sheets.LedgerMirror, error) {
	if dryRun {
		return memmirror.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		BillsSheet:      cfg.GoogleSheetName,
		SummarySheet:    cfg.GoogleSummarySheetName,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
		OAuthClientJSON: cfg.GoogleOAuthClientJSON,
		OAuthClientFile: cfg.GoogleOAuthClientFile,
		OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
	})
	if err != nil {
		return nil, fmt.Errorf("init Google Sheets mirror: %w", err)
	}
	return client, nil
}

// startupSync mirrors the stored ledger once so changes made while the
// worker was down are not lost. Failures are logged, not fatal.
func startupSync(ctx context.Context, cfg *config.Config, logger *log.Logger, mw *worker.MirrorWorker) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Warn("Skipping startup sync", log.FieldError, err)
		return
	}
	store, err := backend.NewFactory(logger).Open(ctx, backendCfg)
	if err != nil {
		logger.Warn("Skipping startup sync, backend unavailable",
			log.FieldError, err,
			log.FieldBackend, cfg.DataBackend)
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	}()

	syncCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := mw.StartupSync(syncCtx, store.KV); err != nil {
		logger.Error("Startup sync failed", log.FieldError, err, log.FieldOperation, log.OpStartup)
	}
}
