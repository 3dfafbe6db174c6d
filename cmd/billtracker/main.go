package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"billtracker/internal/amqp"
	"billtracker/internal/backend"
	"billtracker/internal/cli"
	"billtracker/internal/config"
	apphttp "billtracker/internal/http"
	"billtracker/internal/ledger"
	"billtracker/internal/log"
	"billtracker/internal/metrics"
	"billtracker/internal/services"
	"billtracker/internal/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", log.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	startCtx := context.Background()
	m := metrics.New()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	backendCfg.CacheObserver = m
	backing, err := backend.NewFactory(logger).Open(startCtx, backendCfg)
	if err != nil {
		return err
	}

	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithRecorder(m),
		ledger.WithCurrencySymbol(cfg.CurrencySymbol),
	}

	var broker *amqp.Client
	if cfg.AMQPEnabled() {
		broker, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// The ledger works without the broker; only the mirror falls behind.
			logger.Warn("AMQP unavailable, change events disabled",
				log.FieldError, err,
				log.FieldErrorType, log.ErrorTypeNetwork)
		} else {
			opts = append(opts, ledger.WithObserver(services.NewChangePublisher(broker, m, logger)))
			logger.Info("Publishing ledger changes", "exchange", cfg.AMQPExchange)
		}
	}

	store, err := ledger.Open(startCtx, backing.KV, opts...)
	if err != nil {
		logger.Warn("Ledger loaded with fallbacks", log.FieldError, err)
	}

	rules, err := reminderRules(cfg.ReminderRules)
	if err != nil {
		return err
	}
	reminders := services.NewReminderProcessor(store, nil, services.ReminderProcessorConfig{
		Interval: cfg.ReminderInterval,
		Rules:    rules,
	}, logger)

	srvOpts := []apphttp.Option{
		apphttp.WithLogger(logger),
		apphttp.WithMetrics(m),
		apphttp.WithReminders(reminders),
		apphttp.WithRateLimit(cfg.RateLimitPerMinute),
	}
	if p, ok := backing.KV.(storage.Pinger); ok {
		srvOpts = append(srvOpts, apphttp.WithReadiness(p))
	}
	srv := apphttp.NewServer(":"+cfg.Port, services.NewLedgerService(store), srvOpts...)

	var cleanupOnce sync.Once
	cleanup := func(ctx context.Context) {
		cleanupOnce.Do(func() {
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Server shutdown error", log.FieldError, err)
			}
			if err := reminders.Stop(ctx); err != nil {
				logger.Warn("Reminder processor stop error", log.FieldError, err)
			}
			if broker != nil {
				if err := broker.Close(); err != nil {
					logger.Warn("AMQP close error", log.FieldError, err)
				}
			}
			if err := backing.Close(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		})
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, cleanup)

	if err := reminders.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting billtracker server",
			"port", cfg.Port,
			log.FieldBackend, cfg.DataBackend,
			"bills", len(store.Bills()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		cleanup(shutdownCtx)
		return err
	}

	<-done
	logger.Info("Server stopped gracefully")
	return nil
}

// reminderRules resolves REMINDER_RULES names against the rule registry.
func reminderRules(names []string) ([]services.ReminderRule, error) {
	if len(names) == 0 {
		return services.DefaultReminderProcessorConfig().Rules, nil
	}
	rules := make([]services.ReminderRule, 0, len(names))
	for _, name := range names {
		rule, err := services.GetReminderRule(name)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
