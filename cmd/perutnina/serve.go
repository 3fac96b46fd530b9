package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/perutnina/internal/analytics"
	"github.com/erazemk/perutnina/internal/api"
	"github.com/erazemk/perutnina/internal/config"
	"github.com/erazemk/perutnina/internal/dispatch"
	"github.com/erazemk/perutnina/internal/metrics"
	"github.com/erazemk/perutnina/internal/notify"
	"github.com/erazemk/perutnina/internal/store"
	"github.com/erazemk/perutnina/internal/transfer"
)

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, closeLog, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			AttachStacktrace: true,
			TracesSampleRate: 0.2,
		})
		if err != nil {
			return fmt.Errorf("initializing sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Create the database with an admin account on first run.
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		database, password, err := initDatabase(ctx, cfg.DBPath, cfg.AdminUser)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		database.Close()

		printInitResult(cfg.DBPath, cfg.AdminUser, password)
		fmt.Println()
	}

	database, err := openDatabase(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()
	slog.Info("database ready", "path", cfg.DBPath)

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.FirebaseCredentials != "" {
		fn, err := notify.NewFirebaseNotifier(ctx, cfg.FirebaseCredentials, database)
		if err != nil {
			return fmt.Errorf("setting up push notifications: %w", err)
		}
		notifier = fn
		slog.Info("push notifications enabled")
	}

	tasks := dispatch.New(cfg.Workers, cfg.QueueSize, cfg.TaskTimeout)
	tasks.OnDrop = metrics.TaskDropped
	defer tasks.Close()

	sink, closeSink, err := newSink(cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	scheduler, err := analytics.NewScheduler(&analytics.Exporter{DB: database, Sink: sink}, cfg.ExportSchedule, cfg.ExportTimeout)
	if err != nil {
		return fmt.Errorf("scheduling analytics export: %w", err)
	}

	svc := transfer.NewService(&transfer.SQLRepository{DB: database}, notifier, analytics.NewRecorder(database), tasks)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(database, jwtSecret, svc),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server started", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("server stopped, closing database")
	return nil
}

// newSink picks the analytics destination: the AMQP exchange when a broker
// is configured, daily JSON lines files otherwise.
func newSink(cfg *config.Config) (analytics.Sink, func(), error) {
	if cfg.AMQPURL == "" {
		if err := os.MkdirAll(cfg.ExportDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("creating analytics directory: %w", err)
		}
		return &analytics.FileSink{Dir: cfg.ExportDir}, func() {}, nil
	}

	sink, err := analytics.NewAMQPSink(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to analytics broker: %w", err)
	}
	return sink, sink.Close, nil
}
