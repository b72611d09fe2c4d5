package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/shaharia-lab/mailjob/internal/api"
	"github.com/shaharia-lab/mailjob/internal/build"
	"github.com/shaharia-lab/mailjob/internal/config"
	"github.com/shaharia-lab/mailjob/internal/dispatch"
	"github.com/shaharia-lab/mailjob/internal/eventbus"
	"github.com/shaharia-lab/mailjob/internal/logger"
	"github.com/shaharia-lab/mailjob/internal/mailjob"
	"github.com/shaharia-lab/mailjob/internal/metrics"
	"github.com/shaharia-lab/mailjob/internal/scheduler"
	"github.com/shaharia-lab/mailjob/internal/server"
	"github.com/shaharia-lab/mailjob/internal/storage"
	"github.com/shaharia-lab/mailjob/internal/template"
	"github.com/shaharia-lab/mailjob/internal/tracing"
)

// NewRunCmd returns the "run" subcommand that starts the mail job and its
// HTTP surface.
func NewRunCmd(cfg *config.AppConfig) *cobra.Command {
	var (
		port      int
		topic     string
		transport string
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Subscribe to the event topic and dispatch mail",
		Long: `Start the mail job. It subscribes to the configured topic, dispatches one
email per event and serves /health, /metrics and the event API until
interrupted. On SIGINT or SIGTERM in-flight dispatches are allowed to finish.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// CLI flags override env config.
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("topic") {
				cfg.Topic = topic
			}
			if cmd.Flags().Changed("transport") {
				cfg.Transport = transport
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logFile := filepath.Join(cfg.LogDir(), "system.log")
			printBanner(build.Version, [][2]string{
				{"topic", cfg.Topic},
				{"transport", cfg.Transport},
				{"templates", cfg.TemplatesDir},
				{"http", fmt.Sprintf("http://localhost:%d", cfg.Port)},
				{"logs", logFile},
			})

			if err := runJob(cfg, verbose); err != nil {
				fmt.Fprintf(os.Stderr, "An error occurred: %v\nPlease check the logs at: %s\n", err, logFile)
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", cfg.Port, "HTTP server port (overrides PORT env var)")
	cmd.Flags().StringVar(&topic, "topic", cfg.Topic, "Broker topic to subscribe to (overrides MAILJOB_TOPIC)")
	cmd.Flags().StringVar(&transport, "transport", cfg.Transport, `Delivery transport, "smtp" or "log" (overrides MAILJOB_TRANSPORT)`)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Mirror logs to stderr")

	return cmd
}

func runJob(cfg *config.AppConfig, verbose bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.Wrapf(err, "creating directory %s", cfg.DataDir)
	}

	sysLogger, logCloser, err := logger.NewSystemLogger(cfg.LogDir(), logger.Options{
		Level:      cfg.SlogLevel(),
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		Stderr:     verbose,
	})
	if err != nil {
		return errors.Wrap(err, "initializing logger")
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(sysLogger)

	sysLogger.Info("mailjob starting",
		slog.String("topic", cfg.Topic),
		slog.String("transport", cfg.Transport),
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
		build.Attrs(),
	)

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Version:     build.Version,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return errors.Wrap(err, "initializing tracing")
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), cfg.StopTimeout)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			sysLogger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	db, err := storage.Open(ctx, cfg.DBPath())
	if err != nil {
		return errors.Wrap(err, "opening dispatch log")
	}
	defer func() { _ = db.Close() }()
	store := storage.NewSQLiteDispatchLogStore(db)

	recorder := metrics.NewRecorder()

	bus := eventbus.New(cfg.BusWorkers, eventbus.WithLogger(sysLogger))
	defer bus.Close()

	executor := dispatch.NewExecutor(dispatch.Config{
		Resolver:       template.NewResolver(newTemplateStore(cfg)),
		Transport:      newTransport(cfg, sysLogger),
		Logger:         sysLogger,
		RecipientField: cfg.RecipientField,
	})

	job, err := mailjob.New(mailjob.Config{
		Topic:      cfg.Topic,
		Broker:     bus,
		Dispatcher: executor,
		Observer:   mailjob.Observers{mailjob.NewStoreObserver(store, sysLogger), recorder},
		Logger:     sysLogger,
	})
	if err != nil {
		return err
	}
	recorder.TrackInFlight(job.InFlight)

	sched, err := scheduler.New(scheduler.Config{
		Store:     store,
		Retention: cfg.LogRetention,
		Interval:  cfg.PruneInterval,
		Logger:    sysLogger,
	})
	if err != nil {
		return errors.Wrap(err, "creating retention scheduler")
	}
	if err := sched.Start(ctx); err != nil {
		return errors.Wrap(err, "starting retention scheduler")
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			sysLogger.Warn("retention scheduler shutdown failed", "error", err)
		}
	}()

	if err := job.Start(ctx); err != nil {
		return errors.Wrap(err, "starting mail job")
	}

	apiSrv := api.New(bus, store, job, sysLogger)
	srv := server.New(apiSrv, server.Options{
		Port:        cfg.Port,
		Metrics:     recorder.Handler(),
		CORSOrigins: cfg.CORSOrigins,
		Logger:      sysLogger,
	})
	sysLogger.Info("server ready", "addr", ":"+strconv.Itoa(cfg.Port))

	serveErr := srv.Run(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.StopTimeout)
	defer stopCancel()
	if err := job.Stop(stopCtx); err != nil {
		sysLogger.Error("mail job did not stop cleanly", "error", err)
		if serveErr == nil {
			serveErr = err
		}
	}
	return serveErr
}
