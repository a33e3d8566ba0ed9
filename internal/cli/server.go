package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Tollgate/internal/admission"
	"github.com/SmitUplenchwar2687/Tollgate/internal/catalog"
	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
	"github.com/SmitUplenchwar2687/Tollgate/internal/config"
	"github.com/SmitUplenchwar2687/Tollgate/internal/events"
	"github.com/SmitUplenchwar2687/Tollgate/internal/logging"
	"github.com/SmitUplenchwar2687/Tollgate/internal/policy"
	"github.com/SmitUplenchwar2687/Tollgate/internal/recorder"
	"github.com/SmitUplenchwar2687/Tollgate/internal/server"
)

// maxRecordedRequests bounds --record memory on long-running servers.
const maxRecordedRequests = 1_000_000

func newServerCmd(global *globalOptions) *cobra.Command {
	var (
		addr        string
		catalogPath string
		catalogDSN  string
		recordFile  string
		logLevel    string
		brokers     []string
		storageOpts storageOptions
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the Tollgate HTTP server",
		Long: `Starts an HTTP server that admits, prices and quotes storefront requests.

Endpoints:
  GET  /health                  Health check and catalog version
  POST /api/v1/quote            Admission, promo and bundle pricing for a cart
  POST /api/v1/promo/validate   Validate a promo code against a cart
  POST /api/v1/bundles/best     Best bundle and suggestions for product ids
  GET  /api/v1/bundles          Active bundles with their prices
  WS   /ws                      Stream of evaluation events`,
		Example: `  tollgate server
  tollgate server --config tollgate.json --addr :9090
  tollgate server --storage redis --redis-host localhost:6379
  tollgate server --catalog-dsn postgres://localhost/tollgate?sslmode=disable
  tollgate server --record traffic.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("catalog") {
				cfg.Catalog.Source = config.CatalogFile
				cfg.Catalog.Path = catalogPath
			}
			if cmd.Flags().Changed("catalog-dsn") {
				cfg.Catalog.Source = config.CatalogPostgres
				cfg.Catalog.DSN = catalogDSN
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if cmd.Flags().Changed("kafka-brokers") {
				cfg.Events.Brokers = brokers
			}
			if err := storageOpts.applyTo(cmd, &cfg.Storage); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return runServer(cmd.Context(), cfg, recordFile, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "load promo codes and bundles from this JSON file")
	cmd.Flags().StringVar(&catalogDSN, "catalog-dsn", "", "load promo codes and bundles from this postgres database")
	cmd.Flags().StringVar(&recordFile, "record", "", "record traffic to JSON file (exported on shutdown)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().StringSliceVar(&brokers, "kafka-brokers", nil, "publish evaluation events to these kafka brokers")
	storageOpts.addFlags(cmd)

	return cmd
}

func runServer(ctx context.Context, cfg config.Config, recordFile string, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.NewReal()

	st, err := openStore(cfg.Storage, clk, logger)
	if err != nil {
		return err
	}
	ap, err := admission.NewPolicy(st, clk)
	if err != nil {
		_ = st.Close()
		return err
	}
	defer ap.Close()

	source, closeSource, err := openCatalogSource(ctx, cfg.Catalog, clk)
	if err != nil {
		return err
	}
	defer closeSource()

	holder := catalog.NewHolder(source, logger)
	if err := holder.Refresh(ctx); err != nil {
		// Keep serving: quotes answer 503 until the refresh loop succeeds.
		logger.Error("initial catalog load failed", zap.Error(err))
	}
	go holder.Run(ctx, cfg.Catalog.RefreshInterval)

	hub := server.NewHub(logger)
	publisher, err := openPublisher(cfg.Events, hub, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	svc, err := policy.NewService(policy.Config{
		Admitter:  ap,
		Clock:     clk,
		Logger:    logger,
		Publisher: publisher,
	})
	if err != nil {
		return err
	}

	opts := server.Options{
		Hub:    hub,
		Logger: logger,
		Clock:  clk,
	}
	if recordFile != "" {
		opts.Recorder = recorder.NewWithOptions(recorder.Options{MaxRecords: maxRecordedRequests})
	}

	srv := server.New(cfg.Server.Addr, svc, ap, holder, cfg.Limits.For, opts)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if opts.Recorder != nil {
		logger.Info("exporting recorded traffic",
			zap.Int("records", opts.Recorder.Len()),
			zap.String("file", recordFile))
		if err := opts.Recorder.ExportFile(recordFile); err != nil {
			logger.Error("error exporting records", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openCatalogSource returns the configured catalog source and a func that
// releases it.
func openCatalogSource(ctx context.Context, cfg config.CatalogConfig, clk clock.Clock) (catalog.Source, func(), error) {
	switch cfg.Source {
	case config.CatalogPostgres:
		db, err := catalog.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		src := catalog.NewPostgresSource(db, clk)
		return src, func() { _ = src.Close() }, nil
	case config.CatalogFile, "":
		return catalog.NewFileSource(cfg.Path, clk), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}

// openPublisher fans evaluation events out to the websocket hub and, when
// configured, to the log and to kafka.
func openPublisher(cfg config.EventsConfig, hub *server.Hub, logger *zap.Logger) (events.Publisher, error) {
	pubs := events.Multi{hub}
	if cfg.Log {
		pubs = append(pubs, events.NewLogPublisher(logger))
	}
	if len(cfg.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:      cfg.Brokers,
			Topic:        cfg.Topic,
			BatchTimeout: 50 * time.Millisecond,
			Async:        true,
		})
		if err != nil {
			return nil, errors.Join(fmt.Errorf("creating kafka publisher: %w", err), pubs.Close())
		}
		pubs = append(pubs, kp)
		logger.Info("publishing evaluation events to kafka",
			zap.Strings("brokers", cfg.Brokers),
			zap.String("topic", cfg.Topic))
	}
	return pubs, nil
}
