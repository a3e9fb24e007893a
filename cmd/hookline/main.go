package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	corecfg "github.com/aevon-lab/hookline/internal/core/config"
	"github.com/aevon-lab/hookline/internal/core/storage/postgres"
	"github.com/aevon-lab/hookline/internal/fanout"
	"github.com/aevon-lab/hookline/internal/ingestion"
	"github.com/aevon-lab/hookline/internal/metrics"
	"github.com/aevon-lab/hookline/internal/migrations"
	"github.com/aevon-lab/hookline/internal/normalization"
	"github.com/aevon-lab/hookline/internal/server"
	"github.com/aevon-lab/hookline/internal/webhookauth"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", os.Getenv("HOOKLINE_CONFIG"), "Path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("Hookline stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}

func run(configPath string) error {
	// 1. Load Configuration
	cfg, err := corecfg.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)
	slog.Info("Loaded config",
		"address", cfg.Server.Address(),
		"endpoints", len(cfg.Webhook.Endpoints),
		"standardizer", cfg.Normalization.Standardizer,
		"diagnostics", cfg.Diagnostics.Token != "")

	// 3. Initialize Storage (PostgreSQL) and run migrations
	db, err := postgres.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	if err := migrations.RunMigrations(db, cfg.Database.AutoMigrate); err != nil {
		db.Close()
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	store, err := postgres.NewAdapterFromDB(db)
	if err != nil {
		db.Close()
		return err
	}
	defer store.Close()

	// 4. Initialize Normalization
	taxonomy, err := normalization.LoadTaxonomy(cfg.Normalization.TaxonomyPath)
	if err != nil {
		return err
	}
	standardizer, err := newStandardizer(cfg.Normalization, store)
	if err != nil {
		return err
	}
	normalizer := normalization.NewNormalizer(taxonomy, standardizer, cfg.Normalization.PlatformSource)
	slog.Info("Normalization initialized",
		"taxonomy_version", taxonomy.Version,
		"taxonomy_events", taxonomy.Len(),
		"standardizer", cfg.Normalization.Standardizer)

	// 5. Initialize Authentication, Fan-out and Ingestion
	m := metrics.New()

	auth := webhookauth.NewAuthenticator(store, webhookauth.Config{
		Endpoints:                      cfg.Webhook.Endpoints,
		FreshnessWindow:                cfg.Webhook.FreshnessWindow,
		RateLimitMax:                   cfg.Webhook.RateLimit.MaxRequests,
		RateLimitWindow:                cfg.Webhook.RateLimit.Window,
		AvailabilityOverStrictSecurity: cfg.Webhook.AvailabilityOverStrictSecurity,
	})
	writer := fanout.NewWriter(store, cfg.Identity.PlaceholderID, cfg.Identity.PlaceholderName, m)

	ingestionSvc := ingestion.NewService(auth, normalizer, writer, store, m, ingestion.Options{
		MaxBodyBytes:     cfg.Server.MaxBodyBytes(),
		DiagnosticsToken: cfg.Diagnostics.Token,
	})

	// 6. Initialize Server
	srv := server.New(cfg.Server.Address(), store, server.Options{
		Mode:            cfg.Server.Mode,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Metrics:         m,
	})
	ingestionSvc.RegisterRoutes(srv.Engine)

	// 7. Serve until a signal arrives
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Signal received, shutting down...")
		return nil
	})

	return g.Wait()
}

func newStandardizer(cfg corecfg.NormalizationConfig, store *postgres.Adapter) (normalization.Standardizer, error) {
	switch cfg.Standardizer {
	case corecfg.StandardizerPostgres:
		return postgres.NewMappingAdapter(store.DB()), nil
	case corecfg.StandardizerHTTP:
		return normalization.NewHTTPStandardizer(cfg.StandardizerURL, cfg.StandardizerTimeout), nil
	case corecfg.StandardizerNone:
		return normalization.NoopStandardizer{}, nil
	default:
		return nil, fmt.Errorf("unsupported standardizer %q", cfg.Standardizer)
	}
}
