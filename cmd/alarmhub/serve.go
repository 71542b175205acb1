package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"alarmhub/internal/auth"
	"alarmhub/internal/catalog"
	"alarmhub/internal/config"
	"alarmhub/internal/events"
	"alarmhub/internal/httpserver"
	"alarmhub/internal/hub"
	"alarmhub/internal/incidents"
	"alarmhub/internal/logging"
	"alarmhub/internal/metrics"
	"alarmhub/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the broadcast hub",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(logging.WithLogger(ctx, logger), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := logging.FromContext(ctx)

	cat, err := loadCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	seed, err := loadSeed(cfg, time.Now())
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h := hub.New(incidents.NewStore(seed), cat, logger, hub.Options{
		QueueSize: cfg.PeerQueueSize,
		Metrics:   metrics.NewHub(reg),
	})

	var authSvc *auth.Service
	if cfg.AuthEnabled() {
		users := auth.NewStore()
		if err := users.SeedFromFile(ctx, cfg.UsersPath); err != nil {
			return err
		}
		authSvc = auth.NewService(users, cfg.JWTSecret)
		logger.Info("authentication enabled", "users", users.Len())
	}

	gin.SetMode(gin.ReleaseMode)
	router := httpserver.NewRouter(httpserver.Deps{
		Logger:          logger,
		Hub:             h,
		Auth:            authSvc,
		Gatherer:        reg,
		AllowedOrigins:  cfg.AllowedOrigins,
		DefaultAssignee: cfg.DefaultAssignee,
	})
	server := httpserver.New(cfg.HTTPAddr, router, logger)
	logger.Info("hub ready", "incidents", len(seed), "sites", len(cat.Sites), "alarms", len(cat.Alarms))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		return telemetry.NewSimulator(h, cfg.TelemetryInterval, logger).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		h.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// loadSeed returns the starting collection. Every incident must pass the
// same checks viewers apply to init, or no viewer could ever load it.
func loadSeed(cfg config.Config, now time.Time) ([]incidents.Incident, error) {
	seed := incidents.Seed(now)
	if cfg.SeedPath != "" {
		var err error
		if seed, err = incidents.LoadSeedFile(cfg.SeedPath, now); err != nil {
			return nil, err
		}
	}
	for _, inc := range seed {
		if err := events.ValidateIncident(inc); err != nil {
			return nil, fmt.Errorf("seed incident %q: %w", inc.IncidentID, err)
		}
	}
	return seed, nil
}

// loadCatalog prefers the database, then a YAML file, then the built-in set.
func loadCatalog(ctx context.Context, cfg config.Config) (catalog.Catalog, error) {
	logger := logging.FromContext(ctx)
	switch {
	case cfg.CatalogDSN != "":
		db, err := catalog.OpenDB(ctx, cfg.CatalogDSN)
		if err != nil {
			return catalog.Catalog{}, err
		}
		defer db.Close()
		c, err := catalog.LoadDB(ctx, db)
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("catalog from database: %w", err)
		}
		logger.Info("catalog loaded", "source", "database")
		return c, nil
	case cfg.CatalogPath != "":
		c, err := catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			return catalog.Catalog{}, err
		}
		logger.Info("catalog loaded", "source", cfg.CatalogPath)
		return c, nil
	}
	logger.Debug("using built-in catalog")
	return catalog.Default(), nil
}
