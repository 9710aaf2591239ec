package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fieldops/internal/audit/outbox"
	"fieldops/internal/jurisdiction"
	"fieldops/internal/platform/config"
	"fieldops/internal/platform/httpserver"
	"fieldops/internal/platform/logger"
	"fieldops/internal/platform/metrics"
	"fieldops/internal/platform/postgres"
	redisclient "fieldops/internal/platform/redis"
)

const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	addr          string
	rulesPath     string
	jurisdictions string
	migrate       bool
}

func newServeCommand() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with its ops endpoints, rules watcher and outbox relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			if flags.addr != "" {
				cfg.Addr = flags.addr
			}
			if flags.rulesPath != "" {
				cfg.RulesPath = flags.rulesPath
			}
			return serve(cmd.Context(), cfg, flags)
		},
	}
	cmd.Flags().StringVar(&flags.addr, "addr", "", "ops listen address (overrides FIELDOPS_ADDR)")
	cmd.Flags().StringVar(&flags.rulesPath, "rules", "", "rules file (overrides FIELDOPS_RULES_PATH)")
	cmd.Flags().StringVar(&flags.jurisdictions, "jurisdictions", "", "jurisdiction reference file to load at start")
	cmd.Flags().BoolVar(&flags.migrate, "migrate", true, "apply the database schema at start")
	return cmd
}

func serve(ctx context.Context, cfg config.Server, flags serveFlags) error {
	log := logger.New(cfg.LogLevel)

	rules := config.DefaultRules()
	if cfg.RulesPath != "" {
		loaded, err := config.LoadRules(cfg.RulesPath)
		if err != nil {
			return err
		}
		rules = loaded
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	var nodes []jurisdiction.Node
	if flags.jurisdictions != "" {
		if nodes, err = jurisdiction.LoadNodes(flags.jurisdictions); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	checks := map[string]httpserver.HealthCheck{}

	deps := appDeps{Nodes: nodes, Location: loc, Metrics: m, Logger: log}
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if flags.migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
		}
		deps.DB = db
		checks["postgres"] = db.PingContext
	} else {
		log.Warn().Msg("DATABASE_URL not set; records live in memory and are lost on exit")
	}

	rdb, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		deps.Cache = jurisdiction.NewRedisCache(rdb)
		checks["redis"] = rdb.Health
	}

	a, err := buildApp(ctx, cfg, rules, deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		if deps.DB == nil {
			log.Warn().Msg("KAFKA_BROKERS set without DATABASE_URL; the outbox relay needs Postgres and stays off")
		} else {
			publisher, err := outbox.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			if err != nil {
				return err
			}
			defer publisher.Close()
			// -1 takes the broker defaults for partitions and replication.
			if err := publisher.EnsureTopic(ctx, -1, -1); err != nil {
				log.Warn().Err(err).Str("topic", cfg.Kafka.Topic).Msg("could not ensure history topic")
			}
			checks["kafka"] = publisher.Ping
			relay := outbox.NewRelay(outbox.NewPostgresStore(deps.DB), publisher, a.runner,
				outbox.WithBatchSize(cfg.Kafka.BatchSize),
				outbox.WithPollInterval(cfg.Kafka.PollInterval),
				outbox.WithBreaker(5, 30*time.Second),
				outbox.WithMetrics(m),
				outbox.WithLogger(log.With().Str("component", "outbox").Logger()),
			)
			g.Go(func() error { return relay.Run(ctx) })
		}
	}

	if cfg.RulesPath != "" {
		path := cfg.RulesPath
		g.Go(func() error {
			return config.Watch(ctx, path, log.With().Str("component", "rules").Logger(), a.applyRules)
		})
	}

	srv := httpserver.New(cfg.Addr, httpserver.NewOpsRouter(reg, checks))
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("version", version).Msg("starting fieldops")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info().Msg("fieldops stopped")
	return err
}
