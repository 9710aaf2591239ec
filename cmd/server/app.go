package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fieldops/internal/audit"
	"fieldops/internal/jurisdiction"
	"fieldops/internal/platform/config"
	"fieldops/internal/platform/metrics"
	"fieldops/internal/records"
	"fieldops/internal/scoring"
	"fieldops/internal/sequence"
	"fieldops/internal/workflow"
	txcontext "fieldops/pkg/platform/tx"
)

// appDeps are the already-connected resources the components run on. A nil
// DB selects the in-memory stores.
type appDeps struct {
	DB       *sql.DB
	Cache    jurisdiction.Cache
	Nodes    []jurisdiction.Node
	Location *time.Location
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// app holds the wired domain components.
type app struct {
	runner    txcontext.Runner
	graph     jurisdiction.Graph
	engine    *workflow.Engine
	allocator *sequence.Allocator
	resolver  *jurisdiction.Resolver
	trail     *audit.Trail
	catalog   *scoring.Catalog
	scoring   *scoring.Service
	records   *records.Service
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func buildApp(ctx context.Context, cfg config.Server, rules *config.Rules, deps appDeps) (*app, error) {
	var (
		runner    txcontext.Runner
		recStore  workflow.Store
		histStore audit.Store
		counters  sequence.CounterStore
		snapshots scoring.SnapshotStore
		graph     jurisdiction.Graph
	)
	if deps.DB != nil {
		runner = txcontext.NewPostgres(deps.DB)
		recStore = workflow.NewPostgresStore(deps.DB)
		histStore = audit.NewPostgresStore(deps.DB)
		counters = sequence.NewPostgresStore(deps.DB)
		snapshots = scoring.NewPostgresStore(deps.DB)
		pg := jurisdiction.NewPostgresGraph(deps.DB)
		for _, n := range deps.Nodes {
			if err := pg.Upsert(ctx, n); err != nil {
				return nil, err
			}
		}
		graph = pg
	} else {
		runner = txcontext.NewInMemory()
		recStore = workflow.NewInMemoryStore()
		histStore = audit.NewInMemoryStore()
		counters = sequence.NewInMemoryStore()
		snapshots = scoring.NewInMemoryStore()
		mem, err := jurisdiction.NewInMemoryGraph(deps.Nodes)
		if err != nil {
			return nil, fmt.Errorf("load jurisdictions: %w", err)
		}
		graph = mem
	}

	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	log := deps.Logger

	trail := audit.NewTrail(histStore)
	engine := workflow.NewEngine(recStore, trail, runner,
		workflow.WithPolicy(rules.Policy),
		workflow.WithMetrics(deps.Metrics),
		workflow.WithLogger(log.With().Str("component", "workflow").Logger()),
	)
	allocator := sequence.NewAllocator(counters, graph, runner,
		sequence.WithLocation(loc),
		sequence.WithMetrics(deps.Metrics),
		sequence.WithLogger(log.With().Str("component", "sequence").Logger()),
	)
	resolverOpts := []jurisdiction.Option{
		jurisdiction.WithMaxNodes(cfg.Scope.MaxNodes),
		jurisdiction.WithMaxDepth(cfg.Scope.MaxDepth),
		jurisdiction.WithComputeTimeout(cfg.Scope.ComputeTimeout),
		jurisdiction.WithMetrics(deps.Metrics),
		jurisdiction.WithLogger(log.With().Str("component", "jurisdiction").Logger()),
	}
	if deps.Cache != nil {
		resolverOpts = append(resolverOpts, jurisdiction.WithCache(deps.Cache, cfg.Scope.CacheTTL))
	}
	resolver := jurisdiction.NewResolver(graph, resolverOpts...)

	catalog, err := scoring.NewCatalog(rules.Indicators, rules.Scoring)
	if err != nil {
		return nil, err
	}
	warnIfScoringDisabled(log, rules)
	scorer := scoring.NewService(recStore, snapshots, trail, catalog, runner,
		scoring.WithMetrics(deps.Metrics),
		scoring.WithLogger(log.With().Str("component", "scoring").Logger()),
	)
	recordsSvc := records.New(recStore, engine, allocator, resolver, trail, runner,
		records.WithCodeMinting(rules.CodeMinting...),
		records.WithRetry(cfg.Retry.MaxRetries, cfg.Retry.InitialBackoff, cfg.Retry.MaxBackoff),
		records.WithMetrics(deps.Metrics),
		records.WithLogger(log.With().Str("component", "records").Logger()),
	)

	return &app{
		runner:    runner,
		graph:     graph,
		engine:    engine,
		allocator: allocator,
		resolver:  resolver,
		trail:     trail,
		catalog:   catalog,
		scoring:   scorer,
		records:   recordsSvc,
		metrics:   deps.Metrics,
		logger:    log,
	}, nil
}

// applyRules swaps in a reloaded rules file. Code minting is fixed at start.
func (a *app) applyRules(rules *config.Rules, err error) {
	if err != nil {
		a.metrics.IncRuleReload("rejected")
		return
	}
	if err := a.catalog.Replace(rules.Indicators, rules.Scoring); err != nil {
		a.metrics.IncRuleReload("rejected")
		a.logger.Error().Err(err).Msg("scoring catalog reload rejected")
		return
	}
	a.engine.SetPolicy(rules.Policy)
	a.metrics.IncRuleReload("applied")
	warnIfScoringDisabled(a.logger, rules)
}

// warnIfScoringDisabled flags a rules set without indicators: every
// inspection submission would fail with "unknown indicator".
func warnIfScoringDisabled(log zerolog.Logger, rules *config.Rules) {
	if len(rules.Indicators) > 0 {
		return
	}
	log.Warn().Msg("no indicators configured; inspection scoring is disabled until a rules file supplies them")
}
