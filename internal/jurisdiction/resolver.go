package jurisdiction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"fieldops/internal/platform/metrics"
	id "fieldops/pkg/domain"
	dErrors "fieldops/pkg/domain-errors"
	"fieldops/pkg/platform/sentinel"
)

const (
	defaultMaxNodes = 10_000
	defaultMaxDepth = 32
	defaultCacheTTL = 5 * time.Minute
	// closures are shared between callers, so they run detached from any one
	// caller's context and are bounded by this instead.
	defaultComputeTimeout = 10 * time.Second
)

// ErrBudgetExceeded is wrapped when a closure grows past the node budget.
var ErrBudgetExceeded = errors.New("authority scope exceeds node budget")

// Cache stores computed closures keyed by the normalized assignment set.
type Cache interface {
	Get(ctx context.Context, key string) ([]id.JurisdictionID, bool, error)
	Set(ctx context.Context, key string, members []id.JurisdictionID, ttl time.Duration) error
}

// Resolver computes authority scopes over a Graph.
type Resolver struct {
	graph    Graph
	cache    Cache
	cacheTTL time.Duration
	timeout  time.Duration
	maxNodes int
	maxDepth int
	group    singleflight.Group
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

type Option func(r *Resolver)

// WithMaxNodes caps the size of any computed closure.
func WithMaxNodes(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxNodes = n
		}
	}
}

// WithMaxDepth caps the ancestor walk in HasAuthority.
func WithMaxDepth(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// WithComputeTimeout bounds a shared closure computation.
func WithComputeTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithCache(c Cache, ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cache = c
		if ttl > 0 {
			r.cacheTTL = ttl
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func NewResolver(graph Graph, opts ...Option) *Resolver {
	r := &Resolver{
		graph:    graph,
		cacheTTL: defaultCacheTTL,
		timeout:  defaultComputeTimeout,
		maxNodes: defaultMaxNodes,
		maxDepth: defaultMaxDepth,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ScopeOf returns every assigned jurisdiction and all of its descendants.
// Concurrent calls for the same assignment share one computation; a caller
// whose ctx ends stops waiting without failing the others.
func (r *Resolver) ScopeOf(ctx context.Context, assigned []id.JurisdictionID) (Scope, error) {
	roots := normalize(assigned)
	if len(roots) == 0 {
		return newScope(nil), nil
	}
	key := scopeKey(roots)

	if r.cache != nil {
		members, hit, err := r.cache.Get(ctx, key)
		if err != nil {
			r.logger.Warn().Err(err).Msg("scope cache read failed; computing")
		} else if hit {
			r.metrics.ObserveScope("cache", len(members))
			return newScope(members), nil
		}
	}

	ch := r.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.closure(shared, roots)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		r.metrics.ObserveScope("error", 0)
		return Scope{}, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "scope resolution cancelled")
	}
	if res.Err != nil {
		r.metrics.ObserveScope("error", 0)
		return Scope{}, res.Err
	}
	members := res.Val.([]id.JurisdictionID)
	r.metrics.ObserveScope("computed", len(members))

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, members, r.cacheTTL); err != nil {
			r.logger.Warn().Err(err).Msg("scope cache write failed")
		}
	}
	return newScope(members), nil
}

// closure is a level-by-level BFS. Each node is expanded at most once, so
// cycles in the source data terminate.
func (r *Resolver) closure(ctx context.Context, roots []id.JurisdictionID) ([]id.JurisdictionID, error) {
	visited := make(map[id.JurisdictionID]struct{}, len(roots))
	members := make([]id.JurisdictionID, 0, len(roots))
	for _, j := range roots {
		visited[j] = struct{}{}
		members = append(members, j)
	}
	if len(members) > r.maxNodes {
		return nil, r.budgetError(len(members))
	}

	frontier := roots
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "scope resolution cancelled")
		}
		children, err := r.graph.Children(ctx, frontier)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "scope resolution cancelled")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load child jurisdictions")
		}
		next := make([]id.JurisdictionID, 0, len(children))
		for _, c := range children {
			if _, seen := visited[c]; seen {
				continue
			}
			visited[c] = struct{}{}
			members = append(members, c)
			next = append(next, c)
			if len(members) > r.maxNodes {
				return nil, r.budgetError(len(members))
			}
		}
		frontier = next
	}
	return members, nil
}

func (r *Resolver) budgetError(size int) error {
	r.logger.Error().Int("size", size).Int("budget", r.maxNodes).Msg("authority scope over budget; denying")
	return dErrors.Wrap(fmt.Errorf("%w: more than %d nodes", ErrBudgetExceeded, r.maxNodes),
		dErrors.CodeInternal, "authority scope too large")
}

// HasAuthority reports whether an actor assigned to assigned may act on
// target. Authority flows downward only: a parent assignment reaches its
// descendants, never the reverse.
func (r *Resolver) HasAuthority(ctx context.Context, assigned []id.JurisdictionID, target id.JurisdictionID) (bool, error) {
	roots := normalize(assigned)
	if len(roots) == 0 || target == "" {
		return false, nil
	}
	rootSet := newScope(roots)
	if rootSet.Contains(target) {
		return true, nil
	}

	found, conclusive, err := r.ancestorsIntersect(ctx, target, rootSet)
	if err != nil {
		return false, err
	}
	if found {
		return true, nil
	}
	if conclusive {
		return false, nil
	}

	scope, err := r.ScopeOf(ctx, roots)
	if err != nil {
		return false, err
	}
	return scope.Contains(target), nil
}

// ancestorsIntersect walks target's parent chain. conclusive is false when
// the walk stopped at the depth cap or on a cycle instead of at a root.
func (r *Resolver) ancestorsIntersect(ctx context.Context, target id.JurisdictionID, assigned Scope) (found, conclusive bool, err error) {
	seen := map[id.JurisdictionID]struct{}{target: {}}
	current := target
	for depth := 0; depth < r.maxDepth; depth++ {
		node, err := r.graph.Node(ctx, current)
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, true, nil
		}
		if err != nil {
			return false, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load jurisdiction")
		}
		if node.IsRoot() {
			return false, true, nil
		}
		if assigned.Contains(node.ParentID) {
			return true, true, nil
		}
		if _, cycle := seen[node.ParentID]; cycle {
			r.logger.Warn().Str("jurisdiction_id", string(node.ParentID)).Msg("cycle in jurisdiction ancestry")
			return false, false, nil
		}
		seen[node.ParentID] = struct{}{}
		current = node.ParentID
	}
	return false, false, nil
}
