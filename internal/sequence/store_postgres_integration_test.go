//go:build integration

package sequence_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"fieldops/internal/jurisdiction"
	"fieldops/internal/sequence"
	"fieldops/pkg/platform/tx"
	"fieldops/pkg/testutil/containers"
)

type PostgresCounterSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	store     *sequence.PostgresStore
	runner    *tx.Postgres
	allocator *sequence.Allocator
}

func TestPostgresCounterSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresCounterSuite))
}

var jan = time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)

func (s *PostgresCounterSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = sequence.NewPostgresStore(s.postgres.DB)
	s.runner = tx.NewPostgres(s.postgres.DB)

	graph, err := jurisdiction.NewInMemoryGraph([]jurisdiction.Node{
		{ID: "DL-N", Abbreviation: "DEL"},
		{ID: "MH-PUN", Abbreviation: "PUN"},
	})
	s.Require().NoError(err)
	s.allocator = sequence.NewAllocator(s.store, graph, s.runner)
}

func (s *PostgresCounterSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "sequence_counters"))
}

func (s *PostgresCounterSuite) TestFirstAllocationStartsAtOne() {
	alloc, err := s.allocator.Allocate(context.Background(), "DL-N", jan)
	s.Require().NoError(err)
	s.Equal("DEL0001012026", alloc.Code)

	current, err := s.allocator.Peek(context.Background(), "DL-N", jan)
	s.Require().NoError(err)
	s.Equal(uint64(1), current)
}

func (s *PostgresCounterSuite) TestKeysAreIndependent() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.allocator.Allocate(ctx, "DL-N", jan)
		s.Require().NoError(err)
	}
	feb, err := s.allocator.Allocate(ctx, "DL-N", jan.AddDate(0, 1, 0))
	s.Require().NoError(err)
	s.Equal("DEL0001022026", feb.Code)

	pune, err := s.allocator.Allocate(ctx, "MH-PUN", jan)
	s.Require().NoError(err)
	s.Equal("PUN0001012026", pune.Code)
}

func (s *PostgresCounterSuite) TestRolledBackUnitConsumesNothing() {
	ctx := context.Background()
	boom := errors.New("record insert failed")

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.allocator.Allocate(ctx, "DL-N", jan); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	alloc, err := s.allocator.Allocate(ctx, "DL-N", jan)
	s.Require().NoError(err)
	s.Equal(uint64(1), alloc.Sequence)
}

func (s *PostgresCounterSuite) TestConcurrentAllocationsAreContiguous() {
	const workers = 64
	values := make([]uint64, workers)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			alloc, err := s.allocator.Allocate(ctx, "DL-N", jan)
			if err != nil {
				return err
			}
			values[i] = alloc.Sequence
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	sort.Slice(values, func(a, b int) bool { return values[a] < values[b] })
	for i, v := range values {
		s.Equal(uint64(i+1), v)
	}
}

func (s *PostgresCounterSuite) TestCurrentOfUntouchedKeyIsZero() {
	v, err := s.store.Current(context.Background(), sequence.Key{ScopeID: "DL-N", Month: 7, Year: 2030})
	s.Require().NoError(err)
	s.Zero(v)
}
