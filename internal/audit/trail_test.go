package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "fieldops/pkg/domain"
	dErrors "fieldops/pkg/domain-errors"
	"fieldops/pkg/platform/tx"
	"fieldops/pkg/requestcontext"
)

type TrailSuite struct {
	suite.Suite
	store *InMemoryStore
	trail *Trail
}

func TestTrailSuite(t *testing.T) {
	suite.Run(t, new(TrailSuite))
}

func (s *TrailSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.trail = NewTrail(s.store)
}

func (s *TrailSuite) TestAppendValidation() {
	ctx := context.Background()

	s.Run("missing record id", func() {
		_, err := s.trail.Append(ctx, Entry{Action: ActionCreated, Actor: System{Process: "seed"}})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown action", func() {
		_, err := s.trail.Append(ctx, Entry{RecordID: id.NewRecordID(), Action: "edited", Actor: System{}})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing actor", func() {
		_, err := s.trail.Append(ctx, Entry{RecordID: id.NewRecordID(), Action: ActionCreated})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *TrailSuite) TestAppendStampsEntry() {
	now := time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	recordID := id.NewRecordID()

	entry, err := s.trail.Append(ctx, Entry{
		RecordID: recordID,
		Action:   ActionEvidenceAdded,
		Remarks:  "  photo of cold-store thermometer  ",
		Actor:    Officer{ID: "off-7", Role: "inspector"},
		Geo:      &GeoPoint{Latitude: 28.61, Longitude: 77.21},
	})
	s.Require().NoError(err)
	s.Equal(now, entry.OccurredAt)
	s.Equal("photo of cold-store thermometer", entry.Remarks)
	s.NotEqual(id.EntryID{}, entry.ID)
	s.Equal(int64(1), entry.Seq)
}

func (s *TrailSuite) TestListForNewestFirstWithTieBreak() {
	recordID := id.NewRecordID()
	tied := time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), tied)

	for _, action := range []Action{ActionCreated, ActionAssigned, ActionStatusChanged} {
		_, err := s.trail.Append(ctx, Entry{RecordID: recordID, Action: action, Actor: System{Process: "test"}})
		s.Require().NoError(err)
	}
	later := requestcontext.WithTime(context.Background(), tied.Add(time.Minute))
	_, err := s.trail.Append(later, Entry{RecordID: recordID, Action: ActionEvidenceAdded, Actor: System{Process: "test"}})
	s.Require().NoError(err)

	entries, err := s.trail.ListFor(context.Background(), recordID)
	s.Require().NoError(err)
	s.Require().Len(entries, 4)
	s.Equal(ActionEvidenceAdded, entries[0].Action)
	s.Equal(ActionStatusChanged, entries[1].Action)
	s.Equal(ActionAssigned, entries[2].Action)
	s.Equal(ActionCreated, entries[3].Action)
}

func (s *TrailSuite) TestListForIsolatesRecords() {
	ctx := context.Background()
	a, b := id.NewRecordID(), id.NewRecordID()
	_, _ = s.trail.Append(ctx, Entry{RecordID: a, Action: ActionCreated, Actor: System{}})
	_, _ = s.trail.Append(ctx, Entry{RecordID: b, Action: ActionCreated, Actor: System{}})

	entries, err := s.trail.ListFor(ctx, a)
	s.Require().NoError(err)
	s.Len(entries, 1)
	s.Equal(a, entries[0].RecordID)
}

func (s *TrailSuite) TestAppendWithdrawnWhenUnitFails() {
	runner := tx.NewInMemory()
	recordID := id.NewRecordID()

	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		if _, err := s.trail.Append(ctx, Entry{RecordID: recordID, Action: ActionCreated, Actor: System{}}); err != nil {
			return err
		}
		return errors.New("record insert failed")
	})
	s.Require().Error(err)

	entries, err := s.trail.ListFor(context.Background(), recordID)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *TrailSuite) TestConcurrentAppendsGetDistinctSeq() {
	recordID := id.NewRecordID()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.trail.Append(ctx, Entry{RecordID: recordID, Action: ActionEvidenceAdded, Actor: System{}})
		}()
	}
	wg.Wait()

	entries, err := s.trail.ListFor(ctx, recordID)
	s.Require().NoError(err)
	s.Require().Len(entries, 50)
	seen := make(map[int64]bool)
	for _, e := range entries {
		s.False(seen[e.Seq], "duplicate seq %d", e.Seq)
		seen[e.Seq] = true
	}
}

func TestRestoreActor(t *testing.T) {
	cases := []struct {
		kind ActorKind
		want Actor
	}{
		{ActorKindOfficer, Officer{ID: "off-1"}},
		{ActorKindComplainant, Complainant{Reference: "off-1"}},
		{ActorKindSystem, System{Process: "off-1"}},
	}
	for _, tc := range cases {
		got, ok := RestoreActor(tc.kind, "off-1")
		require.True(t, ok)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.kind, got.Kind())
	}
	_, ok := RestoreActor("robot", "x")
	assert.False(t, ok, "unknown actor kind must not restore")
}
