package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "fieldops/pkg/domain"
	txcontext "fieldops/pkg/platform/tx"
)

// OutboxTopic is the aggregate type written to the outbox for history rows.
const OutboxTopic = "fieldops.history"

// PostgresStore appends history rows and, in the same transaction, an
// outbox row for the relay to publish.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON published to Kafka for each history entry.
type outboxPayload struct {
	ID         string    `json:"id"`
	RecordID   string    `json:"record_id"`
	Seq        int64     `json:"seq"`
	Action     string    `json:"action"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Remarks    string    `json:"remarks,omitempty"`
	ActorKind  string    `json:"actor_kind"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt string    `json:"occurred_at"`
	Geo        *GeoPoint `json:"geo,omitempty"`
}

// Append inserts the entry and its outbox row. Without an ambient
// transaction both statements run in a local one so they still commit together.
func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	if _, ok := txcontext.From(ctx); !ok {
		return txcontext.NewPostgres(s.db).RunInTx(ctx, func(ctx context.Context) error {
			return s.Append(ctx, entry)
		})
	}

	var geo []byte
	if entry.Geo != nil {
		var err error
		geo, err = json.Marshal(entry.Geo)
		if err != nil {
			return fmt.Errorf("marshal geolocation: %w", err)
		}
	}

	query := `
		INSERT INTO record_history (
			id, record_id, action, from_status, to_status, remarks,
			actor_kind, actor_id, occurred_at, geo
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''), $9, $10)
		RETURNING seq
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.RecordID),
		string(entry.Action),
		entry.FromStatus,
		entry.ToStatus,
		entry.Remarks,
		string(entry.Actor.Kind()),
		entry.Actor.ActorID(),
		entry.OccurredAt,
		nullJSON(geo),
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", txcontext.Classify(err))
	}

	payload, err := json.Marshal(outboxPayload{
		ID:         entry.ID.String(),
		RecordID:   entry.RecordID.String(),
		Seq:        entry.Seq,
		Action:     string(entry.Action),
		FromStatus: entry.FromStatus,
		ToStatus:   entry.ToStatus,
		Remarks:    entry.Remarks,
		ActorKind:  string(entry.Actor.Kind()),
		ActorID:    entry.Actor.ActorID(),
		OccurredAt: entry.OccurredAt.Format(time.RFC3339Nano),
		Geo:        entry.Geo,
	})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		uuid.New(),
		OutboxTopic,
		entry.RecordID.String(),
		string(entry.Action),
		string(payload),
		entry.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", txcontext.Classify(err))
	}
	return nil
}

func (s *PostgresStore) ListByRecord(ctx context.Context, recordID id.RecordID) ([]Entry, error) {
	query := `
		SELECT id, record_id, seq, action,
		       COALESCE(from_status, ''), COALESCE(to_status, ''), COALESCE(remarks, ''),
		       actor_kind, COALESCE(actor_id, ''), occurred_at, geo
		FROM record_history
		WHERE record_id = $1
		ORDER BY occurred_at DESC, seq DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(recordID))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			entryID   uuid.UUID
			recID     uuid.UUID
			action    string
			actorKind string
			actorID   string
			geo       []byte
		)
		if err := rows.Scan(&entryID, &recID, &entry.Seq, &action,
			&entry.FromStatus, &entry.ToStatus, &entry.Remarks,
			&actorKind, &actorID, &entry.OccurredAt, &geo); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entry.ID = id.EntryID(entryID)
		entry.RecordID = id.RecordID(recID)
		entry.Action = Action(action)
		actor, ok := RestoreActor(ActorKind(actorKind), actorID)
		if !ok {
			return nil, fmt.Errorf("history entry %s has unknown actor kind %q", entryID, actorKind)
		}
		entry.Actor = actor
		if len(geo) > 0 {
			entry.Geo = &GeoPoint{}
			if err := json.Unmarshal(geo, entry.Geo); err != nil {
				return nil, fmt.Errorf("decode geolocation: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
