package scoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "fieldops/pkg/domain"
	"fieldops/pkg/platform/sentinel"
	txcontext "fieldops/pkg/platform/tx"
)

// PostgresStore keeps snapshots in score_snapshots, one per inspection.
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

func (s *PostgresStore) Create(ctx context.Context, snapshot *Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO score_snapshots (
			id, inspection_id, digest, total_score, classification, payload, submitted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		uuid.UUID(snapshot.ID),
		uuid.UUID(snapshot.InspectionID),
		snapshot.Digest,
		snapshot.Result.TotalScore,
		string(snapshot.Result.Classification),
		string(payload),
		snapshot.SubmittedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("insert snapshot: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert snapshot: %w", txcontext.Classify(err))
	}
	return nil
}

func (s *PostgresStore) FindByInspection(ctx context.Context, inspectionID id.RecordID) (*Snapshot, error) {
	var payload []byte
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT payload FROM score_snapshots WHERE inspection_id = $1
	`, uuid.UUID(inspectionID)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", txcontext.Classify(err))
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
