package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "fieldops/pkg/domain"
	"fieldops/pkg/platform/sentinel"
	txcontext "fieldops/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

// PostgresStore persists records in the workflow_records table.
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

const selectRecord = `
	SELECT id, kind, status, jurisdiction_id, COALESCE(code, ''), COALESCE(assigned_officer, ''),
	       milestones, created_at, updated_at, version
	FROM workflow_records
`

func (s *PostgresStore) Create(ctx context.Context, record *Record) error {
	milestones, err := json.Marshal(record.Milestones)
	if err != nil {
		return fmt.Errorf("marshal milestones: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO workflow_records (
			id, kind, status, jurisdiction_id, code, assigned_officer,
			milestones, created_at, updated_at, version
		)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10)
	`,
		uuid.UUID(record.ID),
		string(record.Kind),
		string(record.Status),
		string(record.JurisdictionID),
		record.Code,
		string(record.AssignedOfficer),
		string(milestones),
		record.CreatedAt,
		record.UpdatedAt,
		record.Version,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("insert record: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert record: %w", txcontext.Classify(err))
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, recordID id.RecordID) (*Record, error) {
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, selectRecord+`WHERE id = $1`, uuid.UUID(recordID)))
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*Record, error) {
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, selectRecord+`WHERE code = $1`, code))
}

// LockByID takes a row lock that is held until the surrounding transaction
// ends. Outside a transaction it degrades to FindByID.
func (s *PostgresStore) LockByID(ctx context.Context, recordID id.RecordID) (*Record, error) {
	if _, ok := txcontext.From(ctx); !ok {
		return s.FindByID(ctx, recordID)
	}
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, selectRecord+`WHERE id = $1 FOR UPDATE`, uuid.UUID(recordID)))
}

// Update is a compare-and-swap on version; a lost race reports sentinel.ErrConflict.
func (s *PostgresStore) Update(ctx context.Context, record *Record, expectedVersion int64) error {
	milestones, err := json.Marshal(record.Milestones)
	if err != nil {
		return fmt.Errorf("marshal milestones: %w", err)
	}
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE workflow_records
		SET status = $2, assigned_officer = NULLIF($3, ''), milestones = $4,
		    updated_at = $5, version = $6
		WHERE id = $1 AND version = $7
	`,
		uuid.UUID(record.ID),
		string(record.Status),
		string(record.AssignedOfficer),
		string(milestones),
		record.UpdatedAt,
		record.Version,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update record: %w", txcontext.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record rows affected: %w", err)
	}
	if n == 0 {
		if _, findErr := s.FindByID(ctx, record.ID); errors.Is(findErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("record %s moved past version %d: %w", record.ID, expectedVersion, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) scanOne(row *sql.Row) (*Record, error) {
	var (
		rec        Record
		recordID   uuid.UUID
		kind       string
		status     string
		juris      string
		officer    string
		milestones []byte
	)
	err := row.Scan(&recordID, &kind, &status, &juris, &rec.Code, &officer,
		&milestones, &rec.CreatedAt, &rec.UpdatedAt, &rec.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", txcontext.Classify(err))
	}
	rec.ID = id.RecordID(recordID)
	rec.Kind = Kind(kind)
	rec.Status = Status(status)
	rec.JurisdictionID = id.JurisdictionID(juris)
	rec.AssignedOfficer = id.OfficerID(officer)
	rec.Milestones = map[Milestone]time.Time{}
	if len(milestones) > 0 {
		if err := json.Unmarshal(milestones, &rec.Milestones); err != nil {
			return nil, fmt.Errorf("decode milestones: %w", err)
		}
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}
