package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "fieldops/pkg/domain-errors"
)

// RecordID identifies a workflow record (inspection, sample or complaint).
type RecordID uuid.UUID

// EntryID identifies an audit history entry.
type EntryID uuid.UUID

// SnapshotID identifies a persisted score snapshot.
type SnapshotID uuid.UUID

// JurisdictionID identifies an administrative unit. Jurisdictions are keyed
// by the reference-data code issued by the state, not by a generated UUID.
type JurisdictionID string

// OfficerID identifies a field officer in the identity directory.
type OfficerID string

// PillarID and IndicatorID are the admin-assigned keys of the inspection checklist.
type (
	PillarID    string
	IndicatorID string
)

func NewRecordID() RecordID     { return RecordID(uuid.New()) }
func NewEntryID() EntryID       { return EntryID(uuid.New()) }
func NewSnapshotID() SnapshotID { return SnapshotID(uuid.New()) }

// ParseRecordID parses external input into a RecordID.
// Invariant: the result is a valid, non-nil UUID.
func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record id")
	return RecordID(u), err
}

func (id RecordID) String() string   { return uuid.UUID(id).String() }
func (id RecordID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id EntryID) String() string    { return uuid.UUID(id).String() }
func (id SnapshotID) String() string { return uuid.UUID(id).String() }

// ParseJurisdictionID trims and validates a jurisdiction code.
func ParseJurisdictionID(s string) (JurisdictionID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "jurisdiction id is required")
	}
	return JurisdictionID(s), nil
}

func (id JurisdictionID) String() string { return string(id) }
func (id OfficerID) String() string      { return string(id) }

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is required", field)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s must not be nil", field)
	}
	return u, nil
}

// Text encoding keeps ids readable in JSON payloads and snapshots.

func (id RecordID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *RecordID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id EntryID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *EntryID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id SnapshotID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *SnapshotID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
