package scoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	id "fieldops/pkg/domain"
)

// Snapshot is the persisted, immutable record of one scored submission:
// everything needed to recompute Result, plus a digest of that input.
type Snapshot struct {
	ID           id.SnapshotID       `json:"id"`
	InspectionID id.RecordID         `json:"inspection_id"`
	Responses    []IndicatorResponse `json:"responses"`
	Indicators   []Indicator         `json:"indicators"`
	Config       Config              `json:"config"`
	Result       Result              `json:"result"`
	Digest       string              `json:"digest"`
	ActorKind    string              `json:"actor_kind"`
	ActorID      string              `json:"actor_id"`
	SubmittedAt  time.Time           `json:"submitted_at"`
}

type digestInput struct {
	Responses  []IndicatorResponse `json:"responses"`
	Indicators []Indicator         `json:"indicators"`
	Config     Config              `json:"config"`
}

// Digest is the hex SHA-256 of the canonical JSON of the scoring input.
func Digest(responses []IndicatorResponse, indicators []Indicator, cfg Config) (string, error) {
	raw, err := json.Marshal(digestInput{Responses: responses, Indicators: indicators, Config: cfg})
	if err != nil {
		return "", fmt.Errorf("encode scoring input: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Verify recomputes the digest and the result from the stored input.
func (s *Snapshot) Verify() (bool, error) {
	digest, err := Digest(s.Responses, s.Indicators, s.Config)
	if err != nil {
		return false, err
	}
	if digest != s.Digest {
		return false, nil
	}
	recomputed, err := json.Marshal(Score(s.Responses, s.Indicators, s.Config))
	if err != nil {
		return false, err
	}
	stored, err := json.Marshal(s.Result)
	if err != nil {
		return false, err
	}
	return string(recomputed) == string(stored), nil
}

// SnapshotStore persists snapshots. Create returns sentinel.ErrAlreadyUsed
// if the inspection already has one.
type SnapshotStore interface {
	Create(ctx context.Context, snapshot *Snapshot) error
	FindByInspection(ctx context.Context, inspectionID id.RecordID) (*Snapshot, error)
}
