package workflow

import (
	"maps"
	"time"

	id "fieldops/pkg/domain"
	dErrors "fieldops/pkg/domain-errors"
)

// Record is any regulatory entity governed by a workflow.
//
// Invariants:
//   - Status is always in Kind's alphabet
//   - Status changes only through Engine.Transition
//   - once Status is locked, only history may grow; AssignedOfficer and Code are frozen
//   - a Milestone, once stamped, is never overwritten
//   - Version increases by one with every persisted change
type Record struct {
	ID              id.RecordID
	Kind            Kind
	Status          Status
	JurisdictionID  id.JurisdictionID
	Code            string
	AssignedOfficer id.OfficerID
	Milestones      map[Milestone]time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
}

// NewRecord builds a record of kind in its initial status.
func NewRecord(kind Kind, jurisdictionID id.JurisdictionID, now time.Time) (*Record, error) {
	if !kind.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown record kind %q", kind)
	}
	if jurisdictionID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "record requires a jurisdiction")
	}
	now = now.UTC()
	return &Record{
		ID:             id.NewRecordID(),
		Kind:           kind,
		Status:         kind.InitialStatus(),
		JurisdictionID: jurisdictionID,
		Milestones:     map[Milestone]time.Time{},
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        1,
	}, nil
}

// IsModifiable reports whether non-status fields of r may still change.
// It is false exactly when r's status is in its kind's locked set.
func IsModifiable(r *Record) bool {
	return r != nil && !r.Kind.IsLocked(r.Status)
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Milestones = maps.Clone(r.Milestones)
	if cp.Milestones == nil {
		cp.Milestones = map[Milestone]time.Time{}
	}
	return &cp
}

// MilestoneAt returns the time the milestone was stamped.
func (r *Record) MilestoneAt(m Milestone) (time.Time, bool) {
	t, ok := r.Milestones[m]
	return t, ok
}

// applyTransition moves r to status and stamps the kind's milestone for it.
// Callers must have validated the transition.
func (r *Record) applyTransition(to Status, now time.Time) {
	now = now.UTC()
	r.Status = to
	if m, ok := r.Kind.MilestoneFor(to); ok {
		if _, stamped := r.Milestones[m]; !stamped {
			if r.Milestones == nil {
				r.Milestones = map[Milestone]time.Time{}
			}
			r.Milestones[m] = now
		}
	}
	r.UpdatedAt = now
	r.Version++
}

// ApplyAssignment sets the assigned officer. Callers must check IsModifiable.
func (r *Record) ApplyAssignment(officer id.OfficerID, now time.Time) {
	r.AssignedOfficer = officer
	r.UpdatedAt = now.UTC()
	r.Version++
}
