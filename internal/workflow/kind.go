package workflow

import (
	"strings"

	dErrors "fieldops/pkg/domain-errors"
)

// Kind is the type of regulatory record a workflow governs.
type Kind string

const (
	KindInspection Kind = "inspection"
	KindSample     Kind = "sample"
	KindComplaint  Kind = "complaint"
)

// Status is a state in a kind's alphabet.
type Status string

const (
	InspectionDraft            Status = "draft"
	InspectionInProgress       Status = "in_progress"
	InspectionCompleted        Status = "completed"
	InspectionRequiresFollowup Status = "requires_followup"
	InspectionClosed           Status = "closed"

	SamplePending        Status = "pending"
	SampleCollected      Status = "collected"
	SampleDispatched     Status = "dispatched"
	SampleAtLab          Status = "at_lab"
	SampleResultReceived Status = "result_received"
	SampleProcessed      Status = "processed"

	ComplaintSubmitted     Status = "submitted"
	ComplaintAssigned      Status = "assigned"
	ComplaintInvestigating Status = "investigating"
	ComplaintResolved      Status = "resolved"
	ComplaintClosed        Status = "closed"
)

// Milestone names a timestamp stamped the first time a record enters a status.
type Milestone string

const (
	MilestoneStarted        Milestone = "started_at"
	MilestoneCompleted      Milestone = "completed_at"
	MilestoneClosed         Milestone = "closed_at"
	MilestoneCollected      Milestone = "collected_at"
	MilestoneDispatched     Milestone = "dispatched_at"
	MilestoneReceivedAtLab  Milestone = "received_at_lab_at"
	MilestoneResultReceived Milestone = "result_received_at"
	MilestoneProcessed      Milestone = "processed_at"
	MilestoneAssigned       Milestone = "assigned_at"
	MilestoneResolved       Milestone = "resolved_at"
)

// kindPolicy holds the compiled, non-configurable facts about a kind.
//
// locked: the record is append-only; no field other than status may change.
// sealed: additionally, no transition is accepted. sealed is a subset of locked.
// Both sets are legal requirements and must not be reachable from rule data.
type kindPolicy struct {
	alphabet   []Status
	initial    Status
	locked     map[Status]bool
	sealed     map[Status]bool
	milestones map[Status]Milestone
}

var policies = map[Kind]kindPolicy{
	KindInspection: {
		alphabet: []Status{InspectionDraft, InspectionInProgress, InspectionCompleted, InspectionRequiresFollowup, InspectionClosed},
		initial:  InspectionDraft,
		locked:   map[Status]bool{InspectionClosed: true},
		sealed:   map[Status]bool{InspectionClosed: true},
		milestones: map[Status]Milestone{
			InspectionInProgress: MilestoneStarted,
			InspectionCompleted:  MilestoneCompleted,
			InspectionClosed:     MilestoneClosed,
		},
	},
	KindSample: {
		alphabet: []Status{SamplePending, SampleCollected, SampleDispatched, SampleAtLab, SampleResultReceived, SampleProcessed},
		initial:  SamplePending,
		// Chain of custody: once dispatched the sample's particulars are frozen,
		// but the lab pipeline still advances its status.
		locked: map[Status]bool{SampleDispatched: true, SampleAtLab: true, SampleResultReceived: true, SampleProcessed: true},
		sealed: map[Status]bool{SampleProcessed: true},
		milestones: map[Status]Milestone{
			SampleCollected:      MilestoneCollected,
			SampleDispatched:     MilestoneDispatched,
			SampleAtLab:          MilestoneReceivedAtLab,
			SampleResultReceived: MilestoneResultReceived,
			SampleProcessed:      MilestoneProcessed,
		},
	},
	KindComplaint: {
		alphabet: []Status{ComplaintSubmitted, ComplaintAssigned, ComplaintInvestigating, ComplaintResolved, ComplaintClosed},
		initial:  ComplaintSubmitted,
		locked:   map[Status]bool{ComplaintClosed: true},
		sealed:   map[Status]bool{ComplaintClosed: true},
		milestones: map[Status]Milestone{
			ComplaintAssigned: MilestoneAssigned,
			ComplaintResolved: MilestoneResolved,
			ComplaintClosed:   MilestoneClosed,
		},
	},
}

// Kinds lists every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindInspection, KindSample, KindComplaint}
}

// ParseKind validates external input.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown record kind %q", s)
	}
	return k, nil
}

func (k Kind) IsValid() bool {
	_, ok := policies[k]
	return ok
}

func (k Kind) String() string { return string(k) }

// Statuses returns the kind's alphabet in lifecycle order.
func (k Kind) Statuses() []Status {
	return append([]Status(nil), policies[k].alphabet...)
}

// InitialStatus is the status every new record of this kind starts in.
func (k Kind) InitialStatus() Status {
	return policies[k].initial
}

// HasStatus reports whether s belongs to the kind's alphabet.
func (k Kind) HasStatus(s Status) bool {
	for _, candidate := range policies[k].alphabet {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsLocked reports whether records of this kind in status s are append-only.
func (k Kind) IsLocked(s Status) bool {
	return policies[k].locked[s]
}

// IsSealed reports whether records of this kind in status s refuse every transition.
func (k Kind) IsSealed(s Status) bool {
	return policies[k].sealed[s]
}

// MilestoneFor returns the timestamp field stamped when entering s, if any.
func (k Kind) MilestoneFor(s Status) (Milestone, bool) {
	m, ok := policies[k].milestones[s]
	return m, ok
}

func (k Kind) statusIndex(s Status) int {
	for i, candidate := range policies[k].alphabet {
		if candidate == s {
			return i
		}
	}
	return len(policies[k].alphabet)
}
