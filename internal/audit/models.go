package audit

import (
	"time"

	id "fieldops/pkg/domain"
)

// Action names what happened to a record. Every mutating operation on a
// record produces exactly one entry carrying one of these.
type Action string

const (
	ActionCreated        Action = "created"
	ActionStatusChanged  Action = "status_changed"
	ActionAssigned       Action = "assigned"
	ActionEvidenceAdded  Action = "evidence_added"
	ActionScoreSubmitted Action = "score_submitted"
)

var validActions = map[Action]bool{
	ActionCreated:        true,
	ActionStatusChanged:  true,
	ActionAssigned:       true,
	ActionEvidenceAdded:  true,
	ActionScoreSubmitted: true,
}

func (a Action) IsValid() bool { return validActions[a] }

// ActorKind is the discriminator persisted alongside an entry.
type ActorKind string

const (
	ActorKindOfficer     ActorKind = "officer"
	ActorKindComplainant ActorKind = "complainant"
	ActorKindSystem      ActorKind = "system"
)

// Actor is a closed variant: only Officer, Complainant and System satisfy it.
type Actor interface {
	Kind() ActorKind
	// ActorID is the identifier persisted with the entry, empty for system actors.
	ActorID() string
	sealed()
}

// Officer is an authenticated field officer acting under a role.
type Officer struct {
	ID            id.OfficerID
	Role          string
	Jurisdictions []id.JurisdictionID
}

// Complainant is a member of the public identified by a contact reference.
type Complainant struct {
	Reference string
}

// System is an automated process, e.g. a scheduled escalation job.
type System struct {
	Process string
}

func (Officer) Kind() ActorKind     { return ActorKindOfficer }
func (Complainant) Kind() ActorKind { return ActorKindComplainant }
func (System) Kind() ActorKind      { return ActorKindSystem }

func (o Officer) ActorID() string     { return o.ID.String() }
func (c Complainant) ActorID() string { return c.Reference }
func (s System) ActorID() string      { return s.Process }

func (Officer) sealed()     {}
func (Complainant) sealed() {}
func (System) sealed()      {}

// RestoreActor rebuilds an actor from its persisted discriminator and id.
// Role and jurisdictions are request-time facts and are not restored.
func RestoreActor(kind ActorKind, actorID string) (Actor, bool) {
	switch kind {
	case ActorKindOfficer:
		return Officer{ID: id.OfficerID(actorID)}, true
	case ActorKindComplainant:
		return Complainant{Reference: actorID}, true
	case ActorKindSystem:
		return System{Process: actorID}, true
	default:
		return nil, false
	}
}

// GeoPoint is the device location captured with a field action.
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	// AccuracyMeters is zero when the device did not report it.
	AccuracyMeters float64 `json:"accuracy_m,omitempty"`
}

// Entry is one immutable line of a record's history.
//
// Invariants:
//   - RecordID, Action and Actor are always set
//   - Seq is assigned by the store and strictly increases per store
//   - an Entry is never updated or deleted once appended
type Entry struct {
	ID         id.EntryID
	RecordID   id.RecordID
	Seq        int64
	Action     Action
	FromStatus string
	ToStatus   string
	Remarks    string
	Actor      Actor
	OccurredAt time.Time
	Geo        *GeoPoint
}

// AsOfficer returns the officer behind a, if a is one.
func AsOfficer(a Actor) (Officer, bool) {
	switch o := a.(type) {
	case Officer:
		return o, true
	case *Officer:
		if o != nil {
			return *o, true
		}
	}
	return Officer{}, false
}
