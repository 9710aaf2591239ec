package records

import (
	"context"

	"fieldops/internal/audit"
	"fieldops/internal/workflow"
	id "fieldops/pkg/domain"
	dErrors "fieldops/pkg/domain-errors"
)

// Authorization rules:
//   - system actors act anywhere
//   - officers act on records inside the authority scope of their assignments
//   - complainants may open complaints and read the history of complaints
//     they opened; nothing else

func (s *Service) authorizeCreate(ctx context.Context, req CreateRequest) error {
	switch actor := req.Actor.(type) {
	case audit.System, *audit.System:
		return nil
	case audit.Complainant, *audit.Complainant:
		if req.Kind != workflow.KindComplaint {
			return dErrors.Newf(dErrors.CodeUnauthorized, "complainants may not open %s records", req.Kind)
		}
		return nil
	default:
		officer, ok := audit.AsOfficer(actor)
		if !ok {
			return dErrors.New(dErrors.CodeUnauthorized, "unknown actor")
		}
		return s.requireScope(ctx, officer, req.JurisdictionID)
	}
}

func (s *Service) authorizeWrite(ctx context.Context, actor audit.Actor, rec *workflow.Record) error {
	if actor == nil {
		return dErrors.New(dErrors.CodeValidation, "operation requires an actor")
	}
	switch actor.Kind() {
	case audit.ActorKindSystem:
		return nil
	case audit.ActorKindOfficer:
		officer, ok := audit.AsOfficer(actor)
		if !ok {
			return dErrors.New(dErrors.CodeUnauthorized, "unknown actor")
		}
		return s.requireScope(ctx, officer, rec.JurisdictionID)
	default:
		return dErrors.Newf(dErrors.CodeUnauthorized, "%s actors may not change records", actor.Kind())
	}
}

func (s *Service) authorizeRead(ctx context.Context, actor audit.Actor, rec *workflow.Record, history []audit.Entry) error {
	if actor == nil {
		return dErrors.New(dErrors.CodeValidation, "operation requires an actor")
	}
	if actor.Kind() != audit.ActorKindComplainant {
		return s.authorizeWrite(ctx, actor, rec)
	}
	if rec.Kind == workflow.KindComplaint && openedBy(history, actor) {
		return nil
	}
	return dErrors.New(dErrors.CodeUnauthorized, "complainants may only read their own complaints")
}

func (s *Service) requireScope(ctx context.Context, officer audit.Officer, target id.JurisdictionID) error {
	ok, err := s.authority.HasAuthority(ctx, officer.Jurisdictions, target)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.Newf(dErrors.CodeUnauthorized, "officer %s has no authority over jurisdiction %s", officer.ID, target)
	}
	return nil
}

func openedBy(history []audit.Entry, actor audit.Actor) bool {
	for _, e := range history {
		if e.Action == audit.ActionCreated {
			return e.Actor != nil && e.Actor.Kind() == actor.Kind() && e.Actor.ActorID() == actor.ActorID()
		}
	}
	return false
}
