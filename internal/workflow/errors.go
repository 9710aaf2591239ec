package workflow

import (
	"fmt"
	"strings"

	dErrors "fieldops/pkg/domain-errors"
)

// InvalidTransitionError reports a transition with no enabled rule.
// It is returned wrapped in a CodeInvalidTransition domain error.
type InvalidTransitionError struct {
	Kind    Kind
	From    Status
	To      Status
	Allowed []Status
}

func (e *InvalidTransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	if len(allowed) == 0 {
		return fmt.Sprintf("%s cannot move from %s to %s; no transitions allowed", e.Kind, e.From, e.To)
	}
	return fmt.Sprintf("%s cannot move from %s to %s; allowed: %s", e.Kind, e.From, e.To, strings.Join(allowed, ", "))
}

// ImmutableRecordError reports an attempt to change a sealed or locked record.
type ImmutableRecordError struct {
	Kind   Kind
	Status Status
	Reason string
}

func (e *ImmutableRecordError) Error() string {
	return fmt.Sprintf("%s in status %s is immutable: %s", e.Kind, e.Status, e.Reason)
}

func invalidTransition(kind Kind, from, to Status, allowed []Status) error {
	detail := &InvalidTransitionError{Kind: kind, From: from, To: to, Allowed: allowed}
	return dErrors.Wrap(detail, dErrors.CodeInvalidTransition, "transition not permitted")
}

func immutableRecord(kind Kind, status Status, reason string) error {
	detail := &ImmutableRecordError{Kind: kind, Status: status, Reason: reason}
	return dErrors.Wrap(detail, dErrors.CodeImmutableRecord, "record is immutable")
}

// ErrImmutable builds the ImmutableRecord error other packages return for
// edits refused because a record is locked.
func ErrImmutable(r *Record, reason string) error {
	return immutableRecord(r.Kind, r.Status, reason)
}
