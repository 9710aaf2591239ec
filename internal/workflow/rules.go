package workflow

import (
	"slices"
	"strconv"
	"strings"

	dErrors "fieldops/pkg/domain-errors"
)

// Rule permits one edge of a kind's state machine.
type Rule struct {
	Kind            Kind
	From            Status
	To              Status
	RequiresRemarks bool
	RequiredRole    Role
	Enabled         bool
}

type ruleKey struct {
	kind Kind
	from Status
	to   Status
}

// RuleSet is an immutable, validated transition table.
type RuleSet struct {
	rules   []Rule
	byEdge  map[ruleKey]Rule
	allowed map[Kind]map[Status][]Status
}

// NewRuleSet validates rules and indexes the enabled ones by (kind, from, to).
func NewRuleSet(rules []Rule) (*RuleSet, error) {
	rs := &RuleSet{
		rules:   make([]Rule, 0, len(rules)),
		byEdge:  make(map[ruleKey]Rule, len(rules)),
		allowed: map[Kind]map[Status][]Status{},
	}
	seen := make(map[ruleKey]struct{}, len(rules))
	for i, r := range rules {
		r.RequiredRole = Role(strings.TrimSpace(string(r.RequiredRole)))
		if err := validateRule(r); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "rule "+strconv.Itoa(i))
		}
		key := ruleKey{r.Kind, r.From, r.To}
		if _, dup := seen[key]; dup {
			return nil, dErrors.Newf(dErrors.CodeValidation, "duplicate rule %s: %s -> %s", r.Kind, r.From, r.To)
		}
		seen[key] = struct{}{}
		rs.rules = append(rs.rules, r)
		if !r.Enabled {
			continue
		}
		rs.byEdge[key] = r
		if rs.allowed[r.Kind] == nil {
			rs.allowed[r.Kind] = map[Status][]Status{}
		}
		rs.allowed[r.Kind][r.From] = append(rs.allowed[r.Kind][r.From], r.To)
	}
	for kind, byFrom := range rs.allowed {
		for _, targets := range byFrom {
			slices.SortFunc(targets, func(a, b Status) int {
				return kind.statusIndex(a) - kind.statusIndex(b)
			})
		}
	}
	return rs, nil
}

func validateRule(r Rule) error {
	if !r.Kind.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown kind %q", r.Kind)
	}
	if !r.Kind.HasStatus(r.From) {
		return dErrors.Newf(dErrors.CodeValidation, "%s has no status %q", r.Kind, r.From)
	}
	if !r.Kind.HasStatus(r.To) {
		return dErrors.Newf(dErrors.CodeValidation, "%s has no status %q", r.Kind, r.To)
	}
	if r.From == r.To {
		return dErrors.Newf(dErrors.CodeValidation, "self transition %s -> %s", r.From, r.To)
	}
	if r.Kind.IsSealed(r.From) {
		return dErrors.Newf(dErrors.CodeValidation, "%s status %q is sealed and cannot have outgoing rules", r.Kind, r.From)
	}
	return nil
}

// Lookup returns the enabled rule for the edge.
func (rs *RuleSet) Lookup(kind Kind, from, to Status) (Rule, bool) {
	r, ok := rs.byEdge[ruleKey{kind, from, to}]
	return r, ok
}

// Allowed lists the enabled targets from a status, in lifecycle order.
func (rs *RuleSet) Allowed(kind Kind, from Status) []Status {
	return append([]Status(nil), rs.allowed[kind][from]...)
}

// Rules returns every rule as loaded, disabled ones included.
func (rs *RuleSet) Rules() []Rule {
	return append([]Rule(nil), rs.rules...)
}

// DefaultRules is the built-in transition table for every kind.
func DefaultRules() []Rule {
	on := func(kind Kind, from, to Status) Rule {
		return Rule{Kind: kind, From: from, To: to, Enabled: true}
	}
	withRemarks := func(r Rule) Rule { r.RequiresRemarks = true; return r }
	withRole := func(r Rule, role Role) Rule { r.RequiredRole = role; return r }

	return []Rule{
		on(KindInspection, InspectionDraft, InspectionInProgress),
		withRemarks(on(KindInspection, InspectionDraft, InspectionClosed)),
		on(KindInspection, InspectionInProgress, InspectionCompleted),
		withRemarks(on(KindInspection, InspectionInProgress, InspectionRequiresFollowup)),
		withRole(on(KindInspection, InspectionCompleted, InspectionClosed), RoleSupervisor),
		on(KindInspection, InspectionRequiresFollowup, InspectionCompleted),
		withRole(withRemarks(on(KindInspection, InspectionRequiresFollowup, InspectionClosed)), RoleSupervisor),

		on(KindSample, SamplePending, SampleCollected),
		on(KindSample, SampleCollected, SampleDispatched),
		on(KindSample, SampleDispatched, SampleAtLab),
		on(KindSample, SampleAtLab, SampleResultReceived),
		on(KindSample, SampleResultReceived, SampleProcessed),

		withRole(on(KindComplaint, ComplaintSubmitted, ComplaintAssigned), RoleSupervisor),
		withRole(withRemarks(on(KindComplaint, ComplaintSubmitted, ComplaintClosed)), RoleSupervisor),
		on(KindComplaint, ComplaintAssigned, ComplaintInvestigating),
		withRemarks(on(KindComplaint, ComplaintInvestigating, ComplaintResolved)),
		withRole(on(KindComplaint, ComplaintResolved, ComplaintClosed), RoleSupervisor),
		withRemarks(on(KindComplaint, ComplaintResolved, ComplaintInvestigating)),
	}
}
