package workflow

import (
	dErrors "fieldops/pkg/domain-errors"
)

// Policy is the admin-configurable part of the engine: transition rules and
// the role ladder they are checked against. A Policy is immutable once built
// and is swapped as a whole on reload.
type Policy struct {
	Rules *RuleSet
	Roles RoleLadder
}

// NewPolicy validates rules and checks every required role exists on the ladder.
func NewPolicy(rules []Rule, roles RoleLadder) (*Policy, error) {
	rs, err := NewRuleSet(rules)
	if err != nil {
		return nil, err
	}
	for _, r := range rs.Rules() {
		if r.RequiredRole != "" && !roles.Knows(r.RequiredRole) {
			return nil, dErrors.Newf(dErrors.CodeValidation,
				"rule %s %s -> %s requires unknown role %q", r.Kind, r.From, r.To, r.RequiredRole)
		}
	}
	return &Policy{Rules: rs, Roles: roles}, nil
}

// DefaultPolicy is the built-in rule table on the default role ladder.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(DefaultRules(), DefaultRoleLadder())
	if err != nil {
		panic(err)
	}
	return p
}
