package workflow

import (
	"strings"

	dErrors "fieldops/pkg/domain-errors"
)

// Role is an officer role name from the configured ladder.
type Role string

const (
	RoleFieldOfficer  Role = "field_officer"
	RoleInspector     Role = "inspector"
	RoleSupervisor    Role = "supervisor"
	RoleDistrictAdmin Role = "district_admin"
	RoleStateAdmin    Role = "state_admin"
)

// RoleLadder ranks roles so a senior role satisfies any requirement of a junior one.
type RoleLadder struct {
	order []Role
	rank  map[Role]int
}

// NewRoleLadder builds a ladder from roles listed in ascending seniority.
func NewRoleLadder(ascending []Role) (RoleLadder, error) {
	if len(ascending) == 0 {
		return RoleLadder{}, dErrors.New(dErrors.CodeValidation, "role ladder must not be empty")
	}
	ladder := RoleLadder{rank: make(map[Role]int, len(ascending))}
	for i, r := range ascending {
		r = Role(strings.TrimSpace(string(r)))
		if r == "" {
			return RoleLadder{}, dErrors.Newf(dErrors.CodeValidation, "role ladder entry %d is empty", i)
		}
		if _, dup := ladder.rank[r]; dup {
			return RoleLadder{}, dErrors.Newf(dErrors.CodeValidation, "role %q listed twice", r)
		}
		ladder.rank[r] = i
		ladder.order = append(ladder.order, r)
	}
	return ladder, nil
}

// DefaultRoleLadder is field officer up to state administrator.
func DefaultRoleLadder() RoleLadder {
	ladder, err := NewRoleLadder([]Role{RoleFieldOfficer, RoleInspector, RoleSupervisor, RoleDistrictAdmin, RoleStateAdmin})
	if err != nil {
		panic(err)
	}
	return ladder
}

// Knows reports whether r appears on the ladder.
func (l RoleLadder) Knows(r Role) bool {
	_, ok := l.rank[r]
	return ok
}

// Satisfies reports whether actual equals or outranks required.
// An empty requirement is always met; unknown roles never satisfy one.
func (l RoleLadder) Satisfies(actual, required Role) bool {
	if required == "" {
		return true
	}
	need, ok := l.rank[required]
	if !ok {
		return false
	}
	have, ok := l.rank[actual]
	if !ok {
		return false
	}
	return have >= need
}

// Roles returns the ladder in ascending order.
func (l RoleLadder) Roles() []Role {
	return append([]Role(nil), l.order...)
}
