package jurisdiction

import (
	"slices"
	"strings"

	id "fieldops/pkg/domain"
)

// Scope is an immutable set of jurisdictions an actor may act on.
type Scope struct {
	members map[id.JurisdictionID]struct{}
}

func newScope(ids []id.JurisdictionID) Scope {
	s := Scope{members: make(map[id.JurisdictionID]struct{}, len(ids))}
	for _, j := range ids {
		s.members[j] = struct{}{}
	}
	return s
}

func (s Scope) Contains(j id.JurisdictionID) bool {
	_, ok := s.members[j]
	return ok
}

func (s Scope) Len() int { return len(s.members) }

// IDs returns the members sorted.
func (s Scope) IDs() []id.JurisdictionID {
	out := make([]id.JurisdictionID, 0, len(s.members))
	for j := range s.members {
		out = append(out, j)
	}
	slices.Sort(out)
	return out
}

// normalize trims, drops empties and dedupes, returning a sorted slice.
func normalize(ids []id.JurisdictionID) []id.JurisdictionID {
	seen := make(map[id.JurisdictionID]struct{}, len(ids))
	out := make([]id.JurisdictionID, 0, len(ids))
	for _, j := range ids {
		j = id.JurisdictionID(strings.TrimSpace(string(j)))
		if j == "" {
			continue
		}
		if _, dup := seen[j]; dup {
			continue
		}
		seen[j] = struct{}{}
		out = append(out, j)
	}
	slices.Sort(out)
	return out
}

func scopeKey(assigned []id.JurisdictionID) string {
	parts := make([]string, len(assigned))
	for i, j := range assigned {
		parts[i] = string(j)
	}
	return strings.Join(parts, ",")
}
