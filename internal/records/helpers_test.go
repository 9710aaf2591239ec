package records

import "fieldops/internal/sequence"

func sequenceAllocation(code string) sequence.Allocation {
	return sequence.Allocation{Code: code, Sequence: 1, ScopeID: "DL-N", Month: 1, Year: 2026}
}
