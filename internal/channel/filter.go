package channel

import "gatewatch/internal/schema"

// ShouldDispatch decides whether an inbound message reaches subscribers of a
// client scoped to id.
func ShouldDispatch(id Identity, in schema.Inbound) bool {
	if id.IsBroadcast() {
		return true
	}
	if in.Kind == schema.KindError {
		return true
	}
	if in.GateID == "" {
		// Unattributed domain events cannot be tied to this gate.
		return in.Kind.Class() != schema.ClassDomain
	}
	hint, ok := Parse(in.GateID)
	if !ok {
		return false
	}
	return hint == id
}
