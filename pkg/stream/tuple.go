package stream

import (
	"fmt"
	"strings"
)

// TupleState is the lifecycle state of a tuple.
type TupleState int

const (
	// StateDead is the zero value: the tuple is not (or no longer) part of the network.
	StateDead TupleState = iota
	// StateCreating marks a tuple queued for insert that has not been propagated yet.
	StateCreating
	// StateOk marks a tuple whose last change has been propagated.
	StateOk
	// StateUpdating marks a propagated tuple queued for update.
	StateUpdating
	// StateDying marks a propagated tuple queued for retraction.
	StateDying
	// StateAborting marks a tuple retracted before its insert was propagated.
	StateAborting
)

// String returns the name of the state.
func (s TupleState) String() string {
	switch s {
	case StateDead:
		return "Dead"
	case StateCreating:
		return "Creating"
	case StateOk:
		return "Ok"
	case StateUpdating:
		return "Updating"
	case StateDying:
		return "Dying"
	case StateAborting:
		return "Aborting"
	default:
		return fmt.Sprintf("TupleState(%d)", int(s))
	}
}

// IsActive reports whether the tuple is queued for insert or update or has been propagated.
func (s TupleState) IsActive() bool {
	return s == StateCreating || s == StateOk || s == StateUpdating
}

// Tuple is a fixed-arity list of facts plus a lifecycle state and per-node store slots. A tuple
// is owned by the node that created it; downstream nodes only keep state about it in their own
// store slot.
type Tuple struct {
	facts []any
	state TupleState
	store []any
}

// NewTuple creates a tuple in the Dead state with the given store size.
func NewTuple(storeSize int, facts ...any) *Tuple {
	t := &Tuple{facts: make([]any, len(facts)), store: make([]any, storeSize)}
	copy(t.facts, facts)
	return t
}

// Arity returns the number of facts.
func (t *Tuple) Arity() int { return len(t.facts) }

// Fact returns the i-th fact.
func (t *Tuple) Fact(i int) any { return t.facts[i] }

// Facts returns the facts. The slice must not be modified by the caller.
func (t *Tuple) Facts() []any { return t.facts }

// State returns the lifecycle state.
func (t *Tuple) State() TupleState { return t.state }

// StoreSize returns the number of store slots.
func (t *Tuple) StoreSize() int { return len(t.store) }

func (t *Tuple) setFact(i int, fact any) { t.facts[i] = fact }

// setFacts overwrites all facts, reusing the backing array.
func (t *Tuple) setFacts(facts ...[]any) {
	t.facts = t.facts[:0]
	for _, fs := range facts {
		t.facts = append(t.facts, fs...)
	}
}

// String returns a string representation of the tuple for debugging.
func (t *Tuple) String() string {
	parts := make([]string, len(t.facts))
	for i, f := range t.facts {
		parts[i] = fmt.Sprintf("%v", f)
	}
	return fmt.Sprintf("[%s]@%s", strings.Join(parts, ", "), t.state)
}
