package stream

import "cmp"

type joinerKind int

const (
	joinerEqual joinerKind = iota
	joinerRange
	joinerFiltering
)

// rangeOp is the relation a range joiner requires between the left and the right key.
type rangeOp int

const (
	opNone rangeOp = iota
	opLessThan
	opLessOrEqual
	opGreaterThan
	opGreaterOrEqual
)

// flip returns the relation seen from the other side: a < b iff b > a.
func (op rangeOp) flip() rangeOp {
	switch op {
	case opLessThan:
		return opGreaterThan
	case opLessOrEqual:
		return opGreaterOrEqual
	case opGreaterThan:
		return opLessThan
	case opGreaterOrEqual:
		return opLessOrEqual
	default:
		return op
	}
}

// holds reports whether c, the result of comparing a to b, satisfies "a op b".
func (op rangeOp) holds(c int) bool {
	switch op {
	case opLessThan:
		return c < 0
	case opLessOrEqual:
		return c <= 0
	case opGreaterThan:
		return c > 0
	case opGreaterOrEqual:
		return c >= 0
	default:
		return c == 0
	}
}

// Joiner restricts which left and right tuples a join or exists node pairs up.
type Joiner struct {
	kind        joinerKind
	op          rangeOp
	left, right KeyFunc
	compare     func(a, b any) int
	filter      Predicate
}

// EqualKeys pairs tuples whose left and right keys are equal.
func EqualKeys(left, right KeyFunc) Joiner {
	return Joiner{kind: joinerEqual, left: left, right: right}
}

// EqualBy is EqualKeys with typed key functions.
func EqualBy[K comparable](left, right Func[K]) Joiner {
	return EqualKeys(Key(left), Key(right))
}

// LessThan pairs tuples where the left key is less than the right key.
func LessThan[K cmp.Ordered](left, right Func[K]) Joiner { return rangeJoiner(opLessThan, left, right) }

// LessThanOrEqual pairs tuples where the left key is at most the right key.
func LessThanOrEqual[K cmp.Ordered](left, right Func[K]) Joiner {
	return rangeJoiner(opLessOrEqual, left, right)
}

// GreaterThan pairs tuples where the left key is greater than the right key.
func GreaterThan[K cmp.Ordered](left, right Func[K]) Joiner {
	return rangeJoiner(opGreaterThan, left, right)
}

// GreaterThanOrEqual pairs tuples where the left key is at least the right key.
func GreaterThanOrEqual[K cmp.Ordered](left, right Func[K]) Joiner {
	return rangeJoiner(opGreaterOrEqual, left, right)
}

func rangeJoiner[K cmp.Ordered](op rangeOp, left, right Func[K]) Joiner {
	return Joiner{
		kind:    joinerRange,
		op:      op,
		left:    Key(left),
		right:   Key(right),
		compare: func(a, b any) int { return cmp.Compare(a.(K), b.(K)) },
	}
}

// Filtering pairs tuples whose combined facts (left facts followed by right facts) satisfy the
// predicate. Filtering is evaluated after the indexed joiners.
func Filtering(p Predicate) Joiner {
	return Joiner{kind: joinerFiltering, filter: p}
}

// joinerSet is the compiled form of the joiners of a node.
type joinerSet struct {
	leftEq, rightEq       []KeyFunc
	op                    rangeOp
	leftRange, rightRange KeyFunc
	compare               func(a, b any) int
	filters               []Predicate
}

func compileJoiners(node string, js []Joiner) (*joinerSet, error) {
	s := &joinerSet{}
	for _, j := range js {
		switch j.kind {
		case joinerEqual:
			if j.left == nil || j.right == nil {
				return nil, newConfigError(node, "equal joiner needs both key functions")
			}
			s.leftEq = append(s.leftEq, j.left)
			s.rightEq = append(s.rightEq, j.right)
		case joinerRange:
			if s.op != opNone {
				return nil, newConfigError(node, "at most one range joiner is supported")
			}
			s.op, s.leftRange, s.rightRange, s.compare = j.op, j.left, j.right, j.compare
		case joinerFiltering:
			if j.filter == nil {
				return nil, newConfigError(node, "filtering joiner needs a predicate")
			}
			s.filters = append(s.filters, j.filter)
		}
	}
	if len(s.leftEq) > maxKeys {
		return nil, newConfigError(node, "at most %d equal joiners are supported, got %d", maxKeys, len(s.leftEq))
	}
	return s, nil
}

func (s *joinerSet) key(eq []KeyFunc, rng KeyFunc, facts []any) IndexKey {
	keys := make([]any, 0, len(eq))
	k := IndexKey{Eq: newKey(evalKeys(eq, facts, keys))}
	if rng != nil {
		k.Range = rng(facts)
	}
	return k
}

func (s *joinerSet) leftKey(facts []any) IndexKey  { return s.key(s.leftEq, s.leftRange, facts) }
func (s *joinerSet) rightKey(facts []any) IndexKey { return s.key(s.rightEq, s.rightRange, facts) }

func (s *joinerSet) hasFilter() bool { return len(s.filters) > 0 }

// accepts evaluates the filtering joiners on the combined facts.
func (s *joinerSet) accepts(left, right []any) bool {
	if len(s.filters) == 0 {
		return true
	}
	combined := make([]any, 0, len(left)+len(right))
	combined = append(append(combined, left...), right...)
	for _, f := range s.filters {
		if !f(combined) {
			return false
		}
	}
	return true
}
