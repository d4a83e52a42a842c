package stream

import (
	"cmp"
	"fmt"

	"github.com/emirpasic/gods/trees/redblacktree"
	"golang.org/x/exp/constraints"
)

// Number is the constraint of the numeric collectors.
type Number interface {
	constraints.Integer | constraints.Float
}

// Collector folds the tuples of a group into one result. Every collector can undo a fold, so
// removing a member never recomputes the group from scratch.
type Collector struct {
	name     string
	value    KeyFunc
	newState func() collectorState
	// missing names a function the collector cannot work without
	missing string
}

// collectorState is the running aggregate of one collector in one group.
type collectorState interface {
	fold(v any)
	unfold(v any)
	result() any
}

// Name returns the collector name used in errors and debugging output.
func (c Collector) Name() string { return c.name }

func (c Collector) validate(node string) error {
	if c.newState == nil {
		return newConfigError(node, "collector is not initialized")
	}
	if c.missing != "" {
		return newConfigError(node, "collector %s has no %s function", c.name, c.missing)
	}
	return nil
}

// valueOf extracts the value the collector folds from the facts of a member tuple.
func (c Collector) valueOf(facts []any) any {
	if c.value == nil {
		return nil
	}
	return c.value(facts)
}

// Count counts the members of the group as an int.
func Count() Collector {
	return Collector{name: "count", newState: func() collectorState { return new(countState) }}
}

type countState int

func (s *countState) fold(any)     { *s++ }
func (s *countState) unfold(any)   { *s-- }
func (s *countState) result() any { return int(*s) }

// CountDistinct counts the distinct values of the group members. Values must be comparable.
func CountDistinct(value KeyFunc) Collector {
	return Collector{
		name:     "countDistinct",
		value:    value,
		newState: func() collectorState { return &distinctState{counts: make(map[any]int)} },
		missing:  missingIfNil(value == nil, "value"),
	}
}

type distinctState struct{ counts map[any]int }

func (s *distinctState) fold(v any) { s.counts[v]++ }

func (s *distinctState) unfold(v any) {
	if s.counts[v]--; s.counts[v] == 0 {
		delete(s.counts, v)
	}
}

func (s *distinctState) result() any { return len(s.counts) }

// Sum sums the values of the group members.
func Sum[N Number](value Func[N]) Collector {
	return Collector{
		name:     "sum",
		value:    keyOrNil(value),
		newState: func() collectorState { return new(sumState[N]) },
		missing:  missingIfNil(value == nil, "value"),
	}
}

type sumState[N Number] struct{ sum N }

func (s *sumState[N]) fold(v any)   { s.sum += v.(N) }
func (s *sumState[N]) unfold(v any) { s.sum -= v.(N) }
func (s *sumState[N]) result() any  { return s.sum }

// Average computes the mean of the values of the group members as a float64.
func Average[N Number](value Func[N]) Collector {
	return Collector{
		name:     "average",
		value:    keyOrNil(value),
		newState: func() collectorState { return new(averageState[N]) },
		missing:  missingIfNil(value == nil, "value"),
	}
}

type averageState[N Number] struct {
	sum   N
	count int
}

func (s *averageState[N]) fold(v any)   { s.sum += v.(N); s.count++ }
func (s *averageState[N]) unfold(v any) { s.sum -= v.(N); s.count-- }

func (s *averageState[N]) result() any {
	if s.count == 0 {
		return nil
	}
	return float64(s.sum) / float64(s.count)
}

// Min keeps the smallest value of the group members. Duplicates are counted so removing one of
// several equal minimums keeps the minimum.
func Min[K cmp.Ordered](value Func[K]) Collector { return extremum("min", value, false) }

// Max keeps the largest value of the group members.
func Max[K cmp.Ordered](value Func[K]) Collector { return extremum("max", value, true) }

func extremum[K cmp.Ordered](name string, value Func[K], max bool) Collector {
	return Collector{
		name:  name,
		value: keyOrNil(value),
		newState: func() collectorState {
			return &extremumState{
				tree: redblacktree.NewWith(func(a, b any) int { return cmp.Compare(a.(K), b.(K)) }),
				max:  max,
			}
		},
		missing: missingIfNil(value == nil, "value"),
	}
}

// extremumState is a multiset: value -> number of members with that value.
type extremumState struct {
	tree *redblacktree.Tree
	max  bool
}

func (s *extremumState) fold(v any) {
	n, _ := s.tree.Get(v)
	c, _ := n.(int)
	s.tree.Put(v, c+1)
}

func (s *extremumState) unfold(v any) {
	n, found := s.tree.Get(v)
	if !found {
		panic(fmt.Errorf("%s collector: unfold of a value %v that was never folded", s.name(), v))
	}
	if c := n.(int); c > 1 {
		s.tree.Put(v, c-1)
	} else {
		s.tree.Remove(v)
	}
}

func (s *extremumState) result() any {
	var node *redblacktree.Node
	if s.max {
		node = s.tree.Right()
	} else {
		node = s.tree.Left()
	}
	if node == nil {
		return nil
	}
	return node.Key
}

func (s *extremumState) name() string {
	if s.max {
		return "max"
	}
	return "min"
}

// Custom builds a collector from an accumulator supplier, a value extractor, a fold function,
// its inverse and a finisher. A nil unfold is reported as a configuration error when the
// network is built: without it a member could never leave the group.
func Custom[A, V, R any](name string, supply func() A, value Func[V], fold, unfold func(acc A, v V) A, finish func(acc A) R) Collector {
	c := Collector{name: name, value: keyOrNil(value)}
	switch {
	case supply == nil:
		c.missing = "supplier"
	case value == nil:
		c.missing = "value"
	case fold == nil:
		c.missing = "fold"
	case unfold == nil:
		c.missing = "unfold"
	case finish == nil:
		c.missing = "finish"
	}
	c.newState = func() collectorState {
		return &customState[A, V, R]{acc: supply(), foldFn: fold, unfoldFn: unfold, finishFn: finish}
	}
	return c
}

type customState[A, V, R any] struct {
	acc              A
	foldFn, unfoldFn func(A, V) A
	finishFn         func(A) R
}

func (s *customState[A, V, R]) fold(v any)   { s.acc = s.foldFn(s.acc, as[V](v)) }
func (s *customState[A, V, R]) unfold(v any) { s.acc = s.unfoldFn(s.acc, as[V](v)) }
func (s *customState[A, V, R]) result() any  { return s.finishFn(s.acc) }

func keyOrNil[R any](f Func[R]) KeyFunc {
	if f == nil {
		return nil
	}
	return Key(f)
}

func missingIfNil(isNil bool, what string) string {
	if isNil {
		return what
	}
	return ""
}
