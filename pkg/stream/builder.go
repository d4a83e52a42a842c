package stream

import (
	"fmt"
	"reflect"

	"github.com/go-logr/logr"

	"github.com/l7mp/scorenet/pkg/score"
	"github.com/l7mp/scorenet/pkg/util"
)

// ConstraintProvider declares the constraints of a problem on a builder.
type ConstraintProvider[S score.Score[S]] func(b *Builder[S]) error

// Builder assembles a network. Nodes are created in declaration order, which is a topological
// order because a stream can only be derived from streams declared before it. The first
// configuration error is kept and returned when the network is built; later declarations are
// ignored.
type Builder[S score.Score[S]] struct {
	cfg     Config
	env     *environment
	acc     *ScoreAccumulator[S]
	nodes   []Node
	roots   map[reflect.Type]*Stream[S]
	scoring []*ScoringNode[S]
	names   map[string]bool
	sealers []interface{ seal() }
	err     error
	log     logr.Logger
}

func newBuilder[S score.Score[S]](cfg Config, fullAssert bool, log logr.Logger) *Builder[S] {
	return &Builder[S]{
		cfg:   cfg,
		env:   &environment{fullAssert: fullAssert},
		acc:   &ScoreAccumulator[S]{},
		roots: map[reflect.Type]*Stream[S]{},
		names: map[string]bool{},
		log:   log,
	}
}

// Err returns the first configuration error.
func (b *Builder[S]) Err() error { return b.err }

func (b *Builder[S]) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder[S]) nextID(kind NodeKind) string { return fmt.Sprintf("%s#%d", kind, len(b.nodes)) }

func (b *Builder[S]) add(n Node) {
	b.nodes = append(b.nodes, n)
	if s, ok := n.(interface{ seal() }); ok {
		b.sealers = append(b.sealers, s)
	}
}

// build seals the nodes and creates the network.
func (b *Builder[S]) build(opts options) (*Network, error) {
	if b.err != nil {
		return nil, b.err
	}
	for _, name := range util.SortedKeys(b.cfg.ConstraintWeights) {
		if !b.names[name] {
			return nil, newConfigError("", "weight override for unknown constraint %q", name)
		}
	}
	for _, s := range b.sealers {
		s.seal()
	}
	return newNetwork(b.nodes, opts.registerer, opts.logger.WithName("network"))
}

// Stream is a declared stream of tuples. Streams are immutable: each operation declares a new
// node and returns its stream.
type Stream[S score.Score[S]] struct {
	b     *Builder[S]
	node  Node
	owner slotOwner
	arity int
}

// ForEach declares the root stream of all facts of type T. Roots are shared: declaring the same
// type twice returns the same stream.
func ForEach[T any, S score.Score[S]](b *Builder[S]) *Stream[S] {
	t := reflect.TypeFor[T]()
	if s, ok := b.roots[t]; ok {
		return s
	}
	n := newForEachNode(fmt.Sprintf("%s#%d(%s)", KindForEach, len(b.nodes), t), func(fact any) bool {
		_, ok := fact.(T)
		return ok
	})
	b.add(n)
	s := &Stream[S]{b: b, node: n, owner: n, arity: 1}
	b.roots[t] = s
	return s
}

// Node returns the node producing the stream.
func (s *Stream[S]) Node() Node { return s.node }

// Arity returns the number of facts of the tuples of the stream.
func (s *Stream[S]) Arity() int { return s.arity }

func (s *Stream[S]) derive(n Node, owner slotOwner, arity int) *Stream[S] {
	s.b.add(n)
	return &Stream[S]{b: s.b, node: n, owner: owner, arity: arity}
}

// Filter keeps the tuples that satisfy the predicate.
func (s *Stream[S]) Filter(p Predicate) *Stream[S] {
	if s.b.err != nil {
		return s
	}
	id := s.b.nextID(KindFilter)
	if p == nil {
		s.b.fail(newConfigError(id, "nil predicate"))
		return s
	}
	n := newFilterNode(id, s.node, s.owner, s.owner.allocateSlot(), p)
	s.owner.addDownstream(n)
	return s.derive(n, n, s.arity)
}

// Map replaces every tuple by a tuple of the mapped values, one per mapping function.
func (s *Stream[S]) Map(mappings ...KeyFunc) *Stream[S] {
	if s.b.err != nil {
		return s
	}
	id := s.b.nextID(KindMap)
	if len(mappings) == 0 || len(mappings) > maxKeys {
		s.b.fail(newConfigError(id, "1 to %d mapping functions are supported, got %d", maxKeys, len(mappings)))
		return s
	}
	for i, m := range mappings {
		if m == nil {
			s.b.fail(newConfigError(id, "mapping function %d is nil", i))
			return s
		}
	}
	n := newMapNode(id, s.b.env, s.node, s.owner.allocateSlot(), mappings)
	s.owner.addDownstream(n)
	return s.derive(n, n, len(mappings))
}

// FlattenLast replaces the last fact of every tuple by each item the function returns for it.
func (s *Stream[S]) FlattenLast(flatten func(last any) []any) *Stream[S] {
	if s.b.err != nil {
		return s
	}
	id := s.b.nextID(KindFlatten)
	if flatten == nil {
		s.b.fail(newConfigError(id, "nil flattening function"))
		return s
	}
	n := newFlattenLastNode(id, s.node, s.owner.allocateSlot(), flatten)
	s.owner.addDownstream(n)
	return s.derive(n, n, s.arity)
}

// Items adapts a typed flattening function for FlattenLast.
func Items[T, I any](f func(T) []I) func(last any) []any {
	return func(last any) []any {
		items := f(as[T](last))
		ret := make([]any, len(items))
		for i, item := range items {
			ret[i] = item
		}
		return ret
	}
}

func (s *Stream[S]) checkPartner(id string, other *Stream[S]) bool {
	if other == nil || other.b != s.b {
		s.b.fail(newConfigError(id, "the other stream must be declared on the same builder"))
		return false
	}
	return true
}

// Join pairs the tuples of the stream with the tuples of the other stream that satisfy the
// joiners. Joined tuples hold the facts of the stream followed by the facts of the other.
func (s *Stream[S]) Join(other *Stream[S], joiners ...Joiner) *Stream[S] {
	if s.b.err != nil {
		return s
	}
	id := s.b.nextID(KindJoin)
	if !s.checkPartner(id, other) {
		return s
	}
	js, err := compileJoiners(id, joiners)
	if err != nil {
		s.b.fail(err)
		return s
	}
	n := newJoinNode(id, s.node, other.node, js, s.owner.allocateSlot(), other.owner.allocateSlot())
	s.owner.addDownstream(leftLifecycle{n})
	other.owner.addDownstream(rightLifecycle{n})
	return s.derive(n, n, s.arity+other.arity)
}

// IfExists keeps the tuples for which at least one tuple of the other stream satisfies the
// joiners.
func (s *Stream[S]) IfExists(other *Stream[S], joiners ...Joiner) *Stream[S] {
	return s.exists(true, other, joiners)
}

// IfNotExists keeps the tuples for which no tuple of the other stream satisfies the joiners.
func (s *Stream[S]) IfNotExists(other *Stream[S], joiners ...Joiner) *Stream[S] {
	return s.exists(false, other, joiners)
}

func (s *Stream[S]) exists(shouldExist bool, other *Stream[S], joiners []Joiner) *Stream[S] {
	if s.b.err != nil {
		return s
	}
	id := s.b.nextID(KindExists)
	if !s.checkPartner(id, other) {
		return s
	}
	js, err := compileJoiners(id, joiners)
	if err != nil {
		s.b.fail(err)
		return s
	}
	n := newExistsNode(id, shouldExist, s.node, other.node, js, s.owner.allocateSlot(), other.owner.allocateSlot())
	s.owner.addDownstream(leftLifecycle{n})
	other.owner.addDownstream(rightLifecycle{n})
	return s.derive(n, n, s.arity)
}

// GroupBy groups the tuples by the key mappings and folds the collectors over each group. The
// output tuples hold the keys followed by the collector results.
func (s *Stream[S]) GroupBy(keys []KeyFunc, collectors ...Collector) *Stream[S] {
	if s.b.err != nil {
		return s
	}
	id := s.b.nextID(KindGroup)
	switch {
	case len(keys)+len(collectors) == 0:
		s.b.fail(newConfigError(id, "group needs at least one key mapping or collector"))
		return s
	case len(keys) > maxKeys:
		s.b.fail(newConfigError(id, "at most %d key mappings are supported, got %d", maxKeys, len(keys)))
		return s
	case len(collectors) > maxKeys:
		s.b.fail(newConfigError(id, "at most %d collectors are supported, got %d", maxKeys, len(collectors)))
		return s
	}
	for i, k := range keys {
		if k == nil {
			s.b.fail(newConfigError(id, "key mapping %d is nil", i))
			return s
		}
	}
	for _, c := range collectors {
		if err := c.validate(id); err != nil {
			s.b.fail(err)
			return s
		}
	}
	n := newGroupNode(id, s.b.env, s.node, s.owner.allocateSlot(), keys, collectors)
	s.owner.addDownstream(n)
	return s.derive(n, n, len(keys)+len(collectors))
}

// Penalize scores every tuple of the stream with the negated weight times the match weight.
// A nil weigher means a match weight of 1.
func (s *Stream[S]) Penalize(constraint string, weight S, weigher Func[int64]) {
	s.score(constraint, weight, weigher, true)
}

// Reward scores every tuple of the stream with the weight times the match weight.
func (s *Stream[S]) Reward(constraint string, weight S, weigher Func[int64]) {
	s.score(constraint, weight, weigher, false)
}

func (s *Stream[S]) score(constraint string, weight S, weigher Func[int64], negate bool) {
	b := s.b
	if b.err != nil {
		return
	}
	id := fmt.Sprintf("%s(%s)", b.nextID(KindScoring), constraint)
	switch {
	case constraint == "":
		b.fail(newConfigError(id, "empty constraint name"))
		return
	case b.names[constraint]:
		b.fail(newConfigError(id, "duplicate constraint %q", constraint))
		return
	}
	if text, ok := b.cfg.ConstraintWeights[constraint]; ok {
		w, err := weight.Parse(text)
		if err != nil {
			b.fail(newConfigError(id, "invalid weight override: %s", err))
			return
		}
		weight = w
	}
	if negate {
		weight = weight.Negate()
	}
	b.names[constraint] = true

	n := newScoringNode(id, constraint, s.node, s.owner.allocateSlot(), weight, weigher, b.acc,
		b.cfg.ConstraintMatchEnabled)
	s.owner.addDownstream(n)
	b.add(n)
	b.scoring = append(b.scoring, n)
	b.log.V(2).Info("constraint declared", "constraint", constraint, "weight", weight.String())
}
