package stream

// ForEachNode is a root node: it turns facts accepted by its type test into single-fact tuples.
type ForEachNode struct {
	baseNode
	producer
	accepts func(fact any) bool
	tuples  map[any]*Tuple
}

func newForEachNode(id string, accepts func(fact any) bool) *ForEachNode {
	return &ForEachNode{
		baseNode: newBaseNode(id, KindForEach),
		producer: newProducer(id),
		accepts:  accepts,
		tuples:   make(map[any]*Tuple),
	}
}

// Accepts reports whether the fact belongs to this root.
func (n *ForEachNode) Accepts(fact any) bool { return n.accepts(fact) }

// Size returns the number of live facts.
func (n *ForEachNode) Size() int { return len(n.tuples) }

func (n *ForEachNode) insertFact(fact any) error {
	if _, ok := n.tuples[fact]; ok {
		return ErrDuplicateFact
	}
	t := n.newTuple(fact)
	n.tuples[fact] = t
	n.q.insert(t)
	return nil
}

func (n *ForEachNode) updateFact(fact any) error {
	t, ok := n.tuples[fact]
	if !ok {
		return ErrUnknownFact
	}
	n.q.update(t)
	return nil
}

func (n *ForEachNode) retractFact(fact any) error {
	t, ok := n.tuples[fact]
	if !ok {
		return ErrUnknownFact
	}
	delete(n.tuples, fact)
	n.q.retract(t)
	return nil
}

// facts returns the live facts in no particular order.
func (n *ForEachNode) facts() []any {
	ret := make([]any, 0, len(n.tuples))
	for f := range n.tuples {
		ret = append(ret, f)
	}
	return ret
}
