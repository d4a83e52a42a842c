package stream

// passing is the store marker of a tuple that currently satisfies the filter.
type passing struct{}

// FilterNode forwards the tuples that satisfy its predicate. It owns no tuples: downstream nodes
// see the upstream tuple itself, so their store slots are allocated on the upstream producer.
type FilterNode struct {
	baseNode
	slots      slotOwner
	slot       int
	predicate  Predicate
	downstream []TupleLifecycle
	next       TupleLifecycle
}

func newFilterNode(id string, parent Node, slots slotOwner, slot int, predicate Predicate) *FilterNode {
	return &FilterNode{
		baseNode:  newBaseNode(id, KindFilter, parent),
		slots:     slots,
		slot:      slot,
		predicate: predicate,
	}
}

func (n *FilterNode) queue() *propagationQueue { return nil }

func (n *FilterNode) allocateSlot() int { return n.slots.allocateSlot() }

func (n *FilterNode) addDownstream(l TupleLifecycle) { n.downstream = append(n.downstream, l) }

func (n *FilterNode) seal() { n.next = newLifecycle(n.downstream) }

func (n *FilterNode) Insert(t *Tuple) {
	if n.predicate(t.facts) {
		t.store[n.slot] = passing{}
		n.next.Insert(t)
	}
}

func (n *FilterNode) Update(t *Tuple) {
	wasPassing := t.store[n.slot] != nil
	isPassing := n.predicate(t.facts)
	switch {
	case !wasPassing && isPassing:
		t.store[n.slot] = passing{}
		n.next.Insert(t)
	case wasPassing && !isPassing:
		t.store[n.slot] = nil
		n.next.Retract(t)
	case wasPassing && isPassing:
		n.next.Update(t)
	}
}

func (n *FilterNode) Retract(t *Tuple) {
	if t.store[n.slot] != nil {
		t.store[n.slot] = nil
		n.next.Retract(t)
	}
}
