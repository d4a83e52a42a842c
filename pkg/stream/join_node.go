package stream

// joinSide is one input of a two-input node: the store slot it uses on its input tuples, the
// index of its live tuples and the lookup relation towards the other side.
type joinSide struct {
	slot  int
	index *Index
	key   func(facts []any) IndexKey
	// probe is the relation stored tuples of the other side must have to this side's key
	probe rangeOp
	left  bool
}

func newJoinSides(joiners *joinerSet, leftSlot, rightSlot int) (*joinSide, *joinSide) {
	left := &joinSide{
		slot:  leftSlot,
		index: NewIndex(joiners.compare),
		key:   joiners.leftKey,
		probe: joiners.op.flip(),
		left:  true,
	}
	right := &joinSide{
		slot:  rightSlot,
		index: NewIndex(joiners.compare),
		key:   joiners.rightKey,
		probe: joiners.op,
	}
	return left, right
}

// joinEntry is the store entry of a join input tuple: its index position and the output tuples
// it takes part in, keyed by the partner tuple of the other side.
type joinEntry struct {
	handle *IndexHandle
	outs   map[*Tuple]*Tuple
}

// JoinNode pairs left and right tuples that satisfy the joiners into tuples holding the left
// facts followed by the right facts.
type JoinNode struct {
	baseNode
	producer
	joiners     *joinerSet
	left, right *joinSide
}

func newJoinNode(id string, left, right Node, joiners *joinerSet, leftSlot, rightSlot int) *JoinNode {
	n := &JoinNode{
		baseNode: newBaseNode(id, KindJoin, left, right),
		producer: newProducer(id),
		joiners:  joiners,
	}
	n.left, n.right = newJoinSides(joiners, leftSlot, rightSlot)
	return n
}

func (n *JoinNode) insertLeft(t *Tuple)   { n.insert(n.left, n.right, t) }
func (n *JoinNode) updateLeft(t *Tuple)   { n.update(n.left, n.right, t) }
func (n *JoinNode) retractLeft(t *Tuple)  { n.retract(n.left, n.right, t) }
func (n *JoinNode) insertRight(t *Tuple)  { n.insert(n.right, n.left, t) }
func (n *JoinNode) updateRight(t *Tuple)  { n.update(n.right, n.left, t) }
func (n *JoinNode) retractRight(t *Tuple) { n.retract(n.right, n.left, t) }

func (n *JoinNode) entry(side *joinSide, t *Tuple) *joinEntry {
	e, ok := t.store[side.slot].(*joinEntry)
	if !ok {
		impossibleState(n.id, "tuple %v is unknown on the %s side", t, side)
	}
	return e
}

func (n *JoinNode) insert(side, other *joinSide, t *Tuple) {
	if t.store[side.slot] != nil {
		impossibleState(n.id, "insert of an already joined tuple %v", t)
	}
	key := side.key(t.facts)
	e := &joinEntry{handle: side.index.Put(key, t), outs: make(map[*Tuple]*Tuple)}
	t.store[side.slot] = e
	other.index.ForEach(key, side.probe, func(partner *Tuple) {
		if side.accepts(n.joiners, t, partner) {
			n.pair(side, other, t, e, partner)
		}
	})
}

func (n *JoinNode) update(side, other *joinSide, t *Tuple) {
	e := n.entry(side, t)
	key := side.key(t.facts)
	if !key.equal(e.handle.key) {
		// the set of partners may differ completely
		n.retract(side, other, t)
		n.insert(side, other, t)
		return
	}

	if !n.joiners.hasFilter() {
		for partner, out := range e.outs {
			n.refresh(side, out, t, partner)
		}
		return
	}

	other.index.ForEach(key, side.probe, func(partner *Tuple) {
		out, paired := e.outs[partner]
		accepted := side.accepts(n.joiners, t, partner)
		switch {
		case paired && accepted:
			n.refresh(side, out, t, partner)
		case paired && !accepted:
			n.unpair(other, t, e, partner, out)
		case !paired && accepted:
			n.pair(side, other, t, e, partner)
		}
	})
}

func (n *JoinNode) retract(side, other *joinSide, t *Tuple) {
	e := n.entry(side, t)
	side.index.Remove(e.handle)
	for partner, out := range e.outs {
		delete(n.entry(other, partner).outs, t)
		n.q.retract(out)
	}
	t.store[side.slot] = nil
}

// accepts evaluates the filtering joiners on the pair, t being on the given side.
func (side *joinSide) accepts(joiners *joinerSet, t, partner *Tuple) bool {
	if side.left {
		return joiners.accepts(t.facts, partner.facts)
	}
	return joiners.accepts(partner.facts, t.facts)
}

func (n *JoinNode) pair(side, other *joinSide, t *Tuple, e *joinEntry, partner *Tuple) {
	out := n.newTuple()
	combine(side, out, t, partner)
	e.outs[partner] = out
	n.entry(other, partner).outs[t] = out
	n.q.insert(out)
}

func (n *JoinNode) unpair(other *joinSide, t *Tuple, e *joinEntry, partner, out *Tuple) {
	delete(e.outs, partner)
	delete(n.entry(other, partner).outs, t)
	n.q.retract(out)
}

func (n *JoinNode) refresh(side *joinSide, out, t, partner *Tuple) {
	combine(side, out, t, partner)
	n.q.update(out)
}

func combine(side *joinSide, out, t, partner *Tuple) {
	if side.left {
		out.setFacts(t.facts, partner.facts)
	} else {
		out.setFacts(partner.facts, t.facts)
	}
}

func (side *joinSide) String() string {
	if side.left {
		return "left"
	}
	return "right"
}
