package stream

// existsEntry is the store entry of an exists input tuple: its index position and the tuples of
// the other side it currently matches. On the left side it also holds the output tuple while
// the left tuple is present downstream.
type existsEntry struct {
	handle  *IndexHandle
	matches map[*Tuple]struct{}
	out     *Tuple
}

// ExistsNode forwards a copy of every left tuple for which at least one matching right tuple
// exists (IfExists) or none does (IfNotExists). Matches are counted per left tuple, so a right
// event touches only the left tuples it matches.
type ExistsNode struct {
	baseNode
	producer
	shouldExist bool
	joiners     *joinerSet
	left, right *joinSide
}

func newExistsNode(id string, shouldExist bool, left, right Node, joiners *joinerSet, leftSlot, rightSlot int) *ExistsNode {
	n := &ExistsNode{
		baseNode:    newBaseNode(id, KindExists, left, right),
		producer:    newProducer(id),
		shouldExist: shouldExist,
		joiners:     joiners,
	}
	n.left, n.right = newJoinSides(joiners, leftSlot, rightSlot)
	return n
}

// ShouldExist reports whether the node passes tuples with (true) or without (false) a match.
func (n *ExistsNode) ShouldExist() bool { return n.shouldExist }

func (n *ExistsNode) entry(side *joinSide, t *Tuple) *existsEntry {
	e, ok := t.store[side.slot].(*existsEntry)
	if !ok {
		impossibleState(n.id, "tuple %v is unknown on the %s side", t, side)
	}
	return e
}

func (n *ExistsNode) index(side, other *joinSide, t *Tuple) *existsEntry {
	if t.store[side.slot] != nil {
		impossibleState(n.id, "insert of an already indexed tuple %v", t)
	}
	key := side.key(t.facts)
	e := &existsEntry{handle: side.index.Put(key, t), matches: make(map[*Tuple]struct{})}
	t.store[side.slot] = e
	other.index.ForEach(key, side.probe, func(partner *Tuple) {
		if side.accepts(n.joiners, t, partner) {
			e.matches[partner] = struct{}{}
			n.entry(other, partner).matches[t] = struct{}{}
		}
	})
	return e
}

func (n *ExistsNode) unindex(side, other *joinSide, t *Tuple) *existsEntry {
	e := n.entry(side, t)
	side.index.Remove(e.handle)
	for partner := range e.matches {
		delete(n.entry(other, partner).matches, t)
	}
	t.store[side.slot] = nil
	return e
}

// rematch re-evaluates the filtering joiners of t against its bucket and calls changed for
// every partner whose match status flipped.
func (n *ExistsNode) rematch(side, other *joinSide, t *Tuple, e *existsEntry, changed func(partner *Tuple)) {
	other.index.ForEach(e.handle.key, side.probe, func(partner *Tuple) {
		_, matched := e.matches[partner]
		accepted := side.accepts(n.joiners, t, partner)
		if matched == accepted {
			return
		}
		pe := n.entry(other, partner)
		if accepted {
			e.matches[partner] = struct{}{}
			pe.matches[t] = struct{}{}
		} else {
			delete(e.matches, partner)
			delete(pe.matches, t)
		}
		changed(partner)
	})
}

func (n *ExistsNode) present(e *existsEntry) bool { return (len(e.matches) > 0) == n.shouldExist }

// refresh brings the output of a left tuple in line with its match count.
func (n *ExistsNode) refresh(t *Tuple, e *existsEntry) {
	present := n.present(e)
	switch {
	case present && e.out == nil:
		e.out = n.newTuple(t.facts...)
		n.q.insert(e.out)
	case !present && e.out != nil:
		n.q.retract(e.out)
		e.out = nil
	}
}

func (n *ExistsNode) insertLeft(t *Tuple) {
	e := n.index(n.left, n.right, t)
	n.refresh(t, e)
}

func (n *ExistsNode) updateLeft(t *Tuple) {
	e := n.entry(n.left, t)
	if !n.left.key(t.facts).equal(e.handle.key) {
		n.retractLeft(t)
		n.insertLeft(t)
		return
	}
	if n.joiners.hasFilter() {
		n.rematch(n.left, n.right, t, e, func(*Tuple) {})
	}
	if e.out != nil && n.present(e) {
		e.out.setFacts(t.facts)
		n.q.update(e.out)
		return
	}
	n.refresh(t, e)
}

func (n *ExistsNode) retractLeft(t *Tuple) {
	e := n.unindex(n.left, n.right, t)
	if e.out != nil {
		n.q.retract(e.out)
		e.out = nil
	}
}

func (n *ExistsNode) insertRight(t *Tuple) {
	e := n.index(n.right, n.left, t)
	for left := range e.matches {
		n.refresh(left, n.entry(n.left, left))
	}
}

// updateRight only matters when filtering joiners may see different right facts: the output
// holds the left facts alone.
func (n *ExistsNode) updateRight(t *Tuple) {
	e := n.entry(n.right, t)
	if !n.right.key(t.facts).equal(e.handle.key) {
		n.retractRight(t)
		n.insertRight(t)
		return
	}
	if n.joiners.hasFilter() {
		n.rematch(n.right, n.left, t, e, func(left *Tuple) {
			n.refresh(left, n.entry(n.left, left))
		})
	}
}

func (n *ExistsNode) retractRight(t *Tuple) {
	e := n.unindex(n.right, n.left, t)
	for left := range e.matches {
		n.refresh(left, n.entry(n.left, left))
	}
}
