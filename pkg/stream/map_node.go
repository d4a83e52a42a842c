package stream

// MapNode derives a new tuple from every input tuple with one mapping function per output fact.
// The derived tuple is cached in the input tuple's store slot. Updates that leave every mapped
// fact unchanged are not propagated.
type MapNode struct {
	baseNode
	producer
	env      *environment
	slot     int
	mappings []KeyFunc
}

func newMapNode(id string, env *environment, parent Node, slot int, mappings []KeyFunc) *MapNode {
	return &MapNode{
		baseNode: newBaseNode(id, KindMap, parent),
		producer: newProducer(id),
		env:      env,
		slot:     slot,
		mappings: mappings,
	}
}

func (n *MapNode) mapFact(i int, facts []any) any {
	v := n.mappings[i](facts)
	n.env.assertPure(n.id, n.mappings[i], facts, v)
	return v
}

func (n *MapNode) Insert(t *Tuple) {
	if t.store[n.slot] != nil {
		impossibleState(n.id, "insert of an already mapped tuple %v", t)
	}
	out := n.newTuple(make([]any, len(n.mappings))...)
	for i := range n.mappings {
		out.setFact(i, n.mapFact(i, t.facts))
	}
	t.store[n.slot] = out
	n.q.insert(out)
}

func (n *MapNode) Update(t *Tuple) {
	out, ok := t.store[n.slot].(*Tuple)
	if !ok {
		// the tuple was never inserted here, which a correct upstream never does
		impossibleState(n.id, "update of an unknown tuple %v", t)
	}
	changed := false
	for i := range n.mappings {
		v := n.mapFact(i, t.facts)
		if !factEqual(out.facts[i], v) {
			out.setFact(i, v)
			changed = true
		}
	}
	if changed {
		n.q.update(out)
	}
}

func (n *MapNode) Retract(t *Tuple) {
	out, ok := t.store[n.slot].(*Tuple)
	if !ok {
		impossibleState(n.id, "retract of an unknown tuple %v", t)
	}
	t.store[n.slot] = nil
	n.q.retract(out)
}
