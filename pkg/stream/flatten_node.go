package stream

// FlattenLastNode replaces the last fact of every input tuple by each item the flattening
// function produces for it, emitting one output tuple per item. The items are materialized at
// insert so retraction never calls the function again.
type FlattenLastNode struct {
	baseNode
	producer
	slot    int
	flatten func(last any) []any
}

func newFlattenLastNode(id string, parent Node, slot int, flatten func(last any) []any) *FlattenLastNode {
	return &FlattenLastNode{
		baseNode: newBaseNode(id, KindFlatten, parent),
		producer: newProducer(id),
		slot:     slot,
		flatten:  flatten,
	}
}

func (n *FlattenLastNode) Insert(t *Tuple) {
	if t.store[n.slot] != nil {
		impossibleState(n.id, "insert of an already flattened tuple %v", t)
	}
	n.expand(t)
}

func (n *FlattenLastNode) expand(t *Tuple) {
	last := len(t.facts) - 1
	items := n.flatten(t.facts[last])
	outs := make([]*Tuple, 0, len(items))
	for _, item := range items {
		out := n.newTuple(t.facts...)
		out.setFact(last, item)
		outs = append(outs, out)
		n.q.insert(out)
	}
	t.store[n.slot] = outs
}

// Update retracts every output and expands again: items cannot be correlated across changes.
func (n *FlattenLastNode) Update(t *Tuple) {
	n.Retract(t)
	n.expand(t)
}

func (n *FlattenLastNode) Retract(t *Tuple) {
	outs, ok := t.store[n.slot].([]*Tuple)
	if !ok {
		impossibleState(n.id, "retract of an unknown tuple %v", t)
	}
	for _, out := range outs {
		n.q.retract(out)
	}
	t.store[n.slot] = nil
}
