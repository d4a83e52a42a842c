package stream

// group is the accumulator of one group key: the collector states, the member count and the
// output tuple holding the keys followed by the collector results.
type group struct {
	key    any
	keys   []any
	states []collectorState
	count  int
	out    *Tuple
}

// groupEntry is the store entry of a member tuple: its group and the values it folded into the
// collectors, so unfold undoes exactly what was folded.
type groupEntry struct {
	group  *group
	values []any
}

// GroupNode groups tuples by up to four key mappings and folds up to four collectors over each
// group. There is exactly one output tuple per group with at least one member. The output is
// updated only when a collector result changes, so keys should be values rather than pointers
// to facts that are modified in place.
type GroupNode struct {
	baseNode
	producer
	env        *environment
	slot       int
	keyFns     []KeyFunc
	collectors []Collector
	groups     map[any]*group
}

func newGroupNode(id string, env *environment, parent Node, slot int, keyFns []KeyFunc, collectors []Collector) *GroupNode {
	return &GroupNode{
		baseNode:   newBaseNode(id, KindGroup, parent),
		producer:   newProducer(id),
		env:        env,
		slot:       slot,
		keyFns:     keyFns,
		collectors: collectors,
		groups:     make(map[any]*group),
	}
}

// Size returns the number of non-empty groups.
func (n *GroupNode) Size() int { return len(n.groups) }

func (n *GroupNode) keysOf(facts []any) []any {
	keys := evalKeys(n.keyFns, facts, make([]any, 0, len(n.keyFns)))
	for i, f := range n.keyFns {
		n.env.assertPure(n.id, f, facts, keys[i])
	}
	return keys
}

func (n *GroupNode) Insert(t *Tuple) {
	if t.store[n.slot] != nil {
		impossibleState(n.id, "insert of an already grouped tuple %v", t)
	}
	n.join(t, n.keysOf(t.facts))
}

// join adds t to the group of the given keys, creating the group if needed.
func (n *GroupNode) join(t *Tuple, keys []any) {
	key := newKey(keys)
	g, ok := n.groups[key]
	if !ok {
		g = &group{key: key, keys: keys, states: make([]collectorState, len(n.collectors))}
		for i, c := range n.collectors {
			g.states[i] = c.newState()
		}
		n.groups[key] = g
	}

	e := &groupEntry{group: g, values: make([]any, len(n.collectors))}
	for i, c := range n.collectors {
		e.values[i] = c.valueOf(t.facts)
		g.states[i].fold(e.values[i])
	}
	g.count++
	t.store[n.slot] = e
	n.emit(g)
}

func (n *GroupNode) Update(t *Tuple) {
	e, ok := t.store[n.slot].(*groupEntry)
	if !ok {
		impossibleState(n.id, "update of an unknown tuple %v", t)
	}
	keys := n.keysOf(t.facts)
	if !factEqual(newKey(keys), e.group.key) {
		n.leave(t, e)
		n.join(t, keys)
		return
	}

	g := e.group
	for i, c := range n.collectors {
		v := c.valueOf(t.facts)
		g.states[i].unfold(e.values[i])
		g.states[i].fold(v)
		e.values[i] = v
	}
	n.emit(g)
}

func (n *GroupNode) Retract(t *Tuple) {
	e, ok := t.store[n.slot].(*groupEntry)
	if !ok {
		impossibleState(n.id, "retract of an unknown tuple %v", t)
	}
	n.leave(t, e)
}

// leave removes t from its group; the last member takes the group and its output with it.
func (n *GroupNode) leave(t *Tuple, e *groupEntry) {
	g := e.group
	for i := range n.collectors {
		g.states[i].unfold(e.values[i])
	}
	g.count--
	t.store[n.slot] = nil

	switch {
	case g.count < 0:
		impossibleState(n.id, "negative member count in group %v", g.key)
	case g.count == 0:
		delete(n.groups, g.key)
		if g.out != nil {
			n.q.retract(g.out)
			g.out = nil
		}
	default:
		n.emit(g)
	}
}

// emit inserts the output of a new group, or updates it when a collector result changed.
func (n *GroupNode) emit(g *group) {
	if g.out == nil {
		g.out = n.newTuple(make([]any, len(g.keys)+len(g.states))...)
		copy(g.out.facts, g.keys)
		for i, s := range g.states {
			g.out.setFact(len(g.keys)+i, s.result())
		}
		n.q.insert(g.out)
		return
	}

	changed := false
	for i, s := range g.states {
		r := s.result()
		if j := len(g.keys) + i; !factEqual(g.out.facts[j], r) {
			g.out.setFact(j, r)
			changed = true
		}
	}
	if changed {
		n.q.update(g.out)
	}
}
