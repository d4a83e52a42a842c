package stream

import "fmt"

// NodeKind classifies nodes for metrics and debugging.
type NodeKind int

const (
	KindForEach NodeKind = iota
	KindMap
	KindFilter
	KindFlatten
	KindJoin
	KindExists
	KindGroup
	KindScoring
)

// String returns the name of the kind.
func (k NodeKind) String() string {
	switch k {
	case KindForEach:
		return "foreach"
	case KindMap:
		return "map"
	case KindFilter:
		return "filter"
	case KindFlatten:
		return "flatten"
	case KindJoin:
		return "join"
	case KindExists:
		return "exists"
	case KindGroup:
		return "group"
	case KindScoring:
		return "scoring"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is a vertex of the network.
type Node interface {
	// ID returns the unique node id.
	ID() string
	// Kind returns the node kind.
	Kind() NodeKind
	// Parents returns the upstream nodes.
	Parents() []Node
	// queue returns the output propagation queue, nil for nodes that own no tuples.
	queue() *propagationQueue
}

// baseNode holds what every node has.
type baseNode struct {
	id      string
	kind    NodeKind
	parents []Node
}

func newBaseNode(id string, kind NodeKind, parents ...Node) baseNode {
	return baseNode{id: id, kind: kind, parents: parents}
}

func (n *baseNode) ID() string      { return n.id }
func (n *baseNode) Kind() NodeKind  { return n.kind }
func (n *baseNode) Parents() []Node { return n.parents }

// producer is the part of a node that creates tuples: it owns the propagation queue and knows
// the store size of its output tuples. Store slots are handed out at build time.
type producer struct {
	q               *propagationQueue
	outputStoreSize int
	downstream      []TupleLifecycle
}

func newProducer(owner string) producer {
	return producer{q: newPropagationQueue(owner)}
}

func (p *producer) allocateSlot() int {
	p.outputStoreSize++
	return p.outputStoreSize - 1
}

func (p *producer) addDownstream(l TupleLifecycle) { p.downstream = append(p.downstream, l) }

// seal wires the queue to the downstream lifecycles once the network is built.
func (p *producer) seal() { p.q.next = newLifecycle(p.downstream) }

func (p *producer) newTuple(facts ...any) *Tuple { return NewTuple(p.outputStoreSize, facts...) }

func (p *producer) queue() *propagationQueue { return p.q }

// slotOwner is implemented by nodes whose input tuples reserve store slots.
type slotOwner interface {
	allocateSlot() int
	addDownstream(l TupleLifecycle)
}
