package stream

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/l7mp/scorenet/internal/dag"
)

// Network is a built node graph: the nodes in topological order, the root nodes facts enter at
// and the flush scheduler. A network is not safe for concurrent use.
type Network struct {
	nodes   []Node
	roots   []*ForEachNode
	metrics *networkMetrics
	stats   QueueStats
	// err is set by the first failed flush; the network refuses to work afterwards
	err error
	log logr.Logger
}

// newNetwork checks that the nodes form a DAG listed in topological order whose roots are all
// ForEach nodes.
func newNetwork(nodes []Node, reg prometheus.Registerer, log logr.Logger) (*Network, error) {
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	g := dag.New()
	byID := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		if !g.AddNode(n.ID()) {
			return nil, newConfigError(n.ID(), "duplicate node id")
		}
		byID[n.ID()] = n
	}
	roots := []*ForEachNode{}
	for _, n := range nodes {
		for _, p := range n.Parents() {
			if err := g.AddEdge(p.ID(), n.ID()); err != nil {
				return nil, newConfigError(n.ID(), "parent is not part of the network: %s", err)
			}
		}
		if root, ok := n.(*ForEachNode); ok {
			roots = append(roots, root)
		}
	}
	if err := g.CheckOrder(); err != nil {
		return nil, newConfigError("", "nodes are not in topological order: %s", err)
	}
	for _, id := range g.Roots() {
		if byID[id].Kind() != KindForEach {
			return nil, newConfigError(id, "node has no parent but is not a ForEach node")
		}
	}

	net := &Network{
		nodes:   nodes,
		roots:   roots,
		metrics: newNetworkMetrics(reg),
		log:     log,
	}
	net.log.V(2).Info("network built", "nodes", len(nodes), "roots", len(roots), "leaves", len(g.Leaves()))
	return net, nil
}

// Nodes returns the nodes in flush order.
func (n *Network) Nodes() []Node { return n.nodes }

// Stats returns the cumulative propagation counts of all flushes.
func (n *Network) Stats() QueueStats { return n.stats }

// Err returns the error that corrupted the network, if any.
func (n *Network) Err() error { return n.err }

// Insert enqueues a new fact at every root accepting it. Facts no root accepts are ignored.
func (n *Network) Insert(fact any) error { return n.dispatch("insert", fact, (*ForEachNode).insertFact) }

// Update enqueues a change of a previously inserted fact.
func (n *Network) Update(fact any) error { return n.dispatch("update", fact, (*ForEachNode).updateFact) }

// Retract enqueues the removal of a previously inserted fact.
func (n *Network) Retract(fact any) error {
	return n.dispatch("retract", fact, (*ForEachNode).retractFact)
}

func (n *Network) dispatch(op string, fact any, f func(*ForEachNode, any) error) error {
	if n.err != nil {
		return n.err
	}
	if !isComparable(fact) {
		return fmt.Errorf("%s of %T: %w", op, fact, ErrNotComparable)
	}
	for _, root := range n.roots {
		if !root.Accepts(fact) {
			continue
		}
		if err := f(root, fact); err != nil {
			return fmt.Errorf("%s of %v: %w", op, fact, err)
		}
	}
	return nil
}

// facts returns every live fact once.
func (n *Network) facts() []any {
	seen := map[any]bool{}
	ret := []any{}
	for _, root := range n.roots {
		for _, f := range root.facts() {
			if !seen[f] {
				seen[f] = true
				ret = append(ret, f)
			}
		}
	}
	return ret
}

// Flush propagates every queued event through the network, visiting the nodes in topological
// order. A panic raised by a node or a user function fails the flush and corrupts the network.
func (n *Network) Flush() (err error) {
	if n.err != nil {
		return n.err
	}

	start := time.Now()
	var current Node
	defer func() {
		if r := recover(); r != nil {
			err = recoverError(r)
			if current != nil {
				err = fmt.Errorf("flush failed at node %s: %w", current.ID(), err)
			}
			n.err = fmt.Errorf("%w: %w", ErrCorrupted, err)
			err = n.err
			n.log.Error(err, "flush failed")
		}
	}()

	for _, node := range n.nodes {
		if q := node.queue(); q != nil {
			current = node
			q.propagate()
		}
	}
	current = nil

	var batch QueueStats
	for _, node := range n.nodes {
		if q := node.queue(); q != nil {
			q.unseal()
			s := q.takeStats()
			n.metrics.observeQueue(node.Kind(), s)
			batch.add(s)
		}
	}
	n.stats.add(batch)
	n.metrics.observeFlush(start)

	n.log.V(6).Info("flush", "inserts", batch.Inserts, "updates", batch.Updates,
		"retracts", batch.Retracts, "aborts", batch.Aborts, "duration", time.Since(start))
	return nil
}
