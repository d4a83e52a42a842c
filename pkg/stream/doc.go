// Package stream implements an incremental constraint-evaluation network. Facts of the working
// solution enter the network at root (ForEach) nodes and flow as tuples through a DAG of nodes
// (map, filter, flatten, join, exists, group) into terminal scoring nodes that maintain the
// score of the solution.
//
// The network is incremental: after a fact is inserted, updated or retracted only the tuples
// derived from that fact are touched. Every tuple carries a fixed-size store whose slots are
// assigned to the downstream nodes at build time; a node caches the state it derived from a
// tuple (the output tuple of a map, the index handle of a join, the folded values of a group)
// in its slot so that update and retract are O(1)-amortized undo operations instead of
// recomputations.
//
// Mutations are batched. Session.Insert/Update/Retract only enqueue the change at the roots; a
// single Flush drains the per-node propagation queues in topological order, so several events on
// the same tuple within one batch coalesce into their net effect. A tuple inserted and retracted
// within the same batch never reaches downstream nodes.
//
// Key components:
//   - Tuple: fixed-arity fact record with lifecycle state and store slots.
//   - TupleLifecycle: the insert/update/retract contract between nodes.
//   - Node implementations: ForEach, Map, Filter, FlattenLast, Join, IfExists/IfNotExists,
//     Group and Scoring.
//   - Index: equality/range keyed multi-map used by join and exists nodes.
//   - Network: topologically ordered node list and the flush scheduler.
//   - SessionFactory/Session: builds independent networks and exposes the score.
//
// Example usage:
//
//	factory, err := stream.NewSessionFactory(func(b *stream.Builder[score.SimpleScore]) error {
//		queens := stream.ForEach[*Queen](b)
//		queens.Join(queens, stream.EqualBy(stream.Fn1(row), stream.Fn1(row)), stream.Filtering(lessID)).
//			Penalize("Row conflict", score.OfSimple(1), nil)
//		return nil
//	}, stream.Config{})
//	session, err := factory.NewSession()
//	session.Insert(queen)
//	s, err := session.CalculateScore()
//
// A network is not safe for concurrent use. Independent problems need independent sessions.
package stream
