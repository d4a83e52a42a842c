package stream

import "fmt"

// QueueStats counts the events a propagation queue delivered downstream.
type QueueStats struct {
	Inserts  int
	Updates  int
	Retracts int
	Aborts   int
}

// Propagated returns the number of downstream lifecycle calls.
func (s QueueStats) Propagated() int { return s.Inserts + s.Updates + s.Retracts }

func (s *QueueStats) add(o QueueStats) {
	s.Inserts += o.Inserts
	s.Updates += o.Updates
	s.Retracts += o.Retracts
	s.Aborts += o.Aborts
}

// propagationQueue is the dirty queue of a tuple-owning node. Events are recorded against the
// tuple state, so repeated events on the same tuple within a batch coalesce; propagate delivers
// the net effect in retract, update, insert order.
type propagationQueue struct {
	owner    string
	next     TupleLifecycle
	inserts  []*Tuple
	updates  []*Tuple
	retracts []*Tuple
	sealed   bool
	stats    QueueStats
}

func newPropagationQueue(owner string) *propagationQueue {
	return &propagationQueue{owner: owner}
}

func (q *propagationQueue) checkSeal() {
	if q.sealed {
		panic(&InternalError{Node: q.owner, Cause: ErrOrderingViolation,
			msg: "event received after the node was flushed"})
	}
}

func (q *propagationQueue) insert(t *Tuple) {
	q.checkSeal()
	if t.state != StateDead {
		impossibleState(q.owner, "insert of tuple %v in state %s", t, t.state)
	}
	t.state = StateCreating
	q.inserts = append(q.inserts, t)
}

func (q *propagationQueue) update(t *Tuple) {
	q.checkSeal()
	switch t.state {
	case StateCreating, StateUpdating:
		// already queued, the new content will be propagated
	case StateOk:
		t.state = StateUpdating
		q.updates = append(q.updates, t)
	default:
		impossibleState(q.owner, "update of tuple %v in state %s", t, t.state)
	}
}

func (q *propagationQueue) retract(t *Tuple) {
	q.checkSeal()
	switch t.state {
	case StateCreating:
		// still in the insert queue, skipped at propagation
		t.state = StateAborting
	case StateUpdating:
		// still in the update queue, propagated as a retract
		t.state = StateDying
	case StateOk:
		t.state = StateDying
		q.retracts = append(q.retracts, t)
	default:
		impossibleState(q.owner, "retract of tuple %v in state %s", t, t.state)
	}
}

func (q *propagationQueue) isEmpty() bool {
	return len(q.inserts) == 0 && len(q.updates) == 0 && len(q.retracts) == 0
}

// propagate delivers the queued events and seals the queue until unseal is called.
func (q *propagationQueue) propagate() {
	for _, t := range q.retracts {
		q.propagateRetract(t)
	}
	for _, t := range q.updates {
		if t.state == StateDying {
			q.propagateRetract(t)
		}
	}
	for _, t := range q.updates {
		if t.state == StateUpdating {
			q.next.Update(t)
			t.state = StateOk
			q.stats.Updates++
		}
	}
	for _, t := range q.inserts {
		switch t.state {
		case StateAborting:
			t.state = StateDead
			q.stats.Aborts++
		case StateCreating:
			q.next.Insert(t)
			t.state = StateOk
			q.stats.Inserts++
		default:
			// a Dying tuple cannot be in the insert queue: retract of Creating aborts
			impossibleState(q.owner, "queued insert of tuple %v in state %s", t, t.state)
		}
	}
	clear(q.retracts)
	clear(q.updates)
	clear(q.inserts)
	q.retracts, q.updates, q.inserts = q.retracts[:0], q.updates[:0], q.inserts[:0]
	q.sealed = true
}

func (q *propagationQueue) propagateRetract(t *Tuple) {
	if t.state != StateDying {
		impossibleState(q.owner, "queued retract of tuple %v in state %s", t, t.state)
	}
	q.next.Retract(t)
	t.state = StateDead
	q.stats.Retracts++
}

func (q *propagationQueue) unseal() { q.sealed = false }

func (q *propagationQueue) takeStats() QueueStats {
	s := q.stats
	q.stats = QueueStats{}
	return s
}

func (q *propagationQueue) String() string {
	return fmt.Sprintf("queue(%s: +%d ~%d -%d)", q.owner, len(q.inserts), len(q.updates), len(q.retracts))
}
