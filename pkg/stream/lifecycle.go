package stream

// TupleLifecycle is the contract every node implements towards its upstream producer. The
// producer calls Insert once per tuple, Update any number of times and finally Retract.
type TupleLifecycle interface {
	Insert(t *Tuple)
	Update(t *Tuple)
	Retract(t *Tuple)
}

// lifecycles fans a tuple event out to several downstream nodes.
type lifecycles []TupleLifecycle

func (ls lifecycles) Insert(t *Tuple) {
	for _, l := range ls {
		l.Insert(t)
	}
}

func (ls lifecycles) Update(t *Tuple) {
	for _, l := range ls {
		l.Update(t)
	}
}

func (ls lifecycles) Retract(t *Tuple) {
	for _, l := range ls {
		l.Retract(t)
	}
}

// newLifecycle returns the single lifecycle or a fan-out of all of them.
func newLifecycle(ls []TupleLifecycle) TupleLifecycle {
	switch len(ls) {
	case 0:
		return lifecycles(nil)
	case 1:
		return ls[0]
	default:
		return lifecycles(ls)
	}
}

// leftLifecycle and rightLifecycle adapt a two-input node to the TupleLifecycle of one of its
// inputs.
type leftLifecycle struct{ node biInputNode }

func (l leftLifecycle) Insert(t *Tuple)  { l.node.insertLeft(t) }
func (l leftLifecycle) Update(t *Tuple)  { l.node.updateLeft(t) }
func (l leftLifecycle) Retract(t *Tuple) { l.node.retractLeft(t) }

type rightLifecycle struct{ node biInputNode }

func (l rightLifecycle) Insert(t *Tuple)  { l.node.insertRight(t) }
func (l rightLifecycle) Update(t *Tuple)  { l.node.updateRight(t) }
func (l rightLifecycle) Retract(t *Tuple) { l.node.retractRight(t) }

type biInputNode interface {
	insertLeft(t *Tuple)
	updateLeft(t *Tuple)
	retractLeft(t *Tuple)
	insertRight(t *Tuple)
	updateRight(t *Tuple)
	retractRight(t *Tuple)
}
