package stream

import (
	"container/list"

	"github.com/l7mp/scorenet/pkg/score"
)

// scoringEntry is the store entry of a matched tuple: the impact it contributed and, when
// justifications are tracked, its position in the node's live match list.
type scoringEntry[S score.Score[S]] struct {
	impact S
	tuple  *Tuple
	elem   *list.Element
}

// ScoringNode is the terminal node of a constraint. Every tuple reaching it is a match whose
// impact (constraint weight times match weight) is added to the shared accumulator.
type ScoringNode[S score.Score[S]] struct {
	baseNode
	constraint string
	weight     S
	weigher    func(facts []any) int64
	slot       int
	acc        *ScoreAccumulator[S]
	// live holds the scoringEntry of every match, nil unless justifications are tracked
	live  *list.List
	count int
	total S
}

func newScoringNode[S score.Score[S]](id, constraint string, parent Node, slot int, weight S,
	weigher func(facts []any) int64, acc *ScoreAccumulator[S], justify bool) *ScoringNode[S] {
	n := &ScoringNode[S]{
		baseNode:   newBaseNode(id, KindScoring, parent),
		constraint: constraint,
		weight:     weight,
		weigher:    weigher,
		slot:       slot,
		acc:        acc,
	}
	if justify {
		n.live = list.New()
	}
	return n
}

func (n *ScoringNode[S]) queue() *propagationQueue { return nil }

// Constraint returns the constraint name.
func (n *ScoringNode[S]) Constraint() string { return n.constraint }

func (n *ScoringNode[S]) impact(facts []any) S {
	if n.weigher == nil {
		return n.weight
	}
	return n.weight.Multiply(n.weigher(facts))
}

func (n *ScoringNode[S]) Insert(t *Tuple) {
	if t.store[n.slot] != nil {
		impossibleState(n.id, "insert of an already scored tuple %v", t)
	}
	e := &scoringEntry[S]{impact: n.impact(t.facts), tuple: t}
	n.acc.add(e.impact)
	n.count++
	n.total = n.total.Add(e.impact)
	if n.live != nil {
		e.elem = n.live.PushBack(e)
	}
	t.store[n.slot] = e
}

func (n *ScoringNode[S]) Update(t *Tuple) {
	e, ok := t.store[n.slot].(*scoringEntry[S])
	if !ok {
		impossibleState(n.id, "update of an unknown tuple %v", t)
	}
	impact := n.impact(t.facts)
	n.acc.score = n.acc.score.Subtract(e.impact).Add(impact)
	n.total = n.total.Subtract(e.impact).Add(impact)
	e.impact = impact
}

func (n *ScoringNode[S]) Retract(t *Tuple) {
	e, ok := t.store[n.slot].(*scoringEntry[S])
	if !ok {
		impossibleState(n.id, "retract of an unknown tuple %v", t)
	}
	n.acc.subtract(e.impact)
	n.count--
	n.total = n.total.Subtract(e.impact)
	if e.elem != nil {
		n.live.Remove(e.elem)
	}
	t.store[n.slot] = nil
}

// Total returns the match count and summed impact of the constraint.
func (n *ScoringNode[S]) Total() ConstraintMatchTotal[S] {
	return ConstraintMatchTotal[S]{Constraint: n.constraint, Weight: n.weight, Count: n.count, Score: n.total}
}

// Justifications returns the live matches, nil unless justifications are tracked.
func (n *ScoringNode[S]) Justifications() []ConstraintMatch[S] {
	if n.live == nil {
		return nil
	}
	ret := make([]ConstraintMatch[S], 0, n.live.Len())
	for el := n.live.Front(); el != nil; el = el.Next() {
		e := el.Value.(*scoringEntry[S])
		ret = append(ret, newConstraintMatch(n.constraint, e.tuple.facts, e.impact))
	}
	return ret
}

// reset forgets the running totals; used when the accumulator is reset for a recalculation.
func (n *ScoringNode[S]) reset() {
	var zero S
	n.count, n.total = 0, zero
	if n.live != nil {
		n.live.Init()
	}
}
