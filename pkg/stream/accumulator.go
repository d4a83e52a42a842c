package stream

import (
	"cmp"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/l7mp/scorenet/pkg/score"
	"github.com/l7mp/scorenet/pkg/util"
)

// ScoreAccumulator is the running score of one network. It is mutated only by the scoring
// nodes and reset at the start of a full recalculation.
type ScoreAccumulator[S score.Score[S]] struct {
	score   S
	matches int
}

// Score returns the current score.
func (a *ScoreAccumulator[S]) Score() S { return a.score }

// MatchCount returns the number of live constraint matches.
func (a *ScoreAccumulator[S]) MatchCount() int { return a.matches }

func (a *ScoreAccumulator[S]) add(impact S) {
	a.score = a.score.Add(impact)
	a.matches++
}

func (a *ScoreAccumulator[S]) subtract(impact S) {
	a.score = a.score.Subtract(impact)
	a.matches--
}

func (a *ScoreAccumulator[S]) reset() {
	var zero S
	a.score, a.matches = zero, 0
}

// ConstraintMatch is a justification: the facts responsible for one score impact.
type ConstraintMatch[S score.Score[S]] struct {
	Constraint string
	Facts      []any
	Impact     S
	// Fingerprint identifies the match by constraint and fact content.
	Fingerprint uint64
}

func newConstraintMatch[S score.Score[S]](constraint string, facts []any, impact S) ConstraintMatch[S] {
	facts = slices.Clone(facts)
	return ConstraintMatch[S]{
		Constraint:  constraint,
		Facts:       facts,
		Impact:      impact,
		Fingerprint: xxhash.Sum64String(constraint + "/" + util.Stringify(facts)),
	}
}

// ConstraintMatchTotal summarizes the live matches of one constraint.
type ConstraintMatchTotal[S score.Score[S]] struct {
	Constraint string
	Weight     S
	Count      int
	Score      S
}

// sortMatches orders matches by constraint, then fingerprint.
func sortMatches[S score.Score[S]](ms []ConstraintMatch[S]) {
	slices.SortFunc(ms, func(a, b ConstraintMatch[S]) int {
		if c := cmp.Compare(a.Constraint, b.Constraint); c != 0 {
			return c
		}
		return cmp.Compare(a.Fingerprint, b.Fingerprint)
	})
}
