// Package score defines the score values accumulated by the constraint network. A score is an
// additive, comparable value whose Go zero value is the zero score.
package score

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrParse is returned when a score cannot be parsed from its text form.
var ErrParse = errors.New("cannot parse score")

// Score is the contract every score type implements. Methods never mutate the receiver.
type Score[S any] interface {
	// Add returns the sum of the receiver and other.
	Add(other S) S
	// Subtract returns the receiver minus other.
	Subtract(other S) S
	// Multiply scales the score by an integer match weight.
	Multiply(n int64) S
	// Negate returns the additive inverse.
	Negate() S
	// IsZero reports whether the score equals the zero value.
	IsZero() bool
	// Compare returns -1, 0 or 1. Higher scores are better.
	Compare(other S) int
	// IsFeasible reports whether no hard constraint is broken.
	IsFeasible() bool
	// Parse parses the text form produced by String. The receiver is ignored.
	Parse(text string) (S, error)
	fmt.Stringer
}

// SimpleScore is a single-level score.
type SimpleScore struct {
	Score int64
}

var _ Score[SimpleScore] = SimpleScore{}

// OfSimple returns a SimpleScore.
func OfSimple(n int64) SimpleScore { return SimpleScore{Score: n} }

func (s SimpleScore) Add(o SimpleScore) SimpleScore      { return SimpleScore{s.Score + o.Score} }
func (s SimpleScore) Subtract(o SimpleScore) SimpleScore { return SimpleScore{s.Score - o.Score} }
func (s SimpleScore) Multiply(n int64) SimpleScore       { return SimpleScore{s.Score * n} }
func (s SimpleScore) Negate() SimpleScore                { return SimpleScore{-s.Score} }
func (s SimpleScore) IsZero() bool                       { return s.Score == 0 }
func (s SimpleScore) IsFeasible() bool                   { return true }
func (s SimpleScore) Compare(o SimpleScore) int          { return compareInt(s.Score, o.Score) }
func (s SimpleScore) String() string                     { return strconv.FormatInt(s.Score, 10) }

// Parse parses a plain integer, e.g. "-3".
func (SimpleScore) Parse(text string) (SimpleScore, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return SimpleScore{}, fmt.Errorf("%w %q: %w", ErrParse, text, err)
	}
	return SimpleScore{Score: n}, nil
}

// HardSoftScore is a two-level score: hard constraints dominate soft ones.
type HardSoftScore struct {
	Hard int64
	Soft int64
}

var _ Score[HardSoftScore] = HardSoftScore{}

// OfHardSoft returns a HardSoftScore.
func OfHardSoft(hard, soft int64) HardSoftScore { return HardSoftScore{Hard: hard, Soft: soft} }

// OfHard returns a HardSoftScore with only a hard part.
func OfHard(hard int64) HardSoftScore { return HardSoftScore{Hard: hard} }

// OfSoft returns a HardSoftScore with only a soft part.
func OfSoft(soft int64) HardSoftScore { return HardSoftScore{Soft: soft} }

func (s HardSoftScore) Add(o HardSoftScore) HardSoftScore {
	return HardSoftScore{s.Hard + o.Hard, s.Soft + o.Soft}
}

func (s HardSoftScore) Subtract(o HardSoftScore) HardSoftScore {
	return HardSoftScore{s.Hard - o.Hard, s.Soft - o.Soft}
}

func (s HardSoftScore) Multiply(n int64) HardSoftScore { return HardSoftScore{s.Hard * n, s.Soft * n} }
func (s HardSoftScore) Negate() HardSoftScore          { return HardSoftScore{-s.Hard, -s.Soft} }
func (s HardSoftScore) IsZero() bool                   { return s.Hard == 0 && s.Soft == 0 }
func (s HardSoftScore) IsFeasible() bool               { return s.Hard >= 0 }

func (s HardSoftScore) Compare(o HardSoftScore) int {
	if c := compareInt(s.Hard, o.Hard); c != 0 {
		return c
	}
	return compareInt(s.Soft, o.Soft)
}

// String returns the "<hard>hard/<soft>soft" form.
func (s HardSoftScore) String() string { return fmt.Sprintf("%dhard/%dsoft", s.Hard, s.Soft) }

// Parse parses the "<hard>hard/<soft>soft" form.
func (HardSoftScore) Parse(text string) (HardSoftScore, error) {
	hardText, softText, ok := strings.Cut(strings.TrimSpace(text), "/")
	if !ok || !strings.HasSuffix(hardText, "hard") || !strings.HasSuffix(softText, "soft") {
		return HardSoftScore{}, fmt.Errorf("%w %q: expected <hard>hard/<soft>soft", ErrParse, text)
	}
	hard, err := strconv.ParseInt(strings.TrimSuffix(hardText, "hard"), 10, 64)
	if err != nil {
		return HardSoftScore{}, fmt.Errorf("%w %q: %w", ErrParse, text, err)
	}
	soft, err := strconv.ParseInt(strings.TrimSuffix(softText, "soft"), 10, 64)
	if err != nil {
		return HardSoftScore{}, fmt.Errorf("%w %q: %w", ErrParse, text, err)
	}
	return HardSoftScore{Hard: hard, Soft: soft}, nil
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
