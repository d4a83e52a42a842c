package stream

import (
	"slices"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/l7mp/scorenet/internal/testutils"
	"github.com/l7mp/scorenet/pkg/score"
)

func groupNodes[S score.Score[S]](s *Session[S]) []*GroupNode {
	ret := []*GroupNode{}
	for _, n := range s.Network().Nodes() {
		if g, ok := n.(*GroupNode); ok {
			ret = append(ret, g)
		}
	}
	return ret
}

var _ = Describe("GroupNode", func() {
	var alice, bob, carol *testutils.Person

	BeforeEach(func() {
		alice, bob, carol = testutils.NewPeople()
	})

	groupBy := func(keys []KeyFunc, collectors ...Collector) ConstraintProvider[simple] {
		return func(b *Builder[simple]) error {
			ForEach[*testutils.Person](b).GroupBy(keys, collectors...).Penalize("group", score.OfSimple(1), nil)
			return nil
		}
	}

	It("should count the members of a group and drop empty groups", func() {
		s := newTestSession(groupBy([]KeyFunc{Key(personCity)}, Count()))
		people := []*testutils.Person{
			{Name: "p1", City: "x"}, {Name: "p2", City: "x"}, {Name: "p3", City: "x"},
		}
		for _, p := range people {
			Expect(s.Insert(p)).To(Succeed())
		}
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "group")).To(Equal([][]any{{"x", 3}}))

		Expect(s.Retract(people[0])).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "group")).To(Equal([][]any{{"x", 2}}))

		Expect(s.Retract(people[1])).To(Succeed())
		Expect(s.Retract(people[2])).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "group")).To(BeEmpty())
		Expect(groupNodes(s)[0].Size()).To(Equal(0))
	})

	It("should keep one output per non-empty group", func() {
		s := newTestSession(groupBy([]KeyFunc{Key(personCity)}, Count()))
		for _, p := range []*testutils.Person{alice, bob, carol} {
			Expect(s.Insert(p)).To(Succeed())
		}
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-2)))
		Expect(matches(s, "group")).To(Equal([][]any{{"budapest", 2}, {"vienna", 1}}))
		Expect(groupNodes(s)[0].Size()).To(Equal(2))

		// key change: bob moves to vienna
		bob.City = "vienna"
		Expect(s.Update(bob)).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "group")).To(Equal([][]any{{"budapest", 1}, {"vienna", 2}}))

		// the last member leaves budapest
		alice.City = "vienna"
		Expect(s.Update(alice)).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "group")).To(Equal([][]any{{"vienna", 3}}))
		Expect(groupNodes(s)[0].Size()).To(Equal(1))
	})

	It("should not propagate updates that leave the results unchanged", func() {
		s := newTestSession(groupBy([]KeyFunc{Key(personCity)}, Count()))
		Expect(s.Insert(alice)).To(Succeed())
		Expect(s.Flush()).To(Succeed())

		alice.Age = 70
		Expect(s.Update(alice)).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(propagated(s, KindGroup, "update")).To(Equal(0))
	})

	It("should fold and unfold the numeric collectors", func() {
		s := newTestSession(groupBy([]KeyFunc{Key(personCity)},
			Sum(personAge), Min(personAge), Max(personAge), Average(personAge)))
		other := &testutils.Person{Name: "dave", City: "budapest", Age: 17}
		for _, p := range []*testutils.Person{alice, bob, other} {
			Expect(s.Insert(p)).To(Succeed())
		}
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "group")).To(Equal([][]any{{"budapest", 65, 17, 31, 65.0 / 3}}))

		// one of the two minimums leaves
		Expect(s.Retract(bob)).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "group")).To(Equal([][]any{{"budapest", 48, 17, 31, 24.0}}))

		other.Age = 40
		Expect(s.Update(other)).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "group")).To(Equal([][]any{{"budapest", 71, 31, 40, 35.5}}))
	})

	It("should count distinct values", func() {
		s := newTestSession(groupBy(nil, CountDistinct(Key(personCity))))
		for _, p := range []*testutils.Person{alice, bob, carol} {
			Expect(s.Insert(p)).To(Succeed())
		}
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "group")).To(Equal([][]any{{2}}))

		Expect(s.Retract(alice)).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "group")).To(Equal([][]any{{2}}))

		Expect(s.Retract(carol)).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "group")).To(Equal([][]any{{1}}))
	})

	It("should run custom collectors", func() {
		names := Custom("names",
			func() map[string]int { return map[string]int{} },
			personName,
			func(acc map[string]int, name string) map[string]int { acc[name]++; return acc },
			func(acc map[string]int, name string) map[string]int {
				if acc[name]--; acc[name] == 0 {
					delete(acc, name)
				}
				return acc
			},
			func(acc map[string]int) string {
				ret := make([]string, 0, len(acc))
				for n := range acc {
					ret = append(ret, n)
				}
				slices.Sort(ret)
				return strings.Join(ret, ",")
			})
		s := newTestSession(groupBy([]KeyFunc{Key(personCity)}, names))
		for _, p := range []*testutils.Person{alice, bob, carol} {
			Expect(s.Insert(p)).To(Succeed())
		}
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "group")).To(Equal([][]any{{"budapest", "alice,bob"}, {"vienna", "carol"}}))

		Expect(s.Retract(alice)).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "group")).To(Equal([][]any{{"budapest", "bob"}, {"vienna", "carol"}}))
	})

	It("should group by several keys", func() {
		s := newTestSession(groupBy([]KeyFunc{Key(personCity), Key(isAdult)}, Count()))
		for _, p := range []*testutils.Person{alice, bob, carol} {
			Expect(s.Insert(p)).To(Succeed())
		}
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "group")).To(Equal([][]any{
			{"budapest", false, 1}, {"budapest", true, 1}, {"vienna", true, 1},
		}))

		bob.Age = 18
		Expect(s.Update(bob)).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "group")).To(Equal([][]any{{"budapest", true, 2}, {"vienna", true, 1}}))
	})

	It("should group by keys only", func() {
		s := newTestSession(groupBy([]KeyFunc{Key(personCity)}))
		for _, p := range []*testutils.Person{alice, bob, carol} {
			Expect(s.Insert(p)).To(Succeed())
		}
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-2)))
		Expect(matches(s, "group")).To(Equal([][]any{{"budapest"}, {"vienna"}}))
	})

	It("should group everything without keys", func() {
		s := newTestSession(groupBy(nil, Count()))
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(0)))
		Expect(s.Insert(alice)).To(Succeed())
		Expect(s.Insert(bob)).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "group")).To(Equal([][]any{{2}}))
	})

	It("should weigh matches by collector results", func() {
		s := newTestSession(func(b *Builder[simple]) error {
			ForEach[*testutils.Person](b).
				GroupBy([]KeyFunc{Key(personCity)}, Count()).
				Filter(Fn2(func(_ string, n int) bool { return n > 1 })).
				Penalize("crowded", score.OfSimple(10), Fn2(func(_ string, n int) int64 { return int64(n - 1) }))
			return nil
		})
		for _, p := range []*testutils.Person{alice, bob, carol} {
			Expect(s.Insert(p)).To(Succeed())
		}
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-10)))

		carol.City = "budapest"
		Expect(s.Update(carol)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-20)))
	})
})
