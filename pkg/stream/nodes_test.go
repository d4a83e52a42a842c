package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/l7mp/scorenet/internal/testutils"
	"github.com/l7mp/scorenet/pkg/score"
)

// propagated returns the number of events of the given operation delivered by nodes of a kind.
func propagated[S score.Score[S]](s *Session[S], kind NodeKind, op string) int {
	return int(testutil.ToFloat64(s.Network().metrics.propagations.WithLabelValues(kind.String(), op)))
}

var _ = Describe("MapNode", func() {
	var (
		s                 *Session[simple]
		alice, bob, carol *testutils.Person
	)

	BeforeEach(func() {
		alice, bob, carol = testutils.NewPeople()
	})

	It("should map every tuple and skip updates that do not change the mapped facts", func() {
		s = newTestSession(func(b *Builder[simple]) error {
			ForEach[*testutils.Person](b).Map(Key(personCity)).Penalize("city", score.OfSimple(1), nil)
			return nil
		}, WithRegisterer(prometheus.NewRegistry()))

		Expect(s.Insert(alice)).To(Succeed())
		Expect(s.Insert(bob)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-2)))
		Expect(matches(s, "city")).To(Equal([][]any{{"budapest"}, {"budapest"}}))

		alice.Age = 40
		Expect(s.Update(alice)).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(propagated(s, KindForEach, "update")).To(Equal(1))
		Expect(propagated(s, KindMap, "update")).To(Equal(0))

		alice.City = "vienna"
		Expect(s.Update(alice)).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(propagated(s, KindMap, "update")).To(Equal(1))
		Expect(matches(s, "city")).To(Equal([][]any{{"budapest"}, {"vienna"}}))

		Expect(s.Retract(alice)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-1)))
	})

	It("should compare mapped values holding non-comparable dynamic values", func() {
		s = newTestSession(func(b *Builder[simple]) error {
			ForEach[*testutils.Person](b).
				Map(Key(Fn1(func(p *testutils.Person) testutils.Box { return testutils.Box{Value: []string{p.City}} }))).
				Penalize("boxed", score.OfSimple(1), nil)
			return nil
		}, WithRegisterer(prometheus.NewRegistry()))

		Expect(s.Insert(alice)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-1)))

		alice.Age = 40
		Expect(s.Update(alice)).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(propagated(s, KindMap, "update")).To(Equal(0))

		alice.City = "vienna"
		Expect(s.Update(alice)).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(propagated(s, KindMap, "update")).To(Equal(1))
		Expect(matches(s, "boxed")).To(Equal([][]any{{testutils.Box{Value: []string{"vienna"}}}}))
	})

	It("should map to several facts", func() {
		s = newTestSession(func(b *Builder[simple]) error {
			ForEach[*testutils.Person](b).
				Map(Key(personName), Key(personAge)).
				Filter(Fn2(func(_ string, age int) bool { return age > 20 })).
				Penalize("old", score.OfSimple(1), Fn2(func(_ string, age int) int64 { return int64(age) }))
			return nil
		})

		for _, p := range []*testutils.Person{alice, bob, carol} {
			Expect(s.Insert(p)).To(Succeed())
		}
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-(31 + 45))))
		Expect(matches(s, "old")).To(Equal([][]any{{"alice", 31}, {"carol", 45}}))
	})
})

var _ = Describe("FilterNode", func() {
	var (
		s                 *Session[simple]
		alice, bob, carol *testutils.Person
	)

	BeforeEach(func() {
		alice, bob, carol = testutils.NewPeople()
		s = newTestSession(func(b *Builder[simple]) error {
			ForEach[*testutils.Person](b).Filter(isAdult).Penalize("adult", score.OfSimple(1), nil)
			return nil
		})
		for _, p := range []*testutils.Person{alice, bob, carol} {
			Expect(s.Insert(p)).To(Succeed())
		}
		Expect(s.Flush()).To(Succeed())
	})

	It("should pass the matching tuples only", func() {
		Expect(s.Score()).To(Equal(score.OfSimple(-2)))
		Expect(matches(s, "adult")).To(Equal([][]any{{alice}, {carol}}))
	})

	It("should follow the predicate on updates", func() {
		// false -> true
		bob.Age = 20
		Expect(s.Update(bob)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-3)))

		// true -> false
		alice.Age = 10
		Expect(s.Update(alice)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-2)))
		Expect(matches(s, "adult")).To(Equal([][]any{{bob}, {carol}}))

		// false -> false
		alice.Age = 11
		Expect(s.Update(alice)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-2)))
	})

	It("should retract only passing tuples", func() {
		Expect(s.Retract(bob)).To(Succeed())
		Expect(s.Retract(carol)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-1)))
		Expect(matches(s, "adult")).To(Equal([][]any{{alice}}))
	})

	It("should chain filters on the same tuples", func() {
		s = newTestSession(func(b *Builder[simple]) error {
			ForEach[*testutils.Person](b).
				Filter(isAdult).
				Filter(Fn1(func(p *testutils.Person) bool { return p.City == "budapest" })).
				Penalize("adult in budapest", score.OfSimple(1), nil)
			return nil
		})
		for _, p := range []*testutils.Person{alice, bob, carol} {
			Expect(s.Insert(p)).To(Succeed())
		}
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-1)))

		carol.City = "budapest"
		Expect(s.Update(carol)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-2)))
		Expect(matches(s, "adult in budapest")).To(Equal([][]any{{alice}, {carol}}))
	})
})

var _ = Describe("FlattenLastNode", func() {
	It("should emit one tuple per item and re-expand on update", func() {
		s := newTestSession(func(b *Builder[simple]) error {
			ForEach[*testutils.Tag](b).
				FlattenLast(Items(func(t *testutils.Tag) []string { return t.Labels })).
				Penalize("label", score.OfSimple(1), nil)
			return nil
		})

		tag := &testutils.Tag{Name: "t", Labels: []string{"x", "y"}}
		Expect(s.Insert(tag)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-2)))
		Expect(matches(s, "label")).To(Equal([][]any{{"x"}, {"y"}}))

		tag.Labels = []string{"z"}
		Expect(s.Update(tag)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-1)))
		Expect(matches(s, "label")).To(Equal([][]any{{"z"}}))

		Expect(s.Retract(tag)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(0)))
	})

	It("should keep the leading facts", func() {
		s := newTestSession(func(b *Builder[simple]) error {
			ForEach[*testutils.Tag](b).
				Map(Key(Fn1(func(t *testutils.Tag) string { return t.Name })), Key(Fn1(func(t *testutils.Tag) []string { return t.Labels }))).
				FlattenLast(Items(func(l []string) []string { return l })).
				Penalize("label", score.OfSimple(1), nil)
			return nil
		})
		Expect(s.Insert(&testutils.Tag{Name: "t", Labels: []string{"x", "y"}})).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(matches(s, "label")).To(Equal([][]any{{"t", "x"}, {"t", "y"}}))
	})
})
