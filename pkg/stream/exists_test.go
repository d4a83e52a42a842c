package stream

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/l7mp/scorenet/internal/testutils"
	"github.com/l7mp/scorenet/pkg/score"
)

var _ = Describe("ExistsNode", func() {
	var (
		alice, bob, carol *testutils.Person
		budapest, vienna  *testutils.City
	)

	BeforeEach(func() {
		alice, bob, carol = testutils.NewPeople()
		budapest, vienna = testutils.NewCities()
	})

	existence := func(shouldExist bool, joiners ...Joiner) ConstraintProvider[simple] {
		return func(b *Builder[simple]) error {
			persons, cities := ForEach[*testutils.Person](b), ForEach[*testutils.City](b)
			if shouldExist {
				persons.IfExists(cities, joiners...).Penalize("exists", score.OfSimple(1), nil)
			} else {
				persons.IfNotExists(cities, joiners...).Penalize("exists", score.OfSimple(1), nil)
			}
			return nil
		}
	}

	It("should pass left tuples with at least one match", func() {
		s := newTestSession(existence(true, EqualBy(personCity, cityName)))
		for _, f := range []any{alice, bob, carol, budapest} {
			Expect(s.Insert(f)).To(Succeed())
		}
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-2)))
		Expect(matches(s, "exists")).To(Equal([][]any{{alice}, {bob}}))

		Expect(s.Insert(vienna)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-3)))

		Expect(s.Retract(budapest)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-1)))
		Expect(matches(s, "exists")).To(Equal([][]any{{carol}}))
	})

	It("should pass left tuples without a match", func() {
		s := newTestSession(existence(false, EqualBy(personCity, cityName)))
		for _, f := range []any{alice, bob, carol, budapest} {
			Expect(s.Insert(f)).To(Succeed())
		}
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-1)))
		Expect(matches(s, "exists")).To(Equal([][]any{{carol}}))

		Expect(s.Retract(budapest)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-3)))
	})

	It("should count matches", func() {
		s := newTestSession(existence(true, EqualBy(personCity, cityName)))
		other := &testutils.City{Name: "budapest", Capacity: 10}
		for _, f := range []any{alice, budapest, other} {
			Expect(s.Insert(f)).To(Succeed())
		}
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-1)))

		Expect(s.Retract(budapest)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-1)))

		Expect(s.Retract(other)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(0)))
	})

	It("should follow key changes on both sides", func() {
		s := newTestSession(existence(true, EqualBy(personCity, cityName)))
		for _, f := range []any{alice, budapest} {
			Expect(s.Insert(f)).To(Succeed())
		}
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-1)))

		alice.City = "vienna"
		Expect(s.Update(alice)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(0)))

		budapest.Name = "vienna"
		Expect(s.Update(budapest)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-1)))
		Expect(matches(s, "exists")).To(Equal([][]any{{alice}}))
	})

	It("should forward left updates while present", func() {
		s := newTestSession(existence(true, EqualBy(personCity, cityName)))
		for _, f := range []any{alice, budapest} {
			Expect(s.Insert(f)).To(Succeed())
		}
		Expect(s.Flush()).To(Succeed())

		alice.Age = 50
		Expect(s.Update(alice)).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(propagated(s, KindExists, "update")).To(Equal(1))

		// right updates do not change the output
		budapest.Capacity = 5
		Expect(s.Update(budapest)).To(Succeed())
		Expect(s.Flush()).To(Succeed())
		Expect(propagated(s, KindExists, "update")).To(Equal(1))
	})

	It("should re-evaluate filtering joiners", func() {
		roomy := Filtering(Fn2(func(_ *testutils.Person, c *testutils.City) bool { return c.Capacity > 1 }))
		s := newTestSession(existence(true, EqualBy(personCity, cityName), roomy))
		for _, f := range []any{alice, carol, budapest, vienna} {
			Expect(s.Insert(f)).To(Succeed())
		}
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-1)))
		Expect(matches(s, "exists")).To(Equal([][]any{{alice}}))

		vienna.Capacity = 3
		Expect(s.Update(vienna)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-2)))

		budapest.Capacity = 1
		Expect(s.Update(budapest)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-1)))
		Expect(matches(s, "exists")).To(Equal([][]any{{carol}}))
	})

	It("should check existence without joiners", func() {
		s := newTestSession(existence(false))
		Expect(s.Insert(alice)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(-1)))
		Expect(s.Insert(vienna)).To(Succeed())
		Expect(s.CalculateScore()).To(Equal(score.OfSimple(0)))
	})
})
