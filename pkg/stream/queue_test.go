package stream

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PropagationQueue", func() {
	var (
		q   *propagationQueue
		rec *recorder
	)

	BeforeEach(func() {
		rec = &recorder{}
		q = newPropagationQueue("test")
		q.next = rec
	})

	propagate := func() []string {
		q.propagate()
		q.unseal()
		return rec.take()
	}

	It("should propagate an insert and mark the tuple Ok", func() {
		t := NewTuple(0, "a")
		q.insert(t)
		Expect(t.State()).To(Equal(StateCreating))
		Expect(propagate()).To(Equal([]string{"insert [a]"}))
		Expect(t.State()).To(Equal(StateOk))
		Expect(q.isEmpty()).To(BeTrue())
	})

	It("should coalesce an insert and an update into one insert of the final content", func() {
		t := NewTuple(0, "a")
		q.insert(t)
		t.setFact(0, "b")
		q.update(t)
		Expect(propagate()).To(Equal([]string{"insert [b]"}))
	})

	It("should abort a tuple inserted and retracted within the batch", func() {
		t := NewTuple(0, "a")
		q.insert(t)
		q.retract(t)
		Expect(t.State()).To(Equal(StateAborting))
		Expect(propagate()).To(BeEmpty())
		Expect(t.State()).To(Equal(StateDead))
		s := q.takeStats()
		Expect(s.Aborts).To(Equal(1))
		Expect(s.Propagated()).To(Equal(0))
	})

	It("should coalesce repeated updates", func() {
		t := NewTuple(0, "a")
		q.insert(t)
		propagate()
		q.update(t)
		q.update(t)
		Expect(t.State()).To(Equal(StateUpdating))
		Expect(propagate()).To(Equal([]string{"update [a]"}))
		Expect(t.State()).To(Equal(StateOk))
	})

	It("should turn an update followed by a retract into a retract", func() {
		t := NewTuple(0, "a")
		q.insert(t)
		propagate()
		q.update(t)
		q.retract(t)
		Expect(t.State()).To(Equal(StateDying))
		Expect(propagate()).To(Equal([]string{"retract [a]"}))
		Expect(t.State()).To(Equal(StateDead))
	})

	It("should propagate retracts before updates before inserts", func() {
		updated, retracted, inserted := NewTuple(0, "u"), NewTuple(0, "r"), NewTuple(0, "i")
		q.insert(updated)
		q.insert(retracted)
		propagate()

		q.insert(inserted)
		q.update(updated)
		q.retract(retracted)
		Expect(propagate()).To(Equal([]string{"retract [r]", "update [u]", "insert [i]"}))

		s := q.takeStats()
		Expect(s).To(Equal(QueueStats{Inserts: 3, Updates: 1, Retracts: 1}))
	})

	It("should allow a dead tuple to be inserted again", func() {
		t := NewTuple(0, "a")
		q.insert(t)
		q.retract(t)
		propagate()
		q.insert(t)
		Expect(propagate()).To(Equal([]string{"insert [a]"}))
	})

	It("should reject events after the queue was flushed", func() {
		q.propagate()
		Expect(func() { q.insert(NewTuple(0, "a")) }).To(PanicWith(MatchError(ErrOrderingViolation)))
		q.unseal()
		Expect(func() { q.insert(NewTuple(0, "a")) }).NotTo(Panic())
	})

	It("should reject impossible transitions", func() {
		t := NewTuple(0, "a")
		Expect(func() { q.update(t) }).To(PanicWith(MatchError(ErrInternal)))
		Expect(func() { q.retract(t) }).To(PanicWith(MatchError(ErrInternal)))
		q.insert(t)
		Expect(func() { q.insert(t) }).To(PanicWith(MatchError(ErrInternal)))
	})
})

var _ = Describe("Tuple", func() {
	It("should copy the facts and size the store", func() {
		facts := []any{1, "a"}
		t := NewTuple(3, facts...)
		facts[0] = 2
		Expect(t.Facts()).To(Equal([]any{1, "a"}))
		Expect(t.Arity()).To(Equal(2))
		Expect(t.StoreSize()).To(Equal(3))
		Expect(t.State()).To(Equal(StateDead))
		Expect(t.String()).To(Equal("[1, a]@Dead"))
	})

	It("should overwrite the facts from several slices", func() {
		t := NewTuple(0, 1, 2)
		t.setFacts([]any{"a"}, []any{"b", "c"})
		Expect(t.Facts()).To(Equal([]any{"a", "b", "c"}))
	})

	It("should know which states are active", func() {
		for _, s := range []TupleState{StateCreating, StateOk, StateUpdating} {
			Expect(s.IsActive()).To(BeTrue(), s.String())
		}
		for _, s := range []TupleState{StateDead, StateDying, StateAborting} {
			Expect(s.IsActive()).To(BeFalse(), s.String())
		}
	})
})
