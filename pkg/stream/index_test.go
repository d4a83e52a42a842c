package stream

import (
	"cmp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func collect(ix *Index, key IndexKey, op rangeOp) []any {
	ret := []any{}
	ix.ForEach(key, op, func(t *Tuple) { ret = append(ret, t.Fact(0)) })
	return ret
}

var _ = Describe("Index", func() {
	Context("equality only", func() {
		var ix *Index

		BeforeEach(func() { ix = NewIndex(nil) })

		It("should bucket tuples by key", func() {
			ix.Put(IndexKey{Eq: "x"}, NewTuple(0, "a"))
			ix.Put(IndexKey{Eq: "x"}, NewTuple(0, "b"))
			ix.Put(IndexKey{Eq: "y"}, NewTuple(0, "c"))
			Expect(ix.Size()).To(Equal(3))
			Expect(collect(ix, IndexKey{Eq: "x"}, opNone)).To(Equal([]any{"a", "b"}))
			Expect(collect(ix, IndexKey{Eq: "y"}, opNone)).To(Equal([]any{"c"}))
			Expect(collect(ix, IndexKey{Eq: "z"}, opNone)).To(BeEmpty())
		})

		It("should remove by handle and drop empty buckets", func() {
			h1 := ix.Put(IndexKey{Eq: "x"}, NewTuple(0, "a"))
			h2 := ix.Put(IndexKey{Eq: "x"}, NewTuple(0, "b"))
			Expect(h1.Key()).To(Equal(IndexKey{Eq: "x"}))
			ix.Remove(h1)
			Expect(collect(ix, IndexKey{Eq: "x"}, opNone)).To(Equal([]any{"b"}))
			ix.Remove(h2)
			Expect(ix.Size()).To(Equal(0))
			Expect(ix.buckets).To(BeEmpty())
		})

		It("should support composite keys", func() {
			ix.Put(IndexKey{Eq: newKey([]any{"x", 1})}, NewTuple(0, "a"))
			ix.Put(IndexKey{Eq: newKey([]any{"x", 2})}, NewTuple(0, "b"))
			Expect(collect(ix, IndexKey{Eq: newKey([]any{"x", 1})}, opNone)).To(Equal([]any{"a"}))
		})
	})

	Context("with a range key", func() {
		var ix *Index

		BeforeEach(func() {
			ix = NewIndex(func(a, b any) int { return cmp.Compare(a.(int), b.(int)) })
			for i, r := range []int{5, 1, 3, 3, 7} {
				ix.Put(IndexKey{Eq: "x", Range: r}, NewTuple(0, i, r))
			}
		})

		It("should find stored keys below the probe", func() {
			Expect(collect(ix, IndexKey{Eq: "x", Range: 5}, opLessThan)).To(Equal([]any{1, 2, 3}))
			Expect(collect(ix, IndexKey{Eq: "x", Range: 5}, opLessOrEqual)).To(Equal([]any{1, 2, 3, 0}))
		})

		It("should find stored keys above the probe", func() {
			Expect(collect(ix, IndexKey{Eq: "x", Range: 3}, opGreaterThan)).To(ConsistOf(0, 4))
			Expect(collect(ix, IndexKey{Eq: "x", Range: 3}, opGreaterOrEqual)).To(ConsistOf(0, 2, 3, 4))
		})

		It("should find equal range keys without an operator", func() {
			Expect(collect(ix, IndexKey{Eq: "x", Range: 3}, opNone)).To(Equal([]any{2, 3}))
			Expect(collect(ix, IndexKey{Eq: "y", Range: 3}, opLessThan)).To(BeEmpty())
		})

		It("should keep other tuples of the same range key on removal", func() {
			h := ix.Put(IndexKey{Eq: "x", Range: 3}, NewTuple(0, 9, 3))
			Expect(collect(ix, IndexKey{Eq: "x", Range: 3}, opNone)).To(Equal([]any{2, 3, 9}))
			ix.Remove(h)
			Expect(collect(ix, IndexKey{Eq: "x", Range: 3}, opNone)).To(Equal([]any{2, 3}))
			Expect(ix.Size()).To(Equal(5))
		})
	})

	It("should flip range operators", func() {
		Expect(opLessThan.flip()).To(Equal(opGreaterThan))
		Expect(opGreaterOrEqual.flip()).To(Equal(opLessOrEqual))
		Expect(opNone.flip()).To(Equal(opNone))
		Expect(opLessOrEqual.holds(0)).To(BeTrue())
		Expect(opLessThan.holds(0)).To(BeFalse())
	})
})
