package stream

import (
	"container/list"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// IndexKey is the key a tuple is indexed under: an equality key (possibly composite) and an
// optional range key.
type IndexKey struct {
	Eq    any
	Range any
}

func (k IndexKey) equal(o IndexKey) bool { return factEqual(k.Eq, o.Eq) && factEqual(k.Range, o.Range) }

// Index is a multi-map from IndexKey to tuples. Tuples with equal equality keys share a bucket;
// with a range comparator the bucket is ordered by range key so range lookups visit only
// matching tuples.
type Index struct {
	compare func(a, b any) int
	buckets map[any]*indexBucket
	size    int
}

type indexBucket struct {
	eq   any
	all  *list.List
	tree *redblacktree.Tree // range key -> *list.List
}

// IndexHandle locates an indexed tuple for O(1) removal. It is kept in the tuple's store.
type IndexHandle struct {
	key    IndexKey
	bucket *indexBucket
	values *list.List
	elem   *list.Element
}

// Key returns the key the tuple was indexed under.
func (h *IndexHandle) Key() IndexKey { return h.key }

// NewIndex creates an index. A nil compare makes an equality-only index.
func NewIndex(compare func(a, b any) int) *Index {
	return &Index{compare: compare, buckets: make(map[any]*indexBucket)}
}

// Size returns the number of indexed tuples.
func (ix *Index) Size() int { return ix.size }

// Put indexes a tuple.
func (ix *Index) Put(key IndexKey, t *Tuple) *IndexHandle {
	b, ok := ix.buckets[key.Eq]
	if !ok {
		b = &indexBucket{eq: key.Eq}
		if ix.compare != nil {
			b.tree = redblacktree.NewWith(ix.compare)
		} else {
			b.all = list.New()
		}
		ix.buckets[key.Eq] = b
	}

	values := b.all
	if b.tree != nil {
		if v, found := b.tree.Get(key.Range); found {
			values = v.(*list.List)
		} else {
			values = list.New()
			b.tree.Put(key.Range, values)
		}
	}

	ix.size++
	return &IndexHandle{key: key, bucket: b, values: values, elem: values.PushBack(t)}
}

// Remove removes the tuple located by the handle.
func (ix *Index) Remove(h *IndexHandle) {
	h.values.Remove(h.elem)
	ix.size--
	b := h.bucket
	if b.tree != nil {
		if h.values.Len() == 0 {
			b.tree.Remove(h.key.Range)
		}
		if b.tree.Empty() {
			delete(ix.buckets, b.eq)
		}
	} else if b.all.Len() == 0 {
		delete(ix.buckets, b.eq)
	}
}

// ForEach visits every tuple with the given equality key whose range key k satisfies
// "k op key.Range". The index must not be modified by fn.
func (ix *Index) ForEach(key IndexKey, op rangeOp, fn func(t *Tuple)) {
	b, ok := ix.buckets[key.Eq]
	if !ok {
		return
	}
	if b.tree == nil {
		visitList(b.all, fn)
		return
	}

	switch op {
	case opLessThan, opLessOrEqual:
		it := b.tree.Iterator()
		for it.Next() {
			if !op.holds(ix.compare(it.Key(), key.Range)) {
				break
			}
			visitList(it.Value().(*list.List), fn)
		}
	case opGreaterThan, opGreaterOrEqual:
		it := b.tree.Iterator()
		it.End()
		for it.Prev() {
			if !op.holds(ix.compare(it.Key(), key.Range)) {
				break
			}
			visitList(it.Value().(*list.List), fn)
		}
	default:
		if v, found := b.tree.Get(key.Range); found {
			visitList(v.(*list.List), fn)
		}
	}
}

func visitList(l *list.List, fn func(t *Tuple)) {
	for e := l.Front(); e != nil; e = e.Next() {
		fn(e.Value.(*Tuple))
	}
}
