package stream

import "reflect"

// Func maps the facts of a tuple to a value. Functions must be pure: the same facts must
// always produce an equal value.
type Func[R any] func(facts []any) R

// KeyFunc maps the facts of a tuple to a key (a mapped fact, a join key or a group key).
type KeyFunc = Func[any]

// Predicate tests the facts of a tuple.
type Predicate = Func[bool]

// Fn1 adapts a typed unary function to a Func over the first fact.
func Fn1[A, R any](f func(A) R) Func[R] {
	return func(facts []any) R { return f(as[A](facts[0])) }
}

// Fn2 adapts a typed binary function.
func Fn2[A, B, R any](f func(A, B) R) Func[R] {
	return func(facts []any) R { return f(as[A](facts[0]), as[B](facts[1])) }
}

// Fn3 adapts a typed ternary function.
func Fn3[A, B, C, R any](f func(A, B, C) R) Func[R] {
	return func(facts []any) R { return f(as[A](facts[0]), as[B](facts[1]), as[C](facts[2])) }
}

// Fn4 adapts a typed quaternary function.
func Fn4[A, B, C, D, R any](f func(A, B, C, D) R) Func[R] {
	return func(facts []any) R {
		return f(as[A](facts[0]), as[B](facts[1]), as[C](facts[2]), as[D](facts[3]))
	}
}

// Key erases the result type of a Func, e.g. to use a typed function as a KeyFunc.
func Key[R any](f Func[R]) KeyFunc {
	return func(facts []any) any { return f(facts) }
}

// as converts a fact to the requested type; nil facts become the zero value.
func as[T any](fact any) T {
	if fact == nil {
		var zero T
		return zero
	}
	return fact.(T)
}

// CompositeKey is the value-comparable key of two to four key components.
type CompositeKey struct {
	n    int
	keys [maxKeys]any
}

const maxKeys = 4

// Len returns the number of key components.
func (k CompositeKey) Len() int { return k.n }

// Get returns the i-th component.
func (k CompositeKey) Get(i int) any { return k.keys[i] }

// noKey is the key of the single group of a group node without key mappings.
type noKey struct{}

// newKey combines the key components: none yields a sentinel, one yields itself and more
// yield a CompositeKey.
func newKey(keys []any) any {
	switch len(keys) {
	case 0:
		return noKey{}
	case 1:
		return keys[0]
	default:
		k := CompositeKey{n: len(keys)}
		copy(k.keys[:], keys)
		return k
	}
}

func evalKeys(fns []KeyFunc, facts []any, into []any) []any {
	into = into[:0]
	for _, f := range fns {
		into = append(into, f(facts))
	}
	return into
}

// factEqual compares two facts without panicking on non-comparable dynamic types.
func factEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if isComparable(a) && isComparable(b) {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// isComparable checks the dynamic values too: a struct type with an interface field is
// comparable, but a value whose field holds a slice is not.
func isComparable(v any) bool {
	return v == nil || reflect.ValueOf(v).Comparable()
}
