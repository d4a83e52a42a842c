package testutils

import "math/rand"

// NewPeople returns fresh copies of the test persons, so tests can mutate them.
func NewPeople() (alice, bob, carol *Person) {
	a, b, c := TestAlice, TestBob, TestCarol
	return &a, &b, &c
}

// NewCities returns fresh copies of the test cities.
func NewCities() (budapest, vienna *City) {
	b, v := TestBudapest, TestVienna
	return &b, &v
}

// Shuffled returns a pseudo-random permutation of the slice, deterministic for a given seed.
func Shuffled[T any](seed int64, s []T) []T {
	ret := make([]T, len(s))
	copy(ret, s)
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(ret), func(i, j int) { ret[i], ret[j] = ret[j], ret[i] })
	return ret
}
