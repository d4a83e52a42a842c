package testutils

import "fmt"

// Person is a fact type used for testing.
type Person struct {
	Name string `json:"name"`
	City string `json:"city"`
	Age  int    `json:"age"`
}

func (p *Person) String() string { return fmt.Sprintf("%s(%s,%d)", p.Name, p.City, p.Age) }

// City is a fact type used for testing.
type City struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

func (c *City) String() string { return c.Name }

// Tag is a fact type with a slice field: its values are not comparable.
type Tag struct {
	Name   string   `json:"name"`
	Labels []string `json:"labels"`
}

// Box is a fact type with an interface field: the type is comparable, but a value holding a
// slice is not.
type Box struct {
	Value any `json:"value"`
}

var (
	// TestAlice is a person used for testing.
	TestAlice = Person{Name: "alice", City: "budapest", Age: 31}
	// TestBob is a person used for testing.
	TestBob = Person{Name: "bob", City: "budapest", Age: 17}
	// TestCarol is a person used for testing.
	TestCarol = Person{Name: "carol", City: "vienna", Age: 45}

	// TestBudapest is a city used for testing.
	TestBudapest = City{Name: "budapest", Capacity: 2}
	// TestVienna is a city used for testing.
	TestVienna = City{Name: "vienna", Capacity: 1}
)
