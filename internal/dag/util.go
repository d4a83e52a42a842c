// Copyright 2024 rg0now. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dag

import "fmt"

// New creates an empty graph.
func New() *Graph {
	return &Graph{byLabel: map[string]int{}, edges: map[string]map[string]bool{}}
}

// Roots returns a roots of the DAG, i.e., the nodes without an incoming edge.
func (g *Graph) Roots() []string {
	roots := make([]string, 0, len(g.Nodes))

	for _, j := range g.Nodes {
		isRoot := true
		for _, i := range g.Nodes {
			if g.HasEdge(i, j) {
				isRoot = false
				break
			}
		}
		if isRoot {
			roots = append(roots, j)
		}
	}
	return roots
}

// Leaves returns the nodes without an outgoing edge.
func (g *Graph) Leaves() []string {
	leaves := []string{}
	for _, n := range g.Nodes {
		if len(g.edges[n]) == 0 {
			leaves = append(leaves, n)
		}
	}
	return leaves
}

// CheckOrder verifies that the insertion order of the nodes is a topological order: every
// edge points from an earlier node to a later one. This also rules out cycles.
func (g *Graph) CheckOrder() error {
	for _, from := range g.Nodes {
		for _, to := range g.Edges(from) {
			if g.byLabel[to] <= g.byLabel[from] {
				return fmt.Errorf("node %q comes before its upstream node %q", to, from)
			}
		}
	}
	return nil
}
