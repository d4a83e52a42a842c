// Package visualize renders constraint stream networks as diagrams.
package visualize

import (
	"fmt"
	"strings"

	"github.com/emicklei/dot"

	"github.com/l7mp/scorenet/pkg/stream"
)

// Graph is the visualization graph of a network.
type Graph struct {
	Name  string
	Nodes []Node
	Edges []Edge
}

// Node is a network node.
type Node struct {
	ID    string
	Kind  stream.NodeKind
	Label string
}

// Edge connects a parent node to a child. Side is "left" or "right" for the inputs of join
// and exists nodes, empty otherwise.
type Edge struct {
	From, To string
	Side     string
}

type constrained interface{ Constraint() string }

// BuildGraph constructs a visualization graph from a network.
func BuildGraph(name string, net *stream.Network) *Graph {
	g := &Graph{Name: name}
	for _, n := range net.Nodes() {
		g.Nodes = append(g.Nodes, Node{ID: n.ID(), Kind: n.Kind(), Label: label(n)})

		parents := n.Parents()
		for i, p := range parents {
			e := Edge{From: p.ID(), To: n.ID()}
			if len(parents) == 2 {
				e.Side = [...]string{"left", "right"}[i]
			}
			g.Edges = append(g.Edges, e)
		}
	}
	return g
}

func label(n stream.Node) string {
	switch v := n.(type) {
	case *stream.ExistsNode:
		if v.ShouldExist() {
			return "ifExists"
		}
		return "ifNotExists"
	case constrained:
		return v.Constraint()
	}
	if n.Kind() == stream.KindForEach {
		// "foreach#0(*pkg.Type)"
		if i := strings.IndexByte(n.ID(), '('); i >= 0 {
			return "forEach " + strings.TrimSuffix(n.ID()[i+1:], ")")
		}
	}
	return n.Kind().String()
}

// Roots returns the forEach nodes.
func (g *Graph) Roots() []Node {
	ret := []Node{}
	for _, n := range g.Nodes {
		if n.Kind == stream.KindForEach {
			ret = append(ret, n)
		}
	}
	return ret
}

type dotStyle struct{ shape, style, fill string }

var dotStyles = map[stream.NodeKind]dotStyle{
	stream.KindForEach: {"ellipse", "filled", "lightgreen"},
	stream.KindJoin:    {"box", "filled,rounded", "lightblue"},
	stream.KindExists:  {"box", "filled,rounded", "lightcyan"},
	stream.KindGroup:   {"box", "filled,rounded", "lightsalmon"},
	stream.KindScoring: {"box", "filled", "lightyellow"},
}

var defaultDotStyle = dotStyle{"box", "rounded", "white"}

// BuildDotGraph creates a Graphviz styled dot.Graph from the visualization graph.
func BuildDotGraph(g *Graph) *dot.Graph {
	return buildGraph(g, func(n dot.Node, kind stream.NodeKind) {
		st, ok := dotStyles[kind]
		if !ok {
			st = defaultDotStyle
		}
		n.Attr("shape", st.shape).
			Attr("style", st.style).
			Attr("fillcolor", st.fill).
			Attr("fontname", "helvetica")
	})
}

// Mermaid takes typed shapes and CSS styles instead of Graphviz attributes.
var mermaidShapes = map[stream.NodeKind]any{
	stream.KindForEach: dot.MermaidShapeStadium,
	stream.KindExists:  dot.MermaidShapeRhombus,
	stream.KindGroup:   dot.MermaidShapeSubroutine,
	stream.KindScoring: dot.MermaidShapeAsymmetric,
}

// BuildMermaidGraph creates a dot.Graph for Mermaid rendering from the visualization graph.
func BuildMermaidGraph(g *Graph) *dot.Graph {
	return buildGraph(g, func(n dot.Node, kind stream.NodeKind) {
		shape, ok := mermaidShapes[kind]
		if !ok {
			shape = dot.MermaidShapeRound
		}
		n.Attr("shape", shape)
		if st, ok := dotStyles[kind]; ok {
			n.Attr("style", "fill:"+st.fill)
		}
	})
}

func buildGraph(g *Graph, decorate func(n dot.Node, kind stream.NodeKind)) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "LR")
	graph.Attr("newrank", "true")
	graph.Attr("label", g.Name)
	graph.Attr("labelloc", "t")
	graph.Attr("fontsize", "16")

	nodes := make(map[string]dot.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		node := graph.Node(n.ID).Attr("label", n.Label)
		decorate(node, n.Kind)
		nodes[n.ID] = node
	}

	for _, e := range g.Edges {
		from, fromOK := nodes[e.From]
		to, toOK := nodes[e.To]
		if !fromOK || !toOK {
			continue
		}
		edge := graph.Edge(from, to)
		if e.Side != "" {
			edge.Attr("label", e.Side).Attr("fontname", "helvetica").Attr("fontsize", "10")
		}
	}
	return graph
}

// Generator renders a graph as text.
type Generator interface {
	Generate(g *Graph) string
}

// NewGenerator returns the generator of the format: "dot" or "mermaid".
func NewGenerator(format string) (Generator, error) {
	switch strings.ToLower(format) {
	case "dot", "":
		return &DotGenerator{}, nil
	case "mermaid":
		return &MermaidGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown diagram format %q", format)
	}
}
