package aggregation

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/activity"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
)

// commGraph is the undirected sender/recipient graph built from email.
type commGraph struct {
	g     *simple.UndirectedGraph
	ids   map[string]int64
	names []string
}

func newCommGraph() *commGraph {
	return &commGraph{
		g:   simple.NewUndirectedGraph(),
		ids: make(map[string]int64),
	}
}

func (c *commGraph) node(name string) graph.Node {
	if id, ok := c.ids[name]; ok {
		return c.g.Node(id)
	}
	id := int64(len(c.names))
	n := simple.Node(id)
	c.g.AddNode(n)
	c.ids[name] = id
	c.names = append(c.names, name)
	return n
}

// link adds an undirected edge. Repeated pairs collapse into one edge and
// self-addressed mail adds no edge.
func (c *commGraph) link(from, to string) {
	a := c.node(from)
	b := c.node(to)
	if a.ID() == b.ID() {
		return
	}
	c.g.SetEdge(c.g.NewEdge(a, b))
}

// degreeCentrality returns degree/(n-1) per node. A graph with a single
// node scores it 1.
func (c *commGraph) degreeCentrality() map[string]float64 {
	n := len(c.names)
	out := make(map[string]float64, n)
	if n == 0 {
		return out
	}
	if n == 1 {
		out[c.names[0]] = 1
		return out
	}
	scale := 1 / float64(n-1)
	for name, id := range c.ids {
		out[name] = float64(c.g.From(id).Len()) * scale
	}
	return out
}

// centrality builds the communication graph and scores every node.
// Betweenness is fixed at zero: computing it is quadratic in the node count
// and it is not needed for the ranking.
func centrality(email *activity.Table) *features.Table {
	out := features.NewTable(features.ColumnDegreeCentrality, features.ColumnBetweennessCentrality)
	if email.Empty() || !email.HasActor {
		return out
	}

	cg := newCommGraph()
	for _, r := range email.Records {
		if r.User == "" {
			continue
		}
		// A blank recipient cell joins the "unknown" node like a missing column.
		to := r.Recipient()
		if to == "" {
			to = activity.UnknownRecipient
		}
		cg.link(r.User, to)
	}

	for name, dc := range cg.degreeCentrality() {
		out.Set(name, dc, 0)
	}
	return out
}
