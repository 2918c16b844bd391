package graph

import (
	"github.com/pkg/errors"

	sta "github.com/eda-tools/stasearch"
)

// Graph is the concrete stasearch.Graph and stasearch.Network
// collaborator: a pin/instance adjacency list, generalized from a
// single-owner-per-input-pin node graph (wiring.add-style construction)
// into a general multi-fanout digraph with an explicit level for each
// vertex.
type Graph struct {
	byName   map[string]*Vertex
	vertices []*Vertex
	maxLevel int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{byName: make(map[string]*Vertex)}
}

// AddPin creates and registers a new vertex for a pin name that must not
// already exist (mirrors wiring.add's "output pin already used" check).
func (g *Graph) AddPin(instance, name string, isClock bool) (*Vertex, error) {
	p := NewPin(instance, name, isClock)
	if _, exists := g.byName[p.Name()]; exists {
		return nil, errors.Errorf("pin %s already exists", p.Name())
	}
	v := &Vertex{pin: p}
	g.byName[p.Name()] = v
	g.vertices = append(g.vertices, v)
	return v, nil
}

// VertexFor implements stasearch.Network: a vertex is found by its full
// (post-expansion) pin name.
func (g *Graph) VertexFor(p sta.Pin) (sta.Vertex, bool) {
	v, ok := g.byName[p.Name()]
	return v, ok
}

// vertexByName is the same lookup for internal callers that don't yet
// have a sta.Pin handle.
func (g *Graph) vertexByName(name string) (*Vertex, bool) {
	v, ok := g.byName[name]
	return v, ok
}

// PinByName resolves a flat (post bus-expansion) pin name to its
// sta.Pin, for collaborators such as the sdc package's parser that only
// have a textual reference ("get_ports clk", "u1/q") and need to turn it
// into a handle the core accepts.
func (g *Graph) PinByName(name string) (sta.Pin, bool) {
	v, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return v.pin, true
}

// Connect adds a directed timing edge from -> to with the given role and
// arc set. isRegClk/isBidirectDriver flags on the endpoints are the
// caller's responsibility to set via SetRegClk etc. before Levelize
// runs; HasFaninOne is derived from the fanin list Connect builds.
func (g *Graph) Connect(from, to *Vertex, role sta.EdgeRole, arcs *ArcSet) *Edge {
	e := &Edge{from: from, to: to, role: role, arcSet: arcs}
	from.fanout = append(from.fanout, e)
	to.fanin = append(to.fanin, e)
	return e
}

// SetRegClk marks v as a register or latch clock pin.
func (v *Vertex) SetRegClk(b bool) { v.isRegClk = b }

// SetBidirectDriver marks v as the driver side of a bidirectional pin.
func (v *Vertex) SetBidirectDriver(b bool) { v.isBidirectDriver = b }

// DriversOf implements stasearch.Network: the vertices feeding p at the
// pin level (i.e. every fanin edge's From()).
func (g *Graph) DriversOf(p sta.Pin) []sta.Vertex {
	v, ok := g.byName[p.Name()]
	if !ok {
		return nil
	}
	out := make([]sta.Vertex, 0, len(v.fanin))
	for _, e := range v.fanin {
		out = append(out, e.From())
	}
	return out
}

func (g *Graph) Vertices() []sta.Vertex {
	out := make([]sta.Vertex, len(g.vertices))
	for i, v := range g.vertices {
		out[i] = v
	}
	return out
}

func (g *Graph) FaninEdges(v sta.Vertex) []sta.Edge {
	vv := v.(*Vertex)
	out := make([]sta.Edge, len(vv.fanin))
	for i, e := range vv.fanin {
		out[i] = e
	}
	return out
}

func (g *Graph) FanoutEdges(v sta.Vertex) []sta.Edge {
	vv := v.(*Vertex)
	out := make([]sta.Edge, len(vv.fanout))
	for i, e := range vv.fanout {
		out[i] = e
	}
	return out
}

func (g *Graph) MaxLevel() int { return g.maxLevel }

func (g *Graph) Roots() []sta.Vertex {
	var out []sta.Vertex
	for _, v := range g.vertices {
		if len(v.fanin) == 0 {
			out = append(out, v)
		}
	}
	return out
}

func (g *Graph) IsRoot(v sta.Vertex) bool {
	return len(v.(*Vertex).fanin) == 0
}

// Levelize assigns each vertex a level via a Kahn's-algorithm sweep:
// roots start at level 0, every other vertex's level is one more than
// the maximum level of its (non-disabled) fanin. Vertices left
// unreachable by the sweep (pure combinational feedback loops) have
// their remaining incoming edges marked as disabled loops one at a time
// until they drain, leaving the "arbitrarily break the loop" latitude
// to set_disable_timing/set_false_path -loop handling upstream.
func (g *Graph) Levelize() {
	indeg := make(map[*Vertex]int, len(g.vertices))
	for _, v := range g.vertices {
		n := 0
		for _, e := range v.fanin {
			if !e.disabledLoop {
				n++
			}
		}
		indeg[v] = n
		v.level = 0
	}

	var queue []*Vertex
	for _, v := range g.vertices {
		if indeg[v] == 0 {
			queue = append(queue, v)
		}
	}

	visited := 0
	maxLevel := 0
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		visited++
		if v.level > maxLevel {
			maxLevel = v.level
		}
		for _, e := range v.fanout {
			if e.disabledLoop {
				continue
			}
			w := e.to
			if v.level+1 > w.level {
				w.level = v.level + 1
			}
			indeg[w]--
			if indeg[w] == 0 {
				queue = append(queue, w)
			}
		}
	}

	if visited < len(g.vertices) {
		g.breakRemainingLoops(indeg)
		g.Levelize()
		return
	}
	g.maxLevel = maxLevel
}

// breakRemainingLoops disables one still-pending fanin edge per vertex
// with nonzero remaining in-degree, enough to let a subsequent Levelize
// pass make progress. It never disables an edge already marked, so
// repeated calls converge.
func (g *Graph) breakRemainingLoops(indeg map[*Vertex]int) {
	for _, v := range g.vertices {
		if indeg[v] == 0 {
			continue
		}
		for _, e := range v.fanin {
			if !e.disabledLoop {
				e.disabledLoop = true
				break
			}
		}
	}
}
