package stasearch

// fakeVertex/fakeEdge/fakeGraph are minimal hand-rolled implementations
// of the Vertex/Edge/Graph collaborator interfaces, used by internal
// (package stasearch) tests that need a tiny netlist without importing
// the graph package — which itself imports stasearch, so an internal
// test file cannot depend on it without creating an import cycle.

type fakeVertex struct {
	pin              Pin
	level            int
	isRegClk         bool
	isBidirectDriver bool

	tagGroupIndex int
	arrivals      []Arrival
	requireds     []Arrival
	hasRequireds  bool
	prevPaths     []*PrevPath

	fanin  []*fakeEdge
	fanout []*fakeEdge
}

func (v *fakeVertex) Pin() Pin           { return v.pin }
func (v *fakeVertex) Level() int         { return v.level }
func (v *fakeVertex) IsRegClk() bool     { return v.isRegClk }
func (v *fakeVertex) IsBidirectDriver() bool { return v.isBidirectDriver }
func (v *fakeVertex) HasFaninOne() bool  { return len(v.fanin) == 1 }

func (v *fakeVertex) TagGroupIndex() int     { return v.tagGroupIndex }
func (v *fakeVertex) SetTagGroupIndex(i int) { v.tagGroupIndex = i }
func (v *fakeVertex) Arrivals() []Arrival    { return v.arrivals }
func (v *fakeVertex) SetArrivals(a []Arrival) { v.arrivals = a }

func (v *fakeVertex) Requireds() []Arrival      { return v.requireds }
func (v *fakeVertex) SetRequireds(r []Arrival)  { v.requireds = r }
func (v *fakeVertex) HasRequireds() bool        { return v.hasRequireds }
func (v *fakeVertex) SetHasRequireds(b bool)    { v.hasRequireds = b }
func (v *fakeVertex) PrevPaths() []*PrevPath     { return v.prevPaths }
func (v *fakeVertex) SetPrevPaths(p []*PrevPath) { v.prevPaths = p }

type fakeEdge struct {
	from, to     *fakeVertex
	role         EdgeRole
	disabledLoop bool
	arcSet       ArcSet
}

func (e *fakeEdge) From() Vertex        { return e.from }
func (e *fakeEdge) To() Vertex          { return e.to }
func (e *fakeEdge) Role() EdgeRole      { return e.role }
func (e *fakeEdge) IsDisabledLoop() bool { return e.disabledLoop }
func (e *fakeEdge) ArcSet() ArcSet      { return e.arcSet }

type fakeArcSet struct{ arcs []Arc }

func (a *fakeArcSet) Arcs() []Arc { return a.arcs }

var fakeNonInverting = &fakeArcSet{arcs: []Arc{{From: Rise, To: Rise}, {From: Fall, To: Fall}}}

type fakeGraph struct {
	vertices []*fakeVertex
	maxLevel int
}

func newFakeGraph() *fakeGraph { return &fakeGraph{} }

func (g *fakeGraph) addVertex(name string, level int, isClock bool) *fakeVertex {
	v := &fakeVertex{pin: &testPin{name: name, isClock: isClock}, level: level}
	g.vertices = append(g.vertices, v)
	if level > g.maxLevel {
		g.maxLevel = level
	}
	return v
}

func (g *fakeGraph) connect(from, to *fakeVertex, role EdgeRole, arcs ArcSet) *fakeEdge {
	e := &fakeEdge{from: from, to: to, role: role, arcSet: arcs}
	from.fanout = append(from.fanout, e)
	to.fanin = append(to.fanin, e)
	return e
}

func (g *fakeGraph) Vertices() []Vertex {
	out := make([]Vertex, len(g.vertices))
	for i, v := range g.vertices {
		out[i] = v
	}
	return out
}

func (g *fakeGraph) FaninEdges(v Vertex) []Edge {
	vv := v.(*fakeVertex)
	out := make([]Edge, len(vv.fanin))
	for i, e := range vv.fanin {
		out[i] = e
	}
	return out
}

func (g *fakeGraph) FanoutEdges(v Vertex) []Edge {
	vv := v.(*fakeVertex)
	out := make([]Edge, len(vv.fanout))
	for i, e := range vv.fanout {
		out[i] = e
	}
	return out
}

func (g *fakeGraph) MaxLevel() int { return g.maxLevel }

func (g *fakeGraph) Roots() []Vertex {
	var out []Vertex
	for _, v := range g.vertices {
		if len(v.fanin) == 0 {
			out = append(out, v)
		}
	}
	return out
}

func (g *fakeGraph) IsRoot(v Vertex) bool { return len(v.(*fakeVertex).fanin) == 0 }

// fakeSdc is a minimal stasearch.Sdc collaborator for tests that don't
// need the full sdc package.
type fakeSdc struct {
	clocks       []*Clock
	clockAtPin   map[Pin]*Clock
	inputDelays  []*InputDelay
	outputDelays []*OutputDelay
	exceptions   []*ExceptionPath
	crprActive   bool
	dynamicLoop  bool
	unconstrained bool
	warnings     []string
}

func newFakeSdc() *fakeSdc { return &fakeSdc{clockAtPin: make(map[Pin]*Clock)} }

func (s *fakeSdc) Clocks() []*Clock           { return s.clocks }
func (s *fakeSdc) ClockAt(p Pin) (*Clock, bool) { c, ok := s.clockAtPin[p]; return c, ok }
func (s *fakeSdc) InputDelays() []*InputDelay { return s.inputDelays }
func (s *fakeSdc) InputDelaysAt(p Pin) []*InputDelay {
	var out []*InputDelay
	for _, id := range s.inputDelays {
		if id.Pin == p {
			out = append(out, id)
		}
	}
	return out
}
func (s *fakeSdc) OutputDelays() []*OutputDelay      { return s.outputDelays }
func (s *fakeSdc) Exceptions() []*ExceptionPath       { return s.exceptions }
func (s *fakeSdc) CRPRActive() bool                   { return s.crprActive }
func (s *fakeSdc) DynamicLoopBreaking() bool          { return s.dynamicLoop }
func (s *fakeSdc) ReportUnconstrained() bool          { return s.unconstrained }
func (s *fakeSdc) Warn(msg string)                    { s.warnings = append(s.warnings, msg) }
func (s *fakeSdc) Warnings() []string                 { return s.warnings }

// fakeDelayCalc returns a fixed delay/derate for every arc, good enough
// for tests that only care about search control flow, not numeric
// precision of a particular gate's timing.
type fakeDelayCalc struct {
	delay  float64
	margin float64
}

func (d *fakeDelayCalc) ArcDelay(e Edge, arc Arc, corner MinMax) (float64, error) { return d.delay, nil }
func (d *fakeDelayCalc) Derate(minMax MinMax, isClock bool) float64              { return 1 }
func (d *fakeDelayCalc) CheckMargin(e Edge, arc Arc, corner MinMax) (float64, error) {
	return d.margin, nil
}

// fakeNetwork implements the Network collaborator the seeder needs.
type fakeNetwork struct {
	g *fakeGraph
}

func (n *fakeNetwork) DriversOf(p Pin) []Vertex {
	for _, v := range n.g.vertices {
		if v.pin == p {
			out := make([]Vertex, len(v.fanin))
			for i, e := range v.fanin {
				out[i] = e.from
			}
			return out
		}
	}
	return nil
}

func (n *fakeNetwork) VertexFor(p Pin) (Vertex, bool) {
	for _, v := range n.g.vertices {
		if v.pin == p {
			return v, true
		}
	}
	return nil, false
}
