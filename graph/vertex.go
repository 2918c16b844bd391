package graph

import sta "github.com/eda-tools/stasearch"

// Vertex is the concrete stasearch.Vertex: one pin instance in the
// levelized graph. The two Search-owned mutable slots (TagGroupIndex,
// Arrivals/Requireds/PrevPaths) are plain fields rather than an
// interned struct-of-arrays layout, trading a little memory for a much
// simpler implementation — acceptable for the sizes this tool targets.
type Vertex struct {
	pin              *Pin
	level            int
	isRegClk         bool
	isBidirectDriver bool
	hasFaninOne      bool

	tagGroupIndex int
	arrivals      []sta.Arrival
	requireds     []sta.Arrival
	hasRequireds  bool
	prevPaths     []*sta.PrevPath

	fanin  []*Edge
	fanout []*Edge
}

func (v *Vertex) Pin() sta.Pin           { return v.pin }
func (v *Vertex) Level() int             { return v.level }
func (v *Vertex) IsRegClk() bool         { return v.isRegClk }
func (v *Vertex) IsBidirectDriver() bool { return v.isBidirectDriver }
func (v *Vertex) HasFaninOne() bool      { return len(v.fanin) == 1 }

func (v *Vertex) TagGroupIndex() int      { return v.tagGroupIndex }
func (v *Vertex) SetTagGroupIndex(i int)  { v.tagGroupIndex = i }
func (v *Vertex) Arrivals() []sta.Arrival { return v.arrivals }
func (v *Vertex) SetArrivals(a []sta.Arrival) {
	v.arrivals = a
}

func (v *Vertex) Requireds() []sta.Arrival        { return v.requireds }
func (v *Vertex) SetRequireds(r []sta.Arrival)    { v.requireds = r }
func (v *Vertex) HasRequireds() bool              { return v.hasRequireds }
func (v *Vertex) SetHasRequireds(b bool)          { v.hasRequireds = b }
func (v *Vertex) PrevPaths() []*sta.PrevPath      { return v.prevPaths }
func (v *Vertex) SetPrevPaths(p []*sta.PrevPath)  { v.prevPaths = p }

// FaninEdges and FanoutEdges back the Graph collaborator's identically
// named methods; exported here too since some concrete callers (the sdc
// package's pin-override lookups) walk a vertex's adjacency directly.
func (v *Vertex) FaninEdges() []*Edge  { return v.fanin }
func (v *Vertex) FanoutEdges() []*Edge { return v.fanout }
