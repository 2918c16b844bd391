package graph

import sta "github.com/eda-tools/stasearch"

// ArcSet is the concrete stasearch.ArcSet: a fixed list of
// (from-transition, to-transition) pairs shared by every edge of the
// same timing-arc flavor (e.g. all non-inverting buffers reuse one
// ArcSet instance).
type ArcSet struct {
	arcs []sta.Arc
}

// NewArcSet builds an ArcSet from explicit pairs.
func NewArcSet(arcs ...sta.Arc) *ArcSet { return &ArcSet{arcs: arcs} }

// NonInvertingArcSet is the common (Rise,Rise)/(Fall,Fall) pair shared
// by buffers, AND/OR gates on their non-inverting input, and wires.
var NonInvertingArcSet = NewArcSet(
	sta.Arc{From: sta.Rise, To: sta.Rise},
	sta.Arc{From: sta.Fall, To: sta.Fall},
)

// InvertingArcSet is the (Rise,Fall)/(Fall,Rise) cross pair used by
// inverters and NAND/NOR gates.
var InvertingArcSet = NewArcSet(
	sta.Arc{From: sta.Rise, To: sta.Fall},
	sta.Arc{From: sta.Fall, To: sta.Rise},
)

// UnateBothArcSet carries all four combinations, used for arcs whose
// sense is data-dependent (e.g. an XOR gate).
var UnateBothArcSet = NewArcSet(
	sta.Arc{From: sta.Rise, To: sta.Rise},
	sta.Arc{From: sta.Rise, To: sta.Fall},
	sta.Arc{From: sta.Fall, To: sta.Rise},
	sta.Arc{From: sta.Fall, To: sta.Fall},
)

func (a *ArcSet) Arcs() []sta.Arc { return a.arcs }

// Edge is the concrete stasearch.Edge.
type Edge struct {
	from, to     *Vertex
	role         sta.EdgeRole
	disabledLoop bool
	arcSet       *ArcSet
	name         string // instance/arc name, for diagnostics only
}

func (e *Edge) From() sta.Vertex        { return e.from }
func (e *Edge) To() sta.Vertex          { return e.to }
func (e *Edge) Role() sta.EdgeRole      { return e.role }
func (e *Edge) IsDisabledLoop() bool    { return e.disabledLoop }
func (e *Edge) ArcSet() sta.ArcSet      { return e.arcSet }
func (e *Edge) String() string          { return e.name }
func (e *Edge) SetDisabledLoop(b bool)  { e.disabledLoop = b }
