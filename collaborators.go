package stasearch

// This file declares the interfaces the search core is polymorphic over.
// Concrete implementations live in sibling packages (graph, sdc,
// delaycalc) so that the core never imports them: the core only ever
// sees Vertex, Edge, Graph, Network, Sdc, DelayCalc, and friends.

// Transition is a rise or fall edge on a signal.
type Transition int

const (
	Rise Transition = iota
	Fall
)

func (t Transition) String() string {
	if t == Rise {
		return "rise"
	}
	return "fall"
}

// MinMax selects the min (early/short-path) or max (late/long-path)
// timing analysis corner.
type MinMax int

const (
	Min MinMax = iota
	Max
)

func (m MinMax) String() string {
	if m == Min {
		return "min"
	}
	return "max"
}

// Opposite returns the other corner.
func (m MinMax) Opposite() MinMax {
	if m == Min {
		return Max
	}
	return Min
}

// Tighter returns the more restrictive of a and b for this corner: min for
// the min corner, max for the max corner.
func (m MinMax) Tighter(a, b float64) float64 {
	if m == Min {
		if a < b {
			return a
		}
		return b
	}
	if a > b {
		return a
	}
	return b
}

// EdgeRole classifies a timing arc.
type EdgeRole int

const (
	RoleWire EdgeRole = iota
	RoleCombinational
	RoleRegClkToQ
	RoleLatchEnToQ
	RoleLatchDToQ
	RoleTristateEnable
	RoleTristateDisable
	RoleTimingCheck
)

func (r EdgeRole) isWireOrCombinational() bool {
	return r == RoleWire || r == RoleCombinational
}

// Pin is the minimal pin metadata the core needs from the Network
// collaborator: enough to name a vertex in diagnostics and to test
// direction/clock membership.
type Pin interface {
	Name() string
	IsClock() bool
}

// Vertex is a pin instance in the levelized timing graph. The core owns
// exactly two mutable slots on it: TagGroupIndex and the arrival/required
// array, both accessed through the Vertex interface so the concrete graph
// package can lay out storage however it likes (e.g. struct-of-arrays).
type Vertex interface {
	Pin() Pin
	Level() int
	IsRegClk() bool
	IsBidirectDriver() bool
	HasFaninOne() bool

	TagGroupIndex() int
	SetTagGroupIndex(int)

	Arrivals() []Arrival
	SetArrivals([]Arrival)

	Requireds() []Arrival
	SetRequireds([]Arrival)
	HasRequireds() bool
	SetHasRequireds(bool)

	PrevPaths() []*PrevPath
	SetPrevPaths([]*PrevPath)
}

// Edge connects two vertices with a role and a reference to a timing arc
// set the DelayCalc collaborator understands.
type Edge interface {
	From() Vertex
	To() Vertex
	Role() EdgeRole
	IsDisabledLoop() bool
	ArcSet() ArcSet
}

// ArcSet enumerates the (from-transition, to-transition) pairs a timing
// arc set supports, e.g. a non-inverting buffer only has (Rise,Rise) and
// (Fall,Fall) while an inverter has the cross pairs too.
type ArcSet interface {
	Arcs() []Arc
}

// Arc is one (from-transition, to-transition) pair within an ArcSet.
type Arc struct {
	From Transition
	To   Transition
}

// Graph is the levelized timing graph collaborator.
type Graph interface {
	Vertices() []Vertex
	FaninEdges(v Vertex) []Edge
	FanoutEdges(v Vertex) []Edge
	MaxLevel() int
	Roots() []Vertex
	IsRoot(v Vertex) bool
}

// DelayCalc computes arc delays and derating.
type DelayCalc interface {
	ArcDelay(e Edge, arc Arc, corner MinMax) (float64, error)
	Derate(minMax MinMax, isClock bool) float64
	// CheckMargin returns a RoleTimingCheck arc's setup (Max corner) or
	// hold (Min corner) margin.
	CheckMargin(e Edge, arc Arc, corner MinMax) (float64, error)
}

// Latches answers questions about transparent-latch D->Q edges.
type LatchDtoQState int

const (
	LatchAlwaysOpen LatchDtoQState = iota
	LatchOpen
	LatchClosed
)

type Latches interface {
	IsLatchDtoQ(e Edge) bool
	LatchDtoQState(e Edge) LatchDtoQState
	// LatchEnablePath returns the arrival of the enable pin driving e's
	// latch, used to compute the enable-open time for time borrowing.
	LatchEnablePath(e Edge) (Arrival, bool)
}

// GenClks answers generated-clock topology questions.
type GenClks interface {
	Fanins(gclk *Clock) []Edge
	LatchFdbkEdges(gclk *Clock) []Edge
	InsertionDelay(clk *Clock, pin Pin, tr Transition) float64
}

// CRPREngine computes clock-reconvergence-pessimism-removal credit.
type CRPREngine interface {
	Active() bool
	MaxCRPR(ci *ClkInfo) float64
	ClkPathPrev(v Vertex, slot int) *PrevPath
}
