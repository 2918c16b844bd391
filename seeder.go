package stasearch

// seeder primes the forward BFS queue and the corresponding vertices'
// initial tag groups. It is used both for a full arrival pass (clock,
// input-delay, unclocked-root and path-delay-start seeding) and for a
// filtered pass (filter-start seeding only).
type seeder struct {
	search    *Search
	graph     Graph
	sdc       Sdc
	network   Network
	clkInfos  *clkInfoPool
	tags      *tagPool
	tagGroups *tagGroupPool
	forward   *bfsQueue
	minMax    MinMax
	pathAP    int
}

// Network is the minimal hierarchical-pin-traversal collaborator the
// seeder needs to expand a filter's starting point to concrete driver
// vertices ("expanding hierarchical pins").
type Network interface {
	// DriversOf returns the vertices that drive p (its fanin at the pin
	// level, already resolved through hierarchy).
	DriversOf(p Pin) []Vertex
	VertexFor(p Pin) (Vertex, bool)
}

func newSeeder(search *Search, g Graph, sdc Sdc, net Network, ci *clkInfoPool, tp *tagPool, tgp *tagGroupPool, fwd *bfsQueue, minMax MinMax, pathAP int) *seeder {
	return &seeder{search: search, graph: g, sdc: sdc, network: net, clkInfos: ci, tags: tp, tagGroups: tgp, forward: fwd, minMax: minMax, pathAP: pathAP}
}

// seedEntry is one seed kind's contribution to a vertex, queued for the
// vertex's own first ArrivalVisitor.Visit rather than written to the
// vertex directly. Writing the seed value straight onto the vertex (the
// way an earlier revision of this file did) makes Visit's own "did
// anything change" comparison see the seed as already applied, so it
// never enqueues the seed vertex's fanout and the search stalls at
// level 0; routing it through the builder's ordinary merge step instead
// keeps seeding and incremental re-seeding on the same code path as a
// fanin-driven update.
type seedEntry struct {
	tag      *Tag
	arrival  Arrival
	prevPath *PrevPath
}

// seedWrite queues t/a as a pending seed contribution for v, consumed by
// ArrivalVisitor.Visit the next time v is dequeued. The caller is still
// responsible for enqueuing v.
func (s *seeder) seedWrite(v Vertex, t *Tag, a Arrival) {
	s.search.addPendingSeed(v, seedEntry{tag: t, arrival: a})
}

// existingTagGroup looks up the TagGroup currently recorded on v, or nil
// if v has never been seeded/visited (TagGroupIndex is only meaningful
// once at least one tag has been written).
func existingTagGroup(v Vertex, tgp *tagGroupPool) *TagGroup {
	if len(v.Arrivals()) == 0 {
		return nil
	}
	return tgp.at(int32(v.TagGroupIndex()))
}

// SeedClockArrivals seeds clock-tree arrivals: for every clock vertex
// pin and every (rise/fall) transition, build a ClkInfo, derive the
// initial exception-from states, intern a clock tag, and write arrival =
// clock-edge time + insertion.
func (s *seeder) SeedClockArrivals() {
	for _, clk := range s.sdc.Clocks() {
		v, ok := s.network.VertexFor(clk.SourcePin)
		if !ok {
			continue
		}
		for _, tr := range []Transition{Rise, Fall} {
			propagated := clk.Propagated
			ci := s.clkInfos.intern(&ClkInfo{
				ClkEdge:     clk,
				Transition:  tr,
				SourcePin:   clk.SourcePin,
				Propagated:  propagated,
				Insertion:   clk.Insertion[tr],
				Latency:     clk.Latency[tr],
				Uncertainty: clk.Uncertainty,
				PathAP:      s.pathAP,
			})
			states := s.exceptionFromStates(clk.SourcePin)
			t := s.tags.intern(newTag(tr, s.pathAP, ci, true, nil, true, states), nil)
			arrival := clockEdgeArrival(clk, tr) + Arrival(clk.Insertion[tr])
			s.seedWrite(v, t, arrival)
			s.forward.Enqueue(v)
		}
	}
}

func (s *seeder) exceptionFromStates(p Pin) []*ExceptionState {
	var out []*ExceptionState
	for _, ep := range s.sdc.Exceptions() {
		if ep.From != nil && ep.From.matchesPin(p) {
			out = append(out, newExceptionStateFromStart(ep))
		}
	}
	return out
}

// SeedInputDelayArrivals seeds input-delay arrivals: for every pin with
// a set_input_delay, build a non-clock tag carrying the referenced clock
// edge and the delay. When -reference_pin is used, the reference pin's
// clock-network latency (from an already-propagated clock path at that
// pin) is folded in instead of the raw clock edge.
func (s *seeder) SeedInputDelayArrivals() {
	for _, id := range s.sdc.InputDelays() {
		s.reseedInputDelay(id)
	}
}

// reseedInputDelay (re)installs the seed tags for a single set_input_delay
// constraint. Split out from SeedInputDelayArrivals so Search can call it
// again for just the input delays whose -reference_pin arrival just
// changed, without re-walking every constraint (the
// propagateInputDelayReferences step).
func (s *seeder) reseedInputDelay(id *InputDelay) {
	v, ok := s.network.VertexFor(id.Pin)
	if !ok {
		return
	}
	ci := s.clkInfos.intern(&ClkInfo{
		ClkEdge:    id.Clk,
		Transition: id.ClkTransition,
		SourcePin:  id.Clk.SourcePin,
		Propagated: id.Clk.Propagated,
		PathAP:     s.pathAP,
	})
	for _, tr := range []Transition{Rise, Fall} {
		t := s.tags.intern(newTag(tr, s.pathAP, ci, false, id, true, nil), nil)
		base := s.inputDelayBaseArrival(id)
		s.seedWrite(v, t, base+Arrival(id.Delay))
		s.forward.Enqueue(v)
	}
}

// inputDelayBaseArrival resolves the launch-point arrival an input delay
// is measured from: the referenced clock's edge time, or — when
// -reference_pin names a pin whose clock path has already propagated —
// that pin's clock-path arrival instead.
func (s *seeder) inputDelayBaseArrival(id *InputDelay) Arrival {
	if id.ReferencePin == nil {
		return clockEdgeArrival(id.Clk, id.ClkTransition)
	}
	refV, ok := s.network.VertexFor(id.ReferencePin)
	if !ok {
		return clockEdgeArrival(id.Clk, id.ClkTransition)
	}
	if g := existingTagGroup(refV, s.tagGroups); g != nil {
		for i, t := range g.Tags {
			if t.IsClock && t.ClkInfo != nil && t.ClkInfo.ClkEdge == id.Clk {
				return refV.Arrivals()[i]
			}
		}
	}
	return clockEdgeArrival(id.Clk, id.ClkTransition)
}

// SeedUnclockedRoots seeds unclocked roots: for unclocked graph
// roots (when "report unconstrained" is enabled) and for register clock
// pins not driven by any declared clock, build unclocked tags with
// arrival zero.
func (s *seeder) SeedUnclockedRoots() {
	if s.sdc.ReportUnconstrained() {
		for _, v := range s.graph.Roots() {
			if v.Pin().IsClock() {
				continue
			}
			if _, ok := s.sdc.ClockAt(v.Pin()); ok {
				continue
			}
			if len(s.sdc.InputDelaysAt(v.Pin())) > 0 {
				continue
			}
			t := s.tags.intern(newTag(Rise, s.pathAP, nil, false, nil, true, nil), nil)
			s.seedWrite(v, t, 0)
			s.forward.Enqueue(v)
		}
	}
	for _, v := range s.graph.Vertices() {
		if !v.IsRegClk() {
			continue
		}
		if _, ok := s.sdc.ClockAt(v.Pin()); ok {
			continue
		}
		t := s.tags.intern(newTag(Rise, s.pathAP, nil, true, nil, true, nil), nil)
		s.seedWrite(v, t, 0)
		s.forward.Enqueue(v)
	}
}

// SeedPathDelayStarts seeds internal path-delay starts: for every
// declared set_path_delay exception's -from pin, build a zero-arrival,
// segment-start tag carrying that exception's own state (plus any other
// exception also starting at the same pin), so a path-delay pair can
// begin at an arbitrary internal pin rather than only at a clock or a
// set_input_delay pin.
func (s *seeder) SeedPathDelayStarts() {
	for _, ep := range s.sdc.Exceptions() {
		if ep.Kind != ExceptionPathDelay || ep.From == nil {
			continue
		}
		for p := range ep.From.Pins {
			v, ok := s.network.VertexFor(p)
			if !ok {
				continue
			}
			states := s.exceptionFromStates(p)
			t := s.tags.intern(newTag(Rise, s.pathAP, nil, false, nil, true, states), nil)
			s.seedWrite(v, t, 0)
			s.forward.Enqueue(v)
		}
	}
}

// SeedFilterStarts seeds a filtered pass: enqueue the filter's first
// exception point's fanin driver(s), expanding hierarchical pins via
// Network, plus the point's own vertex.
func (s *seeder) SeedFilterStarts(from *PinPattern) {
	if from == nil {
		return
	}
	for p := range from.Pins {
		for _, v := range s.network.DriversOf(p) {
			s.forward.Enqueue(v)
		}
		if v, ok := s.network.VertexFor(p); ok {
			s.forward.Enqueue(v)
		}
	}
}
