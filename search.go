package stasearch

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Search is the single owner object a caller drives: one instance
// analyzes one timing corner (MinMax) at one path analysis point,
// wiring together the interned pools, the two level-ordered BFS queues,
// and the mutator/seeder/visitor collaborators. A
// design simplification versus the original tool: Vertex only carries
// a single Arrivals/Requireds slot, so
// analyzing both corners means constructing two Search instances that
// share a Network/Graph but not their pools.
type Search struct {
	graph     Graph
	sdc       Sdc
	latches   Latches
	genClks   GenClks
	crpr      CRPREngine
	network   Network
	delayCalc DelayCalc
	logger    zerolog.Logger

	minMax MinMax
	pathAP int

	// MaxLatchPasses bounds the transparent-latch fixed-point loop
	// Zero means "use the default of 64".
	MaxLatchPasses int

	tags      *tagPool
	tagGroups *tagGroupPool
	clkInfos  *clkInfoPool

	forward  *bfsQueue
	backward *bfsQueue

	mutator       *mutator
	predicates    *SearchPredicates
	clkPredicates *SearchPredicates
	latchDriver   *latchLoopDriver
	seeder        *seeder

	arrivalVisitor  *ArrivalVisitor
	requiredVisitor *RequiredVisitor

	mu           sync.Mutex
	endpoints    map[Vertex]bool
	invalidTNS   map[Vertex]bool
	pendingSeeds map[Vertex][]seedEntry

	// filter-pass generation markers: the pool
	// length recorded just before a filtered pass starts, so ClearFilter
	// can compact away everything interned since then via CompactFrom.
	filterTagMark      int32
	filterTagGroupMark int32
	filterActive       bool
}

// NewSearch builds a Search wired against the given collaborators. crpr,
// latches and genClks may be nil when the corresponding feature is
// inactive (e.g. a design with no transparent latches).
func NewSearch(g Graph, sdcColl Sdc, net Network, dc DelayCalc, latches Latches, genClks GenClks, crpr CRPREngine, minMax MinMax, pathAP int, logger zerolog.Logger) *Search {
	tags := newTagPool()
	tagGroups := newTagGroupPool()
	clkInfos := newClkInfoPool()

	s := &Search{
		graph:      g,
		sdc:        sdcColl,
		latches:    latches,
		genClks:    genClks,
		crpr:       crpr,
		network:    net,
		delayCalc:  dc,
		logger:     logger,
		minMax:     minMax,
		pathAP:     pathAP,
		tags:       tags,
		tagGroups:  tagGroups,
		clkInfos:   clkInfos,
		endpoints:    make(map[Vertex]bool),
		invalidTNS:   make(map[Vertex]bool),
		pendingSeeds: make(map[Vertex][]seedEntry),
	}

	s.forward = newBFSQueue(forward, g, 0)
	s.backward = newBFSQueue(backward, g, 0)
	s.mutator = newMutator(g, sdcColl, latches, genClks, crpr, clkInfos, tags)
	s.predicates = newSearchPredicates(g, sdcColl, latches, false)
	s.clkPredicates = clkArrivalPredicates(g, sdcColl, latches)
	s.latchDriver = newLatchLoopDriver(0)
	s.seeder = newSeeder(s, g, sdcColl, net, clkInfos, tags, tagGroups, s.forward, minMax, pathAP)
	s.arrivalVisitor = newArrivalVisitor(s, minMax, pathAP, s.predicates)
	s.requiredVisitor = newRequiredVisitor(s, minMax, pathAP, s.predicates)
	return s
}

// FindArrivals runs the forward search end to end: seed every kind,
// drive the forward BFS to a fixed point, and if the design has
// transparent latches, repeat until the latch loop driver reports no
// more pending D-input recomputations or the pass bound is exceeded.
func (s *Search) FindArrivals() (int, error) {
	s.seeder.SeedClockArrivals()
	s.seeder.SeedInputDelayArrivals()
	s.seeder.SeedUnclockedRoots()
	s.seeder.SeedPathDelayStarts()

	total := 0
	bound := s.MaxLatchPasses
	if bound <= 0 {
		bound = 64
	}
	driver := newLatchLoopDriver(bound)
	s.latchDriver = driver

	err := driver.timedRun(s, func() int {
		changed := s.drainForward()
		total += changed
		return changed
	})
	if err != nil {
		return total, errors.Wrap(err, "find arrivals")
	}
	return total, nil
}

// drainForward runs the forward visitor to a fixed point over whatever
// is currently queued and returns how many vertex visits the drain made
// (see countingVisitor), whether or not a visit changed anything.
func (s *Search) drainForward() int {
	changed := 0
	counting := &countingVisitor{inner: s.arrivalVisitor, count: &changed}
	s.forward.visitParallel(s.graph.MaxLevel(), counting)
	return changed
}

// countingVisitor wraps a VertexVisitor to count vertices visited; since
// ArrivalVisitor already no-ops when nothing changed, "visited" here
// really means "was queued", which is what the latch loop driver's
// changed_vertices log field reports. Search tracks true value-level
// change through invalidateDependents/invalidateTNS instead.
type countingVisitor struct {
	inner VertexVisitor
	count *int
	mu    sync.Mutex
}

func (c *countingVisitor) Copy() VertexVisitor {
	return &countingVisitor{inner: c.inner.Copy(), count: c.count, mu: sync.Mutex{}}
}

func (c *countingVisitor) Visit(v Vertex) {
	c.inner.Visit(v)
	c.mu.Lock()
	*c.count++
	c.mu.Unlock()
}

// FindRequireds runs the backward search: seed every registered endpoint's local
// timing checks and walk the backward queue to a fixed point. Endpoints
// must already be registered via RegisterEndpoint (normally done by
// DiscoverEndpoints).
func (s *Search) FindRequireds() error {
	s.mu.Lock()
	for v := range s.endpoints {
		s.backward.Enqueue(v)
	}
	s.mu.Unlock()

	s.backward.visitParallel(s.graph.MaxLevel(), s.requiredVisitor)
	return nil
}

// DiscoverEndpoints scans the graph for vertices FindRequireds should
// seed from: register/latch data pins reached by a RoleTimingCheck arc,
// and pins named by a set_output_delay constraint. Call once after the
// graph is built (and again after any structural edit); it is cheap
// relative to a search pass since it only walks fanin/collaborator
// metadata, not tags.
func (s *Search) DiscoverEndpoints() {
	outputPins := make(map[Pin]bool, len(s.sdc.OutputDelays()))
	for _, od := range s.sdc.OutputDelays() {
		outputPins[od.Pin] = true
	}
	for _, v := range s.graph.Vertices() {
		if outputPins[v.Pin()] {
			s.RegisterEndpoint(v)
			continue
		}
		for _, e := range s.graph.FaninEdges(v) {
			if e.Role() == RoleTimingCheck {
				s.RegisterEndpoint(v)
				break
			}
		}
	}
}

// RegisterEndpoint marks v as a required-time source for FindRequireds
// and enqueues it into the backward queue immediately.
func (s *Search) RegisterEndpoint(v Vertex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints[v] = true
	s.backward.Enqueue(v)
}

func (s *Search) isEndpoint(v Vertex) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoints[v]
}

// addPendingSeed records a seed kind's contribution to v, consumed by
// ArrivalVisitor.Visit the next time v is dequeued (see seeder.go's
// seedEntry doc comment for why seeding goes through the builder's
// ordinary merge step rather than writing v's tag group directly).
func (s *Search) addPendingSeed(v Vertex, e seedEntry) {
	s.mu.Lock()
	s.pendingSeeds[v] = append(s.pendingSeeds[v], e)
	s.mu.Unlock()
}

// drainPendingSeeds returns and clears v's queued seed contributions.
func (s *Search) drainPendingSeeds(v Vertex) []seedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pendingSeeds[v]
	delete(s.pendingSeeds, v)
	return out
}

// invalidateTNS records v as needing its slack contribution recomputed;
// slack.go's aggregator drains this set incrementally instead of
// re-summing every endpoint on every change.
func (s *Search) invalidateTNS(v Vertex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidTNS[v] = true
}

// drainInvalidTNS returns and clears the set of vertices whose slack
// needs recomputation.
func (s *Search) drainInvalidTNS() []Vertex {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Vertex, 0, len(s.invalidTNS))
	for v := range s.invalidTNS {
		out = append(out, v)
	}
	s.invalidTNS = make(map[Vertex]bool)
	return out
}

// invalidateDependents implements the incremental-update half of the search
// step 5: once a vertex's arrivals change, its own required time (if
// ever computed) is stale, and its slack contribution must be
// recomputed once FindRequireds next runs.
func (s *Search) invalidateDependents(v Vertex) {
	if v.HasRequireds() {
		v.SetHasRequireds(false)
	}
	s.invalidateTNS(v)
	if s.isEndpoint(v) {
		s.backward.Enqueue(v)
	}
}

// enqueueLatchOutputs implements the latch-loop hook: whenever a
// latch's D-input arrival changes, its Q output must be revisited on the
// next pass rather than the current one, since a latch's opening state
// can itself depend on signals still settling this pass.
func (s *Search) enqueueLatchOutputs(v Vertex) {
	for _, e := range s.graph.FanoutEdges(v) {
		if e.Role() == RoleLatchDToQ {
			s.latchDriver.enqueue(e.To())
		}
	}
}

// propagateInputDelayReferences implements the reference-pin input-delay incremental
// half: when a vertex whose pin is named as another input delay's
// -reference_pin changes arrival, that input delay's seed tags are
// rebuilt from the (now current) reference arrival.
func (s *Search) propagateInputDelayReferences(v Vertex) {
	for _, id := range s.sdc.InputDelays() {
		if id.ReferencePin != nil && id.ReferencePin == v.Pin() {
			s.seeder.reseedInputDelay(id)
		}
	}
}

// isPathDelayEndpoint reports whether v is declared as the -to point of
// a set_path_delay exception with no thru list past it, i.e. an internal
// endpoint the search must be allowed to terminate at even though it is
// not a register or primary output (a path-delay internal
// endpoints).
func (s *Search) isPathDelayEndpoint(v Vertex) bool {
	for _, ep := range s.sdc.Exceptions() {
		if ep.Kind != ExceptionPathDelay {
			continue
		}
		if ep.To != nil && ep.To.matchesPin(v.Pin()) {
			return true
		}
	}
	return false
}

// StartFilter begins a filtered pass: it records the
// current pool watermarks so ClearFilter can later discard everything
// interned for this pass, then seeds and drains the forward queue from
// the filter's starting point.
func (s *Search) StartFilter(from *PinPattern) {
	s.filterTagMark = int32(s.tags.pool.Len())
	s.filterTagGroupMark = int32(s.tagGroups.pool.Len())
	s.filterActive = true
	s.seeder.SeedFilterStarts(from)
	s.drainForward()
}

// ClearFilter drops the current filter: tags and tag groups
// interned during the last filtered pass live at the tail of their
// pools (since interning never reuses an index for a structurally new
// value) and are compacted away in one grow-by-copy pass rather than
// swept eagerly vertex by vertex. Vertices are left to lazily discover
// their tag group is now invalid the next time they are visited.
func (s *Search) ClearFilter() {
	if !s.filterActive {
		return
	}
	s.tags.pool.CompactFrom(s.filterTagMark, func(_ tagKey, t *Tag) bool {
		return t.hasFilterState
	})
	s.tagGroups.pool.CompactFrom(s.filterTagGroupMark, func(_ string, g *TagGroup) bool {
		return g.hasFilterTag
	})
	s.filterActive = false
}

// Clear resets all search state: interned pools, both BFS queues, the
// endpoint/TNS bookkeeping, and every vertex's stored tag data. Matches
// the coarse "throw away everything and reseed" reset.
func (s *Search) Clear() {
	s.tags.clear()
	s.tagGroups.clear()
	s.clkInfos.clear()
	s.forward.Clear()
	s.backward.Clear()

	s.mu.Lock()
	s.endpoints = make(map[Vertex]bool)
	s.invalidTNS = make(map[Vertex]bool)
	s.pendingSeeds = make(map[Vertex][]seedEntry)
	s.mu.Unlock()

	for _, v := range s.graph.Vertices() {
		v.SetArrivals(nil)
		v.SetRequireds(nil)
		v.SetHasRequireds(false)
		v.SetPrevPaths(nil)
		v.SetTagGroupIndex(0)
	}
}

// LevelChangedBefore is a network-mutation hook: called once v.Level()
// already reports v's new level, with oldLevel the level it had before,
// it moves any pending queue entry from the oldLevel bucket to the
// bucket of v's current Level() (see bfsQueue.Reenqueue) so the BFS
// ordering invariant keeps holding.
func (s *Search) LevelChangedBefore(v Vertex, oldLevel int) {
	if s.forward.InQueue(v) {
		s.forward.Reenqueue(v, oldLevel)
	}
	if s.backward.InQueue(v) {
		s.backward.Reenqueue(v, oldLevel)
	}
}

// DeleteVertexBefore is a network-mutation hook: called before v is
// removed from the graph, it drops v from every bit of Search-owned
// bookkeeping that might otherwise still reference it.
func (s *Search) DeleteVertexBefore(v Vertex) {
	s.mu.Lock()
	delete(s.endpoints, v)
	delete(s.invalidTNS, v)
	s.mu.Unlock()
}

// ArrivalInvalid marks v (and everything reachable from it) for
// recomputation on the next FindArrivals by re-enqueuing it into the
// forward queue; it does not itself drain the queue.
func (s *Search) ArrivalInvalid(v Vertex) {
	s.forward.Enqueue(v)
}

// RequiredInvalid marks v for required-time recomputation on the next
// FindRequireds.
func (s *Search) RequiredInvalid(v Vertex) {
	v.SetHasRequireds(false)
	s.invalidateTNS(v)
	s.backward.Enqueue(v)
}

// EndpointInvalid is RequiredInvalid plus re-registration as an
// endpoint, for use when a network edit changes whether v is an
// endpoint at all (e.g. a newly added register).
func (s *Search) EndpointInvalid(v Vertex) {
	s.RegisterEndpoint(v)
	s.RequiredInvalid(v)
}
