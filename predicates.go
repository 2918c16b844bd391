package stasearch

// SearchPredicates decides edge and vertex admissibility for a forward
// or backward BFS pass. It is deliberately a small capability record
// rather than an interface hierarchy: the core needs exactly the checks
// below, and different passes (full arrival, clock-only, filtered) wire
// different combinations of them together.
type SearchPredicates struct {
	graph               Graph
	sdc                 Sdc
	latches             Latches
	dynamicLoopBreaking bool
	// clkOnly restricts traversal to wire/combinational edges, used by
	// the pure clock-propagation pass (clkArrivalPred).
	clkOnly bool
}

func newSearchPredicates(g Graph, sdc Sdc, latches Latches, clkOnly bool) *SearchPredicates {
	return &SearchPredicates{
		graph:               g,
		sdc:                 sdc,
		latches:             latches,
		dynamicLoopBreaking: sdc.DynamicLoopBreaking(),
		clkOnly:             clkOnly,
	}
}

// SearchThru reports whether the forward/backward search should follow
// edge at all, independent of any particular tag. Not
// disabled, not a timing-check arc, not a stranded loop edge (unless
// dynamic loop breaking is on and the loop check below passes), and for
// latch D->Q, only when the latch is always-open. A merely open or a
// closed latch's D->Q edge is not traversed at all: the latch loop
// driver only re-enqueues Q outputs, and their Visit checks the same
// D->Q edge here again.
func (p *SearchPredicates) SearchThru(e Edge, hasPendingLoopTag func(Edge) bool) bool {
	if e.Role() == RoleTimingCheck {
		return false
	}
	if e.IsDisabledLoop() {
		if !p.dynamicLoopBreaking || hasPendingLoopTag == nil || !hasPendingLoopTag(e) {
			return false
		}
	}
	if e.Role() == RoleLatchDToQ {
		if p.latches == nil || p.latches.LatchDtoQState(e) != LatchAlwaysOpen {
			return false
		}
	}
	if p.clkOnly && !e.Role().isWireOrCombinational() {
		return false
	}
	return true
}

// SearchTo reports whether v is a legal destination for propagation: it
// excludes clock-defined pins unless that pin is also declared as a
// path-delay internal endpoint (pathDelayEndpoint).
func (p *SearchPredicates) SearchTo(v Vertex, pathDelayEndpoint func(Vertex) bool) bool {
	if v.Pin().IsClock() {
		return pathDelayEndpoint != nil && pathDelayEndpoint(v)
	}
	return true
}

// clkArrivalPredicates builds the restricted predicate set used for pure
// clock-tree propagation passes.
func clkArrivalPredicates(g Graph, sdc Sdc, latches Latches) *SearchPredicates {
	return newSearchPredicates(g, sdc, latches, true)
}
