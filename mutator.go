package stasearch

// mutator implements the exception/tag mutation rules: given a
// from-tag and an edge, it derives the outgoing ClkInfo and Tag, or
// reports that the path is killed (a completed false path, a completed
// loop, or a reg-clk-to-Q/latch-en-to-Q crossing by a tag that is
// neither a clock nor a segment start). Clock-stop rules are not
// modeled.
type mutator struct {
	graph    Graph
	sdc      Sdc
	latches  Latches
	genClks  GenClks
	crpr     CRPREngine
	clkInfos *clkInfoPool
	tags     *tagPool
}

func newMutator(g Graph, sdc Sdc, latches Latches, gen GenClks, crpr CRPREngine, ci *clkInfoPool, tp *tagPool) *mutator {
	return &mutator{graph: g, sdc: sdc, latches: latches, genClks: gen, crpr: crpr, clkInfos: ci, tags: tp}
}

// mutateResult carries the outcome of Mutate: either a usable outgoing
// tag, or Killed=true naming why (for diagnostics/logging only; the
// caller never needs to branch on the reason).
type mutateResult struct {
	Tag    *Tag
	Killed bool
	Reason string
}

// Mutate computes the outgoing tag for fromTag crossing e, arriving with
// data transition toTr, in the given corner/analysis-point. It is the
// single entry point ArrivalVisitor and RequiredVisitor use; role-
// specific rules branch internally on e.Role().
func (m *mutator) Mutate(fromTag *Tag, e Edge, toTr Transition, minMax MinMax, pathAP int) mutateResult {
	toVertex := e.To()

	if fromTag.HasCompleteFalse() && !fromTag.IsClock {
		return mutateResult{Killed: true, Reason: "complete false path"}
	}

	switch e.Role() {
	case RoleLatchDToQ:
		// Admissibility (always-open vs open vs closed) was already
		// decided by SearchThru before Mutate was ever called; the tag
		// itself mutates like any non-clock data arc. ArrivalVisitor
		// substitutes latchDtoQArrival for the arrival value itself
		// since it is not a plain from_arrival+delay sum.
	case RoleRegClkToQ, RoleLatchEnToQ:
		if !fromTag.IsClock || m.isDefaultArrivalClock(fromTag) {
			if !fromTag.IsSegmentStart {
				return mutateResult{Killed: true, Reason: "reg-clk-to-Q requires a clock or segment-start tag"}
			}
		}
	}

	toClkInfo := m.mutateClkInfo(fromTag, e, toVertex, minMax, pathAP)
	toIsClk := m.toIsClock(fromTag, e, toClkInfo)

	states, killed := m.mutateExceptionStates(fromTag, e, toTr, toVertex)
	if killed {
		return mutateResult{Killed: true, Reason: "completed loop or false exception"}
	}

	segStart := fromTag.IsSegmentStart && e.Role() != RoleRegClkToQ && e.Role() != RoleLatchEnToQ
	newTagVal := newTag(toTr, pathAP, toClkInfo, toIsClk, fromTag.InputDelay, segStart, states)
	return mutateResult{Tag: m.tags.intern(newTagVal, fromTag)}
}

// isDefaultArrivalClock reports whether fromTag's clock is the arrival
// clock that requires no explicit reg-clk-to-Q gating (a tag whose
// ClkInfo has no declared source clock at all, i.e. an unclocked
// segment-start reg-clk tag).
func (m *mutator) isDefaultArrivalClock(t *Tag) bool {
	return t.ClkInfo == nil || t.ClkInfo.ClkEdge == nil
}

// toIsClock decides the "clock-as-data boundary" rule: a clock
// tag stays a clock tag only across wire/combinational arcs. No
// clock-stop rule is checked, so every wire or combinational crossing
// keeps a clock tag a clock tag.
func (m *mutator) toIsClock(fromTag *Tag, e Edge, toClkInfo *ClkInfo) bool {
	if !fromTag.IsClock {
		return false
	}
	if !e.Role().isWireOrCombinational() {
		return false
	}
	if toClkInfo != nil && toClkInfo.GenClkSrcPath && m.genClks != nil {
		// still inside the generated-clock source tree
		return true
	}
	return true
}

// mutateClkInfo implements the clock-info mutation rules: pin
// and hierarchical-edge overrides for latency/uncertainty win over the
// clock-level value, pulse-clock sense flips through negative-unate
// arcs, propagated is sticky once any pin declares itself propagated,
// and a register clock pin anchors the CRPR clock path when CRPR is
// active.
func (m *mutator) mutateClkInfo(fromTag *Tag, e Edge, toVertex Vertex, minMax MinMax, pathAP int) *ClkInfo {
	from := fromTag.ClkInfo
	if from == nil {
		return nil
	}
	to := *from // shallow copy; ClkInfo fields are all value types or pointers we intend to share
	changed := false

	toPin := toVertex.Pin()
	if !from.Propagated && m.isPropagatedPin(toPin) {
		to.Propagated = true
		changed = true
	}

	if from.GenClkSrcPath && m.crpr != nil && m.crpr.Active() && toPin.IsClock() {
		to.GenClkSrcPin = toPin
		changed = true
	}

	if m.crpr != nil && m.crpr.Active() && toVertex.IsRegClk() {
		to.CRPRClkPath = &PrevPath{Vertex: toVertex}
		changed = true
	}

	if lat, uncert, ok := m.pinClockOverride(toPin, from.ClkEdge, from.Transition, minMax); ok {
		to.Latency = lat
		to.Uncertainty = uncert
		to.Propagated = false
		changed = true
	} else if lat, ok := m.edgeClockLatency(e, from.ClkEdge, from.Transition, minMax); ok {
		to.Latency = lat
		to.Propagated = false
		changed = true
	}

	if e.ArcSet() != nil {
		for _, arc := range e.ArcSet().Arcs() {
			if arc.From != arc.To {
				// negative-unate arc present in this arc set: flip sense.
				to.PulseSense = opposite(from.PulseSense)
				to.HasPulseSense = from.HasPulseSense
				changed = changed || from.HasPulseSense
				break
			}
		}
	}

	to.PathAP = pathAP
	if !changed {
		return from
	}
	return m.clkInfos.intern(&to)
}

func opposite(tr Transition) Transition {
	if tr == Rise {
		return Fall
	}
	return Rise
}

// isPropagatedPin and the two clock-override lookups below delegate to
// Sdc; the concrete sdc package resolves pin-level vs clock-level
// precedence: a pin value wins over a hierarchical-edge value, which
// wins over a clock-level value.
func (m *mutator) isPropagatedPin(p Pin) bool {
	type propagatedQuerier interface{ IsPropagatedClock(Pin) bool }
	if q, ok := m.sdc.(propagatedQuerier); ok {
		return q.IsPropagatedClock(p)
	}
	return false
}

func (m *mutator) pinClockOverride(p Pin, clk *Clock, tr Transition, minMax MinMax) (latency, uncertainty float64, ok bool) {
	type pinOverrideQuerier interface {
		ClockLatencyAtPin(Pin, *Clock, Transition, MinMax) (float64, float64, bool)
	}
	if q, ok := m.sdc.(pinOverrideQuerier); ok {
		lat, unc, found := q.ClockLatencyAtPin(p, clk, tr, minMax)
		return lat, unc, found
	}
	return 0, 0, false
}

func (m *mutator) edgeClockLatency(e Edge, clk *Clock, tr Transition, minMax MinMax) (float64, bool) {
	type edgeLatencyQuerier interface {
		ClockLatencyAtEdge(Edge, *Clock, Transition, MinMax) (float64, bool)
	}
	if q, ok := m.sdc.(edgeLatencyQuerier); ok {
		return q.ClockLatencyAtEdge(e, clk, tr, minMax)
	}
	return 0, false
}

// mutateExceptionStates implements exception-state mutation: kill
// complete-false non-clock paths, advance -thru cursors (possibly more
// than one per edge), kill on completed loops, drop loop states at
// register clock pins, and union in any new exceptions that start here.
func (m *mutator) mutateExceptionStates(fromTag *Tag, e Edge, toTr Transition, toVertex Vertex) ([]*ExceptionState, bool) {
	fromPin := e.From().Pin()
	toPin := toVertex.Pin()

	var out []*ExceptionState
	for _, s := range fromTag.States {
		if s.isComplete() && s.Exception.isFalse() && !fromTag.IsClock {
			return nil, true
		}
		next := s
		for {
			advanced := next.matchesNextThru(fromPin, toPin, toTr)
			if advanced == nil {
				break
			}
			next = advanced
		}
		if next.isComplete() && next.Exception.isLoopKind() {
			return nil, true
		}
		if toVertex.IsRegClk() && next.Exception.isLoopKind() {
			continue
		}
		out = append(out, next)
	}

	for _, ep := range m.sdc.Exceptions() {
		if ep.From != nil && ep.From.matchesPin(fromPin) {
			out = append(out, newExceptionStateFromStart(ep))
		}
	}

	return out, false
}
