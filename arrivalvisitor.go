package stasearch

// ArrivalVisitor is the forward per-vertex step of the search: it
// combines fanin paths, merges/maximizes per outgoing tag, applies the
// CRPR prune, and enqueues admitted fanout. One instance is owned by the
// Search session; VertexVisitor.Copy() clones its scratch builders for
// each BFS worker.
type ArrivalVisitor struct {
	s        *Search
	minMax   MinMax
	pathAP   int
	pred     *SearchPredicates
	mutate   *mutator
	// scratch, reset per Visit call; only the clone touches these.
	builder    *tagGroupBuilder
	crprShadow *tagGroupBuilder
}

func newArrivalVisitor(s *Search, minMax MinMax, pathAP int, pred *SearchPredicates) *ArrivalVisitor {
	return &ArrivalVisitor{
		s:      s,
		minMax: minMax,
		pathAP: pathAP,
		pred:   pred,
		mutate: s.mutator,
	}
}

// Copy implements VertexVisitor: each worker gets its own scratch
// builders so a level's parallel visits never share mutable state.
func (v *ArrivalVisitor) Copy() VertexVisitor {
	return &ArrivalVisitor{s: v.s, minMax: v.minMax, pathAP: v.pathAP, pred: v.pred, mutate: v.mutate}
}

// Visit implements the five (plus propagation) steps for a
// single vertex.
func (av *ArrivalVisitor) Visit(vert Vertex) {
	av.builder = newTagGroupBuilder(av.minMax)
	prevGroup := existingTagGroup(vert, av.s.tagGroups)
	av.builder.seedFrom(prevGroup, vert.Arrivals(), vert.PrevPaths())

	for _, se := range av.s.drainPendingSeeds(vert) {
		av.builder.set(se.tag, se.arrival, se.prevPath)
	}

	crprActive := av.s.crpr != nil && av.s.crpr.Active()
	fanins := av.s.graph.FaninEdges(vert)
	if crprActive && len(fanins) > 1 {
		av.crprShadow = newTagGroupBuilder(av.minMax)
	}

	for _, e := range fanins {
		if !av.pred.SearchThru(e, av.hasPendingLoopTag) {
			continue
		}
		u := e.From()
		ug := existingTagGroup(u, av.s.tagGroups)
		if ug == nil {
			continue
		}
		uArrivals := u.Arrivals()
		for i, t := range ug.Tags {
			for _, arc := range e.ArcSet().Arcs() {
				av.stepOneArc(vert, e, t, i, uArrivals[i], arc)
			}
		}
	}

	av.seedVertexLocal(vert)

	if av.crprShadow != nil {
		av.pruneCRPR(vert)
	}

	newGroup, newArrivals, newPrevPaths := av.builder.build(av.s.tagGroups)
	changed := av.changed(prevGroup, vert.Arrivals(), newGroup, newArrivals)
	if !changed {
		return
	}

	idx, _ := av.s.tagGroups.internIndexed(newGroup)
	vert.SetTagGroupIndex(int(idx))
	vert.SetArrivals(newArrivals)
	vert.SetPrevPaths(newPrevPaths)

	av.s.invalidateDependents(vert)

	if av.s.latches != nil && av.isLatchD(vert) {
		av.s.enqueueLatchOutputs(vert)
	}

	av.s.forward.enqueueAdjacentVertices(vert, func(e Edge) bool {
		return av.pred.SearchThru(e, av.hasPendingLoopTag) && av.pred.SearchTo(e.To(), av.s.isPathDelayEndpoint)
	})

	av.s.propagateInputDelayReferences(vert)
}

// stepOneArc applies the per-arc propagation step for one (fanin tag, arc) pair.
// fromSlot is fromTag's index within the fanin vertex's TagGroup, kept
// alongside the vertex itself in the resulting PrevPath so callers can
// walk a path all the way back to its seed without re-searching for
// which tag was used at each hop (needed for path reconstruction).
func (av *ArrivalVisitor) stepOneArc(vert Vertex, e Edge, fromTag *Tag, fromSlot int, fromArrival Arrival, arc Arc) {
	if fromTag.Transition != arc.From {
		return
	}
	res := av.mutate.Mutate(fromTag, e, arc.To, av.minMax, av.pathAP)
	if res.Killed {
		return
	}

	var candidate Arrival
	if e.Role() == RoleLatchDToQ {
		c, ok := latchDtoQArrival(av.s, e, fromArrival, arc, av.minMax)
		if !ok {
			return
		}
		candidate = c
	} else {
		delay, err := av.s.delayCalc.ArcDelay(e, arc, av.minMax)
		if err != nil {
			av.s.logger.Warn().Err(err).Msg("arc delay lookup failed")
			return
		}
		derate := av.s.delayCalc.Derate(av.minMax, fromTag.IsClock)
		candidate = fromArrival + Arrival(delay*derate)

		// At the clock-to-data boundary, an ideal (non-propagated) clock
		// carries its latency implicitly rather than through walked arcs;
		// fold it in here since it is never reflected in fromArrival
		// otherwise. Insertion is not added again: SeedClockArrivals
		// already put it into the clock arrival.
		if (e.Role() == RoleRegClkToQ || e.Role() == RoleLatchEnToQ) && fromTag.IsClock && fromTag.ClkInfo != nil && !fromTag.ClkInfo.Propagated {
			candidate += Arrival(fromTag.ClkInfo.Latency)
		}
	}

	pp := &PrevPath{Vertex: e.From(), Slot: fromSlot, Arc: e}
	av.builder.set(res.Tag, candidate, pp)
	if av.crprShadow != nil {
		av.crprShadow.set(av.crprKey(res.Tag), candidate, pp)
	}
}

// crprKey returns the tag to key the CRPR shadow builder on: identical
// to t except for the CRPR-clock-path anchor.
func (av *ArrivalVisitor) crprKey(t *Tag) *Tag {
	if t.ClkInfo == nil || t.ClkInfo.CRPRClkPath == nil {
		return t
	}
	stripped := *t.ClkInfo
	stripped.CRPRClkPath = nil
	ci := av.s.clkInfos.intern(&stripped)
	shadow := newTag(t.Transition, t.PathAP, ci, t.IsClock, t.InputDelay, t.IsSegmentStart, t.States)
	return av.s.tags.intern(shadow, nil)
}

// pruneCRPR implements the CRPR pruning pass: any tag whose slack
// advantage over its CRPR-shadow sibling is smaller than the maximum
// possible same-clock CRPR credit gets dropped from the builder, per the
// data-model invariant on CRPR-pruned tags.
func (av *ArrivalVisitor) pruneCRPR(vert Vertex) {
	for _, t := range append([]*Tag(nil), av.builder.tags...) {
		if t.ClkInfo == nil || t.ClkInfo.CRPRClkPath == nil {
			continue
		}
		shadowVal, ok := av.crprShadow.get(av.crprKey(t))
		if !ok {
			continue
		}
		actual, _ := av.builder.get(t)
		credit := av.s.crpr.MaxCRPR(t.ClkInfo)
		advantage := float64(actual - shadowVal)
		if av.minMax == Min {
			advantage = -advantage
		}
		if advantage < credit-fuzzyTolerance {
			av.builder.remove(t)
		}
	}
}

// seedVertexLocal applies vertex-local seeding on top of fanin-derived
// tags: internal input-delay and unclocked reg-clk. Internal path-delay
// starts are seeded once, up front, by seeder.go's SeedPathDelayStarts
// rather than per-visit here, since a path-delay -from pin's exception
// state (tracked for its own -thru/-to completion) does not need
// per-visit reconciliation the way an input delay's reference-pin base
// arrival does.
func (av *ArrivalVisitor) seedVertexLocal(vert Vertex) {
	for _, id := range av.s.sdc.InputDelaysAt(vert.Pin()) {
		ci := av.s.clkInfos.intern(&ClkInfo{ClkEdge: id.Clk, Transition: id.ClkTransition, SourcePin: id.Clk.SourcePin, Propagated: id.Clk.Propagated, PathAP: av.pathAP})
		for _, tr := range []Transition{Rise, Fall} {
			t := av.s.tags.intern(newTag(tr, av.pathAP, ci, false, id, true, nil), nil)
			av.builder.set(t, clockEdgeArrival(id.Clk, id.ClkTransition)+Arrival(id.Delay), nil)
		}
	}
	if vert.IsRegClk() {
		if _, ok := av.s.sdc.ClockAt(vert.Pin()); !ok {
			t := av.s.tags.intern(newTag(Rise, av.pathAP, nil, true, nil, true, nil), nil)
			av.builder.set(t, 0, nil)
		}
	}
}

func (av *ArrivalVisitor) changed(prevGroup *TagGroup, prevArrivals []Arrival, newGroup *TagGroup, newArrivals []Arrival) bool {
	if prevGroup != newGroup {
		return true
	}
	for i := range newArrivals {
		if !fuzzyEqual(prevArrivals[i], newArrivals[i]) {
			return true
		}
	}
	return false
}

func (av *ArrivalVisitor) hasPendingLoopTag(e Edge) bool {
	g := existingTagGroup(e.From(), av.s.tagGroups)
	return g != nil && g.hasLoopTag
}

func (av *ArrivalVisitor) isLatchD(v Vertex) bool {
	for _, e := range av.s.graph.FanoutEdges(v) {
		if e.Role() == RoleLatchDToQ {
			return true
		}
	}
	return false
}
