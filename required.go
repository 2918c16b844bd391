package stasearch

import "math"

// RequiredVisitor is the backward per-vertex step of the search: seeded from
// endpoints via the path-end visitor, it propagates `required -
// arc_delay` and enqueues fanin on change.
type RequiredVisitor struct {
	s      *Search
	minMax MinMax
	pathAP int
	pred   *SearchPredicates
	mutate *mutator
}

func newRequiredVisitor(s *Search, minMax MinMax, pathAP int, pred *SearchPredicates) *RequiredVisitor {
	return &RequiredVisitor{s: s, minMax: minMax, pathAP: pathAP, pred: pred, mutate: s.mutator}
}

func (rv *RequiredVisitor) Copy() VertexVisitor {
	return &RequiredVisitor{s: rv.s, minMax: rv.minMax, pathAP: rv.pathAP, pred: rv.pred, mutate: rv.mutate}
}

// initialRequired returns the identity value for the tighter() reduction
// seedFromChecks and Visit fold every constraint through: they always
// combine via tighter(minMax.Opposite(), ...), so the seed has to be the
// identity of that opposite-corner comparison, not of minMax's own — +inf
// for max corner (opposite reduction is a min), -inf for min corner
// (opposite reduction is a max).
func initialRequired(minMax MinMax) Arrival {
	if minMax == Min {
		return Arrival(math.Inf(-1))
	}
	return Arrival(math.Inf(1))
}

func (rv *RequiredVisitor) Visit(v Vertex) {
	g := existingTagGroup(v, rv.s.tagGroups)
	if g == nil {
		return
	}
	requireds := make([]Arrival, len(g.Tags))
	for i := range requireds {
		requireds[i] = initialRequired(rv.minMax)
	}

	if rv.s.isEndpoint(v) {
		rv.seedFromChecks(v, g, requireds)
	}

	for _, e := range rv.s.graph.FanoutEdges(v) {
		if e.Role() == RoleLatchDToQ {
			continue
		}
		if !rv.pred.SearchThru(e, nil) {
			continue
		}
		w := e.To()
		wg := existingTagGroup(w, rv.s.tagGroups)
		if wg == nil {
			continue
		}
		wRequireds := w.Requireds()
		for i, t := range g.Tags {
			for _, arc := range e.ArcSet().Arcs() {
				if t.Transition != arc.From {
					continue
				}
				res := rv.mutate.Mutate(t, e, arc.To, rv.minMax, rv.pathAP)
				toTag := res.Tag
				if res.Killed {
					continue
				}
				slot, ok := wg.Slot(toTag)
				if !ok {
					toTag = rv.crprFallback(wg, toTag)
					slot, ok = wg.Slot(toTag)
					if !ok {
						continue
					}
				}
				delay, err := rv.s.delayCalc.ArcDelay(e, arc, rv.minMax)
				if err != nil {
					continue
				}
				derate := rv.s.delayCalc.Derate(rv.minMax, t.IsClock)
				candidate := wRequireds[slot] - Arrival(delay*derate)
				requireds[i] = tighter(rv.minMax.Opposite(), requireds[i], candidate)
			}
		}
	}

	changed := rv.setRequireds(v, requireds)
	if changed {
		rv.s.backward.enqueueAdjacentVertices(v, func(e Edge) bool {
			return rv.pred.SearchThru(e, nil)
		})
	}
}

// crprFallback implements the "if t' was CRPR-pruned, fall
// back to a tag that matches t' on everything except the CRPR anchor".
func (rv *RequiredVisitor) crprFallback(wg *TagGroup, t *Tag) *Tag {
	if t.ClkInfo == nil || t.ClkInfo.CRPRClkPath == nil {
		return t
	}
	stripped := *t.ClkInfo
	stripped.CRPRClkPath = nil
	for _, cand := range wg.Tags {
		if cand.ClkInfo == nil {
			continue
		}
		strippedCand := *cand.ClkInfo
		strippedCand.CRPRClkPath = nil
		if strippedCand == stripped && cand.Transition == t.Transition && cand.PathAP == t.PathAP {
			return cand
		}
	}
	return t
}

// seedFromChecks seeds required times for endpoint vertices:
// requireds from local timing checks (setup/hold at a register data
// pin, or an output-delay budget at a primary output).
func (rv *RequiredVisitor) seedFromChecks(v Vertex, g *TagGroup, requireds []Arrival) {
	for _, od := range rv.s.sdc.OutputDelays() {
		if od.Pin != v.Pin() {
			continue
		}
		budget := clockEdgeArrival(od.Clk, od.ClkTransition) + Arrival(od.Clk.Period) - Arrival(od.Delay)
		for i := range requireds {
			requireds[i] = tighter(rv.minMax.Opposite(), requireds[i], budget)
		}
	}

	for _, e := range rv.s.graph.FaninEdges(v) {
		if e.Role() != RoleTimingCheck {
			continue
		}
		clkV := e.From()
		clkGroup := existingTagGroup(clkV, rv.s.tagGroups)
		if clkGroup == nil {
			continue
		}
		clkArrivals := clkV.Arrivals()
		for i, ct := range clkGroup.Tags {
			if !ct.IsClock {
				continue
			}
			for _, arc := range e.ArcSet().Arcs() {
				if ct.Transition != arc.From {
					continue
				}
				margin, err := rv.s.delayCalc.CheckMargin(e, arc, rv.minMax)
				if err != nil {
					continue
				}
				budget := checkBudget(rv.minMax, clkArrivals[i], ct, margin)
				for j := range requireds {
					requireds[j] = tighter(rv.minMax.Opposite(), requireds[j], budget)
				}
			}
		}
	}
}

// checkBudget derives the required-time budget a single setup (Max) or
// hold (Min) check contributes: setup measures against the next capture
// edge (clock arrival plus one period), hold against the same launch
// edge. Multicycle path exceptions are not applied: the capture edge is
// always exactly one period out, whatever multicycle value an exception
// carries.
func checkBudget(minMax MinMax, clkArrival Arrival, clkTag *Tag, margin float64) Arrival {
	if minMax == Max {
		period := Arrival(0)
		if clkTag.ClkInfo != nil && clkTag.ClkInfo.ClkEdge != nil {
			period = Arrival(clkTag.ClkInfo.ClkEdge.Period)
		}
		return clkArrival + period - Arrival(margin)
	}
	return clkArrival + Arrival(margin)
}

func (rv *RequiredVisitor) setRequireds(v Vertex, requireds []Arrival) bool {
	old := v.Requireds()
	changed := len(old) != len(requireds) || !v.HasRequireds()
	if !changed {
		for i := range requireds {
			if !fuzzyEqual(old[i], requireds[i]) {
				changed = true
				break
			}
		}
	}
	if changed {
		v.SetRequireds(requireds)
		v.SetHasRequireds(true)
		rv.s.invalidateTNS(v)
	}
	return changed
}
