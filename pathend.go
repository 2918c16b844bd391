package stasearch

import "sort"

// PathEnd is one reported timing path: an endpoint, the tag that
// identifies its path flavor, and the slack that path produces. Slot is
// the tag's index into the endpoint's own arrival/required/prev-path
// arrays, kept alongside Tag so PathVertices can walk the chain without
// re-searching for which slot the tag occupies.
type PathEnd struct {
	Endpoint  Vertex
	Slot      int
	Tag       *Tag
	Arrival   Arrival
	Required  Arrival
	Slack     Arrival
	PathGroup string
}

// PathEndOptions configures a path-end enumeration (report_timing /
// find_timing_paths). From/Thru/To restrict which paths are considered;
// a nil pointer means "unconstrained" for that point. MaxPaths caps how
// many paths are kept per endpoint (0 = unlimited); NWorst caps the
// final combined, sorted result (0 = unlimited). UniquePins implements
// original_source/search/Search.cc's -unique_pins flag: once a path
// visiting a given ordered pin sequence has been reported, later paths
// sharing that exact sequence are dropped even if their tag differs.
type PathEndOptions struct {
	From       *PinPattern
	Thru       []*PinPattern
	To         *PinPattern
	Group      string
	MaxPaths   int
	NWorst     int
	UniquePins bool
}

// FindPathEnds assumes FindArrivals, DiscoverEndpoints
// and FindRequireds have already been run (or a filtered pass started via
// StartFilter), and enumerates the worst paths matching opts.
func (s *Search) FindPathEnds(opts PathEndOptions) []*PathEnd {
	var all []*PathEnd

	s.mu.Lock()
	endpoints := make([]Vertex, 0, len(s.endpoints))
	for v := range s.endpoints {
		endpoints = append(endpoints, v)
	}
	s.mu.Unlock()

	for _, v := range endpoints {
		if opts.To != nil && !opts.To.matchesPin(v.Pin()) {
			continue
		}
		all = append(all, s.pathEndsAt(v, opts)...)
	}

	sortPathEndsWorstFirst(all)

	if opts.UniquePins {
		all = dedupUniquePins(all)
	}
	if opts.NWorst > 0 && len(all) > opts.NWorst {
		all = all[:opts.NWorst]
	}
	return all
}

func (s *Search) pathEndsAt(v Vertex, opts PathEndOptions) []*PathEnd {
	g := existingTagGroup(v, s.tagGroups)
	if g == nil || !v.HasRequireds() {
		return nil
	}
	arrivals := v.Arrivals()
	requireds := v.Requireds()

	var out []*PathEnd
	for i, t := range g.Tags {
		if opts.From != nil && !s.pathStartsFrom(v, i, opts.From) {
			continue
		}
		if len(opts.Thru) > 0 && !s.pathPassesThru(v, i, opts.Thru) {
			continue
		}
		group := pathGroupName(t)
		if opts.Group != "" && group != opts.Group {
			continue
		}
		var slack Arrival
		if s.minMax == Max {
			slack = requireds[i] - arrivals[i]
		} else {
			slack = arrivals[i] - requireds[i]
		}
		out = append(out, &PathEnd{Endpoint: v, Slot: i, Tag: t, Arrival: arrivals[i], Required: requireds[i], Slack: slack, PathGroup: group})
	}
	sortPathEndsWorstFirst(out)
	if opts.MaxPaths > 0 && len(out) > opts.MaxPaths {
		out = out[:opts.MaxPaths]
	}
	return out
}

// pathGroupName names the path group a tag belongs to: its launch
// clock's name, or the generic unclocked/async group for tags with no
// ClkInfo (grouping generalized from the reference implementation's
// PathGroup::name()).
func pathGroupName(t *Tag) string {
	if t.ClkInfo != nil && t.ClkInfo.ClkEdge != nil {
		return t.ClkInfo.ClkEdge.Name
	}
	if t.InputDelay != nil && t.InputDelay.Clk != nil {
		return t.InputDelay.Clk.Name
	}
	return "**async**"
}

// sortPathEndsWorstFirst sorts by slack ascending: the most negative
// (worst) slack sorts first regardless of corner, since Slack was
// already computed with the corner's sign convention baked in.
func sortPathEndsWorstFirst(ends []*PathEnd) {
	sort.Slice(ends, func(i, j int) bool { return ends[i].Slack < ends[j].Slack })
}

func prevPathAtSlot(v Vertex, slot int) *PrevPath {
	prevPaths := v.PrevPaths()
	if slot < 0 || slot >= len(prevPaths) {
		return nil
	}
	return prevPaths[slot]
}

// PathVertices walks pe's PrevPath chain back to its seed, returning the
// full ordered vertex sequence from launch point to endpoint. Made
// possible by arrivalvisitor.go carrying a PrevPath for every tag, not
// just clock tags — a departure from the un-expanded design's
// memory-saving clock-only storage, since full path reconstruction is
// required for report_timing output.
func PathVertices(pe *PathEnd) []Vertex {
	rev := []Vertex{pe.Endpoint}
	cur, slot := pe.Endpoint, pe.Slot
	for {
		pp := prevPathAtSlot(cur, slot)
		if pp == nil || pp.Vertex == nil {
			break
		}
		rev = append(rev, pp.Vertex)
		cur, slot = pp.Vertex, pp.Slot
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// pathStartsFrom reports whether the path ending in v's slot walks back
// (via PrevPath) to a vertex matched by from.
func (s *Search) pathStartsFrom(v Vertex, slot int, from *PinPattern) bool {
	cur, curSlot := v, slot
	for {
		if from.matchesPin(cur.Pin()) {
			return true
		}
		pp := prevPathAtSlot(cur, curSlot)
		if pp == nil || pp.Vertex == nil {
			return false
		}
		cur, curSlot = pp.Vertex, pp.Slot
	}
}

// pathPassesThru reports whether every pattern in thrus is matched, in
// order, by some vertex walking backward along the chain (a hierarchical
// -thru list is satisfied right-to-left as the walk moves toward the
// launch point).
func (s *Search) pathPassesThru(v Vertex, slot int, thrus []*PinPattern) bool {
	cursor := len(thrus) - 1
	cur, curSlot := v, slot
	for cursor >= 0 {
		if thrus[cursor].matchesPin(cur.Pin()) {
			cursor--
		}
		pp := prevPathAtSlot(cur, curSlot)
		if pp == nil || pp.Vertex == nil {
			break
		}
		cur, curSlot = pp.Vertex, pp.Slot
	}
	return cursor < 0
}

// dedupUniquePins drops later paths whose full reconstructed pin
// sequence duplicates an earlier (already worse-sorted, so
// earlier-is-worse) path's sequence.
func dedupUniquePins(ends []*PathEnd) []*PathEnd {
	seen := make(map[string]bool, len(ends))
	out := make([]*PathEnd, 0, len(ends))
	for _, pe := range ends {
		key := pinSequenceKey(pe)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, pe)
	}
	return out
}

func pinSequenceKey(pe *PathEnd) string {
	var b []byte
	for _, v := range PathVertices(pe) {
		b = append(b, v.Pin().Name()...)
		b = append(b, ',')
	}
	return string(b)
}
