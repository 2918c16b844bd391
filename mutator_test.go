package stasearch

import "testing"

func newTestMutator(g Graph, sdc Sdc) *mutator {
	return newMutator(g, sdc, nil, nil, nil, newClkInfoPool(), newTagPool())
}

func TestMutateClockTagStaysClockAcrossCombinational(t *testing.T) {
	g := newFakeGraph()
	a := g.addVertex("A", 0, true)
	b := g.addVertex("B", 1, false)
	e := g.connect(a, b, RoleCombinational, fakeNonInverting)

	sdc := newFakeSdc()
	m := newTestMutator(g, sdc)
	ci := &ClkInfo{ClkEdge: &Clock{Name: "clk"}}
	from := newTag(Rise, 0, ci, true, nil, true, nil)

	res := m.Mutate(from, e, Rise, Max, 0)
	if res.Killed {
		t.Fatalf("expected the clock tag to survive a combinational arc, killed: %s", res.Reason)
	}
	if !res.Tag.IsClock {
		t.Fatal("a clock tag crossing a wire/combinational arc must remain a clock tag")
	}
}

func TestMutateClockAsDataBoundaryOnNonCombinational(t *testing.T) {
	g := newFakeGraph()
	a := g.addVertex("A", 0, true)
	b := g.addVertex("B", 1, false)
	e := g.connect(a, b, RoleTristateEnable, fakeNonInverting)

	sdc := newFakeSdc()
	m := newTestMutator(g, sdc)
	ci := &ClkInfo{ClkEdge: &Clock{Name: "clk"}}
	from := newTag(Rise, 0, ci, true, nil, true, nil)

	res := m.Mutate(from, e, Rise, Max, 0)
	if res.Killed {
		t.Fatalf("a clock-as-data transition must not be killed, killed: %s", res.Reason)
	}
	if res.Tag.IsClock {
		t.Fatal("a clock tag crossing a non-wire/combinational arc must become a data tag")
	}
}

func TestMutateKillsCompleteFalsePathForDataTag(t *testing.T) {
	g := newFakeGraph()
	a := g.addVertex("A", 0, false)
	b := g.addVertex("B", 1, false)
	e := g.connect(a, b, RoleCombinational, fakeNonInverting)

	sdc := newFakeSdc()
	m := newTestMutator(g, sdc)
	ep := &ExceptionPath{Kind: ExceptionFalsePath}
	completed := &ExceptionState{Exception: ep, Complete: true}
	from := newTag(Rise, 0, nil, false, nil, false, []*ExceptionState{completed})

	res := m.Mutate(from, e, Rise, Max, 0)
	if !res.Killed {
		t.Fatal("a non-clock tag carrying a completed false-path state must be killed")
	}
}

func TestMutateDoesNotKillCompleteFalsePathForClockTag(t *testing.T) {
	g := newFakeGraph()
	a := g.addVertex("A", 0, true)
	b := g.addVertex("B", 1, false)
	e := g.connect(a, b, RoleCombinational, fakeNonInverting)

	sdc := newFakeSdc()
	m := newTestMutator(g, sdc)
	ep := &ExceptionPath{Kind: ExceptionFalsePath}
	completed := &ExceptionState{Exception: ep, Complete: true}
	ci := &ClkInfo{ClkEdge: &Clock{Name: "clk"}}
	from := newTag(Rise, 0, ci, true, nil, true, []*ExceptionState{completed})

	res := m.Mutate(from, e, Rise, Max, 0)
	if res.Killed {
		t.Fatal("a completed false-path state must not kill the clock carrier itself")
	}
}

func TestMutateAdvancesThruAndKillsOnCompletion(t *testing.T) {
	g := newFakeGraph()
	a := g.addVertex("A", 0, false)
	p := g.addVertex("P", 1, false)
	out := g.addVertex("OUT", 2, false)
	e1 := g.connect(a, p, RoleCombinational, fakeNonInverting)
	e2 := g.connect(p, out, RoleCombinational, fakeNonInverting)

	sdc := newFakeSdc()
	m := newTestMutator(g, sdc)

	thruPat := &PinPattern{Pins: map[Pin]bool{p.pin: true}}
	ep := &ExceptionPath{Kind: ExceptionFalsePath, Thrus: []*PinPattern{thruPat}}
	state := newExceptionStateFromStart(ep)
	from := newTag(Rise, 0, nil, false, nil, true, []*ExceptionState{state})

	// A -> P: the edge's to-pin (P) matches the only -thru, so the state
	// completes but is not itself killed yet (the kill only triggers the
	// NEXT time a non-clock tag carrying a complete-false state crosses
	// another edge).
	mid := m.Mutate(from, e1, Rise, Max, 0)
	if mid.Killed {
		t.Fatalf("reaching the -thru point must not itself kill the path: %s", mid.Reason)
	}
	if !mid.Tag.HasCompleteFalse() {
		t.Fatal("expected the outgoing tag at P to carry a completed false-path state")
	}

	after := m.Mutate(mid.Tag, e2, Rise, Max, 0)
	if !after.Killed {
		t.Fatal("a path that has completed its false-path -thru must be killed on the next edge")
	}
}

func TestMutateRegClkToQRequiresClockOrSegmentStart(t *testing.T) {
	g := newFakeGraph()
	clk := g.addVertex("CLK", 0, true)
	q := g.addVertex("Q", 1, false)
	e := g.connect(clk, q, RoleRegClkToQ, fakeNonInverting)

	sdc := newFakeSdc()
	m := newTestMutator(g, sdc)

	dataFrom := newTag(Rise, 0, nil, false, nil, false, nil)
	res := m.Mutate(dataFrom, e, Rise, Max, 0)
	if !res.Killed {
		t.Fatal("a non-clock, non-segment-start tag must not cross a reg-clk-to-Q arc")
	}

	ci := &ClkInfo{ClkEdge: &Clock{Name: "clk"}}
	clockFrom := newTag(Rise, 0, ci, true, nil, true, nil)
	res2 := m.Mutate(clockFrom, e, Rise, Max, 0)
	if res2.Killed {
		t.Fatalf("a clock tag must cross a reg-clk-to-Q arc, killed: %s", res2.Reason)
	}
}
