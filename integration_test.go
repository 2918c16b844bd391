package stasearch_test

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/eda-tools/stasearch/delaycalc"
	"github.com/eda-tools/stasearch/graph"
	"github.com/eda-tools/stasearch/sdc"

	sta "github.com/eda-tools/stasearch"
)

// TestCombinationalChainArrivalAndSlack exercises a pure combinational
// fanout: clk -> IN -> G1 -> G2 -> OUT, a 10ns clock, 1ns input delay at
// IN, 2ns output delay at OUT, and two gates with arc delays 0.4/0.5. The
// expected Max-corner arrival at OUT is 1.9 (1 + 0.4 + 0.5), required is
// 8 (0 + 10 - 2), slack 6.1.
func TestCombinationalChainArrivalAndSlack(t *testing.T) {
	g := graph.New()
	mustAddPin := func(inst, name string, isClock bool) *graph.Vertex {
		v, err := g.AddPin(inst, name, isClock)
		if err != nil {
			t.Fatalf("AddPin(%s,%s): %v", inst, name, err)
		}
		return v
	}

	clkV := mustAddPin("top", "clk", true)
	inV := mustAddPin("top", "IN", false)
	g1V := mustAddPin("u1", "Z", false)
	g2V := mustAddPin("u2", "Z", false)
	outV := mustAddPin("top", "OUT", false)

	g.Connect(inV, g1V, sta.RoleCombinational, graph.NonInvertingArcSet)
	g.Connect(g1V, g2V, sta.RoleCombinational, graph.NonInvertingArcSet)
	g.Connect(g2V, outV, sta.RoleCombinational, graph.NonInvertingArcSet)
	g.Levelize()

	dc := delaycalc.New(nil)
	dc.SetDelayBothCorners(g.FaninEdges(g1V)[0], sta.Arc{From: sta.Rise, To: sta.Rise}, 0)
	dc.SetDelayBothCorners(g.FaninEdges(g1V)[0], sta.Arc{From: sta.Fall, To: sta.Fall}, 0)
	dc.SetDelayBothCorners(g.FaninEdges(g2V)[0], sta.Arc{From: sta.Rise, To: sta.Rise}, 0.4)
	dc.SetDelayBothCorners(g.FaninEdges(g2V)[0], sta.Arc{From: sta.Fall, To: sta.Fall}, 0.4)
	dc.SetDelayBothCorners(g.FaninEdges(outV)[0], sta.Arc{From: sta.Rise, To: sta.Rise}, 0.5)
	dc.SetDelayBothCorners(g.FaninEdges(outV)[0], sta.Arc{From: sta.Fall, To: sta.Fall}, 0.5)

	sdcObj := sdc.New()
	clk := &sta.Clock{
		Name: "clk", Period: 10, SourcePin: clkV.Pin(),
		Insertion: map[sta.Transition]float64{sta.Rise: 0, sta.Fall: 0},
		Latency:   map[sta.Transition]float64{sta.Rise: 0, sta.Fall: 0},
	}
	sdcObj.AddClock(clk)
	sdcObj.SetInputDelay(&sta.InputDelay{Pin: inV.Pin(), Clk: clk, ClkTransition: sta.Rise, Delay: 1})
	sdcObj.SetOutputDelay(&sta.OutputDelay{Pin: outV.Pin(), Clk: clk, ClkTransition: sta.Rise, Delay: 2})

	search := sta.NewSearch(g, sdcObj, g, dc, nil, nil, nil, sta.Max, 0, zerolog.Nop())
	if _, err := search.FindArrivals(); err != nil {
		t.Fatalf("FindArrivals: %v", err)
	}
	search.DiscoverEndpoints()
	if err := search.FindRequireds(); err != nil {
		t.Fatalf("FindRequireds: %v", err)
	}

	arrivals := outV.Arrivals()
	if len(arrivals) == 0 {
		t.Fatal("expected OUT to carry at least one arrival tag")
	}
	if got, want := arrivals[0], sta.Arrival(1.9); !closeEnough(got, want) {
		t.Fatalf("expected arrival(OUT) = %v, got %v", want, got)
	}

	requireds := outV.Requireds()
	if len(requireds) == 0 {
		t.Fatal("expected OUT to carry at least one required tag")
	}
	if got, want := requireds[0], sta.Arrival(8); !closeEnough(got, want) {
		t.Fatalf("expected required(OUT) = %v, got %v", want, got)
	}

	tracker := sta.NewSlackTracker(search)
	tracker.Update()
	wns, ok := tracker.WNS()
	if !ok {
		t.Fatal("expected a WNS value once OUT's slack has been aggregated")
	}
	if got, want := wns, sta.Arrival(6.1); !closeEnough(got, want) {
		t.Fatalf("expected WNS = %v, got %v", want, got)
	}
}

// TestTransparentLatchBorrowsEnableOpenTime exercises a single D -> Q
// transparent latch stage whose enable is permanently open: the D->Q
// arrival is max(from_arrival, enable_open_time) + arc_delay rather than a
// plain sum.
func TestTransparentLatchBorrowsEnableOpenTime(t *testing.T) {
	g := graph.New()
	clkV, _ := g.AddPin("top", "clk", true)
	dV, _ := g.AddPin("top", "D", false)
	qV, _ := g.AddPin("u1", "Q", false)

	latchEdge := g.Connect(dV, qV, sta.RoleLatchDToQ, graph.NonInvertingArcSet)
	g.Levelize()

	dc := delaycalc.New(nil)
	dc.SetDelayBothCorners(latchEdge, sta.Arc{From: sta.Rise, To: sta.Rise}, 0.2)
	dc.SetDelayBothCorners(latchEdge, sta.Arc{From: sta.Fall, To: sta.Fall}, 0.2)

	sdcObj := sdc.New()
	clk := &sta.Clock{
		Name: "clk", Period: 10, SourcePin: clkV.Pin(),
		Insertion: map[sta.Transition]float64{sta.Rise: 0, sta.Fall: 0},
		Latency:   map[sta.Transition]float64{sta.Rise: 0, sta.Fall: 0},
	}
	sdcObj.AddClock(clk)
	sdcObj.SetInputDelay(&sta.InputDelay{Pin: dV.Pin(), Clk: clk, ClkTransition: sta.Rise, Delay: 3})

	latches := alwaysOpenLatch{edge: latchEdge, openAtTime: 0}
	search := sta.NewSearch(g, sdcObj, g, dc, latches, nil, nil, sta.Max, 0, zerolog.Nop())
	if _, err := search.FindArrivals(); err != nil {
		t.Fatalf("FindArrivals: %v", err)
	}

	arrivals := qV.Arrivals()
	if len(arrivals) == 0 {
		t.Fatal("expected Q to carry at least one arrival tag")
	}
	// D arrives at 3 (input delay), the enable opens at 0, so
	// max(3, 0) + 0.2 = 3.2.
	if got, want := arrivals[0], sta.Arrival(3.2); !closeEnough(got, want) {
		t.Fatalf("expected arrival(Q) = %v, got %v", want, got)
	}
}

type alwaysOpenLatch struct {
	edge       *graph.Edge
	openAtTime sta.Arrival
}

func (l alwaysOpenLatch) IsLatchDtoQ(e sta.Edge) bool { return e == sta.Edge(l.edge) }
func (l alwaysOpenLatch) LatchDtoQState(e sta.Edge) sta.LatchDtoQState {
	if l.IsLatchDtoQ(e) {
		return sta.LatchAlwaysOpen
	}
	return sta.LatchClosed
}
func (l alwaysOpenLatch) LatchEnablePath(e sta.Edge) (sta.Arrival, bool) {
	if l.IsLatchDtoQ(e) {
		return l.openAtTime, true
	}
	return 0, false
}

// TestFalsePathKillsDownstreamPropagation exercises set_false_path -from
// IN: the exception state is unioned onto the tag the first time it
// crosses an edge sourced at IN, completes immediately (no -thru list),
// and kills the tag on the very next edge it tries to cross, so OUT never
// receives an arrival from IN at all.
func TestFalsePathKillsDownstreamPropagation(t *testing.T) {
	g := graph.New()
	clkV, _ := g.AddPin("top", "clk", true)
	inV, _ := g.AddPin("top", "IN", false)
	g1V, _ := g.AddPin("u1", "Z", false)
	outV, _ := g.AddPin("top", "OUT", false)

	g.Connect(inV, g1V, sta.RoleCombinational, graph.NonInvertingArcSet)
	g.Connect(g1V, outV, sta.RoleCombinational, graph.NonInvertingArcSet)
	g.Levelize()

	dc := delaycalc.New(nil)
	dc.SetDelayBothCorners(g.FaninEdges(g1V)[0], sta.Arc{From: sta.Rise, To: sta.Rise}, 0.1)
	dc.SetDelayBothCorners(g.FaninEdges(g1V)[0], sta.Arc{From: sta.Fall, To: sta.Fall}, 0.1)
	dc.SetDelayBothCorners(g.FaninEdges(outV)[0], sta.Arc{From: sta.Rise, To: sta.Rise}, 0.1)
	dc.SetDelayBothCorners(g.FaninEdges(outV)[0], sta.Arc{From: sta.Fall, To: sta.Fall}, 0.1)

	sdcObj := sdc.New()
	clk := &sta.Clock{
		Name: "clk", Period: 10, SourcePin: clkV.Pin(),
		Insertion: map[sta.Transition]float64{sta.Rise: 0, sta.Fall: 0},
		Latency:   map[sta.Transition]float64{sta.Rise: 0, sta.Fall: 0},
	}
	sdcObj.AddClock(clk)
	sdcObj.SetInputDelay(&sta.InputDelay{Pin: inV.Pin(), Clk: clk, ClkTransition: sta.Rise, Delay: 1})
	sdcObj.AddException(&sta.ExceptionPath{
		Kind: sta.ExceptionFalsePath,
		From: &sta.PinPattern{Pins: map[sta.Pin]bool{inV.Pin(): true}},
		Name: "fp1",
	})

	search := sta.NewSearch(g, sdcObj, g, dc, nil, nil, nil, sta.Max, 0, zerolog.Nop())
	if _, err := search.FindArrivals(); err != nil {
		t.Fatalf("FindArrivals: %v", err)
	}

	if arrivals := outV.Arrivals(); len(arrivals) != 0 {
		t.Fatalf("expected the false path to kill every tag before OUT, got %d surviving tags", len(arrivals))
	}
}

// TestInputDelayReferencePinUsesPropagatedClockPath checks that a
// set_input_delay -reference_pin REF measures its base arrival from
// REF's own propagated clock-path arrival (which includes insertion
// delay) rather than the clock's raw edge time.
func TestInputDelayReferencePinUsesPropagatedClockPath(t *testing.T) {
	g := graph.New()
	refV, _ := g.AddPin("top", "REF", true)
	d1V, _ := g.AddPin("top", "D1", false)
	d2V, _ := g.AddPin("top", "D2", false)
	g.Levelize()

	dc := delaycalc.New(nil)
	sdcObj := sdc.New()
	clk := &sta.Clock{
		Name: "clk", Period: 10, SourcePin: refV.Pin(),
		Insertion: map[sta.Transition]float64{sta.Rise: 1.5, sta.Fall: 1.5},
		Latency:   map[sta.Transition]float64{sta.Rise: 0, sta.Fall: 0},
	}
	sdcObj.AddClock(clk)
	sdcObj.SetInputDelay(&sta.InputDelay{Pin: d1V.Pin(), Clk: clk, ClkTransition: sta.Rise, Delay: 1})
	sdcObj.SetInputDelay(&sta.InputDelay{Pin: d2V.Pin(), Clk: clk, ClkTransition: sta.Rise, Delay: 1, ReferencePin: refV.Pin()})

	search := sta.NewSearch(g, sdcObj, g, dc, nil, nil, nil, sta.Max, 0, zerolog.Nop())
	if _, err := search.FindArrivals(); err != nil {
		t.Fatalf("FindArrivals: %v", err)
	}

	d1arr := d1V.Arrivals()
	d2arr := d2V.Arrivals()
	if len(d1arr) == 0 || len(d2arr) == 0 {
		t.Fatal("expected both D1 and D2 to carry an arrival tag")
	}
	// D1 (no reference pin) is measured from the raw clock edge: 0 + 1 = 1.
	if got, want := d1arr[0], sta.Arrival(1); !closeEnough(got, want) {
		t.Fatalf("expected arrival(D1) = %v, got %v", want, got)
	}
	// D2 (-reference_pin REF) is measured from REF's propagated clock-path
	// arrival, which includes the 1.5ns insertion delay: 1.5 + 1 = 2.5.
	if got, want := d2arr[0], sta.Arrival(2.5); !closeEnough(got, want) {
		t.Fatalf("expected arrival(D2) = %v (picking up REF's insertion delay), got %v", want, got)
	}
}

// TestIdealClockLatencyFoldsInAtRegClkToQ checks that a non-propagated
// (ideal) clock's declared latency reaches a register's Q pin even
// though it is never walked as a propagated arc: the clock pin's own
// arrival only carries the clock edge, and the reg-clk-to-Q crossing
// must fold the latency in on top of that.
func TestIdealClockLatencyFoldsInAtRegClkToQ(t *testing.T) {
	g := graph.New()
	clkV, _ := g.AddPin("top", "clk", true)
	qV, _ := g.AddPin("u1", "Q", false)
	clkV.SetRegClk(true)

	regClkToQ := g.Connect(clkV, qV, sta.RoleRegClkToQ, graph.NonInvertingArcSet)
	g.Levelize()

	dc := delaycalc.New(nil)
	dc.SetDelayBothCorners(regClkToQ, sta.Arc{From: sta.Rise, To: sta.Rise}, 0.3)
	dc.SetDelayBothCorners(regClkToQ, sta.Arc{From: sta.Fall, To: sta.Fall}, 0.3)

	sdcObj := sdc.New()
	clk := &sta.Clock{
		Name: "clk", Period: 10, SourcePin: clkV.Pin(),
		Insertion: map[sta.Transition]float64{sta.Rise: 0, sta.Fall: 0},
		Latency:   map[sta.Transition]float64{sta.Rise: 1.2, sta.Fall: 1.2},
	}
	sdcObj.AddClock(clk)

	search := sta.NewSearch(g, sdcObj, g, dc, nil, nil, nil, sta.Max, 0, zerolog.Nop())
	if _, err := search.FindArrivals(); err != nil {
		t.Fatalf("FindArrivals: %v", err)
	}

	arrivals := qV.Arrivals()
	if len(arrivals) == 0 {
		t.Fatal("expected Q to carry at least one arrival tag")
	}
	// clk arrives at edge time 0; the reg-clk-to-Q arc adds its own 0.3ns
	// delay plus the ideal clock's latency (1.2ns), never walked as a
	// propagated arc: 0 + 0.3 + 1.2 = 1.5.
	if got, want := arrivals[0], sta.Arrival(1.5); !closeEnough(got, want) {
		t.Fatalf("expected arrival(Q) = %v, got %v", want, got)
	}
}

// TestPropagatedClockLatencyDoesNotFoldInAtRegClkToQ checks the
// complementary case: once a clock is declared propagated, its
// insertion+latency is expected to already be reflected through the
// walked arcs, so the reg-clk-to-Q crossing must not add it a second
// time.
func TestPropagatedClockLatencyDoesNotFoldInAtRegClkToQ(t *testing.T) {
	g := graph.New()
	clkV, _ := g.AddPin("top", "clk", true)
	qV, _ := g.AddPin("u1", "Q", false)
	clkV.SetRegClk(true)

	regClkToQ := g.Connect(clkV, qV, sta.RoleRegClkToQ, graph.NonInvertingArcSet)
	g.Levelize()

	dc := delaycalc.New(nil)
	dc.SetDelayBothCorners(regClkToQ, sta.Arc{From: sta.Rise, To: sta.Rise}, 0.3)
	dc.SetDelayBothCorners(regClkToQ, sta.Arc{From: sta.Fall, To: sta.Fall}, 0.3)

	sdcObj := sdc.New()
	clk := &sta.Clock{
		Name: "clk", Period: 10, SourcePin: clkV.Pin(), Propagated: true,
		Insertion: map[sta.Transition]float64{sta.Rise: 0, sta.Fall: 0},
		Latency:   map[sta.Transition]float64{sta.Rise: 1.2, sta.Fall: 1.2},
	}
	sdcObj.AddClock(clk)

	search := sta.NewSearch(g, sdcObj, g, dc, nil, nil, nil, sta.Max, 0, zerolog.Nop())
	if _, err := search.FindArrivals(); err != nil {
		t.Fatalf("FindArrivals: %v", err)
	}

	arrivals := qV.Arrivals()
	if len(arrivals) == 0 {
		t.Fatal("expected Q to carry at least one arrival tag")
	}
	// clk arrives at edge time 0; the reg-clk-to-Q arc adds only its own
	// 0.3ns delay since the clock is propagated: 0 + 0.3 = 0.3.
	if got, want := arrivals[0], sta.Arrival(0.3); !closeEnough(got, want) {
		t.Fatalf("expected arrival(Q) = %v, got %v", want, got)
	}
}

// TestPathDelayStartSeedsInternalLaunchPin checks that a set_path_delay
// exception's -from pin gets its own zero-arrival segment-start seed
// even though it is neither a clock pin nor a set_input_delay pin: G1
// has no declared clock or input delay, so without the path-delay-start
// seed it would never carry an arrival tag at all and the chain below it
// would stay silent.
func TestPathDelayStartSeedsInternalLaunchPin(t *testing.T) {
	g := graph.New()
	g1V, _ := g.AddPin("u1", "Z", false)
	g2V, _ := g.AddPin("u2", "Z", false)
	outV, _ := g.AddPin("top", "OUT", false)

	g.Connect(g1V, g2V, sta.RoleCombinational, graph.NonInvertingArcSet)
	g.Connect(g2V, outV, sta.RoleCombinational, graph.NonInvertingArcSet)
	g.Levelize()

	dc := delaycalc.New(nil)
	dc.SetDelayBothCorners(g.FaninEdges(g2V)[0], sta.Arc{From: sta.Rise, To: sta.Rise}, 0.3)
	dc.SetDelayBothCorners(g.FaninEdges(g2V)[0], sta.Arc{From: sta.Fall, To: sta.Fall}, 0.3)
	dc.SetDelayBothCorners(g.FaninEdges(outV)[0], sta.Arc{From: sta.Rise, To: sta.Rise}, 0.4)
	dc.SetDelayBothCorners(g.FaninEdges(outV)[0], sta.Arc{From: sta.Fall, To: sta.Fall}, 0.4)

	sdcObj := sdc.New()
	sdcObj.AddException(&sta.ExceptionPath{
		Kind:  sta.ExceptionPathDelay,
		From:  &sta.PinPattern{Pins: map[sta.Pin]bool{g1V.Pin(): true}},
		To:    &sta.PinPattern{Pins: map[sta.Pin]bool{outV.Pin(): true}},
		Value: 5,
		Name:  "pd1",
	})

	search := sta.NewSearch(g, sdcObj, g, dc, nil, nil, nil, sta.Max, 0, zerolog.Nop())
	if _, err := search.FindArrivals(); err != nil {
		t.Fatalf("FindArrivals: %v", err)
	}

	arrivals := outV.Arrivals()
	if len(arrivals) == 0 {
		t.Fatal("expected OUT to carry at least one arrival tag seeded from the path-delay start")
	}
	if got, want := arrivals[0], sta.Arrival(0.7); !closeEnough(got, want) {
		t.Fatalf("expected arrival(OUT) = %v, got %v", want, got)
	}
}

func closeEnough(a, b sta.Arrival) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-6
}
