// Copyright 2024 The stasearch Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/eda-tools/stasearch/delaycalc"
	"github.com/eda-tools/stasearch/graph"
	"github.com/eda-tools/stasearch/sdc"

	sta "github.com/eda-tools/stasearch"
)

// fixture bundles a small hand-built graph with the collaborators needed
// to run a search against it, so report-timing/report-wns-tns have a
// concrete design to load without a real netlist/SDC reader.
type fixture struct {
	graph  *graph.Graph
	sdcObj *sdc.Sdc
	dc     *delaycalc.Table
	search *sta.Search
}

func loadFixture(name string, logger zerolog.Logger) (*fixture, error) {
	switch name {
	case "s1":
		return loadS1(logger)
	case "s2":
		return loadS2(logger)
	default:
		return nil, fmt.Errorf("unknown fixture %q (want s1 or s2)", name)
	}
}

// loadS1 builds a pure-combinational chain clk -> IN -> G1 -> G2 -> OUT:
// a 10ns clock, 1ns input delay at IN, 2ns output delay at OUT, and two
// non-inverting gates with arc delays 0.4/0.5.
// The expected Max-corner result at OUT is arrival=1.9, required=8,
// slack=6.1.
func loadS1(logger zerolog.Logger) (*fixture, error) {
	g := graph.New()

	clkV, err := g.AddPin("top", "clk", true)
	if err != nil {
		return nil, err
	}
	inV, err := g.AddPin("top", "IN", false)
	if err != nil {
		return nil, err
	}
	g1V, err := g.AddPin("u1", "Z", false)
	if err != nil {
		return nil, err
	}
	g2V, err := g.AddPin("u2", "Z", false)
	if err != nil {
		return nil, err
	}
	outV, err := g.AddPin("top", "OUT", false)
	if err != nil {
		return nil, err
	}

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
	clkPin := clkV.Pin()
	clk := &sta.Clock{
		Name:      "clk",
		Period:    10,
		RiseEdge:  0,
		FallEdge:  5,
		SourcePin: clkPin,
		Insertion: map[sta.Transition]float64{sta.Rise: 0, sta.Fall: 0},
		Latency:   map[sta.Transition]float64{sta.Rise: 0, sta.Fall: 0},
	}
	sdcObj.AddClock(clk)
	sdcObj.SetInputDelay(&sta.InputDelay{Pin: inV.Pin(), Clk: clk, ClkTransition: sta.Rise, Delay: 1})
	sdcObj.SetOutputDelay(&sta.OutputDelay{Pin: outV.Pin(), Clk: clk, ClkTransition: sta.Rise, Delay: 2})

	search := sta.NewSearch(g, sdcObj, g, dc, nil, nil, nil, sta.Max, 0, logger)

	return &fixture{graph: g, sdcObj: sdcObj, dc: dc, search: search}, nil
}

// loadS2 builds a single transparent-latch stage D -> Q: the latch's
// enable is always open (toyLatches), so the D->Q edge's arrival is
// max(from_arrival, enable_open_time) + arc_delay, exercising
// latchDtoQArrival instead of a plain delay sum.
func loadS2(logger zerolog.Logger) (*fixture, error) {
	g := graph.New()

	clkV, err := g.AddPin("top", "clk", true)
	if err != nil {
		return nil, err
	}
	dV, err := g.AddPin("top", "D", false)
	if err != nil {
		return nil, err
	}
	qV, err := g.AddPin("u1", "Q", false)
	if err != nil {
		return nil, err
	}

	latchEdge := g.Connect(dV, qV, sta.RoleLatchDToQ, graph.NonInvertingArcSet)
	g.Levelize()

	dc := delaycalc.New(nil)
	dc.SetDelayBothCorners(latchEdge, sta.Arc{From: sta.Rise, To: sta.Rise}, 0.2)
	dc.SetDelayBothCorners(latchEdge, sta.Arc{From: sta.Fall, To: sta.Fall}, 0.2)

	sdcObj := sdc.New()
	clkPin := clkV.Pin()
	clk := &sta.Clock{
		Name:      "clk",
		Period:    10,
		RiseEdge:  0,
		FallEdge:  5,
		SourcePin: clkPin,
		Insertion: map[sta.Transition]float64{sta.Rise: 0, sta.Fall: 0},
		Latency:   map[sta.Transition]float64{sta.Rise: 0, sta.Fall: 0},
	}
	sdcObj.AddClock(clk)
	sdcObj.SetInputDelay(&sta.InputDelay{Pin: dV.Pin(), Clk: clk, ClkTransition: sta.Rise, Delay: 3})
	sdcObj.SetOutputDelay(&sta.OutputDelay{Pin: qV.Pin(), Clk: clk, ClkTransition: sta.Rise, Delay: 0})

	latches := toyLatches{edge: latchEdge}
	search := sta.NewSearch(g, sdcObj, g, dc, latches, nil, nil, sta.Max, 0, logger)

	return &fixture{graph: g, sdcObj: sdcObj, dc: dc, search: search}, nil
}

// toyLatches is a fixed-topology sta.Latches for the loadS2 fixture: its
// one latch edge is permanently open, with a constant enable-open time,
// good enough to exercise the latch time-borrowing formula without a
// generated-clock model.
type toyLatches struct {
	edge        *graph.Edge
	openAtTime  sta.Arrival
}

func (t toyLatches) IsLatchDtoQ(e sta.Edge) bool {
	return e == sta.Edge(t.edge)
}

func (t toyLatches) LatchDtoQState(e sta.Edge) sta.LatchDtoQState {
	if t.IsLatchDtoQ(e) {
		return sta.LatchAlwaysOpen
	}
	return sta.LatchClosed
}

func (t toyLatches) LatchEnablePath(e sta.Edge) (sta.Arrival, bool) {
	if t.IsLatchDtoQ(e) {
		return t.openAtTime, true
	}
	return 0, false
}
