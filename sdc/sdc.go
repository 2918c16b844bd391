// Copyright 2024 The stasearch Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

// Package sdc is the concrete constraint-set collaborator the search
// core consumes through the stasearch.Sdc interface: clocks, input and
// output delays, timing exceptions, derating, and the global search
// flags (CRPR, dynamic loop breaking, report-unconstrained) that an SDC
// file normally carries. It also answers the handful of optional
// pin/hierarchical-edge override queries mutator.go probes for via type
// assertion (IsPropagatedClock, ClockLatencyAtPin, ClockLatencyAtEdge).
package sdc

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	sta "github.com/eda-tools/stasearch"
)

// Sdc is the concrete stasearch.Sdc collaborator.
type Sdc struct {
	mu sync.Mutex

	clocks     []*sta.Clock
	clockAtPin map[sta.Pin]*sta.Clock

	inputDelays  []*sta.InputDelay
	inputAtPin   map[sta.Pin][]*sta.InputDelay
	outputDelays []*sta.OutputDelay

	exceptions []*sta.ExceptionPath

	derate map[derateKey]float64

	crprActive          bool
	dynamicLoopBreaking bool
	reportUnconstrained bool

	propagatedPins map[sta.Pin]bool
	pinLatency     map[pinLatencyKey]pinOverride
	edgeLatency    map[edgeLatencyKey]float64

	warnings []string
}

type derateKey struct {
	minMax  sta.MinMax
	isClock bool
}

type pinLatencyKey struct {
	pin sta.Pin
	clk *sta.Clock
	tr  sta.Transition
	mm  sta.MinMax
}

type pinOverride struct {
	latency     float64
	uncertainty float64
}

type edgeLatencyKey struct {
	edge sta.Edge
	clk  *sta.Clock
	tr   sta.Transition
	mm   sta.MinMax
}

// New returns an empty Sdc, ready for Add*/Set* calls or for Parse to
// populate.
func New() *Sdc {
	return &Sdc{
		clockAtPin:     make(map[sta.Pin]*sta.Clock),
		inputAtPin:     make(map[sta.Pin][]*sta.InputDelay),
		derate:         make(map[derateKey]float64),
		propagatedPins: make(map[sta.Pin]bool),
		pinLatency:     make(map[pinLatencyKey]pinOverride),
		edgeLatency:    make(map[edgeLatencyKey]float64),
	}
}

// AddClock registers clk, replacing any previously declared clock at the
// same source pin: re-declaring a clock at a pin is create_clock's
// documented "last one wins" semantics, and since the core compares
// Clock objects by pointer identity (clock.go), the old clock's interned
// tags simply stop being reachable from a fresh search.
func (s *Sdc) AddClock(clk *sta.Clock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if clk.SourcePin != nil {
		if old, ok := s.clockAtPin[clk.SourcePin]; ok {
			for i, c := range s.clocks {
				if c == old {
					s.clocks = append(s.clocks[:i:i], s.clocks[i+1:]...)
					break
				}
			}
		}
		s.clockAtPin[clk.SourcePin] = clk
	}
	s.clocks = append(s.clocks, clk)
}

// SetInputDelay registers id, indexed both by declaration order (for
// iteration) and by pin (for ArrivalVisitor.seedVertexLocal's per-vertex
// lookup).
func (s *Sdc) SetInputDelay(id *sta.InputDelay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputDelays = append(s.inputDelays, id)
	s.inputAtPin[id.Pin] = append(s.inputAtPin[id.Pin], id)
}

// SetOutputDelay registers od.
func (s *Sdc) SetOutputDelay(od *sta.OutputDelay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputDelays = append(s.outputDelays, od)
}

// AddException registers a false-path/multicycle/min-max-delay/filter/
// loop/path-delay declaration.
func (s *Sdc) AddException(e *sta.ExceptionPath) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exceptions = append(s.exceptions, e)
}

// SetDerate installs the derating factor applied to an arc delay for the
// given corner and clock-or-data classification (DelayCalc.Derate's
// contract in collaborators.go).
func (s *Sdc) SetDerate(minMax sta.MinMax, isClock bool, factor float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.derate[derateKey{minMax, isClock}] = factor
}

// Derate returns the registered derating factor, defaulting to 1
// (no derating) when none was set.
func (s *Sdc) Derate(minMax sta.MinMax, isClock bool) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.derate[derateKey{minMax, isClock}]; ok {
		return f
	}
	return 1
}

// SetCRPRActive toggles clock-reconvergence-pessimism-removal.
func (s *Sdc) SetCRPRActive(b bool) { s.mu.Lock(); s.crprActive = b; s.mu.Unlock() }

// SetDynamicLoopBreaking toggles whether a disabled-loop edge may still
// be traversed by a tag carrying pending loop-exception work.
func (s *Sdc) SetDynamicLoopBreaking(b bool) { s.mu.Lock(); s.dynamicLoopBreaking = b; s.mu.Unlock() }

// SetReportUnconstrained toggles whether unclocked graph roots get
// seeded with a zero-arrival tag.
func (s *Sdc) SetReportUnconstrained(b bool) { s.mu.Lock(); s.reportUnconstrained = b; s.mu.Unlock() }

// SetPropagatedClock marks p as carrying a propagated (non-ideal) clock
// network, consulted by mutator.go's isPropagatedPin via the optional
// IsPropagatedClock interface.
func (s *Sdc) SetPropagatedClock(p sta.Pin, propagated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if propagated {
		s.propagatedPins[p] = true
	} else {
		delete(s.propagatedPins, p)
	}
}

// SetClockLatencyAtPin installs a pin-level set_clock_latency /
// set_clock_uncertainty override; a pin value wins over a
// hierarchical-edge value, which wins over the clock-level value
// mutateClkInfo started from.
func (s *Sdc) SetClockLatencyAtPin(p sta.Pin, clk *sta.Clock, tr sta.Transition, mm sta.MinMax, latency, uncertainty float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinLatency[pinLatencyKey{p, clk, tr, mm}] = pinOverride{latency, uncertainty}
}

// SetClockLatencyAtEdge installs a hierarchical-edge-scoped clock
// latency override (the middle tier of the override-precedence chain).
func (s *Sdc) SetClockLatencyAtEdge(e sta.Edge, clk *sta.Clock, tr sta.Transition, mm sta.MinMax, latency float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edgeLatency[edgeLatencyKey{e, clk, tr, mm}] = latency
}

// Warn records an SDC ambiguity: never treated as a hard error, just
// accumulated for later reporting.
func (s *Sdc) Warn(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, msg)
}

// Warnings returns every warning recorded so far, in recording order.
func (s *Sdc) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// --- stasearch.Sdc interface ---

func (s *Sdc) Clocks() []*sta.Clock {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*sta.Clock, len(s.clocks))
	copy(out, s.clocks)
	return out
}

func (s *Sdc) ClockAt(p sta.Pin) (*sta.Clock, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clockAtPin[p]
	return c, ok
}

func (s *Sdc) InputDelays() []*sta.InputDelay {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*sta.InputDelay, len(s.inputDelays))
	copy(out, s.inputDelays)
	return out
}

func (s *Sdc) InputDelaysAt(p sta.Pin) []*sta.InputDelay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*sta.InputDelay(nil), s.inputAtPin[p]...)
}

func (s *Sdc) OutputDelays() []*sta.OutputDelay {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*sta.OutputDelay, len(s.outputDelays))
	copy(out, s.outputDelays)
	return out
}

func (s *Sdc) Exceptions() []*sta.ExceptionPath {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*sta.ExceptionPath, len(s.exceptions))
	copy(out, s.exceptions)
	return out
}

func (s *Sdc) CRPRActive() bool          { s.mu.Lock(); defer s.mu.Unlock(); return s.crprActive }
func (s *Sdc) DynamicLoopBreaking() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.dynamicLoopBreaking }
func (s *Sdc) ReportUnconstrained() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.reportUnconstrained }

// --- optional mutator.go override queriers ---

// IsPropagatedClock implements the propagatedQuerier interface
// mutator.go probes for via type assertion.
func (s *Sdc) IsPropagatedClock(p sta.Pin) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.propagatedPins[p]
}

// ClockLatencyAtPin implements the pinOverrideQuerier interface.
func (s *Sdc) ClockLatencyAtPin(p sta.Pin, clk *sta.Clock, tr sta.Transition, mm sta.MinMax) (float64, float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.pinLatency[pinLatencyKey{p, clk, tr, mm}]
	return o.latency, o.uncertainty, ok
}

// ClockLatencyAtEdge implements the edgeLatencyQuerier interface.
func (s *Sdc) ClockLatencyAtEdge(e sta.Edge, clk *sta.Clock, tr sta.Transition, mm sta.MinMax) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.edgeLatency[edgeLatencyKey{e, clk, tr, mm}]
	return v, ok
}

// CRPR is a minimal CRPREngine collaborator: while active, the CRPR
// credit it reports for any non-nil ClkInfo is one flat configured
// bound, generalized from original_source's per-clock-pair credit table
// into a single global bound. The shared clock-tree latency behind the
// ClkInfo's CRPRClkPath anchor is not consulted; an inactive engine or a
// nil ClkInfo reports zero credit.
type CRPR struct {
	active bool
	bound  float64
}

// NewCRPR returns a CRPR engine; bound is the maximum credit any single
// reconvergence point may contribute.
func NewCRPR(active bool, bound float64) *CRPR {
	return &CRPR{active: active, bound: bound}
}

func (c *CRPR) Active() bool { return c != nil && c.active }

func (c *CRPR) MaxCRPR(ci *sta.ClkInfo) float64 {
	if c == nil || !c.active || ci == nil {
		return 0
	}
	return c.bound
}

func (c *CRPR) ClkPathPrev(v sta.Vertex, slot int) *sta.PrevPath {
	if v == nil {
		return nil
	}
	pp := v.PrevPaths()
	if slot < 0 || slot >= len(pp) {
		return nil
	}
	return pp[slot]
}

var _ fmt.Stringer = (*Sdc)(nil)

func (s *Sdc) String() string {
	return fmt.Sprintf("sdc{clocks=%d, input_delays=%d, exceptions=%d}", len(s.clocks), len(s.inputDelays), len(s.exceptions))
}

// errf is a thin helper for wrapping parse-time failures with
// positional context, in the style of a parser's own parseError helper.
func errf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}
