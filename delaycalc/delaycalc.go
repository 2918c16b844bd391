// Copyright 2024 The stasearch Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

// Package delaycalc is a Liberty-flavored arc delay table: the minimal
// concrete stasearch.DelayCalc collaborator, generalized from a
// Component/Mount closure style (there: boolean gate functions keyed by
// pin sockets; here: numeric delay values keyed the same way, by the
// edge's own identity) since no timing-specific reference code exists
// in the retrieval pack.
package delaycalc

import (
	"sync"

	"github.com/pkg/errors"

	sta "github.com/eda-tools/stasearch"
)

// cornerKey indexes a per-edge delay table by (min/max corner, arc).
type cornerKey struct {
	minMax sta.MinMax
	arc    sta.Arc
}

// Table is a per-edge delay value store: one float64 per (arc, corner).
// ArcDelay returns that value without derating; the derate multiplier is
// reported separately by Table.Derate (part of the DelayCalc contract in
// collaborators.go), which delegates to the wired Derater, and the
// caller multiplies the two.
type Table struct {
	mu      sync.RWMutex
	byEdge  map[sta.Edge]map[cornerKey]float64
	checks  map[sta.Edge]map[cornerKey]float64
	derater Derater
}

// Derater computes the min/max × early/late derate multiplier the Sdc
// collaborator would otherwise own; New wires a default of "no
// derating" (factor 1) when nil is passed, so a Table is usable stand-
// alone in tests without an Sdc object.
type Derater interface {
	Derate(minMax sta.MinMax, isClock bool) float64
}

type unitDerater struct{}

func (unitDerater) Derate(sta.MinMax, bool) float64 { return 1 }

// New returns an empty Table. derater may be nil, in which case every
// Derate() call returns 1.
func New(derater Derater) *Table {
	if derater == nil {
		derater = unitDerater{}
	}
	return &Table{
		byEdge:  make(map[sta.Edge]map[cornerKey]float64),
		checks:  make(map[sta.Edge]map[cornerKey]float64),
		derater: derater,
	}
}

// SetDelay installs the base (pre-derate) delay for e's given arc and
// corner.
func (t *Table) SetDelay(e sta.Edge, arc sta.Arc, minMax sta.MinMax, delay float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.byEdge[e]
	if m == nil {
		m = make(map[cornerKey]float64)
		t.byEdge[e] = m
	}
	m[cornerKey{minMax, arc}] = delay
}

// SetDelayBothCorners is a convenience for the common case where a gate
// has no min/max split.
func (t *Table) SetDelayBothCorners(e sta.Edge, arc sta.Arc, delay float64) {
	t.SetDelay(e, arc, sta.Min, delay)
	t.SetDelay(e, arc, sta.Max, delay)
}

// SetCheckMargin installs a RoleTimingCheck arc's setup (Max corner) or
// hold (Min corner) margin.
func (t *Table) SetCheckMargin(e sta.Edge, arc sta.Arc, minMax sta.MinMax, margin float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.checks[e]
	if m == nil {
		m = make(map[cornerKey]float64)
		t.checks[e] = m
	}
	m[cornerKey{minMax, arc}] = margin
}

// ArcDelay implements stasearch.DelayCalc.
func (t *Table) ArcDelay(e sta.Edge, arc sta.Arc, corner sta.MinMax) (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.byEdge[e]
	if !ok {
		return 0, errors.Errorf("delaycalc: no delay table for edge %v", e)
	}
	d, ok := m[cornerKey{corner, arc}]
	if !ok {
		return 0, errors.Errorf("delaycalc: no delay for arc %v/%v corner %v", arc.From, arc.To, corner)
	}
	return d, nil
}

// Derate implements stasearch.DelayCalc by delegating to the wired
// Derater (typically the sdc.Sdc object, which owns the corner/
// clock-or-data derating table).
func (t *Table) Derate(minMax sta.MinMax, isClock bool) float64 {
	return t.derater.Derate(minMax, isClock)
}

// CheckMargin implements stasearch.DelayCalc.
func (t *Table) CheckMargin(e sta.Edge, arc sta.Arc, corner sta.MinMax) (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.checks[e]
	if !ok {
		return 0, errors.Errorf("delaycalc: no check margin table for edge %v", e)
	}
	margin, ok := m[cornerKey{corner, arc}]
	if !ok {
		return 0, errors.Errorf("delaycalc: no check margin for arc %v/%v corner %v", arc.From, arc.To, corner)
	}
	return margin, nil
}
