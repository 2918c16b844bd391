// Copyright 2024 The stasearch Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

// Package graph is the concrete levelized timing graph collaborator: a
// pin/instance netlist expanded from bus-range names (generalized from a
// chip-wiring bus expansion style), levelized with a Kahn's-algorithm
// sweep that marks feedback edges as disabled loops rather than
// rejecting the netlist outright.
package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Pin is a concrete stasearch.Pin: a flat (post bus-expansion) pin name
// with an instance owner and clock-membership flag.
type Pin struct {
	name     string
	instance string
	isClock  bool
}

// NewPin returns a pin named instance/name (top-level pins may pass an
// empty instance).
func NewPin(instance, name string, isClock bool) *Pin {
	return &Pin{name: name, instance: instance, isClock: isClock}
}

func (p *Pin) Name() string {
	if p.instance == "" {
		return p.name
	}
	return p.instance + "/" + p.name
}

func (p *Pin) IsClock() bool { return p.isClock }

// Instance returns the owning instance name, or "" for a top-level pin.
func (p *Pin) Instance() string { return p.instance }

func (p *Pin) String() string { return p.Name() }

// ExpandBusRange expands a "bus[lo..hi]" style pin name into its
// individual member names, or returns name unchanged when it carries no
// range. Grounded on a chip-wiring expandRange style, generalized
// from chip-wiring pin buses to arbitrary netlist pin buses.
func ExpandBusRange(name string) ([]string, error) {
	i := strings.IndexRune(name, '[')
	if i < 0 {
		return []string{name}, nil
	}
	bus := name[:i]
	if bus == "" {
		return nil, errors.New("empty bus name in " + name)
	}
	rest := name[i+1:]
	i = strings.Index(rest, "..")
	if i < 0 {
		return []string{name}, nil
	}
	lo, err := strconv.Atoi(rest[:i])
	if err != nil {
		return nil, errors.Wrap(err, "bad bus range start in "+name)
	}
	rest = rest[i+2:]
	i = strings.IndexRune(rest, ']')
	if i < 0 {
		return nil, errors.New("unterminated bus range in " + name)
	}
	hi, err := strconv.Atoi(rest[:i])
	if err != nil {
		return nil, errors.Wrap(err, "bad bus range end in "+name)
	}
	if hi < lo {
		return nil, errors.New("bus range end before start in " + name)
	}
	out := make([]string, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		out = append(out, fmt.Sprintf("%s[%d]", bus, n))
	}
	return out, nil
}
