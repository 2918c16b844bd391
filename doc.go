// Copyright 2024 The stasearch Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

/*
Package stasearch provides the timing search core of a static timing
analyzer for synchronous digital circuits.

Given a levelized timing graph (see the graph package), a set of declared
and generated clocks and exceptions (see the sdc package) and a delay
calculator (see the delaycalc package), Search computes arrival times by
forward propagation, required times by backward propagation, and
enumerates worst-slack path endpoints subject to caller-supplied filters.

The package does not parse Liberty or SDC files, does not compute gate
delays from RC extraction, and does not format reports; it consumes those
as external collaborators through the interfaces in collaborators.go.
*/
package stasearch
