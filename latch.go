package stasearch

import (
	"sync"
	"time"
)

// latchLoopDriver iterates the forward search until data arrivals at
// transparent latches stabilize. The D-input visitor pushes each
// latch's Q outputs into pending; once a pass empties the forward
// queue, the driver drains that set back into the queue and runs
// another pass, repeating until a pass leaves no latch output pending
// or the pass bound is reached.
type latchLoopDriver struct {
	mu      sync.Mutex
	pending map[Vertex]bool
	bound   int
}

func newLatchLoopDriver(bound int) *latchLoopDriver {
	if bound <= 0 {
		bound = 64
	}
	return &latchLoopDriver{pending: make(map[Vertex]bool), bound: bound}
}

func (d *latchLoopDriver) enqueue(v Vertex) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[v] = true
}

func (d *latchLoopDriver) havePending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending) > 0
}

func (d *latchLoopDriver) drain() []Vertex {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Vertex, 0, len(d.pending))
	for v := range d.pending {
		out = append(out, v)
	}
	d.pending = make(map[Vertex]bool)
	return out
}

// run drives passes of runPass until no latch output is left pending
// after a pass or the pass bound is reached. runPass is expected to
// drain the forward queue to completion (a full ArrivalVisitor sweep)
// and return the number of vertex visits it made; that count is only
// logged, never used to decide termination.
func (d *latchLoopDriver) run(s *Search, runPass func() int) error {
	pass := 0
	for {
		changed := runPass()
		pass++
		s.logger.Debug().Int("iteration", pass).Int("changed_vertices", changed).Msg("latch loop pass")
		if !d.havePending() {
			return nil
		}
		if pass >= d.bound {
			s.logger.Warn().Int("iteration", pass).Msg("latch loop exceeded pass bound")
			return &ConvergenceError{PassCount: pass, Bound: d.bound}
		}
		for _, q := range d.drain() {
			s.forward.Enqueue(q)
		}
	}
}

// timedRun is a thin wrapper used by Search.FindArrivals to log the
// elapsed time of the whole run (all passes together) without threading
// a clock through every call site.
func (d *latchLoopDriver) timedRun(s *Search, runPass func() int) error {
	start := time.Now()
	err := d.run(s, runPass)
	s.logger.Debug().Dur("elapsed", time.Since(start)).Msg("latch loop finished")
	return err
}

// latchDtoQArrival implements the latch D->Q rule: only in the max
// corner, arrival = max(from_arrival, enable_open_time) + arc_delay. The
// enable path is borrowed from the latch's enable pin arrival.
func latchDtoQArrival(s *Search, e Edge, fromArrival Arrival, arc Arc, minMax MinMax) (Arrival, bool) {
	if minMax != Max {
		return 0, false
	}
	enableArrival, ok := s.latches.LatchEnablePath(e)
	openTime := Arrival(0)
	if ok {
		openTime = enableArrival
	}
	base := fromArrival
	if openTime > base {
		base = openTime
	}
	delay, err := s.delayCalc.ArcDelay(e, arc, minMax)
	if err != nil {
		return 0, false
	}
	return base + Arrival(delay), true
}
