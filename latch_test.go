package stasearch

import (
	"testing"
)

func TestLatchLoopDriverRunsUntilPendingDrains(t *testing.T) {
	d := newLatchLoopDriver(4)
	g := newFakeGraph()
	v := g.addVertex("Q", 0, false)
	s := newTestSearch(g, newFakeSdc(), &fakeDelayCalc{}, Max)
	d.enqueue(v)

	passes := 0
	err := d.run(s, func() int {
		passes++
		if passes == 1 {
			return 1 // pretend pass 1 found a change and left v pending
		}
		d.pending = make(map[Vertex]bool) // pass 2: nothing left pending
		return 0
	})
	if err != nil {
		t.Fatalf("expected the loop to converge, got %v", err)
	}
	if passes != 2 {
		t.Fatalf("expected exactly 2 passes, got %d", passes)
	}
}

func TestLatchLoopDriverReturnsConvergenceErrorAtBound(t *testing.T) {
	d := newLatchLoopDriver(3)
	g := newFakeGraph()
	v := g.addVertex("Q", 0, false)
	s := newTestSearch(g, newFakeSdc(), &fakeDelayCalc{}, Max)
	d.enqueue(v)

	err := d.run(s, func() int {
		d.enqueue(v) // never converges
		return 1
	})
	if err == nil {
		t.Fatal("expected a ConvergenceError once the pass bound is exceeded")
	}
	ce, ok := err.(*ConvergenceError)
	if !ok {
		t.Fatalf("expected *ConvergenceError, got %T", err)
	}
	if ce.Bound != 3 {
		t.Fatalf("expected the reported bound to match the driver's bound, got %d", ce.Bound)
	}
}

func TestLatchLoopDriverDefaultsBoundWhenNonPositive(t *testing.T) {
	d := newLatchLoopDriver(0)
	if d.bound != 64 {
		t.Fatalf("expected the default pass bound of 64, got %d", d.bound)
	}
	d2 := newLatchLoopDriver(-5)
	if d2.bound != 64 {
		t.Fatalf("expected a negative bound to fall back to 64, got %d", d2.bound)
	}
}

func TestLatchLoopDriverDrainClearsPending(t *testing.T) {
	d := newLatchLoopDriver(4)
	g := newFakeGraph()
	v := g.addVertex("Q", 0, false)
	d.enqueue(v)

	if !d.havePending() {
		t.Fatal("expected havePending to report true right after enqueue")
	}
	drained := d.drain()
	if len(drained) != 1 || drained[0] != Vertex(v) {
		t.Fatalf("expected drain to return the enqueued vertex, got %v", drained)
	}
	if d.havePending() {
		t.Fatal("expected havePending to report false after drain")
	}
}

func TestLatchDtoQArrivalOnlyAppliesInMaxCorner(t *testing.T) {
	g := newFakeGraph()
	d := g.addVertex("D", 0, false)
	q := g.addVertex("Q", 1, false)
	e := g.connect(d, q, RoleLatchDToQ, fakeNonInverting)

	sdc := newFakeSdc()
	s := newTestSearch(g, sdc, &fakeDelayCalc{delay: 1}, Min)
	s.latches = fakeLatchEnable{openTime: 5}

	if _, ok := latchDtoQArrival(s, e, 2, Arc{From: Rise, To: Rise}, Min); ok {
		t.Fatal("the latch D->Q arrival rule must only apply in the Max corner")
	}
}

func TestLatchDtoQArrivalTakesLaterOfDataAndEnableOpen(t *testing.T) {
	g := newFakeGraph()
	d := g.addVertex("D", 0, false)
	q := g.addVertex("Q", 1, false)
	e := g.connect(d, q, RoleLatchDToQ, fakeNonInverting)

	sdc := newFakeSdc()
	s := newTestSearch(g, sdc, &fakeDelayCalc{delay: 1}, Max)
	s.latches = fakeLatchEnable{openTime: 5}

	got, ok := latchDtoQArrival(s, e, 2, Arc{From: Rise, To: Rise}, Max)
	if !ok {
		t.Fatal("expected the latch D->Q arrival rule to apply in the Max corner")
	}
	if want := Arrival(5 + 1); got != want {
		t.Fatalf("expected max(data=2, enable_open=5)+delay(1) = %v, got %v", want, got)
	}

	s.latches = fakeLatchEnable{openTime: 0}
	got2, _ := latchDtoQArrival(s, e, 2, Arc{From: Rise, To: Rise}, Max)
	if want := Arrival(2 + 1); got2 != want {
		t.Fatalf("expected max(data=2, enable_open=0)+delay(1) = %v, got %v", want, got2)
	}
}

type fakeLatchEnable struct{ openTime Arrival }

func (f fakeLatchEnable) IsLatchDtoQ(e Edge) bool { return e.Role() == RoleLatchDToQ }
func (f fakeLatchEnable) LatchDtoQState(e Edge) LatchDtoQState { return LatchAlwaysOpen }
func (f fakeLatchEnable) LatchEnablePath(e Edge) (Arrival, bool) { return f.openTime, true }
