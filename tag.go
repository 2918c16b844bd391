package stasearch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eda-tools/stasearch/internal/intern"
)

// Tag is the interned, immutable identity of one distinct path flavor at
// a vertex: a combination of transition, analysis point, clock path
// state, input-delay membership, segment-start membership and exception
// states. Two tags are structurally equal, and therefore pointer-equal
// once interned, iff every field below compares equal.
type Tag struct {
	Transition     Transition
	PathAP         int
	ClkInfo        *ClkInfo
	IsClock        bool
	InputDelay     *InputDelay
	IsSegmentStart bool
	States         []*ExceptionState // sorted by (exception pointer, cursor) for stable keying

	hasLoopState   bool
	hasFilterState bool
}

func newTag(transition Transition, pathAP int, ci *ClkInfo, isClock bool, id *InputDelay, segStart bool, states []*ExceptionState) *Tag {
	states = sortedStates(states)
	t := &Tag{
		Transition:     transition,
		PathAP:         pathAP,
		ClkInfo:        ci,
		IsClock:        isClock,
		InputDelay:     id,
		IsSegmentStart: segStart,
		States:         states,
	}
	for _, s := range states {
		if s.Exception.isLoopKind() {
			t.hasLoopState = true
		}
		if s.Exception.isFilter() {
			t.hasFilterState = true
		}
	}
	return t
}

func sortedStates(states []*ExceptionState) []*ExceptionState {
	if len(states) < 2 {
		return states
	}
	out := make([]*ExceptionState, len(states))
	copy(out, states)
	sort.Slice(out, func(i, j int) bool {
		ki, kj := out[i].key(), out[j].key()
		if ki.exception != kj.exception {
			return fmt.Sprintf("%p", ki.exception) < fmt.Sprintf("%p", kj.exception)
		}
		return ki.cursor < kj.cursor
	})
	return out
}

// HasCompleteFalse reports whether any carried exception state is a
// complete false-path state: per the data-model invariant, a non-clock
// tag with such a state must never propagate further downstream. Other
// exception kinds (path-delay included) do not count, even when
// complete.
func (t *Tag) HasCompleteFalse() bool {
	for _, s := range t.States {
		if s.isComplete() && s.Exception.isFalse() {
			return true
		}
	}
	return false
}

// HasCompleteLoop reports whether any carried exception state is a
// completed loop marker.
func (t *Tag) HasCompleteLoop() bool {
	for _, s := range t.States {
		if s.isComplete() && s.Exception.isLoopKind() {
			return true
		}
	}
	return false
}

func (t *Tag) String() string {
	var b strings.Builder
	b.WriteString(t.Transition.String())
	if t.IsClock {
		b.WriteString("/clk")
	}
	if t.ClkInfo != nil && t.ClkInfo.ClkEdge != nil {
		b.WriteString("/" + t.ClkInfo.ClkEdge.Name)
	}
	return b.String()
}

type tagKey struct {
	transition Transition
	pathAP     int
	clkInfo    *ClkInfo
	isClock    bool
	inputDelay *InputDelay
	segStart   bool
	statesKey  string
}

func (t *Tag) key() tagKey {
	var b strings.Builder
	for _, s := range t.States {
		k := s.key()
		fmt.Fprintf(&b, "%p:%d", k.exception, k.cursor)
		if k.complete {
			b.WriteByte('!')
		}
		b.WriteByte(',')
	}
	return tagKey{t.Transition, t.PathAP, t.ClkInfo, t.IsClock, t.InputDelay, t.IsSegmentStart, b.String()}
}

// tagPool interns Tag values the same way clkInfoPool interns ClkInfo:
// double-checked lookup, grow-by-copy backing store.
type tagPool struct {
	pool *intern.Pool[tagKey, *Tag]
}

func newTagPool() *tagPool {
	return &tagPool{pool: intern.New[tagKey, *Tag](256)}
}

// intern returns the canonical *Tag equal to t, or reuses fromTag
// pointer-for-pointer when it is passed and t is structurally identical
// to it (the common "nothing changed" case from the mutator).
func (p *tagPool) intern(t *Tag, fromTag *Tag) *Tag {
	if fromTag != nil && sameTag(t, fromTag) {
		return fromTag
	}
	_, v := p.pool.Intern(t.key(), func() *Tag { return t })
	return v
}

func sameTag(a, b *Tag) bool {
	if a.Transition != b.Transition || a.PathAP != b.PathAP || a.ClkInfo != b.ClkInfo ||
		a.IsClock != b.IsClock || a.InputDelay != b.InputDelay || a.IsSegmentStart != b.IsSegmentStart {
		return false
	}
	if len(a.States) != len(b.States) {
		return false
	}
	for i := range a.States {
		if a.States[i].key() != b.States[i].key() {
			return false
		}
	}
	return true
}

func (p *tagPool) clear() { p.pool.Clear() }
