package stasearch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eda-tools/stasearch/internal/intern"
)

// TagGroup is the interned, immutable set of tags present at a vertex,
// together with a tag -> arrival-slot map. Equality is on the tag
// multiset (order-independent), so two vertices whose fanin happened to
// enqueue tags in a different order still land on the same TagGroup.
type TagGroup struct {
	Tags []*Tag
	slot map[*Tag]int

	hasClockTag     bool
	hasGenClkSrcTag bool
	hasFilterTag    bool
	hasLoopTag      bool
}

func newTagGroup(tags []*Tag) *TagGroup {
	sorted := make([]*Tag, len(tags))
	copy(sorted, tags)
	sort.Slice(sorted, func(i, j int) bool {
		return fmt.Sprintf("%p", sorted[i]) < fmt.Sprintf("%p", sorted[j])
	})
	g := &TagGroup{Tags: sorted, slot: make(map[*Tag]int, len(sorted))}
	for i, t := range sorted {
		g.slot[t] = i
		if t.IsClock {
			g.hasClockTag = true
		}
		if t.ClkInfo != nil && t.ClkInfo.GenClkSrcPath {
			g.hasGenClkSrcTag = true
		}
		if t.hasFilterState {
			g.hasFilterTag = true
		}
		if t.hasLoopState {
			g.hasLoopTag = true
		}
	}
	return g
}

// Slot returns the arrival-slot index for t, and whether t is present.
func (g *TagGroup) Slot(t *Tag) (int, bool) {
	i, ok := g.slot[t]
	return i, ok
}

func (g *TagGroup) String() string {
	var b strings.Builder
	for i, t := range g.Tags {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(t.String())
	}
	return b.String()
}

func (g *TagGroup) key() string {
	var b strings.Builder
	for _, t := range g.Tags {
		fmt.Fprintf(&b, "%p,", t)
	}
	return b.String()
}

// tagGroupPool interns TagGroup values the same way tagPool interns Tag.
type tagGroupPool struct {
	pool *intern.Pool[string, *TagGroup]
}

func newTagGroupPool() *tagGroupPool {
	return &tagGroupPool{pool: intern.New[string, *TagGroup](256)}
}

func (p *tagGroupPool) intern(g *TagGroup) *TagGroup {
	_, v := p.pool.Intern(g.key(), func() *TagGroup { return g })
	return v
}

// internIndexed is like intern but also returns the pool-compact index,
// which is what gets stored on a Vertex (SetTagGroupIndex) so per-vertex
// storage stays a single int rather than a pointer.
func (p *tagGroupPool) internIndexed(g *TagGroup) (int32, *TagGroup) {
	return p.pool.Intern(g.key(), func() *TagGroup { return g })
}

// at returns the TagGroup stored at a compact pool index, as previously
// returned by internIndexed / recorded on a Vertex via
// SetTagGroupIndex.
func (p *tagGroupPool) at(index int32) *TagGroup {
	return p.pool.At(index)
}

func (p *tagGroupPool) clear() { p.pool.Clear() }

// tagGroupBuilder accumulates (tag -> arrival) pairs while an
// ArrivalVisitor or RequiredVisitor drains a vertex's fanin, then
// produces the finished TagGroup and its parallel arrival slice.
type tagGroupBuilder struct {
	tags      []*Tag
	arrivals  []Arrival
	prevPaths []*PrevPath
	index     map[*Tag]int
	minMax    MinMax
}

func newTagGroupBuilder(minMax MinMax) *tagGroupBuilder {
	return &tagGroupBuilder{index: make(map[*Tag]int, 8), minMax: minMax}
}

// seedFrom pre-populates the builder from an existing (tagGroup,
// arrivals) pair, letting a pass carry over slots that this vertex's
// current fanin sweep never touches ("carry over any
// arrivals not touched this pass").
func (b *tagGroupBuilder) seedFrom(g *TagGroup, arrivals []Arrival, prevPaths []*PrevPath) {
	if g == nil {
		return
	}
	for i, t := range g.Tags {
		b.set(t, arrivals[i], prevPathAt(prevPaths, i))
	}
}

func prevPathAt(prevPaths []*PrevPath, i int) *PrevPath {
	if i < len(prevPaths) {
		return prevPaths[i]
	}
	return nil
}

// set inserts tag with value if absent, otherwise keeps the tighter (for
// the builder's corner) of the existing and new value, using the
// "insert if absent, else keep the worse value" rule (worse == tighter
// under the max corner's convention; the builder's MinMax already
// encodes which direction "worse" points).
func (b *tagGroupBuilder) set(t *Tag, v Arrival, pp *PrevPath) {
	if i, ok := b.index[t]; ok {
		if fuzzyGreaterForCorner(b.minMax, v, b.arrivals[i]) {
			b.arrivals[i] = v
			b.prevPaths[i] = pp
		}
		return
	}
	b.index[t] = len(b.tags)
	b.tags = append(b.tags, t)
	b.arrivals = append(b.arrivals, v)
	b.prevPaths = append(b.prevPaths, pp)
}

func fuzzyGreaterForCorner(minMax MinMax, v, existing Arrival) bool {
	if minMax == Max {
		return fuzzyGreater(v, existing)
	}
	return fuzzyGreater(existing, v)
}

// get returns the current value for t and whether it is present.
func (b *tagGroupBuilder) get(t *Tag) (Arrival, bool) {
	i, ok := b.index[t]
	if !ok {
		return 0, false
	}
	return b.arrivals[i], true
}

// remove drops t from the builder entirely (used by CRPR pruning).
func (b *tagGroupBuilder) remove(t *Tag) {
	i, ok := b.index[t]
	if !ok {
		return
	}
	last := len(b.tags) - 1
	b.tags[i], b.tags[last] = b.tags[last], b.tags[i]
	b.arrivals[i], b.arrivals[last] = b.arrivals[last], b.arrivals[i]
	b.prevPaths[i], b.prevPaths[last] = b.prevPaths[last], b.prevPaths[i]
	b.index[b.tags[i]] = i
	delete(b.index, t)
	b.tags = b.tags[:last]
	b.arrivals = b.arrivals[:last]
	b.prevPaths = b.prevPaths[:last]
}

// build interns the accumulated tag set into a TagGroup, returning it
// alongside arrival/prevPath slices ordered to match TagGroup.Tags (the
// builder's own order is not the TagGroup's canonical sorted order, so
// this re-projects through Slot).
func (b *tagGroupBuilder) build(pool *tagGroupPool) (*TagGroup, []Arrival, []*PrevPath) {
	g := pool.intern(newTagGroup(b.tags))
	arrivals := make([]Arrival, len(g.Tags))
	prevPaths := make([]*PrevPath, len(g.Tags))
	for i, t := range g.Tags {
		srcIdx := b.index[t]
		arrivals[i] = b.arrivals[srcIdx]
		prevPaths[i] = b.prevPaths[srcIdx]
	}
	return g, arrivals, prevPaths
}
