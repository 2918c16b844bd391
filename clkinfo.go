package stasearch

import "github.com/eda-tools/stasearch/internal/intern"

// ClkInfo is the interned, immutable descriptor of one clock path's
// state along a tag. Equality is structural over every field, hashed
// once at intern time by clkInfoKey; two ClkInfos that compare equal are
// always the same pointer (see clkInfoPool.intern).
type ClkInfo struct {
	ClkEdge       *Clock
	Transition    Transition // the clock edge's own transition, not the tag's data transition
	SourcePin     Pin
	Propagated    bool
	GenClkSrcPin  Pin  // non-nil only at a generated-clock root while walking its source tree
	GenClkSrcPath bool // true for the whole traversal inside a gen-clock's source tree
	PulseSense    Transition
	HasPulseSense bool
	Insertion     float64
	Latency       float64
	Uncertainty   float64
	PathAP        int
	CRPRClkPath   *PrevPath // anchor for CRPR credit lookups; only set at register clock pins
}

type clkInfoKey struct {
	clkEdge       *Clock
	transition    Transition
	sourcePin     Pin
	propagated    bool
	genClkSrcPin  Pin
	genClkSrcPath bool
	pulseSense    Transition
	hasPulseSense bool
	insertion     float64
	latency       float64
	uncertainty   float64
	pathAP        int
	crprClkPath   *PrevPath
}

func (c *ClkInfo) key() clkInfoKey {
	return clkInfoKey{
		c.ClkEdge, c.Transition, c.SourcePin, c.Propagated,
		c.GenClkSrcPin, c.GenClkSrcPath, c.PulseSense, c.HasPulseSense,
		c.Insertion, c.Latency, c.Uncertainty, c.PathAP, c.CRPRClkPath,
	}
}

// clkInfoPool interns ClkInfo values process-session-wide, keyed by
// clkInfoKey for structural equality and using the compact int32 index
// as the pool position so callers that only need identity can hold the
// index instead of the pointer.
type clkInfoPool struct {
	pool *intern.Pool[clkInfoKey, *ClkInfo]
}

func newClkInfoPool() *clkInfoPool {
	return &clkInfoPool{pool: intern.New[clkInfoKey, *ClkInfo](64)}
}

// intern returns the pool's canonical *ClkInfo equal to ci, creating and
// storing ci itself the first time its key is seen.
func (p *clkInfoPool) intern(ci *ClkInfo) *ClkInfo {
	_, v := p.pool.Intern(ci.key(), func() *ClkInfo { return ci })
	return v
}

func (p *clkInfoPool) clear() { p.pool.Clear() }

// clockEdgeArrival returns the raw arrival contribution of a clock edge
// before insertion delay: the clock's own declared edge time.
func clockEdgeArrival(clk *Clock, tr Transition) Arrival {
	return Arrival(clk.Edge(tr))
}

// idealArrival folds in the insertion+latency that an unpropagated
// (ideal) clock carries implicitly rather than through the search: an
// ideal clock's arrival includes insertion + latency even though they
// are never walked as propagated arcs.
func (c *ClkInfo) idealArrival() Arrival {
	if c.Propagated {
		return 0
	}
	return Arrival(c.Insertion + c.Latency)
}
