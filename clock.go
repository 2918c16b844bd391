package stasearch

// Clock is the search core's view of an SDC clock: enough fields to drive
// ClkInfo construction and CRPR bookkeeping. The sdc package owns the
// authoritative Clock objects; the core only ever compares them by
// pointer identity, so two logically-equal clocks parsed twice are
// intentionally distinct for interning purposes (matching create_clock
// semantics: re-declaring a clock replaces it).
type Clock struct {
	Name            string
	Period          float64
	RiseEdge        float64
	FallEdge        float64
	SourcePin       Pin
	Insertion       map[Transition]float64
	Latency         map[Transition]float64
	Uncertainty     float64
	Propagated      bool
	PulseSenseHigh  bool
	IsGenerated     bool
	GenMasterClk    *Clock
	GenMasterSrcPin Pin
}

// Edge returns the clock edge time for the given transition.
func (c *Clock) Edge(tr Transition) float64 {
	if tr == Rise {
		return c.RiseEdge
	}
	return c.FallEdge
}

// InputDelay is a set_input_delay constraint on a data pin.
type InputDelay struct {
	Pin           Pin
	Clk           *Clock
	ClkTransition Transition
	Delay         float64
	ReferencePin  Pin // nil unless -reference_pin was used
	SourceLatency bool
}

// OutputDelay is a set_output_delay constraint on a data pin.
type OutputDelay struct {
	Pin           Pin
	Clk           *Clock
	ClkTransition Transition
	Delay         float64
}

// Sdc is the constraint-set collaborator: clocks, input/output delays,
// exceptions, derating and the global search flags that come from SDC.
type Sdc interface {
	Clocks() []*Clock
	ClockAt(p Pin) (*Clock, bool)
	InputDelays() []*InputDelay
	InputDelaysAt(p Pin) []*InputDelay
	OutputDelays() []*OutputDelay
	Exceptions() []*ExceptionPath
	CRPRActive() bool
	DynamicLoopBreaking() bool
	ReportUnconstrained() bool
	// Warn records an SDC ambiguity (taxonomy #2 in the error design):
	// it must never be treated as a hard error by the caller.
	Warn(msg string)
	Warnings() []string
}
