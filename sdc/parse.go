package sdc

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	sta "github.com/eda-tools/stasearch"
)

// PinResolver resolves a textual pin name to the core's sta.Pin handle.
// The graph package's Graph.PinByName implements this.
type PinResolver interface {
	PinByName(name string) (sta.Pin, bool)
}

// Parse reads a line-oriented subset of SDC syntax and returns a
// populated Sdc. Supported commands: create_clock, set_input_delay,
// set_output_delay, set_false_path, set_multicycle_path, set_min_delay,
// set_max_delay, set_path_delay, group_path, set_propagated_clock,
// set_clock_uncertainty, set_clock_latency. Anything else is recorded as
// a warning rather than a parse error, matching a scanner's habit of
// tokenizing everything it
// can (lexIdent/lexNumber style state functions) and only failing on
// genuinely malformed syntax.
//
// This is explicitly a "good enough to drive the search" stand-in, not a
// full Tcl evaluator: a state-function lexer style (tokenizing
// idents/brackets/numbers) is generalized here from pin-range syntax to
// whitespace/brace/bracket-grouped SDC command lines, self-contained
// rather than split across a separate lexer package (see DESIGN.md).
func Parse(text string, resolve PinResolver) (*Sdc, error) {
	s := New()
	namedClocks := make(map[string]*sta.Clock)

	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields, err := tokenizeLine(line)
		if err != nil {
			return nil, errors.Wrapf(err, "sdc:%d", lineNo)
		}
		if len(fields) == 0 {
			continue
		}
		if err := parseCommand(s, fields, resolve, namedClocks); err != nil {
			return nil, errors.Wrapf(err, "sdc:%d", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "sdc: reading input")
	}
	return s, nil
}

func stripComment(line string) string {
	if i := strings.Index(line, "#"); i >= 0 {
		return line[:i]
	}
	return line
}

// tokenizeLine splits line into fields, treating a [...] or {...} span as
// one atomic field (its contents, without the delimiters) even if it
// contains internal whitespace.
func tokenizeLine(line string) ([]string, error) {
	var out []string
	i, n := 0, len(line)
	for i < n {
		for i < n && isSpace(line[i]) {
			i++
		}
		if i >= n {
			break
		}
		switch line[i] {
		case '[':
			j := strings.IndexByte(line[i:], ']')
			if j < 0 {
				return nil, errors.Errorf("unterminated '[' in %q", line)
			}
			out = append(out, line[i+1:i+j])
			i += j + 1
		case '{':
			j := strings.IndexByte(line[i:], '}')
			if j < 0 {
				return nil, errors.Errorf("unterminated '{' in %q", line)
			}
			out = append(out, line[i+1:i+j])
			i += j + 1
		default:
			j := i
			for j < n && !isSpace(line[j]) {
				j++
			}
			out = append(out, line[i:j])
			i = j
		}
	}
	return out, nil
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' }

// flagArgs is a parsed command's positional/-flag fields: Flags maps
// -name to its following value (absent for boolean switches), and Pos
// holds everything that was not consumed as a flag or flag-value.
type flagArgs struct {
	Flags map[string]string
	Pos   []string
}

// boolFlags names flags that take no value (the field itself is the
// whole switch), generalized per-command below.
func splitFlags(fields []string, boolFlags map[string]bool) flagArgs {
	fa := flagArgs{Flags: make(map[string]string)}
	i := 0
	for i < len(fields) {
		f := fields[i]
		if strings.HasPrefix(f, "-") {
			name := f
			if boolFlags[name] {
				fa.Flags[name] = ""
				i++
				continue
			}
			if i+1 < len(fields) {
				fa.Flags[name] = fields[i+1]
				i += 2
				continue
			}
			fa.Flags[name] = ""
			i++
			continue
		}
		fa.Pos = append(fa.Pos, f)
		i++
	}
	return fa
}

func parseCommand(s *Sdc, fields []string, resolve PinResolver, named map[string]*sta.Clock) error {
	cmd := fields[0]
	rest := fields[1:]

	switch cmd {
	case "create_clock":
		return parseCreateClock(s, rest, resolve, named)
	case "set_input_delay":
		return parseInputDelay(s, rest, resolve, named)
	case "set_output_delay":
		return parseOutputDelay(s, rest, resolve, named)
	case "set_false_path":
		return parseException(s, rest, resolve, sta.ExceptionFalsePath)
	case "set_multicycle_path":
		return parseMulticycle(s, rest, resolve)
	case "set_min_delay":
		return parseMinMaxDelay(s, rest, resolve, sta.ExceptionMinDelay)
	case "set_max_delay":
		return parseMinMaxDelay(s, rest, resolve, sta.ExceptionMaxDelay)
	case "set_path_delay":
		return parsePathDelay(s, rest, resolve)
	case "group_path":
		return parseGroupPath(s, rest, resolve)
	case "set_propagated_clock":
		return parsePropagatedClock(s, rest, resolve)
	case "set_clock_uncertainty":
		return parseClockUncertainty(s, rest, resolve, named)
	case "set_clock_latency":
		return parseClockLatency(s, rest, resolve, named)
	case "set_disable_timing", "set_case_analysis":
		s.Warn("sdc: " + cmd + " not modeled by this search core's minimal collaborator; ignored")
		return nil
	default:
		s.Warn("sdc: unrecognized command " + cmd + "; ignored")
		return nil
	}
}

func resolvePins(resolve PinResolver, spec string) ([]sta.Pin, error) {
	names := strings.Fields(spec)
	// accept both bare names and "get_ports/get_pins NAME..." call forms.
	if len(names) > 0 && (names[0] == "get_ports" || names[0] == "get_pins" || names[0] == "get_clocks") {
		names = names[1:]
	}
	out := make([]sta.Pin, 0, len(names))
	for _, n := range names {
		p, ok := resolve.PinByName(n)
		if !ok {
			return nil, errors.Errorf("unknown pin %q", n)
		}
		out = append(out, p)
	}
	return out, nil
}

func pinPattern(resolve PinResolver, spec string) (*sta.PinPattern, error) {
	pins, err := resolvePins(resolve, spec)
	if err != nil {
		return nil, err
	}
	pp := &sta.PinPattern{Pins: make(map[sta.Pin]bool, len(pins))}
	for _, p := range pins {
		pp.Pins[p] = true
	}
	return pp, nil
}

func parseCreateClock(s *Sdc, fields []string, resolve PinResolver, named map[string]*sta.Clock) error {
	fa := splitFlags(fields, map[string]bool{})
	name := fa.Flags["-name"]
	periodStr := fa.Flags["-period"]
	if periodStr == "" {
		return errors.New("create_clock requires -period")
	}
	period, err := strconv.ParseFloat(periodStr, 64)
	if err != nil {
		return errors.Wrap(err, "create_clock -period")
	}
	var pins []sta.Pin
	if len(fa.Pos) > 0 {
		pins, err = resolvePins(resolve, fa.Pos[0])
		if err != nil {
			return err
		}
	}
	if name == "" && len(pins) > 0 {
		name = pins[0].Name()
	}

	rise, fall := 0.0, period/2
	if wf := fa.Flags["-waveform"]; wf != "" {
		parts := strings.Fields(wf)
		if len(parts) >= 2 {
			rise, _ = strconv.ParseFloat(parts[0], 64)
			fall, _ = strconv.ParseFloat(parts[1], 64)
		}
	}

	var src sta.Pin
	if len(pins) > 0 {
		src = pins[0]
	}
	clk := &sta.Clock{
		Name:      name,
		Period:    period,
		RiseEdge:  rise,
		FallEdge:  fall,
		SourcePin: src,
		Insertion: map[sta.Transition]float64{},
		Latency:   map[sta.Transition]float64{},
	}
	if master, ok := fa.Flags["-master_clock"]; ok {
		if m, ok := named[master]; ok {
			clk.IsGenerated = true
			clk.GenMasterClk = m
			clk.GenMasterSrcPin = m.SourcePin
		}
	}
	s.AddClock(clk)
	if name != "" {
		named[name] = clk
	}
	return nil
}

func clockTransitionFromFlags(fa flagArgs) sta.Transition {
	if _, ok := fa.Flags["-fall"]; ok {
		return sta.Fall
	}
	return sta.Rise
}

func parseInputDelay(s *Sdc, fields []string, resolve PinResolver, named map[string]*sta.Clock) error {
	if len(fields) == 0 {
		return errors.New("set_input_delay requires a delay value")
	}
	delay, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return errors.Wrap(err, "set_input_delay value")
	}
	fa := splitFlags(fields[1:], map[string]bool{"-fall": true, "-rise": true, "-source_latency_included": true})
	clkName := fa.Flags["-clock"]
	clk, ok := named[clkName]
	if !ok {
		return errors.Errorf("set_input_delay: unknown clock %q", clkName)
	}
	if len(fa.Pos) == 0 {
		return errors.New("set_input_delay requires a pin target")
	}
	pins, err := resolvePins(resolve, fa.Pos[0])
	if err != nil {
		return err
	}
	var refPin sta.Pin
	if ref := fa.Flags["-reference_pin"]; ref != "" {
		refPins, err := resolvePins(resolve, ref)
		if err != nil {
			return err
		}
		if len(refPins) > 0 {
			refPin = refPins[0]
		}
	}
	_, sourceLatency := fa.Flags["-source_latency_included"]
	for _, p := range pins {
		s.SetInputDelay(&sta.InputDelay{
			Pin:           p,
			Clk:           clk,
			ClkTransition: clockTransitionFromFlags(fa),
			Delay:         delay,
			ReferencePin:  refPin,
			SourceLatency: sourceLatency,
		})
	}
	return nil
}

func parseOutputDelay(s *Sdc, fields []string, resolve PinResolver, named map[string]*sta.Clock) error {
	if len(fields) == 0 {
		return errors.New("set_output_delay requires a delay value")
	}
	delay, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return errors.Wrap(err, "set_output_delay value")
	}
	fa := splitFlags(fields[1:], map[string]bool{"-fall": true, "-rise": true})
	clk, ok := named[fa.Flags["-clock"]]
	if !ok {
		return errors.Errorf("set_output_delay: unknown clock %q", fa.Flags["-clock"])
	}
	if len(fa.Pos) == 0 {
		return errors.New("set_output_delay requires a pin target")
	}
	pins, err := resolvePins(resolve, fa.Pos[0])
	if err != nil {
		return err
	}
	for _, p := range pins {
		s.SetOutputDelay(&sta.OutputDelay{Pin: p, Clk: clk, ClkTransition: clockTransitionFromFlags(fa), Delay: delay})
	}
	return nil
}

func parseException(s *Sdc, fields []string, resolve PinResolver, kind sta.ExceptionKind) error {
	fa := splitFlags(fields, map[string]bool{})
	ep := &sta.ExceptionPath{Kind: kind}
	if f, ok := fa.Flags["-from"]; ok {
		pp, err := pinPattern(resolve, f)
		if err != nil {
			return err
		}
		ep.From = pp
	}
	if t, ok := fa.Flags["-through"]; ok {
		pp, err := pinPattern(resolve, t)
		if err != nil {
			return err
		}
		ep.Thrus = append(ep.Thrus, pp)
	}
	if t, ok := fa.Flags["-to"]; ok {
		pp, err := pinPattern(resolve, t)
		if err != nil {
			return err
		}
		ep.To = pp
	}
	s.AddException(ep)
	return nil
}

func parseMulticycle(s *Sdc, fields []string, resolve PinResolver) error {
	if len(fields) == 0 {
		return errors.New("set_multicycle_path requires a cycle count")
	}
	n, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return errors.Wrap(err, "set_multicycle_path count")
	}
	fa := splitFlags(fields[1:], map[string]bool{"-setup": true, "-hold": true})
	ep := &sta.ExceptionPath{Kind: sta.ExceptionMulticyclePath, Value: n}
	if f, ok := fa.Flags["-from"]; ok {
		pp, err := pinPattern(resolve, f)
		if err != nil {
			return err
		}
		ep.From = pp
	}
	if t, ok := fa.Flags["-to"]; ok {
		pp, err := pinPattern(resolve, t)
		if err != nil {
			return err
		}
		ep.To = pp
	}
	s.AddException(ep)
	return nil
}

func parseMinMaxDelay(s *Sdc, fields []string, resolve PinResolver, kind sta.ExceptionKind) error {
	if len(fields) == 0 {
		return errors.New("set_min_delay/set_max_delay requires a value")
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return errors.Wrap(err, "delay value")
	}
	fa := splitFlags(fields[1:], map[string]bool{})
	ep := &sta.ExceptionPath{Kind: kind, Value: v}
	if f, ok := fa.Flags["-from"]; ok {
		pp, err := pinPattern(resolve, f)
		if err != nil {
			return err
		}
		ep.From = pp
	}
	if t, ok := fa.Flags["-to"]; ok {
		pp, err := pinPattern(resolve, t)
		if err != nil {
			return err
		}
		ep.To = pp
	}
	s.AddException(ep)
	return nil
}

// parsePathDelay parses set_path_delay VALUE -from PIN [-through PIN]
// -to PIN: an internal segment with its own launch point (not
// necessarily a clock or a set_input_delay pin) and its own required
// delay budget, generalized from parseMinMaxDelay with -through support
// folded in the way parseException handles it.
func parsePathDelay(s *Sdc, fields []string, resolve PinResolver) error {
	if len(fields) == 0 {
		return errors.New("set_path_delay requires a value")
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return errors.Wrap(err, "set_path_delay value")
	}
	fa := splitFlags(fields[1:], map[string]bool{})
	ep := &sta.ExceptionPath{Kind: sta.ExceptionPathDelay, Value: v}
	if f, ok := fa.Flags["-from"]; ok {
		pp, err := pinPattern(resolve, f)
		if err != nil {
			return err
		}
		ep.From = pp
	}
	if t, ok := fa.Flags["-through"]; ok {
		pp, err := pinPattern(resolve, t)
		if err != nil {
			return err
		}
		ep.Thrus = append(ep.Thrus, pp)
	}
	if t, ok := fa.Flags["-to"]; ok {
		pp, err := pinPattern(resolve, t)
		if err != nil {
			return err
		}
		ep.To = pp
	}
	s.AddException(ep)
	return nil
}

func parseGroupPath(s *Sdc, fields []string, resolve PinResolver) error {
	fa := splitFlags(fields, map[string]bool{})
	ep := &sta.ExceptionPath{Kind: sta.ExceptionFilter, Name: fa.Flags["-name"]}
	if f, ok := fa.Flags["-from"]; ok {
		pp, err := pinPattern(resolve, f)
		if err != nil {
			return err
		}
		ep.From = pp
	}
	if t, ok := fa.Flags["-through"]; ok {
		pp, err := pinPattern(resolve, t)
		if err != nil {
			return err
		}
		ep.Thrus = append(ep.Thrus, pp)
	}
	if t, ok := fa.Flags["-to"]; ok {
		pp, err := pinPattern(resolve, t)
		if err != nil {
			return err
		}
		ep.To = pp
	}
	s.AddException(ep)
	return nil
}

func parsePropagatedClock(s *Sdc, fields []string, resolve PinResolver) error {
	fa := splitFlags(fields, map[string]bool{})
	if len(fa.Pos) == 0 {
		return errors.New("set_propagated_clock requires a target")
	}
	pins, err := resolvePins(resolve, fa.Pos[0])
	if err != nil {
		return err
	}
	for _, p := range pins {
		s.SetPropagatedClock(p, true)
	}
	return nil
}

func parseClockUncertainty(s *Sdc, fields []string, resolve PinResolver, named map[string]*sta.Clock) error {
	if len(fields) == 0 {
		return errors.New("set_clock_uncertainty requires a value")
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return errors.Wrap(err, "set_clock_uncertainty value")
	}
	fa := splitFlags(fields[1:], map[string]bool{})
	clkName := fa.Flags["-clock"]
	if clkName == "" && len(fa.Pos) > 0 {
		clkName = strings.Fields(fa.Pos[0])[0]
	}
	clk, ok := named[clkName]
	if !ok {
		return errors.Errorf("set_clock_uncertainty: unknown clock %q", clkName)
	}
	clk.Uncertainty = v
	return nil
}

func parseClockLatency(s *Sdc, fields []string, resolve PinResolver, named map[string]*sta.Clock) error {
	if len(fields) == 0 {
		return errors.New("set_clock_latency requires a value")
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return errors.Wrap(err, "set_clock_latency value")
	}
	fa := splitFlags(fields[1:], map[string]bool{"-source": true, "-fall": true, "-rise": true})
	clk, ok := named[fa.Flags["-clock"]]
	if !ok {
		return errors.Errorf("set_clock_latency: unknown clock %q", fa.Flags["-clock"])
	}
	tr := clockTransitionFromFlags(fa)
	if len(fa.Pos) > 0 {
		pins, err := resolvePins(resolve, fa.Pos[0])
		if err != nil {
			return err
		}
		for _, p := range pins {
			s.SetClockLatencyAtPin(p, clk, tr, sta.Max, v, clk.Uncertainty)
			s.SetClockLatencyAtPin(p, clk, tr, sta.Min, v, clk.Uncertainty)
		}
		return nil
	}
	clk.Latency[tr] = v
	return nil
}
