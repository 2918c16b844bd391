package stasearch

import "github.com/pkg/errors"

// InternalError reports a structural pre-condition violation: an unknown
// tag index, a tag-group overflow, or any other invariant break that
// leaves the search state unrecoverable. Callers should treat it as
// fatal to the current Search session.
type InternalError struct {
	Op     string
	Vertex Vertex
	Tag    *Tag
	msg    string
}

func (e *InternalError) Error() string {
	s := "stasearch: internal error in " + e.Op + ": " + e.msg
	if e.Vertex != nil {
		s += " (vertex=" + e.Vertex.Pin().Name() + ")"
	}
	return s
}

func internalErrorf(op string, v Vertex, tag *Tag, format string, args ...interface{}) error {
	return &InternalError{Op: op, Vertex: v, Tag: tag, msg: errors.Errorf(format, args...).Error()}
}

// ConvergenceError is returned by the latch loop driver when the number of
// fixed-point passes exceeds Search.MaxLatchPasses. It is not fatal to the
// process; the caller may inspect PassCount and decide to retry with a
// higher bound or accept the last computed (unconverged) arrivals.
type ConvergenceError struct {
	PassCount int
	Bound     int
}

func (e *ConvergenceError) Error() string {
	return errors.Errorf("stasearch: latch loop did not converge after %d passes (bound %d)",
		e.PassCount, e.Bound).Error()
}

// wrap is a thin helper for wrapping every collaborator-boundary error
// with the operation that failed.
func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, op)
}
