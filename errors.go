package gesture

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every fallible operation wraps one of these so callers
// can test the kind with errors.Is and map it to a Status with StatusOf.
var (
	ErrBadArgument   = errors.New("gesture: bad argument")
	ErrNotSupported  = errors.New("gesture: not supported")
	ErrTypeMismatch  = errors.New("gesture: type mismatch")
	ErrEmpty         = errors.New("gesture: empty")
	ErrUnknown       = errors.New("gesture: unknown error")
	ErrInvalidDevice = fmt.Errorf("%w: invalid device", ErrBadArgument)
	ErrInvalidHandle = fmt.Errorf("%w: invalid or released handle", ErrBadArgument)
	ErrClosed        = fmt.Errorf("%w: engine closed", ErrUnknown)
)

// StatusOf maps an error returned by this package to its status code.
// A nil error is StatusSuccess.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrEmpty):
		return StatusEmpty
	case errors.Is(err, ErrNotSupported):
		return StatusNotSupported
	case errors.Is(err, ErrBadArgument), errors.Is(err, ErrTypeMismatch):
		return StatusBadArgument
	default:
		return StatusUnknownError
	}
}

// maxDiagnostics bounds the diagnostic history kept by an engine.
const maxDiagnostics = 32

// Diagnostic is one recorded failure.
type Diagnostic struct {
	Status  Status
	Message string
	Err     error
}

// Diagnostics is a bounded history of failures that could not be returned
// inline: accessors that return a sentinel value, and classifier failures
// isolated to one group. The oldest entries are dropped first.
type Diagnostics struct {
	entries []Diagnostic
	dropped int
}

func (d *Diagnostics) record(err error, format string, args ...any) {
	if d == nil {
		return
	}
	if len(d.entries) == maxDiagnostics {
		copy(d.entries, d.entries[1:])
		d.entries = d.entries[:maxDiagnostics-1]
		d.dropped++
	}
	d.entries = append(d.entries, Diagnostic{
		Status:  StatusOf(err),
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	})
}

// Count returns the number of retained diagnostics.
func (d *Diagnostics) Count() int {
	return len(d.entries)
}

// At returns the i'th retained diagnostic, oldest first.
func (d *Diagnostics) At(i int) (Diagnostic, bool) {
	if i < 0 || i >= len(d.entries) {
		return Diagnostic{}, false
	}
	return d.entries[i], true
}

// Dropped returns how many diagnostics were discarded to stay within bounds.
func (d *Diagnostics) Dropped() int {
	return d.dropped
}

// Reset clears the history.
func (d *Diagnostics) Reset() {
	d.entries = d.entries[:0]
	d.dropped = 0
}
