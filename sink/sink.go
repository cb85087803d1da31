// Package sink implements the three interchangeable ways a sweep of TCP
// socket samples can be written out (and read back in): a dense binary
// framing, newline-delimited JSON, and space-separated tabular text.
// Every sink obeys the same contract: exactly one Start, zero or more
// Out, exactly one End, in that order, per sweep.
package sink

import (
	"errors"

	"github.com/m-lab/tcpdiag/inetdiag"
	"github.com/m-lab/tcpdiag/schema"
)

// Sink receives one sweep's worth of samples.
type Sink interface {
	// Start begins a sweep. wallclockMicros is the sweep's wall-clock
	// start time, in microseconds since the Unix epoch.
	Start(wallclockMicros uint64) error
	// Out delivers one sample, in the kernel's own attribute-list byte
	// layout, so any sink can re-parse it.
	Out(payload []byte) error
	// End closes a sweep. durationMicros is the monotonic elapsed time
	// from Start to End.
	End(durationMicros uint32) error
}

// LineDesc is the tabular schema for one sweep sample: the sweep's
// wallclock time, the flattened sample record (absent for the
// zero-sample placeholder row), and the sweep duration.
var LineDesc = schema.Struct(
	schema.F("time", schema.Atom()),
	schema.Flatten(schema.Option(inetdiag.ExtraDesc)),
	schema.F("duration", schema.Atom()),
)

// ErrUnknownFrameType is returned by the binary reader when a frame
// header names a type other than 0 (sample), 1 (start), or 2 (end).
var ErrUnknownFrameType = errors.New("sink: unrecognized binary frame type")
