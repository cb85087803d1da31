package sink

import (
	"fmt"
	"io"

	"github.com/m-lab/tcpdiag/wire"
)

const (
	frameTypeSample = 0
	frameTypeStart  = 1
	frameTypeEnd    = 2
)

type frameHeader struct {
	Length uint16
	Type   uint16
}

// Binary writes the dense length-prefixed frame format: every event
// becomes one {length, type, payload} record, length counting the
// 4-byte header itself. There is no inter-record padding.
type Binary struct {
	w io.Writer
}

// NewBinary wraps w as a Binary sink.
func NewBinary(w io.Writer) *Binary {
	return &Binary{w: w}
}

func (b *Binary) writeFrame(frameType uint16, payload []byte) error {
	hdr := make([]byte, 4)
	wire.NativeEndian.PutUint16(hdr[0:2], uint16(4+len(payload)))
	wire.NativeEndian.PutUint16(hdr[2:4], frameType)
	if _, err := b.w.Write(hdr); err != nil {
		return err
	}
	_, err := b.w.Write(payload)
	return err
}

// Start writes the 8-byte native-endian wallclock timestamp frame.
func (b *Binary) Start(wallclockMicros uint64) error {
	payload := make([]byte, 8)
	wire.NativeEndian.PutUint64(payload, wallclockMicros)
	return b.writeFrame(frameTypeStart, payload)
}

// Out writes payload verbatim as a sample frame.
func (b *Binary) Out(payload []byte) error {
	return b.writeFrame(frameTypeSample, payload)
}

// End writes the 4-byte native-endian duration frame.
func (b *Binary) End(durationMicros uint32) error {
	payload := make([]byte, 4)
	wire.NativeEndian.PutUint32(payload, durationMicros)
	return b.writeFrame(frameTypeEnd, payload)
}

// DecodeBinary reads frames from r until EOF, forwarding each to sink.
// Reaching EOF exactly on a frame boundary is a clean end of stream; any
// other read failure, or an unrecognized frame type, is fatal.
func DecodeBinary(r io.Reader, sink Sink) error {
	hdr := make([]byte, 4)
	for {
		if _, err := io.ReadFull(r, hdr); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		length := wire.NativeEndian.Uint16(hdr[0:2])
		frameType := wire.NativeEndian.Uint16(hdr[2:4])
		if length < 4 {
			return fmt.Errorf("sink: binary frame length %d shorter than header", length)
		}
		payload := make([]byte, length-4)
		if _, err := io.ReadFull(r, payload); err != nil {
			return err
		}
		switch frameType {
		case frameTypeStart:
			if len(payload) < 8 {
				return fmt.Errorf("sink: start frame too short")
			}
			if err := sink.Start(wire.NativeEndian.Uint64(payload)); err != nil {
				return err
			}
		case frameTypeSample:
			if err := sink.Out(payload); err != nil {
				return err
			}
		case frameTypeEnd:
			if len(payload) < 4 {
				return fmt.Errorf("sink: end frame too short")
			}
			if err := sink.End(wire.NativeEndian.Uint32(payload)); err != nil {
				return err
			}
		default:
			return ErrUnknownFrameType
		}
	}
}
