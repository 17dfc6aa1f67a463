// Package message implements the immutable VPW frame type shared by the
// request factory, the response parser and the transaction layer.
package message

import "time"

// Well-known VPW bus addresses.
const (
	ToolAddress      = 0xF0
	PCMAddress       = 0x10
	BroadcastAddress = 0xFE
)

// Block-write modes, the only frames subject to the block checksum
// invariant.
const (
	ModeBlockData  = 0x36
	ModeWriteBlock = 0x3B
)

// Message is an immutable VPW frame: header, payload, and an optional
// trailing 16-bit checksum. Once constructed it is never mutated; the
// inbound path may additionally stamp a timestamp and a transport error
// observed while receiving it.
type Message struct {
	data      []byte
	timestamp time.Time
	transErr  error
}

// New wraps raw bytes as a Message. The caller retains no reference to
// the backing slice afterwards; New takes ownership.
func New(b []byte) *Message {
	return &Message{data: b, timestamp: time.Now()}
}

// NewWithError wraps raw bytes together with a transport-level error
// observed while the frame was being received (e.g. a short read).
func NewWithError(b []byte, err error) *Message {
	return &Message{data: b, timestamp: time.Now(), transErr: err}
}

// Bytes returns the raw frame bytes. Callers must not mutate the
// returned slice.
func (m *Message) Bytes() []byte {
	return m.data
}

// Len returns the frame length in bytes.
func (m *Message) Len() int {
	return len(m.data)
}

// Timestamp returns when the frame was constructed or received.
func (m *Message) Timestamp() time.Time {
	return m.timestamp
}

// TransportError returns the transport-level error associated with this
// frame, if any (always nil for frames built by the factory).
func (m *Message) TransportError() error {
	return m.transErr
}

// Priority, Destination, Source and Mode decode the fixed VPW header.
// Callers must ensure Len() >= 4 before calling these; they exist only
// to give the header bytes names at call sites.
func (m *Message) Priority() byte    { return m.data[0] }
func (m *Message) Destination() byte { return m.data[1] }
func (m *Message) Source() byte      { return m.data[2] }
func (m *Message) Mode() byte        { return m.data[3] }

// Payload returns the bytes after the 4-byte header. For block-write
// frames this includes the trailing checksum; callers that need the
// checksum stripped should use Len()-2 themselves.
func (m *Message) Payload() []byte {
	if len(m.data) <= 4 {
		return nil
	}
	return m.data[4:]
}

// HasPrefix reports whether the frame's bytes start with prefix. Used by
// the 4x negotiation ack check (§4.6.5), which compares a prefix rather
// than the whole frame because trailing bytes vary.
func (m *Message) HasPrefix(prefix []byte) bool {
	if len(m.data) < len(prefix) {
		return false
	}
	for i, b := range prefix {
		if m.data[i] != b {
			return false
		}
	}
	return true
}

// Equal reports byte-for-byte equality with another frame's raw bytes.
// Block-write acknowledgement matching (§4.6.3) requires this exact
// comparison rather than a semantic one.
func (m *Message) Equal(other []byte) bool {
	if len(m.data) != len(other) {
		return false
	}
	for i, b := range m.data {
		if b != other[i] {
			return false
		}
	}
	return true
}
