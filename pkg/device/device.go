// Package device defines the transport collaborator the session talks
// to, plus a serial and a USB implementation of it.
package device

import (
	"time"

	"github.com/gmflash/pcmflash/pkg/message"
	"github.com/gmflash/pcmflash/pkg/protocol"
)

// TimeoutScenario selects a receive-timeout profile appropriate to the
// operation in progress.
type TimeoutScenario int

const (
	TimeoutRead TimeoutScenario = iota
	TimeoutWrite
	TimeoutMaximum
)

// Device is the transport collaborator consumed by the session. An
// implementation owns exactly one physical or virtual link; callers
// never share one across sessions.
type Device interface {
	// Initialize opens and prepares the underlying link.
	Initialize() bool
	// SendFrame writes msg to the bus. It returns false on any
	// transport failure; it does not interpret the frame.
	SendFrame(msg *message.Message) bool
	// ReceiveFrame blocks up to the device's current timeout for the
	// next frame. ok is false on timeout or transport failure.
	ReceiveFrame() (frame *message.Message, ok bool)
	// SetSpeed switches the bus speed mode.
	SetSpeed(speed protocol.VpwSpeed)
	// ClearQueue discards any buffered inbound frames.
	ClearQueue()
	// SetTimeout selects a receive-timeout profile.
	SetTimeout(scenario TimeoutScenario)
	// SupportsFourX reports whether this link can negotiate 4x speed.
	SupportsFourX() bool
	// MaxSendSize is the largest frame this link can transmit in one
	// write, including header and checksum.
	MaxSendSize() int
	// Dispose releases the underlying link. Safe to call more than
	// once.
	Dispose()
}

func timeoutFor(scenario TimeoutScenario) time.Duration {
	switch scenario {
	case TimeoutWrite:
		return 1000 * time.Millisecond
	case TimeoutMaximum:
		return 30 * time.Second
	default:
		return 3000 * time.Millisecond
	}
}
