// Package pcmsession is the core of the tool: a single-threaded,
// cooperative session that drives one Device through identification,
// unlock, kernel upload, bulk read, and full flash write. It owns the
// device exclusively for its lifetime and guarantees that on any
// failure path the vehicle is left in a startable state.
package pcmsession

import (
	"sync"

	"github.com/gmflash/pcmflash/pkg/device"
	"github.com/gmflash/pcmflash/pkg/logging"
	"github.com/gmflash/pcmflash/pkg/protocol"
)

// Session drives a single Device through the PCM reflashing protocol.
// All state below is soft: it is the session's best understanding of
// the PCM's actual state, not a cache the session is free to assume.
type Session struct {
	dev     device.Device
	factory protocol.Factory
	parser  protocol.Parser
	log     logging.Logger
	cfg     Config

	closeOnce sync.Once

	busSpeed      protocol.VpwSpeed
	unlocked      bool
	kernelRunning bool
	kernelKind    kernelKind
}

type kernelKind int

const (
	kernelNone kernelKind = iota
	kernelWrite
	kernelRead
)

// New opens a session over dev. dev.Initialize() is called; if it
// fails, New returns a non-nil error.
func New(dev device.Device, opts ...Option) (*Session, error) {
	if !dev.Initialize() {
		return nil, errInitFailed
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Session{
		dev:      dev,
		factory:  protocol.NewFactory(),
		parser:   protocol.NewParser(),
		log:      cfg.Logger,
		cfg:      cfg,
		busSpeed: protocol.OneX,
	}, nil
}

// IsUnlocked reports the session's current belief about unlock state.
func (s *Session) IsUnlocked() bool { return s.unlocked }

// BusSpeed reports the session's current belief about bus speed.
func (s *Session) BusSpeed() protocol.VpwSpeed { return s.busSpeed }

// KernelRunning reports whether a kernel is currently believed
// resident and in control of the PCM.
func (s *Session) KernelRunning() bool { return s.kernelRunning }

// cancelled checks the cooperative cancellation signal at a natural
// suspension boundary.
func (s *Session) cancelled() bool {
	return s.cfg.CancelSignal != nil && s.cfg.CancelSignal()
}

// Close runs the best-effort recovery sequence and releases the
// device. It never returns an error: every send in the recovery
// sequence is allowed to fail silently, because the goal is to never
// leave the vehicle un-startable, not to report a clean shutdown.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.recover()
		s.dev.Dispose()
	})
}

// recover is the finally-style cleanup: exit any running kernel twice
// across both bus speeds, then force 1x. Modeled on a drop path that
// must run even when the operation that triggered it failed midway.
func (s *Session) recover() {
	exit := s.factory.ExitKernel()
	s.dev.SendFrame(exit)
	if s.busSpeed == protocol.FourX {
		s.dev.SetSpeed(protocol.OneX)
		s.busSpeed = protocol.OneX
	}
	s.dev.SendFrame(exit)
	s.dev.SetSpeed(protocol.OneX)
	s.busSpeed = protocol.OneX
	s.kernelRunning = false
	s.kernelKind = kernelNone
}
