package pcmsession

import (
	"github.com/gmflash/pcmflash/pkg/protocol"
	"github.com/gmflash/pcmflash/pkg/transaction"
)

const speedNegotiationRetries = 3

// NegotiateFourX attempts to switch the bus to 4x. It is a no-op
// returning true when the device doesn't support 4x at all. Any
// refusal or communications failure leaves bus_speed untouched and
// consistent with the device's actual speed.
func (s *Session) NegotiateFourX() protocol.Response[bool] {
	if !s.dev.SupportsFourX() {
		return protocol.Ok(true)
	}
	if s.cancelled() {
		return protocol.Err[bool]("cancelled")
	}

	frame, ok := transaction.SendRequest(s.dev, s.factory.HighSpeedCheck(), speedNegotiationRetries)
	if !ok {
		return protocol.Timeout[bool]("high speed check")
	}

	want := s.factory.HighSpeedOkResponse()
	if !frame.HasPrefix(want.Bytes()) {
		return protocol.Ok(false)
	}

	s.dev.SendFrame(s.factory.BeginHighSpeed())
	s.dev.SetSpeed(protocol.FourX)
	s.busSpeed = protocol.FourX
	s.log.Debug("bus speed set to 4x")
	return protocol.Ok(true)
}
