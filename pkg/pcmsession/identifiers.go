package pcmsession

import (
	"github.com/gmflash/pcmflash/pkg/message"
	"github.com/gmflash/pcmflash/pkg/protocol"
	"github.com/gmflash/pcmflash/pkg/transaction"
)

const identifierRetries = 5

// Vin queries the PCM's 17-character VIN across three strictly
// ordered request/response pairs. A missing response at block i
// collapses the whole query to a timeout naming that block.
func (s *Session) Vin() protocol.Response[string] {
	frames, resp := s.requestTriplet(s.factory.VinRequest, "VIN")
	if !resp.IsSuccess() {
		return protocol.Fail[string](resp.Status(), resp.Message())
	}
	return s.parser.ParseVinResponses(frames[0], frames[1], frames[2])
}

// SerialNumber queries the PCM's 17-character serial number the same
// way Vin does.
func (s *Session) SerialNumber() protocol.Response[string] {
	frames, resp := s.requestTriplet(s.factory.SerialRequest, "serial")
	if !resp.IsSuccess() {
		return protocol.Fail[string](resp.Status(), resp.Message())
	}
	return s.parser.ParseSerialResponses(frames[0], frames[1], frames[2])
}

// requestTriplet sends three sequential, strictly ordered
// request/response pairs built by request(1), request(2), request(3).
// The returned Response[bool] is success only if all three arrived; on
// the first missing response it returns Timeout naming the block.
func (s *Session) requestTriplet(request func(i int) *message.Message, label string) ([3]*message.Message, protocol.Response[bool]) {
	var frames [3]*message.Message
	for i := 1; i <= 3; i++ {
		if s.cancelled() {
			return frames, protocol.Err[bool]("cancelled")
		}
		frame, ok := transaction.SendRequest(s.dev, request(i), identifierRetries)
		if !ok {
			return frames, protocol.Timeout[bool]("%s block %d", label, i)
		}
		frames[i-1] = frame
	}
	return frames, protocol.Ok(true)
}

// BCC queries the broadcast code combination with a single
// request/response pair.
func (s *Session) BCC() protocol.Response[string] {
	frame, resp := s.requestOne(s.factory.BccRequest(), "BCC")
	if !resp.IsSuccess() {
		return protocol.Err[string]("%s", resp.Message())
	}
	return s.parser.ParseBccResponse(frame)
}

// MEC queries the manufacturer enable counter with a single
// request/response pair.
func (s *Session) MEC() protocol.Response[string] {
	frame, resp := s.requestOne(s.factory.MecRequest(), "MEC")
	if !resp.IsSuccess() {
		return protocol.Err[string]("%s", resp.Message())
	}
	return s.parser.ParseMecResponse(frame)
}

// OsId, HwId, CalId query the 32-bit identifiers that together select
// the correct unlock key algorithm and kernel compatibility.
func (s *Session) OsId() protocol.Response[uint32] {
	frame, resp := s.requestOne(s.factory.OsIdRequest(), "OS id")
	if !resp.IsSuccess() {
		return protocol.Err[uint32]("%s", resp.Message())
	}
	return s.parser.ParseBlockU32(frame)
}

func (s *Session) HwId() protocol.Response[uint32] {
	frame, resp := s.requestOne(s.factory.HwIdRequest(), "HW id")
	if !resp.IsSuccess() {
		return protocol.Err[uint32]("%s", resp.Message())
	}
	return s.parser.ParseBlockU32(frame)
}

func (s *Session) CalId() protocol.Response[uint32] {
	frame, resp := s.requestOne(s.factory.CalIdRequest(), "CAL id")
	if !resp.IsSuccess() {
		return protocol.Err[uint32]("%s", resp.Message())
	}
	return s.parser.ParseBlockU32(frame)
}

// requestOne sends req and waits for a single response, naming label
// in the resulting Response when the session is cancelled or the
// request times out.
func (s *Session) requestOne(req *message.Message, label string) (*message.Message, protocol.Response[bool]) {
	if s.cancelled() {
		return nil, protocol.Err[bool]("%s: cancelled", label)
	}
	frame, ok := transaction.SendRequest(s.dev, req, identifierRetries)
	if !ok {
		return nil, protocol.Timeout[bool]("%s", label)
	}
	return frame, protocol.Ok(true)
}
