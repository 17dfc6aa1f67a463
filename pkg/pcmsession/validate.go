package pcmsession

import (
	"github.com/gmflash/pcmflash/pkg/message"
	"github.com/gmflash/pcmflash/pkg/protocol"
)

// Validator is a pure predicate over a single response frame.
type Validator func(*message.Message) protocol.Response[bool]

// sendAndValidate sends msg up to maxAttempts times. On each attempt:
// if the send itself produces no ack frame, it optionally pings the
// kernel keep-alive and retries; otherwise it waits for a frame that
// satisfies validator, trying up to waitAttempts receives before
// giving up the attempt and retrying the send.
func (s *Session) sendAndValidate(msg *message.Message, validator Validator, description string, maxAttempts uint, pingKernel bool) protocol.Response[bool] {
	if maxAttempts == 0 {
		maxAttempts = 5
	}
	const waitAttempts = 10

	for attempt := uint(0); attempt < maxAttempts; attempt++ {
		if s.cancelled() {
			return protocol.Err[bool]("cancelled")
		}
		if !s.dev.SendFrame(msg) {
			if pingKernel {
				s.dev.SendFrame(s.factory.DevicePresentNotification())
			}
			continue
		}

		ok := false
		for i := 0; i < waitAttempts; i++ {
			frame, received := s.dev.ReceiveFrame()
			if !received {
				continue
			}
			resp := validator(frame)
			if resp.IsSuccess() {
				ok = true
				break
			}
		}
		if ok {
			return protocol.Ok(true)
		}
		if pingKernel {
			s.dev.SendFrame(s.factory.DevicePresentNotification())
		}
	}
	return protocol.Timeout[bool]("%s", description)
}
