package pcmsession

import (
	"github.com/gmflash/pcmflash/pkg/protocol"
	"github.com/gmflash/pcmflash/pkg/transaction"
)

// Unlock runs the seed/key exchange. It is idempotent: calling it
// again once unlocked is a cheap no-op success.
func (s *Session) Unlock() protocol.Response[bool] {
	if s.unlocked {
		return protocol.Ok(true)
	}
	if s.cancelled() {
		return protocol.Err[bool]("cancelled")
	}

	// Keep-alive so the PCM doesn't think the tool dropped off the bus
	// mid-exchange.
	s.dev.SendFrame(s.factory.DevicePresentNotification())

	seedFrame, ok := transaction.SendRequest(s.dev, s.factory.SeedRequest(), s.cfg.UnlockRetries)
	if !ok {
		return protocol.Timeout[bool]("seed request")
	}

	if s.parser.IsUnlocked(seedFrame) {
		s.unlocked = true
		return protocol.Ok(true)
	}

	seedResp := s.parser.ParseSeed(seedFrame)
	seed, ok := seedResp.Value()
	if !ok {
		return protocol.Err[bool]("%s", seedResp.Message())
	}
	if seed == 0x0000 {
		s.unlocked = true
		return protocol.Ok(true)
	}

	key := protocol.Key(s.cfg.KeyAlgorithmID, seed)

	if s.cancelled() {
		return protocol.Err[bool]("cancelled")
	}
	keyFrame, ok := transaction.SendRequest(s.dev, s.factory.UnlockRequest(key), s.cfg.UnlockRetries)
	if !ok {
		return protocol.Timeout[bool]("unlock request")
	}

	resp, diagnostic := s.parser.ParseUnlockResponse(keyFrame)
	if resp.IsSuccess() {
		s.unlocked = true
		s.log.User("PCM unlocked")
		return resp
	}
	if diagnostic != "" {
		s.log.User("unlock refused: " + diagnostic)
	}
	return resp
}
