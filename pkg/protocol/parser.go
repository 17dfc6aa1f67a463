package protocol

import "github.com/gmflash/pcmflash/pkg/message"

// Parser decodes raw response frames into typed Responses. Every
// method is a pure function of its input bytes.
type Parser struct{}

// NewParser returns a Parser.
func NewParser() Parser { return Parser{} }

// ParseVinResponses assembles the three VIN blocks into the 17-character
// VIN. Any missing or short block fails with StatusError.
func (Parser) ParseVinResponses(b1, b2, b3 *message.Message) Response[string] {
	return assembleTriplet(b1, b2, b3, "VIN")
}

// ParseSerialResponses assembles the three serial blocks into the
// 17-character serial number.
func (Parser) ParseSerialResponses(b1, b2, b3 *message.Message) Response[string] {
	return assembleTriplet(b1, b2, b3, "serial")
}

func assembleTriplet(b1, b2, b3 *message.Message, label string) Response[string] {
	parts := []*message.Message{b1, b2, b3}
	out := make([]byte, 0, 18)
	for i, p := range parts {
		if p == nil || p.Len() < 6 {
			return Err[string]("%s block %d missing or short", label, i+1)
		}
		payload := p.Payload()
		if len(payload) < 6 {
			return Err[string]("%s block %d missing or short", label, i+1)
		}
		out = append(out, payload[len(payload)-6:]...)
	}
	if len(out) < 17 {
		return Err[string]("%s reassembly too short", label)
	}
	return Ok(string(out[:17]))
}

// ParseBccResponse extracts the broadcast code combination from a
// single response frame.
func (Parser) ParseBccResponse(b *message.Message) Response[string] {
	return parseAsciiSingle(b, "BCC")
}

// ParseMecResponse extracts the manufacturer enable counter from a
// single response frame.
func (Parser) ParseMecResponse(b *message.Message) Response[string] {
	return parseAsciiSingle(b, "MEC")
}

func parseAsciiSingle(b *message.Message, label string) Response[string] {
	if b == nil {
		return Timeout[string]("no %s response", label)
	}
	payload := b.Payload()
	if len(payload) < 6 {
		return Truncated[string]("%s response too short", label)
	}
	return Ok(string(payload[len(payload)-6:]))
}

// ParseBlockU32 extracts a 32-bit big-endian identifier (OS/HW/CAL id)
// from the tail of a response payload.
func (Parser) ParseBlockU32(b *message.Message) Response[uint32] {
	if b == nil {
		return Timeout[uint32]("no response")
	}
	payload := b.Payload()
	if len(payload) < 4 {
		return Truncated[uint32]("u32 response too short")
	}
	tail := payload[len(payload)-4:]
	v := uint32(tail[0])<<24 | uint32(tail[1])<<16 | uint32(tail[2])<<8 | uint32(tail[3])
	return Ok(v)
}

// IsUnlocked recognizes the PCM's "already unlocked" seed response.
func (Parser) IsUnlocked(b *message.Message) bool {
	if b == nil || b.Len() < 6 {
		return false
	}
	payload := b.Payload()
	return len(payload) >= 2 && payload[len(payload)-2] == 0x37 && payload[len(payload)-1] == 0x00
}

// ParseSeed returns the 16-bit seed from a seed-request response.
// A seed of 0x0000 means unlock is not required.
func (Parser) ParseSeed(b *message.Message) Response[uint16] {
	if b == nil {
		return Timeout[uint16]("no seed response")
	}
	payload := b.Payload()
	if len(payload) < 2 {
		return Truncated[uint16]("seed response too short")
	}
	tail := payload[len(payload)-2:]
	return Ok(uint16(tail[0])<<8 | uint16(tail[1]))
}

// ParseUnlockResponse decodes success/refusal of the key-response
// frame, with an optional human-readable diagnostic extracted from the
// frame when the PCM supplies one.
func (Parser) ParseUnlockResponse(b *message.Message) (Response[bool], string) {
	if b == nil {
		return Timeout[bool]("no unlock response"), ""
	}
	payload := b.Payload()
	if len(payload) < 1 {
		return Truncated[bool]("unlock response too short"), ""
	}
	switch payload[len(payload)-1] {
	case 0x34:
		return Ok(true), ""
	case 0x35:
		return Refused[bool]("PCM rejected key"), "invalid key"
	case 0x36:
		return Refused[bool]("PCM rejected key"), "exceeded max attempts"
	default:
		return Unexpected[bool]("unrecognized unlock response byte %#02x", payload[len(payload)-1]), ""
	}
}

// ParseReadResponse reports whether the PCM accepted a bulk-read
// request: true means the payload frame will follow. The ack is a
// minimal single-byte status frame, distinct from the header-bearing
// frames used elsewhere.
func (Parser) ParseReadResponse(b *message.Message) Response[bool] {
	if b == nil {
		return Timeout[bool]("no read ack")
	}
	raw := b.Bytes()
	if len(raw) < 1 {
		return Truncated[bool]("read ack too short")
	}
	switch raw[0] {
	case 0x00:
		return Ok(true)
	default:
		return Ok(false)
	}
}

// ParseStartFullFlashResponse validates the PCM's acknowledgement of
// the start-full-flash command.
func (Parser) ParseStartFullFlashResponse(b *message.Message) Response[bool] {
	if b == nil {
		return Timeout[bool]("no start-flash response")
	}
	if !b.HasPrefix([]byte{0x6C, message.ToolAddress, message.PCMAddress, ModeCommand}) {
		return Unexpected[bool]("unexpected start-flash response")
	}
	return Ok(true)
}

// ParseWriteBlockAck reports whether id's write-block frame was
// accepted. Exact byte equality against the expected ack
// {0x6C, Tool, PCM, 0x7B, id} constitutes success.
func (Parser) ParseWriteBlockAck(b *message.Message, id BlockId) Response[bool] {
	if b == nil {
		return Timeout[bool]("no write-block ack")
	}
	want := []byte{0x6C, message.ToolAddress, message.PCMAddress, ModeWriteAck, byte(id)}
	if b.Equal(want) {
		return Ok(true)
	}
	return Refused[bool]("PCM rejected attempt")
}
