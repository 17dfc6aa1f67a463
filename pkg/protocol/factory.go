package protocol

import "github.com/gmflash/pcmflash/pkg/message"

// Factory builds outbound request frames. Every method is a pure
// constructor: no device, no state, no side effects.
type Factory struct{}

// NewFactory returns a Factory. It carries no state; a zero value
// works equally well, but callers get a constructor to match the
// rest of the package.
func NewFactory() Factory { return Factory{} }

func functional(mode byte, sub byte) *message.Message {
	return message.New([]byte{0x6C, message.BroadcastAddress, message.ToolAddress, mode, sub})
}

// VinRequest builds the single-frame broadcast VIN block query for
// block i ∈ {1,2,3}.
func (Factory) VinRequest(i int) *message.Message {
	return functional(ModeFunctionalReq, byte(SubVin1+i-1))
}

// SerialRequest builds the single-frame broadcast serial block query
// for block i ∈ {1,2,3}.
func (Factory) SerialRequest(i int) *message.Message {
	return functional(ModeFunctionalReq, byte(SubSerial1+i-1))
}

// BccRequest builds the broadcast code combination query.
func (Factory) BccRequest() *message.Message {
	return functional(ModeFunctionalReq, SubBCC)
}

// MecRequest builds the manufacturer enable counter query.
func (Factory) MecRequest() *message.Message {
	return functional(ModeFunctionalReq, SubMEC)
}

// OsIdRequest, HwIdRequest, CalIdRequest build single-frame reads whose
// response decodes as an unsigned 32-bit big-endian value.
func (Factory) OsIdRequest() *message.Message  { return functional(ModeFunctionalReq, SubOSID) }
func (Factory) HwIdRequest() *message.Message  { return functional(ModeFunctionalReq, SubHWID) }
func (Factory) CalIdRequest() *message.Message { return functional(ModeFunctionalReq, SubCALID) }

// SeedRequest builds the seed request that begins the unlock exchange.
func (Factory) SeedRequest() *message.Message {
	return functional(ModeFunctionalReq, SubSeed)
}

// UnlockRequest builds the key-response frame that completes the
// unlock exchange.
func (Factory) UnlockRequest(key uint16) *message.Message {
	return message.New([]byte{
		0x6C, message.PCMAddress, message.ToolAddress, ModeFunctionalReq, SubUnlock,
		byte(key >> 8), byte(key),
	})
}

// UploadRequest asks permission to upload size bytes to a 24-bit
// address.
func (Factory) UploadRequest(size uint32, address uint32) *message.Message {
	return message.New([]byte{
		0x6C, message.PCMAddress, message.ToolAddress, ModeUploadMgmt,
		byte(size >> 8), byte(size),
		byte(address >> 16), byte(address >> 8), byte(address),
	})
}

// BlockMessage builds a kernel chunk frame carrying payload[offset:offset+length]
// addressed at destAddress. If executeOnReceive is true, the PCM executes
// the chunk immediately after receipt; the frame always carries a block
// checksum. Header layout (10 bytes): mode byte, exec flag, 16-bit
// length, 24-bit address — length occupies bytes[5:7], matching the
// declared-length field append_block_sum reads.
func (Factory) BlockMessage(payload []byte, offset int, length int, destAddress uint32, executeOnReceive bool) *message.Message {
	exec := byte(0x00)
	if executeOnReceive {
		exec = 0x01
	}
	frame := make([]byte, 0, length+12)
	frame = append(frame, 0x6D, message.PCMAddress, message.ToolAddress, ModeBlockData,
		exec,
		byte(length>>8), byte(length),
		byte(destAddress>>16), byte(destAddress>>8), byte(destAddress),
	)
	frame = append(frame, payload[offset:offset+length]...)
	frame = append(frame, 0x00, 0x00)
	return message.New(message.AppendBlockSum(frame))
}

// ReadRequest builds a bulk-read request for length bytes starting at
// the given 24-bit address.
func (Factory) ReadRequest(address uint32, length uint16) *message.Message {
	return message.New([]byte{
		0x6C, message.PCMAddress, message.ToolAddress, ModeReadMgmt,
		byte(address >> 16), byte(address >> 8), byte(address),
		byte(length >> 8), byte(length),
	})
}

// WriteBlock builds the write-block frame for a fixed 6-byte payload
// targeting the given logical block.
func (Factory) WriteBlock(id BlockId, data [6]byte) *message.Message {
	return message.New([]byte{
		0x6C, message.PCMAddress, message.ToolAddress, ModeWriteBlock, byte(id),
		data[0], data[1], data[2], data[3], data[4], data[5],
	})
}

// HighSpeedCheck builds the 4x negotiation probe frame.
func (Factory) HighSpeedCheck() *message.Message {
	return message.New([]byte{0x6C, message.BroadcastAddress, message.ToolAddress, ModeCommand, 0x04})
}

// HighSpeedOkResponse builds the expected (prefix-compared) PCM
// acknowledgement to HighSpeedCheck.
func (Factory) HighSpeedOkResponse() *message.Message {
	return message.New([]byte{0x6C, message.ToolAddress, message.PCMAddress, ModeCommand, 0x04})
}

// BeginHighSpeed builds the broadcast frame that commands every PCM on
// the bus to switch to 4x.
func (Factory) BeginHighSpeed() *message.Message {
	return message.New([]byte{0x6C, message.BroadcastAddress, message.ToolAddress, ModeCommand, 0x05})
}

// DisableNormalMessageTransmission suppresses routine bus chatter
// while a kernel session is in progress.
func (Factory) DisableNormalMessageTransmission() *message.Message {
	return message.New([]byte{0x6C, message.BroadcastAddress, message.ToolAddress, ModeCommand, 0xA0})
}

// DevicePresentNotification is the tool-present keep-alive frame.
func (Factory) DevicePresentNotification() *message.Message {
	return message.New([]byte{0x6C, message.BroadcastAddress, message.ToolAddress, ModeCommand, 0x01})
}

// ExitKernel instructs any running kernel to return control to the PCM's
// resident firmware.
func (Factory) ExitKernel() *message.Message {
	return message.New([]byte{0x6C, message.BroadcastAddress, message.ToolAddress, ModeCommand, 0xFF})
}

// StartFullFlash builds the start-full-flash frame.
func (Factory) StartFullFlash() *message.Message {
	return message.New([]byte{0x6C, message.PCMAddress, message.ToolAddress, ModeCommand, 0x01})
}

// FlashChunk builds a full-flash write frame carrying one slice of the
// flash image stream (192 bytes, or fewer for the final slice),
// checksummed. Header: 6D 10 F0 36 00 <len-hi> <len-lo> FF A0 00, where
// the length is the slice length (00 C0 for a full 192-byte slice).
func (Factory) FlashChunk(payload []byte) *message.Message {
	const chunk = 192
	frame := make([]byte, 0, chunk+12)
	frame = append(frame, 0x6D, message.PCMAddress, message.ToolAddress, ModeBlockData,
		0x00, byte(len(payload)>>8), byte(len(payload)), 0xFF, 0xA0, 0x00)
	frame = append(frame, payload...)
	frame = append(frame, 0x00, 0x00)
	return message.New(message.AppendBlockSum(frame))
}
