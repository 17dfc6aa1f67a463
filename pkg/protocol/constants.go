package protocol

import "github.com/gmflash/pcmflash/pkg/message"

// Bus addresses, re-exported from message for callers that only need
// the protocol package.
const (
	ToolAddress      = message.ToolAddress
	PCMAddress       = message.PCMAddress
	BroadcastAddress = message.BroadcastAddress
)

// Mode bytes used on the wire (spec §6.2).
const (
	ModeBlockData     = 0x36 // block data w/ sum
	ModeWriteBlock    = 0x3B // write block
	ModeWriteAck      = 0x7B // write ack
	ModeCommand       = 0x3C // mode command
	ModeUploadMgmt    = 0x34 // upload management
	ModeReadMgmt      = 0x35 // read management
	ModeFunctionalReq = 0x3D
)

// Functional request sub-modes used by single-frame identifier queries.
const (
	SubVin1    = 0x01
	SubVin2    = 0x02
	SubVin3    = 0x03
	SubSerial1 = 0x04
	SubSerial2 = 0x05
	SubSerial3 = 0x06
	SubBCC     = 0x07
	SubMEC     = 0x08
	SubOSID    = 0x09
	SubHWID    = 0x0A
	SubCALID   = 0x0B
	SubSeed    = 0x0C
	SubUnlock  = 0x0D
)

// VpwSpeed is the VPW bus speed mode.
type VpwSpeed int

const (
	OneX VpwSpeed = iota
	FourX
)

func (s VpwSpeed) String() string {
	if s == FourX {
		return "4x"
	}
	return "1x"
}

// BlockId enumerates the writable logical 6-byte blocks.
type BlockId byte

const (
	BlockVin1   BlockId = 0x01
	BlockVin2   BlockId = 0x02
	BlockVin3   BlockId = 0x03
	BlockSerial BlockId = 0x0B
	BlockBCC    BlockId = 0x04
	BlockMEC    BlockId = 0x0A
)

// PayloadLength returns the fixed payload length for this block. All
// currently defined blocks are 6 bytes.
func (b BlockId) PayloadLength() int {
	return 6
}

func (b BlockId) String() string {
	switch b {
	case BlockVin1:
		return "Vin1"
	case BlockVin2:
		return "Vin2"
	case BlockVin3:
		return "Vin3"
	case BlockSerial:
		return "Serial"
	case BlockBCC:
		return "BCC"
	case BlockMEC:
		return "MEC"
	default:
		return "Unknown"
	}
}

// IsChatterFrame reports whether f is routine bus traffic rather than
// a reply addressed to the tool: a device-present/tester-present
// announcement, or any frame whose destination isn't ToolAddress.
// Frames shorter than a full header are reported as not chatter,
// since a handful of response frames in this protocol are bare
// payload bytes with no header at all.
func IsChatterFrame(f *message.Message) bool {
	if f == nil || f.Len() < 4 {
		return false
	}
	if f.Destination() != ToolAddress {
		return true
	}
	return f.Mode() == ModeCommand && f.Len() >= 5 && f.Payload()[0] == 0x01
}

// PcmInfo describes the target PCM.
type PcmInfo struct {
	ImageBaseAddress  uint32
	ImageSize         uint32
	KernelBaseAddress uint32
	KeyAlgorithmID    uint16
}
