package pcmsession

import (
	"time"

	"github.com/gmflash/pcmflash/pkg/protocol"
	"github.com/gmflash/pcmflash/pkg/transaction"
)

// ImageInfo describes the flash region to read: its base address and
// total length in bytes.
type ImageInfo struct {
	ImageBase uint32
	ImageSize uint32
}

const (
	payloadMarkerLiteral = 0x01
	payloadMarkerRLE     = 0x02
)

// ReadContents reads info.ImageSize bytes starting at info.ImageBase
// into a freshly allocated image buffer. Requires the session to be
// unlocked with the read kernel already running; PcmExecute the read
// kernel before calling this; if either precondition is unmet it
// returns an error without touching the bus. Once the read loop has
// started, failure cleanup (exit-kernel twice across both speeds,
// force 1x) always runs before returning an error, because leaving the kernel running or the bus at 4x is a
// vehicle-operability hazard.
func (s *Session) ReadContents(info ImageInfo, progress func(read, total uint32)) protocol.Response[[]byte] {
	if !s.unlocked || !s.kernelRunning {
		return protocol.Err[[]byte]("read requires an unlocked session with the read kernel running")
	}

	image := make([]byte, info.ImageSize)
	end := info.ImageBase + info.ImageSize
	addr := info.ImageBase
	blockSize := uint32(s.cfg.ReadBlockSize)
	if blockSize == 0 {
		blockSize = 200
	}

	for addr < end {
		if s.cancelled() {
			s.recover()
			return protocol.Err[[]byte]("cancelled")
		}

		length := blockSize
		if addr+length > end {
			length = end - addr
		}

		s.suppressChatter()
		n, ok := s.tryReadBlock(image, addr-info.ImageBase, addr, uint16(length))
		if !ok {
			s.recover()
			return protocol.Timeout[[]byte]("read block at address %#06x", addr)
		}
		addr += n
		if progress != nil {
			progress(addr-info.ImageBase, info.ImageSize)
		}
	}

	return protocol.Ok(image)
}

// tryReadBlock attempts one bulk-read block up to s.cfg.ReadRetries
// times. On success it writes into image[imageOffset:imageOffset+n]
// and returns the number of bytes actually filled (equal to length
// for a literal payload, or the RLE run length otherwise) and true.
func (s *Session) tryReadBlock(image []byte, imageOffset uint32, addr uint32, length uint16) (uint32, bool) {
	for attempt := uint(0); attempt < s.cfg.ReadRetries; attempt++ {
		if s.cancelled() {
			return 0, false
		}
		if attempt > 0 {
			time.Sleep(readDelay)
		}

		ackFrame, ok := transaction.SendRequest(s.dev, s.factory.ReadRequest(addr, length), 1)
		if !ok {
			continue
		}
		ackResp := s.parser.ParseReadResponse(ackFrame)
		accepted, okVal := ackResp.Value()
		if !okVal || !accepted {
			continue
		}

		payloadFrame, ok := s.dev.ReceiveFrame()
		if !ok {
			continue
		}
		payload := payloadFrame.Bytes()
		if len(payload) < 11 {
			continue
		}

		switch payload[4] {
		case payloadMarkerLiteral:
			n := copy(image[imageOffset:imageOffset+uint32(length)], payload[10:])
			return uint32(n), true
		case payloadMarkerRLE:
			run := uint32(payload[5])<<8 | uint32(payload[6])
			fill := payload[10]
			for i := uint32(0); i < run; i++ {
				image[imageOffset+i] = fill
			}
			return run, true
		default:
			continue
		}
	}
	return 0, false
}
