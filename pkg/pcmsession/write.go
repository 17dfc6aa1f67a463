package pcmsession

import (
	"io"

	"github.com/gmflash/pcmflash/pkg/device"
	"github.com/gmflash/pcmflash/pkg/message"
	"github.com/gmflash/pcmflash/pkg/protocol"
	"github.com/gmflash/pcmflash/pkg/transaction"
)

// WriteVin writes a 17-character VIN across three 6-byte blocks in
// order. Requires the session to already be unlocked.
func (s *Session) WriteVin(vin string) protocol.Response[bool] {
	if !s.unlocked {
		return protocol.Err[bool]("write requires an unlocked session")
	}
	if len(vin) != 17 {
		return protocol.Err[bool]("VIN must be 17 characters, got %d", len(vin))
	}

	blocks := []struct {
		id   protocol.BlockId
		data [6]byte
	}{
		{protocol.BlockVin1, block6(0x00, vin[0:5])},
		{protocol.BlockVin2, block6From(vin[5:11])},
		{protocol.BlockVin3, block6From(vin[11:17])},
	}

	for _, b := range blocks {
		resp := s.WriteBlock(b.id, b.data)
		if !resp.IsSuccess() {
			return protocol.Err[bool]("VIN block %s: %s", b.id, resp.Message())
		}
	}
	return protocol.Ok(true)
}

func block6(prefix byte, rest string) [6]byte {
	var b [6]byte
	b[0] = prefix
	copy(b[1:], rest)
	return b
}

func block6From(s string) [6]byte {
	var b [6]byte
	copy(b[:], s)
	return b
}

// WriteBlock writes one fixed 6-byte logical block and waits for the
// PCM's exact acknowledgement. A mismatched ack is reported as a PCM
// rejection (StatusRefused), distinct from a communications failure
// (StatusTimeout).
func (s *Session) WriteBlock(id protocol.BlockId, data [6]byte) protocol.Response[bool] {
	if s.cancelled() {
		return protocol.Err[bool]("cancelled")
	}
	frame, ok := transaction.SendRequest(s.dev, s.factory.WriteBlock(id, data), s.cfg.WriteBlockRetries)
	if !ok {
		return protocol.Timeout[bool]("write block %s", id)
	}
	return s.parser.ParseWriteBlockAck(frame, id)
}

// WriteFull performs a full flash write, streaming the image from
// stream in 192-byte chunks. If the write kernel is not already
// running, it is loaded via kernelFileName and executed first.
func (s *Session) WriteFull(kernelFileName string, kernelBaseAddress uint32, stream io.Reader) protocol.Response[bool] {
	if !s.unlocked {
		return protocol.Err[bool]("write requires an unlocked session")
	}

	if !s.kernelRunning || s.kernelKind != kernelWrite {
		if s.cancelled() {
			return protocol.Err[bool]("cancelled")
		}
		kernelResp := s.loadKernel(kernelFileName)
		kernel, ok := kernelResp.Value()
		if !ok {
			return protocol.Err[bool]("%s", kernelResp.Message())
		}
		if resp := s.PcmExecute(kernel, kernelBaseAddress, nil); !resp.IsSuccess() {
			return resp
		}
		s.kernelKind = kernelWrite
	}

	s.dev.SetTimeout(device.TimeoutMaximum)

	startValidator := func(frame *message.Message) protocol.Response[bool] {
		return s.parser.ParseStartFullFlashResponse(frame)
	}
	if resp := s.sendAndValidate(s.factory.StartFullFlash(), startValidator, "start full flash", 5, false); !resp.IsSuccess() {
		return resp
	}

	buf := make([]byte, 192)
	for {
		if s.cancelled() {
			s.recover()
			return protocol.Err[bool]("cancelled")
		}
		n, err := io.ReadFull(stream, buf)
		if err == io.EOF {
			break
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return protocol.Err[bool]("reading flash image: %v", err)
		}
		chunk := s.factory.FlashChunk(buf[:n])
		if _, ok := transaction.SendRequest(s.dev, chunk, s.cfg.FlashChunkRetries); !ok {
			return protocol.Timeout[bool]("flash chunk")
		}
		if err == io.ErrUnexpectedEOF {
			break
		}
	}

	return protocol.Ok(true)
}

// WritePartial performs a calibration-only write over a narrower
// address range. Not implemented: the source this tool was modeled on
// leaves the calibration-write path stubbed, and no kernel/address
// contract for it survived into this implementation.
func (s *Session) WritePartial(kernelFileName string, kernelBaseAddress uint32, startAddress, length uint32, stream io.Reader) protocol.Response[bool] {
	return protocol.Err[bool]("calibration write is not implemented")
}
