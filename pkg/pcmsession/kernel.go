package pcmsession

import (
	"github.com/gmflash/pcmflash/pkg/kernelfile"
	"github.com/gmflash/pcmflash/pkg/protocol"
	"github.com/gmflash/pcmflash/pkg/transaction"
)

// frameOverhead is the header and checksum bytes every kernel chunk
// frame carries beyond its payload: 10 bytes of header plus 2 bytes of
// checksum.
const frameOverhead = 12

// chunkPlan describes one chunk of a kernel upload: where in the
// source payload it starts, how long it is, the PCM RAM address it
// targets, and whether the PCM should execute immediately on receipt.
type chunkPlan struct {
	offset           int
	length           int
	address          uint32
	executeOnReceive bool
}

// planChunks partitions a payload of the given length into the
// high-to-low chunk sequence pcm_execute sends: the remainder first,
// then every full chunk from the highest offset down to zero. Exactly
// one chunk has executeOnReceive set, and it is always the chunk that
// ends up at offset 0 — whether that's the sole remainder chunk (when
// the whole payload fits in one) or the last full chunk sent.
func planChunks(payloadLen int, chunkSize int, baseAddress uint32) []chunkPlan {
	if payloadLen == 0 {
		return nil
	}
	n := payloadLen / chunkSize
	r := payloadLen % chunkSize

	var plan []chunkPlan
	if r > 0 {
		offset := n * chunkSize
		plan = append(plan, chunkPlan{
			offset:           offset,
			length:           r,
			address:          baseAddress + uint32(offset),
			executeOnReceive: r == payloadLen,
		})
	}
	for i := n; i >= 1; i-- {
		offset := (i - 1) * chunkSize
		plan = append(plan, chunkPlan{
			offset:           offset,
			length:           chunkSize,
			address:          baseAddress + uint32(offset),
			executeOnReceive: offset == 0,
		})
	}
	return plan
}

// PcmExecute loads payload into PCM RAM starting at baseAddress and
// transfers control to baseAddress as the final step. progress, if
// non-nil, is called with bytes sent after every chunk.
func (s *Session) PcmExecute(payload []byte, baseAddress uint32, progress func(sent, total int)) protocol.Response[bool] {
	if len(payload) == 0 {
		return protocol.Err[bool]("empty kernel payload")
	}
	if s.cancelled() {
		return protocol.Err[bool]("cancelled")
	}

	s.suppressChatter()

	if _, ok := transaction.SendRequest(s.dev, s.factory.UploadRequest(uint32(len(payload)), baseAddress), s.cfg.UploadRetries); !ok {
		return protocol.Timeout[bool]("upload request")
	}

	chunkSize := s.dev.MaxSendSize() - frameOverhead
	if chunkSize <= 0 {
		return protocol.Err[bool]("device max send size too small for any chunk")
	}

	plan := planChunks(len(payload), chunkSize, baseAddress)
	sent := 0
	for _, c := range plan {
		if s.cancelled() {
			return protocol.Err[bool]("cancelled")
		}
		msg := s.factory.BlockMessage(payload, c.offset, c.length, c.address, c.executeOnReceive)
		if _, ok := transaction.SendRequest(s.dev, msg, s.cfg.ChunkRetries); !ok {
			return protocol.Timeout[bool]("kernel chunk at offset %d", c.offset)
		}
		s.suppressChatter()
		sent += c.length
		if progress != nil {
			progress(sent, len(payload))
		}
	}

	s.kernelRunning = true
	return protocol.Ok(true)
}

// suppressChatter asks every device on the bus to stop sending routine
// traffic. Best-effort: no retry, no failure reported.
func (s *Session) suppressChatter() {
	s.dev.SendFrame(s.factory.DisableNormalMessageTransmission())
}

// loadKernel reads name through the configured KernelFileSource and
// checks its embedded version tag, if any, against the configured
// minimum. A mismatch is logged through the Logger, not a hard
// failure: real kernel binaries predate the version-tag convention.
func (s *Session) loadKernel(name string) protocol.Response[[]byte] {
	if s.cfg.KernelFile == nil {
		return protocol.Err[[]byte]("no kernel file source configured")
	}
	data, err := s.cfg.KernelFile.ReadAll(name)
	if err != nil {
		return protocol.Err[[]byte]("%s: %v", name, err)
	}
	if s.cfg.MinimumKernelVersion != "" {
		if v := kernelfile.KernelVersion(data); v != "" && !kernelfile.CompatibleVersion(v, s.cfg.MinimumKernelVersion) {
			s.log.User("kernel " + name + " reports version " + v + ", older than the minimum " + s.cfg.MinimumKernelVersion)
		}
	}
	return protocol.Ok(data)
}

// EnsureReadKernel loads and executes the read kernel if it isn't
// already the kernel in control. A no-op if the read kernel is
// already running.
func (s *Session) EnsureReadKernel(kernelFileName string, kernelBaseAddress uint32) protocol.Response[bool] {
	if s.kernelRunning && s.kernelKind == kernelRead {
		return protocol.Ok(true)
	}
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
	s.kernelKind = kernelRead
	return protocol.Ok(true)
}
