package pcmsession

import (
	"bytes"
	"testing"

	"github.com/gmflash/pcmflash/pkg/message"
	"github.com/gmflash/pcmflash/pkg/protocol"
)

func TestReadContentsLiteralThenRLE(t *testing.T) {
	ack := message.New([]byte{0x00})
	literal := message.New([]byte{
		0x6D, 0x10, 0xF0, 0x35, payloadMarkerLiteral, 0x00, 0x00, 0x00, 0x00, 0x00,
		0xAA, 0xBB, 0xCC, 0xDD, 0xEE,
	})
	rle := message.New([]byte{
		0x6D, 0x10, 0xF0, 0x35, payloadMarkerRLE, 0x00, 0x05, 0x00, 0x00, 0x00, 0x7E,
	})

	dev := &mockDevice{queue: []*message.Message{ack, literal, ack, rle}}
	s := newTestSession(t, dev, WithReadBlockSize(5))
	s.unlocked = true
	s.kernelRunning = true

	resp := s.ReadContents(ImageInfo{ImageBase: 0x1000, ImageSize: 10}, nil)
	image, ok := resp.Value()
	if !ok {
		t.Fatalf("expected success, got %v", resp)
	}
	want := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0x7E, 0x7E, 0x7E, 0x7E, 0x7E}
	if !bytes.Equal(image, want) {
		t.Fatalf("ReadContents() = %x, want %x", image, want)
	}
}

// TestReadContentsFailureRunsRecoverySequence drives ReadContents into
// a read failure (the device never produces a usable response) and
// checks the finally-style cleanup: exit_kernel sent exactly twice,
// ending with the bus forced back to 1x.
func TestReadContentsFailureRunsRecoverySequence(t *testing.T) {
	dev := &mockDevice{}
	s := newTestSession(t, dev)
	s.unlocked = true
	s.kernelRunning = true
	s.busSpeed = protocol.FourX
	s.cfg.ReadRetries = 1

	resp := s.ReadContents(ImageInfo{ImageBase: 0, ImageSize: 4}, nil)
	if resp.IsSuccess() {
		t.Fatal("expected read failure when the device never responds")
	}

	exitKernel := s.factory.ExitKernel()
	exitCount := 0
	for _, f := range dev.sent {
		if f.Equal(exitKernel.Bytes()) {
			exitCount++
		}
	}
	if exitCount != 2 {
		t.Fatalf("expected exactly 2 exit_kernel sends during recovery, got %d", exitCount)
	}
	if len(dev.speedCalls) == 0 || dev.speedCalls[len(dev.speedCalls)-1] != protocol.OneX {
		t.Fatalf("expected recovery to end by forcing 1x, got %v", dev.speedCalls)
	}
	if s.KernelRunning() {
		t.Fatal("expected kernel_running cleared after recovery")
	}
	if s.BusSpeed() != protocol.OneX {
		t.Fatal("expected bus speed recorded as 1x after recovery")
	}
}
