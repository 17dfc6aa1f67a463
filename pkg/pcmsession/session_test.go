package pcmsession

import (
	"testing"

	"github.com/gmflash/pcmflash/pkg/device"
	"github.com/gmflash/pcmflash/pkg/message"
	"github.com/gmflash/pcmflash/pkg/protocol"
)

// mockDevice is a scripted Device: SendFrame always succeeds, and
// ReceiveFrame walks a queue of canned frames (or failures) regardless
// of what was sent, which is enough to drive the session's sequencing
// logic under test.
type mockDevice struct {
	queue       []*message.Message
	pos         int
	sent        []*message.Message
	speedCalls  []protocol.VpwSpeed
	speed       protocol.VpwSpeed
	supports4   bool
	maxSend     int
	initialized bool
}

func (m *mockDevice) Initialize() bool { m.initialized = true; return true }
func (m *mockDevice) SendFrame(msg *message.Message) bool {
	m.sent = append(m.sent, msg)
	return true
}
func (m *mockDevice) ReceiveFrame() (*message.Message, bool) {
	if m.pos >= len(m.queue) {
		return nil, false
	}
	f := m.queue[m.pos]
	m.pos++
	if f == nil {
		return nil, false
	}
	return f, true
}
func (m *mockDevice) SetSpeed(speed protocol.VpwSpeed) {
	m.speedCalls = append(m.speedCalls, speed)
	m.speed = speed
}
func (m *mockDevice) ClearQueue()                          {}
func (m *mockDevice) SetTimeout(device.TimeoutScenario)    {}
func (m *mockDevice) SupportsFourX() bool                  { return m.supports4 }
func (m *mockDevice) MaxSendSize() int                      { return m.maxSend }
func (m *mockDevice) Dispose()                              {}

func newTestSession(t *testing.T, dev *mockDevice, extra ...Option) *Session {
	t.Helper()
	opts := append([]Option{WithKeyAlgorithm(0x0001)}, extra...)
	s, err := New(dev, opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s
}

func TestUnlockSeedZeroSkipsKeyExchange(t *testing.T) {
	seedFrame := message.New([]byte{0x6C, message.ToolAddress, message.PCMAddress, protocol.ModeFunctionalReq, protocol.SubSeed, 0x00, 0x00})
	dev := &mockDevice{queue: []*message.Message{seedFrame}}
	s := newTestSession(t, dev)

	resp := s.Unlock()
	if !resp.IsSuccess() {
		t.Fatalf("expected success, got %v", resp)
	}
	if !s.IsUnlocked() {
		t.Fatal("expected session to record unlocked state")
	}
	// Only the keep-alive and seed request should have gone out; no
	// unlock-key frame.
	for _, f := range dev.sent {
		if f.Payload()[0] == protocol.SubUnlock {
			t.Fatal("unexpected unlock-key frame sent when seed was 0x0000")
		}
	}
}

func TestFourXNegotiationSkippedWhenUnsupported(t *testing.T) {
	dev := &mockDevice{supports4: false}
	s := newTestSession(t, dev)

	resp := s.NegotiateFourX()
	got, ok := resp.Value()
	if !ok || !got {
		t.Fatalf("expected success/true, got %v", resp)
	}
	if len(dev.sent) != 0 {
		t.Fatal("expected device untouched when 4x unsupported")
	}
	if s.BusSpeed() != protocol.OneX {
		t.Fatal("expected bus speed to remain 1x")
	}
}

func TestWriteBlockRejection(t *testing.T) {
	ack := message.New([]byte{0x6C, message.ToolAddress, message.PCMAddress, protocol.ModeWriteAck, byte(protocol.BlockVin3)})
	dev := &mockDevice{queue: []*message.Message{ack}}
	s := newTestSession(t, dev)

	resp := s.WriteBlock(protocol.BlockVin2, [6]byte{'1', '2', '3', '4', '5', '6'})
	if resp.IsSuccess() {
		t.Fatal("expected rejection for mismatched block id in ack")
	}
	if resp.Status() != protocol.StatusRefused {
		t.Fatalf("expected StatusRefused, got %v", resp.Status())
	}
}

func TestPcmExecuteChunkPlanOffsets(t *testing.T) {
	payload := make([]byte, 400)
	dev := &mockDevice{maxSend: 76}
	// One ack for the upload request, then one per chunk (7 chunks).
	for i := 0; i < 8; i++ {
		dev.queue = append(dev.queue, message.New([]byte{0x00}))
	}
	s := newTestSession(t, dev)

	resp := s.PcmExecute(payload, 0x020000, nil)
	if !resp.IsSuccess() {
		t.Fatalf("expected success, got %v", resp)
	}

	var offsets []uint32
	for _, f := range dev.sent {
		if f.Mode() != protocol.ModeBlockData {
			continue
		}
		addr := uint32(f.Bytes()[7])<<16 | uint32(f.Bytes()[8])<<8 | uint32(f.Bytes()[9])
		offsets = append(offsets, addr-0x020000)
	}
	want := []uint32{384, 320, 256, 192, 128, 64, 0}
	if len(offsets) != len(want) {
		t.Fatalf("expected %d chunk frames, got %d: %v", len(want), len(offsets), offsets)
	}
	for i := range want {
		if offsets[i] != want[i] {
			t.Fatalf("offset[%d] = %d, want %d", i, offsets[i], want[i])
		}
	}
	if !s.KernelRunning() {
		t.Fatal("expected kernel_running to be set after successful execute")
	}
}

func TestPlanChunksExactMultipleHasNoZeroLengthRemainder(t *testing.T) {
	plan := planChunks(128, 64, 0)
	if len(plan) != 2 {
		t.Fatalf("expected exactly 2 chunks for an exact multiple, got %d", len(plan))
	}
	execCount := 0
	for _, c := range plan {
		if c.executeOnReceive {
			execCount++
			if c.offset != 0 {
				t.Fatalf("expected execute flag on offset 0, got offset %d", c.offset)
			}
		}
	}
	if execCount != 1 {
		t.Fatalf("expected exactly one execute-on-receive chunk, got %d", execCount)
	}
}

func TestPlanChunksSingleRemainder(t *testing.T) {
	plan := planChunks(40, 64, 0)
	if len(plan) != 1 {
		t.Fatalf("expected a single remainder chunk, got %d", len(plan))
	}
	if !plan[0].executeOnReceive || plan[0].offset != 0 {
		t.Fatalf("expected the sole chunk to execute at offset 0, got %+v", plan[0])
	}
}
