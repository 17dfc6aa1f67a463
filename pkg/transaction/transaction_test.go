package transaction

import (
	"testing"

	"github.com/gmflash/pcmflash/pkg/device"
	"github.com/gmflash/pcmflash/pkg/message"
	"github.com/gmflash/pcmflash/pkg/protocol"
)

type stubDevice struct {
	sendResults    []bool
	receiveResults []*message.Message
	sendCalls      int
	receiveCalls   int
}

func (s *stubDevice) Initialize() bool { return true }
func (s *stubDevice) SendFrame(*message.Message) bool {
	ok := true
	if s.sendCalls < len(s.sendResults) {
		ok = s.sendResults[s.sendCalls]
	}
	s.sendCalls++
	return ok
}
func (s *stubDevice) ReceiveFrame() (*message.Message, bool) {
	var frame *message.Message
	if s.receiveCalls < len(s.receiveResults) {
		frame = s.receiveResults[s.receiveCalls]
	}
	s.receiveCalls++
	return frame, frame != nil
}
func (s *stubDevice) SetSpeed(protocol.VpwSpeed)        {}
func (s *stubDevice) ClearQueue()                       {}
func (s *stubDevice) SetTimeout(device.TimeoutScenario) {}
func (s *stubDevice) SupportsFourX() bool               { return false }
func (s *stubDevice) MaxSendSize() int                  { return 76 }
func (s *stubDevice) Dispose()                          {}

func TestSendRequestSucceedsFirstTry(t *testing.T) {
	want := message.New([]byte{0x01, 0x02})
	d := &stubDevice{receiveResults: []*message.Message{want}}
	got, ok := SendRequest(d, message.New([]byte{0xAA}), 3)
	if !ok || got != want {
		t.Fatalf("expected immediate success, got %v ok=%v", got, ok)
	}
}

func TestSendRequestRetriesThenSucceeds(t *testing.T) {
	want := message.New([]byte{0x01})
	d := &stubDevice{receiveResults: []*message.Message{nil, nil, want}}
	got, ok := SendRequest(d, message.New([]byte{0xAA}), 5)
	if !ok || got != want {
		t.Fatalf("expected eventual success, got %v ok=%v", got, ok)
	}
	if d.receiveCalls != 3 {
		t.Fatalf("expected 3 receive attempts, got %d", d.receiveCalls)
	}
}

func TestSendRequestExhaustsRetries(t *testing.T) {
	d := &stubDevice{}
	_, ok := SendRequest(d, message.New([]byte{0xAA}), 2)
	if ok {
		t.Fatal("expected failure once retries are exhausted")
	}
	if d.receiveCalls != 3 {
		t.Fatalf("expected retries+1 = 3 attempts, got %d", d.receiveCalls)
	}
}

func TestSendRequestSkipsChatterFrames(t *testing.T) {
	chatter := message.New([]byte{0x6C, protocol.BroadcastAddress, 0x20, protocol.ModeCommand, 0x01})
	want := message.New([]byte{0x6C, protocol.ToolAddress, protocol.PCMAddress, protocol.ModeFunctionalReq, 0x0C, 0x12, 0x34})
	d := &stubDevice{receiveResults: []*message.Message{chatter, chatter, want}}
	got, ok := SendRequest(d, message.New([]byte{0xAA}), 0)
	if !ok || got != want {
		t.Fatalf("expected the real response past two chatter frames, got %v ok=%v", got, ok)
	}
	if d.receiveCalls != 3 {
		t.Fatalf("expected 3 receive calls within a single attempt, got %d", d.receiveCalls)
	}
	if d.sendCalls != 1 {
		t.Fatalf("expected chatter to be skipped without consuming a retry, got %d sends", d.sendCalls)
	}
}

func TestSendRequestGivesUpOnPersistentChatter(t *testing.T) {
	chatter := message.New([]byte{0x6C, protocol.BroadcastAddress, 0x20, protocol.ModeCommand, 0x01})
	d := &stubDevice{receiveResults: []*message.Message{chatter, chatter, chatter, chatter, chatter}}
	_, ok := SendRequest(d, message.New([]byte{0xAA}), 0)
	if ok {
		t.Fatal("expected failure when every receive is chatter")
	}
}
