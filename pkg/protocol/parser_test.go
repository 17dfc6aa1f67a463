package protocol

import (
	"testing"

	"github.com/gmflash/pcmflash/pkg/message"
)

func vinBlockFrame(sub byte, chars string) *message.Message {
	b := []byte{0x6C, message.ToolAddress, message.PCMAddress, ModeFunctionalReq, sub}
	b = append(b, []byte(chars)...)
	return message.New(b)
}

func TestParseVinResponsesAssemblesVin(t *testing.T) {
	p := NewParser()
	b1 := vinBlockFrame(SubVin1, "1G1YY2")
	b2 := vinBlockFrame(SubVin2, "2G9651")
	b3 := vinBlockFrame(SubVin3, "00001x")

	resp := p.ParseVinResponses(b1, b2, b3)
	got, ok := resp.Value()
	if !ok {
		t.Fatalf("expected success, got %v", resp)
	}
	want := "1G1YY22G965100001"
	if got != want {
		t.Fatalf("ParseVinResponses() = %q, want %q", got, want)
	}
}

func TestParseVinResponsesMissingBlock(t *testing.T) {
	p := NewParser()
	b1 := vinBlockFrame(SubVin1, "1G1YY2")
	resp := p.ParseVinResponses(b1, nil, nil)
	if resp.IsSuccess() {
		t.Fatal("expected failure for missing blocks")
	}
	if resp.Status() != StatusError {
		t.Fatalf("expected StatusError, got %v", resp.Status())
	}
}

func TestParseWriteBlockAckSuccess(t *testing.T) {
	p := NewParser()
	ack := message.New([]byte{0x6C, message.ToolAddress, message.PCMAddress, ModeWriteAck, byte(BlockVin2)})
	resp := p.ParseWriteBlockAck(ack, BlockVin2)
	if !resp.IsSuccess() {
		t.Fatalf("expected success, got %v", resp)
	}
}

func TestParseWriteBlockAckRejection(t *testing.T) {
	p := NewParser()
	ack := message.New([]byte{0x6C, message.ToolAddress, message.PCMAddress, ModeWriteAck, byte(BlockVin3)})
	resp := p.ParseWriteBlockAck(ack, BlockVin2)
	if resp.IsSuccess() {
		t.Fatal("expected rejection for mismatched block id")
	}
	if resp.Status() != StatusRefused {
		t.Fatalf("expected StatusRefused, got %v", resp.Status())
	}
	if resp.Error() == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestParseSeedZeroMeansNoUnlockRequired(t *testing.T) {
	p := NewParser()
	b := message.New([]byte{0x6C, message.ToolAddress, message.PCMAddress, ModeFunctionalReq, SubSeed, 0x00, 0x00})
	resp := p.ParseSeed(b)
	got, ok := resp.Value()
	if !ok || got != 0 {
		t.Fatalf("expected seed 0x0000, got %#04x ok=%v", got, ok)
	}
}

func TestParseReadResponseAcceptedAndRejected(t *testing.T) {
	p := NewParser()

	accepted := message.New([]byte{0x00})
	resp := p.ParseReadResponse(accepted)
	got, ok := resp.Value()
	if !ok || !got {
		t.Fatal("expected accepted read request to parse true")
	}

	rejected := message.New([]byte{0x01})
	resp2 := p.ParseReadResponse(rejected)
	got2, ok2 := resp2.Value()
	if !ok2 || got2 {
		t.Fatal("expected rejected read request to parse false")
	}
}

func TestParseBlockU32(t *testing.T) {
	p := NewParser()
	b := message.New([]byte{0x6C, message.ToolAddress, message.PCMAddress, ModeFunctionalReq, 0x12, 0x34, 0x56, 0x78})
	resp := p.ParseBlockU32(b)
	got, ok := resp.Value()
	if !ok || got != 0x12345678 {
		t.Fatalf("ParseBlockU32() = %#08x, want 0x12345678", got)
	}
}
