package message

import (
	"bytes"
	"testing"
)

func TestCalcBlockSum(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want uint16
	}{
		{
			name: "six byte vin block",
			in:   []byte{0x6C, 0x10, 0xF0, 0x3B, 0x02, 0x30, 0x31, 0x32, 0x33, 0x34, 0x35, 0x00, 0x00},
			want: 0x02 + 0x30 + 0x31 + 0x32 + 0x33 + 0x34 + 0x35,
		},
		{
			name: "too short",
			in:   []byte{0x01, 0x02, 0x03},
			want: 0,
		},
		{
			name: "wraps around",
			in:   append(append(make([]byte, 4), bytes.Repeat([]byte{0xFF}, 258)...), 0, 0),
			want: uint16((258 * 0xFF) & 0xFFFF),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalcBlockSum(tt.in)
			if got != tt.want {
				t.Errorf("CalcBlockSum() = %#04x, want %#04x", got, tt.want)
			}
		})
	}
}

func TestAppendBlockSum(t *testing.T) {
	t.Run("mismatched declared length left unchanged", func(t *testing.T) {
		frame := []byte{0x6D, 0x10, 0xF0, 0x36, 0x00, 0x06, 0xAA, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x00, 0x00}
		// len(frame) = 15, declared = b[5]<<8|b[6] = 0x06AA, declared+12 != 15 so this should pass through unchanged
		out := AppendBlockSum(append([]byte{}, frame...))
		if out[len(out)-1] != 0x00 || out[len(out)-2] != 0x00 {
			t.Fatalf("expected unchanged frame for mismatched declared length, got %x", out)
		}
	})

	t.Run("matching declared length gets summed", func(t *testing.T) {
		payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
		declared := len(payload)
		frame := make([]byte, 0, declared+12)
		frame = append(frame, 0x6D, 0x10, 0xF0, 0x36, 0x00, byte(declared>>8), byte(declared))
		frame = append(frame, payload...)
		// pad remaining bytes before the checksum to hit declared+12 total length
		for len(frame) < declared+12-2 {
			frame = append(frame, 0x00)
		}
		frame = append(frame, 0x00, 0x00)

		out := AppendBlockSum(frame)
		if !VerifyBlockSum(out) {
			t.Fatalf("expected checksum to verify, got %x", out)
		}
	})

	t.Run("short frame left alone", func(t *testing.T) {
		in := []byte{0x01, 0x02, 0x03}
		out := AppendBlockSum(append([]byte{}, in...))
		if !equalBytes(out, in) {
			t.Fatalf("expected short frame unchanged, got %x want %x", out, in)
		}
	})
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
