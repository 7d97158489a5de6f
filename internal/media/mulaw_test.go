package media

import "testing"

func TestLinearToMulawSilence(t *testing.T) {
	out := LinearToMulaw([]int16{0, 0, 0})
	if len(out) != 3 {
		t.Fatalf("expected 3 bytes, got %d", len(out))
	}
	for i, b := range out {
		if b != 0xFF {
			t.Fatalf("sample %d: expected 0xFF for silence, got 0x%02X", i, b)
		}
	}
}

func TestLinearToMulawReferenceCodepoints(t *testing.T) {
	cases := []struct {
		in   int16
		want byte
	}{
		{0, 0xFF},       // bias-only codepoint
		{32767, 0x80},   // max positive clamps, does not overflow
		{32635, 0x80},   // clip boundary
		{-32768, 0x00},  // max negative
		{-1, 0x7F},
		{8, 0xFE},       // one quantization step above silence
	}
	for _, c := range cases {
		got := LinearToMulaw([]int16{c.in})[0]
		if got != c.want {
			t.Fatalf("encode(%d): expected 0x%02X, got 0x%02X", c.in, c.want, got)
		}
	}
}

func TestLinearToMulawOutputLength(t *testing.T) {
	samples := make([]int16, SamplesPerFrame)
	out := LinearToMulaw(samples)
	if len(out) != SamplesPerFrame {
		t.Fatalf("expected %d bytes, got %d", SamplesPerFrame, len(out))
	}
	if out2 := LinearToMulaw(nil); out2 != nil {
		t.Fatalf("expected nil for empty input")
	}
}

func TestMulawRoundTripWithinSegmentError(t *testing.T) {
	// μ-law is lossy; decoded values must land within the quantization
	// step of their segment.
	for _, s := range []int16{0, 1, -1, 100, -100, 1000, -1000, 8000, -8000, 30000, -30000} {
		b := LinearToMulaw([]int16{s})[0]
		d := MulawToLinear([]byte{b})[0]

		diff := int32(s) - int32(d)
		if diff < 0 {
			diff = -diff
		}
		// Worst-case step at the top segment is 1024.
		if diff > 1024 {
			t.Fatalf("round trip %d -> 0x%02X -> %d: error %d too large", s, b, d, diff)
		}
		// Sign must survive for anything above one step.
		if s > 8 && d <= 0 {
			t.Fatalf("round trip %d -> %d lost sign", s, d)
		}
		if s < -8 && d >= 0 {
			t.Fatalf("round trip %d -> %d lost sign", s, d)
		}
	}
}

func TestPCMBytesToSamples(t *testing.T) {
	got := PCMBytesToSamples([]byte{0x34, 0x12, 0x00, 0x80, 0xFF})
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
	if got[0] != 0x1234 {
		t.Fatalf("expected 0x1234, got 0x%04X", got[0])
	}
	if got[1] != -32768 {
		t.Fatalf("expected -32768, got %d", got[1])
	}
}
