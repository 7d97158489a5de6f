package media

// G.711 μ-law companding for the Twilio media wire format
// (8-bit μ-law, 8kHz, mono).

const (
	// SampleRate is the only rate Twilio Media Streams speak.
	SampleRate = 8000

	// FrameDurationMs is the duration of one media frame.
	FrameDurationMs = 20

	// SamplesPerFrame is the number of samples in one 20ms frame at 8kHz.
	SamplesPerFrame = SampleRate * FrameDurationMs / 1000

	// FrameBytes is the μ-law byte length of one frame (1 byte per sample).
	FrameBytes = SamplesPerFrame
)

const (
	mulawBias = 0x84
	mulawClip = 32635
)

var mulawDecodeTable [256]int16

func init() {
	for i := 0; i < 256; i++ {
		mulawDecodeTable[i] = decodeMulawSample(byte(i))
	}
}

// LinearToMulaw converts 16-bit linear PCM samples to μ-law bytes.
// Output length equals input length.
func LinearToMulaw(samples []int16) []byte {
	if len(samples) == 0 {
		return nil
	}
	out := make([]byte, len(samples))
	for i, s := range samples {
		out[i] = encodeMulawSample(s)
	}
	return out
}

// MulawToLinear converts μ-law bytes to 16-bit linear PCM samples.
func MulawToLinear(payload []byte) []int16 {
	if len(payload) == 0 {
		return nil
	}
	out := make([]int16, len(payload))
	for i, b := range payload {
		out[i] = mulawDecodeTable[b]
	}
	return out
}

// PCMBytesToSamples reinterprets little-endian 16-bit PCM bytes as samples.
// A trailing odd byte is ignored.
func PCMBytesToSamples(pcm []byte) []int16 {
	n := len(pcm) / 2
	if n == 0 {
		return nil
	}
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(pcm[2*i]) | int16(pcm[2*i+1])<<8
	}
	return out
}

func encodeMulawSample(sample int16) byte {
	// Sign comes from the original sample, not the clamped magnitude.
	m := int32(sample)
	var sign byte
	if m < 0 {
		sign = 0x80
		m = -m
	}
	if m > mulawClip {
		m = mulawClip
	}
	m += mulawBias

	exponent := byte(7)
	for mask := int32(0x4000); mask > 0x80 && m&mask == 0; mask >>= 1 {
		exponent--
	}
	mantissa := byte(m>>(exponent+3)) & 0x0F

	return ^(sign | exponent<<4 | mantissa)
}

func decodeMulawSample(uval byte) int16 {
	uval = ^uval
	sign := int16(uval & 0x80)
	exponent := (uval >> 4) & 0x07
	mantissa := uval & 0x0F
	magnitude := ((int16(mantissa) << 3) + mulawBias) << exponent
	magnitude -= mulawBias
	if sign != 0 {
		return -magnitude
	}
	return magnitude
}
