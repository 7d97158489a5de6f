// Package voice wraps the realtime speech provider: streaming
// recognition of caller audio, reply generation, and speech synthesis.
package voice

import "context"

// TranscriptFunc receives recognition results as they arrive. Partial
// transcripts may be emitted any number of times before a final one.
type TranscriptFunc func(text string, final bool)

// Conversation is one call's channel to the speech provider.
// SendAudio forwards caller audio in its native μ-law encoding; the
// provider handles decoding on its side.
type Conversation interface {
	// SendAudio forwards one inbound media frame unmodified.
	SendAudio(mulaw []byte) error

	// Reply generates the assistant's next utterance for a final
	// transcript. Exactly one reply per final transcript.
	Reply(ctx context.Context, transcript string) (string, error)

	// Synthesize renders text to 16-bit linear PCM at 8kHz.
	Synthesize(ctx context.Context, text string) ([]int16, error)

	Close() error
}

// Dialer opens provider conversations, one per call.
type Dialer interface {
	Dial(ctx context.Context, callID string, onTranscript TranscriptFunc) (Conversation, error)
}
