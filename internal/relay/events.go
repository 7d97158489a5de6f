package relay

// Twilio Media Streams wire messages. Inbound and outbound frames share
// the same JSON envelope; media payloads are base64-encoded μ-law.

type mediaMessage struct {
	Event     string      `json:"event"`
	StreamSID string      `json:"streamSid,omitempty"`
	Start     *startEvent `json:"start,omitempty"`
	Media     *mediaEvent `json:"media,omitempty"`
	Mark      *markEvent  `json:"mark,omitempty"`
	Stop      *stopEvent  `json:"stop,omitempty"`
}

type startEvent struct {
	StreamSID        string            `json:"streamSid"`
	AccountSID       string            `json:"accountSid"`
	CallSID          string            `json:"callSid"`
	Tracks           []string          `json:"tracks"`
	MediaFormat      mediaFormat       `json:"mediaFormat"`
	CustomParameters map[string]string `json:"customParameters"`
}

type mediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

type mediaEvent struct {
	Track     string `json:"track"`
	Chunk     string `json:"chunk"`
	Timestamp string `json:"timestamp"` // ms since stream start
	Payload   string `json:"payload"`   // base64 μ-law
}

type markEvent struct {
	Name string `json:"name"`
}

type stopEvent struct {
	AccountSID string `json:"accountSid"`
	CallSID    string `json:"callSid"`
}
