package relay

import (
	"encoding/base64"
	"sync"

	"github.com/gorilla/websocket"
)

// MediaSender pushes outbound frames back to the telephony provider.
type MediaSender interface {
	// SendMedia sends one μ-law frame on the given stream.
	SendMedia(streamID string, payload []byte) error
	// SendMark sends a playback checkpoint the provider echoes back
	// once everything queued before it has been played.
	SendMark(streamID, name string) error
}

type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSSender wraps a websocket connection as a MediaSender. Writes are
// serialized; gorilla connections allow one concurrent writer.
func NewWSSender(conn *websocket.Conn) MediaSender {
	return &wsSender{conn: conn}
}

func (s *wsSender) SendMedia(streamID string, payload []byte) error {
	msg := mediaMessage{
		Event:     "media",
		StreamSID: streamID,
		Media:     &mediaEvent{Payload: base64.StdEncoding.EncodeToString(payload)},
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

func (s *wsSender) SendMark(streamID, name string) error {
	msg := mediaMessage{
		Event:     "mark",
		StreamSID: streamID,
		Mark:      &markEvent{Name: name},
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}
