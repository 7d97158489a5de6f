package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"listing-voice-gateway/internal/config"
	"listing-voice-gateway/internal/media"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client dials the provider's realtime WebSocket API.
type Client struct {
	url     string
	apiKey  string
	voiceID string
	log     *slog.Logger
}

var _ Dialer = (*Client)(nil)

func NewClient(cfg config.VoiceConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		url:     cfg.WebSocketURL,
		apiKey:  cfg.APIKey,
		voiceID: cfg.VoiceID,
		log:     log,
	}
}

// Wire protocol. Everything is JSON-framed; audio payloads are base64.
type clientMessage struct {
	Type       string `json:"type"`
	ID         string `json:"id,omitempty"`
	CallID     string `json:"call_id,omitempty"`
	Voice      string `json:"voice,omitempty"`
	Audio      string `json:"audio,omitempty"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

type serverMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Text    string `json:"text,omitempty"`
	Final   bool   `json:"final,omitempty"`
	Audio   string `json:"audio,omitempty"`
	Message string `json:"message,omitempty"`
}

func (c *Client) Dial(ctx context.Context, callID string, onTranscript TranscriptFunc) (Conversation, error) {
	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return nil, fmt.Errorf("voice: dial %s: %w", c.url, err)
	}

	conv := &wsConversation{
		ws:           ws,
		log:          c.log.With("call_id", callID),
		onTranscript: onTranscript,
		pending:      make(map[string]chan serverMessage),
		done:         make(chan struct{}),
	}

	if err := conv.send(clientMessage{Type: "session.start", CallID: callID, Voice: c.voiceID}); err != nil {
		_ = ws.Close()
		return nil, err
	}

	go conv.readLoop()
	return conv, nil
}

type wsConversation struct {
	ws           *websocket.Conn
	log          *slog.Logger
	onTranscript TranscriptFunc

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan serverMessage
	closed  bool
	done    chan struct{}
}

var errConversationClosed = errors.New("voice: conversation closed")

func (c *wsConversation) SendAudio(mulaw []byte) error {
	if len(mulaw) == 0 {
		return nil
	}
	return c.send(clientMessage{
		Type:  "audio.append",
		Audio: base64.StdEncoding.EncodeToString(mulaw),
	})
}

func (c *wsConversation) Reply(ctx context.Context, transcript string) (string, error) {
	resp, err := c.request(ctx, clientMessage{Type: "reply.request", Transcript: transcript})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *wsConversation) Synthesize(ctx context.Context, text string) ([]int16, error) {
	resp, err := c.request(ctx, clientMessage{Type: "speech.request", Text: text})
	if err != nil {
		return nil, err
	}
	pcm, err := base64.StdEncoding.DecodeString(resp.Audio)
	if err != nil {
		return nil, fmt.Errorf("voice: decode synthesis audio: %w", err)
	}
	return media.PCMBytesToSamples(pcm), nil
}

func (c *wsConversation) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	return c.ws.Close()
}

// request sends a message with a correlation ID and waits for the
// matching result frame.
func (c *wsConversation) request(ctx context.Context, msg clientMessage) (serverMessage, error) {
	msg.ID = uuid.NewString()

	ch := make(chan serverMessage, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return serverMessage{}, errConversationClosed
	}
	c.pending[msg.ID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.ID)
		c.mu.Unlock()
	}()

	if err := c.send(msg); err != nil {
		return serverMessage{}, err
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return serverMessage{}, errConversationClosed
		}
		if resp.Type == "error" {
			return serverMessage{}, fmt.Errorf("voice: provider error: %s", resp.Message)
		}
		return resp, nil
	case <-ctx.Done():
		return serverMessage{}, ctx.Err()
	case <-c.done:
		return serverMessage{}, errConversationClosed
	}
}

func (c *wsConversation) send(msg clientMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(msg)
}

func (c *wsConversation) readLoop() {
	defer func() { _ = c.Close() }()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				select {
				case <-c.done:
				default:
					c.log.Warn("voice socket read failed", "err", err)
				}
			}
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed frames are dropped, never fatal.
			c.log.Warn("voice message parse failed", "err", err)
			continue
		}

		switch msg.Type {
		case "transcript":
			if c.onTranscript != nil && msg.Text != "" {
				c.onTranscript(msg.Text, msg.Final)
			}
		case "reply.result", "speech.result", "error":
			c.mu.Lock()
			ch, ok := c.pending[msg.ID]
			c.mu.Unlock()
			if ok {
				select {
				case ch <- msg:
				default:
				}
			}
		default:
			// Unknown event types are ignored for forward compatibility.
		}
	}
}
