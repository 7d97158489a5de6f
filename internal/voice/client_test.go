package voice

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"listing-voice-gateway/internal/config"

	"github.com/gorilla/websocket"
)

// fakeProvider upgrades connections and answers the wire protocol.
func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer ws.Close()

		for {
			var msg clientMessage
			if err := ws.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Type {
			case "session.start":
				// Greet with a partial then a final transcript.
				_ = ws.WriteJSON(serverMessage{Type: "transcript", Text: "hel", Final: false})
				_ = ws.WriteJSON(serverMessage{Type: "transcript", Text: "hello there", Final: true})
			case "reply.request":
				_ = ws.WriteJSON(serverMessage{Type: "reply.result", ID: msg.ID, Text: "echo: " + msg.Transcript})
			case "speech.request":
				// Two PCM16 samples, little-endian.
				pcm := []byte{0x01, 0x00, 0xFF, 0xFF}
				_ = ws.WriteJSON(serverMessage{Type: "speech.result", ID: msg.ID, Audio: base64.StdEncoding.EncodeToString(pcm)})
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialAndTranscripts(t *testing.T) {
	srv := fakeProvider(t)
	defer srv.Close()

	type tr struct {
		text  string
		final bool
	}
	got := make(chan tr, 4)

	c := NewClient(config.VoiceConfig{WebSocketURL: wsURL(srv)}, nil)
	conv, err := c.Dial(context.Background(), "CA123", func(text string, final bool) {
		got <- tr{text, final}
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer conv.Close()

	first := waitTr(t, got)
	if first.text != "hel" || first.final {
		t.Fatalf("unexpected first transcript: %+v", first)
	}
	second := waitTr(t, got)
	if second.text != "hello there" || !second.final {
		t.Fatalf("unexpected second transcript: %+v", second)
	}

	reply, err := conv.Reply(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reply != "echo: hello there" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	samples, err := conv.Synthesize(context.Background(), "hi")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(samples) != 2 || samples[0] != 1 || samples[1] != -1 {
		t.Fatalf("unexpected samples: %v", samples)
	}
}

func waitTr[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for transcript")
		panic("unreachable")
	}
}

func TestRequestAfterClose(t *testing.T) {
	srv := fakeProvider(t)
	defer srv.Close()

	c := NewClient(config.VoiceConfig{WebSocketURL: wsURL(srv)}, nil)
	conv, err := c.Dial(context.Background(), "CA123", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	_ = conv.Close()
	_ = conv.Close() // idempotent

	if _, err := conv.Reply(context.Background(), "x"); err == nil {
		t.Fatalf("expected error after close")
	}
}

func TestDialUnreachable(t *testing.T) {
	c := NewClient(config.VoiceConfig{WebSocketURL: "ws://127.0.0.1:1"}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := c.Dial(ctx, "CA123", nil); err == nil {
		t.Fatalf("expected dial error")
	}
}
