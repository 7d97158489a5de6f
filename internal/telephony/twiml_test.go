package telephony

import (
	"strings"
	"testing"
)

func TestGreetAndStream(t *testing.T) {
	xml, err := GreetAndStream("Thanks for calling.", "wss://gw.example.com/media-stream?token=abc")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(xml, "<Say>Thanks for calling.</Say>") {
		t.Fatalf("expected Say verb in xml: %s", xml)
	}
	if !strings.Contains(xml, `<Stream url="wss://gw.example.com/media-stream?token=abc"`) {
		t.Fatalf("expected Stream url in xml: %s", xml)
	}
	sayIdx := strings.Index(xml, "<Say>")
	connectIdx := strings.Index(xml, "<Connect>")
	if sayIdx > connectIdx {
		t.Fatalf("expected greeting before stream handoff: %s", xml)
	}
}

func TestGreetAndStreamWithoutGreeting(t *testing.T) {
	xml, err := GreetAndStream("", "wss://gw.example.com/media-stream")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.Contains(xml, "<Say>") {
		t.Fatalf("expected no Say verb: %s", xml)
	}
}

func TestGreetAndStreamRequiresURL(t *testing.T) {
	if _, err := GreetAndStream("hi", "  "); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRejectBusy(t *testing.T) {
	xml, err := RejectBusy()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(xml, `<Reject reason="busy"`) {
		t.Fatalf("expected Reject verb in xml: %s", xml)
	}
}

func TestSayAndHangup(t *testing.T) {
	xml, err := SayAndHangup("Goodbye.")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(xml, "<Say>Goodbye.</Say>") || !strings.Contains(xml, "<Hangup") {
		t.Fatalf("unexpected xml: %s", xml)
	}
}
