package telephony

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseInboundCall(t *testing.T) {
	body := strings.NewReader("CallSid=CA123&From=%2B15551234567&To=%2B15557654321&CallStatus=ringing")
	r := httptest.NewRequest(http.MethodPost, "/webhooks/voice", body)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	form, err := ParseInboundCall(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if form.CallSid != "CA123" {
		t.Fatalf("expected CallSid")
	}
	if form.From != "+15551234567" || form.To != "+15557654321" {
		t.Fatalf("unexpected from/to: %q %q", form.From, form.To)
	}
}

func TestParseStatusCallback(t *testing.T) {
	body := strings.NewReader("CallSid=CA123&CallStatus=completed&CallDuration=37")
	r := httptest.NewRequest(http.MethodPost, "/webhooks/voice/status", body)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	form, err := ParseStatusCallback(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if form.CallSid != "CA123" || form.CallDuration != 37 {
		t.Fatalf("unexpected form: %+v", form)
	}
	if !form.Terminal() {
		t.Fatalf("completed must be terminal")
	}
}

func TestStatusCallbackTerminalStatuses(t *testing.T) {
	terminal := []string{"completed", "failed", "busy", "no-answer", "canceled"}
	for _, s := range terminal {
		if !(StatusCallbackForm{CallStatus: s}).Terminal() {
			t.Errorf("%q must be terminal", s)
		}
	}
	for _, s := range []string{"queued", "ringing", "in-progress", ""} {
		if (StatusCallbackForm{CallStatus: s}).Terminal() {
			t.Errorf("%q must not be terminal", s)
		}
	}
}
