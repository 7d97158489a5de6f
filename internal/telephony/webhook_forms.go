package telephony

import (
	"net/http"
	"strconv"
	"strings"
)

// InboundCallForm captures the subset of voice webhook fields we care
// about. Twilio sends application/x-www-form-urlencoded by default.
// Ref: https://www.twilio.com/docs/voice/twiml
//
// Keep it minimal and provider-adapter-only. Business logic is not
// made here.

type InboundCallForm struct {
	CallSid    string
	AccountSid string
	From       string
	To         string
	Direction  string
	CallStatus string
	CallerName string
}

func ParseInboundCall(r *http.Request) (InboundCallForm, error) {
	if err := r.ParseForm(); err != nil {
		return InboundCallForm{}, err
	}
	return InboundCallForm{
		CallSid:    r.PostFormValue("CallSid"),
		AccountSid: r.PostFormValue("AccountSid"),
		From:       normalizePhone(r.PostFormValue("From")),
		To:         normalizePhone(r.PostFormValue("To")),
		Direction:  r.PostFormValue("Direction"),
		CallStatus: r.PostFormValue("CallStatus"),
		CallerName: r.PostFormValue("CallerName"),
	}, nil
}

// StatusCallbackForm is the call lifecycle notification Twilio posts as
// a call progresses and ends.
type StatusCallbackForm struct {
	CallSid      string
	CallStatus   string
	CallDuration int
	From         string
	To           string
}

func ParseStatusCallback(r *http.Request) (StatusCallbackForm, error) {
	if err := r.ParseForm(); err != nil {
		return StatusCallbackForm{}, err
	}
	duration, _ := strconv.Atoi(r.PostFormValue("CallDuration"))
	return StatusCallbackForm{
		CallSid:      r.PostFormValue("CallSid"),
		CallStatus:   r.PostFormValue("CallStatus"),
		CallDuration: duration,
		From:         normalizePhone(r.PostFormValue("From")),
		To:           normalizePhone(r.PostFormValue("To")),
	}, nil
}

// Terminal reports whether the callback marks the end of the call.
func (f StatusCallbackForm) Terminal() bool {
	switch f.CallStatus {
	case "completed", "failed", "busy", "no-answer", "canceled":
		return true
	default:
		return false
	}
}

func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	// Twilio sometimes sends "anonymous" or empty; keep as-is.
	return s
}
