package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

// TwiML is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency.
//
// Only include primitives we need at the adapter boundary.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlConnect struct {
	XMLName xml.Name     `xml:"Connect"`
	Stream  *twimlStream `xml:"Stream,omitempty"`
}

type twimlStream struct {
	URL string `xml:"url,attr"`
}

type twimlReject struct {
	XMLName xml.Name `xml:"Reject"`
	Reason  string   `xml:"reason,attr,omitempty"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// GreetAndStream says a short greeting, then hands the call's audio to
// the media stream endpoint over the given wss URL.
func GreetAndStream(greeting, streamURL string) (string, error) {
	if strings.TrimSpace(streamURL) == "" {
		return "", errors.New("telephony: stream url required")
	}
	var r twimlResponse
	if strings.TrimSpace(greeting) != "" {
		r.Verbs = append(r.Verbs, twimlSay{Text: greeting})
	}
	r.Verbs = append(r.Verbs, twimlConnect{Stream: &twimlStream{URL: streamURL}})
	return render(r)
}

// RejectBusy turns the call away with a busy signal.
func RejectBusy() (string, error) {
	return render(twimlResponse{Verbs: []any{twimlReject{Reason: "busy"}}})
}

// SayAndHangup plays one message and ends the call.
func SayAndHangup(message string) (string, error) {
	var r twimlResponse
	if strings.TrimSpace(message) != "" {
		r.Verbs = append(r.Verbs, twimlSay{Text: message})
	}
	r.Verbs = append(r.Verbs, twimlHangup{})
	return render(r)
}

func render(r twimlResponse) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
