// Package relay drives one phone call's media session: it bridges the
// telephony provider's media stream to the speech provider, paces
// synthesized audio back out in 20ms frames, and truncates playback the
// moment the caller starts talking.
package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"listing-voice-gateway/internal/callrecord"
	"listing-voice-gateway/internal/crm"
	"listing-voice-gateway/internal/media"
	"listing-voice-gateway/internal/metrics"
	"listing-voice-gateway/internal/session"
	"listing-voice-gateway/internal/voice"
)

// State is the session lifecycle. Transitions are one-way:
// Connecting -> Active -> Ended.
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// TokenVerifier checks a stream token and returns the call ID it was
// issued for.
type TokenVerifier interface {
	Verify(tokenString string, now time.Time) (string, error)
}

// EndReporter receives best-effort end-of-call notifications.
// *crm.Reporter satisfies it.
type EndReporter interface {
	ReportCallEnd(ctx context.Context, rep crm.CallEndReport)
	CreateLead(ctx context.Context, lead crm.Lead)
}

// RecordCloser closes the local call record. *callrecord.Service
// satisfies it.
type RecordCloser interface {
	Close(ctx context.Context, providerCallID string, status callrecord.Status, durationSeconds int) error
}

// Deps wires a Session to its collaborators. CRM, Records, and
// ReleaseCap may be nil; the session degrades to pure relaying.
type Deps struct {
	Log     *slog.Logger
	Store   session.Store
	Tokens  TokenVerifier
	Dialer  voice.Dialer
	CRM     EndReporter
	Records RecordCloser

	// ReleaseCap frees the per-callee concurrency slot taken by the
	// inbound webhook.
	ReleaseCap func(ctx context.Context, callee string)

	// FrameDuration overrides the outbound pacing interval. Zero means
	// the codec's native 20ms.
	FrameDuration time.Duration

	Now func() time.Time
}

// Session relays one call. All Handle* methods may be called from the
// socket read loop and the recognizer callback concurrently.
type Session struct {
	deps Deps
	log  *slog.Logger

	sender MediaSender

	mu         sync.Mutex
	callID     string
	streamID   string
	caller     string
	callee     string
	listing    *session.Listing
	callerName string
	claimed    bool
	conv       voice.Conversation
	startedAt  time.Time

	state    atomic.Int32
	speaking atomic.Bool
	ended    atomic.Bool
	endOnce  sync.Once

	sawFinal    atomic.Bool
	lastMediaMs atomic.Int64

	replyMu sync.Mutex
}

// NewSession resolves the caller's identity from the stream token and
// claims the pre-call context. Token failures are not fatal: the call
// is already connected, so the session proceeds with whatever identity
// it can recover.
func NewSession(deps Deps, sender MediaSender, token string) *Session {
	metrics.Init()
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.FrameDuration <= 0 {
		deps.FrameDuration = media.FrameDurationMs * time.Millisecond
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Session{deps: deps, log: deps.Log, sender: sender}
	s.state.Store(int32(StateConnecting))

	if token == "" {
		s.log.Warn("media stream opened without token")
	} else if deps.Tokens != nil {
		callID, err := deps.Tokens.Verify(token, deps.Now())
		if err != nil {
			s.log.Warn("stream token rejected, continuing anonymous", "err", err)
		} else {
			s.callID = callID
		}
	}
	if s.callID != "" {
		s.claimContext(s.callID)
	}
	s.log = s.log.With("call_id", s.callID)

	metrics.SessionsTotal.Inc()
	metrics.SessionsActive.Inc()
	return s
}

// claimContext reads and deletes the handoff entry. Callers hold no
// lock; this runs during construction or under mu via handleStart.
func (s *Session) claimContext(callID string) {
	if s.deps.Store == nil || s.claimed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sc, err := s.deps.Store.Get(ctx, callID)
	if err != nil {
		if err != session.ErrNotFound {
			s.log.Error("context lookup failed", "err", err)
		}
		return
	}
	if err := s.deps.Store.Delete(ctx, callID); err != nil {
		s.log.Warn("context delete failed", "err", err)
	}
	s.caller = sc.CallerAddress
	s.callee = sc.CalleeAddress
	s.listing = sc.Listing
	s.claimed = true
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// CallerName returns the name captured from the caller's introduction,
// if any.
func (s *Session) CallerName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callerName
}

// HandleMessage dispatches one raw frame from the media socket.
// Malformed frames are dropped with a warning.
func (s *Session) HandleMessage(data []byte) {
	if s.ended.Load() {
		return
	}
	var msg mediaMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Warn("dropping malformed media message", "err", err)
		return
	}

	switch msg.Event {
	case "connected":
		s.log.Debug("media socket connected")
	case "start":
		s.handleStart(msg.Start)
	case "media":
		s.handleMedia(msg.Media)
	case "mark":
		if msg.Mark != nil {
			s.log.Debug("playback checkpoint reached", "mark", msg.Mark.Name)
		}
	case "stop":
		s.log.Info("media stream stopped by provider")
		s.Terminate(callrecord.StatusCompleted)
	default:
		s.log.Warn("dropping unknown media event", "event", msg.Event)
	}
}

func (s *Session) handleStart(ev *startEvent) {
	if ev == nil {
		s.log.Warn("start event missing body")
		return
	}
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateActive)) {
		s.log.Warn("duplicate start event", "stream_id", ev.StreamSID)
		return
	}

	s.mu.Lock()
	s.streamID = ev.StreamSID
	if s.callID == "" && ev.CallSID != "" {
		s.callID = ev.CallSID
		s.log = s.log.With("call_id_fallback", ev.CallSID)
	}
	s.claimContext(s.callID)
	s.startedAt = s.deps.Now()
	callID := s.callID
	s.mu.Unlock()

	s.log.Info("media stream started", "stream_id", ev.StreamSID)

	if s.deps.Dialer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		conv, err := s.deps.Dialer.Dial(ctx, callID, s.HandleTranscript)
		if err != nil {
			s.log.Error("speech provider dial failed", "err", err)
		} else {
			s.mu.Lock()
			s.conv = conv
			s.mu.Unlock()
		}
	}

	go s.speak(context.Background(), s.greeting())
}

func (s *Session) handleMedia(ev *mediaEvent) {
	if ev == nil {
		return
	}
	if s.State() != StateActive {
		metrics.FramesDroppedTotal.Inc()
		s.log.Warn("dropping media frame before stream start")
		return
	}
	if ms, err := strconv.ParseInt(ev.Timestamp, 10, 64); err == nil {
		s.lastMediaMs.Store(ms)
	}

	// Inbound audio doubles as a barge-in signal.
	s.bargeIn()

	payload, err := base64.StdEncoding.DecodeString(ev.Payload)
	if err != nil {
		s.log.Warn("dropping undecodable media payload", "err", err)
		return
	}

	s.mu.Lock()
	conv := s.conv
	s.mu.Unlock()
	if conv == nil {
		return
	}
	if err := conv.SendAudio(payload); err != nil {
		s.log.Warn("forwarding caller audio failed", "err", err)
	}
}

// HandleTranscript receives recognition results. Partials only signal
// barge-in; each final transcript produces exactly one reply.
func (s *Session) HandleTranscript(text string, final bool) {
	if s.ended.Load() {
		return
	}
	s.bargeIn()
	if !final {
		return
	}
	go s.respond(text)
}

// respond produces the single reply owed to one final transcript.
// replyMu keeps turns in order when finals arrive back to back.
func (s *Session) respond(text string) {
	s.replyMu.Lock()
	defer s.replyMu.Unlock()
	if s.ended.Load() {
		return
	}

	if !s.sawFinal.Swap(true) {
		if name := extractCallerName(text); name != "" {
			s.mu.Lock()
			s.callerName = name
			s.mu.Unlock()
			s.log.Info("caller introduced themselves", "name", name)
			s.speak(context.Background(), fmt.Sprintf("Nice to meet you, %s. What would you like to know?", name))
			return
		}
	}

	s.mu.Lock()
	conv := s.conv
	s.mu.Unlock()
	if conv == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	reply, err := conv.Reply(ctx, text)
	if err != nil {
		s.log.Error("reply generation failed", "err", err)
		return
	}
	s.speak(context.Background(), reply)
}

func (s *Session) greeting() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listing != nil && s.listing.Title != "" {
		return fmt.Sprintf("Thanks for calling about %s. How can I help you today?", s.listing.Title)
	}
	return "Thanks for calling. How can I help you today?"
}

// speak synthesizes text and paces it out one frame per tick. Playback
// stops at the first frame after the speaking flag drops, and the
// trailing mark is sent whether or not playback ran to completion.
func (s *Session) speak(ctx context.Context, text string) {
	if text == "" || s.ended.Load() {
		return
	}
	s.mu.Lock()
	conv := s.conv
	streamID := s.streamID
	s.mu.Unlock()
	if conv == nil {
		return
	}
	if streamID == "" {
		metrics.FramesDroppedTotal.Inc()
		s.log.Warn("dropping playback, no stream id yet")
		return
	}

	samples, err := conv.Synthesize(ctx, text)
	if err != nil {
		s.log.Error("synthesis failed", "err", err)
		return
	}
	payload := media.LinearToMulaw(samples)

	s.speaking.Store(true)
	defer s.speaking.Store(false)

	ticker := time.NewTicker(s.deps.FrameDuration)
	defer ticker.Stop()

	sent := 0
	for off := 0; off < len(payload); off += media.FrameBytes {
		if s.ended.Load() || !s.speaking.Load() {
			break
		}
		end := off + media.FrameBytes
		if end > len(payload) {
			end = len(payload)
		}
		if err := s.sender.SendMedia(streamID, payload[off:end]); err != nil {
			s.log.Warn("sending media frame failed", "err", err)
			break
		}
		sent++
		metrics.FramesSentTotal.Inc()
		<-ticker.C
	}

	name := uuid.NewString()
	if err := s.sender.SendMark(streamID, name); err != nil {
		s.log.Warn("sending mark failed", "err", err)
	}
	s.log.Debug("playback finished", "frames", sent, "mark", name)
}

// bargeIn clears the speaking flag so the pacing loop stops at its next
// frame boundary.
func (s *Session) bargeIn() {
	if s.speaking.CompareAndSwap(true, false) {
		metrics.BargeInsTotal.Inc()
		s.log.Info("caller barged in, truncating playback")
	}
}

// HandleDisconnect runs when the media socket closes from the provider
// side.
func (s *Session) HandleDisconnect() {
	s.Terminate(callrecord.StatusCompleted)
}

// Terminate tears the session down. Safe to call from any goroutine any
// number of times; side effects run exactly once.
func (s *Session) Terminate(status callrecord.Status) {
	s.endOnce.Do(func() {
		s.ended.Store(true)
		s.speaking.Store(false)
		s.state.Store(int32(StateEnded))
		metrics.SessionsActive.Dec()

		s.mu.Lock()
		callID := s.callID
		caller := s.caller
		callee := s.callee
		callerName := s.callerName
		listing := s.listing
		conv := s.conv
		startedAt := s.startedAt
		s.mu.Unlock()

		duration := s.duration(startedAt)
		s.log.Info("session ended", "status", status, "duration_seconds", duration)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if conv != nil {
			if err := conv.Close(); err != nil {
				s.log.Warn("closing speech conversation failed", "err", err)
			}
		}
		if s.deps.Records != nil && callID != "" {
			if err := s.deps.Records.Close(ctx, callID, status, duration); err != nil {
				s.log.Warn("closing call record failed", "err", err)
			}
		}
		if s.deps.CRM != nil && callID != "" {
			s.deps.CRM.ReportCallEnd(ctx, crm.CallEndReport{
				ProviderCallID:  callID,
				Status:          string(status),
				DurationSeconds: duration,
			})
			if caller != "" {
				lead := crm.Lead{
					ProviderCallID: callID,
					Phone:          caller,
					Name:           callerName,
				}
				if listing != nil {
					lead.ListingID = listing.ID
				}
				s.deps.CRM.CreateLead(ctx, lead)
			}
		}
		if s.deps.Store != nil && callID != "" {
			if err := s.deps.Store.Delete(ctx, callID); err != nil {
				s.log.Warn("evicting call context failed", "err", err)
			}
		}
		if s.deps.ReleaseCap != nil && callee != "" {
			s.deps.ReleaseCap(ctx, callee)
		}
	})
}

// duration prefers the provider's media clock; the wall clock covers
// calls that never produced inbound media.
func (s *Session) duration(startedAt time.Time) int {
	if ms := s.lastMediaMs.Load(); ms > 0 {
		return int(ms / 1000)
	}
	if startedAt.IsZero() {
		return 0
	}
	d := int(s.deps.Now().Sub(startedAt) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}
