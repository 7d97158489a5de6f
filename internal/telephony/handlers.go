package telephony

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"listing-voice-gateway/internal/callrecord"
	"listing-voice-gateway/internal/crm"
	"listing-voice-gateway/internal/metrics"
	"listing-voice-gateway/internal/session"
	"listing-voice-gateway/pkg/logger"
)

// ListingResolver looks up which property listing a dialed number
// belongs to. *crm.Client satisfies it.
type ListingResolver interface {
	ResolveListingByCallee(ctx context.Context, callee string) (*session.Listing, error)
}

// CallReporter pushes best-effort lifecycle notifications upstream.
// *crm.Reporter satisfies it.
type CallReporter interface {
	ReportCallStart(ctx context.Context, rep crm.CallStartReport)
	ReportCallEnd(ctx context.Context, rep crm.CallEndReport)
}

// TokenIssuer mints the short-lived token the media stream presents at
// connect time.
type TokenIssuer interface {
	Issue(now time.Time, callID string) (string, error)
}

// RecordService keeps the local call ledger. *callrecord.Service
// satisfies it.
type RecordService interface {
	Open(ctx context.Context, providerCallID, from, to, listingID string) error
	Close(ctx context.Context, providerCallID string, status callrecord.Status, durationSeconds int) error
}

// InboundCallHandler answers the provider's voice webhook with TwiML:
// a short greeting followed by a Connect/Stream handoff to the media
// socket. Collaborator failures degrade the call, they never fail it;
// the caller is already on the line.
type InboundCallHandler struct {
	Listings ListingResolver
	Store    session.Store
	Records  RecordService
	Reporter CallReporter
	Tokens   TokenIssuer

	// StreamURL renders the wss endpoint for a stream token.
	StreamURL func(token string) string

	// AcquireCap reserves a per-callee concurrency slot. Nil disables
	// the cap.
	AcquireCap func(ctx context.Context, callee string) (bool, error)

	Now func() time.Time
}

func (h InboundCallHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	form, err := ParseInboundCall(c.Request)
	if err != nil || form.CallSid == "" {
		log.Warn("inbound webhook parse failed", "err", err)
		metrics.WebhooksTotal.WithLabelValues("inbound", "bad_request").Inc()
		c.String(http.StatusBadRequest, "invalid form")
		return
	}
	log = log.With("call_id", form.CallSid)
	ctx := c.Request.Context()

	if h.AcquireCap != nil {
		ok, err := h.AcquireCap(ctx, form.To)
		if err != nil {
			log.Error("concurrency cap check failed", "err", err)
		} else if !ok {
			log.Info("call rejected, callee at capacity", "to", form.To)
			metrics.WebhooksTotal.WithLabelValues("inbound", "rejected").Inc()
			h.respondTwiML(c, log, RejectBusy)
			return
		}
	}

	var listing *session.Listing
	if h.Listings != nil {
		listing, err = h.Listings.ResolveListingByCallee(ctx, form.To)
		if err != nil {
			if !errors.Is(err, crm.ErrListingNotFound) {
				log.Error("listing lookup failed", "to", form.To, "err", err)
				metrics.CRMErrorsTotal.WithLabelValues("resolve_listing").Inc()
			}
			listing = nil
		}
	}

	if h.Store != nil {
		sc := session.Context{
			CallerAddress: form.From,
			CalleeAddress: form.To,
			Listing:       listing,
		}
		if err := h.Store.Put(ctx, form.CallSid, sc); err != nil {
			log.Error("storing call context failed", "err", err)
		}
	}

	listingID := ""
	if listing != nil {
		listingID = listing.ID
	}
	if h.Records != nil {
		if err := h.Records.Open(ctx, form.CallSid, form.From, form.To, listingID); err != nil {
			log.Error("opening call record failed", "err", err)
		}
	}
	if h.Reporter != nil {
		h.Reporter.ReportCallStart(ctx, crm.CallStartReport{
			ProviderCallID: form.CallSid,
			From:           form.From,
			To:             form.To,
			ListingID:      listingID,
		})
	}

	token := ""
	if h.Tokens != nil {
		token, err = h.Tokens.Issue(now(), form.CallSid)
		if err != nil {
			log.Error("stream token mint failed", "err", err)
			token = ""
		}
	}

	metrics.WebhooksTotal.WithLabelValues("inbound", "ok").Inc()
	h.respondTwiML(c, log, func() (string, error) {
		return GreetAndStream(greetingFor(listing), h.StreamURL(token))
	})
}

func (h InboundCallHandler) respondTwiML(c *gin.Context, log *slog.Logger, build func() (string, error)) {
	twiml, err := build()
	if err != nil {
		log.Error("twiml render failed", "err", err)
		c.String(http.StatusInternalServerError, "twiml failed")
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}

func greetingFor(listing *session.Listing) string {
	if listing != nil && listing.Title != "" {
		return fmt.Sprintf("Thanks for calling about %s. One moment while I connect you.", listing.Title)
	}
	return "Thanks for calling. One moment while I connect you."
}

// StatusCallbackHandler ingests call lifecycle callbacks. The provider
// only needs an acknowledgment; record closing and upstream reporting
// run after the response is written.
type StatusCallbackHandler struct {
	Records  RecordService
	Reporter CallReporter
	Store    session.Store

	// ReleaseCap frees the per-callee concurrency slot. Nil disables
	// the cap.
	ReleaseCap func(ctx context.Context, callee string)

	// Timeout bounds the detached reporting work.
	Timeout time.Duration
}

func (h StatusCallbackHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseStatusCallback(c.Request)
	if err != nil || form.CallSid == "" {
		log.Warn("status callback parse failed", "err", err)
		metrics.WebhooksTotal.WithLabelValues("status", "bad_request").Inc()
		c.String(http.StatusBadRequest, "invalid form")
		return
	}

	metrics.WebhooksTotal.WithLabelValues("status", "ok").Inc()
	c.String(http.StatusOK, "")

	if !form.Terminal() {
		return
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	log = log.With("call_id", form.CallSid, "status", form.CallStatus)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if h.Records != nil {
			status := callrecord.TerminalStatus(form.CallStatus)
			if err := h.Records.Close(ctx, form.CallSid, status, form.CallDuration); err != nil {
				log.Warn("closing call record failed", "err", err)
			}
		}
		if h.Reporter != nil {
			h.Reporter.ReportCallEnd(ctx, crm.CallEndReport{
				ProviderCallID:  form.CallSid,
				Status:          form.CallStatus,
				DurationSeconds: form.CallDuration,
			})
		}
		// Calls that never opened a media socket leave their context
		// behind; evict it now rather than waiting out the TTL.
		if h.Store != nil {
			if err := h.Store.Delete(ctx, form.CallSid); err != nil {
				log.Warn("evicting call context failed", "err", err)
			}
		}
		if h.ReleaseCap != nil && form.To != "" {
			h.ReleaseCap(ctx, form.To)
		}
	}()
}
