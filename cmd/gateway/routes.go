package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"listing-voice-gateway/internal/callrecord"
	"listing-voice-gateway/internal/config"
	"listing-voice-gateway/internal/crm"
	"listing-voice-gateway/internal/metrics"
	"listing-voice-gateway/internal/relay"
	"listing-voice-gateway/internal/session"
	"listing-voice-gateway/internal/streamtoken"
	"listing-voice-gateway/internal/telephony"
	"listing-voice-gateway/internal/voice"
	"listing-voice-gateway/pkg/utils"
)

type gatewayDeps struct {
	cfg      config.Config
	log      *slog.Logger
	tokens   *streamtoken.Manager
	dialer   *voice.Client
	crm      *crm.Client
	reporter *crm.Reporter
	records  *callrecord.Service
	store    session.Store
	redis    *redis.Client
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic.
func registerRoutes(r *gin.Engine, d gatewayDeps) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Provider webhooks. Signature validation is skipped only when no
	// auth token is configured (local testing against curl).
	webhooks := r.Group("/webhooks")
	if d.cfg.Twilio.AuthToken != "" {
		webhooks.Use(telephony.RequireSignature(d.cfg.Twilio.AuthToken, d.cfg.App.PublicBaseURL))
	} else {
		d.log.Warn("TWILIO_AUTH_TOKEN not set, webhook signatures are not validated")
	}

	inbound := telephony.InboundCallHandler{
		Listings:  d.crm,
		Store:     d.store,
		Records:   d.records,
		Reporter:  d.reporter,
		Tokens:    d.tokens,
		StreamURL: d.cfg.StreamURL,
	}
	status := telephony.StatusCallbackHandler{
		Records:  d.records,
		Reporter: d.reporter,
		Store:    d.store,
	}
	if d.redis != nil && d.cfg.Relay.MaxCallsPerCallee > 0 {
		inbound.AcquireCap = capAcquirer(d)
		// The status callback is the single release point: it fires
		// for every call, including ones that never opened a media
		// socket.
		status.ReleaseCap = capReleaser(d)
	}
	webhooks.POST("/voice", inbound.Handle)
	webhooks.POST("/voice/status", status.Handle)

	r.GET("/media-stream", relay.StreamHandler(relay.Deps{
		Log:     d.log,
		Store:   d.store,
		Tokens:  d.tokens,
		Dialer:  d.dialer,
		CRM:     d.reporter,
		Records: d.records,
	}))
}

// capKeyTTL bounds abandoned slots; longer than any reasonable call.
const capKeyTTL = 2 * time.Hour

func capKey(callee string) string {
	return "call-cap:" + callee
}

func capAcquirer(d gatewayDeps) func(ctx context.Context, callee string) (bool, error) {
	return func(ctx context.Context, callee string) (bool, error) {
		return utils.AcquireConcurrencyCap(ctx, d.redis, capKey(callee), d.cfg.Relay.MaxCallsPerCallee, capKeyTTL)
	}
}

func capReleaser(d gatewayDeps) func(ctx context.Context, callee string) {
	return func(ctx context.Context, callee string) {
		if err := utils.ReleaseConcurrencyCap(ctx, d.redis, capKey(callee)); err != nil {
			d.log.Warn("concurrency cap release failed", "callee", callee, "err", err)
		}
	}
}
