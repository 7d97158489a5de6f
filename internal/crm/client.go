package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"listing-voice-gateway/internal/config"
	"listing-voice-gateway/internal/session"
)

// Client talks to the system of record that owns listings, call logs and
// leads. Every call here is consumed best-effort by the caller-facing
// paths: a CRM outage degrades personalization and reporting, it never
// degrades a live call.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var ErrListingNotFound = errors.New("crm: listing not found")

func NewClient(cfg config.CRMConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// ResolveListingByCallee looks up the listing advertised under a dialed
// phone number.
func (c *Client) ResolveListingByCallee(ctx context.Context, callee string) (*session.Listing, error) {
	if callee == "" {
		return nil, ErrListingNotFound
	}

	var out struct {
		Listing *session.Listing `json:"listing"`
	}
	q := url.Values{"phone": {callee}}
	if err := c.do(ctx, http.MethodGet, "/api/listings/by-phone?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if out.Listing == nil || out.Listing.ID == "" {
		return nil, ErrListingNotFound
	}
	return out.Listing, nil
}

// CallStartReport announces a call the provider just delivered.
type CallStartReport struct {
	ProviderCallID string `json:"provider_call_id"`
	From           string `json:"from"`
	To             string `json:"to"`
	ListingID      string `json:"listing_id,omitempty"`
}

func (c *Client) ReportCallStart(ctx context.Context, rep CallStartReport) error {
	return c.do(ctx, http.MethodPost, "/api/calls", rep, nil)
}

// CallEndReport closes out a call with its terminal status and duration.
type CallEndReport struct {
	ProviderCallID  string `json:"provider_call_id"`
	Status          string `json:"status"`
	DurationSeconds int    `json:"duration_seconds"`
}

func (c *Client) ReportCallEnd(ctx context.Context, rep CallEndReport) error {
	return c.do(ctx, http.MethodPost, "/api/calls/"+url.PathEscape(rep.ProviderCallID)+"/end", rep, nil)
}

// Lead captures an interested caller for follow-up.
type Lead struct {
	ProviderCallID string `json:"provider_call_id"`
	ListingID      string `json:"listing_id,omitempty"`
	Phone          string `json:"phone"`
	Name           string `json:"name,omitempty"`
	Source         string `json:"source"`
}

func (c *Client) CreateLead(ctx context.Context, lead Lead) error {
	if lead.Source == "" {
		lead.Source = "voice_gateway"
	}
	return c.do(ctx, http.MethodPost, "/api/leads", lead, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("crm: marshal request: %w", err)
		}
		rd = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrListingNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("crm: %s %s returned %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("crm: decode response: %w", err)
		}
	}
	return nil
}

// Reporter wraps Client with best-effort semantics: failures are logged
// with context and swallowed, per the error taxonomy for transient
// external-call failures.
type Reporter struct {
	client *Client
	log    *slog.Logger
}

func NewReporter(client *Client, log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{client: client, log: log}
}

func (r *Reporter) ReportCallStart(ctx context.Context, rep CallStartReport) {
	if err := r.client.ReportCallStart(ctx, rep); err != nil {
		r.log.Warn("crm call-start report failed", "call_id", rep.ProviderCallID, "err", err)
	}
}

func (r *Reporter) ReportCallEnd(ctx context.Context, rep CallEndReport) {
	if err := r.client.ReportCallEnd(ctx, rep); err != nil {
		r.log.Warn("crm call-end report failed", "call_id", rep.ProviderCallID, "err", err)
	}
}

func (r *Reporter) CreateLead(ctx context.Context, lead Lead) {
	if err := r.client.CreateLead(ctx, lead); err != nil {
		r.log.Warn("crm lead creation failed", "call_id", lead.ProviderCallID, "err", err)
	}
}
