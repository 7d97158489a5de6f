package session

import (
	"context"
	"errors"
	"time"
)

// Context is the ephemeral pre-call metadata handed off from the inbound
// webhook to the media-stream relay. The webhook writes it once; the relay
// claims it when the media socket opens.
//
// Listing is a denormalized snapshot, not a live reference: the underlying
// record may change while the call is in progress.

type Context struct {
	CallerAddress string   `json:"caller_address,omitempty"`
	CalleeAddress string   `json:"callee_address,omitempty"`
	Listing       *Listing `json:"listing,omitempty"`
}

// Listing is a read-only projection of the property facts known at call start.
type Listing struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Price    string   `json:"price,omitempty"`
	Bedrooms int      `json:"bedrooms,omitempty"`
	Address  string   `json:"address,omitempty"`
	Features []string `json:"features,omitempty"`
}

// DefaultTTL bounds how long an unclaimed entry survives. Abandoned and
// unanswered calls never open a media socket, so entries must not
// accumulate.
const DefaultTTL = 15 * time.Minute

var ErrNotFound = errors.New("session: context not found")

// Store is the handoff table keyed by provider call ID.
//
// Contract:
// - Put overwrites any existing entry and resets its TTL (provider retries
//   resolve last-write-wins).
// - Get returns ErrNotFound for missing or expired entries; it does not
//   delete on read. Deletion is explicit.
// - Delete is idempotent.
type Store interface {
	Put(ctx context.Context, callID string, sc Context) error
	Get(ctx context.Context, callID string) (Context, error)
	Delete(ctx context.Context, callID string) error
}
