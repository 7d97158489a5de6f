package callrecord

import "time"

// Record is one call detail row, opened when the inbound webhook fires
// and closed exactly once when the call reaches a terminal status.
//
// Provider-specific identifiers stay in ProviderCallID; this model is
// otherwise provider-agnostic.

type Record struct {
	ID             string `json:"id" db:"id"`
	ProviderCallID string `json:"provider_call_id" db:"provider_call_id"`

	From string `json:"from" db:"from_number"`
	To   string `json:"to" db:"to_number"`

	// ListingID is set when the dialed number resolved to a listing.
	ListingID string `json:"listing_id,omitempty" db:"listing_id"`

	Status Status `json:"status" db:"status"`

	DurationSeconds int `json:"duration_seconds" db:"duration_seconds"`

	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusBusy       Status = "busy"
	StatusNoAnswer   Status = "no_answer"
	StatusCanceled   Status = "canceled"
)

// TerminalStatus maps a provider status string onto a terminal Status,
// defaulting to completed for anything unrecognized.
func TerminalStatus(providerStatus string) Status {
	switch providerStatus {
	case "failed":
		return StatusFailed
	case "busy":
		return StatusBusy
	case "no-answer", "no_answer":
		return StatusNoAnswer
	case "canceled":
		return StatusCanceled
	default:
		return StatusCompleted
	}
}
