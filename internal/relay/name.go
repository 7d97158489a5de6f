package relay

import "regexp"

// Callers often open with an introduction. Capture up to three
// capitalized words after a handful of common lead-in phrases.
var namePattern = regexp.MustCompile(
	`(?:[Mm]y name is|[Tt]his is|I am|I'm|[Ii]t's)\s+([A-Z][a-zA-Z'\-]*(?:\s+[A-Z][a-zA-Z'\-]*){0,2})`,
)

// extractCallerName returns the introduced name from a transcript, or
// "" when no introduction is present.
func extractCallerName(transcript string) string {
	m := namePattern.FindStringSubmatch(transcript)
	if m == nil {
		return ""
	}
	return m[1]
}
