package streamtoken

import (
	"testing"
	"time"

	"listing-voice-gateway/internal/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.StreamTokenConfig{Secret: "test-secret", TTL: 10 * time.Minute})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return m
}

func TestIssueAndVerify(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0)

	tok, err := m.Issue(now, "CA123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	callID, err := m.Verify(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if callID != "CA123" {
		t.Fatalf("expected CA123, got %q", callID)
	}
}

func TestVerifyExpired(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0)

	tok, err := m.Issue(now, "CA123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Past TTL plus the 30s leeway.
	if _, err := m.Verify(tok, now.Add(11*time.Minute)); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestVerifyGarbage(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Verify("not-a-token", time.Now()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	m := newTestManager(t)
	other, err := NewManager(config.StreamTokenConfig{Secret: "other-secret"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	now := time.Unix(1700000000, 0)
	tok, err := other.Issue(now, "CA123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := m.Verify(tok, now); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestIssueRequiresCallID(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Issue(time.Now(), ""); err == nil {
		t.Fatalf("expected error for empty call id")
	}
}
