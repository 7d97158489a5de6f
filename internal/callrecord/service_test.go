package callrecord

import (
	"context"
	"testing"
	"time"
)

func TestOpenAndClose(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	now := time.Unix(1700000000, 0)
	svc.clock = func() time.Time { return now }

	ctx := context.Background()
	if err := svc.Open(ctx, "CA123", "+1555", "+1666", "lst_1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	rec, ok, err := repo.FindByProviderCallID(ctx, "CA123")
	if err != nil || !ok {
		t.Fatalf("expected record, got ok=%v err=%v", ok, err)
	}
	if rec.Status != StatusInProgress {
		t.Fatalf("expected in_progress, got %q", rec.Status)
	}
	if rec.ID == "" {
		t.Fatalf("expected generated id")
	}

	if err := svc.Close(ctx, "CA123", StatusCompleted, 42); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	rec, _, _ = repo.FindByProviderCallID(ctx, "CA123")
	if rec.Status != StatusCompleted || rec.DurationSeconds != 42 || rec.EndedAt == nil {
		t.Fatalf("unexpected closed record: %+v", rec)
	}
}

func TestCloseIsExactlyOnce(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_ = svc.Open(ctx, "CA123", "+1555", "+1666", "")
	if err := svc.Close(ctx, "CA123", StatusCompleted, 42); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// A duplicate close with a different outcome must not overwrite.
	if err := svc.Close(ctx, "CA123", StatusFailed, 999); err != nil {
		t.Fatalf("expected duplicate close to be a no-op, got %v", err)
	}

	rec, _, _ := repo.FindByProviderCallID(ctx, "CA123")
	if rec.Status != StatusCompleted || rec.DurationSeconds != 42 {
		t.Fatalf("duplicate close overwrote record: %+v", rec)
	}
}

func TestOpenRequiresCallID(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if err := svc.Open(context.Background(), "", "+1555", "+1666", ""); err != ErrInvalidRecord {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestCloseNegativeDurationClamped(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_ = svc.Open(ctx, "CA123", "", "", "")
	_ = svc.Close(ctx, "CA123", StatusCompleted, -5)
	rec, _, _ := repo.FindByProviderCallID(ctx, "CA123")
	if rec.DurationSeconds != 0 {
		t.Fatalf("expected clamped duration, got %d", rec.DurationSeconds)
	}
}

func TestTerminalStatus(t *testing.T) {
	cases := map[string]Status{
		"completed": StatusCompleted,
		"failed":    StatusFailed,
		"busy":      StatusBusy,
		"no-answer": StatusNoAnswer,
		"canceled":  StatusCanceled,
		"weird":     StatusCompleted,
	}
	for in, want := range cases {
		if got := TerminalStatus(in); got != want {
			t.Fatalf("TerminalStatus(%q): expected %q, got %q", in, want, got)
		}
	}
}
