package audit

import (
	"testing"
	"time"
)

func event(action string) Event {
	return Event{
		RecordedAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Actor:      "engine",
		Entity:     EntityWithdraw,
		EntityID:   "w-1",
		Action:     action,
		Before:     []byte(`{}`),
		After:      []byte(`{"state":"done"}`),
		Outcome:    OutcomeSuccess,
	}
}

func TestAppendChainsHashes(t *testing.T) {
	trail := NewTrail()

	first, err := trail.Append(event("withdraw_scheduled"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := trail.Append(event("withdraw_done"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if first.HashPrev != "GENESIS" {
		t.Fatalf("first event prev = %q", first.HashPrev)
	}
	if second.HashPrev != first.HashCurr {
		t.Fatalf("chain broken: %q != %q", second.HashPrev, first.HashCurr)
	}
	if first.ID == second.ID {
		t.Fatalf("ids not unique: %q", first.ID)
	}
	if err := trail.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	trail := NewTrail()
	for i := 0; i < 3; i++ {
		if _, err := trail.Append(event("withdraw_done")); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	trail.events[1].After = []byte(`{"state":"failed"}`)
	if err := trail.Verify(); err != ErrCorruptChain {
		t.Fatalf("tampering not detected: %v", err)
	}
	if _, err := trail.Append(event("withdraw_done")); err != ErrCorruptChain {
		t.Fatalf("append on corrupt chain: %v", err)
	}
}
