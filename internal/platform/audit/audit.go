package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"sync"
	"time"
)

// Outcome classifies how the audited operation ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeDenied  Outcome = "denied"
	OutcomeError   Outcome = "error"
)

// Entity types recorded by the wallet core.
const (
	EntityAccount  = "account"
	EntityWithdraw = "withdraw"
)

type Event struct {
	ID         string
	RecordedAt time.Time
	Actor      string
	Entity     string
	EntityID   string
	Action     string
	Before     []byte
	After      []byte
	Outcome    Outcome
	Reason     string
	HashPrev   string
	HashCurr   string
}

var ErrCorruptChain = errors.New("audit chain corruption detected")

func computeHash(prev string, e Event) string {
	h := sha256.New()
	_, _ = h.Write([]byte(prev))
	_, _ = h.Write([]byte("|" + e.ID))
	_, _ = h.Write([]byte("|" + e.RecordedAt.UTC().Format(time.RFC3339Nano)))
	_, _ = h.Write([]byte("|" + e.Actor + "|" + e.Entity + "|" + e.EntityID + "|" + e.Action + "|" + string(e.Outcome)))
	_, _ = h.Write(e.Before)
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write(e.After)
	return hex.EncodeToString(h.Sum(nil))
}

// Trail is an append-only, hash-chained event log. Every balance mutation
// and withdrawal state transition in the engine lands here.
type Trail struct {
	mu     sync.Mutex
	events []Event
	last   string
	nextID int64
}

func NewTrail() *Trail {
	return &Trail{last: "GENESIS"}
}

func (t *Trail) Append(e Event) (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	if e.ID == "" {
		e.ID = "audit-" + strconv.FormatInt(t.nextID, 10)
	}

	if len(t.events) > 0 {
		prev := t.events[len(t.events)-1]
		if computeHash(prev.HashPrev, prev) != prev.HashCurr {
			return Event{}, ErrCorruptChain
		}
	}

	e.HashPrev = t.last
	e.HashCurr = computeHash(t.last, e)
	t.events = append(t.events, e)
	t.last = e.HashCurr
	return e, nil
}

func (t *Trail) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Verify walks the chain and reports the first broken link.
func (t *Trail) Verify() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := "GENESIS"
	for _, e := range t.events {
		if e.HashPrev != prev {
			return ErrCorruptChain
		}
		if computeHash(e.HashPrev, e) != e.HashCurr {
			return ErrCorruptChain
		}
		prev = e.HashCurr
	}
	return nil
}
