package wallet

import (
	"context"
	"time"
)

// AccountFilter narrows account listings.
type AccountFilter struct {
	Name           string
	CreatedAt      string // YYYY-MM-DD, matches the creation date
	IncludeDeleted bool
	Page           int
	Limit          int
}

// Ledger owns account identity and balance. Debit and Credit are atomic
// per account: either the full amount applies or nothing changes. The
// postgres implementation serializes with row locks; the in-memory one
// with its own mutex. The engine adds a per-account lock on top so the
// check-then-debit window is one critical section regardless of backend.
type Ledger interface {
	CreateAccount(ctx context.Context, a Account) error
	GetAccount(ctx context.Context, id string) (Account, error)
	ListAccounts(ctx context.Context, f AccountFilter) ([]Account, int, error)
	UpdateAccount(ctx context.Context, a Account) error
	SoftDeleteAccount(ctx context.Context, id string, at time.Time) error

	// Balance returns the current balance of a live account.
	Balance(ctx context.Context, id string) (int64, error)
	// Debit atomically subtracts cents, failing with INSUFFICIENT_BALANCE
	// when the result would be negative. Returns the new balance.
	Debit(ctx context.Context, id string, cents int64) (int64, error)
	// Credit atomically adds cents. Used for funding, and by the engine to
	// compensate a debit whose record persistence failed.
	Credit(ctx context.Context, id string, cents int64) (int64, error)
}

// WithdrawStore persists withdrawal records and their payout sub-records.
// Records are never deleted; terminal transitions happen exactly once.
type WithdrawStore interface {
	CreateWithdrawal(ctx context.Context, w Withdrawal) error
	GetWithdrawal(ctx context.Context, accountID, withdrawID string) (Withdrawal, error)
	ListWithdrawals(ctx context.Context, accountID string, page, limit int) ([]Withdrawal, int, error)

	// MarkDone / MarkFailed transition a Pending record to a terminal
	// state. Both fail with TRANSACTION_ERROR when the record is already
	// terminal, so a double execution can never double-debit.
	MarkDone(ctx context.Context, withdrawID string, processedAt time.Time) error
	MarkFailed(ctx context.Context, withdrawID, reason string, processedAt time.Time) error

	// DuePending returns scheduled, still-pending records whose
	// scheduled_for is at or before now.
	DuePending(ctx context.Context, now time.Time) ([]Withdrawal, error)
}
