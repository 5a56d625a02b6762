package wallet

import "time"

// Account is the ledger's unit of ownership. Balance is integer cents and
// never goes negative after a committed operation. Deleted accounts are
// kept for audit and excluded from normal reads.
type Account struct {
	ID        string
	Name      string
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

func (a Account) Deleted() bool { return a.DeletedAt != nil }

// WithdrawState is the persisted lifecycle state of a withdrawal.
// A record moves from Pending to a terminal state at most once.
type WithdrawState string

const (
	StatePending WithdrawState = "pending"
	StateDone    WithdrawState = "done"
	StateFailed  WithdrawState = "failed"
)

func (s WithdrawState) Terminal() bool { return s == StateDone || s == StateFailed }

// PayoutDetails is the 1:1 sub-record identifying where the money goes.
// Soft-deleted independently of the withdrawal it belongs to.
type PayoutDetails struct {
	Type      string
	Key       string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Withdrawal is an audit-grade record of a payout request. Immediate
// withdrawals are created already terminal; scheduled ones sit Pending
// until the sweep executes them.
type Withdrawal struct {
	ID            string
	AccountID     string
	Amount        int64
	Method        string
	Pix           PayoutDetails
	Scheduled     bool
	ScheduledFor  *time.Time
	State         WithdrawState
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ProcessedAt   *time.Time
}

// WithdrawalView is what callers get back. Warning carries the
// POSSIBLE_INSUFFICIENT_BALANCE advisory for scheduled requests whose
// amount exceeds the balance at creation time.
type WithdrawalView struct {
	Withdrawal
	Warning Code
}

// Page is the original paginator shape: items plus totals.
type Page[T any] struct {
	Items       []T
	Total       int
	PerPage     int
	CurrentPage int
	LastPage    int
}

func NewPage[T any](items []T, total, page, limit int) Page[T] {
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}
	last := (total + limit - 1) / limit
	if last < 1 {
		last = 1
	}
	return Page[T]{Items: items, Total: total, PerPage: limit, CurrentPage: page, LastPage: last}
}
