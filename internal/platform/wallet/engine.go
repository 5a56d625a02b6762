package wallet

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brwallet/pix-wallet-go/internal/platform/audit"
	"github.com/brwallet/pix-wallet-go/internal/platform/clock"
)

// Notifier delivers a best-effort confirmation after a withdrawal reaches
// a terminal state. It runs outside the critical section; a failure is
// logged and never rolls the withdrawal back.
type Notifier interface {
	WithdrawalProcessed(ctx context.Context, w Withdrawal) error
}

// Engine owns the withdrawal lifecycle: it is the only component allowed
// to move a record between states or touch balances on the withdrawal
// path.
type Engine struct {
	ledger    Ledger
	records   WithdrawStore
	validator *Validator
	notifier  Notifier
	trail     *audit.Trail
	clk       clock.Clock
	logf      func(string, ...any)
	observe   func(action, outcome string)

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type EngineOption func(*Engine)

func WithNotifier(n Notifier) EngineOption {
	return func(e *Engine) { e.notifier = n }
}

func WithLogger(logf func(string, ...any)) EngineOption {
	return func(e *Engine) { e.logf = logf }
}

// WithObserver wires a metrics callback: action is "create_immediate",
// "create_scheduled" or "execute_scheduled"; outcome is the terminal
// state or error code reached.
func WithObserver(observe func(action, outcome string)) EngineOption {
	return func(e *Engine) { e.observe = observe }
}

func NewEngine(ledger Ledger, records WithdrawStore, validator *Validator, trail *audit.Trail, clk clock.Clock, opts ...EngineOption) *Engine {
	if validator == nil {
		validator = NewValidator(nil)
	}
	if trail == nil {
		trail = audit.NewTrail()
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	e := &Engine{
		ledger:    ledger,
		records:   records,
		validator: validator,
		trail:     trail,
		clk:       clk,
		logf:      func(string, ...any) {},
		observe:   func(string, string) {},
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) now() time.Time { return e.clk.Now().UTC() }

// accountLock returns the per-account mutex; the check-then-debit window
// must be a single critical section per account. Accounts are independent,
// so different accounts proceed in parallel.
func (e *Engine) accountLock(accountID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[accountID] = l
	}
	return l
}

func withdrawSnapshot(w Withdrawal) []byte {
	payload := map[string]any{
		"withdraw_id": w.ID,
		"account_id":  w.AccountID,
		"amount":      FormatCents(w.Amount),
		"state":       string(w.State),
		"scheduled":   w.Scheduled,
	}
	if w.FailureReason != "" {
		payload["failure_reason"] = w.FailureReason
	}
	b, _ := json.Marshal(payload)
	return b
}

func balanceSnapshot(accountID string, balance int64) []byte {
	b, _ := json.Marshal(map[string]any{
		"account_id": accountID,
		"balance":    FormatCents(balance),
	})
	return b
}

func (e *Engine) appendAudit(entity, entityID, action string, before, after []byte, outcome audit.Outcome, reason string) {
	_, err := e.trail.Append(audit.Event{
		RecordedAt: e.now(),
		Actor:      "engine",
		Entity:     entity,
		EntityID:   entityID,
		Action:     action,
		Before:     before,
		After:      after,
		Outcome:    outcome,
		Reason:     reason,
	})
	if err != nil {
		e.logf("audit append failed: %v", err)
	}
}

func (e *Engine) notify(ctx context.Context, w Withdrawal) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.WithdrawalProcessed(ctx, w); err != nil {
		e.logf("withdraw %s: notification failed: %v", w.ID, err)
	}
}

// CreateWithdraw validates a request and either executes it immediately
// (debit and Done in one atomic step) or persists it Pending for the
// sweep. Scheduled creation holds no funds: the balance is checked only
// at execution time, and a shortfall at creation is surfaced as the
// POSSIBLE_INSUFFICIENT_BALANCE warning, never as a rejection.
func (e *Engine) CreateWithdraw(ctx context.Context, req WithdrawRequest) (WithdrawalView, error) {
	if err := e.validator.ValidateCreate(req); err != nil {
		return WithdrawalView{}, err
	}

	lock := e.accountLock(req.AccountID)
	lock.Lock()
	unlocked := false
	unlock := func() {
		if !unlocked {
			unlocked = true
			lock.Unlock()
		}
	}
	defer unlock()

	account, err := e.ledger.GetAccount(ctx, req.AccountID)
	if err != nil {
		return WithdrawalView{}, err
	}

	now := e.now()
	w := Withdrawal{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		Amount:    req.Amount,
		Method:    MethodPix,
		Pix: PayoutDetails{
			Type:      req.PixType,
			Key:       req.PixKey,
			CreatedAt: now,
			UpdatedAt: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if req.Schedule != nil {
		if err := e.validator.ValidateScheduling(req.Schedule, now); err != nil {
			return WithdrawalView{}, err
		}
		scheduledFor := req.Schedule.UTC()
		w.Scheduled = true
		w.ScheduledFor = &scheduledFor
		w.State = StatePending

		if err := e.records.CreateWithdrawal(ctx, w); err != nil {
			e.observe("create_scheduled", "error")
			return WithdrawalView{}, Wrap(CodeDatabaseError, err)
		}
		e.appendAudit(audit.EntityWithdraw, w.ID, "withdraw_scheduled", []byte(`{}`), withdrawSnapshot(w), audit.OutcomeSuccess, "")

		view := WithdrawalView{Withdrawal: w}
		if account.Balance < w.Amount {
			view.Warning = CodePossibleInsufficientBal
		}
		e.observe("create_scheduled", string(StatePending))
		return view, nil
	}

	// Immediate path: balance check and debit are one atomic unit under
	// the account lock; persisting the Done record completes the same
	// logical transaction, compensated if persistence fails.
	if account.Balance < w.Amount {
		e.observe("create_immediate", string(CodeInsufficientBalance))
		return WithdrawalView{}, E(CodeInsufficientBalance, map[string]any{
			"current_balance":  FormatCents(account.Balance),
			"requested_amount": FormatCents(w.Amount),
			"deficit":          FormatCents(w.Amount - account.Balance),
		})
	}

	newBalance, err := e.ledger.Debit(ctx, account.ID, w.Amount)
	if err != nil {
		e.observe("create_immediate", "error")
		return WithdrawalView{}, err
	}

	processedAt := now
	w.State = StateDone
	w.ProcessedAt = &processedAt
	if err := e.records.CreateWithdrawal(ctx, w); err != nil {
		if _, cerr := e.ledger.Credit(ctx, account.ID, w.Amount); cerr != nil {
			e.logf("withdraw %s: compensating credit failed, balance diverged: %v", w.ID, cerr)
		}
		e.observe("create_immediate", "error")
		return WithdrawalView{}, Wrap(CodeDatabaseError, err)
	}

	e.appendAudit(audit.EntityAccount, account.ID, "withdraw_debit",
		balanceSnapshot(account.ID, account.Balance),
		balanceSnapshot(account.ID, newBalance),
		audit.OutcomeSuccess, "")
	e.appendAudit(audit.EntityWithdraw, w.ID, "withdraw_done", []byte(`{}`), withdrawSnapshot(w), audit.OutcomeSuccess, "")

	unlock()
	e.notify(ctx, w)
	e.observe("create_immediate", string(StateDone))
	return WithdrawalView{Withdrawal: w}, nil
}

// Failure reasons recorded when a scheduled execution cannot proceed.
const (
	FailureAccountNotFound     = "account not found"
	FailureInsufficientBalance = "insufficient balance at execution time"
)

// ExecuteScheduled runs one due Pending record. Terminal records are a
// no-op, so a record can never be executed twice. Business failures mark
// the record Failed and return nil; only infrastructure failures surface
// to the caller.
func (e *Engine) ExecuteScheduled(ctx context.Context, rec Withdrawal) error {
	lock := e.accountLock(rec.AccountID)
	lock.Lock()
	unlocked := false
	unlock := func() {
		if !unlocked {
			unlocked = true
			lock.Unlock()
		}
	}
	defer unlock()

	// Re-fetch under the lock: the record may have been executed between
	// the sweep's query and now.
	w, err := e.records.GetWithdrawal(ctx, rec.AccountID, rec.ID)
	if err != nil {
		return err
	}
	if w.State.Terminal() {
		return nil
	}

	now := e.now()
	account, err := e.ledger.GetAccount(ctx, w.AccountID)
	if err != nil {
		if CodeOf(err) != CodeAccountNotFound {
			return err
		}
		return e.fail(ctx, w, FailureAccountNotFound, now)
	}

	if account.Balance < w.Amount {
		return e.fail(ctx, w, FailureInsufficientBalance, now)
	}

	newBalance, err := e.ledger.Debit(ctx, w.AccountID, w.Amount)
	if err != nil {
		if CodeOf(err) == CodeInsufficientBalance {
			return e.fail(ctx, w, FailureInsufficientBalance, now)
		}
		return err
	}
	if err := e.records.MarkDone(ctx, w.ID, now); err != nil {
		if _, cerr := e.ledger.Credit(ctx, w.AccountID, w.Amount); cerr != nil {
			e.logf("withdraw %s: compensating credit failed, balance diverged: %v", w.ID, cerr)
		}
		e.observe("execute_scheduled", "error")
		return Wrap(CodeTransactionError, err)
	}

	w.State = StateDone
	w.ProcessedAt = &now
	e.appendAudit(audit.EntityAccount, account.ID, "withdraw_debit",
		balanceSnapshot(account.ID, account.Balance),
		balanceSnapshot(account.ID, newBalance),
		audit.OutcomeSuccess, "")
	e.appendAudit(audit.EntityWithdraw, w.ID, "withdraw_done", []byte(`{}`), withdrawSnapshot(w), audit.OutcomeSuccess, "")

	unlock()
	e.notify(ctx, w)
	e.observe("execute_scheduled", string(StateDone))
	return nil
}

func (e *Engine) fail(ctx context.Context, w Withdrawal, reason string, now time.Time) error {
	if err := e.records.MarkFailed(ctx, w.ID, reason, now); err != nil {
		e.observe("execute_scheduled", "error")
		return Wrap(CodeTransactionError, err)
	}
	before := withdrawSnapshot(w)
	w.State = StateFailed
	w.FailureReason = reason
	w.ProcessedAt = &now
	e.appendAudit(audit.EntityWithdraw, w.ID, "withdraw_failed", before, withdrawSnapshot(w), audit.OutcomeDenied, reason)
	e.observe("execute_scheduled", string(StateFailed))
	return nil
}

// GetWithdraw returns one withdrawal scoped to its account.
func (e *Engine) GetWithdraw(ctx context.Context, accountID, withdrawID string) (Withdrawal, error) {
	if accountID == "" || withdrawID == "" {
		field := "account_id"
		if accountID != "" {
			field = "withdraw_id"
		}
		return Withdrawal{}, E(CodeRequiredFieldMissing, map[string]any{"field": field})
	}
	return e.records.GetWithdrawal(ctx, accountID, withdrawID)
}

// ListWithdraws returns a page of an account's withdrawals, newest first.
func (e *Engine) ListWithdraws(ctx context.Context, accountID string, page, limit int) (Page[Withdrawal], error) {
	if accountID == "" {
		return Page[Withdrawal]{}, E(CodeRequiredFieldMissing, map[string]any{"field": "account_id"})
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	items, total, err := e.records.ListWithdrawals(ctx, accountID, page, limit)
	if err != nil {
		return Page[Withdrawal]{}, Wrap(CodeDatabaseError, err)
	}
	return NewPage(items, total, page, limit), nil
}

// Trail exposes the audit log for inspection endpoints and tests.
func (e *Engine) Trail() *audit.Trail { return e.trail }
