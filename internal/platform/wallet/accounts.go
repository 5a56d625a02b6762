package wallet

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/brwallet/pix-wallet-go/internal/platform/audit"
	"github.com/brwallet/pix-wallet-go/internal/platform/clock"
)

// Accounts is the administrative surface over the ledger: CRUD plus
// funding. Balance mutation still goes through the ledger's atomic ops.
type Accounts struct {
	ledger Ledger
	trail  *audit.Trail
	clk    clock.Clock
}

func NewAccounts(ledger Ledger, trail *audit.Trail, clk clock.Clock) *Accounts {
	if trail == nil {
		trail = audit.NewTrail()
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Accounts{ledger: ledger, trail: trail, clk: clk}
}

func (s *Accounts) audit(entityID, action string, before, after []byte, outcome audit.Outcome, reason string) {
	_, _ = s.trail.Append(audit.Event{
		RecordedAt: s.clk.Now().UTC(),
		Actor:      "accounts",
		Entity:     audit.EntityAccount,
		EntityID:   entityID,
		Action:     action,
		Before:     before,
		After:      after,
		Outcome:    outcome,
		Reason:     reason,
	})
}

// Create opens an account with a non-negative starting balance in cents.
func (s *Accounts) Create(ctx context.Context, name string, initialBalance int64) (Account, error) {
	if strings.TrimSpace(name) == "" {
		return Account{}, E(CodeRequiredFieldMissing, map[string]any{"field": "name"})
	}
	if initialBalance < 0 {
		return Account{}, E(CodeInvalidBalance, map[string]any{"balance": FormatCents(initialBalance)})
	}
	now := s.clk.Now().UTC()
	a := Account{
		ID:        uuid.NewString(),
		Name:      name,
		Balance:   initialBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.ledger.CreateAccount(ctx, a); err != nil {
		return Account{}, Wrap(CodeDatabaseError, err)
	}
	s.audit(a.ID, "account_created", []byte(`{}`), balanceSnapshot(a.ID, a.Balance), audit.OutcomeSuccess, "")
	return a, nil
}

func (s *Accounts) Get(ctx context.Context, id string) (Account, error) {
	if id == "" {
		return Account{}, E(CodeRequiredFieldMissing, map[string]any{"field": "account_id"})
	}
	return s.ledger.GetAccount(ctx, id)
}

func (s *Accounts) List(ctx context.Context, f AccountFilter) (Page[Account], error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	items, total, err := s.ledger.ListAccounts(ctx, f)
	if err != nil {
		return Page[Account]{}, Wrap(CodeDatabaseError, err)
	}
	return NewPage(items, total, f.Page, f.Limit), nil
}

// AccountUpdate carries the mutable fields; nil means "leave alone".
type AccountUpdate struct {
	Name    *string
	Balance *int64
}

// Update changes name and/or balance. An empty update is rejected with
// NO_FIELDS_TO_UPDATE rather than silently succeeding.
func (s *Accounts) Update(ctx context.Context, id string, upd AccountUpdate) (Account, error) {
	if upd.Name == nil && upd.Balance == nil {
		return Account{}, E(CodeNoFieldsToUpdate, nil)
	}
	account, err := s.ledger.GetAccount(ctx, id)
	if err != nil {
		return Account{}, err
	}
	before := balanceSnapshot(account.ID, account.Balance)
	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return Account{}, E(CodeRequiredFieldMissing, map[string]any{"field": "name"})
		}
		account.Name = *upd.Name
	}
	if upd.Balance != nil {
		if *upd.Balance < 0 {
			return Account{}, E(CodeInvalidBalance, map[string]any{"balance": FormatCents(*upd.Balance)})
		}
		account.Balance = *upd.Balance
	}
	account.UpdatedAt = s.clk.Now().UTC()
	if err := s.ledger.UpdateAccount(ctx, account); err != nil {
		return Account{}, Wrap(CodeDatabaseError, err)
	}
	s.audit(account.ID, "account_updated", before, balanceSnapshot(account.ID, account.Balance), audit.OutcomeSuccess, "")
	return account, nil
}

// Delete soft-deletes: the row stays for audit, reads stop seeing it.
func (s *Accounts) Delete(ctx context.Context, id string) (Account, error) {
	account, err := s.ledger.GetAccount(ctx, id)
	if err != nil {
		return Account{}, err
	}
	now := s.clk.Now().UTC()
	if err := s.ledger.SoftDeleteAccount(ctx, id, now); err != nil {
		return Account{}, Wrap(CodeDatabaseError, err)
	}
	account.DeletedAt = &now
	s.audit(account.ID, "account_deleted", balanceSnapshot(account.ID, account.Balance), []byte(`{}`), audit.OutcomeSuccess, "")
	return account, nil
}

// Fund credits an account; amount must be positive.
func (s *Accounts) Fund(ctx context.Context, id string, cents int64) (int64, error) {
	if cents <= 0 {
		return 0, E(CodeInvalidWithdrawAmount, map[string]any{"amount": FormatCents(cents)})
	}
	account, err := s.ledger.GetAccount(ctx, id)
	if err != nil {
		return 0, err
	}
	newBalance, err := s.ledger.Credit(ctx, id, cents)
	if err != nil {
		return 0, err
	}
	s.audit(id, "account_funded", balanceSnapshot(id, account.Balance), balanceSnapshot(id, newBalance), audit.OutcomeSuccess, "")
	return newBalance, nil
}
