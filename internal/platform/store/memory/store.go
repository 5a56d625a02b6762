// Package memory holds the in-process store used in tests and for
// running the wallet without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brwallet/pix-wallet-go/internal/platform/wallet"
)

// Store implements wallet.Ledger and wallet.WithdrawStore with maps
// behind a single mutex.
type Store struct {
	mu          sync.Mutex
	accounts    map[string]*wallet.Account
	withdrawals map[string]*wallet.Withdrawal
	order       []string // withdrawal ids in insertion order
}

func NewStore() *Store {
	return &Store{
		accounts:    make(map[string]*wallet.Account),
		withdrawals: make(map[string]*wallet.Withdrawal),
	}
}

func (s *Store) CreateAccount(_ context.Context, a wallet.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *Store) getLive(id string) (*wallet.Account, error) {
	a, ok := s.accounts[id]
	if !ok || a.Deleted() {
		return nil, wallet.E(wallet.CodeAccountNotFound, map[string]any{"account_id": id})
	}
	return a, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (wallet.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.getLive(id)
	if err != nil {
		return wallet.Account{}, err
	}
	return *a, nil
}

func (s *Store) ListAccounts(_ context.Context, f wallet.AccountFilter) ([]wallet.Account, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]wallet.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if a.Deleted() && !f.IncludeDeleted {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(f.Name)) {
			continue
		}
		if f.CreatedAt != "" && a.CreatedAt.UTC().Format("2006-01-02") != f.CreatedAt {
			continue
		}
		all = append(all, *a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	total := len(all)
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *Store) UpdateAccount(_ context.Context, a wallet.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.getLive(a.ID)
	if err != nil {
		return err
	}
	existing.Name = a.Name
	existing.Balance = a.Balance
	existing.UpdatedAt = a.UpdatedAt
	return nil
}

func (s *Store) SoftDeleteAccount(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.getLive(id)
	if err != nil {
		return err
	}
	at = at.UTC()
	a.DeletedAt = &at
	return nil
}

func (s *Store) Balance(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.getLive(id)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

func (s *Store) Debit(_ context.Context, id string, cents int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.getLive(id)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, wallet.E(wallet.CodeInvalidWithdrawAmount, map[string]any{"amount": wallet.FormatCents(cents)})
	}
	if a.Balance-cents < 0 {
		return 0, wallet.E(wallet.CodeInsufficientBalance, map[string]any{
			"current_balance":  wallet.FormatCents(a.Balance),
			"requested_amount": wallet.FormatCents(cents),
		})
	}
	a.Balance -= cents
	return a.Balance, nil
}

func (s *Store) Credit(_ context.Context, id string, cents int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.getLive(id)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, wallet.E(wallet.CodeInvalidWithdrawAmount, map[string]any{"amount": wallet.FormatCents(cents)})
	}
	a.Balance += cents
	return a.Balance, nil
}

func (s *Store) CreateWithdrawal(_ context.Context, w wallet.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := w
	s.withdrawals[w.ID] = &cp
	s.order = append(s.order, w.ID)
	return nil
}

func (s *Store) GetWithdrawal(_ context.Context, accountID, withdrawID string) (wallet.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[withdrawID]
	if !ok || w.AccountID != accountID {
		return wallet.Withdrawal{}, wallet.E(wallet.CodeWithdrawNotFound, map[string]any{
			"withdraw_id": withdrawID,
			"account_id":  accountID,
		})
	}
	return *w, nil
}

func (s *Store) ListWithdrawals(_ context.Context, accountID string, page, limit int) ([]wallet.Withdrawal, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []wallet.Withdrawal
	// Newest first.
	for i := len(s.order) - 1; i >= 0; i-- {
		w := s.withdrawals[s.order[i]]
		if w.AccountID == accountID {
			all = append(all, *w)
		}
	}
	total := len(all)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *Store) transition(withdrawID string) (*wallet.Withdrawal, error) {
	w, ok := s.withdrawals[withdrawID]
	if !ok {
		return nil, wallet.E(wallet.CodeWithdrawNotFound, map[string]any{"withdraw_id": withdrawID})
	}
	if w.State.Terminal() {
		return nil, wallet.E(wallet.CodeTransactionError, map[string]any{
			"withdraw_id": withdrawID,
			"state":       string(w.State),
		})
	}
	return w, nil
}

func (s *Store) MarkDone(_ context.Context, withdrawID string, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.transition(withdrawID)
	if err != nil {
		return err
	}
	processedAt = processedAt.UTC()
	w.State = wallet.StateDone
	w.ProcessedAt = &processedAt
	w.UpdatedAt = processedAt
	return nil
}

func (s *Store) MarkFailed(_ context.Context, withdrawID, reason string, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.transition(withdrawID)
	if err != nil {
		return err
	}
	processedAt = processedAt.UTC()
	w.State = wallet.StateFailed
	w.FailureReason = reason
	w.ProcessedAt = &processedAt
	w.UpdatedAt = processedAt
	return nil
}

func (s *Store) DuePending(_ context.Context, now time.Time) ([]wallet.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []wallet.Withdrawal
	for _, id := range s.order {
		w := s.withdrawals[id]
		if w.Scheduled && w.State == wallet.StatePending && w.ScheduledFor != nil && !w.ScheduledFor.After(now) {
			due = append(due, *w)
		}
	}
	return due, nil
}

var (
	_ wallet.Ledger        = (*Store)(nil)
	_ wallet.WithdrawStore = (*Store)(nil)
)
