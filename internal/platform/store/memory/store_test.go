package memory

import (
	"context"
	"testing"
	"time"

	"github.com/brwallet/pix-wallet-go/internal/platform/wallet"
)

var storeStart = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func seedAccount(t *testing.T, s *Store, id string, balance int64) {
	t.Helper()
	err := s.CreateAccount(context.Background(), wallet.Account{
		ID:        id,
		Name:      "Account " + id,
		Balance:   balance,
		CreatedAt: storeStart,
		UpdatedAt: storeStart,
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
}

func seedWithdrawal(t *testing.T, s *Store, id, accountID string, due time.Time) {
	t.Helper()
	scheduledFor := due
	err := s.CreateWithdrawal(context.Background(), wallet.Withdrawal{
		ID:           id,
		AccountID:    accountID,
		Amount:       100,
		Method:       "PIX",
		Pix:          wallet.PayoutDetails{Type: "email", Key: "p@example.com"},
		Scheduled:    true,
		ScheduledFor: &scheduledFor,
		State:        wallet.StatePending,
		CreatedAt:    storeStart,
		UpdatedAt:    storeStart,
	})
	if err != nil {
		t.Fatalf("seed withdrawal: %v", err)
	}
}

func TestDebitGuardsBalance(t *testing.T) {
	s := NewStore()
	seedAccount(t, s, "a-1", 500)

	if _, err := s.Debit(context.Background(), "a-1", 600); wallet.CodeOf(err) != wallet.CodeInsufficientBalance {
		t.Fatalf("overdraw allowed: %v", err)
	}
	balance, err := s.Debit(context.Background(), "a-1", 500)
	if err != nil {
		t.Fatalf("debit to zero: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
	if _, err := s.Debit(context.Background(), "a-1", 0); wallet.CodeOf(err) != wallet.CodeInvalidWithdrawAmount {
		t.Fatalf("zero debit allowed: %v", err)
	}
}

func TestSoftDeletedAccountsDisappearFromReads(t *testing.T) {
	s := NewStore()
	seedAccount(t, s, "a-1", 500)

	if err := s.SoftDeleteAccount(context.Background(), "a-1", storeStart.Add(time.Hour)); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := s.GetAccount(context.Background(), "a-1"); wallet.CodeOf(err) != wallet.CodeAccountNotFound {
		t.Fatalf("deleted account still readable: %v", err)
	}
	if _, err := s.Debit(context.Background(), "a-1", 100); wallet.CodeOf(err) != wallet.CodeAccountNotFound {
		t.Fatalf("deleted account still debitable: %v", err)
	}
	if err := s.SoftDeleteAccount(context.Background(), "a-1", storeStart.Add(2*time.Hour)); wallet.CodeOf(err) != wallet.CodeAccountNotFound {
		t.Fatalf("double delete allowed: %v", err)
	}
}

func TestTerminalTransitionIsExactlyOnce(t *testing.T) {
	s := NewStore()
	seedAccount(t, s, "a-1", 500)
	seedWithdrawal(t, s, "w-1", "a-1", storeStart.Add(time.Hour))

	processedAt := storeStart.Add(2 * time.Hour)
	if err := s.MarkDone(context.Background(), "w-1", processedAt); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	if err := s.MarkDone(context.Background(), "w-1", processedAt); wallet.CodeOf(err) != wallet.CodeTransactionError {
		t.Fatalf("second terminal transition allowed: %v", err)
	}
	if err := s.MarkFailed(context.Background(), "w-1", "late", processedAt); wallet.CodeOf(err) != wallet.CodeTransactionError {
		t.Fatalf("failed after done allowed: %v", err)
	}

	w, err := s.GetWithdrawal(context.Background(), "a-1", "w-1")
	if err != nil {
		t.Fatalf("get withdrawal: %v", err)
	}
	if w.State != wallet.StateDone || w.ProcessedAt == nil {
		t.Fatalf("record = %+v", w)
	}
}

func TestDuePendingSelectsOnlyDueRecords(t *testing.T) {
	s := NewStore()
	seedAccount(t, s, "a-1", 500)
	seedWithdrawal(t, s, "w-due", "a-1", storeStart.Add(time.Hour))
	seedWithdrawal(t, s, "w-boundary", "a-1", storeStart.Add(2*time.Hour))
	seedWithdrawal(t, s, "w-future", "a-1", storeStart.Add(3*time.Hour))

	if err := s.MarkFailed(context.Background(), "w-due", "gone", storeStart); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	due, err := s.DuePending(context.Background(), storeStart.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("due pending: %v", err)
	}
	if len(due) != 1 || due[0].ID != "w-boundary" {
		t.Fatalf("due = %+v", due)
	}
}

func TestListWithdrawalsNewestFirst(t *testing.T) {
	s := NewStore()
	seedAccount(t, s, "a-1", 500)
	seedAccount(t, s, "a-2", 500)
	seedWithdrawal(t, s, "w-1", "a-1", storeStart.Add(time.Hour))
	seedWithdrawal(t, s, "w-2", "a-1", storeStart.Add(time.Hour))
	seedWithdrawal(t, s, "w-other", "a-2", storeStart.Add(time.Hour))

	items, total, err := s.ListWithdrawals(context.Background(), "a-1", 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("total=%d items=%d", total, len(items))
	}
	if items[0].ID != "w-2" || items[1].ID != "w-1" {
		t.Fatalf("ordering off: %s, %s", items[0].ID, items[1].ID)
	}

	if _, err := s.GetWithdrawal(context.Background(), "a-2", "w-1"); wallet.CodeOf(err) != wallet.CodeWithdrawNotFound {
		t.Fatalf("cross-account read allowed: %v", err)
	}
}
