package wallet_test

import (
	"context"
	"testing"
	"time"

	"github.com/brwallet/pix-wallet-go/internal/platform/store/memory"
	"github.com/brwallet/pix-wallet-go/internal/platform/wallet"
)

// hookedStore lets tests intercept the sweep-facing store calls.
type hookedStore struct {
	*memory.Store
	onDuePending    func()
	onGetWithdrawal func(withdrawID string)
}

func (s *hookedStore) DuePending(ctx context.Context, now time.Time) ([]wallet.Withdrawal, error) {
	if s.onDuePending != nil {
		s.onDuePending()
	}
	return s.Store.DuePending(ctx, now)
}

func (s *hookedStore) GetWithdrawal(ctx context.Context, accountID, withdrawID string) (wallet.Withdrawal, error) {
	if s.onGetWithdrawal != nil {
		s.onGetWithdrawal(withdrawID)
	}
	return s.Store.GetWithdrawal(ctx, accountID, withdrawID)
}

func scheduleWithdraw(t *testing.T, f *fixture, accountID string, cents int64, at time.Time) wallet.WithdrawalView {
	t.Helper()
	req := request(accountID, cents)
	req.Schedule = &at
	view, err := f.engine.CreateWithdraw(context.Background(), req)
	if err != nil {
		t.Fatalf("create scheduled: %v", err)
	}
	return view
}

func TestSweepExecutesOnlyDueRecords(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, 10_000)

	due := scheduleWithdraw(t, f, acc.ID, 1_000, testStart.Add(time.Hour))
	future := scheduleWithdraw(t, f, acc.ID, 2_000, testStart.Add(48*time.Hour))

	f.clk.Set(testStart.Add(2 * time.Hour))
	sweep := wallet.NewSweep(f.engine, f.store, f.clk)
	res := sweep.Run(context.Background())

	if res.Skipped || res.Found != 1 || res.Processed != 1 || res.Failed != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	got, _ := f.engine.GetWithdraw(context.Background(), acc.ID, due.ID)
	if got.State != wallet.StateDone {
		t.Fatalf("due record state = %s", got.State)
	}
	got, _ = f.engine.GetWithdraw(context.Background(), acc.ID, future.ID)
	if got.State != wallet.StatePending {
		t.Fatalf("future record executed early: %s", got.State)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, 10_000)
	scheduleWithdraw(t, f, acc.ID, 1_000, testStart.Add(time.Hour))

	f.clk.Set(testStart.Add(2 * time.Hour))
	sweep := wallet.NewSweep(f.engine, f.store, f.clk)

	first := sweep.Run(context.Background())
	second := sweep.Run(context.Background())
	if first.Processed != 1 {
		t.Fatalf("first run processed %d", first.Processed)
	}
	if second.Found != 0 || second.Processed != 0 {
		t.Fatalf("second run reprocessed: %+v", second)
	}
	balance, _ := f.store.Balance(context.Background(), acc.ID)
	if balance != 9_000 {
		t.Fatalf("balance = %d, want 9000", balance)
	}
}

func TestSweepIsolatesPanics(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, 10_000)

	poison := scheduleWithdraw(t, f, acc.ID, 1_000, testStart.Add(time.Hour))
	healthy := scheduleWithdraw(t, f, acc.ID, 2_000, testStart.Add(time.Hour))

	hooked := &hookedStore{Store: f.store}
	hooked.onGetWithdrawal = func(withdrawID string) {
		if withdrawID == poison.ID {
			panic("storage corruption")
		}
	}
	// The engine re-fetches through the hooked store during execution.
	engine := wallet.NewEngine(f.store, hooked, nil, nil, f.clk)

	f.clk.Set(testStart.Add(2 * time.Hour))
	sweep := wallet.NewSweep(engine, hooked, f.clk)
	res := sweep.Run(context.Background())

	if res.Found != 2 || res.Processed != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	got, _ := f.engine.GetWithdraw(context.Background(), acc.ID, healthy.ID)
	if got.State != wallet.StateDone {
		t.Fatalf("healthy record not processed: %s", got.State)
	}
}

func TestSweepSkipsOverlappingRun(t *testing.T) {
	f := newFixture(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	hooked := &hookedStore{Store: f.store}
	first := true
	hooked.onDuePending = func() {
		if first {
			first = false
			close(entered)
			<-release
		}
	}

	sweep := wallet.NewSweep(f.engine, hooked, f.clk)
	done := make(chan wallet.SweepResult)
	go func() {
		done <- sweep.Run(context.Background())
	}()

	<-entered
	overlap := sweep.Run(context.Background())
	if !overlap.Skipped {
		t.Fatalf("overlapping run not skipped: %+v", overlap)
	}
	close(release)
	if res := <-done; res.Skipped {
		t.Fatalf("original run reported skipped: %+v", res)
	}
}
