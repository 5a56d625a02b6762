// Package postgres persists the wallet in PostgreSQL through database/sql
// with the pgx stdlib driver. Balance mutations serialize on a row lock.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/brwallet/pix-wallet-go/internal/platform/wallet"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the wallet tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS account (
  id          UUID PRIMARY KEY,
  name        TEXT NOT NULL,
  balance     BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
  created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  deleted_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS account_withdraw (
  id            UUID PRIMARY KEY,
  account_id    UUID NOT NULL REFERENCES account (id),
  amount        BIGINT NOT NULL CHECK (amount > 0),
  method        TEXT NOT NULL,
  scheduled     BOOLEAN NOT NULL DEFAULT FALSE,
  scheduled_for TIMESTAMPTZ,
  done          BOOLEAN NOT NULL DEFAULT FALSE,
  error         BOOLEAN NOT NULL DEFAULT FALSE,
  error_reason  TEXT,
  processed_at  TIMESTAMPTZ,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS account_withdraw_pix (
  account_withdraw_id UUID PRIMARY KEY REFERENCES account_withdraw (id),
  type        TEXT NOT NULL,
  key         TEXT NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  deleted_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_withdraw_due
  ON account_withdraw (scheduled_for)
  WHERE scheduled AND NOT done AND NOT error;
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) CreateAccount(ctx context.Context, a wallet.Account) error {
	const q = `
INSERT INTO account (id, name, balance, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
`
	_, err := s.db.ExecContext(ctx, q, a.ID, a.Name, a.Balance, a.CreatedAt.UTC())
	return err
}

func notFound(id string) error {
	return wallet.E(wallet.CodeAccountNotFound, map[string]any{"account_id": id})
}

func scanAccount(row interface{ Scan(...any) error }) (wallet.Account, error) {
	var a wallet.Account
	var deletedAt sql.NullTime
	err := row.Scan(&a.ID, &a.Name, &a.Balance, &a.CreatedAt, &a.UpdatedAt, &deletedAt)
	if err != nil {
		return wallet.Account{}, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		a.DeletedAt = &t
	}
	return a, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (wallet.Account, error) {
	const q = `
SELECT id, name, balance, created_at, updated_at, deleted_at
FROM account
WHERE id = $1 AND deleted_at IS NULL
`
	a, err := scanAccount(s.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return wallet.Account{}, notFound(id)
	}
	if err != nil {
		return wallet.Account{}, wallet.Wrap(wallet.CodeDatabaseError, err)
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, f wallet.AccountFilter) ([]wallet.Account, int, error) {
	where := "WHERE ($1 = '' OR name ILIKE '%' || $1 || '%') AND ($2 = '' OR created_at::date = NULLIF($2, '')::date)"
	if !f.IncludeDeleted {
		where += " AND deleted_at IS NULL"
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account "+where, f.Name, f.CreatedAt).Scan(&total); err != nil {
		return nil, 0, wallet.Wrap(wallet.CodeDatabaseError, err)
	}

	q := `
SELECT id, name, balance, created_at, updated_at, deleted_at
FROM account ` + where + `
ORDER BY created_at ASC
LIMIT $3 OFFSET $4
`
	rows, err := s.db.QueryContext(ctx, q, f.Name, f.CreatedAt, f.Limit, (f.Page-1)*f.Limit)
	if err != nil {
		return nil, 0, wallet.Wrap(wallet.CodeDatabaseError, err)
	}
	defer rows.Close()

	out := make([]wallet.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, wallet.Wrap(wallet.CodeDatabaseError, err)
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (s *Store) UpdateAccount(ctx context.Context, a wallet.Account) error {
	const q = `
UPDATE account
SET name = $2, balance = $3, updated_at = $4
WHERE id = $1 AND deleted_at IS NULL
`
	res, err := s.db.ExecContext(ctx, q, a.ID, a.Name, a.Balance, a.UpdatedAt.UTC())
	if err != nil {
		return wallet.Wrap(wallet.CodeDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(a.ID)
	}
	return nil
}

func (s *Store) SoftDeleteAccount(ctx context.Context, id string, at time.Time) error {
	const q = `
UPDATE account
SET deleted_at = $2, updated_at = $2
WHERE id = $1 AND deleted_at IS NULL
`
	res, err := s.db.ExecContext(ctx, q, id, at.UTC())
	if err != nil {
		return wallet.Wrap(wallet.CodeDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *Store) Balance(ctx context.Context, id string) (int64, error) {
	a, err := s.GetAccount(ctx, id)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

// adjust applies a signed delta under a row lock so concurrent callers
// never both pass the balance check against a stale value.
func (s *Store) adjust(ctx context.Context, id string, delta int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, wallet.Wrap(wallet.CodeTransactionError, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var balance int64
	err = tx.QueryRowContext(ctx,
		`SELECT balance FROM account WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, notFound(id)
	}
	if err != nil {
		return 0, wallet.Wrap(wallet.CodeDatabaseError, err)
	}

	newBalance := balance + delta
	if newBalance < 0 {
		return 0, wallet.E(wallet.CodeInsufficientBalance, map[string]any{
			"current_balance":  wallet.FormatCents(balance),
			"requested_amount": wallet.FormatCents(-delta),
		})
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE account SET balance = $2, updated_at = NOW() WHERE id = $1`, id, newBalance,
	); err != nil {
		return 0, wallet.Wrap(wallet.CodeDatabaseError, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, wallet.Wrap(wallet.CodeTransactionError, err)
	}
	return newBalance, nil
}

func (s *Store) Debit(ctx context.Context, id string, cents int64) (int64, error) {
	if cents <= 0 {
		return 0, wallet.E(wallet.CodeInvalidWithdrawAmount, map[string]any{"amount": wallet.FormatCents(cents)})
	}
	return s.adjust(ctx, id, -cents)
}

func (s *Store) Credit(ctx context.Context, id string, cents int64) (int64, error) {
	if cents <= 0 {
		return 0, wallet.E(wallet.CodeInvalidWithdrawAmount, map[string]any{"amount": wallet.FormatCents(cents)})
	}
	return s.adjust(ctx, id, cents)
}

func (s *Store) CreateWithdrawal(ctx context.Context, w wallet.Withdrawal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wallet.Wrap(wallet.CodeTransactionError, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insWithdraw = `
INSERT INTO account_withdraw (
  id, account_id, amount, method, scheduled, scheduled_for,
  done, error, error_reason, processed_at, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10,$11,$11)
`
	var scheduledFor, processedAt any
	if w.ScheduledFor != nil {
		scheduledFor = w.ScheduledFor.UTC()
	}
	if w.ProcessedAt != nil {
		processedAt = w.ProcessedAt.UTC()
	}
	if _, err := tx.ExecContext(ctx, insWithdraw,
		w.ID, w.AccountID, w.Amount, w.Method, w.Scheduled, scheduledFor,
		w.State == wallet.StateDone, w.State == wallet.StateFailed, w.FailureReason,
		processedAt, w.CreatedAt.UTC(),
	); err != nil {
		return wallet.Wrap(wallet.CodeDatabaseError, err)
	}

	const insPix = `
INSERT INTO account_withdraw_pix (account_withdraw_id, type, key, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
`
	if _, err := tx.ExecContext(ctx, insPix, w.ID, w.Pix.Type, w.Pix.Key, w.CreatedAt.UTC()); err != nil {
		return wallet.Wrap(wallet.CodeDatabaseError, err)
	}

	if err := tx.Commit(); err != nil {
		return wallet.Wrap(wallet.CodeTransactionError, err)
	}
	return nil
}

const withdrawColumns = `
w.id, w.account_id, w.amount, w.method, w.scheduled, w.scheduled_for,
w.done, w.error, COALESCE(w.error_reason, ''), w.processed_at,
w.created_at, w.updated_at, p.type, p.key
`

func scanWithdrawal(row interface{ Scan(...any) error }) (wallet.Withdrawal, error) {
	var w wallet.Withdrawal
	var scheduledFor, processedAt sql.NullTime
	var done, failed bool
	err := row.Scan(
		&w.ID, &w.AccountID, &w.Amount, &w.Method, &w.Scheduled, &scheduledFor,
		&done, &failed, &w.FailureReason, &processedAt,
		&w.CreatedAt, &w.UpdatedAt, &w.Pix.Type, &w.Pix.Key,
	)
	if err != nil {
		return wallet.Withdrawal{}, err
	}
	switch {
	case done:
		w.State = wallet.StateDone
	case failed:
		w.State = wallet.StateFailed
	default:
		w.State = wallet.StatePending
	}
	if scheduledFor.Valid {
		t := scheduledFor.Time.UTC()
		w.ScheduledFor = &t
	}
	if processedAt.Valid {
		t := processedAt.Time.UTC()
		w.ProcessedAt = &t
	}
	return w, nil
}

func (s *Store) GetWithdrawal(ctx context.Context, accountID, withdrawID string) (wallet.Withdrawal, error) {
	q := `
SELECT ` + withdrawColumns + `
FROM account_withdraw w
JOIN account_withdraw_pix p ON p.account_withdraw_id = w.id
WHERE w.id = $1 AND w.account_id = $2
`
	w, err := scanWithdrawal(s.db.QueryRowContext(ctx, q, withdrawID, accountID))
	if err == sql.ErrNoRows {
		return wallet.Withdrawal{}, wallet.E(wallet.CodeWithdrawNotFound, map[string]any{
			"withdraw_id": withdrawID,
			"account_id":  accountID,
		})
	}
	if err != nil {
		return wallet.Withdrawal{}, wallet.Wrap(wallet.CodeDatabaseError, err)
	}
	return w, nil
}

func (s *Store) ListWithdrawals(ctx context.Context, accountID string, page, limit int) ([]wallet.Withdrawal, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM account_withdraw WHERE account_id = $1`, accountID,
	).Scan(&total); err != nil {
		return nil, 0, wallet.Wrap(wallet.CodeDatabaseError, err)
	}

	q := `
SELECT ` + withdrawColumns + `
FROM account_withdraw w
JOIN account_withdraw_pix p ON p.account_withdraw_id = w.id
WHERE w.account_id = $1
ORDER BY w.created_at DESC
LIMIT $2 OFFSET $3
`
	rows, err := s.db.QueryContext(ctx, q, accountID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, wallet.Wrap(wallet.CodeDatabaseError, err)
	}
	defer rows.Close()

	out := make([]wallet.Withdrawal, 0)
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, 0, wallet.Wrap(wallet.CodeDatabaseError, err)
		}
		out = append(out, w)
	}
	return out, total, rows.Err()
}

// MarkDone flips a still-pending record to done. The state predicate in
// the WHERE clause makes the terminal transition exactly-once even under
// concurrent executors.
func (s *Store) MarkDone(ctx context.Context, withdrawID string, processedAt time.Time) error {
	const q = `
UPDATE account_withdraw
SET done = TRUE, processed_at = $2, updated_at = $2
WHERE id = $1 AND NOT done AND NOT error
`
	res, err := s.db.ExecContext(ctx, q, withdrawID, processedAt.UTC())
	if err != nil {
		return wallet.Wrap(wallet.CodeDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return wallet.E(wallet.CodeTransactionError, map[string]any{"withdraw_id": withdrawID})
	}
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, withdrawID, reason string, processedAt time.Time) error {
	const q = `
UPDATE account_withdraw
SET error = TRUE, error_reason = $2, processed_at = $3, updated_at = $3
WHERE id = $1 AND NOT done AND NOT error
`
	res, err := s.db.ExecContext(ctx, q, withdrawID, reason, processedAt.UTC())
	if err != nil {
		return wallet.Wrap(wallet.CodeDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return wallet.E(wallet.CodeTransactionError, map[string]any{"withdraw_id": withdrawID})
	}
	return nil
}

func (s *Store) DuePending(ctx context.Context, now time.Time) ([]wallet.Withdrawal, error) {
	q := `
SELECT ` + withdrawColumns + `
FROM account_withdraw w
JOIN account_withdraw_pix p ON p.account_withdraw_id = w.id
WHERE w.scheduled AND NOT w.done AND NOT w.error AND w.scheduled_for <= $1
ORDER BY w.scheduled_for ASC
`
	rows, err := s.db.QueryContext(ctx, q, now.UTC())
	if err != nil {
		return nil, wallet.Wrap(wallet.CodeDatabaseError, err)
	}
	defer rows.Close()

	out := make([]wallet.Withdrawal, 0)
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, wallet.Wrap(wallet.CodeDatabaseError, err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

var (
	_ wallet.Ledger        = (*Store)(nil)
	_ wallet.WithdrawStore = (*Store)(nil)
)
