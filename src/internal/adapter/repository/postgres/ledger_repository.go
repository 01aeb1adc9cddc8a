package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/api-sage/yosoku-ledger/src/internal/domain"
	"github.com/api-sage/yosoku-ledger/src/internal/logger"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var _ domain.LedgerRepository = (*LedgerRepository)(nil)

// ledgerWriteLock is the advisory lock key shared by every ledger writer.
const ledgerWriteLock int64 = 0x79736b6c

// numeric_value_out_of_range, raised when a BIGINT balance would overflow.
const pqNumericOutOfRange pq.ErrorCode = "22003"

var (
	maxBalance = decimal.NewFromInt(math.MaxInt64)
	minBalance = decimal.NewFromInt(math.MinInt64)
)

// LedgerRepository stores the log in postgres. ledger_balances is maintained
// in the same database transaction as every append.
type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Transact(ctx context.Context, txn domain.Transaction) (domain.Transaction, error) {
	logger.Info("ledger repository transact", logger.Fields{
		"createdBy": txn.CreatedBy,
		"kind":      txn.Kind,
		"postings":  len(txn.Postings),
	})

	if err := txn.ValidateTransfer(); err != nil {
		return domain.Transaction{}, err
	}

	var finalised domain.Transaction
	err := r.withWriteLock(ctx, func(tx *sql.Tx) error {
		var err error
		finalised, err = appendTransaction(ctx, tx, txn)
		return err
	})
	if err != nil {
		logger.Error("ledger repository transact failed", err, logger.Fields{
			"createdBy": txn.CreatedBy,
		})
		return domain.Transaction{}, err
	}

	logger.Info("ledger repository transact success", logger.Fields{
		"time": finalised.Status.Time,
	})

	return finalised, nil
}

func (r *LedgerRepository) CreateAccount(ctx context.Context, typ domain.AccountType, creator domain.Account) (domain.Account, error) {
	if !typ.Valid() || typ == domain.AccountTypeSystem {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidAccountType, typ)
	}

	var account domain.Account
	err := r.withWriteLock(ctx, func(tx *sql.Tx) error {
		var next int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM ledger_accounts`).Scan(&next); err != nil {
			return fmt.Errorf("allocate account id: %w", err)
		}
		account = domain.Account(next)

		finalised, err := appendTransaction(ctx, tx, domain.Transaction{
			CreatedBy:      creator,
			Status:         domain.Proposed(),
			Kind:           domain.TransactionKindAccountCreation,
			CreatedAccount: &account,
		})
		if err != nil {
			return err
		}

		const query = `
INSERT INTO ledger_accounts (id, account_type, created_by, created_at_time)
VALUES ($1, $2, $3, $4)`
		if _, err := tx.ExecContext(ctx, query, int64(account), string(typ), int64(creator), int64(finalised.Status.Time)); err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Error("ledger repository create account failed", err, logger.Fields{
			"creator": creator,
			"type":    typ,
		})
		return 0, err
	}

	logger.Info("ledger repository create account success", logger.Fields{
		"account": account,
		"type":    typ,
	})

	return account, nil
}

func (r *LedgerRepository) AccountBalance(ctx context.Context, account domain.Account, token domain.Token) (domain.TokenAmount, error) {
	const query = `SELECT amount FROM ledger_balances WHERE account_id = $1 AND token = $2`

	var amount int64
	err := r.db.QueryRowContext(ctx, query, int64(account), string(token)).Scan(&amount)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.TokenAmount{}, fmt.Errorf("get account balance: %w", err)
	}

	return domain.NewTokenAmount(token, amount), nil
}

func (r *LedgerRepository) AccountType(ctx context.Context, account domain.Account) (domain.AccountType, error) {
	var typ string
	err := r.db.QueryRowContext(ctx, `SELECT account_type FROM ledger_accounts WHERE id = $1`, int64(account)).Scan(&typ)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", domain.ErrUnknownAccount, account)
		}
		return "", fmt.Errorf("get account type: %w", err)
	}

	return domain.AccountType(typ), nil
}

// Transactions reads the log and its postings from one snapshot.
func (r *LedgerRepository) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
SELECT logical_time, created_by, kind, created_account, memo
FROM ledger_transactions
ORDER BY logical_time`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	var txns []domain.Transaction
	index := make(map[int64]int)
	for rows.Next() {
		var (
			logicalTime    int64
			createdBy      int64
			kind           string
			createdAccount sql.NullInt64
			memo           string
		)
		if err := rows.Scan(&logicalTime, &createdBy, &kind, &createdAccount, &memo); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		txn := domain.Transaction{
			CreatedBy: domain.Account(createdBy),
			Status:    domain.Finalised(uint64(logicalTime)),
			Kind:      domain.TransactionKind(kind),
			Memo:      memo,
		}
		if createdAccount.Valid {
			created := domain.Account(createdAccount.Int64)
			txn.CreatedAccount = &created
		}
		index[logicalTime] = len(txns)
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	_ = rows.Close()

	rows, err = tx.QueryContext(ctx, `
SELECT logical_time, account_id, token, amount
FROM ledger_postings
ORDER BY logical_time, position`)
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			logicalTime int64
			accountID   int64
			token       string
			amount      int64
		)
		if err := rows.Scan(&logicalTime, &accountID, &token, &amount); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		i, ok := index[logicalTime]
		if !ok {
			return nil, fmt.Errorf("posting references missing transaction %d", logicalTime)
		}
		txns[i].Postings = append(txns[i].Postings, domain.NewPosting(domain.Account(accountID), domain.Token(token), amount))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate postings: %w", err)
	}

	return txns, nil
}

func (r *LedgerRepository) Time(ctx context.Context) (uint64, error) {
	var now int64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(logical_time), 0) FROM ledger_transactions`).Scan(&now); err != nil {
		return 0, fmt.Errorf("get ledger time: %w", err)
	}
	return uint64(now), nil
}

// withWriteLock runs fn in a transaction holding the ledger's advisory lock,
// so validate, stamp, append and balance update commit or roll back together.
func (r *LedgerRepository) withWriteLock(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, ledgerWriteLock); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("acquire ledger lock: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

func appendTransaction(ctx context.Context, tx *sql.Tx, txn domain.Transaction) (domain.Transaction, error) {
	if err := ensureAccountsExist(ctx, tx, txn.Accounts()); err != nil {
		return domain.Transaction{}, err
	}

	deltas, err := balanceDeltas(txn)
	if err != nil {
		return domain.Transaction{}, err
	}

	var last int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(logical_time), 0) FROM ledger_transactions`).Scan(&last); err != nil {
		return domain.Transaction{}, fmt.Errorf("read ledger clock: %w", err)
	}

	finalised := txn.Clone()
	finalised.Status = domain.Finalised(uint64(last + 1))

	var createdAccount sql.NullInt64
	if finalised.CreatedAccount != nil {
		createdAccount = sql.NullInt64{Int64: int64(*finalised.CreatedAccount), Valid: true}
	}

	const insertTxn = `
INSERT INTO ledger_transactions (logical_time, created_by, kind, created_account, memo)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, insertTxn, last+1, int64(finalised.CreatedBy), string(finalised.Kind), createdAccount, finalised.Memo); err != nil {
		return domain.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	const insertPosting = `
INSERT INTO ledger_postings (logical_time, position, account_id, token, amount)
VALUES ($1, $2, $3, $4, $5)`
	for i, p := range finalised.Postings {
		if _, err := tx.ExecContext(ctx, insertPosting, last+1, i, int64(p.Account), string(p.Amount.Token), p.Amount.Quantity); err != nil {
			return domain.Transaction{}, fmt.Errorf("insert posting %d: %w", i, err)
		}
	}

	const upsertBalance = `
INSERT INTO ledger_balances (account_id, token, amount)
VALUES ($1, $2, $3)
ON CONFLICT (account_id, token) DO UPDATE SET amount = ledger_balances.amount + EXCLUDED.amount`
	for key, delta := range deltas {
		if _, err := tx.ExecContext(ctx, upsertBalance, int64(key.account), string(key.token), delta); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == pqNumericOutOfRange {
				return domain.Transaction{}, fmt.Errorf("%w: account %s %s", domain.ErrBalanceOverflow, key.account, key.token)
			}
			return domain.Transaction{}, fmt.Errorf("update balance: %w", err)
		}
	}

	return finalised, nil
}

func ensureAccountsExist(ctx context.Context, tx *sql.Tx, accounts []domain.Account) error {
	ids := make([]int64, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, int64(account))
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM ledger_accounts WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("check accounts: %w", err)
	}
	defer rows.Close()

	known := make(map[domain.Account]struct{}, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan account: %w", err)
		}
		known[domain.Account(id)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate accounts: %w", err)
	}

	for _, account := range accounts {
		if _, ok := known[account]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrUnknownAccount, account)
		}
	}
	return nil
}

type balanceKey struct {
	account domain.Account
	token   domain.Token
}

// balanceDeltas nets the postings per (account, token). A net delta outside
// int64 can never be applied to a BIGINT balance.
func balanceDeltas(txn domain.Transaction) (map[balanceKey]int64, error) {
	sums := make(map[balanceKey]decimal.Decimal, len(txn.Postings))
	for _, p := range txn.Postings {
		key := balanceKey{account: p.Account, token: p.Amount.Token}
		sums[key] = sums[key].Add(decimal.NewFromInt(p.Amount.Quantity))
	}

	out := make(map[balanceKey]int64, len(sums))
	for key, sum := range sums {
		if sum.GreaterThan(maxBalance) || sum.LessThan(minBalance) {
			return nil, fmt.Errorf("%w: account %s %s", domain.ErrBalanceOverflow, key.account, key.token)
		}
		out[key] = sum.IntPart()
	}
	return out, nil
}
