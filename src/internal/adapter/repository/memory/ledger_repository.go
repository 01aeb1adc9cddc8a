package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/api-sage/yosoku-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	maxBalance = decimal.NewFromInt(math.MaxInt64)
	minBalance = decimal.NewFromInt(math.MinInt64)
)

var _ domain.LedgerRepository = (*LedgerRepository)(nil)

type balanceKey struct {
	account domain.Account
	token   domain.Token
}

// LedgerRepository keeps the whole log in memory. Every write holds the
// write lock for validate, stamp, append and clock advance, so readers only
// ever observe whole transactions.
type LedgerRepository struct {
	mu       sync.RWMutex
	txns     []domain.Transaction
	time     uint64
	accounts map[domain.Account]domain.AccountType
	nextID   domain.Account
	// balances is nil for the scanning ledger.
	balances map[balanceKey]int64
}

// NewLedgerRepository returns the reference ledger. Balances are computed by
// scanning the full log on every query.
func NewLedgerRepository() *LedgerRepository {
	systemAccount := domain.SystemAccount
	return &LedgerRepository{
		txns: []domain.Transaction{
			{
				CreatedBy:      domain.SystemAccount,
				Status:         domain.Finalised(0),
				Kind:           domain.TransactionKindAccountCreation,
				CreatedAccount: &systemAccount,
			},
		},
		accounts: map[domain.Account]domain.AccountType{
			domain.SystemAccount: domain.AccountTypeSystem,
		},
		nextID: domain.SystemAccount + 1,
	}
}

// NewIndexedLedgerRepository returns a ledger that also keeps a running
// balance per (account, token), updated under the same lock as the append.
func NewIndexedLedgerRepository() *LedgerRepository {
	r := NewLedgerRepository()
	r.balances = make(map[balanceKey]int64)
	return r
}

func (r *LedgerRepository) Transact(_ context.Context, txn domain.Transaction) (domain.Transaction, error) {
	if err := txn.ValidateTransfer(); err != nil {
		return domain.Transaction{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.transactLocked(txn)
}

func (r *LedgerRepository) CreateAccount(_ context.Context, typ domain.AccountType, creator domain.Account) (domain.Account, error) {
	if !typ.Valid() || typ == domain.AccountTypeSystem {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidAccountType, typ)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	account := r.nextID
	txn := domain.Transaction{
		CreatedBy:      creator,
		Status:         domain.Proposed(),
		Kind:           domain.TransactionKindAccountCreation,
		CreatedAccount: &account,
	}
	if _, err := r.transactLocked(txn); err != nil {
		return 0, err
	}

	r.nextID++
	r.accounts[account] = typ

	return account, nil
}

func (r *LedgerRepository) AccountBalance(_ context.Context, account domain.Account, token domain.Token) (domain.TokenAmount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return domain.NewTokenAmount(token, r.balanceLocked(balanceKey{account: account, token: token})), nil
}

func (r *LedgerRepository) AccountType(_ context.Context, account domain.Account) (domain.AccountType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typ, ok := r.accounts[account]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownAccount, account)
	}
	return typ, nil
}

func (r *LedgerRepository) Transactions(_ context.Context) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(r.txns))
	for _, txn := range r.txns {
		out = append(out, txn.Clone())
	}
	return out, nil
}

// Time returns the logical time of the last finalised transaction.
func (r *LedgerRepository) Time(_ context.Context) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.time, nil
}

func (r *LedgerRepository) transactLocked(txn domain.Transaction) (domain.Transaction, error) {
	for _, account := range txn.Accounts() {
		if _, ok := r.accounts[account]; !ok {
			return domain.Transaction{}, fmt.Errorf("%w: %s", domain.ErrUnknownAccount, account)
		}
	}

	next, err := r.nextBalancesLocked(txn)
	if err != nil {
		return domain.Transaction{}, err
	}

	r.time++
	finalised := txn.Clone()
	finalised.Status = domain.Finalised(r.time)
	r.txns = append(r.txns, finalised)

	if r.balances != nil {
		for key, balance := range next {
			r.balances[key] = balance
		}
	}

	return finalised.Clone(), nil
}

// nextBalancesLocked computes the post-transaction balance of every
// (account, token) the transaction touches, rejecting anything outside int64.
func (r *LedgerRepository) nextBalancesLocked(txn domain.Transaction) (map[balanceKey]int64, error) {
	deltas := make(map[balanceKey]decimal.Decimal, len(txn.Postings))
	for _, p := range txn.Postings {
		key := balanceKey{account: p.Account, token: p.Amount.Token}
		deltas[key] = deltas[key].Add(decimal.NewFromInt(p.Amount.Quantity))
	}

	next := make(map[balanceKey]int64, len(deltas))
	for key, delta := range deltas {
		total := decimal.NewFromInt(r.balanceLocked(key)).Add(delta)
		if total.GreaterThan(maxBalance) || total.LessThan(minBalance) {
			return nil, fmt.Errorf("%w: account %s %s", domain.ErrBalanceOverflow, key.account, key.token)
		}
		next[key] = total.IntPart()
	}
	return next, nil
}

func (r *LedgerRepository) balanceLocked(key balanceKey) int64 {
	if r.balances != nil {
		return r.balances[key]
	}

	// Reference strategy: fold over the whole log.
	var sum int64
	for _, txn := range r.txns {
		for _, p := range txn.Postings {
			if p.Account == key.account && p.Amount.Token == key.token {
				sum += p.Amount.Quantity
			}
		}
	}
	return sum
}
