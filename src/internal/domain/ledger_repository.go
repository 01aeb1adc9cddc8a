package domain

import "context"

// LedgerRepository is a queryable, append-only log of balanced transactions.
//
// Transact and CreateAccount are serialised against each other. Readers see
// a consistent prefix of the log: a transaction is either fully visible or
// not visible at all.
type LedgerRepository interface {
	// Transact validates txn, stamps it Finalised with the next logical time
	// and appends it. It returns the finalised copy.
	Transact(ctx context.Context, txn Transaction) (Transaction, error)
	// CreateAccount opens a new account and records the AccountCreation
	// transaction attributed to creator.
	CreateAccount(ctx context.Context, typ AccountType, creator Account) (Account, error)

	// AccountBalance sums every finalised posting for (account, token).
	// An account with no postings has a zero balance.
	AccountBalance(ctx context.Context, account Account, token Token) (TokenAmount, error)
	AccountType(ctx context.Context, account Account) (AccountType, error)
	Transactions(ctx context.Context) ([]Transaction, error)
	Time(ctx context.Context) (uint64, error)
}
