package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	TransactionKindAccountCreation TransactionKind = "ACCOUNT_CREATION"
	TransactionKindTransfer        TransactionKind = "TRANSFER"
)

type TransactionState string

const (
	TransactionStateProposed  TransactionState = "PROPOSED"
	TransactionStateFinalised TransactionState = "FINALISED"
)

// TransactionStatus is Proposed until the ledger accepts the transaction, then
// Finalised at the logical time assigned on acceptance. Time is meaningless
// while Proposed.
type TransactionStatus struct {
	State TransactionState
	Time  uint64
}

func Proposed() TransactionStatus {
	return TransactionStatus{State: TransactionStateProposed}
}

func Finalised(time uint64) TransactionStatus {
	return TransactionStatus{State: TransactionStateFinalised, Time: time}
}

func (s TransactionStatus) IsFinalised() bool {
	return s.State == TransactionStateFinalised
}

// Posting is one leg of a transaction. A positive amount credits the account,
// a negative amount debits it.
type Posting struct {
	Account Account
	Amount  TokenAmount
}

func NewPosting(account Account, token Token, quantity int64) Posting {
	return Posting{Account: account, Amount: NewTokenAmount(token, quantity)}
}

// Transaction is a list of postings that must balance per token.
type Transaction struct {
	Postings  []Posting
	CreatedBy Account
	Status    TransactionStatus
	Kind      TransactionKind
	// CreatedAccount is the account opened by an AccountCreation transaction.
	CreatedAccount *Account
	Memo           string
}

// NewTransfer builds a proposed transfer transaction.
func NewTransfer(createdBy Account, memo string, postings ...Posting) Transaction {
	return Transaction{
		Postings:  postings,
		CreatedBy: createdBy,
		Status:    Proposed(),
		Kind:      TransactionKindTransfer,
		Memo:      memo,
	}
}

// Accounts returns every account the transaction references, creator first,
// without duplicates.
func (t Transaction) Accounts() []Account {
	seen := map[Account]struct{}{t.CreatedBy: {}}
	out := []Account{t.CreatedBy}
	for _, p := range t.Postings {
		if _, ok := seen[p.Account]; ok {
			continue
		}
		seen[p.Account] = struct{}{}
		out = append(out, p.Account)
	}
	return out
}

// CheckBalance enforces the double-entry law: for each token the signed sum of
// its postings is exactly zero.
func (t Transaction) CheckBalance() error {
	sums := make(map[Token]decimal.Decimal)
	order := make([]Token, 0, 1)
	for _, p := range t.Postings {
		sum, ok := sums[p.Amount.Token]
		if !ok {
			order = append(order, p.Amount.Token)
		}
		sums[p.Amount.Token] = sum.Add(decimal.NewFromInt(p.Amount.Quantity))
	}

	for _, token := range order {
		if sum := sums[token]; !sum.IsZero() {
			return fmt.Errorf("%w: %s postings sum to %s", ErrImbalancedTransaction, token, sum.String())
		}
	}

	return nil
}

// Validate checks everything that can be decided without ledger state.
func (t Transaction) Validate() error {
	if t.Status.State != TransactionStateProposed {
		return ErrTransactionNotProposed
	}
	switch t.Kind {
	case TransactionKindAccountCreation:
		if t.CreatedAccount == nil {
			return fmt.Errorf("%w: account creation without an account", ErrInvalidTransactionKind)
		}
	case TransactionKindTransfer:
		if t.CreatedAccount != nil {
			return fmt.Errorf("%w: transfer names created account %s", ErrInvalidTransactionKind, *t.CreatedAccount)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTransactionKind, t.Kind)
	}
	for i, p := range t.Postings {
		if !p.Amount.Token.Valid() {
			return fmt.Errorf("%w: posting %d has token %q", ErrInvalidToken, i, p.Amount.Token)
		}
	}
	return t.CheckBalance()
}

// ValidateTransfer is Validate restricted to transfers. Account creation
// records are only written by the ledger itself.
func (t Transaction) ValidateTransfer() error {
	if t.Kind != TransactionKindTransfer {
		return fmt.Errorf("%w: %q cannot be submitted directly", ErrInvalidTransactionKind, t.Kind)
	}
	return t.Validate()
}

// Clone returns a copy that shares no memory with t.
func (t Transaction) Clone() Transaction {
	out := t
	if t.Postings != nil {
		out.Postings = make([]Posting, len(t.Postings))
		copy(out.Postings, t.Postings)
	}
	if t.CreatedAccount != nil {
		created := *t.CreatedAccount
		out.CreatedAccount = &created
	}
	return out
}
