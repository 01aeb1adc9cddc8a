package domain

import "strconv"

// Account identifies a ledger account. It carries no type information; the
// type recorded at creation is kept in the ledger's account registry.
type Account uint64

// SystemAccount seeds the log and creates the first accounts.
const SystemAccount Account = 0

func (a Account) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

type AccountType string

const (
	AccountTypeSystem      AccountType = "SYSTEM"
	AccountTypeUser        AccountType = "USER"
	AccountTypeContract    AccountType = "CONTRACT"
	AccountTypeBonusSource AccountType = "BONUS_SOURCE"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeSystem, AccountTypeUser, AccountTypeContract, AccountTypeBonusSource:
		return true
	default:
		return false
	}
}
