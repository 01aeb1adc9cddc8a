package domain

// Token is a kind of currency held in the ledger.
type Token string

const (
	TokenSiteCurrency Token = "SITE_CURRENCY"
)

func (t Token) Valid() bool {
	switch t {
	case TokenSiteCurrency:
		return true
	default:
		return false
	}
}

// TokenAmount is a signed quantity of a token. In a posting it is a delta, in
// a balance query it is a running total.
type TokenAmount struct {
	Token    Token
	Quantity int64
}

func NewTokenAmount(token Token, quantity int64) TokenAmount {
	return TokenAmount{Token: token, Quantity: quantity}
}
