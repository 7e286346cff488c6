package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the prepaid balance account owned by one parent.
type Wallet struct {
	ID        string
	OwnerID   string
	Balance   decimal.NullDecimal
	Currency  string
	CreatedOn time.Time
	UpdatedOn time.Time
}

// CurrentBalance returns the stored balance, reading a null balance as zero.
func (w Wallet) CurrentBalance() decimal.Decimal {
	if !w.Balance.Valid {
		return decimal.Zero
	}
	return w.Balance.Decimal
}
