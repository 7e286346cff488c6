package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidEntry rejects entries that are missing identifiers or carry a
	// non-positive amount.
	ErrInvalidEntry = errors.New("invalid ledger entry")
)

// Type classifies the direction of a balance change.
type Type string

const (
	TypeDeposit Type = "DEPOSIT"
	TypePayment Type = "PAYMENT"
)

// Status records whether the attempted balance change was applied.
type Status string

const (
	StatusSuccessful Status = "SUCCESSFUL"
	StatusFailed     Status = "FAILED"
)

const (
	// HistoryLimit is the number of entries returned by wallet history views.
	HistoryLimit = 5
	// ReasonInsufficientBalance is stored on FAILED payments.
	ReasonInsufficientBalance = "Not enough balance in wallet."
)

// Entry is one immutable record of an attempted balance change.
type Entry struct {
	ID            string          `json:"id"`
	WalletID      string          `json:"wallet_id"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceLeft   decimal.Decimal `json:"balance_left"`
	Currency      string          `json:"currency"`
	Type          Type            `json:"type"`
	Status        Status          `json:"status"`
	Description   string          `json:"description"`
	FailureReason *string         `json:"failure_reason,omitempty"`
	CreatedOn     time.Time       `json:"created_on"`
}

// Successful reports whether the entry changed the wallet balance.
func (e Entry) Successful() bool {
	return e.Status == StatusSuccessful
}

// Validate checks the structural invariants every stored entry must hold.
func (e Entry) Validate() error {
	switch {
	case e.ID == "" || e.WalletID == "":
		return fmt.Errorf("%w: missing identifier", ErrInvalidEntry)
	case !e.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", ErrInvalidEntry)
	case e.Type != TypeDeposit && e.Type != TypePayment:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEntry, e.Type)
	case e.Status != StatusSuccessful && e.Status != StatusFailed:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, e.Status)
	}
	return nil
}

// Store defines the append-only transaction log implemented by ledger backends.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	// Latest returns at most limit entries for the wallet, newest first.
	Latest(ctx context.Context, walletID string, limit int) ([]Entry, error)
	DeleteByWallet(ctx context.Context, walletID string) (int64, error)
	Count(ctx context.Context, walletID string) (int, error)
}
