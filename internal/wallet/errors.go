package wallet

import "errors"

var (
	// ErrInvalidAmount rejects zero, negative and sub-cent amounts before any side effect.
	ErrInvalidAmount = errors.New("amount must be greater than 0 with at most two decimal places")
	// ErrNotFound is returned when no wallet matches the lookup.
	ErrNotFound = errors.New("wallet not found")
	// ErrWalletExists guards the one-wallet-per-parent invariant.
	ErrWalletExists = errors.New("wallet already exists for owner")
)

// ErrNotOwner is returned when the acting parent does not own the wallet.
var ErrNotOwner = errors.New("wallet belongs to another parent")
