package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoollunch/lunchwallet/internal/ledger"
	"github.com/schoollunch/lunchwallet/internal/logging"
)

const defaultCurrency = "EUR"

// HistoryCache keeps the latest-transactions view of a wallet. Implementations
// must tolerate being bypassed: a miss or an error falls back to the ledger.
// SetHistory must drop entries loaded at a version that an InvalidateHistory
// has since superseded.
type HistoryCache interface {
	GetHistory(ctx context.Context, walletID string) ([]ledger.Entry, bool, error)
	HistoryVersion(ctx context.Context, walletID string) (int64, error)
	SetHistory(ctx context.Context, walletID string, version int64, entries []ledger.Entry) error
	InvalidateHistory(ctx context.Context, walletID string) error
}

// Recorder receives one observation per wallet operation outcome.
type Recorder interface {
	WalletOperation(operation, outcome string)
}

// Service is the sole mutator of wallet balances. Every successful or
// business-failed mutation appends exactly one ledger entry.
type Service struct {
	repo     Repository
	ledger   ledger.Store
	cache    HistoryCache
	metrics  Recorder
	currency string
	logger   *slog.Logger
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithCurrency sets the currency assigned to new wallets.
func WithCurrency(code string) Option {
	return func(s *Service) {
		if code != "" {
			s.currency = code
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.Component(logger, "wallet") }
}

// WithHistoryCache enables caching of GetTransactionsByWalletID results.
func WithHistoryCache(cache HistoryCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithMetrics records operation outcomes.
func WithMetrics(r Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a wallet service instance. The ledger store is used for
// reads; writes go through the repository's locked unit of work.
func NewService(repo Repository, store ledger.Store, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		ledger:   store,
		currency: defaultCurrency,
		logger:   logging.Discard(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateWallet provisions an empty wallet for the parent.
func (s *Service) CreateWallet(ctx context.Context, ownerID string) (Wallet, error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return Wallet{}, fmt.Errorf("invalid owner id: %w", err)
	}

	now := s.now()
	wallet := Wallet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Balance:   decimal.NewNullDecimal(decimal.Zero),
		Currency:  s.currency,
		CreatedOn: now,
		UpdatedOn: now,
	}
	if err := s.repo.Create(ctx, wallet); err != nil {
		return Wallet{}, err
	}

	s.logger.Info("wallet created", slog.String("wallet_id", wallet.ID), slog.String("owner_id", ownerID))
	return wallet, nil
}

// Get retrieves a wallet by id.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.repo.Get(ctx, id)
}

// GetWalletByParentID returns the parent's wallet and whether one exists.
func (s *Service) GetWalletByParentID(ctx context.Context, parentID string) (Wallet, bool, error) {
	w, err := s.repo.GetByOwner(ctx, parentID)
	if errors.Is(err, ErrNotFound) {
		return Wallet{}, false, nil
	}
	if err != nil {
		return Wallet{}, false, err
	}
	return w, true, nil
}

// GetOrCreateWallet returns the parent's wallet, creating it on first access.
// A concurrent creation for the same parent resolves to the stored wallet.
func (s *Service) GetOrCreateWallet(ctx context.Context, parentID string) (Wallet, error) {
	w, ok, err := s.GetWalletByParentID(ctx, parentID)
	if err != nil {
		return Wallet{}, err
	}
	if ok {
		return w, nil
	}
	w, err = s.CreateWallet(ctx, parentID)
	if errors.Is(err, ErrWalletExists) {
		return s.repo.GetByOwner(ctx, parentID)
	}
	return w, err
}

// Deposit credits the wallet and records a SUCCESSFUL DEPOSIT entry.
func (s *Service) Deposit(ctx context.Context, walletID string, amount decimal.Decimal, description string) (ledger.Entry, error) {
	if !validAmount(amount) {
		s.record("deposit", "invalid_amount")
		return ledger.Entry{}, ErrInvalidAmount
	}

	var entry ledger.Entry
	err := s.repo.WithLock(ctx, walletID, func(ctx context.Context, w Wallet, tx Tx) error {
		now := s.now()
		newBalance := w.CurrentBalance().Add(amount)
		entry = s.newEntry(w, amount, newBalance, ledger.TypeDeposit, ledger.StatusSuccessful, description, nil, now)
		if err := entry.Validate(); err != nil {
			return err
		}

		w.Balance = decimal.NewNullDecimal(newBalance)
		w.UpdatedOn = now
		if err := tx.SaveWallet(ctx, w); err != nil {
			return err
		}
		return tx.Ledger().Append(ctx, entry)
	})
	if err != nil {
		s.record("deposit", "error")
		return ledger.Entry{}, err
	}

	s.invalidate(ctx, walletID)
	s.record("deposit", "successful")
	s.logger.Info("deposit applied",
		slog.String("wallet_id", walletID),
		slog.String("amount", amount.String()),
		slog.String("balance", entry.BalanceLeft.String()),
	)
	return entry, nil
}

// Payment debits the wallet. When the balance does not cover the amount the
// wallet is left untouched and a FAILED PAYMENT entry is recorded and returned
// with a nil error; callers branch on entry.Status.
func (s *Service) Payment(ctx context.Context, walletID string, amount decimal.Decimal, description string) (ledger.Entry, error) {
	if !validAmount(amount) {
		s.record("payment", "invalid_amount")
		return ledger.Entry{}, ErrInvalidAmount
	}

	var entry ledger.Entry
	err := s.repo.WithLock(ctx, walletID, func(ctx context.Context, w Wallet, tx Tx) error {
		now := s.now()
		current := w.CurrentBalance()

		if current.LessThan(amount) {
			reason := ledger.ReasonInsufficientBalance
			entry = s.newEntry(w, amount, current, ledger.TypePayment, ledger.StatusFailed, description, &reason, now)
			return tx.Ledger().Append(ctx, entry)
		}

		newBalance := current.Sub(amount)
		entry = s.newEntry(w, amount, newBalance, ledger.TypePayment, ledger.StatusSuccessful, description, nil, now)
		if err := entry.Validate(); err != nil {
			return err
		}
		w.Balance = decimal.NewNullDecimal(newBalance)
		w.UpdatedOn = now
		if err := tx.SaveWallet(ctx, w); err != nil {
			return err
		}
		return tx.Ledger().Append(ctx, entry)
	})
	if err != nil {
		s.record("payment", "error")
		return ledger.Entry{}, err
	}

	s.invalidate(ctx, walletID)
	if !entry.Successful() {
		s.record("payment", "rejected")
		s.logger.Warn("payment rejected: insufficient funds",
			slog.String("wallet_id", walletID),
			slog.String("amount", amount.String()),
			slog.String("balance", entry.BalanceLeft.String()),
		)
		return entry, nil
	}

	s.record("payment", "successful")
	s.logger.Info("payment applied",
		slog.String("wallet_id", walletID),
		slog.String("amount", amount.String()),
		slog.String("balance", entry.BalanceLeft.String()),
	)
	return entry, nil
}

// DeleteWallet removes the wallet's ledger entries and then the wallet itself.
func (s *Service) DeleteWallet(ctx context.Context, walletID string) error {
	var removed int64
	err := s.repo.WithLock(ctx, walletID, func(ctx context.Context, w Wallet, tx Tx) error {
		n, err := tx.Ledger().DeleteByWallet(ctx, w.ID)
		if err != nil {
			return err
		}
		removed = n
		return tx.DeleteWallet(ctx, w.ID)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, walletID)
	s.logger.Info("wallet deleted", slog.String("wallet_id", walletID), slog.Int64("entries_removed", removed))
	return nil
}

// GetTransactionsByWalletID returns the most recent ledger entries, newest first.
func (s *Service) GetTransactionsByWalletID(ctx context.Context, walletID string) ([]ledger.Entry, error) {
	fill := false
	var version int64
	if s.cache != nil {
		if cached, ok, err := s.cache.GetHistory(ctx, walletID); err == nil && ok {
			return cached, nil
		} else if err != nil {
			s.logger.Warn("history cache read failed", slog.String("wallet_id", walletID), slog.Any("error", err))
		}
		v, err := s.cache.HistoryVersion(ctx, walletID)
		if err != nil {
			s.logger.Warn("history cache version read failed", slog.String("wallet_id", walletID), slog.Any("error", err))
		} else {
			version, fill = v, true
		}
	}

	entries, err := s.ledger.Latest(ctx, walletID, ledger.HistoryLimit)
	if err != nil {
		return nil, err
	}

	if fill {
		if err := s.cache.SetHistory(ctx, walletID, version, entries); err != nil {
			s.logger.Warn("history cache write failed", slog.String("wallet_id", walletID), slog.Any("error", err))
		}
	}
	return entries, nil
}

// validAmount accepts positive amounts in whole cents, the precision the
// ledger columns store.
func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(2))
}

func (s *Service) newEntry(w Wallet, amount, balanceLeft decimal.Decimal, kind ledger.Type, status ledger.Status,
	description string, reason *string, at time.Time) ledger.Entry {
	return ledger.Entry{
		ID:            uuid.NewString(),
		WalletID:      w.ID,
		Amount:        amount,
		BalanceLeft:   balanceLeft,
		Currency:      w.Currency,
		Type:          kind,
		Status:        status,
		Description:   description,
		FailureReason: reason,
		CreatedOn:     at,
	}
}

func (s *Service) invalidate(ctx context.Context, walletID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateHistory(ctx, walletID); err != nil {
		s.logger.Warn("history cache invalidation failed", slog.String("wallet_id", walletID), slog.Any("error", err))
	}
}

func (s *Service) record(operation, outcome string) {
	if s.metrics != nil {
		s.metrics.WalletOperation(operation, outcome)
	}
}
