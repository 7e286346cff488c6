package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/schoollunch/lunchwallet/internal/ledger"
)

// Tx is the unit of work handed to a locked wallet mutation. Writes made
// through it commit together.
type Tx interface {
	SaveWallet(ctx context.Context, wallet Wallet) error
	DeleteWallet(ctx context.Context, id string) error
	Ledger() ledger.Store
}

// LockedFunc runs while the wallet row is held exclusively.
type LockedFunc func(ctx context.Context, wallet Wallet, tx Tx) error

// Repository persists wallet accounts.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	Get(ctx context.Context, id string) (Wallet, error)
	GetByOwner(ctx context.Context, ownerID string) (Wallet, error)
	// WithLock loads the wallet under an exclusive per-wallet lock and runs fn.
	// Returns ErrNotFound when the wallet does not exist.
	WithLock(ctx context.Context, id string, fn LockedFunc) error
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const walletColumns = `id, owner_id, balance::text, currency, created_on, updated_on`

// Create inserts a wallet record. A second wallet for the same owner fails with ErrWalletExists.
func (r *PostgresRepository) Create(ctx context.Context, wallet Wallet) error {
	walletID, err := uuid.Parse(wallet.ID)
	if err != nil {
		return err
	}
	ownerID, err := uuid.Parse(wallet.OwnerID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, balance, currency, created_on, updated_on)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		walletID, ownerID, wallet.Balance, wallet.Currency, wallet.CreatedOn.UTC(), wallet.UpdatedOn.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrWalletExists
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// Get fetches a wallet by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	return scanWallet(r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, walletID))
}

// GetByOwner fetches the wallet owned by the given parent.
func (r *PostgresRepository) GetByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	return scanWallet(r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE owner_id = $1`, owner))
}

// WithLock runs fn inside a database transaction holding the wallet row FOR UPDATE.
func (r *PostgresRepository) WithLock(ctx context.Context, id string, fn LockedFunc) error {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := scanWallet(tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, walletID))
	if err != nil {
		return err
	}

	if err := fn(ctx, w, &postgresTx{tx: tx, ledger: ledger.NewPostgresStore(tx)}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type postgresTx struct {
	tx     pgx.Tx
	ledger *ledger.PostgresStore
}

func (t *postgresTx) SaveWallet(ctx context.Context, wallet Wallet) error {
	walletID, err := uuid.Parse(wallet.ID)
	if err != nil {
		return err
	}
	cmd, err := t.tx.Exec(ctx, `UPDATE wallets SET balance = $1, updated_on = $2 WHERE id = $3`,
		wallet.Balance, wallet.UpdatedOn.UTC(), walletID)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *postgresTx) DeleteWallet(ctx context.Context, id string) error {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM wallets WHERE id = $1`, walletID); err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	return nil
}

func (t *postgresTx) Ledger() ledger.Store {
	return t.ledger
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w         Wallet
		id, owner uuid.UUID
		balance   *string
		createdOn time.Time
		updatedOn time.Time
	)
	if err := row.Scan(&id, &owner, &balance, &w.Currency, &createdOn, &updatedOn); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, fmt.Errorf("scan wallet: %w", err)
	}
	if balance != nil {
		d, err := decimal.NewFromString(*balance)
		if err != nil {
			return Wallet{}, fmt.Errorf("parse balance: %w", err)
		}
		w.Balance = decimal.NewNullDecimal(d)
	}
	w.ID = id.String()
	w.OwnerID = owner.String()
	w.CreatedOn = createdOn.UTC()
	w.UpdatedOn = updatedOn.UTC()
	return w, nil
}
