package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so the store can join a
// caller's transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists ledger entries in the transactions table.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts an entry. Entries are never updated afterwards.
func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	id, err := uuid.Parse(entry.ID)
	if err != nil {
		return fmt.Errorf("%w: entry id: %v", ErrInvalidEntry, err)
	}
	walletID, err := uuid.Parse(entry.WalletID)
	if err != nil {
		return fmt.Errorf("%w: wallet id: %v", ErrInvalidEntry, err)
	}
	_, err = s.db.Exec(ctx, `INSERT INTO transactions
        (id, wallet_id, amount, balance_left, currency, type, status, description, failure_reason, created_on)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, walletID, entry.Amount, entry.BalanceLeft, entry.Currency, string(entry.Type), string(entry.Status),
		entry.Description, entry.FailureReason, entry.CreatedOn.UTC())
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Latest returns the newest entries for a wallet.
func (s *PostgresStore) Latest(ctx context.Context, walletID string, limit int) ([]Entry, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return []Entry{}, nil
	}
	if limit <= 0 {
		limit = HistoryLimit
	}
	rows, err := s.db.Query(ctx, `SELECT id, wallet_id, amount::text, balance_left::text, currency, type, status,
            description, failure_reason, created_on
        FROM transactions
        WHERE wallet_id = $1
        ORDER BY created_on DESC, seq DESC
        LIMIT $2`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return entries, nil
}

// DeleteByWallet removes every entry of the wallet and reports how many were dropped.
func (s *PostgresStore) DeleteByWallet(ctx context.Context, walletID string) (int64, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return 0, nil
	}
	cmd, err := s.db.Exec(ctx, `DELETE FROM transactions WHERE wallet_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}
	return cmd.RowsAffected(), nil
}

// Count returns the number of stored entries for the wallet.
func (s *PostgresStore) Count(ctx context.Context, walletID string) (int, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return 0, nil
	}
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE wallet_id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		id, walletID        uuid.UUID
		amount, balanceLeft string
		kind, status        string
		createdOn           time.Time
		entry               Entry
	)
	if err := row.Scan(&id, &walletID, &amount, &balanceLeft, &entry.Currency, &kind, &status,
		&entry.Description, &entry.FailureReason, &createdOn); err != nil {
		return Entry{}, fmt.Errorf("scan transaction: %w", err)
	}
	var err error
	if entry.Amount, err = decimal.NewFromString(amount); err != nil {
		return Entry{}, fmt.Errorf("parse amount: %w", err)
	}
	if entry.BalanceLeft, err = decimal.NewFromString(balanceLeft); err != nil {
		return Entry{}, fmt.Errorf("parse balance_left: %w", err)
	}
	entry.ID = id.String()
	entry.WalletID = walletID.String()
	entry.Type = Type(kind)
	entry.Status = Status(status)
	entry.CreatedOn = createdOn.UTC()
	return entry, nil
}
