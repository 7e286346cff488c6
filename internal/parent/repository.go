package parent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists parents.
type Repository interface {
	Create(ctx context.Context, p Parent) error
	FindByID(ctx context.Context, id string) (Parent, error)
	FindByUsername(ctx context.Context, username string) (Parent, error)
	Update(ctx context.Context, p Parent) error
	IncrementTokenVersion(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed parent repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const parentColumns = `id, username, email, first_name, last_name, role, password_hash, active, token_version, created_on, updated_on`

// Create inserts a new parent.
func (r *PostgresRepository) Create(ctx context.Context, p Parent) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO parents (`+parentColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, p.Username, p.Email, p.FirstName, p.LastName, p.Role, p.PasswordHash, p.Active, p.TokenVersion,
		p.CreatedOn.UTC(), p.UpdatedOn.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUsernameTaken
		}
		return fmt.Errorf("insert parent: %w", err)
	}
	return nil
}

// FindByID fetches a parent by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Parent, error) {
	parentID, err := uuid.Parse(id)
	if err != nil {
		return Parent{}, ErrNotFound
	}
	return scanParent(r.db.QueryRow(ctx, `SELECT `+parentColumns+` FROM parents WHERE id = $1`, parentID))
}

// FindByUsername fetches a parent by username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (Parent, error) {
	return scanParent(r.db.QueryRow(ctx, `SELECT `+parentColumns+` FROM parents WHERE username = $1`, username))
}

// Update stores profile fields.
func (r *PostgresRepository) Update(ctx context.Context, p Parent) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE parents
        SET email = $1, first_name = $2, last_name = $3, password_hash = $4, role = $5, active = $6, updated_on = $7
        WHERE id = $8`,
		p.Email, p.FirstName, p.LastName, p.PasswordHash, p.Role, p.Active, p.UpdatedOn.UTC(), id)
	if err != nil {
		return fmt.Errorf("update parent: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementTokenVersion invalidates outstanding tokens and returns the new version.
func (r *PostgresRepository) IncrementTokenVersion(ctx context.Context, id string) (int, error) {
	parentID, err := uuid.Parse(id)
	if err != nil {
		return 0, ErrNotFound
	}
	var version int
	err = r.db.QueryRow(ctx, `UPDATE parents SET token_version = token_version + 1 WHERE id = $1 RETURNING token_version`, parentID).
		Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("bump token version: %w", err)
	}
	return version, nil
}

// Delete removes the parent. Children go with it through the foreign key.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	parentID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM parents WHERE id = $1`, parentID)
	if err != nil {
		return fmt.Errorf("delete parent: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanParent(row pgx.Row) (Parent, error) {
	var (
		p         Parent
		id        uuid.UUID
		createdOn time.Time
		updatedOn time.Time
	)
	if err := row.Scan(&id, &p.Username, &p.Email, &p.FirstName, &p.LastName, &p.Role, &p.PasswordHash,
		&p.Active, &p.TokenVersion, &createdOn, &updatedOn); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Parent{}, ErrNotFound
		}
		return Parent{}, fmt.Errorf("scan parent: %w", err)
	}
	p.ID = id.String()
	p.CreatedOn = createdOn.UTC()
	p.UpdatedOn = updatedOn.UTC()
	return p, nil
}
