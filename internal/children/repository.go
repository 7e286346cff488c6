package children

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists child records.
type Repository interface {
	Create(ctx context.Context, child Child) error
	Get(ctx context.Context, id string) (Child, error)
	ListByParent(ctx context.Context, parentID string) ([]Child, error)
	Update(ctx context.Context, child Child) error
	Delete(ctx context.Context, id string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed child repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const childColumns = `id, parent_id, first_name, last_name, school, grade, gender, created_at`

// Create inserts a child.
func (r *PostgresRepository) Create(ctx context.Context, child Child) error {
	id, err := uuid.Parse(child.ID)
	if err != nil {
		return err
	}
	parentID, err := uuid.Parse(child.ParentID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO children (`+childColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, parentID, child.FirstName, child.LastName, child.School, child.Grade, child.Gender, child.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert child: %w", err)
	}
	return nil
}

// Get fetches a child by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Child, error) {
	childID, err := uuid.Parse(id)
	if err != nil {
		return Child{}, ErrNotFound
	}
	return scanChild(r.db.QueryRow(ctx, `SELECT `+childColumns+` FROM children WHERE id = $1`, childID))
}

// ListByParent returns the parent's children, oldest registration first.
func (r *PostgresRepository) ListByParent(ctx context.Context, parentID string) ([]Child, error) {
	owner, err := uuid.Parse(parentID)
	if err != nil {
		return []Child{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+childColumns+` FROM children WHERE parent_id = $1 ORDER BY created_at, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer rows.Close()

	out := []Child{}
	for rows.Next() {
		child, err := scanChild(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, rows.Err()
}

// Update stores school and grade changes.
func (r *PostgresRepository) Update(ctx context.Context, child Child) error {
	id, err := uuid.Parse(child.ID)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE children SET school = $1, grade = $2 WHERE id = $3`, child.School, child.Grade, id)
	if err != nil {
		return fmt.Errorf("update child: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a child.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	childID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM children WHERE id = $1`, childID)
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanChild(row pgx.Row) (Child, error) {
	var (
		child     Child
		id, owner uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &owner, &child.FirstName, &child.LastName, &child.School, &child.Grade, &child.Gender, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Child{}, ErrNotFound
		}
		return Child{}, fmt.Errorf("scan child: %w", err)
	}
	child.ID = id.String()
	child.ParentID = owner.String()
	child.CreatedAt = createdAt.UTC()
	return child, nil
}
