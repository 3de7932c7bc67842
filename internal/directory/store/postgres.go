package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledgerbot/internal/directory/models"
	"ledgerbot/pkg/platform/sentinel"
	"ledgerbot/pkg/requestcontext"
)

const uniqueViolation = "23505"

// PostgresStore persists requesters in the users table. Per-key atomicity
// comes from single-statement writes against the primary key, and from a
// row lock for status changes.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*models.Requester, error) {
	const query = `SELECT user_id, name, phone, status, reg_date FROM users WHERE user_id = $1`
	r, err := scanRequester(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("requester %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get requester: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) Status(ctx context.Context, id int64) (models.Status, error) {
	var raw string
	err := s.pool.QueryRow(ctx, `SELECT status FROM users WHERE user_id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.StatusUnregistered, nil
		}
		return "", fmt.Errorf("get requester status: %w", err)
	}
	return models.ParseStatus(raw), nil
}

// UpsertPending inserts a pending row unless one exists. An existing row is
// left untouched whatever its status.
func (s *PostgresStore) UpsertPending(ctx context.Context, id int64, name, contact string) (models.UpsertResult, error) {
	const query = `
		INSERT INTO users (user_id, name, phone, status, reg_date)
		VALUES ($1, $2, $3, 'pending', $4)
		ON CONFLICT (user_id) DO NOTHING`
	tag, err := s.pool.Exec(ctx, query, id, name, contact, requestcontext.Now(ctx))
	if err != nil {
		return 0, fmt.Errorf("upsert pending requester: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.AlreadyPresent, nil
	}
	return models.Created, nil
}

// SetStatus updates the row and returns the status it replaced. The CTE
// reads the old value under the same row lock as the update.
func (s *PostgresStore) SetStatus(ctx context.Context, id int64, status models.Status) (models.Status, error) {
	var previous models.Status
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var stored string
		err := tx.QueryRow(ctx, `SELECT status FROM users WHERE user_id = $1 FOR UPDATE`, id).Scan(&stored)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("requester %d: %w", id, sentinel.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("read requester status: %w", err)
		}
		previous = models.ParseStatus(stored)
		if !previous.CanTransitionTo(status) {
			return fmt.Errorf("requester %d %s to %s: %w", id, previous, status, sentinel.ErrInvalidState)
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET status = $2 WHERE user_id = $1`, id, string(status)); err != nil {
			return fmt.Errorf("set requester status: %w", err)
		}
		return nil
	})
	return previous, err
}

// ListByStatus matches legacy spellings too, since they parse to the same
// status.
func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status) ([]models.Requester, error) {
	stored := []string{string(status)}
	if status == models.StatusDenied {
		stored = append(stored, "rejected", "blocked")
	}
	const query = `
		SELECT user_id, name, phone, status, reg_date FROM users
		WHERE status = ANY($1)
		ORDER BY reg_date DESC, user_id DESC`
	return s.list(ctx, query, stored)
}

func (s *PostgresStore) CreateApproved(ctx context.Context, r models.Requester) error {
	regDate := r.RegisteredAt
	if regDate.IsZero() {
		regDate = requestcontext.Now(ctx)
	}
	const query = `
		INSERT INTO users (user_id, name, phone, status, reg_date)
		VALUES ($1, $2, $3, 'approved', $4)`
	_, err := s.pool.Exec(ctx, query, r.ID, r.Name, r.Contact, regDate)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("requester %d: %w", r.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create approved requester: %w", err)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count requesters: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]models.Requester, error) {
	const query = `
		SELECT user_id, name, phone, status, reg_date FROM users
		ORDER BY reg_date DESC, user_id DESC
		LIMIT $1`
	return s.list(ctx, query, limit)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]models.Requester, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requesters: %w", err)
	}
	defer rows.Close()

	out := make([]models.Requester, 0)
	for rows.Next() {
		r, err := scanRequester(rows)
		if err != nil {
			return nil, fmt.Errorf("scan requester: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list requesters: %w", err)
	}
	return out, nil
}

func scanRequester(row pgx.Row) (models.Requester, error) {
	var (
		r      models.Requester
		status string
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Contact, &status, &r.RegisteredAt); err != nil {
		return models.Requester{}, err
	}
	r.Status = models.ParseStatus(status)
	return r, nil
}
