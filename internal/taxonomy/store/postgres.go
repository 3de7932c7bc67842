package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledgerbot/internal/taxonomy/models"
	"ledgerbot/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

var tables = map[models.Kind]string{
	models.KindCategory: "categories",
	models.KindPayType:  "pay_types",
}

// PostgresStore keeps categories and pay types in their own tables. Names are
// unique per table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func table(kind models.Kind) (string, error) {
	t, ok := tables[kind]
	if !ok {
		return "", fmt.Errorf("unknown taxonomy kind %q", kind)
	}
	return t, nil
}

func (s *PostgresStore) List(ctx context.Context, kind models.Kind) ([]models.Item, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM `+t+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t, err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[models.Item])
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", t, err)
	}
	return items, nil
}

func (s *PostgresStore) Get(ctx context.Context, kind models.Kind, id int64) (models.Item, error) {
	t, err := table(kind)
	if err != nil {
		return models.Item{}, err
	}
	var item models.Item
	err = s.pool.QueryRow(ctx, `SELECT id, name FROM `+t+` WHERE id = $1`, id).Scan(&item.ID, &item.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Item{}, fmt.Errorf("%s %d: %w", kind, id, sentinel.ErrNotFound)
		}
		return models.Item{}, fmt.Errorf("get %s: %w", kind, err)
	}
	return item, nil
}

func (s *PostgresStore) Add(ctx context.Context, kind models.Kind, name string) (models.Item, error) {
	t, err := table(kind)
	if err != nil {
		return models.Item{}, err
	}
	item := models.Item{Name: name}
	err = s.pool.QueryRow(ctx, `INSERT INTO `+t+` (name) VALUES ($1) RETURNING id`, name).Scan(&item.ID)
	if err != nil {
		return models.Item{}, mapWriteError(kind, name, err)
	}
	return item, nil
}

// Rename returns the item as it was before the rename.
func (s *PostgresStore) Rename(ctx context.Context, kind models.Kind, id int64, name string) (models.Item, error) {
	t, err := table(kind)
	if err != nil {
		return models.Item{}, err
	}
	query := `
		WITH prev AS (SELECT id, name FROM ` + t + ` WHERE id = $1 FOR UPDATE)
		UPDATE ` + t + ` SET name = $2 FROM prev WHERE ` + t + `.id = prev.id
		RETURNING prev.id, prev.name`
	var previous models.Item
	err = s.pool.QueryRow(ctx, query, id, name).Scan(&previous.ID, &previous.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Item{}, fmt.Errorf("%s %d: %w", kind, id, sentinel.ErrNotFound)
		}
		return models.Item{}, mapWriteError(kind, name, err)
	}
	return previous, nil
}

func (s *PostgresStore) Delete(ctx context.Context, kind models.Kind, id int64) (models.Item, error) {
	t, err := table(kind)
	if err != nil {
		return models.Item{}, err
	}
	var removed models.Item
	err = s.pool.QueryRow(ctx, `DELETE FROM `+t+` WHERE id = $1 RETURNING id, name`, id).Scan(&removed.ID, &removed.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Item{}, fmt.Errorf("%s %d: %w", kind, id, sentinel.ErrNotFound)
		}
		return models.Item{}, fmt.Errorf("delete %s: %w", kind, err)
	}
	return removed, nil
}

// SeedIfEmpty inserts names in one transaction when the table has no rows.
func (s *PostgresStore) SeedIfEmpty(ctx context.Context, kind models.Kind, names []string) (int, error) {
	t, err := table(kind)
	if err != nil {
		return 0, err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin seed %s: %w", t, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `LOCK TABLE `+t+` IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return 0, fmt.Errorf("lock %s: %w", t, err)
	}
	var n int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM `+t).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t, err)
	}
	if n > 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, name := range names {
		batch.Queue(`INSERT INTO `+t+` (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("seed %s: %w", t, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit seed %s: %w", t, err)
	}
	return len(names), nil
}

func mapWriteError(kind models.Kind, name string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s %q: %w", kind, name, sentinel.ErrConflict)
	}
	return fmt.Errorf("write %s: %w", kind, err)
}
