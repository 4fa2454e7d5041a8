package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"price-catalog/src/pkg/catalog"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS catalog_prices (
	position  integer NOT NULL,
	item      text PRIMARY KEY,
	raw_price text NOT NULL
)`

// PostgresStore keeps one row per item. Every save rewrites the table inside one transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the catalog_prices table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) (e *xerr.Error) {
	_, execErr := s.pool.Exec(ctx, postgresSchema)
	if execErr != nil {
		e = xerr.NewError(execErr, "create catalog_prices table", nil)
		return e
	}
	return e
}

func (s *PostgresStore) Load(ctx context.Context) (entries []catalog.Entry, e *xerr.Error) {
	rows, queryErr := s.pool.Query(ctx, `SELECT item, raw_price FROM catalog_prices ORDER BY position`)
	if queryErr != nil {
		e = xerr.NewError(queryErr, "query catalog_prices", nil)
		return nil, e
	}
	defer rows.Close()

	entries = make([]catalog.Entry, 0)
	for rows.Next() {
		var entry catalog.Entry
		scanErr := rows.Scan(&entry.Key, &entry.RawPrice)
		if scanErr != nil {
			e = xerr.NewError(scanErr, "scan catalog_prices row", len(entries))
			return nil, e
		}
		entries = append(entries, entry)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		e = xerr.NewError(rowsErr, "iterate catalog_prices rows", len(entries))
		return nil, e
	}

	return entries, e
}

// Save deletes all rows and copies the full catalog back in. Nothing is visible until commit.
func (s *PostgresStore) Save(ctx context.Context, entries []catalog.Entry) (e *xerr.Error) {
	tx, beginErr := s.pool.Begin(ctx)
	if beginErr != nil {
		e = xerr.NewError(beginErr, "begin catalog transaction", nil)
		return e
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, deleteErr := tx.Exec(ctx, `DELETE FROM catalog_prices`)
	if deleteErr != nil {
		e = xerr.NewError(deleteErr, "clear catalog_prices", nil)
		return e
	}

	rows := make([][]any, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, []any{int32(i), entry.Key, entry.RawPrice})
	}
	_, copyErr := tx.CopyFrom(ctx, pgx.Identifier{"catalog_prices"}, []string{"position", "item", "raw_price"}, pgx.CopyFromRows(rows))
	if copyErr != nil {
		e = xerr.NewError(copyErr, "copy catalog rows", len(entries))
		return e
	}

	commitErr := tx.Commit(ctx)
	if commitErr != nil {
		e = xerr.NewError(commitErr, "commit catalog transaction", len(entries))
		return e
	}

	tl.Log(tl.Verbose, palette.CyanDim, "Stored %d entries in %s", len(entries), "catalog_prices")
	return e
}
