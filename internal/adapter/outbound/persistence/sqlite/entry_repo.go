package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonny/logtail/internal/domain/model"
	"github.com/jonny/logtail/internal/domain/port/outbound"
)

// EntryRepo implements outbound.EntryRepository using SQLite. Every read is
// an ascending scan over (partition_key, row_key, id).
type EntryRepo struct {
	db *sql.DB
}

// NewEntryRepo creates a new EntryRepo backed by the given store.
func NewEntryRepo(store *Store) *EntryRepo {
	return &EntryRepo{db: store.DB}
}

var _ outbound.EntryRepository = (*EntryRepo)(nil)

const entryColumns = `partition_key, row_key, id, level, message, attributes`

// Append inserts a new row. Rows are never updated.
func (r *EntryRepo) Append(ctx context.Context, e model.Entry) error {
	attrs, err := marshalStringMap(e.Attributes)
	if err != nil {
		return fmt.Errorf("marshaling entry attributes: %w", err)
	}

	const q = `INSERT INTO entries (` + entryColumns + `) VALUES (?,?,?,?,?,?)`
	_, err = r.db.ExecContext(ctx, q,
		e.Partition, e.Key, e.ID,
		string(e.Level), e.Message, attrs,
	)
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	return nil
}

// Tail returns the first limit rows of the partition in key order.
func (r *EntryRepo) Tail(ctx context.Context, partition string, limit int) ([]model.Entry, error) {
	const q = `SELECT ` + entryColumns + ` FROM entries
		WHERE partition_key = ?
		ORDER BY row_key ASC, id ASC LIMIT ?`
	return r.query(ctx, q, partition, limit)
}

// Range returns up to limit rows with row_key >= from.
func (r *EntryRepo) Range(ctx context.Context, partition string, from model.TailKey, limit int) ([]model.Entry, error) {
	const q = `SELECT ` + entryColumns + ` FROM entries
		WHERE partition_key = ? AND row_key >= ?
		ORDER BY row_key ASC, id ASC LIMIT ?`
	return r.query(ctx, q, partition, from, limit)
}

// Get fetches a single row.
func (r *EntryRepo) Get(ctx context.Context, partition string, key model.TailKey, id string) (model.Entry, error) {
	const q = `SELECT ` + entryColumns + ` FROM entries
		WHERE partition_key = ? AND row_key = ? AND id = ?`
	e, err := scanEntry(r.db.QueryRowContext(ctx, q, partition, key, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entry{}, fmt.Errorf("entry %s/%s/%s: %w", partition, key, id, model.ErrNotFound)
	}
	if err != nil {
		return model.Entry{}, fmt.Errorf("getting entry: %w", err)
	}
	return e, nil
}

func (r *EntryRepo) query(ctx context.Context, q string, args ...any) ([]model.Entry, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	items := []model.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	return items, nil
}

// --- helpers ---

type entryScanner interface {
	Scan(dest ...any) error
}

// scanEntry reads one row. A row_key that fails validation surfaces as
// model.ErrInvalidFormat and is treated as corruption by callers.
func scanEntry(s entryScanner) (model.Entry, error) {
	var e model.Entry
	var level, attrsJSON string

	if err := s.Scan(&e.Partition, &e.Key, &e.ID, &level, &e.Message, &attrsJSON); err != nil {
		return model.Entry{}, err
	}
	e.Level = model.Level(level)
	if err := json.Unmarshal([]byte(attrsJSON), &e.Attributes); err != nil || e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	return e, nil
}

func marshalStringMap(m map[string]string) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
