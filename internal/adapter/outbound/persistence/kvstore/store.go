// Package kvstore keeps log entries in an ordered LevelDB key space. It only
// ever iterates forward, the same contract as a remote table store that
// supports ascending range scans and nothing else.
package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/jonny/logtail/internal/domain/model"
	"github.com/jonny/logtail/internal/domain/port/outbound"
)

// key layout: <partition> 0x00 <19-digit tail key> 0x00 <id>
const sep = 0x00

// Config holds LevelDB options.
type Config struct {
	Path string
	// CacheSizeMB sets the block cache capacity; 0 keeps the library default.
	CacheSizeMB int
}

// Store is an outbound.EntryRepository over a single LevelDB database.
type Store struct {
	db *leveldb.DB
}

var _ outbound.EntryRepository = (*Store)(nil)

// Open opens (or creates) the database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("leveldb path is required")
	}
	opts := &ldb_opt.Options{}
	if cfg.CacheSizeMB > 0 {
		opts.BlockCacheCapacity = cfg.CacheSizeMB * ldb_opt.MiB
	}
	db, err := leveldb.OpenFile(cfg.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Ping reports whether the database is still usable.
func (s *Store) Ping(_ context.Context) error {
	_, err := s.db.GetProperty("leveldb.stats")
	return err
}

type record struct {
	Level      model.Level       `json:"level"`
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Append writes the entry under its composite key.
func (s *Store) Append(ctx context.Context, e model.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkPartition(e.Partition); err != nil {
		return err
	}
	if e.Key.IsZero() {
		return fmt.Errorf("%w: entry has no key", model.ErrInvalidInput)
	}
	value, err := json.Marshal(record{Level: e.Level, Message: e.Message, Attributes: e.Attributes})
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}
	if err := s.db.Put(rowKey(e.Partition, e.Key, e.ID), value, nil); err != nil {
		return fmt.Errorf("writing entry: %w", err)
	}
	return nil
}

// Tail returns the first limit entries of the partition.
func (s *Store) Tail(ctx context.Context, partition string, limit int) ([]model.Entry, error) {
	if err := checkPartition(partition); err != nil {
		return nil, err
	}
	return s.scan(ctx, ldb_util.BytesPrefix(partitionPrefix(partition)), limit)
}

// Range returns up to limit entries with tail key >= from.
func (s *Store) Range(ctx context.Context, partition string, from model.TailKey, limit int) ([]model.Entry, error) {
	if err := checkPartition(partition); err != nil {
		return nil, err
	}
	r := ldb_util.BytesPrefix(partitionPrefix(partition))
	r.Start = append(partitionPrefix(partition), from.String()...)
	return s.scan(ctx, r, limit)
}

// Get reads one entry.
func (s *Store) Get(ctx context.Context, partition string, key model.TailKey, id string) (model.Entry, error) {
	if err := ctx.Err(); err != nil {
		return model.Entry{}, err
	}
	if err := checkPartition(partition); err != nil {
		return model.Entry{}, err
	}
	raw := rowKey(partition, key, id)
	value, err := s.db.Get(raw, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return model.Entry{}, fmt.Errorf("entry %s/%s/%s: %w", partition, key, id, model.ErrNotFound)
	}
	if err != nil {
		return model.Entry{}, fmt.Errorf("reading entry: %w", err)
	}
	return decode(raw, value)
}

func (s *Store) scan(ctx context.Context, r *ldb_util.Range, limit int) ([]model.Entry, error) {
	iter := s.db.NewIterator(r, nil)
	defer iter.Release()

	items := []model.Entry{}
	for len(items) < limit && iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// iterator slices are only valid until the next call to Next
		e, err := decode(iter.Key(), iter.Value())
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	return items, nil
}

func decode(raw, value []byte) (model.Entry, error) {
	parts := bytes.SplitN(raw, []byte{sep}, 3)
	if len(parts) != 3 {
		return model.Entry{}, fmt.Errorf("%w: malformed row key %q", model.ErrInvalidFormat, raw)
	}
	key, err := model.ParseTailKey(string(parts[1]))
	if err != nil {
		return model.Entry{}, fmt.Errorf("row %q: %w", raw, err)
	}
	var rec record
	if err := json.Unmarshal(value, &rec); err != nil {
		return model.Entry{}, fmt.Errorf("decoding entry %q: %w", raw, err)
	}
	if rec.Attributes == nil {
		rec.Attributes = make(map[string]string)
	}
	return model.Entry{
		ID:         string(parts[2]),
		Partition:  string(parts[0]),
		Key:        key,
		Level:      rec.Level,
		Message:    rec.Message,
		Attributes: rec.Attributes,
	}, nil
}

func partitionPrefix(partition string) []byte {
	b := make([]byte, 0, len(partition)+1+model.TailKeyWidth)
	b = append(b, partition...)
	return append(b, sep)
}

func rowKey(partition string, key model.TailKey, id string) []byte {
	b := partitionPrefix(partition)
	b = append(b, key.String()...)
	b = append(b, sep)
	return append(b, id...)
}

func checkPartition(partition string) error {
	if partition == "" {
		return fmt.Errorf("%w: partition is required", model.ErrInvalidInput)
	}
	if strings.IndexByte(partition, sep) >= 0 {
		return fmt.Errorf("%w: partition contains NUL", model.ErrInvalidInput)
	}
	return nil
}
