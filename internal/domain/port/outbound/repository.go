package outbound

import (
	"context"

	"github.com/jonny/logtail/internal/domain/model"
)

// EntryRepository is an append-only store that only scans row keys in
// ascending order. Because model.TailKey inverts time, ascending order is
// newest first.
type EntryRepository interface {
	Append(ctx context.Context, entry model.Entry) error
	// Tail returns up to limit entries of the partition, newest first.
	Tail(ctx context.Context, partition string, limit int) ([]model.Entry, error)
	// Range returns up to limit entries whose key is >= from, i.e. entries
	// at or older than the instant from encodes, newest first.
	Range(ctx context.Context, partition string, from model.TailKey, limit int) ([]model.Entry, error)
	// Get returns model.ErrNotFound when no row matches.
	Get(ctx context.Context, partition string, key model.TailKey, id string) (model.Entry, error)
}
