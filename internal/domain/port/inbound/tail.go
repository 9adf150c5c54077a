package inbound

import (
	"context"
	"time"

	"github.com/jonny/logtail/internal/domain/model"
)

// AppendRequest is a new log line as submitted by a client.
type AppendRequest struct {
	Partition  string
	Level      string
	Message    string
	Attributes map[string]string
}

// TailQuery selects a newest-first window of a partition. Before and Since
// are optional; Before is a raw key handed back by an earlier page.
type TailQuery struct {
	Partition string
	Limit     int
	Before    string
	Since     *time.Time
}

// TailPort is the inbound port used by the HTTP adapter.
type TailPort interface {
	Append(ctx context.Context, req AppendRequest) (model.Entry, error)
	Query(ctx context.Context, q TailQuery) ([]model.Entry, error)
	Get(ctx context.Context, partition, key, id string) (model.Entry, error)
}
