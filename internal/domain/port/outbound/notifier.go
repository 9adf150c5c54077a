package outbound

import (
	"context"

	"github.com/jonny/logtail/internal/domain/model"
)

// EntryNotifier forwards severe entries to an operator channel.
type EntryNotifier interface {
	NotifyEntry(ctx context.Context, entry model.Entry) error
}
