package notification

import (
	"context"
	"log/slog"

	"github.com/jonny/logtail/internal/domain/model"
	"github.com/jonny/logtail/internal/domain/port/outbound"
)

// NoopNotifier is a no-op notifier that logs notifications instead of sending them.
// Used in local development when Slack is not configured.
type NoopNotifier struct {
	logger *slog.Logger
}

var _ outbound.EntryNotifier = (*NoopNotifier)(nil)

// NewNoopNotifier creates a new NoopNotifier.
func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopNotifier{logger: logger}
}

func (n *NoopNotifier) NotifyEntry(_ context.Context, entry model.Entry) error {
	n.logger.Info("noop: entry notification",
		"partition", entry.Partition,
		"level", entry.Level,
		"key", entry.Key.String(),
		"message", entry.Message,
	)
	return nil
}
