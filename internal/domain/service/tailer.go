package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonny/logtail/internal/domain/model"
	"github.com/jonny/logtail/internal/domain/port/inbound"
	"github.com/jonny/logtail/internal/domain/port/outbound"
	"github.com/jonny/logtail/internal/observability/metrics"
)

// Limits bounds the number of rows a single query may return.
type Limits struct {
	Default int
	Max     int
}

// Tailer appends log entries and serves newest-first windows of a partition.
type Tailer struct {
	repo      outbound.EntryRepository
	clock     model.Clock
	limits    Limits
	logger    *slog.Logger
	notifier  outbound.EntryNotifier
	notifyMin model.Level
}

// NewTailer creates a Tailer. A nil clock means model.SystemClock.
func NewTailer(repo outbound.EntryRepository, clock model.Clock, limits Limits, logger *slog.Logger) *Tailer {
	if clock == nil {
		clock = model.SystemClock{}
	}
	if limits.Default <= 0 {
		limits.Default = 50
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tailer{repo: repo, clock: clock, limits: limits, logger: logger}
}

// WithNotifier forwards appended entries at or above minLevel to n.
// Notification failures are logged and never fail the append.
func (s *Tailer) WithNotifier(n outbound.EntryNotifier, minLevel model.Level) *Tailer {
	s.notifier = n
	s.notifyMin = minLevel
	return s
}

// Ensure Tailer satisfies the inbound port at compile time.
var _ inbound.TailPort = (*Tailer)(nil)

// Append implements inbound.TailPort.
func (s *Tailer) Append(ctx context.Context, req inbound.AppendRequest) (model.Entry, error) {
	start := time.Now()

	level, err := model.ParseLevel(req.Level)
	if err != nil {
		return model.Entry{}, err
	}
	entry, err := model.NewEntry(s.clock, req.Partition, level, req.Message)
	if err != nil {
		return model.Entry{}, err
	}
	for k, v := range req.Attributes {
		entry.Attributes[k] = v
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		metrics.ObserveAppend(metrics.ResultError, time.Since(start))
		return model.Entry{}, fmt.Errorf("append entry: %w", err)
	}
	metrics.ObserveAppend(metrics.ResultSuccess, time.Since(start))

	s.logger.Debug("entry appended",
		"partition", entry.Partition,
		"key", entry.Key.String(),
		"id", entry.ID,
	)

	if s.notifier != nil && entry.Level.AtLeast(s.notifyMin) {
		if err := s.notifier.NotifyEntry(ctx, entry); err != nil {
			s.logger.Warn("entry notification failed",
				"partition", entry.Partition,
				"key", entry.Key.String(),
				"error", err,
			)
		}
	}
	return entry, nil
}

// Query implements inbound.TailPort. With neither Before nor Since set it
// returns the newest entries. Before selects entries strictly older than the
// boundary key; Since keeps only entries at or after the given instant.
func (s *Tailer) Query(ctx context.Context, q inbound.TailQuery) ([]model.Entry, error) {
	if q.Partition == "" {
		return nil, fmt.Errorf("%w: partition is required", model.ErrInvalidInput)
	}
	limit := s.clampLimit(q.Limit)
	start := time.Now()

	var (
		kind    = "tail"
		entries []model.Entry
		err     error
	)
	switch {
	case q.Before != "":
		kind = "before"
		entries, err = s.olderThan(ctx, q.Partition, q.Before, limit)
	default:
		entries, err = s.repo.Tail(ctx, q.Partition, limit)
		if err != nil {
			err = fmt.Errorf("tail entries: %w", err)
		}
	}
	if err == nil && q.Since != nil {
		if q.Before == "" {
			kind = "since"
		}
		entries, err = keepSince(entries, *q.Since)
	}

	if err != nil {
		metrics.ObserveQuery(kind, metrics.ResultError, 0, time.Since(start))
		return nil, err
	}
	metrics.ObserveQuery(kind, metrics.ResultSuccess, len(entries), time.Since(start))
	return entries, nil
}

// Get implements inbound.TailPort.
func (s *Tailer) Get(ctx context.Context, partition, key, id string) (model.Entry, error) {
	k, err := model.ParseTailKey(key)
	if err != nil {
		metrics.IncKeyRejected(rejectReason(err))
		return model.Entry{}, err
	}
	entry, err := s.repo.Get(ctx, partition, k, id)
	if err != nil {
		return model.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

func (s *Tailer) olderThan(ctx context.Context, partition, raw string, limit int) ([]model.Entry, error) {
	boundary, err := model.ParseTailKey(raw)
	if err != nil {
		metrics.IncKeyRejected(rejectReason(err))
		return nil, err
	}
	// The first key past the boundary is the one for the preceding tick.
	prev := boundary.Time().Add(-100 * time.Nanosecond)
	from, err := model.NewTailKey(prev)
	if errors.Is(err, model.ErrInvalidInput) {
		// boundary is the epoch; nothing is older
		return []model.Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.Range(ctx, partition, from, limit)
	if err != nil {
		return nil, fmt.Errorf("range entries: %w", err)
	}
	return entries, nil
}

func (s *Tailer) clampLimit(n int) int {
	if n <= 0 {
		return s.limits.Default
	}
	if n > s.limits.Max {
		return s.limits.Max
	}
	return n
}

// keepSince returns the newest-first prefix of entries at or after since.
func keepSince(entries []model.Entry, since time.Time) ([]model.Entry, error) {
	bound, err := model.NewTailKey(since.UTC())
	if err != nil {
		return nil, err
	}
	n := 0
	for n < len(entries) && entries[n].Key.LessOrEqual(bound) {
		n++
	}
	return entries[:n], nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidFormat):
		return "format"
	case errors.Is(err, model.ErrInvalidInput):
		return "input"
	}
	return "other"
}
