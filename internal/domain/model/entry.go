package model

import (
	"fmt"
	"strings"
	"time"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ParseLevel maps a case-insensitive level name to a Level. An empty name
// defaults to LevelInfo.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return "", fmt.Errorf("%w: unknown level %q", ErrInvalidInput, s)
}

var levelRank = map[Level]int{LevelDebug: 0, LevelInfo: 1, LevelWarn: 2, LevelError: 3}

// AtLeast reports whether l is as severe as min.
func (l Level) AtLeast(min Level) bool {
	return levelRank[l] >= levelRank[min]
}

// Entry is one row of an append-only log partition. Rows are identified by
// (Partition, Key, ID); Key orders them newest first.
type Entry struct {
	ID         string            `json:"id"`
	Partition  string            `json:"partition"`
	Key        TailKey           `json:"key"`
	Level      Level             `json:"level"`
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes"`
}

// NewEntry mints an entry keyed at the clock's current instant.
func NewEntry(clock Clock, partition string, level Level, message string) (Entry, error) {
	if partition == "" {
		return Entry{}, fmt.Errorf("%w: partition is required", ErrInvalidInput)
	}
	key, err := NowTailKey(clock)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:         generateID(),
		Partition:  partition,
		Key:        key,
		Level:      level,
		Message:    message,
		Attributes: make(map[string]string),
	}, nil
}

// Timestamp decodes the entry's key.
func (e Entry) Timestamp() time.Time {
	return e.Key.Time()
}

// WithAttribute returns a copy of e with key set to value (immutable).
func (e Entry) WithAttribute(key, value string) Entry {
	attrs := make(map[string]string, len(e.Attributes)+1)
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	attrs[key] = value
	e.Attributes = attrs
	return e
}

// CompareEntries orders entries newest first, breaking ties by ID.
func CompareEntries(a, b Entry) int {
	if c := a.Key.Compare(b.Key); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
