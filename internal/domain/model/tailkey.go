package model

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// TailKeyWidth is the fixed number of decimal digits in a TailKey.
	TailKeyWidth = 19

	// TicksPerSecond is the number of 100-nanosecond ticks in one second.
	TicksPerSecond int64 = 10_000_000

	// MaxTicks is the tick count of 9999-12-31T23:59:59.9999999Z, the latest
	// instant a TailKey can encode.
	MaxTicks int64 = 3_155_378_975_999_999_999

	nanosPerTick = 100

	// ticks between 0001-01-01T00:00:00Z and the Unix epoch.
	unixEpochTicks int64 = 621_355_968_000_000_000
)

var (
	tickEpoch = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	tickMaxAt = time.Date(9999, time.December, 31, 23, 59, 59, 999_999_999, time.UTC)
)

// TailKey is a row key whose ascending string order is descending
// chronological order. It holds MaxTicks minus the tick count of an instant,
// rendered as 19 zero-padded decimal digits, so a plain forward range scan
// over keys returns the newest rows first.
//
// The zero TailKey is not a valid key; use NewTailKey or ParseTailKey.
type TailKey struct {
	value string
}

// NewTailKey encodes t. The instant must carry the time.UTC location and lie
// between 0001-01-01 and 9999-12-31T23:59:59.9999999Z. Precision finer than a
// tick is truncated.
func NewTailKey(t time.Time) (TailKey, error) {
	if t.Location() != time.UTC {
		return TailKey{}, fmt.Errorf("%w: instant must be UTC, got location %q", ErrInvalidInput, t.Location())
	}
	if t.Before(tickEpoch) || t.After(tickMaxAt) {
		return TailKey{}, fmt.Errorf("%w: instant %s outside encodable range", ErrInvalidInput, t.Format(time.RFC3339Nano))
	}
	inverted := MaxTicks - ticksOf(t)
	return TailKey{value: fmt.Sprintf("%0*d", TailKeyWidth, inverted)}, nil
}

// MustTailKey is like NewTailKey but panics on error. Intended for constants
// and tests.
func MustTailKey(t time.Time) TailKey {
	k, err := NewTailKey(t)
	if err != nil {
		panic(err)
	}
	return k
}

// ParseTailKey validates a raw key read back from storage or a client and
// returns it unchanged. Malformed input is rejected, never repaired.
func ParseTailKey(s string) (TailKey, error) {
	if s == "" {
		return TailKey{}, fmt.Errorf("%w: tail key is empty", ErrInvalidInput)
	}
	if len(s) != TailKeyWidth {
		return TailKey{}, fmt.Errorf("%w: tail key must be %d digits, got %d characters", ErrInvalidFormat, TailKeyWidth, len(s))
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return TailKey{}, fmt.Errorf("%w: tail key has non-digit at offset %d", ErrInvalidFormat, i)
		}
	}
	inverted, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return TailKey{}, fmt.Errorf("%w: tail key %q: %v", ErrInvalidFormat, s, err)
	}
	if inverted > MaxTicks {
		return TailKey{}, fmt.Errorf("%w: tail key %q exceeds tick range", ErrInvalidFormat, s)
	}
	return TailKey{value: s}, nil
}

// NowTailKey encodes the clock's current instant.
func NowTailKey(clock Clock) (TailKey, error) {
	return NewTailKey(clock.Now().UTC())
}

// Time decodes the key back to the UTC instant it was built from. The zero
// TailKey decodes to the zero time.Time.
func (k TailKey) Time() time.Time {
	if k.value == "" {
		return time.Time{}
	}
	// A non-zero key has passed ParseTailKey or NewTailKey, so it parses.
	inverted, _ := strconv.ParseInt(k.value, 10, 64)
	return timeFromTicks(MaxTicks - inverted)
}

// Ticks returns the encoded instant as 100ns ticks since 0001-01-01.
func (k TailKey) Ticks() int64 {
	if k.value == "" {
		return 0
	}
	inverted, _ := strconv.ParseInt(k.value, 10, 64)
	return MaxTicks - inverted
}

// String returns the canonical 19-digit form.
func (k TailKey) String() string { return k.value }

// IsZero reports whether k is the zero TailKey.
func (k TailKey) IsZero() bool { return k.value == "" }

// Compare orders keys by ordinal string comparison: -1 if k sorts before
// other (k is newer), 0 if equal, +1 otherwise.
func (k TailKey) Compare(other TailKey) int {
	return strings.Compare(k.value, other.value)
}

func (k TailKey) Equal(other TailKey) bool          { return k.Compare(other) == 0 }
func (k TailKey) Less(other TailKey) bool           { return k.Compare(other) < 0 }
func (k TailKey) LessOrEqual(other TailKey) bool    { return k.Compare(other) <= 0 }
func (k TailKey) Greater(other TailKey) bool        { return k.Compare(other) > 0 }
func (k TailKey) GreaterOrEqual(other TailKey) bool { return k.Compare(other) >= 0 }

// CompareTailKeys is Compare in a form usable with slices.SortFunc.
func CompareTailKeys(a, b TailKey) int { return a.Compare(b) }

// MarshalText implements encoding.TextMarshaler.
func (k TailKey) MarshalText() ([]byte, error) {
	return []byte(k.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *TailKey) UnmarshalText(text []byte) error {
	parsed, err := ParseTailKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Value implements driver.Valuer so keys are stored as TEXT.
func (k TailKey) Value() (driver.Value, error) {
	if k.value == "" {
		return nil, fmt.Errorf("%w: zero tail key", ErrInvalidInput)
	}
	return k.value, nil
}

// Scan implements sql.Scanner.
func (k *TailKey) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return k.UnmarshalText([]byte(v))
	case []byte:
		return k.UnmarshalText(v)
	default:
		return fmt.Errorf("%w: cannot scan %T into TailKey", ErrInvalidFormat, src)
	}
}

func ticksOf(t time.Time) int64 {
	return t.Unix()*TicksPerSecond + int64(t.Nanosecond()/nanosPerTick) + unixEpochTicks
}

func timeFromTicks(ticks int64) time.Time {
	unix := ticks - unixEpochTicks
	sec, rem := unix/TicksPerSecond, unix%TicksPerSecond
	if rem < 0 {
		sec--
		rem += TicksPerSecond
	}
	return time.Unix(sec, rem*nanosPerTick).UTC()
}
