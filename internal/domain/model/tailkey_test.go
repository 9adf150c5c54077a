package model

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"
)

var (
	minInstant = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxInstant = time.Date(9999, time.December, 31, 23, 59, 59, 999_999_900, time.UTC)
)

func mustParse(t *testing.T, s string) TailKey {
	t.Helper()
	k, err := ParseTailKey(s)
	if err != nil {
		t.Fatalf("ParseTailKey(%q): %v", s, err)
	}
	return k
}

func TestNewTailKey_EndToEnd(t *testing.T) {
	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	kJan, err := NewTailKey(jan)
	if err != nil {
		t.Fatalf("NewTailKey(jan): %v", err)
	}
	if kJan.String() != "2516982335999999999" {
		t.Errorf("jan key: got %s want 2516982335999999999", kJan)
	}
	if kJan.Ticks() != 638396640000000000 {
		t.Errorf("jan ticks: got %d", kJan.Ticks())
	}

	kJun, err := NewTailKey(jun)
	if err != nil {
		t.Fatalf("NewTailKey(jun): %v", err)
	}
	if kJun.String() != "2516851007999999999" {
		t.Errorf("jun key: got %s want 2516851007999999999", kJun)
	}
	if !(kJun.String() < kJan.String()) {
		t.Errorf("later instant must sort first: %s vs %s", kJun, kJan)
	}

	for _, k := range []TailKey{kJan, kJun} {
		back := mustParse(t, k.String())
		if !back.Equal(k) {
			t.Errorf("reparsed key differs: %s vs %s", back, k)
		}
	}
	if got := mustParse(t, kJan.String()).Time(); !got.Equal(jan) {
		t.Errorf("decode jan: got %s", got)
	}
	if got := mustParse(t, kJun.String()).Time(); !got.Equal(jun) {
		t.Errorf("decode jun: got %s", got)
	}
}

func TestNewTailKey_FixedWidth(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want string
	}{
		{"min instant", minInstant, "3155378975999999999"},
		{"max instant", maxInstant, "0000000000000000000"},
		{"unix epoch", time.Unix(0, 0).UTC(), "2534023007999999999"},
		{"one tick before max", maxInstant.Add(-100 * time.Nanosecond), "0000000000000000001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k, err := NewTailKey(tc.at)
			if err != nil {
				t.Fatalf("NewTailKey: %v", err)
			}
			if len(k.String()) != TailKeyWidth {
				t.Errorf("width: got %d", len(k.String()))
			}
			if k.String() != tc.want {
				t.Errorf("got %s want %s", k, tc.want)
			}
		})
	}
}

func TestTailKey_RoundTrip(t *testing.T) {
	instants := []time.Time{
		minInstant,
		minInstant.Add(100 * time.Nanosecond),
		time.Date(1969, time.December, 31, 23, 59, 59, 999_999_900, time.UTC),
		time.Unix(0, 0).UTC(),
		time.Date(2024, time.February, 29, 12, 30, 45, 123_456_700, time.UTC),
		time.Date(2262, time.April, 11, 23, 47, 16, 854_775_800, time.UTC),
		maxInstant,
	}
	for _, at := range instants {
		k, err := NewTailKey(at)
		if err != nil {
			t.Fatalf("NewTailKey(%s): %v", at, err)
		}
		got := k.Time()
		if !got.Equal(at) {
			t.Errorf("round trip %s: got %s", at.Format(time.RFC3339Nano), got.Format(time.RFC3339Nano))
		}
		if got.Location() != time.UTC {
			t.Errorf("round trip %s: location %s", at, got.Location())
		}
	}
}

func TestNewTailKey_TruncatesSubTick(t *testing.T) {
	at := time.Date(2024, time.January, 1, 0, 0, 0, 150, time.UTC)
	k := MustTailKey(at)
	want := time.Date(2024, time.January, 1, 0, 0, 0, 100, time.UTC)
	if got := k.Time(); !got.Equal(want) {
		t.Errorf("got %s want %s", got.Format(time.RFC3339Nano), want.Format(time.RFC3339Nano))
	}
}

func TestNewTailKey_RejectsNonUTC(t *testing.T) {
	cases := []struct {
		name string
		loc  *time.Location
	}{
		{"local", time.Local},
		{"fixed offset", time.FixedZone("CET", 3600)},
		{"zero offset zone named UTC", time.FixedZone("UTC", 0)},
	}
	for _, tc := range cases {
		at := time.Date(2024, time.January, 1, 0, 0, 0, 0, tc.loc)
		if _, err := NewTailKey(at); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestNewTailKey_RejectsOutOfRange(t *testing.T) {
	for _, at := range []time.Time{
		minInstant.Add(-time.Nanosecond),
		time.Date(10000, time.January, 1, 0, 0, 0, 0, time.UTC),
	} {
		if _, err := NewTailKey(at); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", at, err)
		}
	}
}

func TestParseTailKey_Validation(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", ErrInvalidInput},
		{"too short", "123", ErrInvalidFormat},
		{"too long", "25169823359999999990", ErrInvalidFormat},
		{"letter", "251698233599999999a", ErrInvalidFormat},
		{"sign", "+516982335999999999", ErrInvalidFormat},
		{"minus", "-516982335999999999", ErrInvalidFormat},
		{"space padded", " 516982335999999999", ErrInvalidFormat},
		{"int64 overflow", "9999999999999999999", ErrInvalidFormat},
		{"beyond max ticks", "3155378976000000000", ErrInvalidFormat},
		{"non-ascii", "25169823359999999\u00e9", ErrInvalidFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k, err := ParseTailKey(tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !k.IsZero() {
				t.Errorf("failed parse must return zero key, got %s", k)
			}
		})
	}
}

func TestParseTailKey_KeepsValueVerbatim(t *testing.T) {
	for _, s := range []string{"0000000000000000000", "3155378975999999999", "0000000000000000042"} {
		if got := mustParse(t, s).String(); got != s {
			t.Errorf("got %s want %s", got, s)
		}
	}
}

func TestTailKey_OrderInversion(t *testing.T) {
	base := time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)
	offsets := []time.Duration{0, 100 * time.Nanosecond, time.Millisecond, time.Second, time.Hour, 24 * time.Hour * 365 * 200}
	for _, a := range offsets {
		for _, b := range offsets {
			t1, t2 := base.Add(a), base.Add(b)
			k1, k2 := MustTailKey(t1), MustTailKey(t2)
			if t1.After(t2) != (k1.String() < k2.String()) {
				t.Errorf("t1=%s t2=%s: keys %s %s violate inversion", t1, t2, k1, k2)
			}
			if t1.Equal(t2) != k1.Equal(k2) {
				t.Errorf("t1=%s t2=%s: equality mismatch", t1, t2)
			}
		}
	}
}

func TestTailKey_ComparisonConsistency(t *testing.T) {
	keys := []TailKey{
		MustTailKey(minInstant),
		MustTailKey(time.Date(1999, time.December, 31, 23, 59, 59, 0, time.UTC)),
		MustTailKey(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)),
		MustTailKey(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)),
		MustTailKey(maxInstant),
	}
	for _, a := range keys {
		for _, b := range keys {
			s := strings.Compare(a.String(), b.String())
			if a.Compare(b) != s {
				t.Errorf("Compare(%s,%s)=%d want %d", a, b, a.Compare(b), s)
			}
			if a.Less(b) != (s < 0) || a.LessOrEqual(b) != (s <= 0) ||
				a.Greater(b) != (s > 0) || a.GreaterOrEqual(b) != (s >= 0) || a.Equal(b) != (s == 0) {
				t.Errorf("relational checks inconsistent for %s vs %s", a, b)
			}
		}
	}
}

func TestTailKey_SortIsNewestFirst(t *testing.T) {
	var times []time.Time
	base := time.Date(2023, time.May, 5, 5, 5, 5, 0, time.UTC)
	for i := 0; i < 10; i++ {
		times = append(times, base.Add(time.Duration(i*7%10)*time.Minute))
	}
	keys := make([]TailKey, len(times))
	for i, at := range times {
		keys[i] = MustTailKey(at)
	}
	slices.SortFunc(keys, CompareTailKeys)
	for i := 1; i < len(keys); i++ {
		if keys[i-1].Time().Before(keys[i].Time()) {
			t.Fatalf("position %d is older than %d", i-1, i)
		}
	}
}

func TestNowTailKey_UsesClock(t *testing.T) {
	at := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	k, err := NowTailKey(FixedClock(at))
	if err != nil {
		t.Fatalf("NowTailKey: %v", err)
	}
	if k.String() != "2516982335999999999" {
		t.Errorf("got %s", k)
	}

	// A clock in another zone is normalised to UTC first.
	k2, err := NowTailKey(FixedClock(at.In(time.FixedZone("EST", -5*3600))))
	if err != nil {
		t.Fatalf("NowTailKey in EST: %v", err)
	}
	if !k2.Equal(k) {
		t.Errorf("got %s want %s", k2, k)
	}
}

func TestTailKey_TextAndJSON(t *testing.T) {
	k := MustTailKey(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))

	data, err := json.Marshal(struct {
		Key TailKey `json:"key"`
	}{k})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"key":"2516982335999999999"}` {
		t.Errorf("json: got %s", data)
	}

	var out struct {
		Key TailKey `json:"key"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !out.Key.Equal(k) {
		t.Errorf("unmarshal: got %s", out.Key)
	}

	err = json.Unmarshal([]byte(`{"key":"12345"}`), &out)
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat from malformed json key, got %v", err)
	}
}

func TestTailKey_SQLValueAndScan(t *testing.T) {
	k := MustTailKey(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	v, err := k.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != k.String() {
		t.Errorf("Value: got %v", v)
	}

	var scanned TailKey
	if err := scanned.Scan([]byte(k.String())); err != nil {
		t.Fatalf("Scan bytes: %v", err)
	}
	if !scanned.Equal(k) {
		t.Errorf("Scan: got %s", scanned)
	}
	if err := scanned.Scan(int64(5)); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Scan int64: expected ErrInvalidFormat, got %v", err)
	}
	if _, err := (TailKey{}).Value(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero Value: expected ErrInvalidInput, got %v", err)
	}
}

func TestTailKey_ZeroValue(t *testing.T) {
	var k TailKey
	if !k.IsZero() {
		t.Error("zero key must report IsZero")
	}
	if !k.Time().IsZero() {
		t.Errorf("zero key must decode to zero time, got %s", k.Time())
	}
}
