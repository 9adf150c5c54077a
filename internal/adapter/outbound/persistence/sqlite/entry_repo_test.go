package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonny/logtail/internal/adapter/outbound/persistence/sqlite"
	"github.com/jonny/logtail/internal/domain/model"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(sqlite.Config{
		Path:              ":memory:",
		MaxOpenConns:      1,
		PragmaJournalMode: "WAL",
		PragmaBusyTimeout: 5000,
	})
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

var base = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func makeEntry(t *testing.T, partition string, at time.Time, msg string) model.Entry {
	t.Helper()
	e, err := model.NewEntry(model.FixedClock(at), partition, model.LevelInfo, msg)
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	return e.WithAttribute("host", "web-1")
}

func TestEntryRepo_AppendAndGet(t *testing.T) {
	repo := sqlite.NewEntryRepo(newTestStore(t))
	ctx := context.Background()

	e := makeEntry(t, "api", base, "hello")
	if err := repo.Append(ctx, e); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := repo.Get(ctx, "api", e.Key, e.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Message != "hello" {
		t.Errorf("Message: got %q", got.Message)
	}
	if !got.Key.Equal(e.Key) {
		t.Errorf("Key: got %s want %s", got.Key, e.Key)
	}
	if !got.Timestamp().Equal(base) {
		t.Errorf("Timestamp: got %s", got.Timestamp())
	}
	if got.Attributes["host"] != "web-1" {
		t.Errorf("Attributes: got %v", got.Attributes)
	}
}

func TestEntryRepo_Get_NotFound(t *testing.T) {
	repo := sqlite.NewEntryRepo(newTestStore(t))
	_, err := repo.Get(context.Background(), "api", model.MustTailKey(base), "nope")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEntryRepo_Tail_NewestFirst(t *testing.T) {
	repo := sqlite.NewEntryRepo(newTestStore(t))
	ctx := context.Background()

	// Insert out of chronological order.
	for _, off := range []time.Duration{2 * time.Hour, 0, time.Hour, 3 * time.Hour} {
		if err := repo.Append(ctx, makeEntry(t, "api", base.Add(off), off.String())); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := repo.Append(ctx, makeEntry(t, "other", base.Add(10*time.Hour), "noise")); err != nil {
		t.Fatalf("Append other: %v", err)
	}

	got, err := repo.Tail(ctx, "api", 3)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	want := []string{"3h0m0s", "2h0m0s", "1h0m0s"}
	if len(got) != len(want) {
		t.Fatalf("len: got %d want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Message != w {
			t.Errorf("position %d: got %q want %q", i, got[i].Message, w)
		}
	}
}

func TestEntryRepo_Range(t *testing.T) {
	repo := sqlite.NewEntryRepo(newTestStore(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.Append(ctx, makeEntry(t, "api", base.Add(time.Duration(i)*time.Minute), "m")); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	// From the key of minute 2: minutes 2, 1, 0 qualify.
	got, err := repo.Range(ctx, "api", model.MustTailKey(base.Add(2*time.Minute)), 10)
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if !got[0].Timestamp().Equal(base.Add(2 * time.Minute)) {
		t.Errorf("first: got %s", got[0].Timestamp())
	}
	if !got[2].Timestamp().Equal(base) {
		t.Errorf("last: got %s", got[2].Timestamp())
	}
}

func TestEntryRepo_SameTickEntriesCoexist(t *testing.T) {
	repo := sqlite.NewEntryRepo(newTestStore(t))
	ctx := context.Background()

	a := makeEntry(t, "api", base, "a")
	b := makeEntry(t, "api", base, "b")
	for _, e := range []model.Entry{a, b} {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	got, err := repo.Tail(ctx, "api", 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].ID > got[1].ID {
		t.Error("ties must be ordered by id")
	}
}

func TestEntryRepo_CorruptKeyIsRejected(t *testing.T) {
	store := newTestStore(t)
	repo := sqlite.NewEntryRepo(store)
	ctx := context.Background()

	_, err := store.DB.ExecContext(ctx,
		`INSERT INTO entries (partition_key, row_key, id, level, message) VALUES ('api', '12345678901234567x9', 'id', 'info', 'bad')`)
	if err != nil {
		t.Fatalf("seeding corrupt row: %v", err)
	}
	if _, err := repo.Tail(ctx, "api", 10); !errors.Is(err, model.ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestNewStore_ReopenSkipsAppliedMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logtail.db")
	cfg := sqlite.Config{Path: path, MaxOpenConns: 1, PragmaJournalMode: "wal", PragmaBusyTimeout: 1000}

	first, err := sqlite.NewStore(cfg)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := sqlite.NewEntryRepo(first).Append(context.Background(), makeEntry(t, "api", base, "kept")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	_ = first.Close()

	second, err := sqlite.NewStore(cfg)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()

	got, err := sqlite.NewEntryRepo(second).Tail(context.Background(), "api", 1)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(got) != 1 || got[0].Message != "kept" {
		t.Errorf("expected persisted entry, got %v", got)
	}
}

func TestNewStore_InvalidJournalMode(t *testing.T) {
	_, err := sqlite.NewStore(sqlite.Config{Path: ":memory:", PragmaJournalMode: "bogus"})
	if err == nil {
		t.Fatal("expected error for invalid journal mode")
	}
}
