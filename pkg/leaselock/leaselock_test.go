package leaselock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB keeps lock holders in memory and ignores expiry.
type fakeDB struct {
	mu      sync.Mutex
	holders map[string]string
}

func newFakeDB() *fakeDB {
	return &fakeDB{holders: make(map[string]string)}
}

var fakeExpiry = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type fakeRow struct {
	key string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.key
	if len(dest) > 1 {
		*dest[1].(*time.Time) = fakeExpiry
	}
	return nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := args[0].(string)
	holder, held := f.holders[key]
	if sql == holderSQL {
		if !held {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{key: holder}
	}
	token := args[1].(string)
	switch sql {
	case tryAcquireSQL:
		if held && holder != token {
			return fakeRow{err: pgx.ErrNoRows}
		}
		f.holders[key] = token
		return fakeRow{key: key}
	case renewSQL:
		if !held || holder != token {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{key: key}
	}
	return fakeRow{err: errors.New("unexpected query")}
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, token := args[0].(string), args[1].(string)
	if f.holders[key] == token {
		delete(f.holders, key)
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
	return pgconn.NewCommandTag("DELETE 0"), nil
}

func TestGraphKey(t *testing.T) {
	if got := GraphKey("abc"); got != "graph:abc" {
		t.Fatalf("GraphKey() = %q", got)
	}
}

func TestOptionsDefaults(t *testing.T) {
	tests := []struct {
		name      string
		in        Options
		wantTTL   time.Duration
		wantRenew time.Duration
	}{
		{"zero", Options{}, 5 * time.Minute, 150 * time.Second},
		{"renew too long", Options{TTL: 10 * time.Second, RenewEvery: time.Minute}, 10 * time.Second, 5 * time.Second},
		{"short ttl", Options{TTL: time.Second}, time.Second, time.Second},
		{"explicit", Options{TTL: time.Minute, RenewEvery: 10 * time.Second}, time.Minute, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.withDefaults()
			if got.TTL != tt.wantTTL || got.RenewEvery != tt.wantRenew {
				t.Fatalf("withDefaults() = ttl %v renew %v", got.TTL, got.RenewEvery)
			}
			if got.WaitInterval != 250*time.Millisecond {
				t.Fatalf("unexpected wait interval %v", got.WaitInterval)
			}
		})
	}
}

func TestWithGraphLease(t *testing.T) {
	db := newFakeDB()
	c := New(db)
	ctx := context.Background()

	err := c.WithGraphLease(ctx, "g1", Options{}, func(ctx context.Context) error {
		if _, held := db.holders["graph:g1"]; !held {
			t.Fatal("expected lease to be held")
		}
		err := c.WithGraphLease(ctx, "g1", Options{}, func(context.Context) error { return nil })
		if !errors.Is(err, ErrBusy) {
			t.Fatalf("expected ErrBusy for second writer, got %v", err)
		}
		return c.WithGraphLease(ctx, "g2", Options{}, func(context.Context) error { return nil })
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(db.holders) != 0 {
		t.Fatalf("expected all leases released, got %v", db.holders)
	}

	if err := c.WithGraphLease(ctx, "", Options{}, func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for empty graph id")
	}
}

func TestAcquireBusyNamesHolder(t *testing.T) {
	db := newFakeDB()
	db.holders["graph:g1"] = "worker-abc"
	c := New(db)

	_, err := c.Acquire(context.Background(), GraphKey("g1"), Options{})
	var busy *BusyError
	if !errors.As(err, &busy) {
		t.Fatalf("expected *BusyError, got %v", err)
	}
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected errors.Is ErrBusy, got %v", err)
	}
	if busy.Key != "graph:g1" || busy.Holder != "worker-abc" || !busy.Until.Equal(fakeExpiry) {
		t.Fatalf("unexpected busy error %+v", busy)
	}
	want := "graph:g1 is held by worker-abc until 2026-01-02T03:04:05Z"
	if busy.Error() != want {
		t.Fatalf("Error() = %q, want %q", busy.Error(), want)
	}
}

func TestBusyWithoutHolderFallsBack(t *testing.T) {
	c := New(newFakeDB())
	if err := c.busy(context.Background(), "gone"); err != ErrBusy {
		t.Fatalf("expected plain ErrBusy, got %v", err)
	}
}

func TestAcquireWaitHonoursContext(t *testing.T) {
	db := newFakeDB()
	db.holders["graph:g1"] = "someone-else"
	c := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Acquire(ctx, GraphKey("g1"), Options{Wait: true, WaitInterval: 10 * time.Millisecond})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestReleaseCancelsLeaseContext(t *testing.T) {
	c := New(newFakeDB())
	lease, err := c.Acquire(context.Background(), "k", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := lease.Release(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-lease.Context.Done():
	case <-time.After(time.Second):
		t.Fatal("lease context not cancelled")
	}
}
