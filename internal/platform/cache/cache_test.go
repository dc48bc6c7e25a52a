package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestOptions(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantDB  int
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", 0, false},
		{"valid-with-db", "redis://localhost:6379/2", 2, false},
		{"empty", "", 0, true},
		{"wrong-scheme", "http://localhost:6379", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := Options(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Options() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if opts.DB != tt.wantDB {
				t.Errorf("DB = %d, want %d", opts.DB, tt.wantDB)
			}
			if opts.DialTimeout != dialTimeout || opts.ReadTimeout != ioTimeout {
				t.Errorf("timeouts = %s/%s, want %s/%s", opts.DialTimeout, opts.ReadTimeout, dialTimeout, ioTimeout)
			}
		})
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		namespace string
		want      string
	}{
		{"learn", "learn:inflight:u1"},
		{"learn:", "learn:inflight:u1"},
		{"", "inflight:u1"},
	}
	for _, tt := range tests {
		c := wrap(nil, tt.namespace)
		if got := c.Key("inflight", "u1"); got != tt.want {
			t.Errorf("Key() with namespace %q = %q, want %q", tt.namespace, got, tt.want)
		}
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := New(ctx, "redis://localhost:59999", "learn")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

func TestMemoryGuard_RejectsSecondHolder(t *testing.T) {
	g := NewMemoryGuard()
	ctx := t.Context()

	release, ok, err := g.Acquire(ctx, "u1:c1")
	if err != nil || !ok {
		t.Fatalf("Acquire() = ok %v, err %v; want ok", ok, err)
	}

	if _, ok, _ := g.Acquire(ctx, "u1:c1"); ok {
		t.Error("second Acquire() on a held key should be rejected")
	}
	if _, ok, _ := g.Acquire(ctx, "u1:c2"); !ok {
		t.Error("Acquire() on a different key should succeed")
	}

	release()
	release() // idempotent

	if g.Held("u1:c1") {
		t.Error("key should be free after release")
	}
	if _, ok, _ := g.Acquire(ctx, "u1:c1"); !ok {
		t.Error("Acquire() after release should succeed")
	}
}

func TestMemoryGuard_Concurrent(t *testing.T) {
	g := NewMemoryGuard()
	ctx := t.Context()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := g.Acquire(ctx, "same"); ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("winners = %d, want 1", winners)
	}
}

func TestRedisGuard_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	opts, err := Options("redis://localhost:59999")
	if err != nil {
		t.Fatalf("Options() error = %v", err)
	}
	opts.DialTimeout = 200 * time.Millisecond
	c := wrap(redis.NewClient(opts), "learn")
	defer c.Close()

	g := NewRedisGuard(c, time.Second)
	if _, ok, err := g.Acquire(t.Context(), "u1:c1"); err == nil || ok {
		t.Errorf("Acquire() = ok %v, err %v; want error", ok, err)
	}
}
