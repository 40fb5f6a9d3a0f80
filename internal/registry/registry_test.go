package registry

import (
	"context"
	"testing"
	"time"

	"github.com/resonix-dev/resonix-node/internal/player"
)

func noopResolve(ctx context.Context, uri string) (player.Resolved, error) {
	<-ctx.Done()
	return player.Resolved{}, ctx.Err()
}

type allowAll struct{}

func (allowAll) Allowed(string) bool { return true }

type blockAll struct{}

func (blockAll) Allowed(string) bool { return false }

func TestCreateRejectsDuplicateId(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, allowAll{}, noopResolve, nil)

	if got := r.Create("g1", "file:///tmp/a.wav", nil, false); got != Created {
		t.Fatalf("first Create = %v, want Created", got)
	}
	if got := r.Create("g1", "file:///tmp/a.wav", nil, false); got != ResultExists {
		t.Fatalf("second Create = %v, want ResultExists", got)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, allowAll{}, noopResolve, nil)

	if got := r.Create("", "file:///tmp/a.wav", nil, false); got != ResultBadInput {
		t.Fatalf("Create with empty id = %v, want ResultBadInput", got)
	}
	if got := r.Create("g1", "", nil, false); got != ResultBadInput {
		t.Fatalf("Create with empty uri = %v, want ResultBadInput", got)
	}
}

func TestCreateRejectsBlockedURL(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, blockAll{}, noopResolve, nil)

	if got := r.Create("g1", "file:///tmp/a.wav", nil, false); got != ResultBlocked {
		t.Fatalf("Create = %v, want ResultBlocked", got)
	}
}

func TestLookupAfterCreate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, allowAll{}, noopResolve, nil)
	r.Create("g1", "file:///tmp/a.wav", nil, false)

	if _, ok := r.Lookup("g1"); !ok {
		t.Fatal("expected lookup to find g1")
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Fatal("expected lookup to miss unknown id")
	}
}

func TestDeleteThenDeleteIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, allowAll{}, noopResolve, nil)
	r.Create("g1", "file:///tmp/a.wav", nil, false)

	if !r.Delete("g1") {
		t.Fatal("first Delete = false, want true")
	}
	if r.Delete("g1") {
		t.Fatal("second Delete = true, want false")
	}
	if _, ok := r.Lookup("g1"); ok {
		t.Fatal("expected lookup to miss deleted id")
	}
}

func TestControlNotFound(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, allowAll{}, noopResolve, nil)

	if err := r.Control("missing", OpPlay); err == nil {
		t.Fatal("expected NotFound error for unknown id")
	}
}

func TestShutdownDrainsAllPlayers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, allowAll{}, noopResolve, nil)
	r.Create("g1", "file:///tmp/a.wav", nil, false)
	r.Create("g2", "file:///tmp/b.wav", nil, false)

	done := make(chan struct{})
	go func() {
		r.Shutdown(500 * time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Shutdown did not complete in time")
	}
	if len(r.Ids()) != 0 {
		t.Fatalf("Ids() after Shutdown = %v, want empty", r.Ids())
	}
}
