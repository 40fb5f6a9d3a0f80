package shutdown

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/resonix-dev/resonix-node/internal/player"
	"github.com/resonix-dev/resonix-node/internal/registry"
)

type allowAll struct{}

func (allowAll) Allowed(string) bool { return true }

func blockingResolve(ctx context.Context, uri string) (player.Resolved, error) {
	<-ctx.Done()
	return player.Resolved{}, ctx.Err()
}

func TestRunDrainsRegistryAndCleansTempFiles(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "resonix-")
	for _, name := range []string{"resonix-a.tmp", "resonix-b.tmp", "keepme.tmp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg := registry.New(ctx, allowAll{}, blockingResolve, nil)
	reg.Create("g1", "file:///tmp/a.wav", nil, false)

	c := New(reg, nil)
	done := make(chan struct{})
	go func() {
		c.Run(prefix)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not complete in time")
	}

	if len(reg.Ids()) != 0 {
		t.Fatalf("expected registry drained, got %v", reg.Ids())
	}
	if _, err := os.Stat(filepath.Join(dir, "resonix-a.tmp")); !os.IsNotExist(err) {
		t.Fatal("expected resonix-a.tmp to be removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "keepme.tmp")); err != nil {
		t.Fatalf("expected keepme.tmp to survive cleanup: %v", err)
	}
}
