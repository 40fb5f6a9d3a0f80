// Package shutdown drives every registered player to a terminal state on
// process shutdown and best-effort unlinks temp-prefix files, mirroring
// the supervisor's signal-driven drain-then-cleanup sequence.
package shutdown

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/resonix-dev/resonix-node/internal/registry"
)

// PerPlayerBudget bounds how long each player is given to reach a
// terminal state during coordinated shutdown.
const PerPlayerBudget = 500 * time.Millisecond

// Coordinator drains a Registry and cleans up temp artifacts on shutdown.
type Coordinator struct {
	reg *registry.Registry
	log *slog.Logger
}

// New constructs a Coordinator for reg.
func New(reg *registry.Registry, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{reg: reg, log: log}
}

// Run drains every player in the registry with PerPlayerBudget each, then
// best-effort unlinks every path under tempPrefix. Completion is not
// guaranteed on abrupt termination (process kill, panic) — this is a
// best-effort cleanup pass, not a transactional one.
func (c *Coordinator) Run(tempPrefix string) {
	ids := c.reg.Ids()
	c.log.Info("shutdown: draining players", "count", len(ids))

	c.reg.Shutdown(PerPlayerBudget)

	if tempPrefix == "" {
		return
	}
	removed, err := removeTempPrefixed(tempPrefix)
	if err != nil {
		c.log.Warn("shutdown: temp cleanup incomplete", "err", err)
	}
	c.log.Info("shutdown: temp cleanup complete", "removed", removed)
}

// removeTempPrefixed removes every file directly under the directory
// containing tempPrefix whose name starts with tempPrefix's base name.
func removeTempPrefixed(tempPrefix string) (int, error) {
	dir := filepath.Dir(tempPrefix)
	base := filepath.Base(tempPrefix)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	var firstErr error
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), base) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}
