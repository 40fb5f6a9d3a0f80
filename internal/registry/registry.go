// Package registry implements the process-wide map of player id to Player,
// with create/lookup/delete/control operations. Reads are lock-free after
// lookup so a long-running delete never blocks concurrent subscribers,
// following the same read-mostly map-plus-RWMutex shape the bridge
// service uses for its per-user client table.
package registry

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/resonix-dev/resonix-node/internal/dsp"
	"github.com/resonix-dev/resonix-node/internal/fanout"
	"github.com/resonix-dev/resonix-node/internal/player"
	"github.com/resonix-dev/resonix-node/internal/resonixerr"
)

// CreateResult is the outcome of a Create call.
type CreateResult int

const (
	Created CreateResult = iota
	ResultBlocked
	ResultExists
	ResultBadInput
)

// DeleteBudget bounds how long Delete waits for the player to reach a
// terminal state before returning with cleanup continuing in background.
const DeleteBudget = 3 * time.Second

// URLPolicy gates creation by source URI, per the allow/block regex layer.
type URLPolicy interface {
	Allowed(uri string) bool
}

// Registry is the process-wide id -> Player map.
type Registry struct {
	log     *slog.Logger
	policy  URLPolicy
	resolve player.Resolver

	mu      sync.RWMutex
	players map[string]*player.Player
	ctx     context.Context
}

// New constructs an empty Registry. ctx governs every player's lifetime;
// canceling it (e.g. on process shutdown) unblocks every in-flight Run.
func New(ctx context.Context, policy URLPolicy, resolve player.Resolver, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		log:     log,
		policy:  policy,
		resolve: resolve,
		players: make(map[string]*player.Player),
		ctx:     ctx,
	}
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Create inserts a new Player under id and starts its Initializing
// sequence asynchronously, returning immediately once the Registry has
// recorded it.
func (r *Registry) Create(id, uri string, hints map[string]string, loop bool) CreateResult {
	if id == "" || uri == "" || !idPattern.MatchString(id) {
		return ResultBadInput
	}
	if r.policy != nil && !r.policy.Allowed(uri) {
		return ResultBlocked
	}

	r.mu.Lock()
	if _, exists := r.players[id]; exists {
		r.mu.Unlock()
		return ResultExists
	}
	p := player.New(id, uri, hints, loop, r.resolve, r.log)
	r.players[id] = p
	r.mu.Unlock()

	go p.Run(r.ctx)
	return Created
}

// Lookup returns the Player for id, if present. Safe to call concurrently
// with Create/Delete; never blocks behind a long-running delete.
func (r *Registry) Lookup(id string) (*player.Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	return p, ok
}

// ControlOp identifies a control-plane operation against an existing
// Player.
type ControlOp int

const (
	OpPlay ControlOp = iota
	OpPause
)

// Control applies op to the Player identified by id.
func (r *Registry) Control(id string, op ControlOp) error {
	p, ok := r.Lookup(id)
	if !ok {
		return resonixerr.New(resonixerr.KindNotFound, "registry.Control", nil)
	}
	switch op {
	case OpPlay:
		return p.Play()
	case OpPause:
		return p.Pause()
	default:
		return resonixerr.New(resonixerr.KindBadInput, "registry.Control", nil)
	}
}

// UpdateFilters applies a filter snapshot to the Player identified by id.
func (r *Registry) UpdateFilters(id string, bands [dsp.NumBands]dsp.Band, volume float64) error {
	p, ok := r.Lookup(id)
	if !ok {
		return resonixerr.New(resonixerr.KindNotFound, "registry.UpdateFilters", nil)
	}
	return p.UpdateFilters(bands, volume)
}

// Delete drives the Player to a terminal state and removes it from the
// map, within DeleteBudget. If the budget elapses first, the player is
// still removed from lookups immediately and cleanup completes in the
// background.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	p, ok := r.players[id]
	if ok {
		delete(r.players, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	p.Shutdown(fanout.ClosePlayerDeleted, DeleteBudget)
	return true
}

// Ids returns a snapshot of the currently registered player ids.
func (r *Registry) Ids() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.players))
	for id := range r.players {
		out = append(out, id)
	}
	return out
}

// Shutdown drives every registered player to a terminal state with a
// per-player budget, used by the shutdown coordinator.
func (r *Registry) Shutdown(perPlayerBudget time.Duration) {
	r.mu.Lock()
	players := make([]*player.Player, 0, len(r.players))
	for id, p := range r.players {
		players = append(players, p)
		delete(r.players, id)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, p := range players {
		wg.Add(1)
		go func(p *player.Player) {
			defer wg.Done()
			p.Shutdown(fanout.ClosePlayerDeleted, perPlayerBudget)
		}(p)
	}
	wg.Wait()
}
