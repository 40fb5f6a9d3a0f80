// Package player implements the per-id runtime that owns a decoder, a DSP
// chain, and at most one subscriber, and drives the Initializing ->
// Playing <-> Paused -> {Ended, Failed} lifecycle.
package player

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/resonix-dev/resonix-node/internal/bufpool"
	"github.com/resonix-dev/resonix-node/internal/clock"
	"github.com/resonix-dev/resonix-node/internal/decoder"
	"github.com/resonix-dev/resonix-node/internal/dsp"
	"github.com/resonix-dev/resonix-node/internal/fanout"
	"github.com/resonix-dev/resonix-node/internal/framer"
	"github.com/resonix-dev/resonix-node/internal/resonixerr"
)

// State is one of the lifecycle states in the player state machine.
type State int

const (
	Initializing State = iota
	Playing
	Paused
	Ended
	Failed
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// PauseBufferFrames is the nominal pause-buffer size in frames. The
// streaming loop does not apply it: while paused it stops reading the
// decoder's stdout, so what the decoder can write ahead is bounded by the
// OS pipe buffer and the decoder's own buffering, not by this count.
const PauseBufferFrames = 250

// PauseTimeout is how long a Pause may last before the player fails with
// PauseTimeout.
const PauseTimeout = 60 * time.Second

// Resolved is what the resolver adapter hands back: the decoder binary and
// the argv used to spawn it (the argv carries the direct URL or local
// path), plus any temp paths the player takes ownership of.
type Resolved struct {
	DecoderPath string
	DecoderArgs []string
	TempPaths   []string
}

// Resolver translates a source URI into a Resolved decoder invocation.
type Resolver func(ctx context.Context, uri string) (Resolved, error)

// Stats is a point-in-time snapshot of one player's runtime counters,
// modeled on the bridge client's per-connection stats.
type Stats struct {
	State           string
	FramesEmitted   uint64
	FramesDropped   uint64
	DecoderRestarts int
	CreatedAt       time.Time
	LastActivityAt  time.Time
}

// Player is the per-id audio runtime.
type Player struct {
	ID    string
	URI   string
	Hints map[string]string
	Loop  bool

	log     *slog.Logger
	resolve Resolver
	fanout  *fanout.Fanout
	filters *dsp.Filters
	clk     *clock.FrameClock

	mu             sync.Mutex
	state          State
	dec            *decoder.Decoder
	framesEmitted  uint64
	decoderRestart int
	createdAt      time.Time
	lastActivity   time.Time
	tempArtifacts  map[string]struct{}

	cmdCh    chan command
	done     chan struct{}
	shutdown chan struct{}
	once     sync.Once
}

type commandKind int

const (
	cmdPlay commandKind = iota
	cmdPause
	cmdUpdateFilters
)

type command struct {
	kind   commandKind
	bands  [dsp.NumBands]dsp.Band
	volume float64
	reply  chan error
}

// New constructs a Player in the Initializing state. Run must be called to
// start the resolve/spawn/stream sequence.
func New(id, uri string, hints map[string]string, loop bool, resolve Resolver, log *slog.Logger) *Player {
	if log == nil {
		log = slog.Default()
	}
	now := time.Now()
	return &Player{
		ID:            id,
		URI:           uri,
		Hints:         hints,
		Loop:          loop,
		log:           log.With("player", id),
		resolve:       resolve,
		fanout:        fanout.New(fanout.QueueDepth),
		filters:       dsp.NewFilters(),
		clk:           clock.New(),
		state:         Initializing,
		createdAt:     now,
		lastActivity:  now,
		tempArtifacts: make(map[string]struct{}),
		cmdCh:         make(chan command, 4),
		done:          make(chan struct{}),
		shutdown:      make(chan struct{}),
	}
}

// Fanout exposes the subscriber attach point for the WS transport layer.
func (p *Player) Fanout() *fanout.Fanout { return p.fanout }

// State returns the current lifecycle state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.lastActivity = time.Now()
	p.mu.Unlock()
}

// Stats returns a snapshot of the player's current counters.
func (p *Player) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		State:           p.state.String(),
		FramesEmitted:   p.framesEmitted,
		FramesDropped:   p.fanout.Dropped(),
		DecoderRestarts: p.decoderRestart,
		CreatedAt:       p.createdAt,
		LastActivityAt:  p.lastActivity,
	}
}

// Run resolves the source, spawns the decoder, and runs the streaming loop
// until the player reaches a terminal state. It is meant to be run in its
// own goroutine by the registry immediately after Create.
func (p *Player) Run(ctx context.Context) {
	defer close(p.done)
	for {
		resolved, err := p.resolve(ctx, p.URI)
		if err != nil {
			p.log.Error("resolve failed", "err", err)
			p.setState(Failed)
			p.fanout.Close(fanout.CloseDecoderError)
			return
		}
		p.mu.Lock()
		for _, t := range resolved.TempPaths {
			p.tempArtifacts[t] = struct{}{}
		}
		p.mu.Unlock()

		dec, err := decoder.Spawn(ctx, resolved.DecoderPath, resolved.DecoderArgs)
		if err != nil {
			p.log.Error("decoder spawn failed", "err", err)
			p.setState(Failed)
			p.fanout.Close(fanout.CloseDecoderError)
			return
		}
		p.mu.Lock()
		if p.dec != nil {
			p.decoderRestart++
		}
		p.dec = dec
		p.mu.Unlock()
		p.filters.Reset()
		p.setState(Playing)
		p.clk.Reset()

		loopAgain, terminal := p.streamLoop(ctx, dec)
		if terminal != nil {
			p.setState(*terminal)
			return
		}
		if !loopAgain {
			return
		}
		// Clean EOF with loop requested: respawn and continue.
	}
}

// streamLoop runs the decode-framer and pacing loop for one decoder
// lifetime. It returns (loopAgain, terminalState): terminalState is
// non-nil when the player must stop; loopAgain is true when the caller
// should respawn the decoder because Loop is set and the decoder reached
// a clean EOF.
func (p *Player) streamLoop(ctx context.Context, dec *decoder.Decoder) (loopAgain bool, terminal *State) {
	fr := framer.New(dec, p.log)
	firstFrameEmitted := false

	for {
		select {
		case <-p.shutdown:
			dec.Kill()
			ended := Ended
			return false, &ended
		default:
		}

		if p.awaitResumeIfPaused() {
			dec.Kill()
			if p.State() == Failed {
				failed := Failed
				return false, &failed
			}
			ended := Ended
			return false, &ended
		}

		frame, err := fr.Next()
		if err != nil {
			dec.Kill()
			if dec.Stalled() {
				failed := Failed
				p.fanout.Close(fanout.CloseDecoderError)
				return false, &failed
			}
			classified := dec.Classify(firstFrameEmitted)
			if classified == nil {
				if p.Loop {
					return true, nil
				}
				ended := Ended
				p.fanout.Close(fanout.CloseNormal)
				return false, &ended
			}
			p.log.Warn("decoder terminated with error", "err", classified)
			failed := Failed
			p.fanout.Close(fanout.CloseDecoderError)
			return false, &failed
		}

		p.filters.Process(frame)
		p.clk.NextTick()
		// fanout.Send hands frame off to a subscriber channel read from a
		// different goroutine; the pooled buffer can't go back to bufpool
		// until that goroutine is done with it, so send an independent
		// copy and recycle the original immediately.
		outFrame := make([]byte, len(frame))
		copy(outFrame, frame)
		bufpool.Put(frame)
		p.fanout.Send(outFrame)
		firstFrameEmitted = true

		p.mu.Lock()
		p.framesEmitted++
		p.lastActivity = time.Now()
		p.mu.Unlock()

		if dec.Stalled() {
			dec.Kill()
			failed := Failed
			p.fanout.Close(fanout.CloseDecoderError)
			return false, &failed
		}
	}
}

// awaitResumeIfPaused blocks the streaming loop while Paused, honoring
// control-plane commands and the pause timeout. It returns true if the
// player should terminate: shutdown was requested while paused, or the
// pause outlasted PauseTimeout (the state is then already Failed). Commands are
// drained before the Paused check so a Pause applied (and acked) by
// drainReadyCommands takes effect before the caller pulls another frame.
func (p *Player) awaitResumeIfPaused() bool {
	p.drainReadyCommands()
	if p.State() != Paused {
		return false
	}
	timeout := time.NewTimer(PauseTimeout)
	defer timeout.Stop()
	for {
		select {
		case <-p.shutdown:
			return true
		case cmd := <-p.cmdCh:
			p.applyCommand(cmd)
			if p.State() != Paused {
				return false
			}
		case <-timeout.C:
			p.log.Warn("pause timed out", "err",
				resonixerr.New(resonixerr.KindPauseTimeout, "player.awaitResumeIfPaused", nil))
			p.setState(Failed)
			p.fanout.Close(fanout.CloseDecoderError)
			return true
		}
	}
}

// drainReadyCommands applies any control-plane commands already queued
// without blocking the streaming loop.
func (p *Player) drainReadyCommands() {
	for {
		select {
		case cmd := <-p.cmdCh:
			p.applyCommand(cmd)
		default:
			return
		}
	}
}

func (p *Player) applyCommand(cmd command) {
	switch cmd.kind {
	case cmdPlay:
		if p.State() == Paused {
			p.clk.Reset()
			p.setState(Playing)
		}
		cmd.reply <- nil
	case cmdPause:
		if p.State() == Playing {
			p.setState(Paused)
		}
		cmd.reply <- nil
	case cmdUpdateFilters:
		// Held so FilterSnapshot, called from control-plane goroutines,
		// never reads a half-written snapshot.
		p.mu.Lock()
		p.filters.Update(cmd.bands, cmd.volume)
		p.mu.Unlock()
		cmd.reply <- nil
	}
}

// sendCommand dispatches a control-plane command and waits for it to be
// applied, bounded by a short deadline so a stuck streaming loop cannot
// hang the control plane forever.
func (p *Player) sendCommand(kind commandKind, bands [dsp.NumBands]dsp.Band, volume float64) error {
	if s := p.State(); s == Ended || s == Failed {
		return resonixerr.New(resonixerr.KindNotFound, "player.sendCommand", nil)
	}
	reply := make(chan error, 1)
	cmd := command{kind: kind, bands: bands, volume: volume, reply: reply}
	select {
	case p.cmdCh <- cmd:
	case <-time.After(time.Second):
		return resonixerr.New(resonixerr.KindInternalError, "player.sendCommand", nil)
	}
	select {
	case err := <-reply:
		return err
	case <-time.After(time.Second):
		return resonixerr.New(resonixerr.KindInternalError, "player.sendCommand", nil)
	}
}

// Play resumes a paused player.
func (p *Player) Play() error { return p.sendCommand(cmdPlay, [dsp.NumBands]dsp.Band{}, 0) }

// Pause pauses a playing player without killing its decoder.
func (p *Player) Pause() error { return p.sendCommand(cmdPause, [dsp.NumBands]dsp.Band{}, 0) }

// UpdateFilters atomically swaps the filter snapshot.
func (p *Player) UpdateFilters(bands [dsp.NumBands]dsp.Band, volume float64) error {
	return p.sendCommand(cmdUpdateFilters, bands, volume)
}

// FilterSnapshot returns the currently applied bands and volume.
func (p *Player) FilterSnapshot() ([dsp.NumBands]dsp.Band, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filters.Snapshot()
}

// TempArtifacts returns the filesystem paths owned by this player.
func (p *Player) TempArtifacts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.tempArtifacts))
	for t := range p.tempArtifacts {
		out = append(out, t)
	}
	return out
}

// Shutdown drives the player to a terminal state and waits up to budget
// for the streaming loop to exit. It is idempotent.
func (p *Player) Shutdown(reason fanout.CloseReason, budget time.Duration) {
	p.once.Do(func() {
		close(p.shutdown)
		p.mu.Lock()
		if p.dec != nil {
			go p.dec.Kill()
		}
		p.mu.Unlock()
	})
	select {
	case <-p.done:
	case <-time.After(budget):
	}
	p.fanout.Close(reason)
}

// Done returns a channel closed when Run has returned.
func (p *Player) Done() <-chan struct{} { return p.done }
