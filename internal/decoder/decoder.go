// Package decoder spawns and supervises the external decoder process that
// produces raw 48 kHz stereo i16-LE PCM on stdout for one player. Process
// lifecycle (pipes, graceful-then-forced termination, stderr capture)
// follows the instance supervisor pattern used elsewhere in this stack,
// adapted from a multi-instance process group down to one child per player.
package decoder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/resonix-dev/resonix-node/internal/resonixerr"
)

// StallTimeout is how long the decoder may go without producing stdout
// bytes while the player is Playing before it is considered stalled.
const StallTimeout = 10 * time.Second

// KillGrace is how long SIGTERM is given to end the child before SIGKILL.
const KillGrace = 2 * time.Second

// stderrCaptureLimit bounds the stderr tail kept for diagnostics.
const stderrCaptureLimit = 4 * 1024

// Decoder supervises one spawned decoder child process.
type Decoder struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *capturedWriter

	mu       sync.Mutex
	exited   bool
	exitErr  error
	exitedCh chan struct{}

	lastReadAt atomic
}

// atomic guards a time.Time with a mutex: Read writes it from the
// streaming goroutine and Stalled reads it.
type atomic struct {
	mu sync.Mutex
	t  time.Time
}

func (a *atomic) set(t time.Time) {
	a.mu.Lock()
	a.t = t
	a.mu.Unlock()
}

func (a *atomic) get() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.t
}

// Spawn starts path with args, wiring stdout for PCM reads and capturing a
// bounded stderr tail. ctx governs the child's lifetime; canceling it (or
// calling Kill) terminates the child.
func Spawn(ctx context.Context, path string, args []string) (*Decoder, error) {
	cmd := exec.CommandContext(ctx, path, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, resonixerr.New(resonixerr.KindDecoderSpawnFailed, "decoder.Spawn", err)
	}
	stderrCap := newCapturedWriter(stderrCaptureLimit)
	cmd.Stderr = stderrCap

	if err := cmd.Start(); err != nil {
		return nil, resonixerr.New(resonixerr.KindDecoderSpawnFailed, "decoder.Spawn", err)
	}

	d := &Decoder{
		cmd:      cmd,
		stdout:   stdout,
		stderr:   stderrCap,
		exitedCh: make(chan struct{}),
	}
	d.lastReadAt.set(time.Now())

	go d.wait()
	return d, nil
}

func (d *Decoder) wait() {
	err := d.cmd.Wait()
	d.mu.Lock()
	d.exited = true
	d.exitErr = err
	d.mu.Unlock()
	close(d.exitedCh)
}

// Read implements io.Reader over the child's stdout, tracking the time of
// the last successful read for stall detection.
func (d *Decoder) Read(p []byte) (int, error) {
	n, err := d.stdout.Read(p)
	if n > 0 {
		d.lastReadAt.set(time.Now())
	}
	return n, err
}

// Stalled reports whether more than StallTimeout has elapsed since the last
// stdout byte was read and the child is still running.
func (d *Decoder) Stalled() bool {
	if d.Exited() {
		return false
	}
	return time.Since(d.lastReadAt.get()) > StallTimeout
}

// Exited reports whether the child process has exited.
func (d *Decoder) Exited() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exited
}

// ExitErr returns the error from the child's exit, if it has exited.
func (d *Decoder) ExitErr() (error, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exitErr, d.exited
}

// StderrTail returns the bounded captured stderr output so far.
func (d *Decoder) StderrTail() string {
	return d.stderr.String()
}

// Pid returns the child's process id.
func (d *Decoder) Pid() int {
	if d.cmd.Process == nil {
		return 0
	}
	return d.cmd.Process.Pid
}

// Kill sends SIGTERM and waits up to KillGrace for the child to exit before
// sending SIGKILL. It returns once the child has been reaped.
func (d *Decoder) Kill() {
	if d.Exited() {
		return
	}
	if d.cmd.Process != nil {
		_ = d.cmd.Process.Signal(terminateSignal)
	}
	select {
	case <-d.exitedCh:
		return
	case <-time.After(KillGrace):
	}
	if d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	<-d.exitedCh
}

// Classify turns a terminal decoder condition into the appropriate typed
// error, given whether the player had emitted at least one frame yet.
func (d *Decoder) Classify(firstFrameEmitted bool) error {
	err, exited := d.ExitErr()
	switch {
	case d.Stalled():
		return resonixerr.New(resonixerr.KindDecoderStalled, "decoder.Classify",
			fmt.Errorf("no stdout for > %s (pid %d): %s", StallTimeout, d.Pid(), d.StderrTail()))
	case exited && err != nil && !firstFrameEmitted:
		return resonixerr.New(resonixerr.KindDecoderEarlyExit, "decoder.Classify",
			fmt.Errorf("%w: stderr: %s", err, d.StderrTail()))
	case exited && err != nil:
		return resonixerr.New(resonixerr.KindDecoderEarlyExit, "decoder.Classify",
			fmt.Errorf("%w: stderr: %s", err, d.StderrTail()))
	case exited:
		return nil // clean EOF, zero exit status
	default:
		return nil
	}
}

// capturedWriter is an io.Writer that keeps only the last limit bytes
// written to it, for bounded stderr diagnostics.
type capturedWriter struct {
	mu    sync.Mutex
	limit int
	buf   bytes.Buffer
}

func newCapturedWriter(limit int) *capturedWriter {
	return &capturedWriter{limit: limit}
}

func (c *capturedWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Write(p)
	if excess := c.buf.Len() - c.limit; excess > 0 {
		c.buf.Next(excess)
	}
	return len(p), nil
}

func (c *capturedWriter) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}
