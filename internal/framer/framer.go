// Package framer re-chunks an arbitrary-sized PCM byte stream into exact
// 3,840-byte frames, zero-padding a short final frame at EOF and dropping
// a misaligned trailing remainder.
package framer

import (
	"io"
	"log/slog"

	"github.com/resonix-dev/resonix-node/internal/bufpool"
)

// FrameSize is the fixed output frame shape.
const FrameSize = bufpool.FrameSize

// sampleUnit is the byte width of one interleaved stereo i16 sample pair;
// a trailing remainder not a multiple of this is dropped, not padded.
const sampleUnit = 4

// Framer accumulates bytes read from src and emits exact FrameSize frames.
type Framer struct {
	src io.Reader
	log *slog.Logger
	acc []byte
	eof bool
}

// New wraps src, pulling from it on each Next call.
func New(src io.Reader, log *slog.Logger) *Framer {
	if log == nil {
		log = slog.Default()
	}
	return &Framer{src: src, log: log, acc: make([]byte, 0, FrameSize*2)}
}

// Next returns the next FrameSize frame, io.EOF once the stream is
// exhausted and any final partial frame has been emitted, or a read error
// from src. The returned slice is owned by the caller until the next Next
// call returns a fresh one, and should be released via bufpool.Put once
// consumed.
func (f *Framer) Next() ([]byte, error) {
	for {
		if len(f.acc) >= FrameSize {
			frame := bufpool.Get(FrameSize)
			copy(frame, f.acc[:FrameSize])
			f.acc = append(f.acc[:0], f.acc[FrameSize:]...)
			return frame, nil
		}
		if f.eof {
			return f.flushTail()
		}
		n, err := f.readMore()
		if n == 0 && err != nil {
			if err == io.EOF {
				f.eof = true
				continue
			}
			return nil, err
		}
	}
}

// readMore pulls one read's worth of bytes from src into the accumulator.
func (f *Framer) readMore() (int, error) {
	buf := make([]byte, 8192)
	n, err := f.src.Read(buf)
	if n > 0 {
		f.acc = append(f.acc, buf[:n]...)
	}
	return n, err
}

// flushTail emits the final short frame, if any, zero-padded to FrameSize,
// after dropping 1-3 misaligned trailing bytes, then signals end-of-stream
// on the call after that.
func (f *Framer) flushTail() ([]byte, error) {
	if len(f.acc) == 0 {
		return nil, io.EOF
	}
	tail := f.acc
	if rem := len(tail) % sampleUnit; rem != 0 {
		f.log.Warn("framer: dropping misaligned trailing bytes", "bytes", rem)
		tail = tail[:len(tail)-rem]
	}
	frame := bufpool.Get(FrameSize)
	copy(frame, tail)
	f.acc = nil
	if len(tail) == 0 {
		bufpool.Put(frame)
		return nil, io.EOF
	}
	return frame, nil
}
