// Command resonix-fixture-decoder is a stand-in external decoder for tests
// and local development: it decodes the MP3 file named on its command line
// with go-mp3 and
// writes canonical 48 kHz stereo s16-LE PCM to stdout, the same shape a
// real ffmpeg/yt-dlp pipeline would produce. Resampling uses linear
// interpolation, carried across read chunks so boundaries don't click.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

const targetSampleRate = 48000

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: resonix-fixture-decoder <path-to-mp3>")
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "resonix-fixture-decoder:", err)
		os.Exit(1)
	}
}

func run(path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return fmt.Errorf("mp3 decode: %w", err)
	}
	srcRate := dec.SampleRate()
	if srcRate <= 0 {
		return fmt.Errorf("invalid source sample rate")
	}

	w := bufio.NewWriterSize(out, 64*1024)
	defer w.Flush()

	rs := &stereoResampler{step: float64(srcRate) / float64(targetSampleRate)}
	buf := make([]byte, 4096)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			frames := bytesToStereoI16(buf[:n])
			resampled := rs.push(frames)
			if writeErr := writeStereoI16(w, resampled); writeErr != nil {
				return writeErr
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("mp3 read: %w", err)
		}
	}
	return nil
}

type stereoFrame struct{ l, r int16 }

func bytesToStereoI16(b []byte) []stereoFrame {
	n := len(b) / 4
	out := make([]stereoFrame, n)
	for i := 0; i < n; i++ {
		l := int16(uint16(b[i*4]) | uint16(b[i*4+1])<<8)
		r := int16(uint16(b[i*4+2]) | uint16(b[i*4+3])<<8)
		out[i] = stereoFrame{l, r}
	}
	return out
}

func writeStereoI16(w io.Writer, frames []stereoFrame) error {
	buf := make([]byte, len(frames)*4)
	for i, f := range frames {
		buf[i*4] = byte(uint16(f.l))
		buf[i*4+1] = byte(uint16(f.l) >> 8)
		buf[i*4+2] = byte(uint16(f.r))
		buf[i*4+3] = byte(uint16(f.r) >> 8)
	}
	_, err := w.Write(buf)
	return err
}

// stereoResampler linearly interpolates from the source sample rate to
// targetSampleRate, carrying a fractional position across Read calls so
// chunk boundaries don't introduce audible clicks.
type stereoResampler struct {
	step float64
	pos  float64
	buf  []stereoFrame
}

func (s *stereoResampler) push(in []stereoFrame) []stereoFrame {
	s.buf = append(s.buf, in...)
	var out []stereoFrame
	for {
		idx := int(s.pos)
		if idx+1 >= len(s.buf) {
			break
		}
		frac := s.pos - float64(idx)
		a, b := s.buf[idx], s.buf[idx+1]
		out = append(out, stereoFrame{
			l: lerp(a.l, b.l, frac),
			r: lerp(a.r, b.r, frac),
		})
		s.pos += s.step
	}
	if drop := int(s.pos); drop > 0 {
		if drop >= len(s.buf) {
			s.buf = s.buf[:0]
			s.pos = 0
		} else {
			s.buf = s.buf[drop:]
			s.pos -= float64(drop)
		}
	}
	return out
}

func lerp(a, b int16, frac float64) int16 {
	return int16(float64(a) + (float64(b)-float64(a))*frac)
}
