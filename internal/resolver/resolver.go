// Package resolver translates a source URI into a direct decoder
// invocation, asynchronously and with a bounded timeout, so a slow or
// unavailable external resolver never blocks the registry's Create
// response.
package resolver

import (
	"bytes"
	"context"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/resonix-dev/resonix-node/internal/player"
	"github.com/resonix-dev/resonix-node/internal/resonixerr"
)

// Tool names the external decoder binary this adapter targets; resolver
// configuration supplies the concrete paths.
type Tool struct {
	FfmpegPath string
	YtDlpPath  string
}

// Adapter resolves source URIs into a Resolved decoder invocation for the
// player runtime. When Enabled is false, every non-local URI fails with
// ResolverDisabled.
type Adapter struct {
	Enabled bool
	Timeout time.Duration
	Tool    Tool
}

// New constructs an Adapter with the given configuration.
func New(enabled bool, timeout time.Duration, tool Tool) *Adapter {
	return &Adapter{Enabled: enabled, Timeout: timeout, Tool: tool}
}

// Resolve implements player.Resolver: it returns a decoder invocation for
// uri, or a typed error (ResolverDisabled, ResolverTimeout,
// ResolverUnavailable, BadInput).
func (a *Adapter) Resolve(ctx context.Context, uri string) (player.Resolved, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return player.Resolved{}, resonixerr.New(resonixerr.KindBadInput, "resolver.Resolve", err)
	}

	if parsed.Scheme == "file" {
		path := parsed.Path
		return player.Resolved{
			DecoderPath: a.Tool.FfmpegPath,
			DecoderArgs: ffmpegArgs(path),
		}, nil
	}

	if !a.Enabled {
		return player.Resolved{}, resonixerr.New(resonixerr.KindResolverDisabled, "resolver.Resolve", nil)
	}

	rctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	direct, err := a.resolveDirectURL(rctx, uri)
	if err != nil {
		if rctx.Err() != nil {
			return player.Resolved{}, resonixerr.New(resonixerr.KindResolverTimeout, "resolver.Resolve", err)
		}
		return player.Resolved{}, resonixerr.New(resonixerr.KindResolverUnavailable, "resolver.Resolve", err)
	}

	return player.Resolved{
		DecoderPath: a.Tool.FfmpegPath,
		DecoderArgs: ffmpegArgs(direct),
	}, nil
}

// execYtDlp turns a page URL into a direct media URL, shelling out to
// yt-dlp (or an equivalent page-to-media resolver) when needed. It is the
// function resolveDirectURL calls, kept in a variable so tests can stub it
// out.
var execYtDlp = defaultResolveDirectURL

func (a *Adapter) resolveDirectURL(ctx context.Context, uri string) (string, error) {
	if a.Tool.YtDlpPath == "" {
		return "", resonixerr.New(resonixerr.KindResolverUnavailable, "resolver.resolveDirectURL", nil)
	}
	return execYtDlp(ctx, a.Tool.YtDlpPath, uri)
}

func defaultResolveDirectURL(ctx context.Context, ytDlpPath, uri string) (string, error) {
	// Direct passthrough for URIs that already look like playable media;
	// yt-dlp is only invoked for page URLs that need extraction.
	if looksLikeDirectMedia(uri) {
		return uri, nil
	}
	out, err := runYtDlp(ctx, ytDlpPath, uri)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func looksLikeDirectMedia(uri string) bool {
	for _, suffix := range []string{".mp3", ".wav", ".ogg", ".flac", ".m4a"} {
		if strings.HasSuffix(strings.ToLower(uri), suffix) {
			return true
		}
	}
	return false
}

// runYtDlp invokes the configured yt-dlp binary to print a direct media
// URL for a page URL, under the caller's timeout context.
func runYtDlp(ctx context.Context, ytDlpPath, uri string) (string, error) {
	cmd := exec.CommandContext(ctx, ytDlpPath, "-g", "-f", "bestaudio", uri)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return stdout.String(), nil
}

// ResolvePath implements httpapi.Resolver for GET /resolve: it returns the
// direct URL or local path the decoder would be pointed at, without
// spawning anything.
func (a *Adapter) ResolvePath(ctx context.Context, uri string) (string, error) {
	resolved, err := a.Resolve(ctx, uri)
	if err != nil {
		return "", err
	}
	for i, arg := range resolved.DecoderArgs {
		if arg == "-i" && i+1 < len(resolved.DecoderArgs) {
			return resolved.DecoderArgs[i+1], nil
		}
	}
	return "", resonixerr.New(resonixerr.KindInternalError, "resolver.ResolvePath", nil)
}

func ffmpegArgs(input string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", input,
		"-f", "s16le", "-acodec", "pcm_s16le",
		"-ac", "2", "-ar", "48000",
		"pipe:1",
	}
}
