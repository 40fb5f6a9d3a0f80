// Package config loads the Resonix Node server configuration from a TOML
// file, then layers environment variable overrides on top. A config value
// whose string starts with "$" is resolved against the named environment
// variable ("$SPOTIFY_CLIENT_ID" means "use the value of the
// SPOTIFY_CLIENT_ID environment variable").
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the process-wide configuration, read once at startup.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Resolver ResolverConfig `toml:"resolver"`
	URLs     URLPolicyConfig `toml:"urls"`
	Player   PlayerConfig   `toml:"player"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Password string `toml:"password"`
}

type ResolverConfig struct {
	Enabled    bool   `toml:"enabled"`
	TimeoutMS  int    `toml:"timeout_ms"`
	YtDlpPath  string `toml:"ytdlp_path"`
	FfmpegPath string `toml:"ffmpeg_path"`
}

type URLPolicyConfig struct {
	Allow []string `toml:"allow"`
	Block []string `toml:"block"`
}

type PlayerConfig struct {
	PauseTimeoutSeconds  int `toml:"pause_timeout_seconds"`
	PauseBufferFrames    int `toml:"pause_buffer_frames"`
	SubscriberQueueDepth int `toml:"subscriber_queue_depth"`
	DecoderStallSeconds  int `toml:"decoder_stall_seconds"`
}

type LoggingConfig struct {
	Level            string `toml:"level"`
	TruncateOnStart  bool   `toml:"truncate_on_start"`
}

// Default returns the configuration written by --init-config; Load starts
// from it, so keys missing from the file keep these values. A missing
// config file is an error in Load, not a fallback to Default.
func Default() Config {
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 2333, Password: ""},
		Resolver: ResolverConfig{
			Enabled:    true,
			TimeoutMS:  20000,
			YtDlpPath:  "$YTDLP_PATH",
			FfmpegPath: "$FFMPEG_PATH",
		},
		URLs: URLPolicyConfig{Allow: []string{".*"}, Block: nil},
		Player: PlayerConfig{
			PauseTimeoutSeconds:  60,
			PauseBufferFrames:    250,
			SubscriberQueueDepth: 10,
			DecoderStallSeconds:  10,
		},
		Logging: LoggingConfig{Level: "info", TruncateOnStart: true},
	}
}

// Load reads and decodes the TOML file at path, then applies environment
// overrides and indirection.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	resolveIndirection(&cfg)
	return cfg, nil
}

// WriteDefault writes the default configuration to path as TOML. It refuses
// to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(Default())
}

// ResolveTimeout returns the resolver timeout as a time.Duration.
func (c ResolverConfig) ResolveTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RESONIX_RESOLVE"); v != "" {
		cfg.Resolver.Enabled = parseBool(v, cfg.Resolver.Enabled)
	}
	if v := os.Getenv("RESOLVE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Resolver.TimeoutMS = n
		}
	}
	if v := os.Getenv("YTDLP_PATH"); v != "" {
		cfg.Resolver.YtDlpPath = v
	}
	if v := os.Getenv("FFMPEG_PATH"); v != "" {
		cfg.Resolver.FfmpegPath = v
	}
	if v := os.Getenv("RESONIX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// resolveIndirection resolves fields whose value names an env var
// ("$FOO" -> value of FOO): the yt-dlp and ffmpeg paths and the server
// password. Spotify credentials are read separately by SpotifyCredentials.
func resolveIndirection(cfg *Config) {
	cfg.Resolver.YtDlpPath = indirect(cfg.Resolver.YtDlpPath)
	cfg.Resolver.FfmpegPath = indirect(cfg.Resolver.FfmpegPath)
	cfg.Server.Password = indirect(cfg.Server.Password)
}

func indirect(v string) string {
	if strings.HasPrefix(v, "$") {
		return os.Getenv(strings.TrimPrefix(v, "$"))
	}
	return v
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

// SpotifyCredentials reads SPOTIFY_CLIENT_ID/_SECRET from the environment
// for resolver collaborators that need them.
func SpotifyCredentials() (id, secret string) {
	return os.Getenv("SPOTIFY_CLIENT_ID"), os.Getenv("SPOTIFY_CLIENT_SECRET")
}
