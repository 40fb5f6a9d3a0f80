// Command resonix-node runs the audio relay server: it serves the HTTP
// control surface and the per-player WebSocket PCM stream over one
// listener. Startup and graceful shutdown follow the signal-context
// pattern used by this stack's other server entrypoints.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/resonix-dev/resonix-node/internal/auth"
	"github.com/resonix-dev/resonix-node/internal/config"
	"github.com/resonix-dev/resonix-node/internal/httpapi"
	"github.com/resonix-dev/resonix-node/internal/logging"
	"github.com/resonix-dev/resonix-node/internal/player"
	"github.com/resonix-dev/resonix-node/internal/registry"
	"github.com/resonix-dev/resonix-node/internal/resolver"
	"github.com/resonix-dev/resonix-node/internal/shutdown"
	"github.com/resonix-dev/resonix-node/internal/urlpolicy"
	"github.com/resonix-dev/resonix-node/internal/wsrelay"
)

// resolvePathAdapter satisfies httpapi.Resolver using the resolver
// package's ResolvePath, which returns just the decoder-facing path/URL.
type resolvePathAdapter struct{ a *resolver.Adapter }

func (r resolvePathAdapter) Resolve(ctx context.Context, uri string) (string, error) {
	return r.a.ResolvePath(ctx, uri)
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if cfg.showVersion {
		printVersion()
		return
	}
	if cfg.initConfig {
		if err := config.WriteDefault(cfg.configPath); err != nil {
			fmt.Fprintln(os.Stderr, "init-config:", err)
			os.Exit(1)
		}
		return
	}

	cfgFile, err := config.Load(cfg.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	logging.Init()
	logging.SetLevel(cfgFile.Logging.Level)
	log := logging.Logger().With("component", "cli")

	policy, policyErrs := urlpolicy.Compile(cfgFile.URLs.Allow, cfgFile.URLs.Block)
	for _, e := range policyErrs {
		log.Warn("invalid url policy pattern", "err", e)
	}

	res := resolver.New(cfgFile.Resolver.Enabled, cfgFile.Resolver.ResolveTimeout(), resolver.Tool{
		FfmpegPath: cfgFile.Resolver.FfmpegPath,
		YtDlpPath:  cfgFile.Resolver.YtDlpPath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New(ctx, policy, player.Resolver(res.Resolve), log)

	var checker *auth.Checker
	if cfgFile.Server.Password != "" {
		checker = auth.New(cfgFile.Server.Password)
	}

	relay := wsrelay.New(reg, log)
	api := httpapi.New(reg, resolvePathAdapter{res}, checker, log)

	r := chi.NewRouter()
	r.Mount("/", api)
	r.Get("/players/{id}/ws", relay.Handler())

	addr := fmt.Sprintf("%s:%d", cfgFile.Server.Host, cfgFile.Server.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Info("resonix-node listening", "addr", addr, "version", version)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	coordinator := shutdown.New(reg, log)
	done := make(chan struct{})
	go func() {
		coordinator.Run(os.TempDir() + "/resonix-")
		close(done)
	}()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = server.Shutdown(shutdownCtx)

	select {
	case <-done:
		log.Info("shutdown complete")
	case <-shutdownCtx.Done():
		log.Warn("forced exit after shutdown timeout")
	}
}
