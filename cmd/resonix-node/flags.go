package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

type cliConfig struct {
	configPath  string
	showVersion bool
	initConfig  bool
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("resonix-node", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.configPath, "config", "resonix.toml", "Path to the TOML configuration file")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&cfg.initConfig, "init-config", false, "Write a default configuration file and exit")

	var shortVersion bool
	fs.BoolVar(&shortVersion, "V", false, "Print version and exit (alias for -version)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if shortVersion {
		cfg.showVersion = true
	}
	if cfg.configPath == "" {
		return nil, errors.New("config path must not be empty")
	}
	return cfg, nil
}

func printVersion() {
	fmt.Println(version)
}
