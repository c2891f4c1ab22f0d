package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jpdarela/luaenv/internal/cmd"
	"github.com/jpdarela/luaenv/internal/config"
	"github.com/jpdarela/luaenv/internal/core"
	"github.com/jpdarela/luaenv/internal/logging"
	"github.com/jpdarela/luaenv/internal/ui"
)

var version = "dev"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(core.ExitFailure)
	}

	log := logging.NewLogger(logging.Config{
		Level:   cfg.Logging.Level,
		LogFile: cfg.Paths.LogFile,
		NoColor: cfg.Logging.Color == "never",
	})

	ui.InitColors()

	rootCmd := cmd.NewRootCmd(cfg, log, version)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(core.ExitFailure)
	}
}
