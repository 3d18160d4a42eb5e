package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"NotesAI/internal/commands"
	"NotesAI/internal/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	// Load unified config (env + flags)
	cfg := config.NewConfig()

	if cfg.Version {
		printVersion()
		return
	}

	logger, err := newLogger(cfg.LogJSON)
	if err != nil {
		panic(err)
	}
	commands.Logger = logger.Sugar()
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// dispatcher
	exitCode := commands.Dispatch(ctx, cfg, cfg.Args)
	if exitCode == 0 {
		return
	}
	os.Exit(exitCode)
}

// newLogger пишет в stderr только предупреждения, чтобы не мешать выводу команд.
func newLogger(json bool) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if json {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func printVersion() {
	fmt.Printf("NotesAI CLI\nVersion: %s\nBuild date: %s\n", version, buildDate)
}
