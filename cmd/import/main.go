package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/okian/powerwatch/internal/importcli"
	"github.com/okian/powerwatch/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := importcli.ParseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		os.Stderr.WriteString("powerwatch-import: " + err.Error() + "\n")
		os.Exit(2)
	}

	if err := logger.Init(logger.WithFormat(logger.FormatTint)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if cfg.Verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := importcli.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "import run failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}
