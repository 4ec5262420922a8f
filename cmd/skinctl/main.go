// Package main provides the skinctl save data tool.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	platformcmd "github.com/Gathouria/Adopt-Skin/internal/platform/cmd"
	"github.com/Gathouria/Adopt-Skin/internal/platform/config"
	"github.com/Gathouria/Adopt-Skin/internal/tools/skinctl"
)

func main() {
	cfg, err := skinctl.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	err = platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceSkinctl, func(ctx context.Context) error {
		return skinctl.Run(ctx, cfg, os.Stdout, os.Stderr)
	})
	if err != nil {
		config.Exitf("Error: %v", err)
	}
}
