package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/villedieurio/evened-web/cmd"
	"github.com/villedieurio/evened-web/internal/app"
	"github.com/villedieurio/evened-web/internal/buildinfo"
)

// Set at build time:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.buildDate=$(date -u +%F)"
var (
	version   string
	buildDate string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := app.NewContext(buildinfo.NewContext(version, buildDate))
	rootCmd := cmd.RootCommand(appCtx)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
