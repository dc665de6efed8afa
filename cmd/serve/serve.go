// Package serve implements the serve command.
package serve

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/villedieurio/evened-web/internal/app"
	"github.com/villedieurio/evened-web/internal/conf"
	"github.com/villedieurio/evened-web/internal/httpcontroller"
	"github.com/villedieurio/evened-web/internal/logger"
)

// Command creates the serve command.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		Long:  "Start the HTTP server with the dashboard page, the JSON API and, when telemetry is enabled, /metrics.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), ctx)
		},
	}

	cmd.Flags().String("port", conf.DefaultPort, "Port to listen on")
	cmd.Flags().Bool("telemetry", false, "Serve Prometheus metrics on /metrics")
	if err := conf.BindFlags(cmd.Flags(), map[string]string{
		"port":      "webserver.port",
		"telemetry": "telemetry.enabled",
	}); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func run(c context.Context, ctx *app.Context) error {
	l, err := ctx.NewLoader()
	if err != nil {
		return err
	}

	srv, err := httpcontroller.New(ctx.Settings, l,
		httpcontroller.WithLogger(ctx.Logger),
		httpcontroller.WithMetrics(ctx.Metrics))
	if err != nil {
		return err
	}

	ctx.Logger.Info("serving dashboard",
		logger.String("source", ctx.Settings.Source.Type),
		logger.String("feed", l.FeedPath()),
		logger.String("port", ctx.Settings.WebServer.Port))
	return srv.Start(c)
}
