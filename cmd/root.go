// Package cmd wires the evened command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/villedieurio/evened-web/cmd/config"
	"github.com/villedieurio/evened-web/cmd/render"
	"github.com/villedieurio/evened-web/cmd/serve"
	"github.com/villedieurio/evened-web/internal/app"
	"github.com/villedieurio/evened-web/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "evened",
		Short:         "Evened session dashboard",
		Long:          "Browse acoustic monitoring sessions: serve the dashboard over HTTP or render pages offline.",
		Version:       ctx.BuildInfo.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Path to config.yaml (default: search ./, ~/.config/evened, /etc/evened)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("source-type", conf.DefaultSourceType, "Data source type: dir or http")
	flags.String("source-path", conf.DefaultSourcePath, "Root directory of the dir source")
	flags.String("source-url", "", "Base URL of the http source")
	flags.String("feed", conf.DefaultFeedPath, "Feed document path relative to the source root")

	if err := conf.BindFlags(flags, map[string]string{
		"debug":       "debug",
		"source-type": "source.type",
		"source-path": "source.path",
		"source-url":  "source.baseurl",
		"feed":        "source.feedpath",
	}); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(
		serve.Command(ctx),
		render.Command(ctx),
		config.Command(ctx),
	)

	// initialize is called before any subcommand runs, once flags are parsed
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return ctx.Initialize(configFile)
	}
	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return ctx.Close()
	}

	return rootCmd
}
