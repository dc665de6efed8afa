// Package config implements the config command.
package config

import (
	"github.com/spf13/cobra"

	"github.com/villedieurio/evened-web/internal/app"
	"github.com/villedieurio/evened-web/internal/conf"
)

// Command creates the config command.
func Command(ctx *app.Context) *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if defaults {
				_, err := cmd.OutOrStdout().Write(conf.DefaultConfigYAML())
				return err
			}
			return conf.DumpYAML(cmd.OutOrStdout(), ctx.Settings)
		},
	}

	cmd.Flags().BoolVar(&defaults, "defaults", false, "Print the built-in default config.yaml instead")

	return cmd
}
