// Package main is the vabctl CLI: a thin Cobra wrapper over the
// orchestrator's config loader, job manager, and HTTP boundary, grounded on
// the teacher's cmd/root.go (persistent flags bound through viper, one
// subcommand per mode, a PersistentPreRunE that prepares config before any
// subcommand body runs).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vabforge/vab-orchestrator/internal/conf"
	"github.com/vabforge/vab-orchestrator/internal/logging"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var settings *conf.Settings

	cmd := &cobra.Command{
		Use:   "vabctl",
		Short: "Video Analysis Bundle orchestrator CLI",
	}

	cmd.PersistentFlags().String("config", "", "path to config.yaml (defaults to the standard search path)")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	_ = viper.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))

	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if c.Name() == "version" {
			return nil
		}
		configPath, _ := c.Flags().GetString("config")
		var err error
		if configPath != "" {
			settings, err = conf.LoadFromFile(configPath)
		} else {
			settings, err = conf.Load()
		}
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		logging.Init()
		return nil
	}

	cmd.AddCommand(
		serveCommand(&settings),
		analyzeFileCommand(&settings),
		validateConfigCommand(&settings),
		versionCommand(),
	)
	return cmd
}
