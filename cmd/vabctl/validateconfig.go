package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vabforge/vab-orchestrator/internal/conf"
)

// validateConfigCommand prints a summary of the configuration that the root
// command already loaded and validated, without starting anything, for CI
// and pre-deploy checks. A load or validation failure is reported by the
// root command before this runs.
func validateConfigCommand(settings **conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Validate the resolved configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *settings
			fmt.Printf("config OK: tile=%dx%d stride=%d gpu_semaphore=%d store=%s\n",
				s.Detection.Tile.Size, s.Detection.Tile.Size, s.Detection.Tile.Stride,
				s.Runtime.GPUSemaphore, s.Store.Path)
			return nil
		},
	}
}
