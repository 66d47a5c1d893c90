package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vabforge/vab-orchestrator/internal/buildinfo"
)

// version and buildDate are set at build time via -ldflags
// "-X main.version=... -X main.buildDate=...". The version command does not
// set a system ID.
var (
	version   = "dev"
	buildDate = "unknown"
)

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := &buildinfo.Context{Version: version, BuildDate: buildDate}
			fmt.Printf("vabctl %s (built %s)\n", ctx.GetVersion(), ctx.GetBuildDate())
			return nil
		},
	}
}
