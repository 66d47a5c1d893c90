// utils.go default config search paths
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	exePath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("fetching executable path: %w", err)
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("fetching user home directory: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		configPaths = []string{
			exeDir,
			filepath.Join(homeDir, "AppData", "Roaming", "vab-orchestrator"),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "vab-orchestrator"),
			"/etc/vab-orchestrator",
		}
	}

	return configPaths, nil
}

// GetBasePath expands environment variables and cleans a configured path,
// creating it if it does not yet exist.
func GetBasePath(path string) string {
	expanded := os.ExpandEnv(path)
	base := filepath.Clean(expanded)
	if base == "" || base == "." {
		return base
	}
	_ = os.MkdirAll(base, 0o755)
	return base
}
