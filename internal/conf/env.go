// env.go - environment variable bindings for the recognized configuration
// surface (spec.md §6: STORE_PATH, MAX_VIDEO_MB, MIME_WHITELIST, VL_API_BASE,
// VL_MODEL, QUEUE_HOST, QUEUE_PORT).
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

func lookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// envBinding ties an environment variable to a Viper config key, with an
// optional validator run at bind time.
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"store.path", "STORE_PATH", validateNonEmpty},
		{"http.maxvideomb", "MAX_VIDEO_MB", validatePositiveInt},
		{"http.mimewhitelist", "MIME_WHITELIST", nil}, // comma-separated, parsed by viper's slice hook
		{"vl.apibase", "VL_API_BASE", validateNonEmpty},
		{"vl.model", "VL_MODEL", validateNonEmpty},
		{"queue.host", "QUEUE_HOST", validateNonEmpty},
		{"queue.port", "QUEUE_PORT", validatePositiveInt},
	}
}

// bindEnv binds each recognized environment variable to its Viper key and
// validates values that are actually set.
func bindEnv() error {
	for _, b := range getEnvBindings() {
		if err := viper.BindEnv(b.ConfigKey, b.EnvVar); err != nil {
			return fmt.Errorf("binding %s: %w", b.EnvVar, err)
		}
		if b.Validate == nil {
			continue
		}
		if raw, ok := lookupEnv(b.EnvVar); ok {
			if err := b.Validate(raw); err != nil {
				return fmt.Errorf("%s=%q: %w", b.EnvVar, raw, err)
			}
		}
	}
	return nil
}

func validateNonEmpty(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

func validatePositiveInt(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("must be an integer: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
