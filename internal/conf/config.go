// Package conf loads and validates the orchestrator's configuration surface:
// detection tunables, audio thresholds, runtime concurrency knobs, ablation
// flags, coverage thresholds, and environment bindings (spec.md §6).
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings is the root configuration tree, unmarshaled from YAML/env/flags
// by Viper. Field groups mirror the configuration surface in spec.md §6.
type Settings struct {
	Debug bool

	Main struct {
		Name string // node name, used as video source_node equivalent in provenance
	}

	Logging LogConfig

	Detection struct {
		Tile struct {
			Size   int // tile_size in px, default 512
			Stride int // stride in px, default 256
		}
		SuperRes struct {
			Enabled      bool
			TriggerMinH  int // sr_trigger_min_h
			UpscaleScale int // fixed 4x per spec.md §4.4 step 3
		}
		SmallObjectMinPx int // small_object_min_px, default 8 (8x8 threshold)
	}

	Audio struct {
		Loudness struct {
			TargetLUFS float64
		}
		STOI struct {
			Enabled bool
			MinOK   float64 // stoi.min_ok
		}
	}

	Runtime struct {
		FrameStride          int // default 1
		GPUSemaphore         int // G, GPU pool capacity
		QwenContextMaxFrames int // VL sampled-frame budget
		OOMFallbackOrder     []string
		Deadlines            struct {
			GPUHeavy time.Duration
			CPU      time.Duration
			VL       time.Duration
		}
	}

	Ablation struct {
		NoSR       bool
		NoTiling   bool
		LightAudio bool
	}

	Coverage struct {
		FramesAnalyzedPct float64
		LufsTracePct      float64
		StoiPct           float64
	}

	Merge struct {
		SceneSSIMThreshold float64 // default 0.45
		MaxSceneGapS       float64
	}

	Store struct {
		Path string // STORE_PATH
	}

	HTTP struct {
		MaxVideoMB    int64
		MimeWhitelist []string
		Listen        string
	}

	VL struct {
		APIBase string // VL_API_BASE
		Model   string // VL_MODEL
	}

	Queue struct {
		Host string // QUEUE_HOST
		Port int    // QUEUE_PORT
	}

	FailureBudget struct {
		MaxInternalErrorShotPct float64 // default 0.2 (20%)
	}
}

// LogConfig mirrors the teacher's LogConfig shape: a single structured log
// file, rotated by size/age, plus a dynamic console level.
type LogConfig struct {
	DefaultLevel string
	Console      struct {
		Enabled bool
		Level   string
	}
	FileOutput struct {
		Enabled    bool
		Path       string
		Level      string
		MaxSize    int64 // megabytes
		MaxAge     int   // days
		MaxBackups int
		Compress   bool
	}
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads config.yaml (embedded defaults, overridden by an on-disk file
// and environment bindings) into a fresh Settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("initializing viper: %w", err)
	}

	if err := bindEnv(); err != nil {
		return nil, fmt.Errorf("binding env vars: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unmarshaling config into struct: %w", err)
	}

	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	settingsInstance = settings
	return settings, nil
}

// LoadFromFile loads settings from a specific YAML file path, bypassing the
// default search paths. Used by `vabctl validate-config` and tests.
func LoadFromFile(path string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	viper.SetConfigFile(path)
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := bindEnv(); err != nil {
		return nil, fmt.Errorf("binding env vars: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unmarshaling config into struct: %w", err)
	}

	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settings, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("getting default config paths: %w", err)
	}
	for _, p := range configPaths {
		viper.AddConfigPath(p)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file on disk: defaults are sufficient to run.
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

// getDefaultConfig reads the embedded baseline config.yaml, used when no
// config file exists on disk yet.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("reading embedded config.yaml: %v", err)
	}
	return string(data)
}

// WriteDefaultConfig writes the embedded default config.yaml to destPath,
// creating parent directories as needed. No vabctl command calls it.
func WriteDefaultConfig(destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(destPath, []byte(getDefaultConfig()), 0o644)
}

// GetSettings returns the currently loaded settings, or nil if Load has not
// been called yet.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings, loading with defaults on first call.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SetForTest installs settings directly, bypassing Viper. Test helper only.
func SetForTest(s *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsInstance = s
}
