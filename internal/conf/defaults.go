// defaults.go default values for settings, mirroring config.yaml
package conf

import "github.com/spf13/viper"

func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "vab-orchestrator")

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", true)
	viper.SetDefault("logging.file_output.path", "logs/vab.log")
	viper.SetDefault("logging.file_output.level", "info")
	viper.SetDefault("logging.file_output.max_size", 100)
	viper.SetDefault("logging.file_output.max_age", 28)
	viper.SetDefault("logging.file_output.max_backups", 3)
	viper.SetDefault("logging.file_output.compress", false)

	viper.SetDefault("detection.tile.size", 512)
	viper.SetDefault("detection.tile.stride", 256)
	viper.SetDefault("detection.superres.enabled", true)
	viper.SetDefault("detection.superres.triggerminh", 360)
	viper.SetDefault("detection.superres.upscalescale", 4)
	viper.SetDefault("detection.smallobjectminpx", 8)

	viper.SetDefault("audio.loudness.targetlufs", -23.0)
	viper.SetDefault("audio.stoi.enabled", true)
	viper.SetDefault("audio.stoi.minok", 0.8)

	viper.SetDefault("runtime.framestride", 1)
	viper.SetDefault("runtime.gpusemaphore", 2)
	viper.SetDefault("runtime.qwencontextmaxframes", 16)
	viper.SetDefault("runtime.oomfallbackorder", []string{
		"disable_mask_refinement",
		"disable_superres",
		"shrink_vl_context",
		"single_scale_tiling",
		"skip_detector",
	})
	viper.SetDefault("runtime.deadlines.gpuheavy", "120s")
	viper.SetDefault("runtime.deadlines.cpu", "30s")
	viper.SetDefault("runtime.deadlines.vl", "60s")

	viper.SetDefault("ablation.nosr", false)
	viper.SetDefault("ablation.notiling", false)
	viper.SetDefault("ablation.lightaudio", false)

	viper.SetDefault("coverage.framesanalyzedpct", 99.0)
	viper.SetDefault("coverage.lufstracepct", 100.0)
	viper.SetDefault("coverage.stoipct", 90.0)

	viper.SetDefault("merge.scenessimthreshold", 0.45)
	viper.SetDefault("merge.maxscenegaps", 2.0)

	viper.SetDefault("store.path", "store")

	viper.SetDefault("http.maxvideomb", int64(2048))
	viper.SetDefault("http.mimewhitelist", []string{"video/mp4", "video/quicktime", "video/webm"})
	viper.SetDefault("http.listen", ":8085")

	viper.SetDefault("vl.apibase", "http://127.0.0.1:8000/v1")
	viper.SetDefault("vl.model", "qwen-vl")

	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6380)

	viper.SetDefault("failurebudget.maxinternalerrorshotpct", 0.2)
}
