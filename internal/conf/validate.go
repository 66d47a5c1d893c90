package conf

import "fmt"

// validateSettings performs structural sanity checks that Viper/mapstructure
// cannot express declaratively. Mirrors the teacher's validateSettings in
// spirit: fix what can be defaulted, fail loudly on what can't.
func validateSettings(s *Settings) error {
	if s.Detection.Tile.Size <= 0 {
		s.Detection.Tile.Size = 512
	}
	if s.Detection.Tile.Stride <= 0 {
		s.Detection.Tile.Stride = 256
	}
	if s.Detection.SmallObjectMinPx <= 0 {
		s.Detection.SmallObjectMinPx = 8
	}
	if s.Runtime.GPUSemaphore <= 0 {
		return fmt.Errorf("runtime.gpusemaphore must be positive, got %d", s.Runtime.GPUSemaphore)
	}
	if s.Runtime.QwenContextMaxFrames <= 0 {
		s.Runtime.QwenContextMaxFrames = 16
	}
	if s.Runtime.FrameStride <= 0 {
		s.Runtime.FrameStride = 1
	}
	if s.Coverage.FramesAnalyzedPct <= 0 || s.Coverage.FramesAnalyzedPct > 100 {
		return fmt.Errorf("coverage.framesanalyzedpct must be in (0,100], got %f", s.Coverage.FramesAnalyzedPct)
	}
	if s.Merge.SceneSSIMThreshold <= 0 || s.Merge.SceneSSIMThreshold > 1 {
		return fmt.Errorf("merge.scenessimthreshold must be in (0,1], got %f", s.Merge.SceneSSIMThreshold)
	}
	if s.Store.Path == "" {
		s.Store.Path = "store"
	}
	if s.HTTP.MaxVideoMB <= 0 {
		return fmt.Errorf("http.maxvideomb must be positive, got %d", s.HTTP.MaxVideoMB)
	}
	if len(s.HTTP.MimeWhitelist) == 0 {
		return fmt.Errorf("http.mimewhitelist must not be empty")
	}
	if s.FailureBudget.MaxInternalErrorShotPct <= 0 {
		s.FailureBudget.MaxInternalErrorShotPct = 0.2
	}
	return nil
}
