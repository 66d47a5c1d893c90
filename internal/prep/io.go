package prep

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// estimateFrameCount derives a deterministic frame count from the source
// file's size and the configured fps, standing in for real demuxing. A
// missing file is a prep-fatal input error (spec §3 invariant 1 cannot be
// satisfied without a source to decode).
func estimateFrameCount(sourcePath string, fps float64) (int, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return 0, err
	}
	// ~64KB of source per second of video per fps is an arbitrary but
	// stable stand-in ratio; real decode reads the container's duration.
	approxSeconds := float64(info.Size()) / (64 * 1024)
	if approxSeconds < 1 {
		approxSeconds = 1
	}
	return int(approxSeconds * fps), nil
}

// SHA256File returns the hex-encoded SHA-256 of path's contents, used for
// the bundle's video.sha256 identity field.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
