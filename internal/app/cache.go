package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// handleCache keeps or removes the files of one capture. With keepCache and
// a cache dir the files are renamed to audio-<timestamp>-<suffix> and the
// transcript, when present, is stored next to them.
func handleCache(cacheDir string, keep bool, paths []string, transcript string, now time.Time, log zerolog.Logger) {
	if !keep || cacheDir == "" {
		for _, p := range paths {
			if p == "" {
				continue
			}
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				log.Debug().Err(err).Str("path", p).Msg("remove capture failed")
			}
		}
		return
	}

	base := fmt.Sprintf("audio-%s", now.Format("2006-01-02-15.04.05"))
	for _, p := range paths {
		if p == "" {
			continue
		}
		dst := filepath.Join(cacheDir, base+cacheSuffix(p))
		if err := os.Rename(p, dst); err != nil {
			log.Warn().Err(err).Str("dst", dst).Msg("failed to move capture into cache")
			_ = os.Remove(p)
			continue
		}
		log.Debug().Str("path", dst).Msg("kept capture")
	}
	if transcript != "" {
		dst := filepath.Join(cacheDir, base+".txt")
		if err := os.WriteFile(dst, []byte(transcript), 0o644); err != nil {
			log.Warn().Err(err).Str("dst", dst).Msg("failed to write transcript")
		}
	}
}

// cacheSuffix keeps the stream tag of RecordTemp_<id>_mic.wav style names.
func cacheSuffix(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	if i := strings.LastIndex(stem, "_"); i >= 0 {
		return "-" + stem[i+1:] + ext
	}
	return ext
}
