package preprocess

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"astropipe/internal/fileutil"
)

// mergeSession moves the calibrated light frames from a secondary
// session's process directory into the primary one, renumbering them to
// continue the primary's frame sequence. Returns the number of frames
// moved. Frames are moved in name order so relative ordering within a
// session is preserved.
func mergeSession(primaryDir, sessionDir, extension string) (int, error) {
	suffix := "." + extension
	next, err := fileutil.NextSequenceIndex(primaryDir, "pp_light_", suffix)
	if err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(sessionDir)
	if err != nil {
		return 0, fmt.Errorf("scan session %q: %w", sessionDir, err)
	}
	var frames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "pp_light_") && strings.HasSuffix(name, suffix) {
			frames = append(frames, name)
		}
	}
	sort.Strings(frames)

	for _, name := range frames {
		dst := fileutil.SequenceFrameName("pp_light_", next, suffix)
		if err := fileutil.MoveFile(filepath.Join(sessionDir, name), filepath.Join(primaryDir, dst)); err != nil {
			return 0, err
		}
		next++
	}
	return len(frames), nil
}
