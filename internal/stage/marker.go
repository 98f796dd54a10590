package stage

import (
	"path/filepath"

	"astropipe/internal/fileutil"
)

// Marker is a completion signal for a stage in a working directory: the
// existence of any candidate path (relative to the workdir) means the stage
// already ran and must be skipped. Presence is the only criterion: there is
// no checksum or freshness check, so a stale marker suppresses reprocessing
// until the file is removed.
type Marker struct {
	Candidates []string
}

// NewMarker builds a marker over relative candidate paths.
func NewMarker(candidates ...string) Marker {
	return Marker{Candidates: candidates}
}

// Empty reports whether the marker can never match.
func (m Marker) Empty() bool {
	return len(m.Candidates) == 0
}

// Exists reports whether any candidate is present under workdir, returning
// the matching path.
func (m Marker) Exists(workdir string) (string, bool) {
	for _, candidate := range m.Candidates {
		path := filepath.Join(workdir, candidate)
		if fileutil.Exists(path) {
			return path, true
		}
	}
	return "", false
}
