package stage

import (
	"path/filepath"
	"strings"
)

// DerivedName inserts a parameter suffix before the filename extension so
// distinct parameter runs produce distinct, non-colliding artifacts:
// DerivedName("m31.fit", "_b0.5") yields "m31_b0.5.fit". Chained stages grow
// the name, preserving the full processing history.
func DerivedName(base, suffix string) string {
	ext := filepath.Ext(base)
	if strings.EqualFold(ext, ".fz") {
		// Compressed artifacts carry a double extension (.fit.fz).
		inner := filepath.Ext(strings.TrimSuffix(base, ext))
		ext = inner + ext
	}
	stem := strings.TrimSuffix(base, ext)
	return stem + suffix + ext
}
