package watch

import (
	"path/filepath"
	"strings"
)

// ignorePatterns match editor swap files and partial downloads. The fetcher
// stages files as ".<name>.tmp", which the dot rule already covers.
var ignorePatterns = []string{
	"*.tmp",
	"*.part",
	"*.swp",
	"*~",
	"4913", // vim write probe
}

// Ignored reports whether a change to path should not trigger a reload.
// Hidden files and anything that is not JSON are ignored too.
func Ignored(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, pattern := range ignorePatterns {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
