package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePath resolves path against baseDir and rejects any result that
// would escape baseDir, guarding against ".." traversal in tenant-supplied
// identifiers (org ids, conversation ids) before they're used to build a
// filesystem path.
func ValidatePath(baseDir, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve base dir: %w", err)
	}
	var resolved string
	if filepath.IsAbs(path) {
		resolved = filepath.Clean(path)
	} else {
		resolved = filepath.Clean(filepath.Join(base, path))
	}
	rel, err := filepath.Rel(base, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path outside allowed directory: %s", path)
	}
	return resolved, nil
}
