// Package security guards the file names that reach the dashboard from
// query strings and command-line flags.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsafeName is returned for names that would leave the data directory.
var ErrUnsafeName = errors.New("unsafe file name")

// ResolveDataFile joins a user-supplied CSV name onto dir. The name must be
// a bare file name with a .csv extension; separators and dot segments are
// rejected. The check is lexical so it works for in-memory filesystems.
func ResolveDataFile(dir, name string) (string, error) {
	switch {
	case name == "", name == ".", name == "..":
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	case !strings.EqualFold(filepath.Ext(name), ".csv"):
		return "", fmt.Errorf("%w: %q is not a .csv file", ErrUnsafeName, name)
	}
	return filepath.Join(dir, name), nil
}

// ValidatePathWithinDirectory checks that filePath resolves inside safeDir
// on disk. Symlinks are resolved on both sides; for a path that does not
// exist yet the nearest existing parent is resolved instead, so a link such
// as safe/evil -> /etc cannot be used to place new files outside safeDir.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}

	canonicalPath := canonical(absPath)
	canonicalSafeDir, err := filepath.EvalSymlinks(absSafeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory symlinks: %w", err)
	}

	relPath, err := filepath.Rel(canonicalSafeDir, canonicalPath)
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || filepath.IsAbs(relPath) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// canonical resolves symlinks in p, or in its nearest existing ancestor.
func canonical(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	check := p
	for {
		parent := filepath.Dir(check)
		if parent == check {
			return p
		}
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rel, _ := filepath.Rel(parent, p)
			return filepath.Join(resolved, rel)
		}
		check = parent
	}
}

// SanitizeFilename makes a safe file name fragment from an arbitrary string,
// such as a brand name used in a report file. Characters other than ASCII
// letters, digits, dot, underscore and dash become a single underscore.
func SanitizeFilename(s string) string {
	const maxLen = 128

	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
