// Package fsutil holds path-safety helpers shared by every external surface.
package fsutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathOutsideRepo is returned when a caller-supplied path escapes the
// repo root after canonicalisation.
var ErrPathOutsideRepo = errors.New("path escapes repo root")

// ResolveWithin canonicalises rel against root and rejects it if the result
// escapes root. Returns the absolute path and the cleaned repo-relative path.
func ResolveWithin(root, rel string) (abs string, cleaned string, err error) {
	root, err = filepath.Abs(root)
	if err != nil {
		return "", "", fmt.Errorf("resolve root %s: %w", root, err)
	}

	candidate := rel
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, rel)
	}
	candidate = filepath.Clean(candidate)

	relOut, err := filepath.Rel(root, candidate)
	if err != nil {
		return "", "", fmt.Errorf("relativize %s: %w", rel, err)
	}
	if relOut == ".." || strings.HasPrefix(relOut, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%w: %s", ErrPathOutsideRepo, rel)
	}
	return candidate, filepath.ToSlash(relOut), nil
}
