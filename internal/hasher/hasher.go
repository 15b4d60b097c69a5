// Package hasher provides content-addressed digests for files and strings.
// SHA-256 over raw bytes, returned as lowercase hex. Used by the indexer to
// skip unchanged files and by the retriever to stamp snippets.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// HashBytes digests raw bytes.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashString digests the UTF-8 bytes of s.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// HashFile digests the on-disk bytes at path. The file handle is scoped to
// this call and released on every exit path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
