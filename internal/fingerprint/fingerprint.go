// Package fingerprint computes deterministic content+path hashes over a
// task's declared input patterns.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// isGlobPattern reports whether pattern contains glob metacharacters,
// including doublestar's "**".
func isGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// expandPattern resolves a single pattern into a deterministically ordered
// list of files. Directories are expanded to their sorted file entries
// (recursively); a literal path that does not exist contributes nothing.
func expandPattern(pattern string) ([]string, error) {
	if !isGlobPattern(pattern) {
		return expandLiteral(pattern)
	}

	base, cleanPattern := doublestar.SplitPattern(pattern)
	fsys := os.DirFS(base)
	matches, err := doublestar.Glob(fsys, cleanPattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		full := filepath.Join(base, m)
		expanded, err := expandLiteral(full)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

// expandLiteral resolves a single literal path: a regular file contributes
// itself, a directory contributes its sorted recursive file listing, and a
// missing path contributes nothing: this lets a task with no prior output
// bootstrap cleanly on its first run.
func expandLiteral(path string) ([]string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	var out []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// WatchRoots returns, for each input pattern, the filesystem path it is
// rooted at: a glob pattern's base directory (per doublestar.SplitPattern),
// or the literal path itself. The Watch Loop registers recursive watches on
// these roots without needing to understand glob syntax itself.
func WatchRoots(patterns []string) []string {
	roots := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if isGlobPattern(p) {
			base, _ := doublestar.SplitPattern(p)
			roots = append(roots, base)
			continue
		}
		roots = append(roots, p)
	}
	return roots
}

// Compute returns the stable hex SHA-256 digest for the given ordered list
// of input patterns. Patterns are expanded in the order given; within a
// single pattern, matches are sorted; the final digest also depends on the
// order patterns were supplied.
func Compute(patterns []string) (string, error) {
	h := sha256.New()

	for _, pattern := range patterns {
		files, err := expandPattern(pattern)
		if err != nil {
			return "", err
		}
		for _, f := range files {
			if err := hashFile(h, f); err != nil {
				return "", err
			}
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashFile feeds a file's slash-normalized relative-ish path, then its
// contents, into h. Hashing the path in addition to content is what lets a
// rename be detected even when content is byte-identical.
func hashFile(h interface{ Write([]byte) (int, error) }, path string) error {
	normPath := filepath.ToSlash(path)
	if _, err := h.Write([]byte(normPath)); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Vanished between listing and read: treat like "missing",
			// contribute nothing further for this file.
			return nil
		}
		return err
	}
	_, err = h.Write(data)
	return err
}
