// Package finder discovers ebook files under a directory tree. The
// walk is lazy: callers iterate one path at a time and can stop early
// without the tree being fully enumerated.
package finder

import (
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"talespin/internal/textutil"
)

// DefaultMaxDepth bounds recursion so runaway symlink farms and deep
// cache trees do not stall a scan.
const DefaultMaxDepth = 10

// Options controls a directory scan.
type Options struct {
	// Extensions is the set of accepted file suffixes, lowercase with
	// the leading dot. Multi-part suffixes such as ".fb2.zip" are
	// matched before single extensions.
	Extensions []string
	// SearchHidden includes dot-directories in the walk.
	SearchHidden bool
	// MaxDepth bounds recursion; zero means DefaultMaxDepth.
	MaxDepth int
}

// Find lazily yields matching file paths under root in natural sort
// order per directory. Unreadable directories and entries are skipped,
// and symlinks are never followed.
func Find(root string, opts Options) iter.Seq[string] {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	exts := make([]string, len(opts.Extensions))
	for i, e := range opts.Extensions {
		exts[i] = strings.ToLower(e)
	}

	return func(yield func(string) bool) {
		walk(root, 0, maxDepth, opts.SearchHidden, exts, yield)
	}
}

// Count enumerates matches without retaining them.
func Count(root string, opts Options) int {
	n := 0
	for range Find(root, opts) {
		n++
	}
	return n
}

// FindAll materializes the full match list, for callers that need
// random access.
func FindAll(root string, opts Options) []string {
	var paths []string
	for p := range Find(root, opts) {
		paths = append(paths, p)
	}
	return paths
}

func walk(dir string, depth, maxDepth int, searchHidden bool, exts []string, yield func(string) bool) bool {
	if depth > maxDepth {
		return true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return true
	}
	sort.Slice(entries, func(i, j int) bool {
		return textutil.NaturalLess(entries[i].Name(), entries[j].Name())
	})

	for _, entry := range entries {
		name := entry.Name()
		hidden := isHidden(name)

		if entry.IsDir() {
			if hidden && !searchHidden {
				continue
			}
			if !walk(filepath.Join(dir, name), depth+1, maxDepth, searchHidden, exts, yield) {
				return false
			}
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if hidden || !matchesExt(name, exts) {
			continue
		}
		if !yield(filepath.Join(dir, name)) {
			return false
		}
	}
	return true
}

func matchesExt(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// isHidden follows the dot convention, plus macOS "._" metadata files.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
