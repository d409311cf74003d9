package reader

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/velum-io/tabular/pkg/errors"
)

// ExtensionOf returns the lowercased file extension without its dot, or ""
// when the path has none.
func ExtensionOf(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// CommonExtension returns the extension shared by every path. Paths with
// differing extensions are an error naming the conflicting set.
func CommonExtension(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", errors.New(errors.ErrorTypeValidation, "no source paths given")
	}
	seen := make(map[string]struct{})
	for _, p := range paths {
		seen[ExtensionOf(p)] = struct{}{}
	}
	if len(seen) != 1 {
		exts := make([]string, 0, len(seen))
		for e := range seen {
			exts = append(exts, e)
		}
		sort.Strings(exts)
		return "", errors.Newf(errors.ErrorTypeValidation,
			"source paths must share one extension, got: %s", strings.Join(exts, ", "))
	}
	for e := range seen {
		return e, nil
	}
	return "", nil
}

// ExpandGlobs resolves shell-style patterns against the filesystem,
// preserving pattern order and sorting matches within each pattern.
func ExpandGlobs(patterns []string) ([]string, error) {
	var out []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "bad glob pattern "+pattern)
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	if len(out) == 0 {
		return nil, errors.Newf(errors.ErrorTypeFile,
			"no files match: %s", strings.Join(patterns, ", "))
	}
	return out, nil
}
