package hfs

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-hfs/internal/catalog"
)

// PathSeparator separates names in an HFS path.
const PathSeparator = catalog.PathSeparator

// SplitPath splits a path into its names. The first name is the volume
// name. A trailing separator is ignored.
//
// Examples:
//   - "Macintosh HD" -> []string{"Macintosh HD"}
//   - "Macintosh HD:System Folder:" -> []string{"Macintosh HD", "System Folder"}
//   - ":Relative" -> error
//
// Returns an error wrapping ErrInvalidPath for empty paths and empty names.
func SplitPath(path string) ([]string, error) {
	trimmed := strings.TrimSuffix(path, PathSeparator)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	parts := strings.Split(trimmed, PathSeparator)
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: empty name in %q", ErrInvalidPath, path)
		}
	}
	return parts, nil
}

// JoinPath joins names into a path.
func JoinPath(names ...string) string {
	return strings.Join(names, PathSeparator)
}
