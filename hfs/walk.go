package hfs

import (
	"errors"
	"fmt"
)

// WalkFunc is called for each entry during traversal.
// path is the colon-separated path of the entry, starting with the volume
// name. err is set only when the walk cannot start.
// Return nil to continue, SkipDir to skip a directory, SkipAll to stop
// without an error, or any other error to stop walking.
type WalkFunc func(path string, e Entry, err error) error

// SkipDir skips the directory just visited. Returned for a file, it skips
// the file's remaining siblings.
var SkipDir = errors.New("skip this directory")

// SkipAll stops the walk without an error.
var SkipAll = errors.New("skip everything and stop the walk")

// Walk traverses the catalog depth-first from the root directory, visiting
// the children of each directory in key order.
//
// Example:
//
//	tree, err := vol.Catalog()
//	Walk(tree, func(path string, e Entry, err error) error {
//	    if err != nil {
//	        return err
//	    }
//	    if e.IsDir() && e.Invisible() {
//	        return SkipDir
//	    }
//	    fmt.Println(path)
//	    return nil
//	})
func Walk(tree *CatalogTree, fn WalkFunc) error {
	root, ok := tree.Root()
	if !ok {
		return fn("", nil, fmt.Errorf("%w: root directory", ErrKeyNotFound))
	}

	seen := make(map[uint32]bool)
	err := walkEntry(tree, root.Name().String(), root, seen, fn)
	if err == SkipDir || err == SkipAll {
		return nil
	}
	return err
}

// walkEntry visits e and, for directories, its children. Entries already
// visited are skipped.
func walkEntry(tree *CatalogTree, path string, e Entry, seen map[uint32]bool, fn WalkFunc) error {
	seen[e.ID()] = true
	if err := fn(path, e, nil); err != nil || !e.IsDir() {
		return err
	}

	for _, child := range tree.Children(e.ID()) {
		if seen[child.ID()] {
			continue
		}
		err := walkEntry(tree, JoinPath(path, child.Name().String()), child, seen, fn)
		if err == nil {
			continue
		}
		if err == SkipDir {
			if child.IsDir() {
				continue
			}
			return nil
		}
		return err
	}
	return nil
}
