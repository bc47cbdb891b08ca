// Package discover walks a config.BuildConfig.Root applying
// Include/Exclude glob patterns, producing the initial file list an asset
// graph is built from -- the filesystem side of "a prior pass populates
// dependencies" that the hoisting core assumes has already run.
package discover

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/bernharduw/parcel/internal/config"
)

// Walk returns a sorted, absolute-path list of every file under
// cfg.Root that matches at least one Include pattern (or every file, if
// Include is empty) and no Exclude pattern. Patterns use doublestar's
// "**" recursive-glob syntax against the path relative to cfg.Root.
func Walk(cfg config.BuildConfig) ([]string, error) {
	for _, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("discover: invalid exclude pattern %q", pattern)
		}
	}
	for _, pattern := range cfg.Include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("discover: invalid include pattern %q", pattern)
		}
	}

	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("discover: resolving root %q: %w", cfg.Root, err)
	}

	var files []string

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A single unreadable entry (permission denied, a broken
			// symlink) shouldn't abort discovery of everything else.
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		for _, pattern := range cfg.Exclude {
			if matched, _ := doublestar.PathMatch(pattern, relPath); matched {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			return nil
		}

		if len(cfg.Include) > 0 {
			matched := false
			for _, pattern := range cfg.Include {
				if m, _ := doublestar.PathMatch(pattern, relPath); m {
					matched = true
					break
				}
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover: walking %q: %w", absRoot, err)
	}

	sort.Strings(files)
	return files, nil
}
