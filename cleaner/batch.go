package cleaner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FileOutcome is the result of cleaning one file during a directory scan.
type FileOutcome struct {
	Path   string  `json:"path"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// BatchOptions controls FixDir.
type BatchOptions struct {
	// Include holds base-name globs, e.g. "*.cs". Empty matches every file.
	Include []string
	DryRun  bool
	Workers int
}

// build output folders never hold hand-maintained migrations
var skippedDirs = map[string]bool{
	"bin":          true,
	"obj":          true,
	"node_modules": true,
}

// MatchesInclude reports whether the base name of path matches one of the globs.
func MatchesInclude(path string, include []string) bool {
	if len(include) == 0 {
		return true
	}
	base := filepath.Base(path)
	for _, pattern := range include {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// CollectFiles walks root and returns the files matching include, sorted.
func CollectFiles(root string, include []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (skippedDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && MatchesInclude(path, include) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// FixDir cleans every matching file under root. Files are independent, so
// they are processed by a bounded pool of workers; outcomes come back in path
// order. A failure on one file is recorded in its outcome and does not stop
// the others.
func (c *Cleaner) FixDir(ctx context.Context, root string, opts BatchOptions) ([]FileOutcome, error) {
	files, err := CollectFiles(root, opts.Include)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	outcomes := make([]FileOutcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := c.FixFile(path, opts.DryRun)
			if err != nil {
				c.logger.Warn("failed to clean file", zap.String("path", path), zap.Error(err))
			}
			outcomes[i] = FileOutcome{Path: path, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	return outcomes, nil
}
