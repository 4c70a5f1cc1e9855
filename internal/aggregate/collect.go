package aggregate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/specialistvlad/unetgrid/internal/ctxlog"
	"github.com/specialistvlad/unetgrid/internal/fsutil"
)

// DefaultLogPattern matches the program's default log file name and any
// other .txt log kept next to it.
const DefaultLogPattern = "*.txt"

// Options controls which directories and files Collect reads.
type Options struct {
	LogPattern string
	Include    []string
	Exclude    []string
}

// Collect builds one row per immediate subdirectory of root, in name
// order. Every file matching the log pattern inside a directory is
// scanned in name order, so later files override earlier ones.
func Collect(ctx context.Context, root string, opts Options) ([]Row, error) {
	logger := ctxlog.FromContext(ctx)

	pattern := opts.LogPattern
	if pattern == "" {
		pattern = DefaultLogPattern
	}
	matcher, err := fsutil.NewMatcher(opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading results root: %w", err)
	}

	var rows []Row
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() || !matcher.Match(e.Name()) {
			continue
		}

		dir := filepath.Join(root, e.Name())
		logs, err := fsutil.MatchingFiles(dir, pattern)
		if err != nil {
			return nil, err
		}
		if len(logs) == 0 {
			logger.Warn("No log file in result directory.", "dir", dir, "pattern", pattern)
		}

		var m Metrics
		var size uint64
		for _, path := range logs {
			n, err := scanFile(&m, path)
			if err != nil {
				return nil, err
			}
			size += n
		}
		logger.Debug("Scanned result directory.", "dir", e.Name(), "logs", len(logs), "size", humanize.Bytes(size))
		rows = append(rows, NewRow(e.Name(), m))
	}

	logger.Info("Aggregation complete.", "root", root, "rows", len(rows))
	return rows, nil
}

func scanFile(m *Metrics, path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat log %s: %w", path, err)
	}
	if err := parseInto(m, f); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return uint64(info.Size()), nil
}
