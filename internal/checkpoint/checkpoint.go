// Package checkpoint reads checkpoint index files, the small text files
// in which training writes one `tag "path"` line per saved model state,
// oldest first.
package checkpoint

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

// ErrEmptyIndex is returned when an index file holds no entries.
var ErrEmptyIndex = errors.New("checkpoint index is empty")

// Entry is one line of an index file.
type Entry struct {
	Tag  string
	Path string
}

// Parse reads every non-blank line of an index. The tag keeps its
// trailing colon if it had one; the path has its quotes removed.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		i := strings.IndexFunc(line, unicode.IsSpace)
		if i < 0 {
			return nil, fmt.Errorf("line %d: expected `tag \"path\"`, got %q", lineNo, line)
		}
		entries = append(entries, Entry{
			Tag:  line[:i],
			Path: unquote(strings.TrimSpace(line[i:])),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading checkpoint index: %w", err)
	}
	return entries, nil
}

// unquote strips the quotes around a path, decoding escapes the way the
// index writer encodes them. The whole remainder of the line is the path,
// so paths may contain spaces.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
		return s[1 : len(s)-1]
	}
	return s
}

// Select returns the entry offset lines before the last one. Offset 0 is
// the most recent checkpoint.
func Select(entries []Entry, offset int) (Entry, error) {
	if len(entries) == 0 {
		return Entry{}, ErrEmptyIndex
	}
	if offset < 0 || offset >= len(entries) {
		return Entry{}, fmt.Errorf("offset %d out of range for %d checkpoints", offset, len(entries))
	}
	return entries[len(entries)-1-offset], nil
}

// Resolve reads the index at indexPath and returns the selected checkpoint
// path. Relative paths are taken relative to the index file's directory.
func Resolve(indexPath string, offset int) (string, error) {
	f, err := os.Open(indexPath)
	if err != nil {
		return "", fmt.Errorf("opening checkpoint index: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return "", fmt.Errorf("%s: %w", indexPath, err)
	}
	entry, err := Select(entries, offset)
	if err != nil {
		return "", fmt.Errorf("%s: %w", indexPath, err)
	}

	path := entry.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(indexPath), path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving checkpoint path %q: %w", path, err)
	}
	return abs, nil
}

// Exists reports whether a restorable checkpoint is stored at path, which
// is the case when its `.index` companion file is present.
func Exists(path string) bool {
	info, err := os.Stat(path + ".index")
	return err == nil && !info.IsDir()
}
