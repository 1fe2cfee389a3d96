package data

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// maxLineSize bounds a single corpus line; articles can be long.
const maxLineSize = 16 * 1024 * 1024

// ErrMalformedLine is returned for a corpus line without a tab separator.
var ErrMalformedLine = errors.New("malformed corpus line: expected source<TAB>target")

// Source opens a fresh pass over a corpus. Each call starts from the beginning,
// so single-pass readers can back a multi-epoch training run.
type Source func() (Stream[Pair], error)

// SliceSource serves an in-memory corpus.
func SliceSource(pairs []Pair) Source {
	return func() (Stream[Pair], error) {
		return FromSlice(pairs), nil
	}
}

// TSVSource reads every file matching any of the glob patterns (doublestar
// syntax, e.g. "data/**/*.tsv"). Each non-blank line is "source<TAB>target".
// Files are read in sorted path order.
func TSVSource(fsys afero.Fs, patterns ...string) Source {
	return func() (Stream[Pair], error) {
		paths, err := ResolvePaths(fsys, patterns...)
		if err != nil {
			return nil, err
		}
		return &tsvStream{fs: fsys, paths: paths}, nil
	}
}

// ResolvePaths expands glob patterns against fsys. A pattern matching nothing
// is an error.
func ResolvePaths(fsys afero.Fs, patterns ...string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid corpus pattern %q", pattern)
		}
		base, _ := doublestar.SplitPattern(pattern)
		var matches []string
		err := afero.Walk(fsys, filepath.FromSlash(base), func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			ok, err := doublestar.Match(pattern, filepath.ToSlash(path))
			if err != nil {
				return err
			}
			if ok {
				matches = append(matches, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve corpus pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no corpus files match %q: %w", pattern, os.ErrNotExist)
		}
		slices.Sort(matches)
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}
	return paths, nil
}

type tsvStream struct {
	fs      afero.Fs
	paths   []string
	file    afero.File
	scanner *bufio.Scanner
	path    string
	line    int
}

func (s *tsvStream) Next() (Pair, error) {
	for {
		if s.scanner == nil {
			if len(s.paths) == 0 {
				return Pair{}, io.EOF
			}
			if err := s.open(s.paths[0]); err != nil {
				return Pair{}, err
			}
			s.paths = s.paths[1:]
		}
		if s.scanner.Scan() {
			s.line++
			text := s.scanner.Text()
			if strings.TrimSpace(text) == "" {
				continue
			}
			source, target, ok := strings.Cut(text, "\t")
			if !ok {
				return Pair{}, fmt.Errorf("%s:%d: %w", s.path, s.line, ErrMalformedLine)
			}
			return Pair{Source: strings.TrimSpace(source), Target: strings.TrimSpace(target)}, nil
		}
		if err := s.scanner.Err(); err != nil {
			return Pair{}, fmt.Errorf("failed to read %s: %w", s.path, err)
		}
		if err := s.closeFile(); err != nil {
			return Pair{}, err
		}
	}
}

func (s *tsvStream) open(path string) error {
	file, err := s.fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open corpus file: %w", err)
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	s.file = file
	s.scanner = scanner
	s.path = path
	s.line = 0
	return nil
}

func (s *tsvStream) closeFile() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.scanner = nil
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", s.path, err)
	}
	return nil
}

func (s *tsvStream) Close() error {
	s.paths = nil
	return s.closeFile()
}
