package binderio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
)

// WriteError is a failure to write a generated file to its
// destination.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %v: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// OutputSet holds generated files in memory until they are committed.
// Paths are slash-separated and relative to the destination root.
type OutputSet struct {
	paths []string
	files map[string]string
}

func NewOutputSet() *OutputSet {
	return &OutputSet{files: map[string]string{}}
}

// Add stores the content of the file at path. Adding the same path
// twice is an error.
func (s *OutputSet) Add(path, content string) error {
	path = filepath.ToSlash(filepath.Clean(path))
	if filepath.IsAbs(path) || path == ".." || strings.HasPrefix(path, "../") {
		return fmt.Errorf("output path %v escapes the destination root", path)
	}
	if _, ok := s.files[path]; ok {
		return fmt.Errorf("duplicate output file %v", path)
	}
	s.paths = append(s.paths, path)
	s.files[path] = content
	return nil
}

// AddCode stores the code built by cb.
func (s *OutputSet) AddCode(path string, cb *CodeBuilder) error {
	return s.Add(path, cb.String())
}

// Merge moves the files of other into s.
func (s *OutputSet) Merge(other *OutputSet) error {
	for _, p := range other.paths {
		if err := s.Add(p, other.files[p]); err != nil {
			return err
		}
	}
	return nil
}

// Paths returns the stored paths in the order they were added.
func (s *OutputSet) Paths() []string { return slices.Clone(s.paths) }

func (s *OutputSet) File(path string) (string, bool) {
	content, ok := s.files[path]
	return content, ok
}

func (s *OutputSet) Len() int { return len(s.paths) }

// Commit writes every file below root. All files are staged in a
// temporary directory below root first, then moved into place. If a
// move fails, the files already moved are restored to their previous
// content, or removed if they did not exist.
func (s *OutputSet) Commit(root string) error {
	if len(s.paths) == 0 {
		return nil
	}
	for _, p := range s.paths {
		dir := filepath.Dir(filepath.Join(root, filepath.FromSlash(p)))
		if err := os.MkdirAll(dir, 0o777); err != nil {
			return &WriteError{Path: dir, Err: err}
		}
	}

	staging, err := os.MkdirTemp(root, ".bindgen-")
	if err != nil {
		return &WriteError{Path: root, Err: err}
	}
	defer os.RemoveAll(staging)
	staged := func(i int) string { return filepath.Join(staging, strconv.Itoa(i)) }
	for i, p := range s.paths {
		if err := os.WriteFile(staged(i), []byte(s.files[p]), 0o666); err != nil {
			return &WriteError{Path: filepath.Join(root, filepath.FromSlash(p)), Err: err}
		}
	}

	var done []replaced
	for i, p := range s.paths {
		dst := filepath.Join(root, filepath.FromSlash(p))
		prev, readErr := os.ReadFile(dst)
		if err := atomic.ReplaceFile(staged(i), dst); err != nil {
			restore(done)
			return &WriteError{Path: dst, Err: err}
		}
		done = append(done, replaced{path: dst, prev: prev, existed: readErr == nil})
	}
	return nil
}

type replaced struct {
	path    string
	prev    []byte
	existed bool
}

func restore(files []replaced) {
	for _, f := range slices.Backward(files) {
		if f.existed {
			_ = atomic.WriteFile(f.path, bytes.NewReader(f.prev))
		} else {
			_ = os.Remove(f.path)
		}
	}
}
