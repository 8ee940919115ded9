package symtree

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// DocumentExt is appended to a header path to get the path of its
// symbol-tree document.
const DocumentExt = ".json"

// Source supplies symbol trees by header path. Header paths are
// slash-separated and relative to the source root.
type Source interface {
	// Headers lists every header the source can load, sorted.
	Headers() ([]string, error)
	Load(header string) (*Header, error)
}

// DirSource reads "<Root>/<header>.json" documents.
type DirSource struct {
	Root string
}

func (s DirSource) Headers() ([]string, error) {
	var res []string
	err := filepath.WalkDir(s.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, DocumentExt) {
			return nil
		}
		rel, err := filepath.Rel(s.Root, p)
		if err != nil {
			return err
		}
		res = append(res, strings.TrimSuffix(filepath.ToSlash(rel), DocumentExt))
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(res)
	return res, nil
}

func (s DirSource) Load(header string) (*Header, error) {
	data, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(header)+DocumentExt))
	if err != nil {
		return nil, err
	}
	h, err := ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("symbol tree for %v: %w", header, err)
	}
	if h.File == "" {
		h.File = header
	}
	return h, nil
}

// MapSource is an in-memory Source.
type MapSource map[string]*Header

func (s MapSource) Headers() ([]string, error) {
	return slices.Sorted(maps.Keys(s)), nil
}

func (s MapSource) Load(header string) (*Header, error) {
	h, ok := s[header]
	if !ok {
		return nil, fmt.Errorf("symbol tree for %v: %w", header, fs.ErrNotExist)
	}
	if h.File == "" {
		h.File = header
	}
	return h, nil
}

var errNoMatch = errors.New("pattern matches no header")

// ExpandHeaders resolves module header entries against src. An entry
// containing glob meta characters ("*?[{") is matched against all
// headers in src ("*" does not cross "/", "**" does); other entries
// are taken literally. dir is joined in front of every entry.
// The result keeps entry order, sorted within a pattern, without
// duplicates.
func ExpandHeaders(src Source, dir string, entries []string) ([]string, error) {
	var all []string
	seen := map[string]struct{}{}
	add := func(h string) {
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		all = append(all, h)
	}
	var available []string
	for _, entry := range entries {
		full := path.Join(dir, entry)
		if !strings.ContainsAny(entry, "*?[{") {
			add(full)
			continue
		}
		g, err := glob.Compile(full, '/')
		if err != nil {
			return nil, fmt.Errorf("header pattern %q: %w", entry, err)
		}
		if available == nil {
			available, err = src.Headers()
			if err != nil {
				return nil, err
			}
		}
		n := 0
		for _, h := range available {
			if g.Match(h) {
				add(h)
				n++
			}
		}
		if n == 0 {
			return nil, fmt.Errorf("header pattern %q: %w", entry, errNoMatch)
		}
	}
	return all, nil
}
